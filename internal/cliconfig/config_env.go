package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables.
// The Cloud Function variables (PROJECT_ID, SUBSCRIPTION_ID, CHRONICLE_*)
// are read under their deployed names; agent tunables use PUBSHIP_*.
// It respects flags that have been explicitly set (changed map).
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("project-id", os.Getenv("PROJECT_ID"), &cfg.ProjectID)
	s.setString("subscription-id", os.Getenv("SUBSCRIPTION_ID"), &cfg.SubscriptionID)
	s.setString("data-type", os.Getenv("CHRONICLE_DATA_TYPE"), &cfg.DataType)
	s.setString("customer-id", os.Getenv("CHRONICLE_CUSTOMER_ID"), &cfg.CustomerID)
	s.setString("region", os.Getenv("CHRONICLE_REGION"), &cfg.Region)
	s.setString("service-account", os.Getenv("CHRONICLE_SERVICE_ACCOUNT"), &cfg.ServiceAccount)

	s.setString("source", os.Getenv("PUBSHIP_SOURCE"), &cfg.Source)
	s.setString("ingest-url", os.Getenv("PUBSHIP_INGEST_URL"), &cfg.IngestURL)
	s.setString("nats-url", os.Getenv("PUBSHIP_NATS_URL"), &cfg.NATSURL)
	s.setString("nats-queue", os.Getenv("PUBSHIP_NATS_QUEUE"), &cfg.NATSQueue)
	s.setStrings("kafka-brokers", os.Getenv("PUBSHIP_KAFKA_BROKERS"), &cfg.KafkaBrokers)
	s.setString("kafka-group", os.Getenv("PUBSHIP_KAFKA_GROUP"), &cfg.KafkaGroup)
	s.setString("listen", os.Getenv("PUBSHIP_LISTEN"), &cfg.ListenAddr)
	s.setString("log-level", os.Getenv("PUBSHIP_LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setDuration("receive-timeout", os.Getenv("PUBSHIP_RECEIVE_TIMEOUT"), &cfg.ReceiveTimeout); err != nil {
		return err
	}
	if err := s.setDuration("timeout", os.Getenv("PUBSHIP_HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setBytes("batch-bytes", os.Getenv("PUBSHIP_BATCH_BYTES"), &cfg.BatchBytes); err != nil {
		return err
	}
	if err := s.setBytes("request-bytes", os.Getenv("PUBSHIP_REQUEST_BYTES"), &cfg.RequestBytes); err != nil {
		return err
	}

	s.setBoolFromString("compress", os.Getenv("PUBSHIP_COMPRESS"), &cfg.Compress)

	return nil
}

package cliconfig

import (
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations and byte sizes
// to make TOML friendly.
type FileConfig struct {
	Source         string   `toml:"source"`
	ProjectID      string   `toml:"project_id"`
	SubscriptionID string   `toml:"subscription_id"`
	DataType       string   `toml:"data_type"`
	CustomerID     string   `toml:"customer_id"`
	Region         string   `toml:"region"`
	IngestURL      string   `toml:"ingest_url"`
	ServiceAccount string   `toml:"service_account"`
	ReceiveTimeout string   `toml:"receive_timeout"`
	BatchBytes     string   `toml:"batch_bytes"`
	RequestBytes   string   `toml:"request_bytes"`
	HTTPTimeout    string   `toml:"http_timeout"`
	Compress       *bool    `toml:"compress"`
	NATSURL        string   `toml:"nats_url"`
	NATSQueue      string   `toml:"nats_queue"`
	KafkaBrokers   []string `toml:"kafka_brokers"`
	KafkaGroup     string   `toml:"kafka_group"`
	ListenAddr     string   `toml:"listen"`
	LogLevel       string   `toml:"log_level"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.pubship/config.toml, or "" if the user home
// directory is not accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".pubship", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("source", fc.Source, &cfg.Source)
	s.setString("project-id", fc.ProjectID, &cfg.ProjectID)
	s.setString("subscription-id", fc.SubscriptionID, &cfg.SubscriptionID)
	s.setString("data-type", fc.DataType, &cfg.DataType)
	s.setString("customer-id", fc.CustomerID, &cfg.CustomerID)
	s.setString("region", fc.Region, &cfg.Region)
	s.setString("ingest-url", fc.IngestURL, &cfg.IngestURL)
	s.setString("service-account", fc.ServiceAccount, &cfg.ServiceAccount)
	s.setString("nats-url", fc.NATSURL, &cfg.NATSURL)
	s.setString("nats-queue", fc.NATSQueue, &cfg.NATSQueue)
	s.setStrings("kafka-brokers", strings.Join(fc.KafkaBrokers, ","), &cfg.KafkaBrokers)
	s.setString("kafka-group", fc.KafkaGroup, &cfg.KafkaGroup)
	s.setString("listen", fc.ListenAddr, &cfg.ListenAddr)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	if err := s.setDuration("receive-timeout", fc.ReceiveTimeout, &cfg.ReceiveTimeout); err != nil {
		return err
	}
	if err := s.setDuration("timeout", fc.HTTPTimeout, &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setBytes("batch-bytes", fc.BatchBytes, &cfg.BatchBytes); err != nil {
		return err
	}
	if err := s.setBytes("request-bytes", fc.RequestBytes, &cfg.RequestBytes); err != nil {
		return err
	}

	s.setBool("compress", fc.Compress, &cfg.Compress)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

package cliconfig

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/rs/zerolog"

	"github.com/bft-labs/pubship/internal/domain"
)

// Supported subscription backends.
const (
	SourcePubSub = "pubsub"
	SourceNATS   = "nats"
	SourceKafka  = "kafka"
)

// DefaultDataType is the Chronicle log type used when none is configured.
const DefaultDataType = "LOGS"

// Config holds CLI configuration for pubship.
type Config struct {
	Source         string
	ProjectID      string
	SubscriptionID string

	DataType       string
	CustomerID     string
	Region         string
	IngestURL      string
	ServiceAccount string

	ReceiveTimeout time.Duration
	BatchBytes     int
	RequestBytes   int
	HTTPTimeout    time.Duration
	Compress       bool

	NATSURL   string
	NATSQueue string

	KafkaBrokers []string
	KafkaGroup   string

	ListenAddr string
	LogLevel   string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Source:         SourcePubSub,
		DataType:       DefaultDataType,
		ReceiveTimeout: 5 * time.Second,
		BatchBytes:     500000,
		RequestBytes:   1000000,
		HTTPTimeout:    30 * time.Second,
		NATSURL:        "nats://127.0.0.1:4222",
		ListenAddr:     ":8080",
		LogLevel:       "info",
	}
}

// Subscription returns the name handed to the subscriber: the fully
// qualified path for Pub/Sub, the subject or topic otherwise.
func (c Config) Subscription() string {
	if c.Source != SourcePubSub || strings.Contains(c.SubscriptionID, "/") {
		return c.SubscriptionID
	}
	return domain.SubscriptionPath(c.ProjectID, c.SubscriptionID)
}

// Masked returns a copy safe to log.
func (c Config) Masked() Config {
	if c.ServiceAccount != "" {
		c.ServiceAccount = "*****"
	}
	return c
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	c.Source = strings.ToLower(strings.TrimSpace(c.Source))
	if c.Source == "" {
		c.Source = SourcePubSub
	}
	switch c.Source {
	case SourcePubSub, SourceNATS, SourceKafka:
	default:
		return fmt.Errorf("%w: %w %q", domain.ErrInvalidConfig, domain.ErrUnknownSource, c.Source)
	}

	if c.SubscriptionID == "" {
		return fmt.Errorf("%w: subscription-id is required", domain.ErrInvalidConfig)
	}
	if c.Source == SourcePubSub {
		project, _, err := domain.ParseSubscriptionPath(c.SubscriptionID)
		if err != nil {
			return err
		}
		if project == "" && c.ProjectID == "" {
			return fmt.Errorf("%w: project-id is required", domain.ErrInvalidConfig)
		}
	}
	if c.Source == SourceKafka {
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("%w: kafka-brokers is required", domain.ErrInvalidConfig)
		}
		if c.KafkaGroup == "" {
			return fmt.Errorf("%w: kafka-group is required", domain.ErrInvalidConfig)
		}
	}

	if c.DataType == "" {
		c.DataType = DefaultDataType
	}
	if c.CustomerID == "" {
		return fmt.Errorf("%w: customer-id is required", domain.ErrInvalidConfig)
	}

	// Ensure no trailing slash
	c.IngestURL = strings.TrimSuffix(c.IngestURL, "/")

	if c.ReceiveTimeout <= 0 {
		return fmt.Errorf("%w: receive timeout must be positive", domain.ErrInvalidConfig)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("%w: http timeout must be positive", domain.ErrInvalidConfig)
	}
	if c.BatchBytes <= 0 {
		return fmt.Errorf("%w: batch bytes must be positive", domain.ErrInvalidConfig)
	}
	if c.RequestBytes <= 0 {
		return fmt.Errorf("%w: request bytes must be positive", domain.ErrInvalidConfig)
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log level: %v", domain.ErrInvalidConfig, err)
	}

	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setStrings sets a list from a comma separated string.
func (s *configSetter) setStrings(flag, value string, dst *[]string) {
	if value == "" || s.changed[flag] {
		return
	}
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) > 0 {
		*dst = out
	}
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// ParseBytes parses a byte size such as "500000", "64KB" or "1MB".
// Units are binary: 1KB is 1024 bytes. Zero is rejected.
func ParseBytes(value string) (int, error) {
	var size datasize.ByteSize
	if err := size.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return 0, err
	}
	if size == 0 {
		return 0, fmt.Errorf("%w: size must be positive", domain.ErrInvalidConfig)
	}
	if size.Bytes() > uint64(math.MaxInt) {
		return 0, fmt.Errorf("%w: size %s too large", domain.ErrInvalidConfig, value)
	}
	return int(size.Bytes()), nil
}

// setBytes sets a byte size from string if valid and flag not changed.
func (s *configSetter) setBytes(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	n, err := ParseBytes(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = n
	return nil
}

// ByteSizeValue is a pflag.Value that accepts the same sizes as the file
// and environment layers.
type ByteSizeValue struct {
	dst *int
}

// NewByteSizeValue sets *dst to def and returns a flag value writing to it.
func NewByteSizeValue(def int, dst *int) *ByteSizeValue {
	*dst = def
	return &ByteSizeValue{dst: dst}
}

func (v *ByteSizeValue) Set(s string) error {
	n, err := ParseBytes(s)
	if err != nil {
		return err
	}
	*v.dst = n
	return nil
}

func (v *ByteSizeValue) String() string {
	if v == nil || v.dst == nil {
		return "0"
	}
	return strconv.Itoa(*v.dst)
}

func (v *ByteSizeValue) Type() string { return "bytes" }

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setBoolFromString accepts "true" and "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}

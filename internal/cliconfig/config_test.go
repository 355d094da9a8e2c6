package cliconfig

import (
	"errors"
	"testing"
	"time"

	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/pubship/internal/domain"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Source != SourcePubSub {
		t.Errorf("Source = %v, want %v", cfg.Source, SourcePubSub)
	}
	if cfg.DataType != "LOGS" {
		t.Errorf("DataType = %v, want LOGS", cfg.DataType)
	}
	if cfg.ReceiveTimeout != 5*time.Second {
		t.Errorf("ReceiveTimeout = %v, want 5s", cfg.ReceiveTimeout)
	}
	if cfg.BatchBytes != 500000 {
		t.Errorf("BatchBytes = %v, want 500000", cfg.BatchBytes)
	}
	if cfg.RequestBytes != 1000000 {
		t.Errorf("RequestBytes = %v, want 1000000", cfg.RequestBytes)
	}
	if cfg.HTTPTimeout != 30*time.Second {
		t.Errorf("HTTPTimeout = %v, want 30s", cfg.HTTPTimeout)
	}
}

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.ProjectID = "proj"
	cfg.SubscriptionID = "sub"
	cfg.CustomerID = "cust"
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:   "valid minimal config",
			mutate: func(*Config) {},
		},
		{
			name:    "missing subscription",
			mutate:  func(c *Config) { c.SubscriptionID = "" },
			wantErr: domain.ErrInvalidConfig,
		},
		{
			name:    "missing project for pubsub",
			mutate:  func(c *Config) { c.ProjectID = "" },
			wantErr: domain.ErrInvalidConfig,
		},
		{
			name: "project from full subscription path",
			mutate: func(c *Config) {
				c.ProjectID = ""
				c.SubscriptionID = "projects/p/subscriptions/s"
			},
		},
		{
			name:    "malformed subscription path",
			mutate:  func(c *Config) { c.SubscriptionID = "projects/p/topics/s" },
			wantErr: domain.ErrInvalidConfig,
		},
		{
			name:    "missing customer id",
			mutate:  func(c *Config) { c.CustomerID = "" },
			wantErr: domain.ErrInvalidConfig,
		},
		{
			name:    "unknown source",
			mutate:  func(c *Config) { c.Source = "sqs" },
			wantErr: domain.ErrUnknownSource,
		},
		{
			name: "nats needs no project",
			mutate: func(c *Config) {
				c.Source = "NATS"
				c.ProjectID = ""
			},
		},
		{
			name: "kafka without brokers",
			mutate: func(c *Config) {
				c.Source = SourceKafka
				c.KafkaGroup = "g"
			},
			wantErr: domain.ErrInvalidConfig,
		},
		{
			name: "kafka without group",
			mutate: func(c *Config) {
				c.Source = SourceKafka
				c.KafkaBrokers = []string{"localhost:9092"}
			},
			wantErr: domain.ErrInvalidConfig,
		},
		{
			name:    "zero receive timeout",
			mutate:  func(c *Config) { c.ReceiveTimeout = 0 },
			wantErr: domain.ErrInvalidConfig,
		},
		{
			name:    "zero batch bytes",
			mutate:  func(c *Config) { c.BatchBytes = 0 },
			wantErr: domain.ErrInvalidConfig,
		},
		{
			name:    "zero request bytes",
			mutate:  func(c *Config) { c.RequestBytes = 0 },
			wantErr: domain.ErrInvalidConfig,
		},
		{
			name:    "zero http timeout",
			mutate:  func(c *Config) { c.HTTPTimeout = 0 },
			wantErr: domain.ErrInvalidConfig,
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.LogLevel = "loud" },
			wantErr: domain.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Validate() unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateDerivedDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.Source = " PubSub "
	cfg.DataType = ""
	cfg.LogLevel = ""
	cfg.IngestURL = "http://localhost:9000/"

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}
	if cfg.Source != SourcePubSub {
		t.Errorf("Source = %q, want %q", cfg.Source, SourcePubSub)
	}
	if cfg.DataType != DefaultDataType {
		t.Errorf("DataType = %q, want %q", cfg.DataType, DefaultDataType)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.IngestURL != "http://localhost:9000" {
		t.Errorf("IngestURL = %q, want trailing slash trimmed", cfg.IngestURL)
	}
}

func TestConfig_Subscription(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"pubsub id", Config{Source: SourcePubSub, ProjectID: "p", SubscriptionID: "s"}, "projects/p/subscriptions/s"},
		{"pubsub path", Config{Source: SourcePubSub, ProjectID: "x", SubscriptionID: "projects/p/subscriptions/s"}, "projects/p/subscriptions/s"},
		{"nats subject", Config{Source: SourceNATS, ProjectID: "p", SubscriptionID: "logs.>"}, "logs.>"},
		{"kafka topic", Config{Source: SourceKafka, SubscriptionID: "logs"}, "logs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.Subscription(); got != tt.want {
				t.Errorf("Subscription() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConfig_Masked(t *testing.T) {
	cfg := Config{ServiceAccount: `{"private_key":"secret"}`}
	if got := cfg.Masked().ServiceAccount; got != "*****" {
		t.Errorf("Masked().ServiceAccount = %q, want *****", got)
	}
	if cfg.ServiceAccount == "*****" {
		t.Error("Masked() modified the receiver")
	}
	if got := (Config{}).Masked().ServiceAccount; got != "" {
		t.Errorf("Masked() of empty = %q, want empty", got)
	}
}

func TestConfigSetter_SetBytes(t *testing.T) {
	tests := []struct {
		value   string
		changed bool
		want    int
		wantErr bool
	}{
		{value: "500000", want: 500000},
		{value: "500000B", want: 500000},
		{value: "64KB", want: 64 << 10},
		{value: "1MB", want: 1 << 20},
		{value: "", want: 7},
		{value: "0", wantErr: true},
		{value: "0KB", wantErr: true},
		{value: "1MB", changed: true, want: 7},
		{value: "lots", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			s := newConfigSetter(map[string]bool{"batch-bytes": tt.changed})
			got := 7
			err := s.setBytes("batch-bytes", tt.value, &got)
			if tt.wantErr {
				if err == nil {
					t.Fatal("setBytes() expected error but got nil")
				}
				if got != 7 {
					t.Errorf("setBytes(%q) changed destination to %d on error", tt.value, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("setBytes() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("setBytes(%q) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}

func TestParseBytes_Zero(t *testing.T) {
	_, err := ParseBytes("0")
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Fatalf("ParseBytes(\"0\") error = %v, want ErrInvalidConfig", err)
	}
}

func TestByteSizeValue(t *testing.T) {
	var dst int
	v := NewByteSizeValue(500000, &dst)

	if dst != 500000 {
		t.Fatalf("default = %d, want 500000", dst)
	}
	if v.String() != "500000" {
		t.Errorf("String() = %q, want 500000", v.String())
	}
	if v.Type() != "bytes" {
		t.Errorf("Type() = %q, want bytes", v.Type())
	}

	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "1MB", want: 1 << 20},
		{in: "250000", want: 250000},
		{in: "0", wantErr: true},
		{in: "huge", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			dst = 42
			err := v.Set(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Set() expected error but got nil")
				}
				if dst != 42 {
					t.Errorf("Set(%q) changed destination to %d on error", tt.in, dst)
				}
				return
			}
			if err != nil {
				t.Fatalf("Set() unexpected error: %v", err)
			}
			if dst != tt.want {
				t.Errorf("Set(%q) = %d, want %d", tt.in, dst, tt.want)
			}
		})
	}
}

func TestByteSizeValue_Flag(t *testing.T) {
	var cfg Config
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Var(NewByteSizeValue(500000, &cfg.BatchBytes), "batch-bytes", "")

	if err := fs.Parse([]string{"--batch-bytes", "64KB"}); err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}
	if cfg.BatchBytes != 64<<10 {
		t.Errorf("BatchBytes = %d, want %d", cfg.BatchBytes, 64<<10)
	}
	if err := fs.Parse([]string{"--batch-bytes", "0"}); err == nil {
		t.Error("Parse() with zero size expected error")
	}
}

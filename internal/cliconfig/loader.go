package cliconfig

import (
	"fmt"
	"sync"
)

// Loader rebuilds a Config from its layers: Base (defaults with flag values
// already bound), the config file, then the environment. Flags named in
// Changed are never overridden.
type Loader struct {
	Path    string
	Base    Config
	Changed map[string]bool
}

// Load builds and validates a fresh Config.
// A missing config file is not an error.
func (l Loader) Load() (Config, error) {
	cfg := l.Base
	cfg.KafkaBrokers = append([]string(nil), l.Base.KafkaBrokers...)

	if l.Path != "" && FileExists(l.Path) {
		fc, err := LoadFileConfig(l.Path)
		if err != nil {
			return Config{}, fmt.Errorf("load config: %w", err)
		}
		if err := ApplyFileConfig(&cfg, fc, l.Changed); err != nil {
			return Config{}, err
		}
	}

	if err := ApplyEnvConfig(&cfg, l.Changed); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Holder keeps the active configuration and lets a watcher swap it while
// invocations read it.
type Holder struct {
	mu  sync.RWMutex
	cfg Config
}

func NewHolder(cfg Config) *Holder {
	return &Holder{cfg: cfg}
}

func (h *Holder) Get() Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg
}

func (h *Holder) Set(cfg Config) {
	h.mu.Lock()
	h.cfg = cfg
	h.mu.Unlock()
}

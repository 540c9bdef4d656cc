package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/link-bedside-nurses/dispatch/core/match"
	"github.com/link-bedside-nurses/dispatch/core/metrics"
	"github.com/link-bedside-nurses/dispatch/infra/mqtt"
	"github.com/link-bedside-nurses/dispatch/infra/postgres"
	"github.com/link-bedside-nurses/dispatch/infra/redisstore"
)

// HTTPConfig defines the API server address.
type HTTPConfig struct {
	Addr string `json:"addr"`
}

// SetDefaults applies sane defaults.
func (c *HTTPConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}

type Config struct {
	HTTP     HTTPConfig        `json:"http"`
	Postgres postgres.Config   `json:"postgres"`
	Redis    redisstore.Config `json:"redis"`
	MQTT     mqtt.Config       `json:"mqtt"`
	Match    match.Config      `json:"match"`
	Metrics  metrics.Config    `json:"metrics"`
}

// Load reads the configuration file, applies DISPATCH_* environment
// overrides, defaults and validation.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("DISPATCH_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "dispatch_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.HTTP.SetDefaults()
	cfg.Redis.SetDefaults()
	cfg.MQTT.SetDefaults()
	cfg.Match.SetDefaults()
	cfg.Metrics.SetDefaults()
	if err := cfg.Match.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

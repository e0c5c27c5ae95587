// Package config loads and validates the YAML configuration for an
// overlay node. Grounded on the teacher's pkg/config/config.go: the same
// LoadConfig -> setDefaults -> validate pipeline, the same yaml.v3 tags,
// the same GenerateDefaultConfig/WriteConfigFile pair. WriteConfigFile is
// what `overlaynode route add` uses to rewrite a config file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// NodeConfig is the complete configuration for one overlay node.
type NodeConfig struct {
	Listen         string            `yaml:"listen"`
	Crypto         CryptoConfig      `yaml:"crypto"`
	Mode           string            `yaml:"mode"` // "layer2" or "layer3"
	SwitchTableTTL int               `yaml:"switch_table_ttl_seconds"`
	Routes         []RouteConfig     `yaml:"routes"`
	Transport      TransportConfig   `yaml:"transport"`
	Persistence    PersistenceConfig `yaml:"persistence"`
	Logging        LoggingConfig     `yaml:"logging"`
}

// CryptoConfig selects the AEAD method and its pre-shared passphrase.
type CryptoConfig struct {
	Method     string `yaml:"method"` // "none", "chacha20poly1305", "aes256gcm"
	Passphrase string `yaml:"passphrase"`
}

// RouteConfig seeds a static range into the RoutingTable at startup.
type RouteConfig struct {
	CIDR string `yaml:"cidr"`
	Peer string `yaml:"peer"`
}

// TransportConfig selects and configures the datagram transport.
type TransportConfig struct {
	Kind string `yaml:"kind"` // "udp" or "websocket"
	URL  string `yaml:"url"`  // websocket URL; ignored for udp
}

// PersistenceConfig holds settings for the optional warm-start and audit
// backends in pkg/persistence. It is parsed but not validated, and
// `overlaynode run` does not read it: neither backend is constructed from
// the config file.
type PersistenceConfig struct {
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// RedisConfig configures SwitchTable snapshotting.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// PostgresConfig configures the RoutingTable audit log.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`       // debug, info, warn, error
	OutputFile string `yaml:"output_file"` // empty = stdout
}

// LoadConfig reads, parses, defaults, and validates a NodeConfig from a
// YAML file at path.
func LoadConfig(path string) (*NodeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	var cfg NodeConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return &cfg, nil
}

func (c *NodeConfig) setDefaults() {
	if c.Mode == "" {
		c.Mode = "layer2"
	}
	if c.SwitchTableTTL == 0 {
		c.SwitchTableTTL = 300
	}
	if c.Crypto.Method == "" {
		c.Crypto.Method = "chacha20poly1305"
	}
	if c.Transport.Kind == "" {
		c.Transport.Kind = "udp"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func (c *NodeConfig) validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	switch c.Mode {
	case "layer2", "layer3":
	default:
		return fmt.Errorf("invalid mode %q, want layer2 or layer3", c.Mode)
	}
	switch c.Crypto.Method {
	case "none", "chacha20poly1305", "aes256gcm":
	default:
		return fmt.Errorf("invalid crypto method %q", c.Crypto.Method)
	}
	if c.Crypto.Method != "none" && c.Crypto.Passphrase == "" {
		return fmt.Errorf("crypto.passphrase is required for method %q", c.Crypto.Method)
	}
	switch c.Transport.Kind {
	case "udp":
	case "websocket":
		if c.Transport.URL == "" {
			return fmt.Errorf("transport.url is required for websocket transport")
		}
	default:
		return fmt.Errorf("invalid transport kind %q", c.Transport.Kind)
	}
	for _, r := range c.Routes {
		if r.CIDR == "" || r.Peer == "" {
			return fmt.Errorf("routes entries require both cidr and peer")
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", c.Logging.Level)
	}

	return nil
}

// GenerateDefaultConfig returns a minimal config for a node listening on
// listenAddr, suitable as a starting point for `overlaynode run`.
func GenerateDefaultConfig(listenAddr string) *NodeConfig {
	cfg := &NodeConfig{
		Listen: listenAddr,
		Crypto: CryptoConfig{Method: "chacha20poly1305", Passphrase: "changeme"},
		Mode:   "layer2",
	}
	cfg.setDefaults()
	return cfg
}

// WriteConfigFile marshals cfg as YAML and writes it to path.
func WriteConfigFile(cfg *NodeConfig, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("config: write file: %w", err)
	}
	return nil
}

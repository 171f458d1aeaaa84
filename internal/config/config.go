// Package config loads the coordinator's YAML configuration file, mirroring
// the original's serde_yaml-deserialized Config/DatabaseConfig structs.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DatabaseConfig describes how to reach the Store's backing database.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "sqlite" or "postgres"; sqlite if empty
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	UseSSL   bool   `yaml:"use_ssl"`
}

// Config is the coordinator's top-level configuration.
type Config struct {
	Address string         `yaml:"address"`
	Port    int            `yaml:"port"`
	Socket  string         `yaml:"socket"`
	DB      DatabaseConfig `yaml:"db"`
}

// defaults, matching the original's #[serde(default = ...)] fields.
const (
	defaultAddress = "0.0.0.0"
	defaultPort    = 3144
	defaultSocket  = "/run/notssh/cli.sock"
	defaultDBPort  = 5432
)

// Load reads and parses the YAML config file at path, applying defaults for
// any field the file omits.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: cannot open %s: %w", path, err)
	}
	defer f.Close()

	cfg := Config{
		Address: defaultAddress,
		Port:    defaultPort,
		Socket:  defaultSocket,
		DB: DatabaseConfig{
			Port:   defaultDBPort,
			UseSSL: true,
		},
	}

	dec := yaml.NewDecoder(f)
	dec.KnownFields(false)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: cannot parse %s: %w", path, err)
	}
	if cfg.DB.Driver == "" {
		cfg.DB.Driver = "sqlite"
	}
	return cfg, nil
}

// PostgresDSN builds a libpq-style DSN from the database config, used when
// DB.Driver is "postgres".
func (c DatabaseConfig) PostgresDSN() string {
	sslmode := "require"
	if !c.UseSSL {
		sslmode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.Database, sslmode,
	)
}

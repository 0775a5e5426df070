// Package config holds the daemon's YAML configuration and the per-device
// state store.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type ServerCfg struct {
	Addr string `yaml:"addr"` // e.g. 127.0.0.1:9190
}

type SPIStripCfg struct {
	Enabled  bool   `yaml:"enabled"`
	Port     string `yaml:"port,omitempty"` // empty picks the first SPI port
	LEDCount int    `yaml:"led_count"`
	LUTPath  string `yaml:"lut_path,omitempty"`
}

type Config struct {
	LogLevel string      `yaml:"log_level"`
	StateDir string      `yaml:"state_dir"`
	Server   ServerCfg   `yaml:"server"`
	SPIStrip SPIStripCfg `yaml:"spi_strip,omitempty"`
}

func Default() *Config {
	return &Config{
		LogLevel: "info",
		StateDir: "state",
		Server:   ServerCfg{Addr: "127.0.0.1:9190"},
		SPIStrip: SPIStripCfg{LEDCount: 60},
	}
}

// Load reads path, layering it over the defaults. A missing file is not an
// error; the defaults apply.
func Load(path string) (*Config, error) {
	c := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

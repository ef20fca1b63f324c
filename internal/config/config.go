package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

const (
	envVarPrefix = "BLOCKVOL"
	appName      = "blockvol"
)

// Config holds the CLI's defaults: the image path it opens when none is
// given on the command line, and the size/block-size it creates a fresh
// volume with. CLI flags take precedence over both the YAML file and the
// environment.
type Config struct {
	ImagePath   string `envconfig:"BLOCKVOL_IMAGE_PATH"   yaml:"imagePath"`
	VolumeSize  int64  `envconfig:"BLOCKVOL_VOLUME_SIZE"  yaml:"volumeSize"`
	BlockSize   int64  `envconfig:"BLOCKVOL_BLOCK_SIZE"   yaml:"blockSize"`
	VolumeLabel string `envconfig:"BLOCKVOL_VOLUME_LABEL" yaml:"volumeLabel"`
}

// LoadConfig reads an optional YAML file (path from BLOCKVOL_CONFIG_FILE,
// defaulting to ~/.config/blockvol.yaml) and then overlays environment
// variables onto it.
func LoadConfig() (*Config, error) {
	configFile := os.Getenv(envVarPrefix + "_CONFIG_FILE")
	if configFile == "" {
		configFile = filepath.Join(
			os.Getenv("HOME"),
			".config",
			appName+".yaml",
		)
	}

	c := Config{VolumeSize: 16777216, BlockSize: 4096}
	data, err := os.ReadFile(configFile)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshaling config file: %w", err)
	}

	if err := envconfig.Process(envVarPrefix, &c); err != nil {
		return nil, fmt.Errorf("parsing environment variables: %w", err)
	}

	return &c, nil
}

func (c *Config) Validate() error {
	if c.VolumeSize <= 0 {
		return fmt.Errorf("invalid configuration: volumeSize must be positive, got %d", c.VolumeSize)
	}
	if c.BlockSize <= 0 {
		return fmt.Errorf("invalid configuration: blockSize must be positive, got %d", c.BlockSize)
	}
	if c.VolumeSize%c.BlockSize != 0 {
		return fmt.Errorf("invalid configuration: volumeSize %d is not a multiple of blockSize %d", c.VolumeSize, c.BlockSize)
	}
	return nil
}

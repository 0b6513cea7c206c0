package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
)

// Config is the global ~/.meshchat/config.toml. MESH_PROFILE overrides
// default_profile.
type Config struct {
	DefaultProfile string `toml:"default_profile" envconfig:"PROFILE" validate:"omitempty,profilename"`
}

var profileNameRegexp = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// Load reads the global config at path and applies the environment. A
// missing file yields the environment-only config together with an error
// matching fs.ErrNotExist.
func Load(path string) (*Config, error) {
	var cfg Config
	_, readErr := toml.DecodeFile(path, &cfg)
	if readErr != nil && !errors.Is(readErr, fs.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", path, readErr)
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: default_profile %q", path, cfg.DefaultProfile)
	}
	if readErr != nil {
		return &cfg, fmt.Errorf("read %s: %w", path, readErr)
	}
	return &cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid default_profile %q", cfg.DefaultProfile)
	}
	return writeTOML(path, cfg)
}

// writeTOML encodes v into path with owner-only permissions.
func writeTOML(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(v)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

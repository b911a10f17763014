package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config carries the daemon settings. Everything outside this file reads
// configuration through a loaded Config, never from the environment directly.
type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	NetworkName   string `toml:"NetworkName"`
	LogEnv        string `toml:"LogEnv"`
	// LogFile enables rotated file logging when set; empty means stdout
	// only.
	LogFile string `toml:"LogFile"`
	// RentDeposit is the storage deposit, in native units, charged per
	// allocated record or custody account. Zero selects the default.
	RentDeposit uint64 `toml:"RentDeposit"`
}

const (
	defaultListenAddress = "127.0.0.1:8571"
	defaultNetworkName   = "swap-local"
	defaultDataDirName   = "swapd-data"
)

// Load loads the configuration from the given path, writing a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("config file %s contains unknown keys: %s", path, strings.Join(keys, ", "))
	}

	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = defaultListenAddress
	}
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = defaultNetworkName
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = defaultDataDirName
	}
}

// Validate checks the configuration for structural problems before the daemon
// starts using it.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.ListenAddress); err != nil {
		return fmt.Errorf("config: invalid ListenAddress %q: %w", c.ListenAddress, err)
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("config: DataDir must not be empty")
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const envPrefix = "SQPOOL"

// Load reads the configuration file at path (YAML or JSON, by extension) and
// applies SQPOOL_* environment overrides on top. A missing file yields the
// defaults plus environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.URL != "" {
		fromURL, err := FromURL(cfg.URL)
		if err != nil {
			return nil, err
		}
		fromURL.KeyringService = cfg.KeyringService
		fromURL.MaxOpenConns = cfg.MaxOpenConns
		fromURL.MaxIdleConns = cfg.MaxIdleConns
		fromURL.ConnMaxLifetime = cfg.ConnMaxLifetime
		fromURL.TableOptions = cfg.TableOptions
		fromURL.TLSSkipVerify = fromURL.TLSSkipVerify || cfg.TLSSkipVerify
		fromURL.TLSDisable = fromURL.TLSDisable || cfg.TLSDisable
		if fromURL.Password == "" {
			fromURL.Password = cfg.Password
		}
		cfg = fromURL
	}

	if cfg.Port == 0 {
		cfg.Port = DefaultPort(cfg.Driver)
	}

	if err := cfg.ResolvePassword(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("driver", d.Driver)
	v.SetDefault("host", d.Host)
	v.SetDefault("port", 0)
	v.SetDefault("user", "")
	v.SetDefault("password", "")
	v.SetDefault("database", "")
	v.SetDefault("url", "")
	v.SetDefault("keyring_service", "")
	v.SetDefault("connect_timeout", d.ConnectTimeout)
	v.SetDefault("tls_skip_verify", false)
	v.SetDefault("tls_disable", false)
	v.SetDefault("max_open_conns", d.MaxOpenConns)
	v.SetDefault("max_idle_conns", d.MaxIdleConns)
	v.SetDefault("conn_max_lifetime", 0)
	v.SetDefault("table_options", "")
}

// Save writes the config to path as YAML. The password is never written;
// use KeyringService or SQPOOL_PASSWORD instead.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}

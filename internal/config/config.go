// Package config loads VaporDB's runtime configuration via viper, reading
// VAPORDB_* environment variables and an optional config file into a single
// bindable struct for cmd/vapordb-server. cmd/vapordb-cli does not use it;
// it takes its settings from its own command-line flags.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/tejxsmore/vapordb-go/internal/engine"
)

// Config is VaporDB's full runtime configuration.
type Config struct {
	WALPath            string        `mapstructure:"wal_path"`
	SSTDir             string        `mapstructure:"sst_dir"`
	FlushThreshold     int           `mapstructure:"flush_threshold"`
	TTLInterval        time.Duration `mapstructure:"ttl_interval"`
	CompactionInterval time.Duration `mapstructure:"compaction_interval"`
	NodeID             int64         `mapstructure:"node_id"`

	ListenAddr string `mapstructure:"listen_addr"`
	CORSOrigin string `mapstructure:"cors_origin"`
}

// Engine extracts the subset of Config that internal/engine.New needs.
func (c Config) Engine() engine.Config {
	return engine.Config{
		WALPath:            c.WALPath,
		SSTDir:             c.SSTDir,
		FlushThreshold:     c.FlushThreshold,
		TTLInterval:        c.TTLInterval,
		CompactionInterval: c.CompactionInterval,
		NodeID:             c.NodeID,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("wal_path", "vapordb.wal")
	v.SetDefault("sst_dir", "sstables")
	v.SetDefault("flush_threshold", 1000)
	v.SetDefault("ttl_interval", 100*time.Millisecond)
	v.SetDefault("compaction_interval", 30*time.Second)
	v.SetDefault("node_id", int64(1))
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("cors_origin", "*")
}

// Load reads configuration from (in ascending precedence) built-in
// defaults, an optional config file named vapordb.yaml/.json/.toml found on
// the search path, and VAPORDB_* environment variables.
func Load(configPath string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("vapordb")
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("vapordb")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/vapordb")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return Config{}, fmt.Errorf("config: read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}

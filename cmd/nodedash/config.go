package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultLinesMax           = 100
	defaultTimelineSteps      = 210
	minTimelineSteps          = 10
	defaultTickRate           = 200 * time.Millisecond
	defaultGlobScan           = 5 * time.Second
	defaultCheckpointInterval = 300 * time.Second
)

// cliConfig holds the dashboard's runtime configuration. Every field can
// come from the config file, the NODEDASH_* environment or a flag.
type cliConfig struct {
	LinesMax           int           `mapstructure:"lines-max"`
	TimelineSteps      int           `mapstructure:"timeline-steps"`
	TickRate           time.Duration `mapstructure:"tick-rate"`
	GlobScan           time.Duration `mapstructure:"glob-scan"`
	CheckpointInterval time.Duration `mapstructure:"checkpoint-interval"`
	IgnoreExisting     bool          `mapstructure:"ignore-existing"`
	DebugWindow        bool          `mapstructure:"debug-window"`
	GlobPaths          []string      `mapstructure:"glob-paths"`
}

func loadCLIConfig(configPath string) (cliConfig, error) {
	var cfg cliConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("NODEDASH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("lines-max", defaultLinesMax)
	v.SetDefault("timeline-steps", defaultTimelineSteps)
	v.SetDefault("tick-rate", defaultTickRate)
	v.SetDefault("glob-scan", defaultGlobScan)
	v.SetDefault("checkpoint-interval", defaultCheckpointInterval)
	v.SetDefault("ignore-existing", false)
	v.SetDefault("debug-window", false)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "nodedash", "config.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}

	if cfg.TimelineSteps < minTimelineSteps {
		cfg.TimelineSteps = minTimelineSteps
	}

	return cfg, nil
}

// Package config resolves dtu-env settings from environment variables,
// optional .env files and an optional config file. Settings are only read;
// the tool never writes a config file of its own.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// SourceMode selects where the environment catalog comes from.
type SourceMode string

const (
	// SourceLive lists and fetches definitions from GitHub on every run.
	SourceLive SourceMode = "live"
	// SourceBundled uses the snapshot embedded in the binary.
	SourceBundled SourceMode = "bundled"
	// SourceAuto tries live first and falls back to the bundled snapshot.
	SourceAuto SourceMode = "auto"
)

const (
	envPrefix  = "DTU_ENV"
	configDir  = "dtu-env"
	configName = "config"
)

// Defaults point at the DTU Python support page repository.
const (
	DefaultListingURL = "https://api.github.com/repos/dtudk/pythonsupport-page/contents/docs/_static/environments?ref=main"
	DefaultRawURL     = "https://raw.githubusercontent.com/dtudk/pythonsupport-page/main/docs/_static/environments"
	DefaultTimeout    = 15 * time.Second
	DefaultLogLevel   = "info"
)

// Config is the resolved runtime configuration.
type Config struct {
	Source     SourceMode
	ListingURL string
	RawURL     string
	Token      string
	Timeout    time.Duration
	LogFile    string
	LogLevel   string
	// ConfigFile is the config file that was read, or "" if none was found.
	ConfigFile string
}

// LoadOptions controls where settings are looked up.
// Zero value uses .env/.env.local in the working directory and the user
// config dir.
type LoadOptions struct {
	// EnvFiles are loaded before the environment is read. Missing files are
	// skipped and variables that are already set are never overridden.
	EnvFiles []string
	// ConfigDir overrides the directory searched for config.yaml.
	ConfigDir string
}

// Load resolves configuration in order of precedence:
//
//	Environment (DTU_ENV_*, GITHUB_TOKEN, GH_TOKEN) → .env files → config.yaml → defaults
func Load(opts LoadOptions) (*Config, error) {
	envFiles := opts.EnvFiles
	if envFiles == nil {
		envFiles = []string{".env", ".env.local"}
	}
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("source", string(SourceLive))
	v.SetDefault("listing_url", DefaultListingURL)
	v.SetDefault("raw_url", DefaultRawURL)
	v.SetDefault("timeout", DefaultTimeout)
	v.SetDefault("log_file", "")
	v.SetDefault("log_level", DefaultLogLevel)

	// The token keeps its conventional unprefixed names.
	if err := v.BindEnv("token", "GITHUB_TOKEN", "GH_TOKEN"); err != nil {
		return nil, fmt.Errorf("bind token env: %w", err)
	}

	dir := opts.ConfigDir
	if dir == "" {
		if base, err := os.UserConfigDir(); err == nil {
			dir = filepath.Join(base, configDir)
		}
	}
	if dir != "" {
		v.AddConfigPath(dir)
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	mode, err := ParseSourceMode(v.GetString("source"))
	if err != nil {
		return nil, err
	}

	timeout := v.GetDuration("timeout")
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Config{
		Source:     mode,
		ListingURL: strings.TrimSpace(v.GetString("listing_url")),
		RawURL:     strings.TrimRight(strings.TrimSpace(v.GetString("raw_url")), "/"),
		Token:      strings.TrimSpace(v.GetString("token")),
		Timeout:    timeout,
		LogFile:    strings.TrimSpace(v.GetString("log_file")),
		LogLevel:   strings.ToLower(strings.TrimSpace(v.GetString("log_level"))),
		ConfigFile: v.ConfigFileUsed(),
	}, nil
}

// ParseSourceMode validates a source mode string. Matching is case-insensitive.
func ParseSourceMode(s string) (SourceMode, error) {
	switch m := SourceMode(strings.ToLower(strings.TrimSpace(s))); m {
	case SourceLive, SourceBundled, SourceAuto:
		return m, nil
	case "":
		return SourceLive, nil
	default:
		return "", fmt.Errorf("invalid source %q: want one of %s, %s, %s", s, SourceLive, SourceBundled, SourceAuto)
	}
}

// HasToken reports whether a GitHub token was supplied.
func (c *Config) HasToken() bool {
	return c.Token != ""
}

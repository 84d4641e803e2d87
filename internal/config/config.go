// Package config loads runtime settings.
//
// Sources, later ones winning:
//
//	built-in defaults
//	YAML file named by ECOCYCLE_CONFIG (tunable tables live here)
//	.env file in the working directory (if present)
//	process environment (PORT, DB_PATH, JWT_SECRET, REDIS_ADDR, ...)
//
// Environment variable names are the config keys upper-cased with dots
// replaced by underscores, so `github.client_id` is GITHUB_CLIENT_ID.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"
	// time_zone must resolve in minimal containers without /usr/share/zoneinfo
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/sakif/ecocycle/internal/auth"
	"github.com/sakif/ecocycle/internal/classifier"
	"github.com/sakif/ecocycle/internal/detector/docker"
	redisrepo "github.com/sakif/ecocycle/internal/repository/redis"
	"github.com/sakif/ecocycle/internal/valuation"
)

// FileEnv names the environment variable holding the YAML config path.
const FileEnv = "ECOCYCLE_CONFIG"

type Config struct {
	Port          int           `mapstructure:"port"`
	DBPath        string        `mapstructure:"db_path"`
	TimeZone      string        `mapstructure:"time_zone"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`

	JWTSecret    string        `mapstructure:"jwt_secret"`
	TokenTTL     time.Duration `mapstructure:"token_ttl"`
	CookieSecure bool          `mapstructure:"cookie_secure"`

	Log      LogConfig      `mapstructure:"log"`
	GitHub   GitHubConfig   `mapstructure:"github"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Detector DetectorConfig `mapstructure:"detector"`

	Classifier classifier.Config `mapstructure:"classifier"`
	Valuation  valuation.Tables  `mapstructure:"valuation"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text, json
}

// GitHubConfig enables GitHub login when both client fields are set.
type GitHubConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	CallbackURL  string `mapstructure:"callback_url"`
}

func (g GitHubConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// RedisConfig enables the all-time leaderboard cache when Addr is set.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

// DetectorConfig enables container-based object detection. When FrameDir is
// set the server also runs a sampling loop over the images in it.
type DetectorConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	FrameDir      string        `mapstructure:"frame_dir"`
	FrameInterval time.Duration `mapstructure:"frame_interval"`
	docker.Config `mapstructure:",squash"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:          8080,
		DBPath:        "data/ecocycle.db",
		TimeZone:      "UTC",
		SweepInterval: time.Minute,
		TokenTTL:      auth.DefaultTokenTTL,
		Log:           LogConfig{Level: "info", Format: "text"},
		Redis:         RedisConfig{Key: redisrepo.DefaultKey},
		Detector: DetectorConfig{
			FrameInterval: 500 * time.Millisecond,
			Config:        docker.DefaultConfig(),
		},
		Classifier: classifier.DefaultConfig(),
		Valuation:  valuation.DefaultTables(),
	}
}

// Load reads every source and returns the merged configuration. It does not
// validate; call Validate before starting the server.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit YAML path. An empty path falls back to
// the file named by ECOCYCLE_CONFIG, if any.
func LoadFile(file string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: loading .env: %w", err)
	}
	if file == "" {
		file = os.Getenv(FileEnv)
	}
	return load(viper.New(), file)
}

func load(v *viper.Viper, file string) (*Config, error) {
	cfg := Default()

	// every scalar key needs a default so AutomaticEnv can see it
	v.SetDefault("port", cfg.Port)
	v.SetDefault("db_path", cfg.DBPath)
	v.SetDefault("time_zone", cfg.TimeZone)
	v.SetDefault("sweep_interval", cfg.SweepInterval)
	v.SetDefault("jwt_secret", "")
	v.SetDefault("token_ttl", cfg.TokenTTL)
	v.SetDefault("cookie_secure", false)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("github.client_id", "")
	v.SetDefault("github.client_secret", "")
	v.SetDefault("github.callback_url", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key", cfg.Redis.Key)
	v.SetDefault("detector.enabled", false)
	v.SetDefault("detector.frame_dir", "")
	v.SetDefault("detector.frame_interval", cfg.Detector.FrameInterval)
	v.SetDefault("detector.image", cfg.Detector.Image)
	v.SetDefault("detector.pool_size", cfg.Detector.PoolSize)
	v.SetDefault("detector.timeout", cfg.Detector.Timeout)
	v.SetDefault("detector.skip_pull", false)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", file, err)
		}
	}

	// maps decode into the defaults, so a file can override single entries
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}

	if cfg.GitHub.CallbackURL == "" {
		cfg.GitHub.CallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}
	return &cfg, nil
}

// Validate checks the settings the server cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if len(c.JWTSecret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 16 characters"))
	}
	if c.SweepInterval <= 0 {
		errs = append(errs, errors.New("sweep_interval must be positive"))
	}
	b := c.Classifier.Bands
	if b.Confirm > b.AutoAccept {
		errs = append(errs, fmt.Errorf("classifier bands: confirm %d above auto_accept %d", b.Confirm, b.AutoAccept))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Location resolves TimeZone. Challenge expiries are computed in it.
func (c *Config) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("time_zone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

// NewLogger builds the slog logger described by Log.
func (c *Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return nil, fmt.Errorf("config: log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch c.Log.Format {
	case "", "text", "console":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("config: unknown log format %q", c.Log.Format)
}

// Package config loads service and solver settings from YAML with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"cflp/internal/logging"
	"cflp/internal/opt"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Server   Server         `yaml:"server"`
	Database Database       `yaml:"database"`
	Redis    Redis          `yaml:"redis"`
	Auth     Auth           `yaml:"auth"`
	Webhooks Webhooks       `yaml:"webhooks"`
	Log      logging.Config `yaml:"log"`
	Solver   Solver         `yaml:"solver"`
}

type Server struct {
	Port      string  `yaml:"port"`
	RateRPS   float64 `yaml:"rate_rps"`
	RateBurst int     `yaml:"rate_burst"`
}

type Database struct {
	URL     string `yaml:"url"`
	Migrate bool   `yaml:"migrate"`
}

type Redis struct {
	URL string `yaml:"url"`
}

type Auth struct {
	Mode       string `yaml:"mode"` // dev, hmac or none
	HMACSecret string `yaml:"hmac_secret"`
}

type Webhooks struct {
	MaxAttempts int `yaml:"max_attempts"`
}

// Solver holds the defaults applied when a request leaves a field unset.
type Solver struct {
	Tiers                opt.Catalog `yaml:"tiers"`
	DistanceCostFactor   float64     `yaml:"distance_cost_factor"`
	UtilizationThreshold float64     `yaml:"utilization_threshold"`
	ImprovePasses        int         `yaml:"improve_passes"`
	Metric               string      `yaml:"metric"`
	SolverName           string      `yaml:"solver_name"`
}

func Default() Config {
	return Config{
		Server:   Server{Port: "8080", RateRPS: 5, RateBurst: 10},
		Database: Database{Migrate: true},
		Auth:     Auth{Mode: "dev"},
		Webhooks: Webhooks{MaxAttempts: 5},
		Log:      logging.DefaultConfig(),
		Solver: Solver{
			Tiers:                opt.DefaultCatalog(),
			DistanceCostFactor:   1.0,
			UtilizationThreshold: opt.DefaultUtilizationThreshold,
			ImprovePasses:        1,
			Metric:               "euclidean",
			SolverName:           "heuristic",
		},
	}
}

// Load reads path (optional) over the defaults, then applies the
// environment. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("PORT", &c.Server.Port)
	str("DATABASE_URL", &c.Database.URL)
	str("REDIS_URL", &c.Redis.URL)
	str("AUTH_MODE", &c.Auth.Mode)
	str("AUTH_HMAC_SECRET", &c.Auth.HMACSecret)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	if v, ok := lookup("DB_MIGRATE"); ok {
		c.Database.Migrate = v != "false"
	}
	if v, ok := lookup("RATE_RPS"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: RATE_RPS: %v", ErrInvalidConfig, err)
		}
		c.Server.RateRPS = f
	}
	if v, ok := lookup("RATE_BURST"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: RATE_BURST: %v", ErrInvalidConfig, err)
		}
		c.Server.RateBurst = n
	}
	if v, ok := lookup("WEBHOOK_MAX_ATTEMPTS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: WEBHOOK_MAX_ATTEMPTS: %v", ErrInvalidConfig, err)
		}
		c.Webhooks.MaxAttempts = n
	}
	return nil
}

func (c Config) Validate() error {
	if err := c.Solver.Tiers.Validate(); err != nil {
		return fmt.Errorf("%w: solver.tiers: %v", ErrInvalidConfig, err)
	}
	if len(c.Solver.Tiers) == 0 {
		return fmt.Errorf("%w: solver.tiers is empty", ErrInvalidConfig)
	}
	if c.Solver.DistanceCostFactor <= 0 {
		return fmt.Errorf("%w: solver.distance_cost_factor must be > 0", ErrInvalidConfig)
	}
	if t := c.Solver.UtilizationThreshold; t < 0 || t >= 1 {
		return fmt.Errorf("%w: solver.utilization_threshold must be in [0,1)", ErrInvalidConfig)
	}
	if c.Solver.ImprovePasses < 0 {
		return fmt.Errorf("%w: solver.improve_passes must be >= 0", ErrInvalidConfig)
	}
	switch c.Solver.Metric {
	case "euclidean", "haversine":
	default:
		return fmt.Errorf("%w: solver.metric %q", ErrInvalidConfig, c.Solver.Metric)
	}
	switch c.Auth.Mode {
	case "dev", "none":
	case "hmac":
		if c.Auth.HMACSecret == "" {
			return fmt.Errorf("%w: auth.hmac_secret required for hmac mode", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: auth.mode %q", ErrInvalidConfig, c.Auth.Mode)
	}
	if c.Server.RateRPS < 0 || c.Server.RateBurst < 0 {
		return fmt.Errorf("%w: negative rate limit", ErrInvalidConfig)
	}
	if c.Webhooks.MaxAttempts <= 0 {
		return fmt.Errorf("%w: webhooks.max_attempts must be > 0", ErrInvalidConfig)
	}
	return nil
}

// Options maps the solver section to opt.Options.
func (s Solver) Options() opt.Options {
	return opt.Options{
		UtilizationThreshold: s.UtilizationThreshold,
		ImprovePasses:        s.ImprovePasses,
		SolverName:           s.SolverName,
	}
}

package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
	"go.uber.org/zap/zapcore"

	"github.com/minaorangina/horserace/timeline"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config is read from the environment.
type Config struct {
	Addr           string        `env:"HORSERACE_ADDR,default=:8000"`
	LogLevel       zapcore.Level `env:"HORSERACE_LOG_LEVEL,default=info"`
	DatabaseURL    string        `env:"DATABASE_URL"`
	AutoMigrate    bool          `env:"HORSERACE_AUTO_MIGRATE,default=false"`
	StepDelay      time.Duration `env:"HORSERACE_STEP_DELAY,default=450ms,strict"`
	SettleDelay    time.Duration `env:"HORSERACE_SETTLE_DELAY,default=350ms,strict"`
	DeckSeed       uint64        `env:"HORSERACE_DECK_SEED,default=0,strict"`
	AllowedOrigins []string      `env:"HORSERACE_ALLOWED_ORIGINS,default=*"`
}

// Load decodes the environment into a Config and checks it.
func Load() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.StepDelay <= 0 {
		return fmt.Errorf("%w: HORSERACE_STEP_DELAY must be positive, got %s", ErrInvalidConfig, c.StepDelay)
	}
	if c.SettleDelay <= 0 {
		return fmt.Errorf("%w: HORSERACE_SETTLE_DELAY must be positive, got %s", ErrInvalidConfig, c.SettleDelay)
	}
	if c.Addr == "" {
		return fmt.Errorf("%w: HORSERACE_ADDR is empty", ErrInvalidConfig)
	}
	return nil
}

// Timing is the animation timing the config describes.
func (c Config) Timing() timeline.Timing {
	return timeline.Timing{Step: c.StepDelay, Settle: c.SettleDelay}
}

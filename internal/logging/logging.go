// Package logging wires the process-wide zap logger.
package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logger is the process logger. It is a no-op until Initialize runs.
	Logger = zap.NewNop()

	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// Config selects level, encoder and destination.
type Config struct {
	Level       string `yaml:"level" json:"level"`
	Format      string `yaml:"format" json:"format"` // json or console
	Output      string `yaml:"output" json:"output"` // stdout, stderr or a file path
	Development bool   `yaml:"development" json:"development"`
}

func DefaultConfig() Config {
	return Config{Level: "info", Format: "json", Output: "stderr"}
}

// Initialize replaces Logger according to cfg. An unknown level falls back to info.
func Initialize(cfg Config) error {
	var w zapcore.WriteSyncer
	switch cfg.Output {
	case "", "stderr":
		w = zapcore.AddSync(os.Stderr)
	case "stdout":
		w = zapcore.AddSync(os.Stdout)
	default:
		f, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		w = zapcore.AddSync(f)
	}
	Logger = build(cfg, w)
	return nil
}

// New builds a logger writing to w without touching the global one.
func New(cfg Config, w io.Writer) *zap.Logger {
	return build(cfg, zapcore.AddSync(w))
}

func build(cfg Config, w zapcore.WriteSyncer) *zap.Logger {
	lvl, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	level.SetLevel(lvl)

	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "timestamp"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if cfg.Format == "console" {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(ec)
	} else {
		enc = zapcore.NewJSONEncoder(ec)
	}

	opts := []zap.Option{zap.AddCaller()}
	if cfg.Development {
		opts = append(opts, zap.Development(), zap.AddStacktrace(zapcore.ErrorLevel))
	}
	return zap.New(zapcore.NewCore(enc, w, level), opts...)
}

// SetLevel changes the level of every logger built by this package.
func SetLevel(name string) error {
	lvl, err := zapcore.ParseLevel(name)
	if err != nil {
		return err
	}
	level.SetLevel(lvl)
	return nil
}

// Named returns a child of Logger for a component.
func Named(component string) *zap.Logger { return Logger.Named(component) }

func Sync() { _ = Logger.Sync() }

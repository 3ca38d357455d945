package api

import (
	"errors"
	"log/slog"
	"time"
)

const (
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultReadTimeout       = 60 * time.Second
	// DefaultWriteTimeout covers a registration that waits for ledger confirmation.
	DefaultWriteTimeout     = 90 * time.Second
	DefaultGracefulShutdown = 30 * time.Second
)

// HTTPServerConfig configures the CivicSeal HTTP listener and its companion
// metrics listener. Zero durations are replaced by WithDefaults.
type HTTPServerConfig struct {
	ListenAddr string
	// MetricsAddr enables the Prometheus listener when set.
	MetricsAddr string
	EnablePprof bool

	Log *slog.Logger

	// DrainDuration is how long /readyz reports not-ready before shutdown begins.
	DrainDuration            time.Duration
	GracefulShutdownDuration time.Duration

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
}

// WithDefaults returns a copy with unset timeouts and logger filled in.
func (c HTTPServerConfig) WithDefaults() *HTTPServerConfig {
	if c.Log == nil {
		c.Log = slog.Default()
	}
	if c.GracefulShutdownDuration <= 0 {
		c.GracefulShutdownDuration = DefaultGracefulShutdown
	}
	if c.ReadHeaderTimeout <= 0 {
		c.ReadHeaderTimeout = DefaultReadHeaderTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	return &c
}

func (c *HTTPServerConfig) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("listen address is required")
	}
	if c.MetricsAddr != "" && c.MetricsAddr == c.ListenAddr {
		return errors.New("metrics address must differ from the listen address")
	}
	if c.DrainDuration < 0 {
		return errors.New("drain duration must not be negative")
	}
	return nil
}

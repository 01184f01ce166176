package config

import (
	"fmt"
	"os"
	"strconv"
)

// ServerConfig holds configuration for the HTTP render server.
type ServerConfig struct {
	Port        int
	MaxUploadMB int
	Workers     int
	DefaultDPI  float64
	MaxPixels   int
}

// NewServerConfig creates a server configuration from environment variables.
// It reads PAGERENDER_PORT (default: 8080), PAGERENDER_MAX_UPLOAD_MB (default: 32),
// PAGERENDER_WORKERS (default: 0, meaning one per CPU), PAGERENDER_DEFAULT_DPI
// (default: 72) and PAGERENDER_MAX_PIXELS (default: 0, meaning the renderer default).
func NewServerConfig() (*ServerConfig, error) {
	port, err := envInt("PAGERENDER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	maxUpload, err := envInt("PAGERENDER_MAX_UPLOAD_MB", 32)
	if err != nil {
		return nil, err
	}
	workers, err := envInt("PAGERENDER_WORKERS", 0)
	if err != nil {
		return nil, err
	}
	maxPixels, err := envInt("PAGERENDER_MAX_PIXELS", 0)
	if err != nil {
		return nil, err
	}

	dpi := 72.0
	if v := os.Getenv("PAGERENDER_DEFAULT_DPI"); v != "" {
		dpi, err = strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid PAGERENDER_DEFAULT_DPI: %v", err)
		}
	}

	config := &ServerConfig{
		Port:        port,
		MaxUploadMB: maxUpload,
		Workers:     workers,
		DefaultDPI:  dpi,
		MaxPixels:   maxPixels,
	}

	if err := config.normalize(); err != nil {
		return nil, err
	}

	return config, nil
}

// MaxUploadBytes returns the request body limit in bytes.
func (c *ServerConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// normalize validates the configuration.
func (c *ServerConfig) normalize() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PAGERENDER_PORT must be between 1 and 65535, got: %d", c.Port)
	}
	if c.MaxUploadMB < 1 {
		return fmt.Errorf("PAGERENDER_MAX_UPLOAD_MB must be at least 1, got: %d", c.MaxUploadMB)
	}
	if c.Workers < 0 {
		return fmt.Errorf("PAGERENDER_WORKERS cannot be negative, got: %d", c.Workers)
	}
	if c.DefaultDPI <= 0 {
		return fmt.Errorf("PAGERENDER_DEFAULT_DPI must be positive, got: %g", c.DefaultDPI)
	}
	if c.MaxPixels < 0 {
		return fmt.Errorf("PAGERENDER_MAX_PIXELS cannot be negative, got: %d", c.MaxPixels)
	}
	return nil
}

func envInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	return n, nil
}

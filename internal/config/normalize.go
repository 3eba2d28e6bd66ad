package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeCanvas(); err != nil {
		return err
	}
	if err := c.normalizeMirror(); err != nil {
		return err
	}
	c.normalizeHTTP()
	if err := c.normalizeLedger(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

// normalizeCanvas resolves the bearer token: an explicit token wins, then the
// token file's contents, then the CANVAS_TOKEN environment variable. The base
// URL loses its trailing slash so callers can join paths uniformly.
func (c *Config) normalizeCanvas() error {
	c.Canvas.BaseURL = strings.TrimRight(strings.TrimSpace(c.Canvas.BaseURL), "/")
	if c.Canvas.BaseURL == "" {
		if value, ok := os.LookupEnv("CANVAS_BASE_URL"); ok {
			c.Canvas.BaseURL = strings.TrimRight(strings.TrimSpace(value), "/")
		}
	}

	c.Canvas.Token = strings.TrimSpace(c.Canvas.Token)
	c.Canvas.TokenFile = strings.TrimSpace(c.Canvas.TokenFile)
	if c.Canvas.TokenFile != "" {
		expanded, err := expandPath(c.Canvas.TokenFile)
		if err != nil {
			return fmt.Errorf("canvas.token_file: %w", err)
		}
		c.Canvas.TokenFile = expanded
	}
	if c.Canvas.Token == "" && c.Canvas.TokenFile != "" {
		data, err := os.ReadFile(c.Canvas.TokenFile)
		if err != nil {
			return fmt.Errorf("read canvas.token_file: %w", err)
		}
		c.Canvas.Token = strings.TrimSpace(string(data))
	}
	if c.Canvas.Token == "" {
		if value, ok := os.LookupEnv("CANVAS_TOKEN"); ok {
			c.Canvas.Token = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeMirror() error {
	if strings.TrimSpace(c.Mirror.Destination) == "" {
		c.Mirror.Destination = defaultDestination
	}
	expanded, err := expandPath(c.Mirror.Destination)
	if err != nil {
		return fmt.Errorf("mirror.destination: %w", err)
	}
	c.Mirror.Destination = expanded
	return nil
}

func (c *Config) normalizeHTTP() {
	if c.HTTP.Concurrency == 0 {
		c.HTTP.Concurrency = defaultConcurrency
	}
	if c.HTTP.RequestTimeout == 0 {
		c.HTTP.RequestTimeout = defaultRequestTimeout
	}
}

func (c *Config) normalizeLedger() error {
	if strings.TrimSpace(c.Ledger.Path) == "" {
		c.Ledger.Path = defaultLedgerPath
	}
	expanded, err := expandPath(c.Ledger.Path)
	if err != nil {
		return fmt.Errorf("ledger.path: %w", err)
	}
	c.Ledger.Path = expanded
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

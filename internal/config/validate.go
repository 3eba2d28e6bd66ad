package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCanvas(); err != nil {
		return err
	}
	if err := c.validateHTTP(); err != nil {
		return err
	}
	if err := c.validateVideos(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateCanvas() error {
	if c.Canvas.BaseURL == "" {
		return errors.New("canvas.base_url is required. Set CANVAS_BASE_URL or edit the config file (create with 'canvas-downloader config init')")
	}
	parsed, err := url.Parse(c.Canvas.BaseURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("canvas.base_url must be an http(s) URL, got %q", c.Canvas.BaseURL)
	}
	if c.Canvas.Token == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/canvas-downloader/config.toml"
		}
		return fmt.Errorf("canvas.token is required. Set CANVAS_TOKEN, point canvas.token_file at a token, or edit %s", defaultPath)
	}
	return nil
}

func (c *Config) validateHTTP() error {
	if c.HTTP.Concurrency < 1 {
		return errors.New("http.concurrency must be at least 1")
	}
	if c.HTTP.RequestTimeout < 1 {
		return errors.New("http.request_timeout must be at least 1 second")
	}
	if c.HTTP.Retries < 0 {
		return errors.New("http.retries must not be negative")
	}
	return nil
}

func (c *Config) validateVideos() error {
	if !c.Videos.Enabled {
		return nil
	}
	if c.Videos.ExternalToolID < 1 {
		return errors.New("videos.external_tool_id must be set when videos.enabled is true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

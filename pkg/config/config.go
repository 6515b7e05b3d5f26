// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/user/framecast/pkg/controller"
	"github.com/user/framecast/pkg/ports"
)

// Config represents the full configuration for framecast.
type Config struct {
	// Server
	ListenAddr string `yaml:"listen_addr"`

	// Paths
	StagingRoot string `yaml:"staging_root"`
	OutputDir   string `yaml:"output_dir"`

	// Capture
	PoolSize       int     `yaml:"pool_size"`
	FPS            float64 `yaml:"fps"`
	DurationMs     int     `yaml:"duration_ms"`
	JobBudgetMs    int     `yaml:"job_budget_ms"`
	MaxRetries     int     `yaml:"max_retries"`
	RetryBackoffMs int     `yaml:"retry_backoff_ms"`

	// Retention
	RetentionMs   int    `yaml:"retention_ms"`
	SweepSchedule string `yaml:"sweep_schedule"`

	// Encoding
	Quality int `yaml:"quality"`
	Bitrate int `yaml:"bitrate"`

	// Browser
	Driver            string            `yaml:"driver"` // chromedp or playwright
	Headless          bool              `yaml:"headless"`
	ChromePath        string            `yaml:"chrome_path"`
	UserAgent         string            `yaml:"user_agent"`
	Headers           map[string]string `yaml:"headers"`
	ViewportWidth     int               `yaml:"viewport_width"`
	ViewportHeight    int               `yaml:"viewport_height"`
	IgnoreHTTPSErrors bool              `yaml:"ignore_https_errors"`
	ProxyServer       string            `yaml:"proxy_server"`

	// Logging
	LogLevel string `yaml:"log_level"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		ListenAddr: ":8080",

		StagingRoot: "frames",
		OutputDir:   "artifacts",

		PoolSize:       2,
		FPS:            25.0,
		DurationMs:     10000,
		JobBudgetMs:    120000,
		MaxRetries:     3,
		RetryBackoffMs: 50,

		RetentionMs:   15 * 60 * 1000,
		SweepSchedule: "@every 1m",

		Quality: 30,

		Driver:         "chromedp",
		Headless:       true,
		ViewportWidth:  1280,
		ViewportHeight: 720,

		LogLevel: "info",
	}
}

// LoadFromFile loads configuration from a YAML file over the defaults.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overlays environment variables onto the config. PORT follows the
// platform convention; everything else is FRAMECAST_-prefixed.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.ListenAddr = ":" + v
	}
	if v := os.Getenv("FRAMECAST_STAGING_ROOT"); v != "" {
		c.StagingRoot = v
	}
	if v := os.Getenv("FRAMECAST_OUTPUT_DIR"); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv("FRAMECAST_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.PoolSize = n
		}
	}
	if v := os.Getenv("FRAMECAST_DRIVER"); v != "" {
		c.Driver = v
	}
	if v := os.Getenv("CHROME_PATH"); v != "" {
		c.ChromePath = v
	}
	if v := os.Getenv("FRAMECAST_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// ToControllerConfig converts Config to controller.Config.
func (c Config) ToControllerConfig() controller.Config {
	return controller.Config{
		StagingRoot:     c.StagingRoot,
		OutputDir:       c.OutputDir,
		PoolSize:        c.PoolSize,
		DefaultFPS:      c.FPS,
		DefaultDuration: time.Duration(c.DurationMs) * time.Millisecond,
		DefaultBudget:   time.Duration(c.JobBudgetMs) * time.Millisecond,
		Retention:       time.Duration(c.RetentionMs) * time.Millisecond,
		SweepSchedule:   c.SweepSchedule,
		Quality:         c.Quality,
		Bitrate:         c.Bitrate,
		MaxRetries:      c.MaxRetries,
		RetryBackoff:    time.Duration(c.RetryBackoffMs) * time.Millisecond,
		Browser: ports.BrowserOptions{
			Headless:          c.Headless,
			ChromePath:        c.ChromePath,
			UserAgent:         c.UserAgent,
			Headers:           c.Headers,
			ViewportWidth:     c.ViewportWidth,
			ViewportHeight:    c.ViewportHeight,
			IgnoreHTTPSErrors: c.IgnoreHTTPSErrors,
			ProxyServer:       c.ProxyServer,
			Incognito:         true,
		},
	}
}

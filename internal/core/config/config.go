package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config represents the top-level application config plus resolved durations.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Queue         QueueConfig         `koanf:"queue"`
	Breaker       BreakerConfig       `koanf:"breaker"`
	Policy        PolicyConfig        `koanf:"policy"`
	Notifications NotificationsConfig `koanf:"notifications"`
	Telemetry     TelemetryConfig     `koanf:"telemetry"`

	// Resolved is populated by Load after validation.
	Resolved ResolvedConfig `koanf:"-"`
}

type ServerConfig struct {
	Port          int    `koanf:"port"`
	Host          string `koanf:"host"`
	MaxBodySizeMB int    `koanf:"max_body_size_mb"`
	Mode          string `koanf:"mode"` // debug | release
}

type QueueConfig struct {
	Capacity  int `koanf:"capacity"`
	Consumers int `koanf:"consumers"`
}

type BreakerConfig struct {
	Window          string  `koanf:"window"`   // parsed and validated on startup
	Interval        string  `koanf:"interval"` // parsed and validated on startup
	DenialThreshold float64 `koanf:"denial_threshold"`
}

type PolicyConfig struct {
	// Path points at a policy YAML file; empty means the built-in default
	// policy.
	Path string `koanf:"path"`
}

type NotificationsConfig struct {
	BufferSize  int    `koanf:"buffer_size"`
	SendTimeout string `koanf:"send_timeout"` // parsed and validated on startup

	// Subscribers maps a notification event name to webhook URLs.
	Subscribers map[string][]string `koanf:"subscribers"`
}

type TelemetryConfig struct {
	Environment string `koanf:"environment"`
}

// ResolvedConfig carries durations parsed out of their validated string form.
type ResolvedConfig struct {
	BreakerWindow       time.Duration
	BreakerInterval     time.Duration
	NotificationTimeout time.Duration
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.MaxBodySizeMB <= 0 {
		return fmt.Errorf("server.max_body_size_mb must be > 0")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	if c.Queue.Capacity <= 0 {
		return fmt.Errorf("queue.capacity must be > 0")
	}
	if c.Queue.Consumers <= 0 {
		return fmt.Errorf("queue.consumers must be > 0")
	}

	window, err := time.ParseDuration(c.Breaker.Window)
	if err != nil {
		return fmt.Errorf("invalid breaker.window %q: %w", c.Breaker.Window, err)
	}
	if window <= 0 {
		return fmt.Errorf("breaker.window must be > 0")
	}
	interval, err := time.ParseDuration(c.Breaker.Interval)
	if err != nil {
		return fmt.Errorf("invalid breaker.interval %q: %w", c.Breaker.Interval, err)
	}
	if interval <= 0 {
		return fmt.Errorf("breaker.interval must be > 0")
	}
	if c.Breaker.DenialThreshold <= 0 || c.Breaker.DenialThreshold >= 1 {
		return fmt.Errorf("breaker.denial_threshold must be in (0, 1), got %v", c.Breaker.DenialThreshold)
	}

	if c.Policy.Path != "" {
		if _, err := os.Stat(c.Policy.Path); err != nil {
			return fmt.Errorf("policy.path %q is not accessible: %w", c.Policy.Path, err)
		}
	}

	if c.Notifications.BufferSize <= 0 {
		return fmt.Errorf("notifications.buffer_size must be > 0")
	}
	sendTimeout, err := time.ParseDuration(c.Notifications.SendTimeout)
	if err != nil {
		return fmt.Errorf("invalid notifications.send_timeout %q: %w", c.Notifications.SendTimeout, err)
	}
	if sendTimeout <= 0 {
		return fmt.Errorf("notifications.send_timeout must be > 0")
	}
	for eventName, urls := range c.Notifications.Subscribers {
		if strings.TrimSpace(eventName) == "" {
			return fmt.Errorf("notifications.subscribers contains an empty event name")
		}
		for _, u := range urls {
			if strings.TrimSpace(u) == "" {
				return fmt.Errorf("notifications.subscribers[%s] contains an empty URL", eventName)
			}
		}
	}

	return nil
}

// Load parses config from file + env, validates it, then resolves the
// duration-valued settings.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":                8080,
		"server.host":                "0.0.0.0",
		"server.max_body_size_mb":    1,
		"server.mode":                "release",
		"queue.capacity":             1024,
		"queue.consumers":            3,
		"breaker.window":             "10m",
		"breaker.interval":           "15s",
		"breaker.denial_threshold":   0.05,
		"policy.path":                "",
		"notifications.buffer_size":  256,
		"notifications.send_timeout": "5s",
		"telemetry.environment":      "dev",
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("VERDICT_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "VERDICT_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Validate guarantees these parse.
	window, _ := time.ParseDuration(cfg.Breaker.Window)
	interval, _ := time.ParseDuration(cfg.Breaker.Interval)
	sendTimeout, _ := time.ParseDuration(cfg.Notifications.SendTimeout)
	cfg.Resolved = ResolvedConfig{
		BreakerWindow:       window,
		BreakerInterval:     interval,
		NotificationTimeout: sendTimeout,
	}

	return &cfg, nil
}

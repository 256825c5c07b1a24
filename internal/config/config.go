// Package config loads runtime settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every tunable of the gesture server.
type Config struct {
	Addr      string
	StaticDir string

	// DBPath enables the sqlite store when non-empty.
	DBPath string

	// RedisURL enables the cross-instance relay when non-empty.
	RedisURL     string
	RedisChannel string

	LogLevel string
	LogFile  string

	Tray bool

	// PluginDir holds action plugins. Empty means ~/.gesturecast/plugins.
	PluginDir     string
	PluginTimeout time.Duration

	// MediaPipeScript points at the hand tracker service. Empty means search
	// the default locations.
	MediaPipeScript string
	MaxHands        int

	// Classifier tuning.
	PinchThreshold  float64
	ClickThreshold  float64
	SwipeThreshold  float64
	ZoomThreshold   float64
	MotionThreshold float64

	// Debounce windows for the frame path and the label path.
	ClassifierDebounce time.Duration
	DispatchDebounce   time.Duration

	// Per-connection inbound limits.
	MaxMessagesPerSecond float64
	MessageBurst         int
	MaxMessageBytes      int64
	WriteTimeout         time.Duration
}

// Default returns the configuration used when no variables are set.
func Default() Config {
	return Config{
		Addr:                 ":8080",
		RedisChannel:         "gesturecast:events",
		LogLevel:             "info",
		MaxHands:             2,
		PinchThreshold:       0.05,
		ClickThreshold:       0.03,
		SwipeThreshold:       0.08,
		ZoomThreshold:        0.02,
		MotionThreshold:      0.2,
		ClassifierDebounce:   400 * time.Millisecond,
		DispatchDebounce:     600 * time.Millisecond,
		MaxMessagesPerSecond: 30,
		MessageBurst:         10,
		MaxMessageBytes:      2 << 20,
		WriteTimeout:         5 * time.Second,
		PluginTimeout:        5 * time.Second,
	}
}

// Load reads envFile (if it exists) into the process environment and then
// builds a Config from the environment. Variables already set win over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables on top of Default.
func FromEnv() (Config, error) {
	cfg := Default()
	p := parser{}

	cfg.Addr = envOr("ADDR", cfg.Addr)
	cfg.StaticDir = envOr("STATIC_DIR", "")
	cfg.DBPath = envOr("DB_PATH", "")
	cfg.RedisURL = envOr("REDIS_URL", "")
	cfg.RedisChannel = envOr("REDIS_CHANNEL", cfg.RedisChannel)
	cfg.LogLevel = envOr("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFile = envOr("LOG_FILE", "")
	cfg.MediaPipeScript = envOr("MEDIAPIPE_SCRIPT", "")
	cfg.PluginDir = envOr("PLUGIN_DIR", "")

	cfg.Tray = p.bool("TRAY", cfg.Tray)
	cfg.MaxHands = p.int("MAX_HANDS", cfg.MaxHands)
	cfg.PinchThreshold = p.float("PINCH_THRESHOLD", cfg.PinchThreshold)
	cfg.ClickThreshold = p.float("CLICK_THRESHOLD", cfg.ClickThreshold)
	cfg.SwipeThreshold = p.float("SWIPE_THRESHOLD", cfg.SwipeThreshold)
	cfg.ZoomThreshold = p.float("ZOOM_THRESHOLD", cfg.ZoomThreshold)
	cfg.MotionThreshold = p.float("MOTION_THRESHOLD", cfg.MotionThreshold)
	cfg.ClassifierDebounce = p.duration("CLASSIFIER_DEBOUNCE", cfg.ClassifierDebounce)
	cfg.DispatchDebounce = p.duration("DISPATCH_DEBOUNCE", cfg.DispatchDebounce)
	cfg.MaxMessagesPerSecond = p.float("WS_MAX_MESSAGES_PER_SECOND", cfg.MaxMessagesPerSecond)
	cfg.MessageBurst = p.int("WS_MESSAGE_BURST", cfg.MessageBurst)
	cfg.MaxMessageBytes = int64(p.int("WS_MAX_MESSAGE_BYTES", int(cfg.MaxMessageBytes)))
	cfg.WriteTimeout = p.duration("WS_WRITE_TIMEOUT", cfg.WriteTimeout)
	cfg.PluginTimeout = p.duration("PLUGIN_TIMEOUT", cfg.PluginTimeout)

	if p.err != nil {
		return Config{}, p.err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first setting that is out of range.
func (c Config) Validate() error {
	thresholds := []struct {
		name  string
		value float64
	}{
		{"PINCH_THRESHOLD", c.PinchThreshold},
		{"CLICK_THRESHOLD", c.ClickThreshold},
		{"SWIPE_THRESHOLD", c.SwipeThreshold},
		{"ZOOM_THRESHOLD", c.ZoomThreshold},
		{"MOTION_THRESHOLD", c.MotionThreshold},
	}
	for _, t := range thresholds {
		if t.value <= 0 || t.value >= 1 {
			return fmt.Errorf("%s must be in (0, 1), got %v", t.name, t.value)
		}
	}
	if c.ClassifierDebounce < 0 {
		return fmt.Errorf("CLASSIFIER_DEBOUNCE must be >= 0")
	}
	if c.DispatchDebounce < 0 {
		return fmt.Errorf("DISPATCH_DEBOUNCE must be >= 0")
	}
	if c.MaxHands < 1 || c.MaxHands > 2 {
		return fmt.Errorf("MAX_HANDS must be 1 or 2, got %d", c.MaxHands)
	}
	if c.MaxMessagesPerSecond <= 0 {
		return fmt.Errorf("WS_MAX_MESSAGES_PER_SECOND must be > 0")
	}
	if c.MessageBurst <= 0 {
		return fmt.Errorf("WS_MESSAGE_BURST must be > 0")
	}
	if c.MaxMessageBytes <= 0 {
		return fmt.Errorf("WS_MAX_MESSAGE_BYTES must be > 0")
	}
	if c.PluginTimeout <= 0 {
		return fmt.Errorf("PLUGIN_TIMEOUT must be > 0")
	}
	return nil
}

// DataDir returns ~/.gesturecast, creating it if needed.
func DataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	dir := filepath.Join(homeDir, ".gesturecast")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return dir, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

// parser remembers the first malformed variable so FromEnv can report it.
type parser struct {
	err error
}

func (p *parser) fail(key, raw string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s=%q: %w", key, raw, err)
	}
}

func (p *parser) int(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return n
}

func (p *parser) float(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return f
}

func (p *parser) bool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return b
}

// duration accepts Go duration strings ("400ms") or bare integers as milliseconds.
func (p *parser) duration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if ms, err := strconv.Atoi(raw); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(key, raw, err)
		return def
	}
	return d
}

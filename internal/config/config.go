package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP     HTTPConfig
	Upstream UpstreamConfig
	Layout   LayoutConfig
	Graph    GraphConfig
	Logging  LoggingConfig
	// StyleFile optionally points at a TOML file with render style overrides.
	StyleFile string
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Host              string
	Port              int
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	AllowedOriginsCSV string
}

// UpstreamConfig describes the analytics service the gateway fronts.
type UpstreamConfig struct {
	BaseURL       string
	Timeout       time.Duration
	RatePerSecond float64 // 0 disables client-side throttling
	Burst         int
}

// LayoutConfig holds the tunables of the force layout that operators may override.
type LayoutConfig struct {
	Width    float64
	Height   float64
	MaxTicks int
	Epsilon  float64
	Seed     int64
	Workers  int
}

// GraphConfig describes connectivity to the graph database holding stored rings.
type GraphConfig struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string
	Format        string // text|json
	IncludeCaller bool
	File          string
	FileMaxSizeMB int
	FileBackups   int
	FileMaxAge    int
}

const (
	defaultHost             = "0.0.0.0"
	defaultPort             = 8080
	defaultReadTimeout      = 10 * time.Second
	defaultWriteTimeout     = 15 * time.Second
	defaultIdleTimeout      = 60 * time.Second
	defaultShutdownTimeout  = 10 * time.Second
	defaultUpstreamURL      = "http://localhost:5000"
	defaultUpstreamTimeout  = 5 * time.Second
	defaultLayoutWidth      = 800
	defaultLayoutHeight     = 600
	defaultLayoutMaxTicks   = 100
	defaultLayoutEpsilon    = 0.01
	defaultLayoutWorkers    = 4
	defaultLoggingLevel     = "info"
	defaultLoggingFormat    = "text"
	defaultLogFileMaxSizeMB = 50
	defaultLogFileBackups   = 3
	defaultLogFileMaxAge    = 14
	defaultGraphMaxSessions = 10
)

// Load reads configuration from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		HTTP: HTTPConfig{
			Host:              valueOrDefault("SERVER_HOST", defaultHost),
			ReadTimeout:       defaultReadTimeout,
			WriteTimeout:      defaultWriteTimeout,
			IdleTimeout:       defaultIdleTimeout,
			ShutdownTimeout:   defaultShutdownTimeout,
			AllowedOriginsCSV: os.Getenv("SERVER_ALLOWED_ORIGINS"),
		},
		Upstream: UpstreamConfig{
			BaseURL: valueOrDefault("ANALYTICS_SERVICE_URL", defaultUpstreamURL),
			Timeout: defaultUpstreamTimeout,
			Burst:   parseIntWithDefault("ANALYTICS_BURST", 1),
		},
		Layout: LayoutConfig{
			Width:    parseFloatWithDefault("LAYOUT_WIDTH", defaultLayoutWidth),
			Height:   parseFloatWithDefault("LAYOUT_HEIGHT", defaultLayoutHeight),
			MaxTicks: parseIntWithDefault("LAYOUT_MAX_TICKS", defaultLayoutMaxTicks),
			Epsilon:  parseFloatWithDefault("LAYOUT_EPSILON", defaultLayoutEpsilon),
			Seed:     int64(parseIntWithDefault("LAYOUT_SEED", 0)),
			Workers:  parseIntWithDefault("LAYOUT_WORKERS", defaultLayoutWorkers),
		},
		Logging: LoggingConfig{
			Level:         valueOrDefault("LOG_LEVEL", defaultLoggingLevel),
			Format:        valueOrDefault("LOG_FORMAT", defaultLoggingFormat),
			IncludeCaller: parseBoolWithDefault("LOG_INCLUDE_CALLER", false),
			File:          os.Getenv("LOG_FILE"),
			FileMaxSizeMB: parseIntWithDefault("LOG_FILE_MAX_SIZE_MB", defaultLogFileMaxSizeMB),
			FileBackups:   parseIntWithDefault("LOG_FILE_MAX_BACKUPS", defaultLogFileBackups),
			FileMaxAge:    parseIntWithDefault("LOG_FILE_MAX_AGE_DAYS", defaultLogFileMaxAge),
		},
		Graph: GraphConfig{
			URI:            os.Getenv("GRAPH_URI"),
			Database:       valueOrDefault("GRAPH_DATABASE", ""),
			Username:       os.Getenv("GRAPH_USERNAME"),
			Password:       os.Getenv("GRAPH_PASSWORD"),
			MaxConnections: parseIntWithDefault("GRAPH_MAX_CONNECTIONS", defaultGraphMaxSessions),
		},
		StyleFile: os.Getenv("STYLE_FILE"),
	}

	port, err := parsePort("SERVER_PORT", defaultPort)
	if err != nil {
		return Config{}, err
	}
	cfg.HTTP.Port = port

	durations := []struct {
		key    string
		target *time.Duration
	}{
		{"SERVER_READ_TIMEOUT", &cfg.HTTP.ReadTimeout},
		{"SERVER_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout},
		{"SERVER_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout},
		{"SERVER_SHUTDOWN_TIMEOUT", &cfg.HTTP.ShutdownTimeout},
		{"ANALYTICS_TIMEOUT", &cfg.Upstream.Timeout},
	}
	for _, d := range durations {
		if err := parseDuration(d.key, d.target); err != nil {
			return Config{}, err
		}
	}

	if v := os.Getenv("ANALYTICS_RATE_LIMIT"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil || rps < 0 {
			return Config{}, fmt.Errorf("invalid ANALYTICS_RATE_LIMIT value %q", v)
		}
		cfg.Upstream.RatePerSecond = rps
	}

	if cfg.Layout.MaxTicks <= 0 {
		return Config{}, fmt.Errorf("LAYOUT_MAX_TICKS must be positive, got %d", cfg.Layout.MaxTicks)
	}
	if cfg.Layout.Width <= 0 || cfg.Layout.Height <= 0 {
		return Config{}, fmt.Errorf("layout canvas %gx%g is not positive", cfg.Layout.Width, cfg.Layout.Height)
	}

	return cfg, nil
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolWithDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		val, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return val
	}
	return fallback
}

func parseIntWithDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			return val
		}
	}
	return fallback
}

func parseFloatWithDefault(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.ParseFloat(v, 64); err == nil {
			return val
		}
	}
	return fallback
}

func parseDuration(key string, target *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*target = d
	return nil
}

func parsePort(key string, fallback int) (int, error) {
	if v := os.Getenv(key); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
		}
		if port <= 0 || port > 65535 {
			return 0, fmt.Errorf("port %d is out of range", port)
		}
		return port, nil
	}
	return fallback, nil
}

// AllowedOrigins splits AllowedOriginsCSV, dropping blanks.
func (c HTTPConfig) AllowedOrigins() []string {
	if c.AllowedOriginsCSV == "" {
		return nil
	}
	var origins []string
	for _, part := range strings.Split(c.AllowedOriginsCSV, ",") {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		origins = append(origins, origin)
	}
	return origins
}

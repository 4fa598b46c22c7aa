package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Default configuration values
const (
	DefaultPort            = "3001"
	DefaultMaxRoomMessages = 500
	DefaultSendBuffer      = 256
	DefaultMaxMessageSize  = 64 * 1024 // large enough for SDP offers
	DefaultPongWait        = 60 * time.Second
	DefaultWriteWait       = 10 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
	DefaultArchiveQueue    = 1024
)

// DefaultCORSOrigins are the local front-end dev servers.
var DefaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:8081",
	"http://localhost:5173",
}

// Config holds application configuration
type Config struct {
	Port        string
	CORSOrigins []string
	LogLevel    string

	// MaxRoomMessages caps each room's chat log. Zero keeps it unbounded.
	MaxRoomMessages int

	WebSocket WebSocketConfig
	Archive   ArchiveConfig
	Database  DatabaseConfig

	ShutdownTimeout time.Duration
}

// WebSocketConfig tunes the per-connection pumps.
type WebSocketConfig struct {
	SendBuffer     int
	MaxMessageSize int64
	PongWait       time.Duration
	WriteWait      time.Duration
}

// ArchiveConfig controls the chat transcript archive.
type ArchiveConfig struct {
	Enabled   bool
	QueueSize int
}

// DatabaseConfig is the Postgres connection used by the archive.
type DatabaseConfig struct {
	Host     string
	User     string
	Password string
	Name     string
	Port     string
	SSLMode  string
}

// DSN builds a libpq style connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode)
}

// Load reads configuration from the environment, falling back to defaults.
// Call godotenv.Load first if a .env file should be honoured.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", DefaultPort),
		CORSOrigins: DefaultCORSOrigins,
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASS", "postgres"),
			Name:     getEnv("DB_NAME", "teleconsult"),
			Port:     getEnv("DB_PORT", "5432"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
	}

	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}

	var err error
	if cfg.MaxRoomMessages, err = getInt("MAX_ROOM_MESSAGES", DefaultMaxRoomMessages); err != nil {
		return nil, err
	}
	if cfg.MaxRoomMessages < 0 {
		return nil, fmt.Errorf("MAX_ROOM_MESSAGES must not be negative, got %d", cfg.MaxRoomMessages)
	}
	if cfg.WebSocket.SendBuffer, err = getInt("CLIENT_SEND_BUFFER", DefaultSendBuffer); err != nil {
		return nil, err
	}
	if cfg.WebSocket.SendBuffer <= 0 {
		return nil, fmt.Errorf("CLIENT_SEND_BUFFER must be positive, got %d", cfg.WebSocket.SendBuffer)
	}
	maxSize, err := getInt("WS_MAX_MESSAGE_SIZE", DefaultMaxMessageSize)
	if err != nil {
		return nil, err
	}
	cfg.WebSocket.MaxMessageSize = int64(maxSize)
	if cfg.WebSocket.PongWait, err = getDuration("WS_PONG_WAIT", DefaultPongWait); err != nil {
		return nil, err
	}
	if cfg.WebSocket.WriteWait, err = getDuration("WS_WRITE_WAIT", DefaultWriteWait); err != nil {
		return nil, err
	}
	if cfg.WebSocket.PongWait <= 0 || cfg.WebSocket.WriteWait <= 0 {
		return nil, fmt.Errorf("WS_PONG_WAIT and WS_WRITE_WAIT must be positive")
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", DefaultShutdownTimeout); err != nil {
		return nil, err
	}
	if cfg.Archive.Enabled, err = getBool("TRANSCRIPT_ARCHIVE", false); err != nil {
		return nil, err
	}
	if cfg.Archive.QueueSize, err = getInt("TRANSCRIPT_QUEUE_SIZE", DefaultArchiveQueue); err != nil {
		return nil, err
	}

	return cfg, nil
}

// AllowAllOrigins reports whether "*" was configured.
func (c *Config) AllowAllOrigins() bool {
	for _, o := range c.CORSOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Package config provides configuration management for the document store application.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/docustore/internal/types"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Chain     ChainConfig
	Documents DocumentsConfig
	Session   SessionConfig
	Database  DatabaseConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Host            string
	ShutdownTimeout time.Duration
}

// ChainConfig holds the contract and the endpoints used to reach it
type ChainConfig struct {
	Backend          types.ContractBackend
	ContractAddress  string
	RPCEndpoint      string
	RESTEndpoint     string
	SignerEndpoint   string
	FeePolicy        types.FeePolicy
	QueryTimeout     time.Duration
	QueryRPS         int
	TxConfirmTimeout time.Duration
	TxPollInterval   time.Duration
}

// DocumentsConfig controls owner-scoped listing
type DocumentsConfig struct {
	PageSize     int // Entries requested per UserDocuments call
	MaxDocuments int // Listing stops here and logs a warning
}

// SessionConfig controls wallet sessions and page notifications
type SessionConfig struct {
	TTL             time.Duration
	NotificationTTL time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres PostgresConfig
	Redis    RedisConfig
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// URL renders the connection URL used by golang-migrate
func (p PostgresConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", p.User, p.Password, p.Host, p.Port, p.Database)
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// RateLimitConfig holds per-session API rate limiting
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// .env is optional; the environment wins either way
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Chain: ChainConfig{
			Backend:          types.ContractBackend(strings.ToLower(getEnv("CONTRACT_BACKEND", string(types.BackendChain)))),
			ContractAddress:  getEnv("CONTRACT_ADDRESS", ""),
			RPCEndpoint:      getEnv("CHAIN_RPC_ENDPOINT", ""),
			RESTEndpoint:     strings.TrimRight(getEnv("CHAIN_REST_ENDPOINT", ""), "/"),
			SignerEndpoint:   strings.TrimRight(getEnv("SIGNER_ENDPOINT", ""), "/"),
			FeePolicy:        types.FeePolicy(getEnv("FEE_POLICY", string(types.FeeAuto))),
			QueryTimeout:     getEnvAsDuration("QUERY_TIMEOUT", 10*time.Second),
			QueryRPS:         getEnvAsInt("QUERY_RPS", 20),
			TxConfirmTimeout: getEnvAsDuration("TX_CONFIRM_TIMEOUT", 60*time.Second),
			TxPollInterval:   getEnvAsDuration("TX_POLL_INTERVAL", time.Second),
		},
		Documents: DocumentsConfig{
			PageSize:     getEnvAsInt("DOCUMENTS_PAGE_SIZE", 50),
			MaxDocuments: getEnvAsInt("DOCUMENTS_MAX", 1000),
		},
		Session: SessionConfig{
			TTL:             getEnvAsDuration("SESSION_TTL", 24*time.Hour),
			NotificationTTL: getEnvAsDuration("NOTIFICATION_TTL", 3*time.Second),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "docustore"),
				User:           getEnv("POSTGRES_USER", "docustore"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 20),
			},
			Redis: RedisConfig{
				Host:           getEnv("REDIS_HOST", "localhost"),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 20),
			},
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvAsInt("RATE_LIMIT_RPS", 10),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 20),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return config, nil
}

// Validate checks that the selected backend has what it needs
func (c *Config) Validate() error {
	switch c.Chain.Backend {
	case types.BackendChain:
		if c.Chain.ContractAddress == "" {
			return fmt.Errorf("CONTRACT_ADDRESS is required for the chain backend")
		}
		if c.Chain.RESTEndpoint == "" {
			return fmt.Errorf("CHAIN_REST_ENDPOINT is required for the chain backend")
		}
		if c.Chain.SignerEndpoint == "" {
			return fmt.Errorf("SIGNER_ENDPOINT is required for the chain backend")
		}
	case types.BackendPostgres, types.BackendMemory:
		if c.Chain.ContractAddress == "" {
			c.Chain.ContractAddress = "local-docstore"
		}
	default:
		return fmt.Errorf("unknown CONTRACT_BACKEND %q (want chain, postgres or memory)", c.Chain.Backend)
	}

	if c.Chain.FeePolicy != types.FeeAuto {
		return fmt.Errorf("unsupported FEE_POLICY %q", c.Chain.FeePolicy)
	}
	if c.Documents.PageSize <= 0 {
		return fmt.Errorf("DOCUMENTS_PAGE_SIZE must be positive")
	}
	if c.Documents.MaxDocuments < c.Documents.PageSize {
		return fmt.Errorf("DOCUMENTS_MAX (%d) must be at least DOCUMENTS_PAGE_SIZE (%d)", c.Documents.MaxDocuments, c.Documents.PageSize)
	}
	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

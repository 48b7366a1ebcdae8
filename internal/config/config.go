package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Storage  StorageConfig  `json:"storage"`
	Email    EmailConfig    `json:"email"`
	Security SecurityConfig `json:"security"`
	App      AppConfig      `json:"app"`
	Logging  LoggingConfig  `json:"logging"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	User           string        `json:"user"`
	Password       string        `json:"password"`
	DBName         string        `json:"db_name"`
	SSLMode        string        `json:"ssl_mode"`
	MaxConnections int           `json:"max_connections"`
	MaxIdleConns   int           `json:"max_idle_conns"`
	MaxLifetime    time.Duration `json:"max_lifetime"`
}

// StorageConfig holds the S3 bucket documents are stored in
type StorageConfig struct {
	Bucket string `json:"bucket"`
}

// EmailConfig holds outbound email settings
type EmailConfig struct {
	FromAddress string `json:"from_address"`
	FromName    string `json:"from_name"`
}

// SecurityConfig
type SecurityConfig struct {
	JWTSecret string `json:"jwt_secret"`
}

// AppConfig holds settings shared across features
type AppConfig struct {
	// BaseURL is prepended to signing links in outgoing emails
	BaseURL string `json:"base_url"`
	// ReminderAfter is how long a document may sit pending before
	// unsigned recipients are re-emailed
	ReminderAfter time.Duration `json:"reminder_after"`
}

// LoggingConfig
type LoggingConfig struct {
	Level string `json:"level"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Default config
	config := &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    os.Getenv("USER"),
			DBName:  "quillsign_portal",
			SSLMode: "disable",
		},
		Storage: StorageConfig{
			Bucket: "quillsign-documents",
		},
		Email: EmailConfig{
			FromAddress: "noreply@quillsign.example.com",
			FromName:    "QuillSign",
		},
		App: AppConfig{
			BaseURL:       "http://localhost:3000",
			ReminderAfter: 24 * time.Hour,
		},
	}

	// Load from file if exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables
	overrideWithEnv(config)

	return config, nil
}

func overrideWithEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if dbHost := os.Getenv("DATABASE_HOST"); dbHost != "" {
		config.Database.Host = dbHost
	}
	if dbUser := os.Getenv("DATABASE_USER"); dbUser != "" {
		config.Database.User = dbUser
	}
	if dbPass := os.Getenv("DATABASE_PASSWORD"); dbPass != "" {
		config.Database.Password = dbPass
	}
	if dbName := os.Getenv("DATABASE_DBNAME"); dbName != "" {
		config.Database.DBName = dbName
	}
	if bucket := os.Getenv("STORAGE_BUCKET"); bucket != "" {
		config.Storage.Bucket = bucket
	}
	if from := os.Getenv("EMAIL_FROM_ADDRESS"); from != "" {
		config.Email.FromAddress = from
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Security.JWTSecret = secret
	}
	if baseURL := os.Getenv("APP_BASE_URL"); baseURL != "" {
		config.App.BaseURL = baseURL
	}
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

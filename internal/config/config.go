package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"b1poster/internal/logger"
	"b1poster/internal/servicelayer"
)

type Config struct {
	// Service Layer Configuration
	B1Server      string
	B1Port        int
	B1CompanyDB   string
	B1Username    string
	B1Password    string
	B1SessionID   string
	B1InsecureTLS bool
	B1Timeout     time.Duration

	// Posting Configuration
	LogCollectorURL string
	JournalPath     string
	ProfilePath     string

	// Google Sheets Configuration
	GoogleSheetURL       string
	GoogleSheetWorksheet string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	config := &Config{
		B1Server:             getEnv("B1_SERVER", ""),
		B1CompanyDB:          getEnv("B1_COMPANY_DB", ""),
		B1Username:           getEnv("B1_USERNAME", ""),
		B1Password:           getEnv("B1_PASSWORD", ""),
		B1SessionID:          getEnv("B1_SESSION_ID", ""),
		LogCollectorURL:      getEnv("LOG_COLLECTOR_URL", ""),
		JournalPath:          getEnv("JOURNAL_PATH", "b1poster.db"),
		ProfilePath:          getEnv("PROFILE_PATH", "profile.yaml"),
		GoogleSheetURL:       getEnv("GOOGLE_SHEET_URL", ""),
		GoogleSheetWorksheet: getEnv("GOOGLE_SHEET_WORKSHEET", "Postings"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:        getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:            getEnv("LOG_OUTPUT", "stderr"),
	}

	port, err := strconv.Atoi(getEnv("B1_PORT", "50000"))
	if err != nil {
		return nil, fmt.Errorf("B1_PORT: %w", err)
	}
	config.B1Port = port

	insecure, err := strconv.ParseBool(getEnv("B1_INSECURE_TLS", "false"))
	if err != nil {
		return nil, fmt.Errorf("B1_INSECURE_TLS: %w", err)
	}
	config.B1InsecureTLS = insecure

	timeout, err := time.ParseDuration(getEnv("B1_TIMEOUT", "60s"))
	if err != nil {
		return nil, fmt.Errorf("B1_TIMEOUT: %w", err)
	}
	config.B1Timeout = timeout

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.B1Server == "" {
		return fmt.Errorf("B1_SERVER is required")
	}
	if c.B1Timeout <= 0 {
		return fmt.Errorf("B1_TIMEOUT must be positive")
	}
	if c.B1SessionID == "" && (c.B1CompanyDB == "" || c.B1Username == "") {
		return fmt.Errorf("either B1_SESSION_ID or B1_COMPANY_DB and B1_USERNAME are required")
	}
	if c.GoogleSheetURL != "" && !strings.Contains(c.GoogleSheetURL, "/spreadsheets/d/") {
		return fmt.Errorf("GOOGLE_SHEET_URL is not a Google Sheets URL")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

// GetTransportConfig returns the Service Layer connection settings
func (c *Config) GetTransportConfig() servicelayer.TransportConfig {
	return servicelayer.TransportConfig{
		BaseURL:            servicelayer.BaseURL(c.B1Server, c.B1Port),
		SessionID:          c.B1SessionID,
		InsecureSkipVerify: c.B1InsecureTLS,
		Timeout:            c.B1Timeout,
	}
}

// GetCredentials returns the Service Layer login credentials
func (c *Config) GetCredentials() servicelayer.Credentials {
	return servicelayer.Credentials{
		CompanyDB: c.B1CompanyDB,
		UserName:  c.B1Username,
		Password:  c.B1Password,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

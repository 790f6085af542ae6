package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/redlabs-sc/customer-intake/app/intake"
	"github.com/redlabs-sc/customer-intake/app/notify"
)

type Config struct {
	// Folders
	DataFolder       string
	ProcessingFolder string
	ValidatedFolder  string
	ReturnsFolder    string
	LogsFolder       string

	// Retry settings
	FileAccessMaxAttempts int
	FileAccessDelaySec    int
	FileMoveMaxAttempts   int
	ForwardMaxRetries     int

	// Email
	EmailSender   string
	EmailReceiver string
	EmailPassword string
	SMTPServer    string
	SMTPPort      int

	// Third-party forwarding
	ForwardURL    string
	ForwardAPIKey string

	// Journal
	JournalPath string

	// Logging
	LogLevel  string
	LogFormat string
	LogFile   string

	// Monitoring
	MetricsPort     int
	HealthCheckPort int
}

func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		// Folders
		DataFolder:       getEnv("DATA_FOLDER", "data"),
		ProcessingFolder: getEnv("PROCESSING_FOLDER", "processing"),
		ValidatedFolder:  getEnv("VALIDATED_FOLDER", "validated"),
		ReturnsFolder:    getEnv("RETURNS_FOLDER", "returns"),
		LogsFolder:       getEnv("LOGS_FOLDER", "logs"),

		// Retry settings
		FileAccessMaxAttempts: getEnvInt("FILE_ACCESS_MAX_ATTEMPTS", 10),
		FileAccessDelaySec:    getEnvInt("FILE_ACCESS_DELAY_SEC", 1),
		FileMoveMaxAttempts:   getEnvInt("FILE_MOVE_MAX_ATTEMPTS", 3),
		ForwardMaxRetries:     getEnvInt("FORWARD_MAX_RETRIES", 3),

		// Email
		EmailSender:   getEnv("EMAIL_SENDER", "noreply@example.com"),
		EmailReceiver: getEnv("EMAIL_RECEIVER", "admin@example.com"),
		EmailPassword: getEnv("EMAIL_PASSWORD", ""),
		SMTPServer:    getEnv("SMTP_SERVER", "smtp.office365.com"),
		SMTPPort:      getEnvInt("SMTP_PORT", 587),

		// Third-party forwarding
		ForwardURL:    getEnv("FORWARD_URL", ""),
		ForwardAPIKey: getEnv("FORWARD_API_KEY", ""),

		// Journal
		JournalPath: getEnv("JOURNAL_PATH", "logs/journal.db"),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
		LogFile:   getEnv("LOG_FILE", "logs/intake.log"),

		// Monitoring
		MetricsPort:     getEnvInt("METRICS_PORT", 9090),
		HealthCheckPort: getEnvInt("HEALTH_CHECK_PORT", 8080),
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.EmailPassword == "" {
		return fmt.Errorf("EMAIL_PASSWORD is required")
	}
	if c.FileAccessMaxAttempts < 1 {
		return fmt.Errorf("FILE_ACCESS_MAX_ATTEMPTS must be at least 1")
	}
	if c.FileMoveMaxAttempts < 1 || c.FileMoveMaxAttempts > 10 {
		return fmt.Errorf("FILE_MOVE_MAX_ATTEMPTS must be between 1 and 10")
	}
	if c.ForwardMaxRetries < 1 {
		return fmt.Errorf("FORWARD_MAX_RETRIES must be at least 1")
	}
	return nil
}

// Folders returns the pipeline's working directories.
func (c *Config) Folders() intake.Folders {
	return intake.Folders{
		Data:       c.DataFolder,
		Processing: c.ProcessingFolder,
		Validated:  c.ValidatedFolder,
		Returns:    c.ReturnsFolder,
	}
}

// Retry returns the pipeline's bounded-wait policy.
func (c *Config) Retry() intake.RetryPolicy {
	return intake.RetryPolicy{
		AccessMaxAttempts: c.FileAccessMaxAttempts,
		AccessDelay:       time.Duration(c.FileAccessDelaySec) * time.Second,
		MoveMaxAttempts:   c.FileMoveMaxAttempts,
	}
}

// SMTP returns the notifier's mail surface.
func (c *Config) SMTP() notify.SMTPConfig {
	return notify.SMTPConfig{
		Host:     c.SMTPServer,
		Port:     c.SMTPPort,
		Sender:   c.EmailSender,
		Receiver: c.EmailReceiver,
		Password: c.EmailPassword,
	}
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

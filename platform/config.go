package platform

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"convstore/gateway"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	BackendD1    = "d1"
	BackendMySQL = "mysql"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	Backend string `env:"DB_BACKEND" envDefault:"d1"`

	// Cloudflare D1
	CFAccountID  string        `env:"CF_ACCOUNT_ID"`
	CFDatabaseID string        `env:"CF_DATABASE"`
	CFAPIToken   string        `env:"CF_API_TOKEN"`
	CFBaseURL    string        `env:"CF_API_BASE_URL" envDefault:"https://api.cloudflare.com/client/v4"`
	CFTimeout    time.Duration `env:"CF_TIMEOUT" envDefault:"30s"`

	// MySQL
	SQLHost     string `env:"SQL_HOST" envDefault:"127.0.0.1"`
	SQLPort     string `env:"SQL_PORT" envDefault:"3306"`
	SQLUser     string `env:"SQL_USER"`
	SQLPassword string `env:"SQL_PASSWORD"`
	SQLDBName   string `env:"SQL_DBNAME"`

	LLMBaseURL string `env:"LLM_BASE_URL"`
	LLMAPIKey  string `env:"LLM_API_KEY"`
	LLMModel   string `env:"LLM_MODEL" envDefault:"qwen-turbo"`

	LogPath  string `env:"LOG_PATH" envDefault:"./log"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	HealthCron      string `env:"HEALTH_CRON" envDefault:"*/10 * * * *"`
	DefaultMaxRound int    `env:"DEFAULT_MAX_ROUND" envDefault:"50"`
}

// LoadConfig reads an optional .env file and then the environment.
func LoadConfig(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	if err := godotenv.Load(envFiles...); err != nil {
		Logger.Debugf("no env file loaded: %s", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	return cfg, nil
}

// Validate checks that the selected backend has what it needs.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendD1:
		var missing []string
		if c.CFAccountID == "" {
			missing = append(missing, "CF_ACCOUNT_ID")
		}
		if c.CFDatabaseID == "" {
			missing = append(missing, "CF_DATABASE")
		}
		if c.CFAPIToken == "" {
			missing = append(missing, "CF_API_TOKEN")
		}
		if len(missing) > 0 {
			return fmt.Errorf("missing d1 settings: %s", strings.Join(missing, ", "))
		}
	case BackendMySQL:
		if c.SQLUser == "" || c.SQLDBName == "" {
			return errors.New("missing mysql settings: SQL_USER and SQL_DBNAME are required")
		}
	default:
		return fmt.Errorf("unsupported DB_BACKEND %q", c.Backend)
	}
	if c.DefaultMaxRound <= 0 {
		return fmt.Errorf("DEFAULT_MAX_ROUND must be positive, got %d", c.DefaultMaxRound)
	}
	return nil
}

// D1 returns the gateway configuration for the Cloudflare D1 backend.
func (c *Config) D1() gateway.D1Config {
	return gateway.D1Config{
		AccountID:  c.CFAccountID,
		DatabaseID: c.CFDatabaseID,
		APIToken:   c.CFAPIToken,
		BaseURL:    c.CFBaseURL,
		Timeout:    c.CFTimeout,
	}
}

// MySQLDSN ...
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.SQLUser, c.SQLPassword, c.SQLHost, c.SQLPort, c.SQLDBName)
}

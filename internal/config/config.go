package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config represents the application configuration.
type Config struct {
	Server struct {
		Port         int    `koanf:"port"`
		DashboardURL string `koanf:"dashboard_url"`
	} `koanf:"server"`

	Reminder struct {
		SweepIntervalMinutes int `koanf:"sweep_interval_minutes"`
		ThresholdMinutes     int `koanf:"threshold_minutes"`
	} `koanf:"reminder"`

	AI struct {
		Provider string `koanf:"provider"`
		APIKey   string `koanf:"api_key"`
		Model    string `koanf:"model"`
	} `koanf:"ai"`

	Twilio struct {
		AccountSID string `koanf:"account_sid"`
		AuthToken  string `koanf:"auth_token"`
		BaseURL    string `koanf:"base_url"`
	} `koanf:"twilio"`
}

// LoadConfig loads the configuration from a file.
func LoadConfig(configPath string) (*Config, error) {
	var k = koanf.New(".")

	// Set up default configuration
	k.Load(confmap.Provider(map[string]interface{}{
		"server.port":                     8080,
		"server.dashboard_url":            "http://localhost:8080",
		"reminder.sweep_interval_minutes": 5,
		"reminder.threshold_minutes":      60,
		"ai.provider":                     "googleai",
		"ai.model":                        "gemini-1.5-flash",
	}, "."), nil)

	// Load from TOML file if it exists
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	} else {
		// Try default locations
		defaultPaths := []string{"./cartloop.toml", "$HOME/.cartloop.toml"}
		for _, path := range defaultPaths {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	// Load from environment variables with prefix CARTLOOP_
	k.Load(env.Provider("CARTLOOP_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "CARTLOOP_")), "_", ".", -1)
	}), nil)

	// Unmarshal into Config struct
	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return &config, nil
}

// InitConfig initializes a new configuration file.
func InitConfig(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	sampleConfig := `# Cartloop Configuration

[server]
port = 8080
dashboard_url = "https://app.example.com"

[reminder]
sweep_interval_minutes = 5
threshold_minutes = 60

[ai]
provider = "googleai"
api_key = "your-ai-api-key"
model = "gemini-1.5-flash"

[twilio]
account_sid = "your-account-sid"
auth_token = "your-auth-token"
`

	return os.WriteFile(configPath, []byte(sampleConfig), 0644)
}

// Validate validates the configuration.
func Validate(config *Config) error {
	if config.Server.Port <= 0 {
		return fmt.Errorf("server port must be positive")
	}
	if config.Reminder.SweepIntervalMinutes <= 0 {
		return fmt.Errorf("reminder sweep interval must be positive")
	}
	if config.Reminder.ThresholdMinutes <= 0 {
		return fmt.Errorf("reminder threshold must be positive")
	}
	if config.AI.APIKey == "" {
		return fmt.Errorf("ai api_key is required")
	}
	if config.Twilio.AccountSID == "" || config.Twilio.AuthToken == "" {
		return fmt.Errorf("twilio credentials are required")
	}
	return nil
}

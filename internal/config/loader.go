package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config captures every runtime setting of the bot. Values come from
// defaults, an optional YAML file, and environment overrides, in that
// order.
type Config struct {
	HTTPPort   int    `yaml:"http_port"`
	SQLitePath string `yaml:"sqlite_path"`

	GreenAPIBaseURL    string `yaml:"green_api_base_url"`
	GreenAPIInstanceID string `yaml:"green_api_instance_id"`
	GreenAPIToken      string `yaml:"green_api_token"`

	OpenAIBaseURL string `yaml:"openai_base_url"`
	OpenAIAPIKey  string `yaml:"openai_api_key"`
	OpenAIModel   string `yaml:"openai_model"`

	WebhookURL   string `yaml:"webhook_url"`
	WebhookToken string `yaml:"webhook_token"`

	HorizonDays     int    `yaml:"horizon_days"`
	SweepSpec       string `yaml:"sweep_spec"`
	MaterializeSpec string `yaml:"materialize_spec"`
}

// Load builds the configuration. path selects the YAML file; when empty
// the REMINDERBOT_CONFIG environment variable is consulted, and when that
// is also empty no file is read. Credentials are not required here so
// that commands which never talk to external services can run without
// them; see ValidateMessaging and ValidateAgent.
func Load(path string) (Config, error) {
	cfg := Config{
		HTTPPort:    8080,
		SQLitePath:  "reminderbot.db",
		OpenAIModel: "gpt-4o-mini",
		HorizonDays: 30,
	}

	explicit := path != ""
	if path == "" {
		path = strings.TrimSpace(os.Getenv("REMINDERBOT_CONFIG"))
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: failed to parse %s: %w", path, err)
			}
		case os.IsNotExist(err) && !explicit:
			// A file named only through the environment may be absent.
		default:
			return Config{}, fmt.Errorf("config: failed to read %s: %w", path, err)
		}
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("REMINDERBOT_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "REMINDERBOT_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	overrideString(&cfg.SQLitePath, "REMINDERBOT_SQLITE_PATH")
	overrideString(&cfg.GreenAPIBaseURL, "REMINDERBOT_GREEN_API_BASE_URL")
	overrideString(&cfg.GreenAPIInstanceID, "REMINDERBOT_GREEN_API_INSTANCE_ID")
	overrideString(&cfg.GreenAPIToken, "REMINDERBOT_GREEN_API_TOKEN")
	overrideString(&cfg.OpenAIBaseURL, "REMINDERBOT_OPENAI_BASE_URL")
	overrideString(&cfg.OpenAIAPIKey, "REMINDERBOT_OPENAI_API_KEY")
	overrideString(&cfg.OpenAIModel, "REMINDERBOT_OPENAI_MODEL")
	overrideString(&cfg.WebhookURL, "REMINDERBOT_WEBHOOK_URL")
	overrideString(&cfg.WebhookToken, "REMINDERBOT_WEBHOOK_TOKEN")
	overrideString(&cfg.SweepSpec, "REMINDERBOT_SWEEP_SPEC")
	overrideString(&cfg.MaterializeSpec, "REMINDERBOT_MATERIALIZE_SPEC")

	if horizonValue := strings.TrimSpace(os.Getenv("REMINDERBOT_HORIZON_DAYS")); horizonValue != "" {
		horizon, err := strconv.Atoi(horizonValue)
		if err != nil || horizon <= 0 {
			invalid = append(invalid, "REMINDERBOT_HORIZON_DAYS")
		} else {
			cfg.HorizonDays = horizon
		}
	}

	if cfg.HTTPPort <= 0 {
		invalid = append(invalid, "http_port")
	}
	if cfg.HorizonDays <= 0 {
		invalid = append(invalid, "horizon_days")
	}
	if strings.TrimSpace(cfg.SQLitePath) == "" {
		invalid = append(invalid, "sqlite_path")
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("config: invalid values for: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// ValidateMessaging checks the settings needed to talk to the WhatsApp
// gateway.
func (c Config) ValidateMessaging() error {
	missing := make([]string, 0, 2)
	if strings.TrimSpace(c.GreenAPIInstanceID) == "" {
		missing = append(missing, "green_api_instance_id")
	}
	if strings.TrimSpace(c.GreenAPIToken) == "" {
		missing = append(missing, "green_api_token")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing messaging settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ValidateAgent checks the settings needed to reach the chat model.
func (c Config) ValidateAgent() error {
	if strings.TrimSpace(c.OpenAIAPIKey) == "" {
		return fmt.Errorf("config: missing agent settings: openai_api_key")
	}
	return nil
}

func overrideString(target *string, key string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		*target = value
	}
}

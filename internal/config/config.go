package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"
)

// ErrMissingCredential is returned by the Require* checks when a credential
// needed by a command is not configured.
var ErrMissingCredential = errors.New("missing credential")

// Endpoint locates one repository on an Artifactory-style server.
type Endpoint struct {
	URL      string `json:"url"`
	Repo     string `json:"repo"`
	User     string `json:"user"`
	Password string `json:"password" secret:"true"`
}

type Config struct {
	DataDir   string `json:"data_dir"`
	OutputDir string `json:"output_dir"`
	LogLevel  string `json:"log_level"`
	API       struct {
		BaseURL        string `json:"base_url"`
		AppURL         string `json:"app_url"`
		APIKey         string `json:"api_key" secret:"true"`
		TimeoutSeconds int    `json:"timeout_seconds"`
	} `json:"api"`
	Poll struct {
		MaxWaitMinutes  int `json:"max_wait_minutes"`
		IntervalSeconds int `json:"interval_seconds"`
		MessageWindow   int `json:"message_window"`
	} `json:"poll"`
	Artifactory struct {
		Source   Endpoint `json:"source"`
		Target   Endpoint `json:"target"`
		Insecure bool     `json:"insecure"`
	} `json:"artifactory"`
	Knowledge struct {
		TriggerPrefix string   `json:"trigger_prefix"`
		Extensions    []string `json:"extensions"`
	} `json:"knowledge"`
	Notify struct {
		Telegram struct {
			Token  string `json:"token" secret:"true"`
			ChatID int64  `json:"chat_id"`
		} `json:"telegram"`
	} `json:"notify"`
}

// Default returns a Config populated with built-in defaults.
func Default() *Config {
	cfg := &Config{
		DataDir:   filepath.Join(os.Getenv("HOME"), ".devinctl"),
		OutputDir: ".",
		LogLevel:  "info",
	}
	cfg.API.BaseURL = "https://api.devin.ai/v1"
	cfg.API.AppURL = "https://app.devin.ai"
	cfg.API.TimeoutSeconds = 60
	cfg.Poll.MaxWaitMinutes = 30
	cfg.Poll.IntervalSeconds = 10
	cfg.Poll.MessageWindow = 5
	cfg.Knowledge.TriggerPrefix = "When working with"
	cfg.Knowledge.Extensions = []string{".md", ".markdown"}
	return cfg
}

// Load reads the config file at path on top of the defaults and applies
// environment overrides. A missing file is created with the defaults.
// The file may contain // and /* */ comments and trailing commas.
func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if os.IsNotExist(err) {
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

// LoadDotEnv loads KEY=value pairs from a .env file into the process
// environment. Variables that are already set win. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Override from env (highest precedence)
func applyEnv(cfg *Config) {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString(&cfg.API.APIKey, "DEVIN_API_KEY")
	setString(&cfg.API.BaseURL, "DEVIN_API_URL")
	setString(&cfg.API.AppURL, "DEVIN_APP_URL")
	setString(&cfg.LogLevel, "DEVINCTL_LOG_LEVEL")

	setEndpoint := func(ep *Endpoint, prefix string) {
		setString(&ep.URL, prefix+"_URL")
		setString(&ep.Repo, prefix+"_REPO")
		setString(&ep.User, prefix+"_USER")
		setString(&ep.Password, prefix+"_PASSWORD")
	}
	setEndpoint(&cfg.Artifactory.Source, "ARTIFACTORY_SOURCE")
	setEndpoint(&cfg.Artifactory.Target, "ARTIFACTORY_TARGET")

	setString(&cfg.Notify.Telegram.Token, "TELEGRAM_BOT_TOKEN")
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Notify.Telegram.ChatID = id
		}
	}
}

// RequireAPIKey reports a configuration error when no API key is set.
func (c *Config) RequireAPIKey() error {
	if c.API.APIKey == "" {
		return fmt.Errorf("%w: DEVIN_API_KEY not found (set it in .env, the environment, or api.api_key)", ErrMissingCredential)
	}
	return nil
}

// RequireArtifactory reports a configuration error naming every source or
// target setting that is still empty.
func (c *Config) RequireArtifactory() error {
	var missing []string
	check := func(ep Endpoint, prefix string) {
		if ep.URL == "" {
			missing = append(missing, prefix+"_URL")
		}
		if ep.Repo == "" {
			missing = append(missing, prefix+"_REPO")
		}
		if ep.User == "" {
			missing = append(missing, prefix+"_USER")
		}
		if ep.Password == "" {
			missing = append(missing, prefix+"_PASSWORD")
		}
	}
	check(c.Artifactory.Source, "ARTIFACTORY_SOURCE")
	check(c.Artifactory.Target, "ARTIFACTORY_TARGET")
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredential, strings.Join(missing, ", "))
	}
	return nil
}

// RequireTelegram reports a configuration error when notifications cannot
// be sent.
func (c *Config) RequireTelegram() error {
	var missing []string
	if c.Notify.Telegram.Token == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if c.Notify.Telegram.ChatID == 0 {
		missing = append(missing, "TELEGRAM_CHAT_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredential, strings.Join(missing, ", "))
	}
	return nil
}

// MaxWait is the poll deadline as a duration.
func (c *Config) MaxWait() time.Duration {
	return time.Duration(c.Poll.MaxWaitMinutes) * time.Minute
}

// PollInterval is the delay between two polls of a session.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Poll.IntervalSeconds) * time.Second
}

// APITimeout bounds each individual API request.
func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// Save writes cfg to path as indented JSON, atomically.
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return writeFile(path, append(data, '\n'))
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

// ToMap converts cfg into a generic nested map keyed by JSON field names.
func ToMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return m, nil
}

// ListValues returns every config value under its dot-separated key,
// optionally masking secrets.
func ListValues(cfg *Config, mask bool) (map[string]any, error) {
	m, err := ToMap(cfg)
	if err != nil {
		return nil, err
	}
	flat := Flatten(m)
	if mask {
		flat = MaskSecrets(flat)
	}
	return flat, nil
}

func readFlat(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			m, err := ToMap(Default())
			if err != nil {
				return nil, err
			}
			return Flatten(m), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(jsonc.ToJSON(data), &m); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return Flatten(m), nil
}

// schema maps every leaf key of Config to its zero value.
func schema() map[string]any {
	m, _ := ToMap(&Config{})
	return Flatten(m)
}

// GetValue reads a single dot-separated key from the config file at path.
func GetValue(path, key string) (any, error) {
	flat, err := readFlat(path)
	if err != nil {
		return nil, err
	}
	v, ok := flat[key]
	if !ok {
		if _, known := schema()[key]; known {
			return nil, nil
		}
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
	return v, nil
}

// SetValue stores value under key in the config file at path. String keys
// keep the value verbatim; other keys take the value as JSON (numbers,
// booleans, arrays) and fall back to the raw string.
func SetValue(path, key, value string) error {
	zero, known := schema()[key]
	if !known {
		return fmt.Errorf("unknown config key: %s", key)
	}
	flat, err := readFlat(path)
	if err != nil {
		return err
	}

	var parsed any = value
	if _, isString := zero.(string); !isString {
		if err := json.Unmarshal([]byte(value), &parsed); err != nil {
			parsed = value
		}
	}
	flat[key] = parsed

	data, err := json.MarshalIndent(Unflatten(flat), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return writeFile(path, append(data, '\n'))
}

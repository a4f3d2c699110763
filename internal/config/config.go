package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

type StorageBackend string

const (
	BackendSQLite StorageBackend = "sqlite"
	BackendFile   StorageBackend = "file"
)

type NotifyMode string

const (
	NotifyNone NotifyMode = "none"
	NotifySMTP NotifyMode = "smtp"
	NotifyHTTP NotifyMode = "http"
)

type Config struct {
	Database  DatabaseConfig  `toml:"database"`
	Inference InferenceConfig `toml:"inference"`
	Share     ShareConfig     `toml:"share"`
	Notify    NotifyConfig    `toml:"notify"`
	Server    ServerConfig    `toml:"server"`
	Logging   LoggingConfig   `toml:"logging"`
}

type DatabaseConfig struct {
	Backend StorageBackend `toml:"backend"`
	Path    string         `toml:"path"`
}

type InferenceConfig struct {
	APIKey        string       `toml:"api_key"`
	BaseURL       string       `toml:"base_url"`
	Model         string       `toml:"model"`
	Transcription PolicyConfig `toml:"transcription"`
	MindMap       PolicyConfig `toml:"mind_map"`
	Chat          PolicyConfig `toml:"chat"`
}

// PolicyConfig bounds one class of inference call. Durations use time.ParseDuration syntax.
type PolicyConfig struct {
	Timeout     string `toml:"timeout"`
	MaxRetries  int    `toml:"max_retries"`
	BaseBackoff string `toml:"base_backoff"`
}

type ShareConfig struct {
	BaseURL     string `toml:"base_url"`
	EmailDomain string `toml:"email_domain"`
}

type NotifyConfig struct {
	Mode         NotifyMode `toml:"mode"`
	HTTPEndpoint string     `toml:"http_endpoint"`
	SMTP         SMTPConfig `toml:"smtp"`
}

type SMTPConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	From     string `toml:"from"`
}

type ServerConfig struct {
	HTTPBind    string `toml:"http_bind"`
	APIEndpoint string `toml:"api_endpoint"`
	MCPEndpoint string `toml:"mcp_endpoint"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Backend: BackendSQLite,
			Path:    dbPath,
		},
		Inference: InferenceConfig{
			Model:         "gemini-3-flash-preview",
			Transcription: PolicyConfig{Timeout: "120s", MaxRetries: 2, BaseBackoff: "1s"},
			MindMap:       PolicyConfig{Timeout: "60s", MaxRetries: 1, BaseBackoff: "1s"},
			Chat:          PolicyConfig{Timeout: "15s", MaxRetries: 1, BaseBackoff: "1s"},
		},
		Share: ShareConfig{
			BaseURL:     "http://127.0.0.1:8080/share",
			EmailDomain: "company.com",
		},
		Notify: NotifyConfig{
			Mode:         NotifyNone,
			HTTPEndpoint: "http://localhost:3003/send-report",
			SMTP:         SMTPConfig{Host: "smtp.gmail.com", Port: 587},
		},
		Server: ServerConfig{
			HTTPBind:    "127.0.0.1:8080",
			APIEndpoint: "/api/v1",
			MCPEndpoint: "/mcp",
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: false,
				Dir:     ".syncnotes/log",
			},
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// ApplyEnv overlays secrets and overrides read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	set := func(dst *string, names ...string) {
		for _, name := range names {
			if value := strings.TrimSpace(getenv(name)); value != "" {
				*dst = value
				return
			}
		}
	}
	set(&c.Inference.APIKey, "SYNCNOTES_API_KEY", "GEMINI_API_KEY")
	set(&c.Notify.SMTP.Username, "SMTP_USER")
	set(&c.Notify.SMTP.Password, "SMTP_PASS")
	set(&c.Notify.SMTP.From, "EMAIL_FROM")
	set(&c.Notify.SMTP.Host, "SMTP_HOST")
	if port, err := strconv.Atoi(strings.TrimSpace(getenv("SMTP_PORT"))); err == nil && port > 0 {
		c.Notify.SMTP.Port = port
	}
}

func (c Config) Validate() error {
	c.Database.Path = strings.TrimSpace(c.Database.Path)
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	switch c.Database.Backend {
	case BackendSQLite, BackendFile:
	default:
		return fmt.Errorf("invalid database.backend: %q", c.Database.Backend)
	}

	for name, policy := range map[string]PolicyConfig{
		"transcription": c.Inference.Transcription,
		"mind_map":      c.Inference.MindMap,
		"chat":          c.Inference.Chat,
	} {
		if _, _, err := policy.Durations(); err != nil {
			return fmt.Errorf("inference.%s: %w", name, err)
		}
		if policy.MaxRetries < 0 {
			return fmt.Errorf("inference.%s.max_retries must be >= 0", name)
		}
	}

	switch c.Notify.Mode {
	case NotifyNone, NotifySMTP:
	case NotifyHTTP:
		if strings.TrimSpace(c.Notify.HTTPEndpoint) == "" {
			return errors.New("notify.http_endpoint is required when notify.mode is http")
		}
	default:
		return fmt.Errorf("invalid notify.mode: %q", c.Notify.Mode)
	}
	if c.Notify.SMTP.Port < 0 || c.Notify.SMTP.Port > 65535 {
		return fmt.Errorf("invalid notify.smtp.port: %d", c.Notify.SMTP.Port)
	}

	for _, endpoint := range []struct{ key, value string }{
		{"server.api_endpoint", c.Server.APIEndpoint},
		{"server.mcp_endpoint", c.Server.MCPEndpoint},
	} {
		if value := strings.TrimSpace(endpoint.value); value != "" && !strings.HasPrefix(value, "/") {
			return fmt.Errorf("%s must start with /: %q", endpoint.key, endpoint.value)
		}
	}

	switch strings.TrimSpace(strings.ToLower(c.Logging.Level)) {
	case "", "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}
	return nil
}

// Durations parses the timeout and base backoff.
func (p PolicyConfig) Durations() (time.Duration, time.Duration, error) {
	timeout, err := parsePositiveDuration(p.Timeout)
	if err != nil {
		return 0, 0, fmt.Errorf("timeout: %w", err)
	}
	backoff, err := parsePositiveDuration(p.BaseBackoff)
	if err != nil {
		return 0, 0, fmt.Errorf("base_backoff: %w", err)
	}
	return timeout, backoff, nil
}

func parsePositiveDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be > 0, got %s", raw)
	}
	return d, nil
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Package config собирает настройки сервера из значений по умолчанию, TOML файла,
// переменных окружения INSIGHTS_* и флагов командной строки (в порядке возрастания приоритета).
package config

import (
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/logging"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/ippolicy"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/jwt"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/server/ratelimit"
	"github.com/pearch001/fulus-pay-ai-assistant-sub004/internal/validation"
)

// EnvPrefix префикс переменных окружения
const EnvPrefix = "INSIGHTS_"

// Config настройки сервера
type Config struct {
	Server    Server    `toml:"server"`
	Storage   Storage   `toml:"storage"`
	JWT       JWT       `toml:"jwt"`
	RateLimit RateLimit `toml:"rate_limit"`
	AI        AI        `toml:"ai"`
	Log       Log       `toml:"log"`
	Bootstrap Bootstrap `toml:"bootstrap"`
	Security  Security  `toml:"security"`

	// ConfigPath путь к TOML файлу, если он был указан
	ConfigPath string `toml:"-"`
	// ShowVersion выставляется флагом -version
	ShowVersion bool `toml:"-"`
}

// Server параметры HTTP сервера
type Server struct {
	Addr            string        `toml:"addr"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
	ReadTimeout     time.Duration `toml:"read_timeout"`
	WriteTimeout    time.Duration `toml:"write_timeout"`
}

// Storage пути и DSN хранилищ
type Storage struct {
	SQLitePath  string `toml:"sqlite_path"`
	PostgresDSN string `toml:"postgres_dsn"`
	BoltPath    string `toml:"bolt_path"`
}

// JWT параметры токенов
type JWT struct {
	Secret     string        `toml:"secret"`
	Issuer     string        `toml:"issuer"`
	AccessTTL  time.Duration `toml:"access_ttl"`
	RefreshTTL time.Duration `toml:"refresh_ttl"`
}

// RateLimit лимиты вызовов и защиты входа
type RateLimit struct {
	PerMinute     int           `toml:"per_minute"`
	PerHour       int           `toml:"per_hour"`
	LoginRequests int           `toml:"login_requests"`
	LoginWindow   time.Duration `toml:"login_window"`
}

// AI параметры модели
type AI struct {
	APIKey       string `toml:"api_key"`
	Model        string `toml:"model"`
	BaseURL      string `toml:"base_url"`
	MaxTokens    int    `toml:"max_tokens"`
	HistoryLimit int    `toml:"history_limit"`
}

// Log параметры логирования
type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Bootstrap учетная запись SUPER_ADMIN, создаваемая при старте
type Bootstrap struct {
	Name     string `toml:"name"`
	Phone    string `toml:"phone"`
	Password string `toml:"password"`
}

// Enabled сообщает, задана ли учетная запись для создания
func (b Bootstrap) Enabled() bool {
	return b.Phone != ""
}

// Security статический список разрешенных адресов
type Security struct {
	AllowedIPs []string `toml:"allowed_ips"`
}

// Default возвращает конфигурацию по умолчанию
func Default() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
		},
		Storage: Storage{
			SQLitePath: "insights.db",
			BoltPath:   "insights-policy.db",
		},
		JWT: JWT{
			Issuer:     jwt.DefaultIssuer,
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		RateLimit: RateLimit{
			PerMinute:     ratelimit.DefaultPerMinute,
			PerHour:       ratelimit.DefaultPerHour,
			LoginRequests: 5,
			LoginWindow:   time.Minute,
		},
		AI: AI{
			Model:     "gpt-4o-mini",
			MaxTokens: 1024,
		},
		Log: Log{
			Level:  "info",
			Format: "json",
		},
		Bootstrap: Bootstrap{
			Name: "Super Admin",
		},
	}
}

// Load собирает конфигурацию. args без имени программы, getenv обычно os.Getenv.
func Load(args []string, getenv func(string) string) (*Config, error) {
	// Первый проход нужен только чтобы узнать путь к файлу и проверить флаги
	probe := Default()
	fs := newFlagSet(&probe)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := Default()

	path := probe.ConfigPath
	if path == "" {
		path = getenv(EnvPrefix + "CONFIG")
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		cfg.ConfigPath = path
	}

	if err := applyEnv(&cfg, getenv); err != nil {
		return nil, err
	}

	// Второй проход: флаги поверх файла и окружения
	fs = newFlagSet(&cfg)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func newFlagSet(cfg *Config) *flag.FlagSet {
	fs := flag.NewFlagSet("insights-server", flag.ContinueOnError)

	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.StringVar(&cfg.ConfigPath, "config", cfg.ConfigPath, "Path to TOML config file")

	fs.StringVar(&cfg.Server.Addr, "addr", cfg.Server.Addr, "HTTP listen address")
	fs.DurationVar(&cfg.Server.ShutdownTimeout, "shutdown-timeout", cfg.Server.ShutdownTimeout, "Graceful shutdown timeout")

	fs.StringVar(&cfg.Storage.SQLitePath, "db", cfg.Storage.SQLitePath, "Path to SQLite database")
	fs.StringVar(&cfg.Storage.PostgresDSN, "audit-dsn", cfg.Storage.PostgresDSN, "PostgreSQL DSN for the shared audit journal (optional)")
	fs.StringVar(&cfg.Storage.BoltPath, "policy-db", cfg.Storage.BoltPath, "Path to BoltDB file with IP rules")

	fs.StringVar(&cfg.JWT.Secret, "jwt-secret", cfg.JWT.Secret, "HS512 signing secret (prefer INSIGHTS_JWT_SECRET)")
	fs.StringVar(&cfg.JWT.Issuer, "jwt-issuer", cfg.JWT.Issuer, "Token issuer")
	fs.DurationVar(&cfg.JWT.AccessTTL, "access-ttl", cfg.JWT.AccessTTL, "Access token lifetime")
	fs.DurationVar(&cfg.JWT.RefreshTTL, "refresh-ttl", cfg.JWT.RefreshTTL, "Refresh token lifetime")

	fs.IntVar(&cfg.RateLimit.PerMinute, "rate-per-minute", cfg.RateLimit.PerMinute, "Calls per admin per minute")
	fs.IntVar(&cfg.RateLimit.PerHour, "rate-per-hour", cfg.RateLimit.PerHour, "Calls per admin per hour")
	fs.IntVar(&cfg.RateLimit.LoginRequests, "login-requests", cfg.RateLimit.LoginRequests, "Login attempts per IP per window")
	fs.DurationVar(&cfg.RateLimit.LoginWindow, "login-window", cfg.RateLimit.LoginWindow, "Login throttle window")

	fs.Var((*listValue)(&cfg.Security.AllowedIPs), "allowed-ips", "Comma-separated IPs/CIDRs allowed to call admin endpoints")

	fs.StringVar(&cfg.AI.Model, "ai-model", cfg.AI.Model, "Chat completion model")
	fs.StringVar(&cfg.AI.BaseURL, "ai-base-url", cfg.AI.BaseURL, "OpenAI-compatible API base URL")
	fs.IntVar(&cfg.AI.MaxTokens, "ai-max-tokens", cfg.AI.MaxTokens, "Completion token limit")
	fs.IntVar(&cfg.AI.HistoryLimit, "history-limit", cfg.AI.HistoryLimit, "Messages of history sent to the model")

	fs.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.Log.Format, "log-format", cfg.Log.Format, "Log format (json, text)")

	fs.StringVar(&cfg.Bootstrap.Name, "admin-name", cfg.Bootstrap.Name, "Bootstrap super admin name")
	fs.StringVar(&cfg.Bootstrap.Phone, "admin-phone", cfg.Bootstrap.Phone, "Bootstrap super admin phone number")

	return fs
}

// envBinding связывает переменную окружения с полем конфигурации
type envBinding struct {
	set  func(string) error
	name string
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	bindings := []envBinding{
		{name: "ADDR", set: setString(&cfg.Server.Addr)},
		{name: "SHUTDOWN_TIMEOUT", set: setDuration(&cfg.Server.ShutdownTimeout)},
		{name: "SQLITE_PATH", set: setString(&cfg.Storage.SQLitePath)},
		{name: "POSTGRES_DSN", set: setString(&cfg.Storage.PostgresDSN)},
		{name: "BOLT_PATH", set: setString(&cfg.Storage.BoltPath)},
		{name: "JWT_SECRET", set: setString(&cfg.JWT.Secret)},
		{name: "JWT_ISSUER", set: setString(&cfg.JWT.Issuer)},
		{name: "ACCESS_TTL", set: setDuration(&cfg.JWT.AccessTTL)},
		{name: "REFRESH_TTL", set: setDuration(&cfg.JWT.RefreshTTL)},
		{name: "RATE_PER_MINUTE", set: setInt(&cfg.RateLimit.PerMinute)},
		{name: "RATE_PER_HOUR", set: setInt(&cfg.RateLimit.PerHour)},
		{name: "LOGIN_REQUESTS", set: setInt(&cfg.RateLimit.LoginRequests)},
		{name: "LOGIN_WINDOW", set: setDuration(&cfg.RateLimit.LoginWindow)},
		{name: "ALLOWED_IPS", set: (*listValue)(&cfg.Security.AllowedIPs).Set},
		{name: "OPENAI_API_KEY", set: setString(&cfg.AI.APIKey)},
		{name: "OPENAI_MODEL", set: setString(&cfg.AI.Model)},
		{name: "OPENAI_BASE_URL", set: setString(&cfg.AI.BaseURL)},
		{name: "AI_MAX_TOKENS", set: setInt(&cfg.AI.MaxTokens)},
		{name: "HISTORY_LIMIT", set: setInt(&cfg.AI.HistoryLimit)},
		{name: "LOG_LEVEL", set: setString(&cfg.Log.Level)},
		{name: "LOG_FORMAT", set: setString(&cfg.Log.Format)},
		{name: "ADMIN_NAME", set: setString(&cfg.Bootstrap.Name)},
		{name: "ADMIN_PHONE", set: setString(&cfg.Bootstrap.Phone)},
		{name: "ADMIN_PASSWORD", set: setString(&cfg.Bootstrap.Password)},
	}

	for _, b := range bindings {
		value := getenv(EnvPrefix + b.name)
		if value == "" {
			continue
		}
		if err := b.set(value); err != nil {
			return fmt.Errorf("invalid %s%s: %w", EnvPrefix, b.name, err)
		}
	}

	// Стандартная переменная клиента OpenAI как запасной вариант
	if cfg.AI.APIKey == "" {
		cfg.AI.APIKey = getenv("OPENAI_API_KEY")
	}

	return nil
}

func setString(dst *string) func(string) error {
	return func(v string) error {
		*dst = v
		return nil
	}
}

func setInt(dst *int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}

func setDuration(dst *time.Duration) func(string) error {
	return func(v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*dst = d
		return nil
	}
}

// listValue flag.Value для списка через запятую
type listValue []string

func (l *listValue) String() string {
	if l == nil {
		return ""
	}
	return strings.Join(*l, ",")
}

func (l *listValue) Set(v string) error {
	var items []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	*l = items
	return nil
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	if c.Storage.SQLitePath == "" {
		errs = append(errs, errors.New("sqlite path is required"))
	}
	if c.Storage.BoltPath == "" {
		errs = append(errs, errors.New("policy db path is required"))
	}

	if len(c.JWT.Secret) < jwt.MinSecretLength {
		errs = append(errs, jwt.ErrWeakSecret)
	}
	if c.JWT.AccessTTL < jwt.MinTTL || c.JWT.RefreshTTL < jwt.MinTTL {
		errs = append(errs, fmt.Errorf("token TTLs must be at least %s", jwt.MinTTL))
	}

	if c.RateLimit.PerMinute <= 0 || c.RateLimit.PerHour <= 0 {
		errs = append(errs, errors.New("rate limits must be positive"))
	}
	if c.RateLimit.LoginRequests <= 0 || c.RateLimit.LoginWindow <= 0 {
		errs = append(errs, errors.New("login throttle must be positive"))
	}

	for _, ip := range c.Security.AllowedIPs {
		if _, err := ippolicy.Normalize(ip); err != nil {
			errs = append(errs, err)
		}
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if f := strings.ToLower(c.Log.Format); f != "json" && f != "text" {
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}

	if c.Bootstrap.Enabled() {
		if err := validation.ValidatePhoneNumber(c.Bootstrap.Phone); err != nil {
			errs = append(errs, fmt.Errorf("bootstrap admin: %w", err))
		}
		if err := validation.ValidatePassword(c.Bootstrap.Password); err != nil {
			errs = append(errs, fmt.Errorf("bootstrap admin: %w", err))
		}
		if err := validation.ValidateName(c.Bootstrap.Name); err != nil {
			errs = append(errs, fmt.Errorf("bootstrap admin: %w", err))
		}
	}

	return errors.Join(errs...)
}

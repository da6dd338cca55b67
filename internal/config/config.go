package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

const (
	DriverPostgres = "postgres"
	DriverPGX      = "pgx"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

const (
	PasswordModePlaintext = "plaintext"
	PasswordModeBcrypt    = "bcrypt"
)

type Config struct {
	HTTP         HTTPConfig
	DB           DBConfig
	Session      SessionConfig
	Auth         AuthConfig
	Log          LogConfig
	TemplatesDir string
	AuditLogFile string
}

type HTTPConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type DBConfig struct {
	Driver          string
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	EnsureSchema    bool
}

type SessionConfig struct {
	Secret       string
	CookieName   string
	MaxAge       time.Duration
	CookieSecure bool
}

type AuthConfig struct {
	PasswordMode string
	BcryptCost   int
}

type LogConfig struct {
	Level  string
	Format string
}

var defaults = map[string]any{
	"HTTP_ADDR":                 "0.0.0.0:8080",
	"HTTP_READ_TIMEOUT_SEC":     10,
	"HTTP_WRITE_TIMEOUT_SEC":    15,
	"HTTP_SHUTDOWN_TIMEOUT_SEC": 20,
	"DB_DRIVER":                 DriverPostgres,
	"DB_HOST":                   "db-service",
	"DB_PORT":                   0,
	"DB_NAME":                   "demo_db",
	"DB_USER":                   "user",
	"DB_PASS":                   "password",
	"DB_SSLMODE":                "disable",
	"DATABASE_URL":              "",
	"DB_MAX_OPEN_CONNS":         10,
	"DB_MAX_IDLE_CONNS":         5,
	"DB_CONN_MAX_LIFETIME_SEC":  300,
	"DB_ENSURE_SCHEMA":          false,
	"SESSION_SECRET":            "supersecretkey",
	"SESSION_COOKIE_NAME":       "session",
	"SESSION_MAX_AGE_SEC":       0,
	"SESSION_COOKIE_SECURE":     false,
	"AUTH_PASSWORD_MODE":        PasswordModePlaintext,
	"AUTH_BCRYPT_COST":          bcrypt.DefaultCost,
	"TEMPLATES_DIR":             "",
	"AUDIT_LOG_FILE":            "",
	"LOG_LEVEL":                 "info",
	"LOG_FORMAT":                "json",
}

// flagKeys maps CLI flag names onto configuration keys.
var flagKeys = map[string]string{
	"addr":          "HTTP_ADDR",
	"templates-dir": "TEMPLATES_DIR",
	"ensure-schema": "DB_ENSURE_SCHEMA",
}

// keepEmptyKeys take an empty value literally when the variable is set;
// defaults apply only when it is absent.
var keepEmptyKeys = map[string]bool{
	"DB_HOST": true,
	"DB_NAME": true,
	"DB_USER": true,
	"DB_PASS": true,
}

func Load() (Config, error) {
	return LoadWithFlags(nil)
}

// LoadWithFlags resolves configuration from flags (when changed), the
// environment and built-in defaults, in that order.
func LoadWithFlags(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := Config{
		HTTP: HTTPConfig{
			Addr:            strings.TrimSpace(v.GetString("HTTP_ADDR")),
			ReadTimeout:     seconds(v, "HTTP_READ_TIMEOUT_SEC"),
			WriteTimeout:    seconds(v, "HTTP_WRITE_TIMEOUT_SEC"),
			ShutdownTimeout: seconds(v, "HTTP_SHUTDOWN_TIMEOUT_SEC"),
		},
		DB: DBConfig{
			Driver:          strings.ToLower(strings.TrimSpace(v.GetString("DB_DRIVER"))),
			Host:            getString(v, "DB_HOST"),
			Port:            getInt(v, "DB_PORT"),
			Name:            getString(v, "DB_NAME"),
			User:            getString(v, "DB_USER"),
			Password:        getString(v, "DB_PASS"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			URL:             v.GetString("DATABASE_URL"),
			MaxOpenConns:    getInt(v, "DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    getInt(v, "DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: seconds(v, "DB_CONN_MAX_LIFETIME_SEC"),
			EnsureSchema:    getBool(v, "DB_ENSURE_SCHEMA"),
		},
		Session: SessionConfig{
			Secret:       v.GetString("SESSION_SECRET"),
			CookieName:   v.GetString("SESSION_COOKIE_NAME"),
			MaxAge:       seconds(v, "SESSION_MAX_AGE_SEC"),
			CookieSecure: getBool(v, "SESSION_COOKIE_SECURE"),
		},
		Auth: AuthConfig{
			PasswordMode: strings.ToLower(strings.TrimSpace(v.GetString("AUTH_PASSWORD_MODE"))),
			BcryptCost:   getInt(v, "AUTH_BCRYPT_COST"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		TemplatesDir: v.GetString("TEMPLATES_DIR"),
		AuditLogFile: v.GetString("AUDIT_LOG_FILE"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.HTTP.Addr == "" {
		return fmt.Errorf("HTTP_ADDR must not be empty")
	}
	switch c.DB.Driver {
	case DriverPostgres, DriverPGX, DriverMySQL, DriverSQLite:
	default:
		return fmt.Errorf("DB_DRIVER %q is not supported", c.DB.Driver)
	}
	if c.DB.Driver == DriverSQLite && c.DB.URL == "" && strings.TrimSpace(c.DB.Name) == "" {
		return fmt.Errorf("DB_NAME must name the sqlite database file")
	}
	if c.DB.Port < 0 {
		return fmt.Errorf("DB_PORT must be >= 0")
	}
	if strings.TrimSpace(c.Session.Secret) == "" {
		return fmt.Errorf("SESSION_SECRET must not be empty")
	}
	if c.Session.CookieName == "" {
		return fmt.Errorf("SESSION_COOKIE_NAME must not be empty")
	}
	if c.Session.MaxAge < 0 {
		return fmt.Errorf("SESSION_MAX_AGE_SEC must be >= 0")
	}
	switch c.Auth.PasswordMode {
	case PasswordModePlaintext:
	case PasswordModeBcrypt:
		if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
			return fmt.Errorf("AUTH_BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
		}
	default:
		return fmt.Errorf("AUTH_PASSWORD_MODE %q is not supported", c.Auth.PasswordMode)
	}
	return nil
}

func getString(v *viper.Viper, key string) string {
	if keepEmptyKeys[key] {
		if raw, ok := os.LookupEnv(key); ok {
			return raw
		}
	}
	return v.GetString(key)
}

// getInt falls back to the default when the value does not parse.
func getInt(v *viper.Viper, key string) int {
	fallback, _ := defaults[key].(int)
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func getBool(v *viper.Viper, key string) bool {
	fallback, _ := defaults[key].(bool)
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return fallback
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return b
}

func seconds(v *viper.Viper, key string) time.Duration {
	return time.Duration(getInt(v, key)) * time.Second
}

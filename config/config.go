package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

const (
	RevocationBackendMySQL = "mysql"
	RevocationBackendRedis = "redis"

	MailBackendSMTP = "smtp"
	MailBackendLog  = "log"
)

type Config struct {
	App        AppConfig
	HTTP       HTTPConfig
	GRPC       GRPCConfig
	MySQL      MySQLConfig
	JWT        JWTConfig
	Tokens     TokenConfig
	Password   PasswordConfig
	Mail       MailConfig
	Redis      RedisConfig
	Revocation RevocationConfig
	Log        LogConfig
}

type AppConfig struct {
	// SecretKey keys the password reset token HMAC. Defaults to the JWT secret.
	SecretKey               string
	ResetBaseURL            string
	RevealUnknownResetEmail bool
}

type HTTPConfig struct {
	Host string
	Port string
}

type GRPCConfig struct {
	Enabled bool
	Host    string
	Port    string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	Secret          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type TokenConfig struct {
	ResetTTL time.Duration
}

type PasswordConfig struct {
	Policy PasswordPolicy
}

type MailConfig struct {
	Backend     string
	Host        string
	Port        int
	Username    string
	Password    string
	From        string
	UseTLS      bool
	SendTimeout time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RevocationConfig struct {
	Backend       string
	PurgeInterval time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type PasswordPolicy struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumber    bool
	RequireSpecial   bool
}

func (p PasswordPolicy) Validate(password string) error {
	if len([]rune(password)) < p.MinLength {
		return fmt.Errorf("password must be at least %d characters long", p.MinLength)
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasNumber = true
		case unicode.IsPunct(ch) || unicode.IsSymbol(ch):
			hasSpecial = true
		}
	}

	var missing []string
	if p.RequireUppercase && !hasUpper {
		missing = append(missing, "uppercase letter")
	}
	if p.RequireLowercase && !hasLower {
		missing = append(missing, "lowercase letter")
	}
	if p.RequireNumber && !hasNumber {
		missing = append(missing, "number")
	}
	if p.RequireSpecial && !hasSpecial {
		missing = append(missing, "special character")
	}

	if len(missing) > 0 {
		return fmt.Errorf("password must contain at least one: %s", strings.Join(missing, ", "))
	}

	return nil
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignores error if not found)
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable is required")
	}

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}
	mysqlDSN, err := normalizeDSN(mysqlDSN)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			SecretKey:               getEnv("SECRET_KEY", jwtSecret),
			ResetBaseURL:            strings.TrimRight(getEnv("RESET_BASE_URL", "http://127.0.0.1:8080/api/v1/users/reset-password-confirm"), "/"),
			RevealUnknownResetEmail: getBoolEnv("RESET_REVEAL_UNKNOWN_EMAIL", false),
		},
		HTTP: HTTPConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		GRPC: GRPCConfig{
			Enabled: getBoolEnv("GRPC_ENABLED", true),
			Host:    getEnv("GRPC_HOST", "0.0.0.0"),
			Port:    getEnv("GRPC_PORT", "9090"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDurationEnv("MYSQL_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		JWT: JWTConfig{
			Secret:          jwtSecret,
			AccessTokenTTL:  getDurationEnv("JWT_ACCESS_TOKEN_TTL", 15*time.Minute),
			RefreshTokenTTL: getDurationEnv("JWT_REFRESH_TOKEN_TTL", 7*24*time.Hour),
		},
		Tokens: TokenConfig{
			ResetTTL: getDurationEnv("RESET_TOKEN_TTL", 3*24*time.Hour),
		},
		Password: PasswordConfig{
			Policy: loadPasswordPolicy(),
		},
		Mail: MailConfig{
			Backend:     strings.ToLower(getEnv("MAIL_BACKEND", MailBackendLog)),
			Host:        getEnv("SMTP_HOST", "localhost"),
			Port:        getIntEnv("SMTP_PORT", 587),
			Username:    os.Getenv("SMTP_USERNAME"),
			Password:    os.Getenv("SMTP_PASSWORD"),
			From:        getEnv("MAIL_FROM", "no-reply@localhost"),
			UseTLS:      getBoolEnv("SMTP_TLS", false),
			SendTimeout: getSecondsEnv("MAIL_SEND_TIMEOUT", 10*time.Second),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Revocation: RevocationConfig{
			Backend:       strings.ToLower(getEnv("REVOCATION_BACKEND", RevocationBackendMySQL)),
			PurgeInterval: getDurationEnv("REVOCATION_PURGE_INTERVAL", time.Hour),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
	}

	if cfg.JWT.AccessTokenTTL >= cfg.JWT.RefreshTokenTTL {
		return nil, errors.New("JWT_ACCESS_TOKEN_TTL must be shorter than JWT_REFRESH_TOKEN_TTL")
	}
	switch cfg.Revocation.Backend {
	case RevocationBackendMySQL, RevocationBackendRedis:
	default:
		return nil, fmt.Errorf("unsupported REVOCATION_BACKEND %q", cfg.Revocation.Backend)
	}
	switch cfg.Mail.Backend {
	case MailBackendSMTP, MailBackendLog:
	default:
		return nil, fmt.Errorf("unsupported MAIL_BACKEND %q", cfg.Mail.Backend)
	}

	return cfg, nil
}

func (c *Config) DSN() string {
	return c.MySQL.DSN
}

// normalizeDSN forces parseTime and UTC so DATETIME columns scan into time.Time.
func normalizeDSN(dsn string) (string, error) {
	parsed, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid MYSQL_DSN: %w", err)
	}
	parsed.ParseTime = true
	parsed.Loc = time.UTC
	return parsed.FormatDSN(), nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv reads a value expressed in minutes.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func loadPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:        getIntEnv("PASSWORD_MIN_LENGTH", 6),
		RequireUppercase: getBoolEnv("PASSWORD_REQUIRE_UPPERCASE", false),
		RequireLowercase: getBoolEnv("PASSWORD_REQUIRE_LOWERCASE", false),
		RequireNumber:    getBoolEnv("PASSWORD_REQUIRE_NUMBER", false),
		RequireSpecial:   getBoolEnv("PASSWORD_REQUIRE_SPECIAL", false),
	}
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	DbHost    string
	DbPort    string
	DbUser    string
	DbPass    string
	DbName    string
	DbSSLMode string

	JWTSecret      string
	AccessTokenTTL string

	Log      string
	LogLevel string
	Env      string // dev|prod

	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string

	ResetCodeLength        string
	ResetMaxAttempts       string
	ResetCodeTTLMin        string
	ResetTokenTTLMin       string
	ResetTokenRandomLength string
}

// LoadConfig загружает .env, читает переменные окружения и выставляет дефолты.
// Ничего не логирует — чтобы не создавать зависимость от logger.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	def := func(v, d string) string {
		v = strings.TrimSpace(v)
		if v == "" {
			return d
		}
		return v
	}

	cfg := &Config{
		Port:      def(os.Getenv("PORT"), "8080"),
		DbHost:    os.Getenv("DB_HOST"),
		DbPort:    def(os.Getenv("DB_PORT"), "5432"),
		DbUser:    os.Getenv("DB_USER"),
		DbPass:    os.Getenv("DB_PASSWORD"),
		DbName:    os.Getenv("DB_NAME"),
		DbSSLMode: def(os.Getenv("DB_SSLMODE"), "disable"),

		JWTSecret:      os.Getenv("JWT_SECRET"),
		AccessTokenTTL: def(os.Getenv("ACCESS_TOKEN_EXPIRY"), "15m"),

		Log:      os.Getenv("LOG"),
		LogLevel: strings.ToLower(def(os.Getenv("LOGLEVEL"), "info")),
		Env:      strings.ToLower(def(os.Getenv("ENV"), "prod")),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     def(os.Getenv("SMTP_PORT"), "587"),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),

		ResetCodeLength:        def(os.Getenv("RESET_CODE_LENGTH"), "8"),
		ResetMaxAttempts:       def(os.Getenv("RESET_MAX_ATTEMPTS"), "5"),
		ResetCodeTTLMin:        def(os.Getenv("RESET_CODE_TTL_MIN"), "15"),
		ResetTokenTTLMin:       def(os.Getenv("RESET_TOKEN_TTL_MIN"), "5"),
		ResetTokenRandomLength: def(os.Getenv("RESET_TOKEN_RANDOM_LENGTH"), "30"),
	}

	return cfg, nil
}

// Validate возвращает предупреждения и фатальную ошибку (если критично).
func (c *Config) Validate() (warnings []string, err error) {
	// Критичные: БД
	if c.DbHost == "" || c.DbUser == "" || c.DbName == "" {
		return nil, fmt.Errorf("incomplete DB config (DB_HOST/DB_USER/DB_NAME)")
	}

	// JWT — предупреждение (можно сделать ошибкой, если нужно)
	if strings.TrimSpace(c.JWTSecret) == "" {
		warnings = append(warnings, "JWT_SECRET is empty")
	}

	// SMTP — предупреждение: без него коды восстановления не уйдут
	if c.SMTPHost == "" || c.SMTPUser == "" {
		warnings = append(warnings, "SMTP is not fully configured")
	}

	// PORT
	if c.Port == "" {
		warnings = append(warnings, "PORT is empty, using default 8080")
	}

	// Параметры восстановления — ошибка, если не парсятся
	if _, err := c.ResetPolicy(); err != nil {
		return warnings, err
	}

	return warnings, nil
}

// ResetPolicyConfig — разобранные настройки восстановления пароля.
type ResetPolicyConfig struct {
	CodeLength        int
	MaxAttempts       int
	CodeTTL           time.Duration
	TokenTTL          time.Duration
	TokenRandomLength int
}

func (c *Config) ResetPolicy() (ResetPolicyConfig, error) {
	var p ResetPolicyConfig
	var err error

	if p.CodeLength, err = strconv.Atoi(c.ResetCodeLength); err != nil || p.CodeLength <= 0 {
		return p, fmt.Errorf("invalid RESET_CODE_LENGTH: %q", c.ResetCodeLength)
	}
	if p.MaxAttempts, err = strconv.Atoi(c.ResetMaxAttempts); err != nil || p.MaxAttempts <= 0 {
		return p, fmt.Errorf("invalid RESET_MAX_ATTEMPTS: %q", c.ResetMaxAttempts)
	}
	codeMin, err := strconv.Atoi(c.ResetCodeTTLMin)
	if err != nil || codeMin <= 0 {
		return p, fmt.Errorf("invalid RESET_CODE_TTL_MIN: %q", c.ResetCodeTTLMin)
	}
	tokenMin, err := strconv.Atoi(c.ResetTokenTTLMin)
	if err != nil || tokenMin <= 0 {
		return p, fmt.Errorf("invalid RESET_TOKEN_TTL_MIN: %q", c.ResetTokenTTLMin)
	}
	if p.TokenRandomLength, err = strconv.Atoi(c.ResetTokenRandomLength); err != nil || p.TokenRandomLength <= 0 {
		return p, fmt.Errorf("invalid RESET_TOKEN_RANDOM_LENGTH: %q", c.ResetTokenRandomLength)
	}

	p.CodeTTL = time.Duration(codeMin) * time.Minute
	p.TokenTTL = time.Duration(tokenMin) * time.Minute
	return p, nil
}

// GetDSN — полная DSN (с паролем)
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DbUser, c.DbPass, c.DbHost, c.DbPort, c.DbName, c.DbSSLMode,
	)
}

// GetDSNSafe — DSN без пароля (для логов)
func (c *Config) GetDSNSafe() string {
	return fmt.Sprintf(
		"postgres://%s:***@%s:%s/%s?sslmode=%s",
		c.DbUser, c.DbHost, c.DbPort, c.DbName, c.DbSSLMode,
	)
}

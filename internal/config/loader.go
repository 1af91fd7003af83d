package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	errs "github.com/edgard/foodlens/internal/errors"
)

var sqlIdentRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

// ValidIdentifier reports whether name is safe to interpolate as a SQL table name.
func ValidIdentifier(name string) bool {
	return sqlIdentRe.MatchString(name)
}

// Load reads configuration in increasing priority from:
// 1. built-in defaults
// 2. the YAML file at path (optional; "" skips it)
// 3. a .env file in the working directory (optional)
// 4. FOODLENS_* environment variables
func Load(path string) (*Config, error) {
	startTime := time.Now()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errs.NewConfigError("failed to load .env file", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, errs.NewConfigError(fmt.Sprintf("failed to read config file %s", path), err)
			}
			slog.Info("Configuration file not found, using defaults and environment", "path", path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errs.NewConfigError("failed to parse configuration", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slog.Debug("Configuration loaded",
		"http_addr", cfg.HTTP.Addr,
		"telegram_enabled", cfg.Telegram.Token != "",
		"webhook_mode", cfg.Telegram.WebhookURL != "",
		"storage_backend", cfg.Storage.Backend,
		"database_driver", cfg.Database.Driver,
		"duration", time.Since(startTime))
	return cfg, nil
}

// Validate checks every field rule and returns a ConfigError listing the failures.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.RegisterValidation("sqlident", func(fl validator.FieldLevel) bool {
		return ValidIdentifier(fl.Field().String())
	}); err != nil {
		return errs.NewConfigError("failed to register validation", err)
	}

	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errs.NewConfigError("invalid configuration", err)
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return errs.NewConfigError("invalid configuration: "+strings.Join(problems, "; "), err)
}

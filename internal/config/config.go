// Package config loads the configuration of the eddytor command from the
// environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shodgson/eddytor/highlight"
)

type Config struct {
	App    AppConfig
	Editor EditorConfig
}

type AppConfig struct {
	Environment string `validate:"oneof=development production test"`
	LogLevel    string `validate:"oneof=debug info warn error"`
	// LogFilePath is the rotated JSON log file. Empty disables it.
	LogFilePath string
}

type EditorConfig struct {
	// CodeLanguage is the language of inserted code blocks. Empty lets the
	// language be detected.
	CodeLanguage  string        `validate:"omitempty,codelang"`
	HighlightTTL  time.Duration `validate:"min=1s"`
	CheckingDelay time.Duration `validate:"min=0s,max=10s"`
}

// IsProduction tells whether the logs are meant for machines.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Load reads the .env files, the default one when none is given, then the
// environment, and validates the result. Missing files are ignored and
// variables already set in the environment win over the files.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading env file: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Environment: getEnv("GO_ENV", "development"),
			LogLevel:    strings.ToLower(getEnv("LOG_LEVEL", "info")),
			LogFilePath: getEnv("LOG_FILE_PATH", ""),
		},
		Editor: EditorConfig{
			CodeLanguage:  strings.ToLower(getEnv("EDDYTOR_CODE_LANGUAGE", "")),
			HighlightTTL:  getEnvAsDuration("EDDYTOR_HIGHLIGHT_TTL", highlight.DefaultTTL),
			CheckingDelay: getEnvAsDuration("EDDYTOR_CHECKING_DELAY", 300*time.Millisecond),
		},
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("codelang", func(fl validator.FieldLevel) bool {
		for _, lang := range highlight.Languages {
			if lang.Value != "" && lang.Value == fl.Field().String() {
				return true
			}
		}
		return false
	})
	return v
}

// Validate checks the values of a configuration.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

type Config struct {
	Database    DatabaseConfig    `toml:"database"`
	Eligibility EligibilityConfig `toml:"eligibility"`
	Logging     LoggingConfig     `toml:"logging"`
	Board       BoardConfig       `toml:"board"`
	Keys        KeyConfig         `toml:"keys"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type EligibilityConfig struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type LoggingConfig struct {
	Level   string `toml:"level"`
	DevFile string `toml:"dev_file"`
}

type BoardConfig struct {
	ShowClientNames bool   `toml:"show_client_names"`
	ShowStageRoles  bool   `toml:"show_stage_roles"`
	DefaultTypeName string `toml:"default_type_name"`
}

type KeyConfig struct {
	MultiSelect string `toml:"multi_select"`
	MoveLeft    string `toml:"move_left"`
	MoveRight   string `toml:"move_right"`
}

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Eligibility: EligibilityConfig{
			BaseURL:        "",
			TimeoutSeconds: 10,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Board: BoardConfig{
			ShowClientNames: true,
			ShowStageRoles:  false,
			DefaultTypeName: "Year End Accounts",
		},
		Keys: KeyConfig{
			MultiSelect: "v",
			MoveLeft:    "[",
			MoveRight:   "]",
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

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}

	if c.Eligibility.TimeoutSeconds < 0 {
		return fmt.Errorf("eligibility.timeout_seconds must be >= 0, got %d", c.Eligibility.TimeoutSeconds)
	}
	if base := strings.TrimSpace(c.Eligibility.BaseURL); base != "" {
		if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
			return fmt.Errorf("eligibility.base_url must be http(s), got %q", base)
		}
	}

	switch strings.TrimSpace(strings.ToLower(c.Logging.Level)) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}

	return nil
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// envPrefix namespaces the environment overrides, e.g.
// RECALL_DESIRED_RETENTION=0.85.
const envPrefix = "RECALL_"

// Config is the resolved runtime configuration. Precedence, lowest
// first: defaults, config file, environment, command-line flags.
type Config struct {
	// DBPath is the SQLite file holding schedule state.
	DBPath string `koanf:"db_path" validate:"required"`
	// DataDir holds checkouts of remote card sources.
	DataDir string `koanf:"data_dir" validate:"required"`
	// Sources are local directories or git URLs to scan for decks.
	Sources []string `koanf:"sources"`

	DesiredRetention float64 `koanf:"desired_retention" validate:"gte=0.5,lte=0.995"`
	CardLimit        int     `koanf:"card_limit" validate:"gte=0"`
	NewCardLimit     int     `koanf:"new_card_limit" validate:"gte=0"`

	GeminiModel       string `koanf:"gemini_model"`
	GeminiAPIKey      string `koanf:"gemini_api_key"`
	RephraseQuestions bool   `koanf:"rephrase_questions"`
}

var defaults = map[string]interface{}{
	"db_path":            "recall.db",
	"data_dir":           "repos",
	"desired_retention":  0.9,
	"card_limit":         0,
	"new_card_limit":     10,
	"gemini_model":       "gemini-2.0-flash",
	"rephrase_questions": false,
}

// Load resolves the configuration. configPath may be empty; a missing
// file is only an error when one was asked for explicitly.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment config: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flag config: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.GeminiAPIKey == "" {
		cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

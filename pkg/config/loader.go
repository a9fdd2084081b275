package config

import (
	"errors"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if SHARPLINE_CONFIG is set
//  3. env (prefix SHARPLINE_)
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("SHARPLINE_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// Environment variables: SHARPLINE_ADDR, SHARPLINE_LEDGER_PATH, ...
	// Map env keys like SHARPLINE_LEDGER_PATH -> ledger_path (flat keys)
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("SHARPLINE_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "sharpline_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if cfg.Addr == "" {
		return nil, errors.New("addr must not be empty")
	}
	if cfg.LedgerPath == "" {
		return nil, errors.New("ledger_path must not be empty")
	}
	if len(cfg.Sports) == 0 {
		return nil, errors.New("at least one sport must be configured")
	}
	if cfg.PolicyGate != "" && cfg.PolicyGate != "and" && cfg.PolicyGate != "or" {
		return nil, errors.New(`policy_gate must be "and" or "or"`)
	}
	return &cfg, nil
}

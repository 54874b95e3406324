package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that override the YAML configuration.
const (
	EnvEffect    = "AUTOGIF_EFFECT"
	EnvIntensity = "AUTOGIF_INTENSITY"
	EnvFPS       = "AUTOGIF_FPS"
	EnvFontFile  = "AUTOGIF_FONT_FILE"
	EnvWordMode  = "AUTOGIF_WORD_MODE"
)

// LoadDotEnv reads .env from the project root into the process environment
// without replacing variables that are already set. A missing file is not an
// error.
func LoadDotEnv(projectRoot string) error {
	path := filepath.Join(projectRoot, ".env")
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat .env: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// ApplyEnv applies the AUTOGIF_* overrides read through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if v, ok := lookup(EnvEffect); ok && strings.TrimSpace(v) != "" {
		c.Effect.Slug = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvIntensity); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvIntensity, err)
		}
		c.Effect.Intensity = intPtr(n)
	}
	if v, ok := lookup(EnvFPS); ok && strings.TrimSpace(v) != "" {
		fps, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvFPS, err)
		}
		c.Output.FPS = fps
	}
	if v, ok := lookup(EnvFontFile); ok && strings.TrimSpace(v) != "" {
		c.Style.FontFile = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvWordMode); ok && strings.TrimSpace(v) != "" {
		c.Effect.WordMode = strings.TrimSpace(v)
	}
	return nil
}

// LoadProject loads the YAML file, then .env from projectRoot, then applies
// the environment overrides.
func LoadProject(path, projectRoot string) (Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return Config{}, err
	}
	if err := LoadDotEnv(projectRoot); err != nil {
		return Config{}, err
	}
	if err := cfg.ApplyEnv(nil); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/flowdeck/flowdeck/internal/autosave"
)

// Config holds all flowdeck CLI configuration.
// Priority: env vars > settings.json > defaults.
type Config struct {
	DBPath           string `json:"db_path"`
	LogLevel         string `json:"log_level"`
	LogFormat        string `json:"log_format"`
	ParserURL        string `json:"parser_url"`
	ParserToken      string `json:"parser_token"`
	AutosaveSchedule string `json:"autosave_schedule"`
}

func defaultConfig() Config {
	return Config{
		DBPath:           filepath.Join(flowdeckDir(), "flowdeck.db"),
		LogLevel:         "info",
		LogFormat:        "text",
		AutosaveSchedule: autosave.DefaultSchedule,
	}
}

func flowdeckDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".flowdeck"
	}
	return filepath.Join(home, ".flowdeck")
}

func settingsPath() string {
	return filepath.Join(flowdeckDir(), "settings.json")
}

func loadConfig() Config {
	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(settingsPath()); err == nil {
		_ = json.Unmarshal(data, &cfg)
	}

	// Layer 3: env vars override.
	if v := os.Getenv("FLOWDECK_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("FLOWDECK_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("FLOWDECK_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("FLOWDECK_PARSER_URL"); v != "" {
		cfg.ParserURL = v
	}
	if v := os.Getenv("FLOWDECK_PARSER_TOKEN"); v != "" {
		cfg.ParserToken = v
	}
	if v := os.Getenv("FLOWDECK_AUTOSAVE_SCHEDULE"); v != "" {
		cfg.AutosaveSchedule = v
	}

	return cfg
}

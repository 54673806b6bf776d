package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"cratekeeper/internal/constants"
)

// Config holds all application configuration
type Config struct {
	Port           string
	DBPath         string
	LibraryDir     string
	EagleURL       string
	EagleToken     string
	EagleFolderID  string
	NotionToken    string
	NotionBaseURL  string
	NotionTracksDB string
	NotionIssuesDB string
	Formats        []string
	Concurrency    int
	TargetLUFS     float64
	LogLevel       string
	LogFormat      string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	home, _ := os.UserHomeDir()
	defaultLibrary := filepath.Join(home, "Music/cratekeeper")

	return &Config{
		Port:           getEnv("PORT", constants.DefaultPort),
		DBPath:         getEnv("DB_PATH", constants.DefaultDBPath),
		LibraryDir:     getEnv("LIBRARY_DIR", defaultLibrary),
		EagleURL:       getEnv("EAGLE_URL", constants.DefaultEagleURL),
		EagleToken:     getEnv("EAGLE_TOKEN", ""),
		EagleFolderID:  getEnv("EAGLE_FOLDER_ID", ""),
		NotionToken:    getEnv("NOTION_TOKEN", ""),
		NotionBaseURL:  getEnv("NOTION_BASE_URL", constants.DefaultNotionBaseURL),
		NotionTracksDB: getEnv("NOTION_TRACKS_DB", ""),
		NotionIssuesDB: getEnv("NOTION_ISSUES_DB", ""),
		Formats:        splitList(getEnv("FORMATS", "aiff,m4a,wav")),
		Concurrency:    getEnvInt("CONCURRENCY", constants.DefaultConcurrency),
		TargetLUFS:     getEnvFloat("TARGET_LUFS", constants.DefaultTargetLUFS),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "text"),
	}
}

// Validate validates the configuration and returns detailed errors
func (c *Config) Validate() error {
	var errors []string

	if c.Port == "" {
		errors = append(errors, "PORT cannot be empty")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("PORT must be a valid number, got: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("PORT must be between 1 and 65535, got: %d", port))
		}
	}

	if c.DBPath == "" {
		errors = append(errors, "DB_PATH cannot be empty")
	}

	if c.LibraryDir == "" {
		errors = append(errors, "LIBRARY_DIR cannot be empty")
	}

	if c.EagleURL == "" {
		errors = append(errors, "EAGLE_URL cannot be empty")
	} else {
		if _, err := url.Parse(c.EagleURL); err != nil {
			errors = append(errors, fmt.Sprintf("EAGLE_URL is not a valid URL: %s", c.EagleURL))
		}
	}

	if c.NotionToken == "" {
		errors = append(errors, "NOTION_TOKEN cannot be empty")
	}

	if c.NotionTracksDB == "" {
		errors = append(errors, "NOTION_TRACKS_DB cannot be empty")
	}

	validFormats := map[string]bool{
		"aiff": true,
		"m4a":  true,
		"wav":  true,
		"mp3":  true,
		"flac": true,
	}
	if len(c.Formats) == 0 {
		errors = append(errors, "FORMATS cannot be empty")
	}
	for _, f := range c.Formats {
		if !validFormats[f] {
			errors = append(errors, fmt.Sprintf("FORMATS must contain only aiff, m4a, wav, mp3, flac, got: %s", f))
		}
	}

	if c.Concurrency < 1 || c.Concurrency > 16 {
		errors = append(errors, fmt.Sprintf("CONCURRENCY must be between 1 and 16, got: %d", c.Concurrency))
	}

	if c.TargetLUFS > 0 || c.TargetLUFS < -36 {
		errors = append(errors, fmt.Sprintf("TARGET_LUFS must be between -36 and 0, got: %g", c.TargetLUFS))
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: debug, info, warn, error, got: %s", c.LogLevel))
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.LogFormat] {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: text, json, got: %s", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

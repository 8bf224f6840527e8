package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// RuntimeSettings are translation defaults editable while the server runs. They
// fill the optional fields of a translate request.
type RuntimeSettings struct {
	OllamaHost     string `json:"ollama_host"`
	OllamaModel    string `json:"ollama_model"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
	BatchSize      int    `json:"batch_size"`
	MaxWorkers     int    `json:"max_workers"`
}

func (s RuntimeSettings) Validate() error {
	if _, err := ParseLanguage(s.SourceLanguage, true); err != nil {
		return fmt.Errorf("invalid source_language: %w", err)
	}
	if strings.TrimSpace(s.TargetLanguage) == "" {
		return fmt.Errorf("target_language is required")
	}
	if _, err := ParseLanguage(s.TargetLanguage, false); err != nil {
		return fmt.Errorf("invalid target_language: %w", err)
	}
	if s.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive")
	}
	if s.MaxWorkers <= 0 {
		return fmt.Errorf("max_workers must be positive")
	}
	return nil
}

func (c *Config) RuntimeSettings() RuntimeSettings {
	return RuntimeSettings{
		SourceLanguage: c.Translate.SourceLanguage,
		TargetLanguage: c.Translate.TargetLanguage,
		BatchSize:      c.Translate.BatchSize,
		MaxWorkers:     c.Translate.MaxWorkers,
	}
}

// WithRuntimeSettings overrides the translate defaults with non-empty settings.
func WithRuntimeSettings(settings RuntimeSettings) Option {
	return func(c *Config) error {
		if strings.TrimSpace(settings.SourceLanguage) != "" {
			c.Translate.SourceLanguage = settings.SourceLanguage
		}
		if strings.TrimSpace(settings.TargetLanguage) != "" {
			c.Translate.TargetLanguage = settings.TargetLanguage
		}
		if settings.BatchSize > 0 {
			c.Translate.BatchSize = settings.BatchSize
		}
		if settings.MaxWorkers > 0 {
			c.Translate.MaxWorkers = settings.MaxWorkers
		}
		return nil
	}
}

func LoadRuntimeSettingsFile(path string) (RuntimeSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuntimeSettings{}, err
	}
	var settings RuntimeSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return RuntimeSettings{}, fmt.Errorf("invalid settings file: %w", err)
	}
	return settings, nil
}

func WriteRuntimeSettingsFile(path string, settings RuntimeSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	content, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	content = append(content, '\n')

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// RuntimeSettingsStore holds the current settings and writes updates through to
// its file.
type RuntimeSettingsStore struct {
	path string

	mu      sync.RWMutex
	current RuntimeSettings
}

func NewRuntimeSettingsStore(path string, initial RuntimeSettings) (*RuntimeSettingsStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("settings file path is required")
	}
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	return &RuntimeSettingsStore{
		path:    path,
		current: initial,
	}, nil
}

func (s *RuntimeSettingsStore) GetRuntimeSettings() (RuntimeSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, nil
}

func (s *RuntimeSettingsStore) UpdateRuntimeSettings(next RuntimeSettings) (RuntimeSettings, error) {
	if err := next.Validate(); err != nil {
		return RuntimeSettings{}, err
	}
	if err := WriteRuntimeSettingsFile(s.path, next); err != nil {
		return RuntimeSettings{}, err
	}

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
	return next, nil
}

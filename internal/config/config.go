package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/MimeLyc/subtitle-studio/pkg/icron"
	"github.com/MimeLyc/subtitle-studio/pkg/log"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
)

// Config holds all application configuration.
//
// Values come from the environment (optionally seeded from a .env file), then
// from options such as WithFile, and are validated last.
//
// Environment Variables:
// - HTTP_ADDR: listen address (default: :5000)
// - UI_STATIC_DIR: static web UI directory (default: web)
// - MAX_UPLOAD_BYTES: upload size limit (default: 2 GiB)
// - UPLOAD_DIR / OUTPUT_DIR: file folders (default: uploads / outputs)
// - DATA_DIR: task database, lock and settings (default: data)
// - OLLAMA_PORT: port used for bare Ollama hosts (default: 11434)
// - TRANSLATE_TIMEOUT / MODELS_TIMEOUT: seconds (default: 300 / 30)
// - TRANSLATE_BATCH_SIZE / TRANSLATE_MAX_WORKERS (default: 10 / 5)
// - SOURCE_LANGUAGE / TARGET_LANGUAGE: BCP 47 tags, "auto" detects the source (default: ja / zh-Hans)
// - TASK_WORKERS: concurrent translation tasks (default: 2)
// - FFMPEG_CMD / WHISPER_CMD / WHISPER_MODEL (default: ffmpeg / whisper / base)
// - CLEANUP_CRON: cleanup schedule, empty disables (default: "")
// - CLEANUP_MAX_AGE_HOURS (default: 168)
// - LOG_LEVEL: debug|info|warn|error (default: info)
type Config struct {
	HTTP       HTTPConfig       `toml:"http" json:"http"`
	Storage    StorageConfig    `toml:"storage" json:"storage"`
	Ollama     OllamaConfig     `toml:"ollama" json:"ollama"`
	Translate  TranslateConfig  `toml:"translate" json:"translate"`
	Tasks      TasksConfig      `toml:"tasks" json:"tasks"`
	Transcribe TranscribeConfig `toml:"transcribe" json:"transcribe"`
	Cleanup    CleanupConfig    `toml:"cleanup" json:"cleanup"`
	Log        LogConfig        `toml:"log" json:"log"`
}

type HTTPConfig struct {
	Addr           string `toml:"addr" json:"addr"`
	UIStaticDir    string `toml:"ui_static_dir" json:"ui_static_dir"`
	UIEnabled      bool   `toml:"ui_enabled" json:"ui_enabled"`
	MaxUploadBytes int64  `toml:"max_upload_bytes" json:"max_upload_bytes"`
}

type StorageConfig struct {
	UploadDir string `toml:"upload_dir" json:"upload_dir"`
	OutputDir string `toml:"output_dir" json:"output_dir"`
	DataDir   string `toml:"data_dir" json:"data_dir"`
}

type OllamaConfig struct {
	Port int `toml:"port" json:"port"`
	// seconds
	ChatTimeout   int `toml:"chat_timeout" json:"chat_timeout"`
	ModelsTimeout int `toml:"models_timeout" json:"models_timeout"`
}

func (c OllamaConfig) ChatTimeoutDuration() time.Duration {
	return time.Duration(c.ChatTimeout) * time.Second
}

func (c OllamaConfig) ModelsTimeoutDuration() time.Duration {
	return time.Duration(c.ModelsTimeout) * time.Second
}

type TranslateConfig struct {
	BatchSize      int    `toml:"batch_size" json:"batch_size"`
	MaxWorkers     int    `toml:"max_workers" json:"max_workers"`
	SourceLanguage string `toml:"source_language" json:"source_language"`
	TargetLanguage string `toml:"target_language" json:"target_language"`
}

// SourceTag returns the configured source language; language.Und means detect.
func (c TranslateConfig) SourceTag() language.Tag {
	tag, _ := ParseLanguage(c.SourceLanguage, true)
	return tag
}

func (c TranslateConfig) TargetTag() language.Tag {
	tag, _ := ParseLanguage(c.TargetLanguage, false)
	return tag
}

type TasksConfig struct {
	Workers int `toml:"workers" json:"workers"`
}

type TranscribeConfig struct {
	FFmpegCmd    string `toml:"ffmpeg_cmd" json:"ffmpeg_cmd"`
	WhisperCmd   string `toml:"whisper_cmd" json:"whisper_cmd"`
	DefaultModel string `toml:"default_model" json:"default_model"`
}

type CleanupConfig struct {
	Cron        string `toml:"cron" json:"cron"`
	MaxAgeHours int    `toml:"max_age_hours" json:"max_age_hours"`
}

func (c CleanupConfig) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeHours) * time.Hour
}

type LogConfig struct {
	Level string `toml:"level" json:"level"`
}

func (c *Config) DBPath() string {
	return filepath.Join(c.Storage.DataDir, "tasks.db")
}

func (c *Config) LockPath() string {
	return filepath.Join(c.Storage.DataDir, "server.lock")
}

func (c *Config) SettingsPath() string {
	return filepath.Join(c.Storage.DataDir, "settings.json")
}

// Option adjusts a Config after the environment has been read.
type Option func(*Config) error

// WithFile overlays the values of a TOML file. Keys absent from the file keep
// their current value; unknown keys are an error.
func WithFile(path string) Option {
	return func(c *Config) error {
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open config file: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(c); err != nil {
			var strictErr *toml.StrictMissingError
			if errors.As(err, &strictErr) {
				return fmt.Errorf("parse config %s: %s", path, strictErr.String())
			}
			return fmt.Errorf("parse config %s: %w", path, err)
		}
		return nil
	}
}

// dotEnvFile is loaded into the process environment when present. Variables
// already set win.
const dotEnvFile = ".env"

// Default returns the built-in configuration without consulting the environment.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:           ":5000",
			UIStaticDir:    "web",
			UIEnabled:      true,
			MaxUploadBytes: 2 << 30,
		},
		Storage: StorageConfig{
			UploadDir: "uploads",
			OutputDir: "outputs",
			DataDir:   "data",
		},
		Ollama: OllamaConfig{
			Port:          11434,
			ChatTimeout:   300,
			ModelsTimeout: 30,
		},
		Translate: TranslateConfig{
			BatchSize:      10,
			MaxWorkers:     5,
			SourceLanguage: "ja",
			TargetLanguage: "zh-Hans",
		},
		Tasks: TasksConfig{
			Workers: 2,
		},
		Transcribe: TranscribeConfig{
			FFmpegCmd:    "ffmpeg",
			WhisperCmd:   "whisper",
			DefaultModel: "base",
		},
		Cleanup: CleanupConfig{
			MaxAgeHours: 168,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// NewFromEnv creates a Config from defaults, .env, environment variables and opts.
func NewFromEnv(opts ...Option) (*Config, error) {
	if err := loadDotEnv(dotEnvFile); err != nil {
		return nil, err
	}

	def := Default()
	config := &Config{
		HTTP: HTTPConfig{
			Addr:           getEnvString("HTTP_ADDR", def.HTTP.Addr),
			UIStaticDir:    getEnvString("UI_STATIC_DIR", def.HTTP.UIStaticDir),
			UIEnabled:      getEnvBool("UI_ENABLED", def.HTTP.UIEnabled),
			MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", def.HTTP.MaxUploadBytes),
		},
		Storage: StorageConfig{
			UploadDir: getEnvString("UPLOAD_DIR", def.Storage.UploadDir),
			OutputDir: getEnvString("OUTPUT_DIR", def.Storage.OutputDir),
			DataDir:   getEnvString("DATA_DIR", def.Storage.DataDir),
		},
		Ollama: OllamaConfig{
			Port:          getEnvInt("OLLAMA_PORT", def.Ollama.Port),
			ChatTimeout:   getEnvInt("TRANSLATE_TIMEOUT", def.Ollama.ChatTimeout),
			ModelsTimeout: getEnvInt("MODELS_TIMEOUT", def.Ollama.ModelsTimeout),
		},
		Translate: TranslateConfig{
			BatchSize:      getEnvInt("TRANSLATE_BATCH_SIZE", def.Translate.BatchSize),
			MaxWorkers:     getEnvInt("TRANSLATE_MAX_WORKERS", def.Translate.MaxWorkers),
			SourceLanguage: getEnvString("SOURCE_LANGUAGE", def.Translate.SourceLanguage),
			TargetLanguage: getEnvString("TARGET_LANGUAGE", def.Translate.TargetLanguage),
		},
		Tasks: TasksConfig{
			Workers: getEnvInt("TASK_WORKERS", def.Tasks.Workers),
		},
		Transcribe: TranscribeConfig{
			FFmpegCmd:    getEnvString("FFMPEG_CMD", def.Transcribe.FFmpegCmd),
			WhisperCmd:   getEnvString("WHISPER_CMD", def.Transcribe.WhisperCmd),
			DefaultModel: getEnvString("WHISPER_MODEL", def.Transcribe.DefaultModel),
		},
		Cleanup: CleanupConfig{
			Cron:        getEnvString("CLEANUP_CRON", def.Cleanup.Cron),
			MaxAgeHours: getEnvInt("CLEANUP_MAX_AGE_HOURS", def.Cleanup.MaxAgeHours),
		},
		Log: LogConfig{
			Level: getEnvString("LOG_LEVEL", def.Log.Level),
		},
	}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	log.Debug("Config: %+v", *config)
	return config, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		return fmt.Errorf("HTTP_ADDR is required")
	}
	if c.HTTP.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	for name, dir := range map[string]string{
		"UPLOAD_DIR": c.Storage.UploadDir,
		"OUTPUT_DIR": c.Storage.OutputDir,
		"DATA_DIR":   c.Storage.DataDir,
	} {
		if strings.TrimSpace(dir) == "" {
			return fmt.Errorf("%s is required", name)
		}
	}
	if c.Ollama.Port <= 0 || c.Ollama.Port > 65535 {
		return fmt.Errorf("OLLAMA_PORT out of range: %d", c.Ollama.Port)
	}
	if c.Ollama.ChatTimeout <= 0 || c.Ollama.ModelsTimeout <= 0 {
		return fmt.Errorf("TRANSLATE_TIMEOUT and MODELS_TIMEOUT must be positive")
	}
	if c.Translate.BatchSize <= 0 {
		return fmt.Errorf("TRANSLATE_BATCH_SIZE must be positive")
	}
	if c.Translate.MaxWorkers <= 0 {
		return fmt.Errorf("TRANSLATE_MAX_WORKERS must be positive")
	}
	if _, err := ParseLanguage(c.Translate.SourceLanguage, true); err != nil {
		return fmt.Errorf("invalid SOURCE_LANGUAGE: %w", err)
	}
	if _, err := ParseLanguage(c.Translate.TargetLanguage, false); err != nil {
		return fmt.Errorf("invalid TARGET_LANGUAGE: %w", err)
	}
	if c.Tasks.Workers <= 0 {
		return fmt.Errorf("TASK_WORKERS must be positive")
	}
	if c.Cleanup.Cron != "" {
		if _, err := icron.Parse(c.Cleanup.Cron); err != nil {
			return fmt.Errorf("invalid CLEANUP_CRON: %w", err)
		}
		if c.Cleanup.MaxAgeHours <= 0 {
			return fmt.Errorf("CLEANUP_MAX_AGE_HOURS must be positive")
		}
	}
	return nil
}

// ParseLanguage parses a BCP 47 tag. With allowAuto, "auto" and the empty string
// yield language.Und.
func ParseLanguage(value string, allowAuto bool) (language.Tag, error) {
	value = strings.TrimSpace(value)
	if allowAuto && (value == "" || strings.EqualFold(value, "auto")) {
		return language.Und, nil
	}
	if value == "" {
		return language.Und, fmt.Errorf("language is required")
	}
	tag, err := language.Parse(value)
	if err != nil {
		return language.Und, err
	}
	return tag, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

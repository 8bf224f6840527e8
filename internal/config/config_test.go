package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestNewFromEnv_Defaults(t *testing.T) {
	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.HTTP.Addr)
	assert.Equal(t, "web", cfg.HTTP.UIStaticDir)
	assert.Equal(t, int64(2<<30), cfg.HTTP.MaxUploadBytes)
	assert.Equal(t, "uploads", cfg.Storage.UploadDir)
	assert.Equal(t, "outputs", cfg.Storage.OutputDir)
	assert.Equal(t, filepath.Join("data", "tasks.db"), cfg.DBPath())
	assert.Equal(t, filepath.Join("data", "server.lock"), cfg.LockPath())
	assert.Equal(t, 11434, cfg.Ollama.Port)
	assert.Equal(t, 300*time.Second, cfg.Ollama.ChatTimeoutDuration())
	assert.Equal(t, 30*time.Second, cfg.Ollama.ModelsTimeoutDuration())
	assert.Equal(t, 10, cfg.Translate.BatchSize)
	assert.Equal(t, 5, cfg.Translate.MaxWorkers)
	assert.Equal(t, language.Japanese, cfg.Translate.SourceTag())
	assert.Equal(t, language.SimplifiedChinese, cfg.Translate.TargetTag())
	assert.Equal(t, 2, cfg.Tasks.Workers)
	assert.Empty(t, cfg.Cleanup.Cron)
	assert.Equal(t, 168*time.Hour, cfg.Cleanup.MaxAge())
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestNewFromEnv_FromEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", "127.0.0.1:8080")
	t.Setenv("DATA_DIR", "/tmp/studio-data")
	t.Setenv("TRANSLATE_BATCH_SIZE", "20")
	t.Setenv("TRANSLATE_MAX_WORKERS", "not-a-number")
	t.Setenv("SOURCE_LANGUAGE", "auto")
	t.Setenv("TARGET_LANGUAGE", "en")
	t.Setenv("CLEANUP_CRON", "0 3 * * *")
	t.Setenv("MAX_UPLOAD_BYTES", "1048576")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.HTTP.Addr)
	assert.Equal(t, filepath.Join("/tmp/studio-data", "tasks.db"), cfg.DBPath())
	assert.Equal(t, 20, cfg.Translate.BatchSize)
	assert.Equal(t, 5, cfg.Translate.MaxWorkers, "unparsable values fall back to the default")
	assert.Equal(t, language.Und, cfg.Translate.SourceTag())
	assert.Equal(t, language.English, cfg.Translate.TargetTag())
	assert.Equal(t, "0 3 * * *", cfg.Cleanup.Cron)
	assert.Equal(t, int64(1<<20), cfg.HTTP.MaxUploadBytes)
}

func TestNewFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{key: "CLEANUP_CRON", value: "every day"},
		{key: "TARGET_LANGUAGE", value: "not a language"},
		{key: "OLLAMA_PORT", value: "70000"},
		{key: "TASK_WORKERS", value: "0"},
		{key: "TRANSLATE_BATCH_SIZE", value: "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := NewFromEnv()
			require.Error(t, err)
		})
	}
}

func TestWithFile(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":7000")
	path := filepath.Join(t.TempDir(), "studio.toml")
	content := `
[translate]
batch_size = 25
target_language = "ko"

[cleanup]
cron = "@daily"
max_age_hours = 24
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := NewFromEnv(WithFile(path))
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.HTTP.Addr, "keys absent from the file keep env values")
	assert.Equal(t, 25, cfg.Translate.BatchSize)
	assert.Equal(t, 5, cfg.Translate.MaxWorkers)
	assert.Equal(t, language.Korean, cfg.Translate.TargetTag())
	assert.Equal(t, "@daily", cfg.Cleanup.Cron)
	assert.Equal(t, 24*time.Hour, cfg.Cleanup.MaxAge())
}

func TestWithFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewFromEnv(WithFile(filepath.Join(dir, "missing.toml")))
	require.Error(t, err)

	unknown := filepath.Join(dir, "unknown.toml")
	require.NoError(t, os.WriteFile(unknown, []byte("[translate]\nbatch = 3\n"), 0o644))
	_, err = NewFromEnv(WithFile(unknown))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown.toml")
}

func TestParseLanguage(t *testing.T) {
	tag, err := ParseLanguage("auto", true)
	require.NoError(t, err)
	assert.Equal(t, language.Und, tag)

	_, err = ParseLanguage("auto", false)
	require.Error(t, err)

	tag, err = ParseLanguage(" zh-Hans ", false)
	require.NoError(t, err)
	assert.Equal(t, language.SimplifiedChinese, tag)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("STUDIO_DOTENV_PROBE=from-file\n"), 0o644))
	t.Setenv("STUDIO_DOTENV_PROBE", "")
	require.NoError(t, os.Unsetenv("STUDIO_DOTENV_PROBE"))

	require.NoError(t, loadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("STUDIO_DOTENV_PROBE"))

	require.NoError(t, loadDotEnv(filepath.Join(dir, "absent.env")))
}

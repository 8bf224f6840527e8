package httpapi

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/subtitle-studio/internal/config"
)

type fakeSettingsStore struct {
	current   config.RuntimeSettings
	updateErr error
}

func (f *fakeSettingsStore) GetRuntimeSettings() (config.RuntimeSettings, error) {
	return f.current, nil
}

func (f *fakeSettingsStore) UpdateRuntimeSettings(next config.RuntimeSettings) (config.RuntimeSettings, error) {
	if f.updateErr != nil {
		return config.RuntimeSettings{}, f.updateErr
	}
	f.current = next
	return f.current, nil
}

func TestServer_ServesSPAFromStaticDir(t *testing.T) {
	staticDir := filepath.Join(t.TempDir(), "web")
	require.NoError(t, os.MkdirAll(filepath.Join(staticDir, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "index.html"), []byte("<html>spa</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "assets", "app.js"), []byte("console.log(1)"), 0o644))

	env := newTestEnv(t, WithUI(staticDir, true))

	for _, url := range []string{"/", "/history", "/missing.css"} {
		rec := env.do(httptest.NewRequest(http.MethodGet, url, nil))

		assert.Equal(t, http.StatusOK, rec.Code, url)
		assert.Contains(t, rec.Body.String(), "spa", url)
	}

	rec := env.do(httptest.NewRequest(http.MethodGet, "/assets/app.js", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "console.log")
}

func TestServer_UIDisabled(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Settings(t *testing.T) {
	store := &fakeSettingsStore{current: config.RuntimeSettings{
		OllamaHost:     "10.0.0.2",
		SourceLanguage: "ja",
		TargetLanguage: "zh-Hans",
		BatchSize:      10,
		MaxWorkers:     5,
	}}
	env := newTestEnv(t, WithRuntimeSettingsStore(store))

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/settings", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "10.0.0.2", decodeBody(t, rec)["ollama_host"])

	body := `{"ollama_host":"10.0.0.9","ollama_model":"qwen2.5:7b","source_language":"auto","target_language":"en","batch_size":20,"max_workers":2}`
	rec = env.do(httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "10.0.0.9", store.current.OllamaHost)
	assert.Equal(t, 20, store.current.BatchSize)

	rec = env.do(httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader(`{"target_language":"en","batch_size":0,"max_workers":1}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	store.updateErr = errors.New("disk full")
	rec = env.do(httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader(body)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServer_SettingsNotConfigured(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/settings", nil))

	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

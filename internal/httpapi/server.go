package httpapi

import (
	"context"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/MimeLyc/subtitle-studio/internal/config"
	"github.com/MimeLyc/subtitle-studio/internal/llm"
	"github.com/MimeLyc/subtitle-studio/internal/storage"
	"github.com/MimeLyc/subtitle-studio/internal/tasks"
	"github.com/MimeLyc/subtitle-studio/internal/transcribe"
	"github.com/MimeLyc/subtitle-studio/internal/translator"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const (
	outputsDownloadPrefix = "/outputs-download"
	uploadsDownloadPrefix = "/uploads-download"
)

type runtimeSettingsStore interface {
	GetRuntimeSettings() (config.RuntimeSettings, error)
	UpdateRuntimeSettings(next config.RuntimeSettings) (config.RuntimeSettings, error)
}

type modelLister interface {
	ListModels(ctx context.Context, hostIP string) ([]string, error)
}

type transcriber interface {
	Transcribe(ctx context.Context, req transcribe.Request) (*transcribe.Result, error)
}

// ChatClientFactory builds the chat client for one translate request.
type ChatClientFactory func(host string, port int) translator.ChatClient

type Server struct {
	cfg      *config.Config
	registry *tasks.Registry
	uploads  *storage.Folder
	outputs  *storage.Folder

	models      modelLister
	transcriber transcriber
	newClient   ChatClientFactory
	janitor     *storage.Janitor
	settings    runtimeSettingsStore

	uiEnabled   bool
	uiStaticDir string

	router *chi.Mux
	server *http.Server
}

type Option func(*Server)

func WithUI(staticDir string, enabled bool) Option {
	return func(s *Server) {
		s.uiStaticDir = staticDir
		s.uiEnabled = enabled
	}
}

func WithRuntimeSettingsStore(store runtimeSettingsStore) Option {
	return func(s *Server) {
		s.settings = store
	}
}

func WithModelLister(models modelLister) Option {
	return func(s *Server) {
		s.models = models
	}
}

func WithTranscriber(t transcriber) Option {
	return func(s *Server) {
		s.transcriber = t
	}
}

func WithChatClientFactory(factory ChatClientFactory) Option {
	return func(s *Server) {
		s.newClient = factory
	}
}

func WithJanitor(janitor *storage.Janitor) Option {
	return func(s *Server) {
		s.janitor = janitor
	}
}

// NewServer wires the HTTP surface. Collaborators not given as options are
// built from cfg.
func NewServer(cfg *config.Config, registry *tasks.Registry, uploads, outputs *storage.Folder, opts ...Option) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Server{
		cfg:      cfg,
		registry: registry,
		uploads:  uploads,
		outputs:  outputs,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.models == nil {
		s.models = llm.NewCatalog(cfg.Ollama.Port, cfg.Ollama.ModelsTimeoutDuration())
	}
	if s.transcriber == nil {
		s.transcriber = transcribe.Whisper{
			FFmpegCmd:      cfg.Transcribe.FFmpegCmd,
			WhisperCmd:     cfg.Transcribe.WhisperCmd,
			OutputDir:      outputs.Root(),
			DownloadPrefix: outputsDownloadPrefix,
		}
	}
	if s.newClient == nil {
		timeout := cfg.Ollama.ChatTimeoutDuration()
		s.newClient = func(host string, port int) translator.ChatClient {
			return llm.NewClient(llm.BaseURL(host, port), llm.WithChatTimeout(timeout))
		}
	}

	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(requestLogger)
	r.Use(cors.Handler(corsOptions()))

	r.Post("/get-ollama-models", s.handleModels)
	r.Post("/transcribe", s.handleTranscribe)
	r.Post("/translate", s.handleTranslate)
	r.Get("/status/{id}", s.handleStatus)

	s.folderRoutes(r, "outputs", s.outputs)
	s.folderRoutes(r, "uploads", s.uploads)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/tasks", s.handleListTasks)
		r.Get("/tasks/stream", s.handleTaskStream)
		r.Get("/tasks/{id}/preview", s.handleTaskPreview)
		r.Post("/tasks/{id}/cancel", s.handleCancelTask)
		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handleUpdateSettings)
	})

	r.NotFound(s.handleStatic)
	s.router = r
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.uiEnabled || s.uiStaticDir == "" {
		http.NotFound(w, r)
		return
	}

	rel := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	indexPath := filepath.Join(s.uiStaticDir, "index.html")

	if rel == "" || !strings.Contains(filepath.Base(rel), ".") {
		http.ServeFile(w, r, indexPath)
		return
	}

	filePath := filepath.Join(s.uiStaticDir, filepath.FromSlash(rel))
	if _, err := os.Stat(filePath); err != nil {
		// unknown asset paths still get the app shell
		http.ServeFile(w, r, indexPath)
		return
	}
	http.ServeFile(w, r, filePath)
}

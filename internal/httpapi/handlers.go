package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/MimeLyc/subtitle-studio/internal/config"
	"github.com/MimeLyc/subtitle-studio/internal/service"
	"github.com/MimeLyc/subtitle-studio/internal/tasks"
	"github.com/MimeLyc/subtitle-studio/internal/transcribe"
	"github.com/MimeLyc/subtitle-studio/pkg/log"
	"github.com/go-chi/chi/v5"
)

type statusResponse struct {
	Status   tasks.Status  `json:"status"`
	Progress int           `json:"progress"`
	Result   *tasks.Result `json:"result,omitempty"`
	Error    string        `json:"error,omitempty"`
}

type healthResponse struct {
	Status      string     `json:"status"`
	NextCleanup *time.Time `json:"next_cleanup"`
	LastCleanup *time.Time `json:"last_cleanup,omitempty"`
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HostIP string `json:"host_ip"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if strings.TrimSpace(req.HostIP) == "" {
		writeError(w, http.StatusBadRequest, "Host IP is required.")
		return
	}

	models, err := s.models.ListModels(r.Context(), req.HostIP)
	if err != nil {
		log.Warn("List models on %s: %v", req.HostIP, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"models": models,
	})
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	src, header, ok := s.receiveUpload(w, r, "mp4", "mp3")
	if !ok {
		return
	}
	defer src.Close()

	name, ok := s.storeUpload(w, header.Filename, src)
	if !ok {
		return
	}

	model := strings.TrimSpace(r.FormValue("model"))
	if model == "" {
		model = s.cfg.Transcribe.DefaultModel
	}
	result, err := s.transcriber.Transcribe(r.Context(), transcribe.Request{
		Path:     filepath.Join(s.uploads.Root(), name),
		Language: strings.TrimSpace(r.FormValue("language")),
		Model:    model,
	})
	if err != nil {
		log.Error("Transcribe %s: %v", name, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	src, header, ok := s.receiveUpload(w, r, "srt")
	if !ok {
		return
	}
	defer src.Close()

	host := strings.TrimSpace(r.FormValue("ollama_host"))
	model := strings.TrimSpace(r.FormValue("ollama_model"))
	if host == "" || model == "" {
		writeError(w, http.StatusBadRequest, "Ollama Host and Model are required.")
		return
	}

	defaults, err := s.translateDefaults()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	req, err := parseTranslateForm(r, defaults, s.cfg.Ollama.Port)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	name, ok := s.storeUpload(w, header.Filename, src)
	if !ok {
		return
	}

	job := service.NewTranslationJob(service.JobConfig{
		InputPath:      filepath.Join(s.uploads.Root(), name),
		OutputDir:      s.outputs.Root(),
		DownloadPrefix: outputsDownloadPrefix,
		Model:          model,
		Source:         req.source,
		Target:         req.target,
		BatchSize:      req.batchSize,
		MaxWorkers:     req.maxWorkers,
	}, s.newClient(host, req.port))

	handle := s.registry.Submit(tasks.KindTranslate, name, job.Run)
	log.Info("Queued translation %s of %s with %s", handle.ID, name, model)
	writeJSON(w, http.StatusOK, map[string]any{
		"task_id": handle.ID,
	})
}

// translateDefaults overlays the persisted runtime settings on the configured defaults.
func (s *Server) translateDefaults() (config.TranslateConfig, error) {
	cfg := *s.cfg
	if s.settings != nil {
		settings, err := s.settings.GetRuntimeSettings()
		if err != nil {
			return cfg.Translate, err
		}
		if err := config.WithRuntimeSettings(settings)(&cfg); err != nil {
			return cfg.Translate, err
		}
	}
	return cfg.Translate, nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.registry.Get(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"status": "not_found",
		})
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Status:   rec.Status,
		Progress: rec.Progress,
		Result:   rec.Result,
		Error:    rec.Error,
	})
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"tasks": s.registry.List(),
	})
}

func (s *Server) handleCancelTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.registry.Get(id); !ok {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	if !s.registry.Cancel(id) {
		writeError(w, http.StatusConflict, "task already finished")
		return
	}
	rec, _ := s.registry.Get(id)
	writeJSON(w, http.StatusAccepted, rec)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if s.janitor != nil {
		info, err := s.janitor.TriggerInfo(time.Now())
		if err != nil {
			log.Warn("Cleanup schedule: %v", err)
		} else if info != nil {
			resp.NextCleanup = &info.Next
		}
		if last := s.janitor.LastReport(); last != nil {
			resp.LastCleanup = &last.FinishedAt
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		writeError(w, http.StatusNotImplemented, "settings store is not configured")
		return
	}
	settings, err := s.settings.GetRuntimeSettings()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		writeError(w, http.StatusNotImplemented, "settings store is not configured")
		return
	}
	var req config.RuntimeSettings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	saved, err := s.settings.UpdateRuntimeSettings(req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

// writeFolderError uses the {status, message} shape of the file management routes.
func writeFolderError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"status":  "error",
		"message": msg,
	})
}

func isRequestTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	// multipart parsing does not always wrap the reader error
	return err != nil && strings.Contains(err.Error(), "request body too large")
}

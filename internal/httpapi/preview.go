package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/MimeLyc/subtitle-studio/internal/subtitle"
	"github.com/MimeLyc/subtitle-studio/internal/tasks"
	"github.com/go-chi/chi/v5"
)

const (
	defaultPreviewLimit = 80
	maxPreviewLimit     = 500
)

type previewLine struct {
	Index      int    `json:"index"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Original   string `json:"original"`
	Translated string `json:"translated"`
}

type previewResponse struct {
	Task   *tasks.Record `json:"task"`
	Total  int           `json:"total"`
	Offset int           `json:"offset"`
	Limit  int           `json:"limit"`
	Lines  []previewLine `json:"lines"`
}

// handleTaskPreview pages through the bilingual output of a completed task.
func (s *Server) handleTaskPreview(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.registry.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	if rec.Status != tasks.StatusCompleted || rec.Result == nil {
		writeError(w, http.StatusConflict, "task is not completed")
		return
	}

	offset := parseNonNegative(r.URL.Query().Get("offset"), 0)
	limit := parseNonNegative(r.URL.Query().Get("limit"), defaultPreviewLimit)
	if limit == 0 {
		limit = defaultPreviewLimit
	}
	limit = min(limit, maxPreviewLimit)

	path, err := s.outputs.Resolve(rec.Result.Filename)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sub, err := subtitle.ReadFile(path)
	if err != nil {
		writeError(w, http.StatusNotFound, "output file is not available")
		return
	}

	total := len(sub.Lines)
	start := min(offset, total)
	end := min(start+limit, total)
	lines := make([]previewLine, 0, end-start)
	for _, line := range sub.Lines[start:end] {
		original, translated := splitBilingual(line.Text)
		lines = append(lines, previewLine{
			Index:      line.Index,
			Start:      subtitle.FormatTimestamp(line.StartTime),
			End:        subtitle.FormatTimestamp(line.EndTime),
			Original:   original,
			Translated: translated,
		})
	}

	writeJSON(w, http.StatusOK, previewResponse{
		Task:   rec,
		Total:  total,
		Offset: start,
		Limit:  limit,
		Lines:  lines,
	})
}

// splitBilingual separates the last content line (the translation) from the rest.
func splitBilingual(text string) (string, string) {
	i := strings.LastIndex(text, "\n")
	if i < 0 {
		return "", text
	}
	return text[:i], text[i+1:]
}

func parseNonNegative(raw string, def int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}

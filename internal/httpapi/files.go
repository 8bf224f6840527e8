package httpapi

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"

	"github.com/MimeLyc/subtitle-studio/internal/storage"
	"github.com/MimeLyc/subtitle-studio/pkg/log"
	"github.com/go-chi/chi/v5"
)

// folderRoutes registers the download, list, clear and delete routes of one folder.
func (s *Server) folderRoutes(r chi.Router, name string, folder *storage.Folder) {
	r.Get("/"+name+"-download/*", s.handleDownload(folder))
	r.Get("/"+name+"-files", s.handleListFiles(folder))
	r.Post("/clear-"+name, s.handleClearFolder(name, folder))
	r.Post("/delete-"+name+"-file/*", s.handleDeleteFile(folder))
}

func (s *Server) handleDownload(folder *storage.Folder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "*")
		path, err := folder.Resolve(name)
		if err != nil {
			writeFolderError(w, http.StatusBadRequest, "Invalid file name.")
			return
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			writeFolderError(w, http.StatusNotFound, "File not found.")
			return
		}
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
		http.ServeFile(w, r, path)
	}
}

func (s *Server) handleListFiles(folder *storage.Folder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names, err := folder.Names()
		if err != nil {
			writeFolderError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"files": names,
		})
	}
}

func (s *Server) handleClearFolder(name string, folder *storage.Folder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		removed, err := folder.Clear()
		if err != nil {
			writeFolderError(w, http.StatusInternalServerError, err.Error())
			return
		}
		log.Info("Cleared %d entries from %s", removed, name)
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "success",
			"message": fmt.Sprintf("Folder '%s' cleared.", name),
		})
	}
}

func (s *Server) handleDeleteFile(folder *storage.Folder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "*")
		err := folder.Delete(name)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, map[string]any{
				"status":  "success",
				"message": fmt.Sprintf("File '%s' deleted.", name),
			})
		case errors.Is(err, storage.ErrInvalidName):
			writeFolderError(w, http.StatusBadRequest, "Invalid file name.")
		case errors.Is(err, storage.ErrNotFound):
			writeFolderError(w, http.StatusNotFound, "File not found.")
		default:
			writeFolderError(w, http.StatusInternalServerError, err.Error())
		}
	}
}

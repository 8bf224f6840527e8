package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/MimeLyc/subtitle-studio/internal/config"
	"github.com/MimeLyc/subtitle-studio/internal/storage"
	"github.com/MimeLyc/subtitle-studio/pkg/file"
	"github.com/MimeLyc/subtitle-studio/pkg/log"
	"golang.org/x/text/language"
)

const multipartMemory = 32 << 20

// receiveUpload parses the multipart body and returns its "file" part. On
// failure the response is already written.
func (s *Server) receiveUpload(w http.ResponseWriter, r *http.Request, exts ...string) (multipart.File, *multipart.FileHeader, bool) {
	if limit := s.cfg.HTTP.MaxUploadBytes; limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if isRequestTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
			return nil, nil, false
		}
		writeError(w, http.StatusBadRequest, "No file part")
		return nil, nil, false
	}

	src, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file part")
		return nil, nil, false
	}
	if header.Filename == "" || !file.HasExt(header.Filename, exts...) || file.SecureFilename(header.Filename) == "" {
		_ = src.Close()
		writeError(w, http.StatusBadRequest, "Invalid file type")
		return nil, nil, false
	}
	return src, header, true
}

// storeUpload copies src into the uploads folder and returns the stored name.
func (s *Server) storeUpload(w http.ResponseWriter, name string, src io.Reader) (string, bool) {
	stored, err := s.uploads.Save(name, src)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidName) {
			writeError(w, http.StatusBadRequest, "Invalid file type")
			return "", false
		}
		log.Error("Store upload %s: %v", name, err)
		writeError(w, http.StatusInternalServerError, "cannot store upload")
		return "", false
	}
	return stored, true
}

type translateForm struct {
	port       int
	batchSize  int
	maxWorkers int
	source     language.Tag
	target     language.Tag
}

// parseTranslateForm reads the optional translate fields, falling back to defaults.
func parseTranslateForm(r *http.Request, defaults config.TranslateConfig, defaultPort int) (translateForm, error) {
	var (
		form translateForm
		err  error
	)
	if form.port, err = formInt(r, "ollama_port", defaultPort); err != nil {
		return form, err
	}
	if form.batchSize, err = formInt(r, "batch_size", defaults.BatchSize); err != nil {
		return form, err
	}
	if form.maxWorkers, err = formInt(r, "max_workers", defaults.MaxWorkers); err != nil {
		return form, err
	}

	source := formString(r, "source_language", defaults.SourceLanguage)
	if form.source, err = config.ParseLanguage(source, true); err != nil {
		return form, fmt.Errorf("invalid source_language %q", source)
	}
	target := formString(r, "target_language", defaults.TargetLanguage)
	if form.target, err = config.ParseLanguage(target, false); err != nil {
		return form, fmt.Errorf("invalid target_language %q", target)
	}
	return form, nil
}

func formString(r *http.Request, key, def string) string {
	if v := strings.TrimSpace(r.FormValue(key)); v != "" {
		return v
	}
	return def
}

func formInt(r *http.Request, key string, def int) (int, error) {
	raw := strings.TrimSpace(r.FormValue(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	return v, nil
}

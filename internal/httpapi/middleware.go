package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/MimeLyc/subtitle-studio/pkg/log"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// quietPrefixes are polled by the UI and only logged when they fail.
var quietPrefixes = []string{
	"/status/",
	"/api/health",
	"/api/tasks/stream",
}

func isQuiet(path string) bool {
	for _, prefix := range quietPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if isQuiet(r.URL.Path) && status < http.StatusBadRequest {
			return
		}
		if status >= http.StatusInternalServerError {
			log.Warn("%s %s %d %s", r.Method, r.URL.Path, status, time.Since(start))
			return
		}
		log.Info("%s %s %d %s", r.Method, r.URL.Path, status, time.Since(start))
	})
}

func corsOptions() cors.Options {
	return cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition", "Content-Length"},
		MaxAge:         300,
	}
}

package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"zxsgit/internal/logs"
)

// Checker reports whether a dependency can serve traffic.
type Checker interface {
	Ready(ctx context.Context) error
}

// CheckerFunc adapts a plain function.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Ready(ctx context.Context) error { return f(ctx) }

// RegisterRoutes mounts liveness, and readiness over every check.
func RegisterRoutes(r *mux.Router, checks map[string]Checker) {
	r.HandleFunc("/healthz", liveness).Methods(http.MethodGet)
	r.HandleFunc("/readyz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		for name, c := range checks {
			if err := c.Ready(ctx); err != nil {
				logs.Logger.WithField("check", name).WithError(err).Warn("not ready")
				http.Error(w, name+" not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}).Methods(http.MethodGet)
}

func liveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

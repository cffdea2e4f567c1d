package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"

	"zxsgit/config"
	"zxsgit/internal/api"
	"zxsgit/internal/filestore"
	"zxsgit/internal/health"
	"zxsgit/internal/logs"
	"zxsgit/internal/middleware"
	"zxsgit/internal/password"
)

type App struct {
	cfg        *config.Config
	store      *filestore.Store
	Router     *mux.Router
	httpServer *http.Server

	ctx    context.Context
	cancel context.CancelFunc
}

func (a *App) Initialize(cfg *config.Config) error {
	a.cfg = cfg

	/* 1) Logging */
	logs.Init(logs.Options{
		Level:  a.cfg.Logging.Level,
		Format: a.cfg.Logging.Format,
		File:   a.cfg.Logging.File,
	})

	/* 2) Storage: users.json + data.json, the admin is seeded on open */
	st, err := filestore.Open(a.cfg.Data.Dir, password.New(password.Scheme(a.cfg.Auth.PasswordScheme)))
	if err != nil {
		return fmt.Errorf("open data dir: %w", err)
	}
	a.store = st

	/* 3) Router + middleware */
	a.Router = NewRouter(cfg, st)

	/* log known routes at startup */
	_ = a.Router.Walk(func(rt *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		path, err := rt.GetPathTemplate()
		if err != nil {
			return nil
		}
		methods, _ := rt.GetMethods()
		if len(methods) == 0 {
			methods = []string{"ANY"}
		}
		logs.Logger.Debugf("route: %-6v %s", methods, path)
		return nil
	})
	return nil
}

// NewRouter wires middleware, health checks and the API over st.
func NewRouter(cfg *config.Config, st *filestore.Store) *mux.Router {
	r := mux.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
		middleware.LoggerMW,
		corsMW(cfg.Server.CORSOrigins),
		middleware.RateLimit(middleware.RateLimitConfig{
			RPS:        cfg.RateLimit.RPS,
			Burst:      cfg.RateLimit.Burst,
			TrustProxy: cfg.RateLimit.TrustProxy,
		}),
	)
	// mux skips middleware for unmatched routes, so preflight requests
	// need a route of their own
	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	health.RegisterRoutes(r, map[string]health.Checker{"data": st})
	api.RegisterRoutes(r, api.NewHandler(st))
	return r
}

// corsMW allows the configured origins; an empty list turns CORS off. Preflight
// requests pass through to the OPTIONS route.
func corsMW(list []string) mux.MiddlewareFunc {
	var origins []string
	for _, o := range list {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:     origins,
		AllowedMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:     []string{"Accept", "Authorization", "Content-Type", middleware.HeaderRequestID},
		ExposedHeaders:     []string{middleware.HeaderRequestID, "Retry-After"},
		MaxAge:             300,
		OptionsPassthrough: true,
	})
}

func (a *App) Run() error {
	if a.Router == nil || a.cfg == nil {
		return fmt.Errorf("server not initialized")
	}

	bind := net.JoinHostPort(a.cfg.Server.Address, a.cfg.Server.HTTPPort)

	a.ctx, a.cancel = context.WithCancel(context.Background())
	defer a.cancel()
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		select {
		case s := <-sigs:
			logs.Logger.Infof("shutdown signal: %s", s)
			a.cancel()
		case <-a.ctx.Done():
		}
	}()

	// Hard timeouts; writes get longer because of base64 images
	a.httpServer = &http.Server{
		Addr:              bind,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logs.Logger.WithField("data_dir", a.store.Dir()).Infof("%s listening on %s", api.Name, bind)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case <-a.ctx.Done():
	case err := <-errc:
		return fmt.Errorf("http server error: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.httpServer.Shutdown(ctx); err != nil {
		logs.Logger.Errorf("http shutdown: %v", err)
	}
	return nil
}

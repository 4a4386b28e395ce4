// Package server exposes lineage extraction over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/redshift-lineage/internal/output"
	"github.com/leapstack-labs/redshift-lineage/internal/state"
	"github.com/leapstack-labs/redshift-lineage/internal/watch"
	"github.com/leapstack-labs/redshift-lineage/pkg/lineage/report"
)

// Config holds configuration for the server.
type Config struct {
	Addr string
	// Store enables the run endpoints. Nil serves extraction only.
	Store *state.Store
	// Defaults seeds every extraction request.
	Defaults    report.Options
	OpenLineage output.OpenLineageOptions
	// WatchPaths are re-extracted and stored whenever a SQL file under
	// them changes. Requires Store.
	WatchPaths []string
	Logger     *slog.Logger
}

// Server serves the lineage API.
type Server struct {
	cfg      Config
	logger   *slog.Logger
	notifier *Notifier
}

// New creates a Server.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	return &Server{cfg: cfg, logger: logger, notifier: NewNotifier()}
}

// Notifier returns the notifier that announces stored runs.
func (s *Server) Notifier() *Notifier {
	return s.notifier
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
		s.requestLogger,
	)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.With(middleware.Compress(5)).Post("/lineage", s.handleExtract)

		r.Group(func(r chi.Router) {
			r.Use(s.requireStore)
			r.Get("/runs", s.handleListRuns)
			r.Get("/runs/{id}", s.handleGetRun)
			r.Delete("/runs/{id}", s.handleDeleteRun)
			r.Get("/tables/{name}/upstream", s.handleReach(upstream))
			r.Get("/tables/{name}/downstream", s.handleReach(downstream))
			r.Get("/events", s.handleEvents)
		})
	})
	return r
}

// Serve listens on the configured address until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting lineage server", "addr", ln.Addr().String())

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if len(s.cfg.WatchPaths) > 0 && s.cfg.Store != nil {
		eg.Go(func() error {
			return watch.Run(egctx, s.cfg.WatchPaths, watch.Options{Logger: s.logger}, func(path string) {
				s.storeFile(egctx, path)
			})
		})
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down lineage server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// storeFile extracts a changed file and stores the run.
func (s *Server) storeFile(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Error("failed to read changed file", "file", path, "error", err)
		return
	}
	opts := s.cfg.Defaults
	opts.SourceName = path
	opts.SplitStatements = true
	opts.Logger = s.logger
	res, err := report.Extract(string(data), opts)
	if err != nil {
		s.logger.Warn("failed to extract changed file", "file", path, "error", err)
		return
	}
	if _, err := s.saveRun(ctx, path, res); err != nil {
		s.logger.Error("failed to store run", "file", path, "error", err)
	}
}

func (s *Server) saveRun(ctx context.Context, sourceName string, res *report.Result) (*state.Run, error) {
	run, err := s.cfg.Store.SaveRun(ctx, sourceName, res.Infos)
	if err != nil {
		return nil, err
	}
	s.notifier.Broadcast(Event{RunID: run.ID, SourceName: run.SourceName, Records: run.Records})
	return run, nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())))
	})
}

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/legendai/legendai/internal/config"
	"github.com/legendai/legendai/internal/logging"
	"github.com/legendai/legendai/internal/pipeline"
	"github.com/legendai/legendai/internal/translate"
	"github.com/legendai/legendai/internal/usage"
)

// JobRunner turns an uploaded media file into cues.
type JobRunner func(ctx context.Context, mediaPath string, progress pipeline.ProgressFunc) (*pipeline.Output, error)

// TranslatorFactory builds a translator for a request.
type TranslatorFactory func(ctx context.Context, provider string, opts translate.Options) (translate.Translator, error)

type Server struct {
	cfg    *config.Config
	logger *logging.Logger

	jobs    *JobStore
	store   usage.Store
	limiter *usage.Limiter
	tracker *usage.Tracker

	runJob        JobRunner
	newTranslator TranslatorFactory
	uploadDir     string

	// parent of background jobs, canceled on shutdown
	jobCtx    context.Context
	cancelJob context.CancelFunc
	jobWG     sync.WaitGroup
}

type Option func(*Server)

func WithJobRunner(r JobRunner) Option {
	return func(s *Server) { s.runJob = r }
}

func WithTranslatorFactory(f TranslatorFactory) Option {
	return func(s *Server) { s.newTranslator = f }
}

func WithUploadDir(dir string) Option {
	return func(s *Server) { s.uploadDir = dir }
}

// WithUsageStore replaces the in-memory store behind rate limits and usage
// totals, so several instances can share counters.
func WithUsageStore(store usage.Store) Option {
	return func(s *Server) { s.store = store }
}

func New(cfg *config.Config, logger *logging.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}

	s := &Server{
		cfg:       cfg,
		logger:    logger,
		jobs:      NewJobStore(),
		store:     usage.NewMemoryStore(),
		uploadDir: os.TempDir(),
	}

	s.runJob = func(ctx context.Context, mediaPath string, progress pipeline.ProgressFunc) (*pipeline.Output, error) {
		gen, err := pipeline.NewFromConfig(ctx, cfg, logger, progress)
		if err != nil {
			return nil, err
		}
		return gen.Run(ctx, mediaPath)
	}
	s.newTranslator = func(ctx context.Context, provider string, opts translate.Options) (translate.Translator, error) {
		return translate.NewFromConfig(ctx, cfg, provider, opts)
	}

	for _, opt := range opts {
		opt(s)
	}

	s.limiter = usage.NewLimiter(s.store, cfg.Server.RateLimit, cfg.Server.RateWindow)
	s.tracker = usage.NewTracker(s.store, cfg.Server.UsageRetention)
	s.jobCtx, s.cancelJob = context.WithCancel(context.Background())

	return s
}

func (s *Server) Jobs() *JobStore {
	return s.jobs
}

// Handler returns the API routes wrapped in logging and rate limiting.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("POST /v1/subtitles", s.rateLimited(http.HandlerFunc(s.handleSubtitles)))
	mux.Handle("POST /v1/translations", s.rateLimited(http.HandlerFunc(s.handleTranslations)))
	mux.Handle("POST /v1/transcriptions", s.rateLimited(http.HandlerFunc(s.handleTranscriptions)))
	mux.Handle("GET /v1/jobs/{id}", s.rateLimited(http.HandlerFunc(s.handleGetJob)))
	mux.HandleFunc("GET /v1/jobs/{id}/events", s.handleJobEvents)
	mux.Handle("GET /v1/usage", s.rateLimited(http.HandlerFunc(s.handleUsage)))

	return s.logRequests(mux)
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully
// and waits for running jobs to stop.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	maintenanceCtx, stopMaintenance := context.WithCancel(ctx)
	defer stopMaintenance()
	go s.maintain(maintenanceCtx, time.Minute)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("HTTP server listening", "addr", s.cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.stopJobs()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Infow("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	s.stopJobs()
	if err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) stopJobs() {
	s.cancelJob()
	s.jobWG.Wait()
}

// maintain drops expired usage counters and old jobs.
func (s *Server) maintain(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			counters, jobs := s.prune()
			if counters > 0 || jobs > 0 {
				s.logger.Debugw("Pruned expired state", "counters", counters, "jobs", jobs)
			}
		}
	}
}

// prune drops old jobs, and expired counters when the store keeps them
// until swept.
func (s *Server) prune() (counters, jobs int) {
	if sw, ok := s.store.(usage.Sweeper); ok {
		counters = sw.Sweep()
	}
	return counters, s.jobs.Prune(s.cfg.Server.JobRetention)
}

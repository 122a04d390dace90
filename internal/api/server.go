// internal/api/server.go

// Package api is the admin HTTP surface: quality dashboard payload, manual
// pipeline triggers, health, and metrics. It also owns the weekly scheduled
// fixer run.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"

	"github.com/citypulse/eventharvest/internal/config"
	"github.com/citypulse/eventharvest/internal/ingest"
	"github.com/citypulse/eventharvest/internal/monitoring"
	"github.com/citypulse/eventharvest/internal/quality"
	"github.com/citypulse/eventharvest/internal/utils"
)

// CrawlRunner runs one date/time crawl batch.
type CrawlRunner interface {
	Run(ctx context.Context, opts ingest.CrawlOptions) (*ingest.CrawlReport, error)
}

// FixRunner runs one source-URL fix batch.
type FixRunner interface {
	Run(ctx context.Context, opts ingest.FixOptions) (*ingest.FixReport, error)
}

// QualitySource loads the records the quality engine audits.
type QualitySource interface {
	ListQualityRecords(ctx context.Context) (map[quality.ContentType][]quality.Record, error)
}

// Server is the admin HTTP server.
type Server struct {
	cfg     config.ServerConfig
	crawler CrawlRunner
	fixer   FixRunner
	source  QualitySource
	engine  *quality.Engine
	metrics *monitoring.Metrics
	logger  utils.Logger
	cron    *cron.Cron
}

// NewServer wires the admin server. The cron schedule comes from
// cfg.CronSpec; an empty spec disables the scheduled run.
func NewServer(cfg config.ServerConfig, crawler CrawlRunner, fixer FixRunner,
	source QualitySource, engine *quality.Engine, metrics *monitoring.Metrics,
	logger utils.Logger) *Server {
	return &Server{
		cfg:     cfg,
		crawler: crawler,
		fixer:   fixer,
		source:  source,
		engine:  engine,
		metrics: metrics,
		logger:  logger,
		cron:    cron.New(),
	}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/quality", s.handleQuality).Methods(http.MethodGet)
	r.HandleFunc("/api/fix-source-urls", s.handleFixURLs).Methods(http.MethodPost)
	r.HandleFunc("/api/crawl-datetimes", s.handleCrawl).Methods(http.MethodPost)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	return r
}

// Run serves until ctx is canceled, then shuts down gracefully. The weekly
// fixer job is registered before serving.
func (s *Server) Run(ctx context.Context) error {
	if s.cfg.CronSpec != "" {
		_, err := s.cron.AddFunc(s.cfg.CronSpec, s.scheduledFix)
		if err != nil {
			return fmt.Errorf("registering cron job: %w", err)
		}
		s.cron.Start()
		defer s.cron.Stop()
	}

	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // pipeline triggers run inline
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("admin server listening on %s", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("admin server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// scheduledFix is the weekly maintenance pass. It always applies.
func (s *Server) scheduledFix() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	s.logger.Info("scheduled source URL fix starting")
	report, err := s.fixer.Run(ctx, ingest.FixOptions{Apply: true})
	if err != nil {
		s.logger.Errorf("scheduled fix failed: %v", err)
		return
	}
	s.logger.WithFields(map[string]interface{}{
		"checked": report.Checked,
		"updated": report.Updated,
		"errors":  report.Errors,
	}).Info("scheduled source URL fix finished")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleQuality(w http.ResponseWriter, r *http.Request) {
	records, err := s.source.ListQualityRecords(r.Context())
	if err != nil {
		s.logger.Errorf("loading quality records: %v", err)
		writeError(w, http.StatusInternalServerError, "loading records failed")
		return
	}
	writeJSON(w, http.StatusOK, s.engine.AnalyzeAll(records))
}

type triggerRequest struct {
	Apply   bool   `json:"apply"`
	Limit   int    `json:"limit"`
	EventID string `json:"event_id"`
}

func decodeTrigger(r *http.Request) (triggerRequest, error) {
	var req triggerRequest
	if r.Body == nil || r.ContentLength == 0 {
		return req, nil
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, fmt.Errorf("decoding request body: %w", err)
	}
	return req, nil
}

func (s *Server) handleFixURLs(w http.ResponseWriter, r *http.Request) {
	req, err := decodeTrigger(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	report, err := s.fixer.Run(r.Context(), ingest.FixOptions{Apply: req.Apply, Limit: req.Limit})
	if err != nil {
		s.logger.Errorf("fix batch failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleCrawl(w http.ResponseWriter, r *http.Request) {
	req, err := decodeTrigger(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	report, err := s.crawler.Run(r.Context(), ingest.CrawlOptions{
		Apply:   req.Apply,
		Limit:   req.Limit,
		EventID: req.EventID,
	})
	if err != nil {
		s.logger.Errorf("crawl batch failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

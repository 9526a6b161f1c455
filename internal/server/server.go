// Package server exposes the analysis pipeline over HTTP. It is a thin
// collaborator: request decoding, configuration overrides, caching and
// rendering; all decision logic stays in the pipeline packages.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hvacsight/internal/cache"
	"hvacsight/internal/config"
	"hvacsight/internal/dataset"
	"hvacsight/internal/logging"
	"hvacsight/internal/metrics"
	"hvacsight/internal/models"
	"hvacsight/internal/normalize"
	"hvacsight/internal/pipeline"
	"hvacsight/internal/report"
)

// maxUploadBytes caps one dataset upload.
const maxUploadBytes = 32 << 20

// Server is the HTTP front end.
type Server struct {
	cfg      *config.Config
	log      *logging.Logger
	cache    *cache.ResultCache
	reporter *report.HTMLReporter
	mux      *http.ServeMux
}

// New builds the server and registers its routes.
func New(cfg *config.Config, log *logging.Logger, resultCache *cache.ResultCache) *Server {
	s := &Server{
		cfg:      cfg,
		log:      log.WithComponent("server"),
		cache:    resultCache,
		reporter: report.NewHTMLReporter(log),
		mux:      http.NewServeMux(),
	}

	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/analyze", s.handleAnalyze)
	s.mux.HandleFunc("/api/report", s.handleReport)
	s.mux.HandleFunc("/api/sample", s.handleSample)
	s.mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Start starts the HTTP server.
func (s *Server) Start(addr string) error {
	s.log.Info("listening", "addr", addr)
	return http.ListenAndServe(addr, s.mux)
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleAnalyze runs the pipeline over an uploaded CSV and returns the full
// result as JSON.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	result, ok := s.analyze(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleReport runs the pipeline and renders the HTML decision report.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	result, ok := s.analyze(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.reporter.Write(w, result); err != nil {
		s.log.Error("report rendering failed", "error", err)
	}
}

// handleSample serves the synthetic demo dataset as CSV.
func (s *Server) handleSample(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	hours := 168
	if v := r.URL.Query().Get("hours"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 24*365 {
			http.Error(w, "hours must be a positive integer up to 8760", http.StatusBadRequest)
			return
		}
		hours = parsed
	}
	data, err := dataset.MarshalCSV(dataset.Demo(hours))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=\"hvacsight_sample.csv\"")
	w.Write(data)
}

// analyze decodes the request, resolves per-request overrides and runs (or
// replays from cache) one analysis. On failure it writes the response itself
// and returns ok=false.
func (s *Server) analyze(w http.ResponseWriter, r *http.Request) (*models.AnalysisResult, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return nil, false
	}

	acfg, err := s.analysisConfig(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}

	data, err := readDataset(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}

	key := cache.Key(data, acfg)
	if cached := s.cache.Get(r.Context(), key); cached != nil {
		s.log.Debug("cache hit", "key", key)
		return cached, true
	}

	raw, err := dataset.ReadCSV(bytes.NewReader(data))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}

	result, err := pipeline.New(acfg, s.log).Run(r.Context(), raw)
	metrics.RecordAnalysis(err)
	if err != nil {
		var schemaErr *normalize.SchemaError
		if errors.As(err, &schemaErr) {
			// The failure reason reaches the caller verbatim.
			http.Error(w, schemaErr.Error(), http.StatusUnprocessableEntity)
			return nil, false
		}
		s.log.Error("analysis failed", "error", err)
		http.Error(w, "analysis failed: "+err.Error(), http.StatusInternalServerError)
		return nil, false
	}

	s.cache.Set(r.Context(), key, result)
	return result, true
}

// analysisConfig applies per-request query overrides on top of the configured
// defaults.
func (s *Server) analysisConfig(r *http.Request) (config.Analysis, error) {
	acfg := s.cfg.Analysis
	q := r.URL.Query()
	if v := q.Get("horizon"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return acfg, fmt.Errorf("horizon must be an integer, got %q", v)
		}
		acfg.Horizon = parsed
	}
	if v := q.Get("sensitivity"); v != "" {
		acfg.Sensitivity = config.Sensitivity(v)
	}
	if v := q.Get("z_cutoff"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return acfg, fmt.Errorf("z_cutoff must be a number, got %q", v)
		}
		acfg.ZCutoffOverride = parsed
	}
	if err := acfg.Validate(); err != nil {
		return acfg, err
	}
	return acfg, nil
}

// readDataset extracts the CSV bytes from either a multipart "file" field or
// the raw request body.
func readDataset(r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxUploadBytes)

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return nil, fmt.Errorf("failed to parse upload: %w", err)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("upload must carry a \"file\" field: %w", err)
		}
		defer file.Close()
		return io.ReadAll(file)
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("request body is empty; POST the CSV dataset")
	}
	return data, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

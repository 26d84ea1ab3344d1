package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/himanishpuri/adrift/pkg/adrift"
	"github.com/himanishpuri/adrift/pkg/adrift/metrics"
	"github.com/himanishpuri/adrift/pkg/logger"
	"github.com/himanishpuri/adrift/pkg/models"
	"github.com/himanishpuri/adrift/pkg/utils"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
	maxRequestBytes  = 1 << 20
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service  adrift.Service
	config   *ServerConfig
	log      adrift.Logger
	metrics  *metrics.Observer
	gatherer prometheus.Gatherer
	started  time.Time

	scanMu sync.Mutex // one scan at a time; resolution against the store is not atomic
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Bind           string
	DBPath         string
	AllowedOrigins []string
}

// NewServer creates a new server instance
func NewServer(service adrift.Service, config *ServerConfig, obs *metrics.Observer, gatherer prometheus.Gatherer) *Server {
	return &Server{
		service:  service,
		config:   config,
		log:      logger.GetLogger().With("server"),
		metrics:  obs,
		gatherer: gatherer,
		started:  time.Now(),
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// statusForError maps pipeline and store errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, adrift.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, adrift.ErrNoStore),
		errors.Is(err, adrift.ErrCompatibility),
		errors.Is(err, adrift.ErrLaunch),
		errors.Is(err, adrift.ErrStoreLocked):
		return http.StatusServiceUnavailable
	case errors.Is(err, adrift.ErrAnalysis):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"service": "ADrift API",
		"endpoints": map[string]string{
			"health":       "GET /health",
			"metrics":      "GET /metrics",
			"fingerprints": "GET /api/fingerprints",
			"fingerprint":  "GET /api/fingerprints/{id}",
			"stats":        "GET /api/stats",
			"scan":         "POST /api/scan",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

// handleListFingerprints handles GET /api/fingerprints
func (s *Server) handleListFingerprints(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.RecordFilter{Limit: defaultListLimit}

	if v := q.Get("type"); v != "" {
		t := models.SegmentType(v)
		if !t.Valid() {
			s.respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown segment type %q", v))
			return
		}
		filter.Type = t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxListLimit {
			s.respondError(w, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxListLimit))
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		filter.Offset = n
	}

	records, err := s.service.ListRecords(filter)
	if err != nil {
		s.log.Errorf("Failed to list fingerprints: %v", err)
		s.respondError(w, statusForError(err), err.Error())
		return
	}

	resp := ListFingerprintsResponse{
		Fingerprints: make([]FingerprintDTO, 0, len(records)),
		Count:        len(records),
	}
	for _, rec := range records {
		resp.Fingerprints = append(resp.Fingerprints, toFingerprintDTO(rec))
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// handleGetFingerprint handles GET /api/fingerprints/{id}
func (s *Server) handleGetFingerprint(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		s.respondError(w, http.StatusBadRequest, "Invalid fingerprint ID")
		return
	}

	rec, err := s.service.GetRecord(id)
	if err != nil {
		status := statusForError(err)
		if status == http.StatusInternalServerError {
			s.log.Errorf("Failed to get fingerprint %d: %v", id, err)
		}
		s.respondError(w, status, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, toFingerprintDTO(*rec))
}

// handleStats handles GET /api/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats()
	if err != nil {
		s.log.Errorf("Failed to read stats: %v", err)
		s.respondError(w, statusForError(err), err.Error())
		return
	}

	resp := StatsResponse{
		Records:      stats.Records,
		Occurrences:  stats.Occurrences,
		ByType:       make(map[string]int64, len(stats.ByType)),
		DatabasePath: s.config.DBPath,
	}
	for t, n := range stats.ByType {
		resp.ByType[string(t)] = n
	}
	if info, err := os.Stat(s.config.DBPath); err == nil {
		resp.DatabaseSize = humanize.Bytes(uint64(info.Size()))
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// handleScan handles POST /api/scan. It runs detection and deduplication on
// a file already present on the server; segments are not extracted.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	info, err := os.Stat(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("cannot read %s", req.Path))
		return
	}
	if info.IsDir() || !utils.IsVideoFile(req.Path) {
		s.respondError(w, http.StatusBadRequest, "path must be a video file")
		return
	}

	if !s.scanMu.TryLock() {
		s.respondError(w, http.StatusConflict, "A scan is already running")
		return
	}
	defer s.scanMu.Unlock()

	s.log.Infof("Scanning %s", req.Path)
	res, err := s.service.ProcessVideo(r.Context(), req.Path)
	if err != nil {
		s.log.Errorf("Scan of %s failed: %v", req.Path, err)
		s.respondError(w, statusForError(err), err.Error())
		return
	}
	if s.metrics != nil {
		s.metrics.RecordResult(res)
	}
	s.respondJSON(w, http.StatusOK, toScanResponse(res))
}

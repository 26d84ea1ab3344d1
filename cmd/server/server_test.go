package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanishpuri/adrift/pkg/adrift"
	"github.com/himanishpuri/adrift/pkg/adrift/media"
	"github.com/himanishpuri/adrift/pkg/adrift/metrics"
	"github.com/himanishpuri/adrift/pkg/models"
)

type fakeService struct {
	result     *models.VideoResult
	processErr error
	scanned    []string

	records    []models.FingerprintRecord
	lastFilter models.RecordFilter
	storeErr   error
}

func (f *fakeService) ProcessVideo(ctx context.Context, path string) (*models.VideoResult, error) {
	f.scanned = append(f.scanned, path)
	if f.processErr != nil {
		return nil, f.processErr
	}
	res := *f.result
	res.Path = path
	return &res, nil
}

func (f *fakeService) ExtractSegments(context.Context, string, string, media.OutputFormat, []models.Segment) ([]string, error) {
	return nil, nil
}

func (f *fakeService) CheckCompatibility(context.Context) (string, error) {
	return "ffmpeg version test", nil
}

func (f *fakeService) ListRecords(filter models.RecordFilter) ([]models.FingerprintRecord, error) {
	f.lastFilter = filter
	if f.storeErr != nil {
		return nil, f.storeErr
	}
	var out []models.FingerprintRecord
	for _, r := range f.records {
		if filter.Type == "" || r.SegmentType == filter.Type {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeService) GetRecord(id int64) (*models.FingerprintRecord, error) {
	if f.storeErr != nil {
		return nil, f.storeErr
	}
	for _, r := range f.records {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, fmt.Errorf("get %d: %w", id, adrift.ErrNotFound)
}

func (f *fakeService) Stats() (models.StoreStats, error) {
	if f.storeErr != nil {
		return models.StoreStats{}, f.storeErr
	}
	stats := models.StoreStats{ByType: map[models.SegmentType]int64{}}
	for _, r := range f.records {
		stats.Records++
		stats.Occurrences += int64(r.OccurrenceCount)
		stats.ByType[r.SegmentType]++
	}
	return stats, nil
}

func (f *fakeService) Close() error { return nil }

func sampleRecords() []models.FingerprintRecord {
	seen := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return []models.FingerprintRecord{
		{ID: 1, SegmentType: models.SegmentCommercial, Duration: 30, AudioHash: 0xabc, VideoHash: 0xdef, FirstSeen: seen, LastSeen: seen, OccurrenceCount: 4},
		{ID: 2, SegmentType: models.SegmentStationID, Duration: 10, AudioHash: 1, VideoHash: 2, FirstSeen: seen, LastSeen: seen, OccurrenceCount: 1},
	}
}

func newTestServer(t *testing.T, svc *fakeService, origins ...string) (*Server, http.Handler) {
	t.Helper()
	reg := prometheus.NewRegistry()
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s := NewServer(svc, &ServerConfig{
		Bind:           "127.0.0.1:0",
		DBPath:         filepath.Join(t.TempDir(), "adrift.sqlite3"),
		AllowedOrigins: origins,
	}, metrics.New(reg), reg)
	return s, s.setupRoutes()
}

func do(t *testing.T, h http.Handler, method, target string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func writeVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "broadcast.ts")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	return path
}

func TestHealth(t *testing.T) {
	_, h := newTestServer(t, &fakeService{})
	rec := do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode[map[string]string](t, rec)["status"])
}

func TestListFingerprints(t *testing.T) {
	svc := &fakeService{records: sampleRecords()}
	_, h := newTestServer(t, svc)

	rec := do(t, h, http.MethodGet, "/api/fingerprints", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[ListFingerprintsResponse](t, rec)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "0000000000000abc", resp.Fingerprints[0].AudioHash)
	assert.Equal(t, defaultListLimit, svc.lastFilter.Limit)

	rec = do(t, h, http.MethodGet, "/api/fingerprints?type=station_id&limit=5&offset=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[ListFingerprintsResponse](t, rec)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, models.RecordFilter{Type: models.SegmentStationID, Limit: 5, Offset: 1}, svc.lastFilter)
}

func TestListFingerprintsRejectsBadQuery(t *testing.T) {
	_, h := newTestServer(t, &fakeService{})
	for _, target := range []string{
		"/api/fingerprints?type=jingle",
		"/api/fingerprints?limit=0",
		"/api/fingerprints?limit=5000",
		"/api/fingerprints?offset=-1",
	} {
		rec := do(t, h, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestListFingerprintsWithoutStore(t *testing.T) {
	_, h := newTestServer(t, &fakeService{storeErr: adrift.ErrNoStore})
	rec := do(t, h, http.MethodGet, "/api/fingerprints", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGetFingerprint(t *testing.T) {
	_, h := newTestServer(t, &fakeService{records: sampleRecords()})

	rec := do(t, h, http.MethodGet, "/api/fingerprints/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	fp := decode[FingerprintDTO](t, rec)
	assert.Equal(t, int64(1), fp.ID)
	assert.Equal(t, "commercial", fp.Type)
	assert.Equal(t, 4, fp.OccurrenceCount)

	rec = do(t, h, http.MethodGet, "/api/fingerprints/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/fingerprints/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStats(t *testing.T) {
	s, h := newTestServer(t, &fakeService{records: sampleRecords()})
	require.NoError(t, os.WriteFile(s.config.DBPath, make([]byte, 2048), 0o644))

	rec := do(t, h, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[StatsResponse](t, rec)
	assert.Equal(t, int64(2), stats.Records)
	assert.Equal(t, int64(5), stats.Occurrences)
	assert.Equal(t, map[string]int64{"commercial": 1, "station_id": 1}, stats.ByType)
	assert.Equal(t, "2.0 kB", stats.DatabaseSize)
}

func TestScan(t *testing.T) {
	dup := int64(1)
	svc := &fakeService{result: &models.VideoResult{
		RunID: "run-1",
		Segments: []models.Segment{
			{
				Type: models.SegmentCommercial, DetectedType: models.SegmentCommercial,
				StartTime: 10.1, EndTime: 40.05, Duration: 29.95,
				Fingerprint: &models.Fingerprint{Duration: 29.95, AudioHash: 7, VideoHash: 8},
				DuplicateOf: &dup,
			},
		},
		Analysis: models.Analysis{BlackFrames: []models.Interval{{Start: 10, End: 10.1}, {Start: 40.05, End: 40.15}}},
		Boundary: 2,
	}}
	_, h := newTestServer(t, svc)
	video := writeVideo(t)

	body, _ := json.Marshal(ScanRequest{Path: video})
	rec := do(t, h, http.MethodPost, "/api/scan", bytes.NewReader(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[ScanResponse](t, rec)
	assert.Equal(t, video, resp.Path)
	assert.Equal(t, 2, resp.BlackFrames)
	require.Len(t, resp.Segments, 1)
	assert.Equal(t, "commercial", resp.Segments[0].Type)
	assert.Equal(t, "0000000000000007", resp.Segments[0].AudioHash)
	require.NotNil(t, resp.Segments[0].DuplicateOf)
	assert.Equal(t, int64(1), *resp.Segments[0].DuplicateOf)
	assert.Equal(t, []string{video}, svc.scanned)

	rec = do(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "adrift_videos_processed_total 1")
	assert.Contains(t, rec.Body.String(), `adrift_duplicates_total{type="commercial"} 1`)
}

func TestScanRejectsBadRequests(t *testing.T) {
	svc := &fakeService{result: &models.VideoResult{}}
	_, h := newTestServer(t, svc)
	notVideo := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(notVideo, []byte("x"), 0o644))

	cases := map[string]string{
		"malformed":     `{"path":`,
		"unknown field": `{"path":"/x.mp4","extract":true}`,
		"empty path":    `{"path":"  "}`,
		"missing file":  `{"path":"/does/not/exist.mp4"}`,
		"directory":     fmt.Sprintf(`{"path":%q}`, t.TempDir()),
		"not a video":   fmt.Sprintf(`{"path":%q}`, notVideo),
	}
	for name, body := range cases {
		rec := do(t, h, http.MethodPost, "/api/scan", strings.NewReader(body))
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
	assert.Empty(t, svc.scanned)
}

func TestScanErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("analysis: %w", adrift.ErrAnalysis), http.StatusUnprocessableEntity},
		{fmt.Errorf("launch: %w", adrift.ErrLaunch), http.StatusServiceUnavailable},
		{fmt.Errorf("%w: missing showinfo", adrift.ErrCompatibility), http.StatusServiceUnavailable},
		{fmt.Errorf("%w: disk I/O", adrift.ErrStorage), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		_, h := newTestServer(t, &fakeService{processErr: tc.err})
		body, _ := json.Marshal(ScanRequest{Path: writeVideo(t)})
		rec := do(t, h, http.MethodPost, "/api/scan", bytes.NewReader(body))
		assert.Equal(t, tc.want, rec.Code, tc.err.Error())
	}
}

func TestCORS(t *testing.T) {
	_, h := newTestServer(t, &fakeService{}, "https://allowed.example")

	req := httptest.NewRequest(http.MethodOptions, "/api/scan", nil)
	req.Header.Set("Origin", "https://allowed.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://allowed.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://other.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRunStopsOnCancel(t *testing.T) {
	s, _ := newTestServer(t, &fakeService{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestParseOrigins(t *testing.T) {
	assert.Equal(t, []string{"*"}, parseOrigins(""))
	assert.Equal(t, []string{"*"}, parseOrigins("*"))
	assert.Equal(t, []string{"https://a", "https://b"}, parseOrigins(" https://a, ,https://b "))
}

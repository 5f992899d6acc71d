package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"onlinescoring/internal/invocation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type stubEntry struct {
	files       []string
	err         error
	initialized bool
	payload     []byte
}

func (s *stubEntry) Run(_ context.Context, raw []byte) ([]string, error) {
	s.payload = raw
	return s.files, s.err
}

func (s *stubEntry) ModelPath() (string, bool) {
	return "/var/azureml-app/model", s.initialized
}

type memoryJournal struct {
	mu      sync.Mutex
	records []invocation.Record
}

func (m *memoryJournal) Append(r invocation.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
}

func (m *memoryJournal) Close() {}

func newTestRouter(entry ScoringEntry) (*ScoringRouter, *memoryJournal) {
	j := &memoryJournal{}
	return NewScoringRouter(entry, invocation.NewHistory(10, 0), j, 1024), j
}

func TestScoringRouter_Liveness(t *testing.T) {
	router, _ := newTestRouter(&stubEntry{})

	rec := httptest.NewRecorder()
	router.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Healthy", rec.Body.String())
}

func TestScoringRouter_Readiness(t *testing.T) {
	entry := &stubEntry{}
	router, _ := newTestRouter(entry)
	mux := router.Mux()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "not ready before Init")

	entry.initialized = true
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestScoringRouter_Score(t *testing.T) {
	entry := &stubEntry{files: []string{"model.pkl"}, initialized: true}
	router, j := newTestRouter(entry)

	req := httptest.NewRequest(http.MethodPost, "/score", strings.NewReader(`{"data": [1]}`))
	rec := httptest.NewRecorder()
	router.Mux().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader), "request id should be generated")
	assert.Equal(t, `{"data": [1]}`, string(entry.payload), "body should reach the entry untouched")

	var files []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &files))
	assert.Equal(t, []string{"model.pkl"}, files)

	require.Len(t, j.records, 1)
	assert.Equal(t, rec.Header().Get(RequestIDHeader), j.records[0].ID)
	assert.Equal(t, 13, j.records[0].PayloadBytes)
	assert.Equal(t, 1, j.records[0].Files)
	assert.Empty(t, j.records[0].Error)
}

func TestScoringRouter_Score_EmptyListing(t *testing.T) {
	router, _ := newTestRouter(&stubEntry{files: []string{}})

	rec := httptest.NewRecorder()
	router.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/score", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", rec.Body.String())
}

func TestScoringRouter_Score_EchoesRequestID(t *testing.T) {
	router, _ := newTestRouter(&stubEntry{files: []string{"model.pkl"}})

	req := httptest.NewRequest(http.MethodPost, "/score", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	router.Mux().ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))
}

func TestScoringRouter_Score_YAML(t *testing.T) {
	router, _ := newTestRouter(&stubEntry{files: []string{"conda.yml", "model.pkl"}})

	req := httptest.NewRequest(http.MethodPost, "/score", nil)
	req.Header.Set("Accept", "application/yaml")
	rec := httptest.NewRecorder()
	router.Mux().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))

	var files []string
	require.NoError(t, yaml.Unmarshal(rec.Body.Bytes(), &files))
	assert.Equal(t, []string{"conda.yml", "model.pkl"}, files)
}

func TestScoringRouter_Score_Fault(t *testing.T) {
	entry := &stubEntry{err: errors.New("list model directory /models: no such file or directory")}
	router, j := newTestRouter(entry)

	rec := httptest.NewRecorder()
	router.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/score", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "/models", "fault details should stay in logs")

	require.Len(t, j.records, 1)
	assert.Contains(t, j.records[0].Error, "no such file")
}

func TestScoringRouter_Score_MethodNotAllowed(t *testing.T) {
	router, _ := newTestRouter(&stubEntry{})

	rec := httptest.NewRecorder()
	router.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/score", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestScoringRouter_Invocations(t *testing.T) {
	router, _ := newTestRouter(&stubEntry{files: []string{"model.pkl"}})
	tick := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	router.now = func() time.Time {
		tick = tick.Add(time.Millisecond)
		return tick
	}
	mux := router.Mux()

	for _, id := range []string{"a", "b"} {
		req := httptest.NewRequest(http.MethodPost, "/score", nil)
		req.Header.Set(RequestIDHeader, id)
		mux.ServeHTTP(httptest.NewRecorder(), req)
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/invocations", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var records []invocation.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].ID)
	assert.Equal(t, "b", records[1].ID)
	assert.Equal(t, time.Millisecond, records[0].Duration)
}

func TestNewScoringRouter_NilJournal(t *testing.T) {
	router := NewScoringRouter(&stubEntry{files: []string{}}, invocation.NewHistory(1, 0), nil, 0)

	rec := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		router.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/score", nil))
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestScoringRouter_Score_BodyTooLarge(t *testing.T) {
	entry := &stubEntry{files: []string{"model.pkl"}}
	router, j := newTestRouter(entry)

	req := httptest.NewRequest(http.MethodPost, "/score", strings.NewReader(strings.Repeat("x", 1025)))
	rec := httptest.NewRecorder()
	router.Mux().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Nil(t, entry.payload, "oversized body should not reach the entry")
	require.Len(t, j.records, 1)
	assert.NotEmpty(t, j.records[0].Error)
}

func TestScoringRouter_Score_BodyAtLimit(t *testing.T) {
	entry := &stubEntry{files: []string{"model.pkl"}}
	router, _ := newTestRouter(entry)

	req := httptest.NewRequest(http.MethodPost, "/score", strings.NewReader(strings.Repeat("x", 1024)))
	rec := httptest.NewRecorder()
	router.Mux().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, entry.payload, 1024)
}

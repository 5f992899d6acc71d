package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"onlinescoring/internal/invocation"
	"onlinescoring/internal/journal"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// RequestIDHeader carries the request identifier in both directions.
const RequestIDHeader = "x-ms-request-id"

// ScoringEntry is the scoring hook the router drives.
type ScoringEntry interface {
	Run(ctx context.Context, raw []byte) ([]string, error)
	ModelPath() (string, bool)
}

// ScoringRouter exposes the scoring entry point over HTTP the way the
// hosting platform frames it.
type ScoringRouter struct {
	// entry — scoring hooks; Init is expected to run before the router serves.
	entry ScoringEntry
	// history — recent invocations, exposed for diagnostics.
	history *invocation.History
	// journal — persistent invocation log.
	journal journal.Journal
	// maxBodyBytes — request body limit for /score, non-positive disables it.
	maxBodyBytes int64
	// now — clock, replaced in tests.
	now func() time.Time
}

// Mux returns a configured *http.ServeMux with registered handlers:
// - GET / — liveness
// - GET /healthz — readiness
// - POST /score — scoring
// - GET /api/v1/invocations — recent invocations
func (sr *ScoringRouter) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", sr.livenessHandler)
	mux.HandleFunc("GET /healthz", sr.readinessHandler)
	mux.HandleFunc("POST /score", sr.scoreHandler)
	mux.HandleFunc("GET /api/v1/invocations", sr.invocationsHandler)
	return mux
}

func (sr *ScoringRouter) livenessHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Healthy"))
}

// readinessHandler reports 503 until the scoring entry has been initialized.
func (sr *ScoringRouter) readinessHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := sr.entry.ModelPath(); !ok {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// scoreHandler passes the raw body to the scoring entry and writes back
// the returned file names. Any fault of the entry becomes a 500 without details.
func (sr *ScoringRouter) scoreHandler(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, id)

	started := sr.now()
	record := invocation.Record{ID: id, Time: started}
	defer func() {
		record.Duration = sr.now().Sub(started)
		sr.history.Append(record)
		sr.journal.Append(record)
	}()

	if sr.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, sr.maxBodyBytes)
	}
	body, err := io.ReadAll(r.Body)
	defer r.Body.Close()
	if err != nil {
		slog.Warn("Unable to read score request body", "id", id, "error", err)
		record.Error = err.Error()
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	record.PayloadBytes = len(body)

	files, err := sr.entry.Run(r.Context(), body)
	if err != nil {
		slog.Error("Scoring failed", "id", id, "error", err)
		record.Error = err.Error()
		http.Error(w, "An unexpected error occurred in scoring script.", http.StatusInternalServerError)
		return
	}
	record.Files = len(files)

	if acceptsYAML(r) {
		writeYAML(w, files)
		return
	}
	writeJSON(w, files)
}

func (sr *ScoringRouter) invocationsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, sr.history.List())
}

func acceptsYAML(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/yaml") || strings.Contains(accept, "application/x-yaml")
}

func writeJSON(w http.ResponseWriter, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		slog.Warn("Unable to marshal response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

func writeYAML(w http.ResponseWriter, v any) {
	body, err := yaml.Marshal(v)
	if err != nil {
		slog.Warn("Unable to marshal response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.Write(body)
}

// NewScoringRouter creates the router.
// A nil journal disables journaling, a non-positive maxBodyBytes the body limit.
func NewScoringRouter(entry ScoringEntry, history *invocation.History, j journal.Journal, maxBodyBytes int64) *ScoringRouter {
	if j == nil {
		j = journal.Nop{}
	}
	return &ScoringRouter{
		entry:        entry,
		history:      history,
		journal:      j,
		maxBodyBytes: maxBodyBytes,
		now:          time.Now,
	}
}

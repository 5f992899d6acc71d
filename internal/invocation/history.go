package invocation

import (
	"context"
	"onlinescoring/internal/utils"
	"time"
)

// Record describes one call of the scoring handler.
type Record struct {
	// ID — request identifier, echoed in the x-ms-request-id header.
	ID string `json:"id"`
	// Time — moment the request was received.
	Time time.Time `json:"time"`
	// PayloadBytes — size of the raw request body. The body itself is never kept.
	PayloadBytes int `json:"payloadBytes"`
	// Files — number of file names returned.
	Files int `json:"files"`
	// Error — fault text, empty on success.
	Error string `json:"error,omitempty"`
	// Duration — handler execution time.
	Duration time.Duration `json:"duration"`
}

// History keeps the most recent scoring invocations in memory.
// At most length records are kept; records older than ttl are pruned by Serve.
// All methods are safe for concurrent use.
//
// Example:
//
//	history := invocation.NewHistory(100, time.Hour)
//	go history.Serve(ctx)
//	history.Append(invocation.Record{ID: "42", Time: time.Now()})
type History struct {
	ttl     time.Duration
	records *utils.RingBuffer[Record]
	now     func() time.Time
}

// Append stores r, evicting the oldest record when the history is full.
func (h *History) Append(r Record) {
	h.records.Push(r)
}

// List returns a copy of stored records, oldest first.
func (h *History) List() []Record {
	return h.records.ToSlice()
}

// Prune drops records older than ttl and returns how many were dropped.
// A non-positive ttl disables pruning.
func (h *History) Prune() int {
	if h.ttl <= 0 {
		return 0
	}
	deadline := h.now().Add(-h.ttl)
	return h.records.Retain(func(r Record) bool {
		return r.Time.After(deadline)
	})
}

// Serve prunes outdated records once a minute until ctx is done.
// Blocks, so it should be started in its own goroutine:
//
//	go history.Serve(ctx)
func (h *History) Serve(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Prune()
		}
	}
}

// NewHistory creates a history holding up to length records for ttl.
// length must be positive.
func NewHistory(length int, ttl time.Duration) *History {
	return &History{
		ttl:     ttl,
		records: utils.NewRingBuffer[Record](length),
		now:     time.Now,
	}
}

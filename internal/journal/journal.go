package journal

import "onlinescoring/internal/invocation"

// Journal persists scoring invocation records.
type Journal interface {
	Append(r invocation.Record)
	Close()
}

// Nop discards every record. Used when no journal file is configured.
type Nop struct{}

func (Nop) Append(invocation.Record) {}

func (Nop) Close() {}

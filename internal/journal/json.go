package journal

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"onlinescoring/internal/invocation"

	"gopkg.in/natefinch/lumberjack.v2"
)

// recordHandler is a slog handler writing one JSON object per line,
// with time in "2006-01-02 15:04:05" format and without the level and message fields.
// Attributes are written at the top level of the object, groups as nested objects.
type recordHandler struct {
	out    io.Writer
	preset map[string]any // attributes added through WithAttrs
	groups []string       // groups opened through WithGroup, outermost first
}

func newRecordHandler(out io.Writer) *recordHandler {
	return &recordHandler{out: out, preset: make(map[string]any)}
}

// Handle serializes r as a single JSONL line.
func (h *recordHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := cloneObject(h.preset)
	attrs["time"] = r.Time.Format("2006-01-02 15:04:05")

	r.Attrs(func(a slog.Attr) bool {
		insertAttr(attrs, h.groups, a)
		return true
	})

	data, err := json.Marshal(attrs)
	if err != nil {
		return err
	}

	_, err = h.out.Write(append(data, '\n'))
	return err
}

// WithAttrs returns a handler adding attrs, under the currently open groups, to every line.
func (h *recordHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	preset := cloneObject(h.preset)
	for _, a := range attrs {
		insertAttr(preset, h.groups, a)
	}
	return &recordHandler{out: h.out, preset: preset, groups: h.groups}
}

// WithGroup returns a handler nesting subsequent attributes under name.
func (h *recordHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	groups := make([]string, len(h.groups), len(h.groups)+1)
	copy(groups, h.groups)
	return &recordHandler{out: h.out, preset: h.preset, groups: append(groups, name)}
}

// Enabled always returns true.
func (h *recordHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

// insertAttr stores a into the object nested under path.
// Empty keys and nil values are skipped; an inline group (empty key) is flattened.
func insertAttr(root map[string]any, path []string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		members := a.Value.Group()
		if len(members) == 0 {
			return
		}
		if a.Key != "" {
			path = append(path[:len(path):len(path)], a.Key)
		}
		for _, m := range members {
			insertAttr(root, path, m)
		}
		return
	}

	if a.Key == "" || a.Value.Any() == nil {
		return
	}
	object := root
	for _, g := range path {
		nested, ok := object[g].(map[string]any)
		if !ok {
			nested = make(map[string]any)
			object[g] = nested
		}
		object = nested
	}
	object[a.Key] = a.Value.Any()
}

func cloneObject(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src)+1)
	for k, v := range src {
		if nested, ok := v.(map[string]any); ok {
			v = cloneObject(nested)
		}
		dst[k] = v
	}
	return dst
}

// JsonJournal writes invocation records to a JSONL file with size based rotation
// and compression of rotated files. Safe for concurrent use.
type JsonJournal struct {
	lumberjack *lumberjack.Logger
	logger     *slog.Logger
}

// NewJsonJournal creates a journal writing to file.
// maxSize is the size in megabytes that triggers rotation,
// maxBackups the number of rotated files kept.
func NewJsonJournal(file string, maxSize, maxBackups int) *JsonJournal {
	j := JsonJournal{}
	j.lumberjack = &lumberjack.Logger{
		Filename:   file,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
		Compress:   true,
	}
	j.logger = slog.New(newRecordHandler(j.lumberjack))
	return &j
}

// Append writes r as a {"time": ..., "invocation": {...}} line.
func (j *JsonJournal) Append(r invocation.Record) {
	j.logger.Info("", "invocation", r)
}

// Close flushes and closes the current file.
func (j *JsonJournal) Close() {
	if err := j.lumberjack.Close(); err != nil {
		slog.Warn("Unable to close journal", "error", err)
	}
}

package scoring

import (
	"context"
	"errors"
	"log/slog"
	"onlinescoring/internal/modeldir"
	"os"
	"sync"
)

// DefaultModelDirEnv is set by the hosting platform during deployment.
// It points to the model folder (./azureml-models/$MODEL_NAME/$VERSION).
const DefaultModelDirEnv = "AZUREML_MODEL_DIR"

// ErrModelDirNotSet is returned by Run when the model directory variable is
// unset or empty at request time, or was empty when Init cached it.
var ErrModelDirNotSet = errors.New("model directory is not set")

// ListError is returned by Run when the model directory cannot be listed.
type ListError struct {
	Dir string
	Err error
}

func (e *ListError) Error() string {
	return "list model directory " + e.Dir + ": " + e.Err.Error()
}

func (e *ListError) Unwrap() error {
	return e.Err
}

// Entry holds the two hooks the hosting platform invokes: Init once per
// container start or update, Run once per scoring request.
type Entry struct {
	envVar string
	lister *modeldir.Lister

	modelPath   string
	initialized bool
	mu          sync.RWMutex
}

// Init reads the model directory from the environment and caches it.
// It never fails: an unset variable caches an empty path and the fault
// surfaces on the first Run instead.
func (e *Entry) Init() {
	path := os.Getenv(e.envVar)

	e.mu.Lock()
	e.modelPath = path
	e.initialized = true
	e.mu.Unlock()

	slog.Info("Init complete", "env", e.envVar, "modelPath", path)
}

// ModelPath returns the path cached by Init and whether Init has run.
func (e *Entry) ModelPath() (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.modelPath, e.initialized
}

// Run handles one scoring request. The payload is accepted but not parsed.
//
// The model directory variable is re-read on every call and its listing is
// returned. Once Init has run, the cached directory is listed too and logged;
// an empty cached path or a failed listing of it is returned as a fault.
// Before Init only the re-read directory is listed.
func (e *Entry) Run(ctx context.Context, raw []byte) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := os.Getenv(e.envVar)
	if dir == "" {
		return nil, ErrModelDirNotSet
	}

	files, err := e.lister.List(dir)
	if err != nil {
		return nil, &ListError{Dir: dir, Err: err}
	}

	if err := e.listCached(); err != nil {
		return nil, err
	}
	return files, nil
}

func (e *Entry) listCached() error {
	cached, ok := e.ModelPath()
	if !ok {
		slog.Warn("Model directory not cached, Init was not called")
		return nil
	}
	if cached == "" {
		return ErrModelDirNotSet
	}

	files, err := e.lister.List(cached)
	if err != nil {
		return &ListError{Dir: cached, Err: err}
	}
	slog.Info("Cached model directory", "path", cached, "files", files)
	return nil
}

// NewEntry creates the scoring entry point reading the model directory from
// envVar, or from DefaultModelDirEnv when envVar is empty.
func NewEntry(envVar string, lister *modeldir.Lister) *Entry {
	if envVar == "" {
		envVar = DefaultModelDirEnv
	}
	return &Entry{envVar: envVar, lister: lister}
}

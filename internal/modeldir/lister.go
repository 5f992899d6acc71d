package modeldir

import (
	"fmt"
	"log/slog"
	"os"
)

// Lister lists the file names of a model directory.
// Entries matching any exclusion rule are left out; without rules
// the listing is the directory content as is.
type Lister struct {
	exclude []Rule
}

// List returns the names of dir entries sorted by name.
// An empty directory yields an empty, non-nil slice.
// Filesystem errors are returned unchanged.
func (l *Lister) List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, de := range entries {
		if len(l.exclude) > 0 && l.excluded(dir, de) {
			continue
		}
		names = append(names, de.Name())
	}
	return names, nil
}

func (l *Lister) excluded(dir string, de os.DirEntry) bool {
	entry := Entry{Name: de.Name(), Dir: de.IsDir()}
	if info, err := de.Info(); err == nil {
		entry.Size = info.Size()
	}

	for i := range l.exclude {
		matched, err := l.exclude[i].Match(entry)
		if err != nil {
			slog.Warn("Exclusion rule eval", "error", err, "rule", l.exclude[i].When, "dir", dir, "name", entry.Name)
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// NewLister compiles the exclusion expressions. Any invalid expression fails
// the whole construction.
func NewLister(exclude []string) (*Lister, error) {
	lister := Lister{exclude: make([]Rule, 0, len(exclude))}
	if len(exclude) == 0 {
		return &lister, nil
	}

	env, err := NewEntryEnv()
	if err != nil {
		return nil, err
	}
	for _, expr := range exclude {
		rule := Rule{When: expr}
		if err := rule.Init(env); err != nil {
			return nil, fmt.Errorf("exclude rule %q: %w", expr, err)
		}
		lister.exclude = append(lister.exclude, rule)
	}
	return &lister, nil
}

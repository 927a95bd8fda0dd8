package journal

import (
	"context"
	"errors"
	"fmt"
)

// Entry is one recorded action with an optional compensating function. A nil
// Compensate marks an action that local transaction rollback undoes on its
// own.
type Entry struct {
	Name       string
	Compensate func(ctx context.Context) error
}

// Journal is an append-only compensation log. Actions with external side
// effects are recorded as they complete so they stay reversible even when a
// later step fails before any further bookkeeping.
type Journal struct {
	name    string
	entries []Entry
}

// New creates a journal named after the unit of work it protects.
func New(name string) *Journal {
	return &Journal{name: name}
}

// Append records a completed action.
func (j *Journal) Append(e Entry) {
	j.entries = append(j.entries, e)
}

// Len returns the number of recorded actions.
func (j *Journal) Len() int {
	return len(j.entries)
}

// Compensate runs the compensating functions of all recorded actions in
// reverse order. Every entry is attempted even when earlier ones fail; the
// joined error is for logging only and must not fail the caller's own path.
func (j *Journal) Compensate(ctx context.Context) error {
	var errs []error
	for i := len(j.entries) - 1; i >= 0; i-- {
		e := j.entries[i]
		if e.Compensate == nil {
			continue
		}
		if err := e.Compensate(ctx); err != nil {
			errs = append(errs, fmt.Errorf("journal %s: compensate %q: %w", j.name, e.Name, err))
		}
	}
	return errors.Join(errs...)
}

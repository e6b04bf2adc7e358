package scheduler

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCatalogMismatch is returned when a schedule is optimized against a
// catalog it was not built from.
var ErrCatalogMismatch = errors.New("schedule was built from a different catalog")

// ErrNilCatalog is returned when an engine operation receives no catalog.
var ErrNilCatalog = errors.New("catalog is required")

// InputError lists every problem found while validating a catalog input.
type InputError struct {
	Issues []string
}

func (e *InputError) Error() string {
	if e == nil || len(e.Issues) == 0 {
		return "invalid catalog"
	}
	if len(e.Issues) == 1 {
		return "invalid catalog: " + e.Issues[0]
	}
	return fmt.Sprintf("invalid catalog: %s (and %d more)", e.Issues[0], len(e.Issues)-1)
}

// Detail joins every issue on its own line.
func (e *InputError) Detail() string {
	return strings.Join(e.Issues, "\n")
}

// InvariantError signals a programming defect: the schedule and the
// constraint checker disagree. The engine panics with it.
type InvariantError struct {
	Op     string
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("scheduler invariant violated in %s: %s", e.Op, e.Detail)
}

func invariant(op, format string, args ...any) {
	panic(&InvariantError{Op: op, Detail: fmt.Sprintf(format, args...)})
}

package proc

import (
	"fmt"

	"github.com/frdeso/yactfr/internal/metadata"
)

// ErrorKind identifies the class of a build failure. The builder only
// ever asserts preconditions spec'd as already enforced by metadata
// validation (spec §4.1's "Failure: none at runtime"), but a handful of
// cross-cutting checks (unresolved data locations, malformed
// enumeration selector mappings) are only reachable at build time, once
// the whole trace type is in view. ErrDuplicateRole and
// ErrSlotPoolExhausted are declared, but Build never returns them.
type ErrorKind int

const (
	ErrDuplicateRole ErrorKind = iota
	ErrUnresolvedDataLoc
	ErrSlotPoolExhausted
	ErrIncompleteEnumSelector
	ErrOverlappingSelectorMapping
)

func (k ErrorKind) String() string {
	switch k {
	case ErrDuplicateRole:
		return "duplicate role"
	case ErrUnresolvedDataLoc:
		return "unresolved data location"
	case ErrSlotPoolExhausted:
		return "slot pool exhausted"
	case ErrIncompleteEnumSelector:
		return "incomplete enumeration selector"
	case ErrOverlappingSelectorMapping:
		return "overlapping selector mapping"
	default:
		return "unknown build error"
	}
}

// BuildError reports a failure encountered while lowering a trace type
// into a TraceProc, following the teacher's schema.ValidationError
// pattern of a typed struct with a descriptive Error() rather than a
// bare sentinel, since callers benefit from Kind plus an optional source
// location.
type BuildError struct {
	Kind   ErrorKind
	Path   string
	Reason string
	Loc    metadata.TextLoc
}

func (e *BuildError) Error() string {
	if e.Loc.Valid {
		return fmt.Sprintf("proc: build: %s: %s (at %d:%d): %s", e.Kind, e.Path, e.Loc.Line, e.Loc.Column, e.Reason)
	}
	return fmt.Sprintf("proc: build: %s: %s: %s", e.Kind, e.Path, e.Reason)
}

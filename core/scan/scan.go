// Package scan holds the source scanners. Each scanner turns one kind of
// input into normalized events plus warnings for the units it had to skip.
package scan

import (
	"context"
	"errors"
	"fmt"

	"github.com/huangsam/hourglass/schema"
)

// Scanner produces events for a window of whole UTC dates.
type Scanner interface {
	Name() schema.ScanSource
	Scan(ctx context.Context, window schema.Window) (Result, error)
}

// Result is the output of one scanner run.
type Result struct {
	Events   []schema.Event
	Warnings []schema.Warning
}

// Append merges other into r.
func (r *Result) Append(other Result) {
	r.Events = append(r.Events, other.Events...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// Warn records a skipped unit.
func (r *Result) Warn(scope schema.WarningScope, target string, err error) {
	r.Warnings = append(r.Warnings, warning(scope, target, err))
}

func warning(scope schema.WarningScope, target string, err error) schema.Warning {
	reason := "skipped"
	if err != nil {
		reason = err.Error()
	}
	return schema.Warning{Scope: scope, Target: target, Reason: reason}
}

// ErrUnsupportedFilesystem is returned when the filesystem gate rejects a root.
var ErrUnsupportedFilesystem = errors.New("unsupported filesystem")

// ErrBudgetExceeded marks a root that ran out of its time budget.
var ErrBudgetExceeded = errors.New("time budget exceeded")

// contextWarning describes why a unit stopped when its context ended.
func contextWarning(ctx context.Context, scope schema.WarningScope, target string) schema.Warning {
	return warning(scope, target, fmt.Errorf("stopped early: %w", context.Cause(ctx)))
}

package core

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/hourglass/core/agg"
	"github.com/huangsam/hourglass/core/normalize"
	"github.com/huangsam/hourglass/core/scan"
	"github.com/huangsam/hourglass/internal/contract"
	"github.com/huangsam/hourglass/internal/export"
	"github.com/huangsam/hourglass/internal/ghapi"
	"github.com/huangsam/hourglass/internal/logger"
	"github.com/huangsam/hourglass/schema"
	"golang.org/x/sync/errgroup"
)

// stageOutput is what one scanner contributes to the report.
type stageOutput struct {
	partial  *agg.Aggregator
	warnings []schema.Warning
	events   []schema.Event // kept only when the run exports events
}

// runReportCore fans the scanners out, merges their partial aggregates in
// scanner order and records the run when a run store is configured.
func runReportCore(ctx context.Context, cfg *contract.Config, scanners []scan.Scanner, mgr contract.CacheManager, now func() time.Time) (*schema.Report, error) {
	log := logger.Named("core")
	start := now()

	report := &schema.Report{
		RunID:     uuid.NewString(),
		StartedAt: start.UTC(),
		Sources:   slices.Clone(cfg.Sources),
		Window:    cfg.Window,
	}
	if cfg.HasSource(schema.APIScan) && cfg.HasSource(schema.LocalScan) {
		report.Warnings = append(report.Warnings, schema.Warning{
			Scope:  schema.RunScope,
			Target: "sources",
			Reason: "api and local may both see the same commits; they are not deduplicated",
		})
	}
	log.Info().Str("run_id", report.RunID).Strs("sources", sourceNames(cfg.Sources)).Msg("Starting report")

	// --- 0. Begin Run Tracking (if configured) ---
	var runStore contract.RunStore
	if mgr != nil {
		runStore = mgr.GetRunStore()
	}
	tracking := false
	if runStore != nil {
		if err := runStore.BeginRun(report.RunID, start, cfg.Params()); err != nil {
			contract.LogWarn("Run tracking initialization failed", err)
		} else {
			tracking = true
		}
	}

	// --- 1. Scan Phase ---
	scanCtx, cancel := withDeadline(ctx, cfg.Deadline)
	defer cancel()

	outputs, err := runStages(scanCtx, cfg, scanners)
	if err != nil {
		if tracking {
			if endErr := runStore.EndRun(report.RunID, now(), 0, 1); endErr != nil {
				contract.LogWarn("Failed to finalize run tracking", endErr)
			}
		}
		return nil, err
	}

	// --- 2. Merge Phase ---
	total := agg.New(aggOptions(cfg))
	var events []schema.Event
	for _, out := range outputs {
		total.Merge(out.partial)
		report.Warnings = append(report.Warnings, out.warnings...)
		events = append(events, out.events...)
	}
	if errors.Is(context.Cause(scanCtx), errDeadline) {
		report.Warnings = append(report.Warnings, schema.Warning{
			Scope:  schema.RunScope,
			Target: "deadline",
			Reason: fmt.Sprintf("deadline of %s reached; results are partial", cfg.Deadline),
		})
	}

	result := total.Result()
	report.EventCount = result.Events
	report.DailyRecords = result.Daily
	report.UserSummaries = result.Users
	report.DailySummaries = result.Days
	report.PRTimeline = result.PRTimeline
	report.IssueTimeline = result.IssueTimeline
	report.UserTimeline = result.UserTimeline

	// --- 3. Event Export (if configured) ---
	if cfg.Export != schema.NoExport {
		if err := export.Events(ctx, cfg.Export, cfg.ExportConnect, report.RunID, events); err != nil {
			log.Warn().Err(err).Msg("Event export failed")
			report.Warnings = append(report.Warnings, schema.Warning{Scope: schema.RunScope, Target: "export", Reason: err.Error()})
		}
	}

	report.Duration = now().Sub(start)

	// --- 4. End Run Tracking ---
	if tracking {
		if err := runStore.RecordDailyRecords(report.RunID, report.DailyRecords); err != nil {
			contract.LogWarn("Failed to record daily rows", err)
		}
		if err := runStore.EndRun(report.RunID, now(), report.EventCount, len(report.Warnings)); err != nil {
			contract.LogWarn("Failed to finalize run tracking", err)
		}
	}

	log.Info().
		Str("run_id", report.RunID).
		Int("events", report.EventCount).
		Int("warnings", len(report.Warnings)).
		Dur("duration", report.Duration).
		Msg("Report complete")
	return report, nil
}

// runStages runs every scanner concurrently. Each one folds its own events
// into a private aggregator, so no aggregate state is shared between stages.
// Only fatal errors abort the run; any other scanner error becomes a warning.
func runStages(ctx context.Context, cfg *contract.Config, scanners []scan.Scanner) ([]stageOutput, error) {
	outputs := make([]stageOutput, len(scanners))
	allowed := allowedUsers(cfg.AllowedUsers)
	keepEvents := cfg.Export != schema.NoExport

	g, gctx := errgroup.WithContext(ctx)
	for i, s := range scanners {
		g.Go(func() error {
			res, err := s.Scan(gctx, cfg.Window)
			if err != nil {
				if isFatal(err) {
					return fmt.Errorf("%s scan failed: %w", s.Name(), err)
				}
				res.Warnings = append(res.Warnings, schema.Warning{Scope: schema.RunScope, Target: string(s.Name()), Reason: err.Error()})
			}

			events := filterUsers(normalize.WithDefaultUser(res.Events, cfg.DefaultUser), allowed)
			partial := agg.New(aggOptions(cfg))
			partial.Add(events...)

			outputs[i] = stageOutput{partial: partial, warnings: res.Warnings}
			if keepEvents {
				outputs[i].events = events
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}

// isFatal reports whether a scanner error must abort the whole run.
func isFatal(err error) bool {
	return contract.IsConfigError(err) || ghapi.KindOf(err) == ghapi.Unauthorized
}

func aggOptions(cfg *contract.Config) agg.Options {
	return agg.Options{
		Window:              cfg.Window,
		SessionHours:        cfg.SessionHours,
		IncludeUnattributed: cfg.IncludeUnattributed,
	}
}

// allowedUsers folds the configured names. A nil set allows everyone.
func allowedUsers(users []string) map[string]struct{} {
	if len(users) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(users))
	for _, u := range users {
		set[normalize.FoldUser(u)] = struct{}{}
	}
	return set
}

// filterUsers drops attributed events of users outside allowed. Unattributed
// events pass through; they never reach the per-user tables.
func filterUsers(events []schema.Event, allowed map[string]struct{}) []schema.Event {
	if allowed == nil {
		return events
	}
	kept := events[:0]
	for _, e := range events {
		if e.Attributed() {
			if _, ok := allowed[normalize.FoldUser(e.User)]; !ok {
				continue
			}
		}
		kept = append(kept, e)
	}
	return kept
}

func sourceNames(sources []schema.ScanSource) []string {
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = string(s)
	}
	return names
}

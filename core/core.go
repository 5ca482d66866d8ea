// Package core runs the report pipeline: build the scanners a config asks
// for, fan them out, and fold their events into one Report.
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/huangsam/hourglass/core/scan"
	"github.com/huangsam/hourglass/internal/contract"
	"github.com/huangsam/hourglass/internal/ghapi"
	"github.com/huangsam/hourglass/internal/outwriter"
	"github.com/huangsam/hourglass/schema"
)

// ExecutorFunc defines the function signature for executing different report modes.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error

// Dependencies are the external collaborators of the scanners. Nil fields
// are filled with the real implementations.
type Dependencies struct {
	Git    contract.GitClient
	GitHub scan.GitHub
}

func (d Dependencies) withDefaults(cfg *contract.Config) Dependencies {
	if d.Git == nil {
		d.Git = contract.NewLocalGitClient(cfg.Local.GitTimeout)
	}
	if d.GitHub == nil {
		d.GitHub = ghapi.NewClient(ghapi.Options{
			BaseURL:          cfg.API.BaseURL,
			Token:            cfg.API.Token,
			Timeout:          cfg.API.HTTPTimeout,
			MaxRetries:       cfg.Knobs.MaxRetries,
			DisableRateLimit: cfg.API.DisableRateLimit,
		}, nil)
	}
	return d
}

// BuildScanners returns one scanner per selected source, in the order the
// sources were given.
func BuildScanners(cfg *contract.Config, deps Dependencies, mgr contract.CacheManager) ([]scan.Scanner, error) {
	deps = deps.withDefaults(cfg)

	var cache contract.CacheStore
	if mgr != nil {
		cache = mgr.GetScanStore()
	}

	scanners := make([]scan.Scanner, 0, len(cfg.Sources))
	for _, source := range cfg.Sources {
		switch source {
		case schema.APIScan:
			scanners = append(scanners, scan.NewAPIScanner(cfg.API, deps.GitHub, cache))
		case schema.LocalScan:
			s, err := scan.NewLocalScanner(cfg, deps.Git)
			if err != nil {
				return nil, err
			}
			scanners = append(scanners, s)
		case schema.SnapshotScan:
			scanners = append(scanners, scan.NewSnapshotScanner(cfg, deps.Git))
		case schema.FilesystemScan:
			scanners = append(scanners, scan.NewFSScanner(cfg))
		default:
			return nil, fmt.Errorf("unknown source: %s", source)
		}
	}
	return scanners, nil
}

// BuildReport scans every selected source with the real clients and returns the report.
func BuildReport(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) (*schema.Report, error) {
	scanners, err := BuildScanners(cfg, Dependencies{}, mgr)
	if err != nil {
		return nil, err
	}
	return runReportCore(ctx, cfg, scanners, mgr, time.Now)
}

// ExecuteReport runs the pipeline and writes every sheet (or the selected one)
// in the configured output mode.
func ExecuteReport(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	report, err := BuildReport(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return outwriter.PrintReport(report, cfg)
}

// ExecuteTimeline runs the pipeline and writes only the unified user timeline.
func ExecuteTimeline(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	report, err := BuildReport(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return outwriter.PrintTimeline(report, cfg)
}

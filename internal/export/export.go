// Package export ships the unified event stream of a run to an external sink:
// a Parquet file (local or s3://bucket/key) or a ClickHouse table.
package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/huangsam/hourglass/internal/logger"
	"github.com/huangsam/hourglass/internal/parquet"
	"github.com/huangsam/hourglass/schema"
)

// Events writes events to the sink named by backend. connect is a file path,
// an s3:// URL or a ClickHouse DSN depending on the backend.
func Events(ctx context.Context, backend schema.ExportBackend, connect, runID string, events []schema.Event) error {
	switch backend {
	case schema.NoExport:
		return nil
	case schema.ParquetExport:
		return ParquetEvents(ctx, connect, runID, events, nil)
	case schema.ClickHouseExport:
		sink, err := OpenClickHouse(ctx, connect)
		if err != nil {
			return err
		}
		defer func() { _ = sink.Close() }()
		return ClickHouseEvents(ctx, sink, runID, events)
	default:
		return fmt.Errorf("unsupported export backend: %s", backend)
	}
}

// ParquetEvents encodes events as Parquet and writes them to dest. Destinations
// starting with s3:// are uploaded through putter, which defaults to an S3
// client built from the ambient AWS configuration.
func ParquetEvents(ctx context.Context, dest, runID string, events []schema.Event, putter ObjectPutter) error {
	if dest == "" {
		return fmt.Errorf("parquet export requires a destination")
	}

	var buf bytes.Buffer
	if err := parquet.Write(&buf, parquet.ConvertEvents(events, runID)); err != nil {
		return fmt.Errorf("failed to encode events: %w", err)
	}

	log := logger.Named("export")
	if isS3URL(dest) {
		bucket, key, err := parseS3URL(dest)
		if err != nil {
			return err
		}
		if putter == nil {
			client, err := NewS3Putter(ctx)
			if err != nil {
				return err
			}
			putter = client
		}
		if err := putObject(ctx, putter, bucket, key, buf.Bytes()); err != nil {
			return err
		}
		log.Info().Str("bucket", bucket).Str("key", key).Int("events", len(events)).Msg("uploaded event export")
		return nil
	}

	if dir := filepath.Dir(dest); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create export directory: %w", err)
		}
	}
	if err := os.WriteFile(dest, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write event export: %w", err)
	}
	log.Info().Str("path", dest).Int("events", len(events)).Msg("wrote event export")
	return nil
}

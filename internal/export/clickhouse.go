package export

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/huangsam/hourglass/internal/logger"
	"github.com/huangsam/hourglass/schema"
)

// eventsTable receives the unified event stream.
const eventsTable = "hourglass_events"

// clickHouseBatchSize bounds rows per INSERT block.
const clickHouseBatchSize = 10000

const createEventsTable = `CREATE TABLE IF NOT EXISTS ` + eventsTable + ` (
	run_id        String,
	source        LowCardinality(String),
	repository    String,
	user          Nullable(String),
	ts            DateTime64(3, 'UTC'),
	kind          LowCardinality(String),
	lines_added   UInt32,
	lines_deleted UInt32,
	path          Nullable(String),
	reference     Nullable(String)
) ENGINE = MergeTree
ORDER BY (run_id, repository, ts)`

const insertEvents = `INSERT INTO ` + eventsTable +
	` (run_id, source, repository, user, ts, kind, lines_added, lines_deleted, path, reference)`

// Batch is the part of a ClickHouse batch the exporter drives.
type Batch interface {
	Append(v ...any) error
	Send() error
	Abort() error
}

// Sink is a ClickHouse connection narrowed to what the exporter needs.
type Sink interface {
	Exec(ctx context.Context, query string, args ...any) error
	Prepare(ctx context.Context, query string) (Batch, error)
	Close() error
}

type clickHouseSink struct {
	conn driver.Conn
}

func (s *clickHouseSink) Exec(ctx context.Context, query string, args ...any) error {
	return s.conn.Exec(ctx, query, args...)
}

func (s *clickHouseSink) Prepare(ctx context.Context, query string) (Batch, error) {
	return s.conn.PrepareBatch(ctx, query)
}

func (s *clickHouseSink) Close() error {
	return s.conn.Close()
}

// OpenClickHouse connects to the server named by dsn and checks it is reachable.
func OpenClickHouse(ctx context.Context, dsn string) (Sink, error) {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid ClickHouse DSN: %w", err)
	}
	opts.ClientInfo = clientInfo()

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open ClickHouse connection: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to reach ClickHouse: %w", err)
	}
	return &clickHouseSink{conn: conn}, nil
}

// ClickHouseEvents creates the events table when missing and appends events in blocks.
func ClickHouseEvents(ctx context.Context, sink Sink, runID string, events []schema.Event) error {
	if err := sink.Exec(ctx, createEventsTable); err != nil {
		return fmt.Errorf("failed to create %s: %w", eventsTable, err)
	}

	for start := 0; start < len(events); start += clickHouseBatchSize {
		end := min(start+clickHouseBatchSize, len(events))
		if err := sendBlock(ctx, sink, runID, events[start:end]); err != nil {
			return err
		}
	}

	logger.Named("export").Info().
		Str("table", eventsTable).
		Str("run_id", runID).
		Int("events", len(events)).
		Msg("exported events to ClickHouse")
	return nil
}

func sendBlock(ctx context.Context, sink Sink, runID string, events []schema.Event) error {
	batch, err := sink.Prepare(ctx, insertEvents)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}
	for _, e := range events {
		if err := batch.Append(eventRow(runID, e)...); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("failed to append event %s/%s: %w", e.Source, e.Reference, err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

// eventRow lays an event out in insertEvents column order.
func eventRow(runID string, e schema.Event) []any {
	return []any{
		runID,
		string(e.Source),
		e.Repository,
		nullable(e.User),
		e.Timestamp.UTC().Truncate(time.Millisecond),
		string(e.Kind),
		uint32(max(e.LinesAdded, 0)),
		uint32(max(e.LinesDeleted, 0)),
		nullable(e.Path),
		nullable(e.Reference),
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// clientInfo tags queries with this binary so they can be traced in system.query_log.
func clientInfo() clickhouse.ClientInfo {
	host, _ := os.Hostname()
	type kv = struct{ Name, Version string }
	return clickhouse.ClientInfo{Products: []kv{
		{Name: "hourglass", Version: buildRevision()},
		{Name: "go", Version: runtime.Version()},
		{Name: "host", Version: strings.TrimSpace(host)},
	}}
}

func buildRevision() string {
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 7 {
				return s.Value[:7]
			}
		}
	}
	return "unknown"
}

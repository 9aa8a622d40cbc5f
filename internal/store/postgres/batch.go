// Package postgres lands normalized record batches in the destination
// Postgres databases. Writes are chunked, idempotent (ON CONFLICT upsert)
// or append-only, and best-effort: a failed chunk is logged and skipped so
// a transient error never discards the rest of a multi-hour run's work.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/datopublico/civicingest/internal/metrics"
)

// DefaultChunkSize is the number of rows written per statement.
const DefaultChunkSize = 100

// pool is the narrow slice of pgxpool.Pool the stores need; pgxmock
// satisfies it in tests.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// batchWriter implements the chunked write discipline shared by both store
// groups.
type batchWriter struct {
	pool   pool
	logger *zap.Logger
}

// upsert writes rows in chunks with ON CONFLICT resolution on conflictKey.
// With ignoreDuplicates the conflict action is DO NOTHING, used for
// discovery's bare placeholder rows so existing rows are not clobbered.
// The returned count covers only chunks that succeeded; no error escapes.
func (w *batchWriter) upsert(
	ctx context.Context,
	table string,
	cols []string,
	conflictKey string,
	ignoreDuplicates bool,
	chunkSize int,
	rows [][]any,
) int {
	action := conflictAction(cols, conflictKey, ignoreDuplicates)
	return w.write(ctx, table, cols, action, chunkSize, rows)
}

// insert writes rows in chunks with no conflict handling (append-only).
func (w *batchWriter) insert(ctx context.Context, table string, cols []string, chunkSize int, rows [][]any) int {
	return w.write(ctx, table, cols, "", chunkSize, rows)
}

func (w *batchWriter) write(
	ctx context.Context,
	table string,
	cols []string,
	conflictClause string,
	chunkSize int,
	rows [][]any,
) int {
	if len(rows) == 0 {
		return 0
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	written := 0
	for start := 0; start < len(rows); start += chunkSize {
		end := start + chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		sql := buildInsertSQL(table, cols, len(chunk), conflictClause)
		args := make([]any, 0, len(chunk)*len(cols))
		for _, row := range chunk {
			args = append(args, row...)
		}

		if _, err := w.pool.Exec(ctx, sql, args...); err != nil {
			w.logger.Error("batch chunk write failed, continuing",
				zap.String("table", table),
				zap.Int("chunk_start", start),
				zap.Int("chunk_rows", len(chunk)),
				zap.Error(err))
			metrics.ObserveChunkFailure(table)
			continue
		}
		written += len(chunk)
	}
	metrics.AddRowsWritten(table, written)
	return written
}

// buildInsertSQL renders a multi-row INSERT for one chunk.
func buildInsertSQL(table string, cols []string, nrows int, conflictClause string) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(") VALUES ")

	arg := 1
	for row := 0; row < nrows; row++ {
		if row > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for col := range cols {
			if col > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", arg)
			arg++
		}
		b.WriteString(")")
	}
	if conflictClause != "" {
		b.WriteString(" ")
		b.WriteString(conflictClause)
	}
	return b.String()
}

// conflictAction builds the ON CONFLICT clause: DO NOTHING when duplicates
// are ignored or the row carries nothing but its key, otherwise an update
// of every non-key column from EXCLUDED.
func conflictAction(cols []string, conflictKey string, ignoreDuplicates bool) string {
	updatable := make([]string, 0, len(cols))
	for _, col := range cols {
		if col != conflictKey {
			updatable = append(updatable, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		}
	}
	if ignoreDuplicates || len(updatable) == 0 {
		return fmt.Sprintf("ON CONFLICT (%s) DO NOTHING", conflictKey)
	}
	return fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", conflictKey, strings.Join(updatable, ", "))
}

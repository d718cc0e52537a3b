// Package postgres implements an append-only Postgres sink for decision
// records. The table is an outbox: rows are only ever inserted, keyed by
// decision_id, with the full record as a JSONB payload alongside the columns
// the verification reader filters on.
package postgres

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"decisiontrace/pkg/record"
)

// ErrDuplicateDecision reports an insert for a decision_id that already has
// a row. The recorder guarantees at-most-once submission per sink, so a
// duplicate here means a reused identifier rather than a retry.
var ErrDuplicateDecision = errors.New("decision_id already persisted")

const uniqueViolation = "23505"

// Exporter appends records to the decision_records table. The *sql.DB pool
// serializes row inserts; each record is one atomic row.
type Exporter struct {
	db    *sql.DB
	table string
}

// Option configures the Exporter.
type Option func(*Exporter)

// WithTable overrides the default table name.
func WithTable(table string) Option {
	return func(e *Exporter) {
		e.table = table
	}
}

// New creates a Postgres exporter on an existing pool. The exporter does not
// own the pool; Close is a no-op so one pool can back several sinks.
func New(db *sql.DB, opts ...Option) *Exporter {
	e := &Exporter{db: db, table: "decision_records"}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Migrate creates the decision_records table if it does not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS decision_records (
			decision_id   TEXT PRIMARY KEY,
			decision_type TEXT NOT NULL,
			tenant_id     TEXT NOT NULL,
			environment   TEXT NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL,
			payload       JSONB NOT NULL
		)
	`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("migrate decision_records: %w", err)
	}
	return nil
}

// Name identifies the sink.
func (e *Exporter) Name() string {
	return "postgres:" + e.table
}

// Append inserts one record. Inserting a decision_id that already exists
// fails with ErrDuplicateDecision instead of overwriting the stored row.
func (e *Exporter) Append(ctx context.Context, rec record.Record) error {
	line, err := record.EncodeLine(rec)
	if err != nil {
		return err
	}
	payload := bytes.TrimSuffix(line, []byte("\n"))

	query := fmt.Sprintf(`
		INSERT INTO %s (decision_id, decision_type, tenant_id, environment, created_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, pq.QuoteIdentifier(e.table))

	_, err = e.db.ExecContext(ctx, query,
		rec.DecisionID,
		rec.DecisionType,
		rec.TenantID,
		rec.Environment,
		rec.Timestamp,
		string(payload),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return fmt.Errorf("insert decision %s: %w", rec.DecisionID, ErrDuplicateDecision)
		}
		return fmt.Errorf("insert decision %s: %w", rec.DecisionID, err)
	}
	return nil
}

// Close is a no-op; the caller owns the pool.
func (e *Exporter) Close() error {
	return nil
}

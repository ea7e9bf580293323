package history

import (
	"context"
	"fmt"

	"github.com/2beens/fittrack/internal/apperr"
	"github.com/2beens/fittrack/internal/telemetry/tracing"
	"github.com/2beens/fittrack/pkg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var _ Store = (*PsqlStore)(nil)

// PsqlStore keeps the history in the history_entry table. With maxEntries > 0
// only the newest maxEntries rows of each kind are kept.
type PsqlStore struct {
	db         *pgxpool.Pool
	maxEntries int
}

func NewPsqlStore(db *pgxpool.Pool, maxEntries int) *PsqlStore {
	return &PsqlStore{
		db:         db,
		maxEntries: maxEntries,
	}
}

func (s *PsqlStore) Append(ctx context.Context, entry Entry) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "history.psql.append")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("kind", entry.Kind.String()))
	span.SetAttributes(attribute.String("id", entry.ID))

	if !entry.Kind.IsValid() {
		return fmt.Errorf("invalid history entry kind: %q", entry.Kind)
	}

	err = pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO history_entry (id, kind, name, finished_at, payload)
			VALUES ($1, $2, $3, $4, $5)
		`,
			entry.ID, entry.Kind, entry.Name, entry.FinishedAt.UTC(), []byte(entry.Payload),
		); err != nil {
			return err
		}

		if s.maxEntries <= 0 {
			return nil
		}
		tag, err := tx.Exec(ctx, `
			DELETE FROM history_entry
			WHERE kind = $1 AND id NOT IN (
				SELECT id FROM history_entry
				WHERE kind = $1
				ORDER BY finished_at DESC, id
				LIMIT $2
			)
		`, entry.Kind, s.maxEntries)
		if err != nil {
			return fmt.Errorf("trim: %w", err)
		}
		span.SetAttributes(attribute.Int64("trimmed", tag.RowsAffected()))
		return nil
	})
	if pkg.IsUniqueViolationError(err) {
		return fmt.Errorf("history entry %s already recorded: %w", entry.ID, apperr.ErrInvariantViolation)
	}
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}

	return nil
}

func (s *PsqlStore) List(ctx context.Context, kind Kind, limit int) (_ []Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "history.psql.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("kind", kind.String()))
	span.SetAttributes(attribute.Int("limit", limit))

	// LIMIT NULL means no limit
	var limitArg *int
	if limit > 0 {
		limitArg = &limit
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, kind, name, finished_at, payload
		FROM history_entry
		WHERE kind = $1
		ORDER BY finished_at DESC, id
		LIMIT $2
	`, kind, limitArg)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var entry Entry
		var payload []byte
		if err := rows.Scan(&entry.ID, &entry.Kind, &entry.Name, &entry.FinishedAt, &payload); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		entry.Payload = payload
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

// Schema creates the history table, used by tests and first deployments.
const Schema = `
CREATE TABLE IF NOT EXISTS history_entry
(
    id          TEXT PRIMARY KEY,
    kind        TEXT        NOT NULL,
    name        TEXT        NOT NULL DEFAULT '',
    finished_at TIMESTAMPTZ NOT NULL,
    payload     JSONB       NOT NULL
);

CREATE INDEX IF NOT EXISTS ix_history_entry_kind_finished_at ON history_entry USING btree (kind, finished_at DESC);
`

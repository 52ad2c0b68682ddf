// Package ledger is the persistent record of processed messages. It
// answers "have we already recorded this application" via a primary
// email-id key and a fuzzy composite key, and it owns the cross-run lock.
package ledger

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"apptrack/internal/model"
)

// ErrExists reports a commit that lost to an earlier entry for the same
// email id. The run lock makes this unreachable in practice; it is kept
// as a typed result so callers can treat it as a duplicate, not a fault.
var ErrExists = eris.New("ledger: entry already committed")

// Entry is one committed message.
type Entry struct {
	EmailID     string
	Company     string
	Position    string
	DateApplied string
	ProcessedAt time.Time
}

// Store wraps the sqlite ledger. All errors from Store are fatal to the
// run: once the ledger is unreadable, exactly-once accounting is off.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate brings the schema to the current version. Normalized key
// columns are stored alongside the display values so the fuzzy check is
// a plain indexed comparison.
func (s *Store) Migrate(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "ledger: begin migrate")
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return eris.Wrap(err, "ledger: read schema version")
	}
	if v >= 1 {
		return tx.Commit()
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS processed_emails (
  email_id TEXT PRIMARY KEY,
  company TEXT NOT NULL,
  position TEXT NOT NULL,
  date_applied TEXT NOT NULL,
  norm_company TEXT NOT NULL,
  norm_position TEXT NOT NULL,
  processed_at TEXT NOT NULL
);
`); err != nil {
		return eris.Wrap(err, "ledger: create table")
	}

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_processed_composite
ON processed_emails(norm_company, norm_position, date_applied);
`); err != nil {
		return eris.Wrap(err, "ledger: create index")
	}

	if _, err := tx.Exec(`PRAGMA user_version = 1;`); err != nil {
		return eris.Wrap(err, "ledger: set schema version")
	}

	return tx.Commit()
}

// IsDuplicate reports whether emailID was already committed, or whether
// any committed entry matches the composite key fuzzily: identical
// normalized company and position, date within one calendar day either
// side, inclusive.
func (s *Store) IsDuplicate(ctx context.Context, emailID, company, position, date string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM processed_emails WHERE email_id = ?`, emailID,
	).Scan(&one)
	switch {
	case err == nil:
		return true, nil
	case !eris.Is(err, sql.ErrNoRows):
		return false, eris.Wrap(err, "ledger: primary lookup")
	}

	err = s.db.QueryRowContext(ctx, `
SELECT 1 FROM processed_emails
WHERE norm_company = ?
  AND norm_position = ?
  AND date_applied BETWEEN date(?, '-1 day') AND date(?, '+1 day')
LIMIT 1;`,
		model.NormalizeKeyPart(company),
		model.NormalizeKeyPart(position),
		date, date,
	).Scan(&one)
	switch {
	case err == nil:
		return true, nil
	case eris.Is(err, sql.ErrNoRows):
		return false, nil
	default:
		return false, eris.Wrap(err, "ledger: composite lookup")
	}
}

// Commit records a processed message. It is the only mutation in
// pipeline scope and runs in its own transaction.
func (s *Store) Commit(ctx context.Context, emailID, company, position, date string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO processed_emails
  (email_id, company, position, date_applied, norm_company, norm_position, processed_at)
VALUES (?, ?, ?, ?, ?, ?, ?);`,
		emailID, company, position, date,
		model.NormalizeKeyPart(company),
		model.NormalizeKeyPart(position),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return ErrExists
		}
		return eris.Wrapf(err, "ledger: commit %s", emailID)
	}
	return nil
}

// Reset drops every entry, making all previously seen messages eligible
// for reprocessing. Maintenance only; never called by the pipeline.
func (s *Store) Reset(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM processed_emails;`)
	if err != nil {
		return 0, eris.Wrap(err, "ledger: reset")
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Count returns the number of committed entries.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM processed_emails;`,
	).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "ledger: count")
	}
	return n, nil
}

// Recent returns the most recently committed entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT email_id, company, position, date_applied, processed_at
FROM processed_emails
ORDER BY processed_at DESC
LIMIT ?;`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: recent")
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var processed string
		if err := rows.Scan(&e.EmailID, &e.Company, &e.Position, &e.DateApplied, &processed); err != nil {
			return nil, eris.Wrap(err, "ledger: scan entry")
		}
		e.ProcessedAt, _ = time.Parse(time.RFC3339, processed)
		out = append(out, e)
	}
	return out, rows.Err()
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/advocate-cli/internal/advocate"
	"github.com/sells-group/advocate-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS advocates (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	name              TEXT NOT NULL,
	enrollment_number TEXT NOT NULL DEFAULT '',
	jurisdiction      TEXT NOT NULL DEFAULT '',
	imported_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS verifications (
	id                   TEXT PRIMARY KEY,
	profile_id           TEXT NOT NULL,
	submitted_name       TEXT NOT NULL,
	submitted_enrollment TEXT NOT NULL DEFAULT '',
	is_verified          INTEGER NOT NULL,
	confidence           REAL NOT NULL,
	matched_name         TEXT NOT NULL DEFAULT '',
	matched_enrollment   TEXT NOT NULL DEFAULT '',
	reason               TEXT NOT NULL,
	total_candidates     INTEGER NOT NULL,
	created_at           DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_verifications_profile_id ON verifications(profile_id);
CREATE INDEX IF NOT EXISTS idx_verifications_created_at ON verifications(created_at);
`

const sqliteVerificationColumns = `id, profile_id, submitted_name, submitted_enrollment, is_verified, confidence,
	matched_name, matched_enrollment, reason, total_candidates, created_at`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ReplaceAdvocates swaps the whole roster in one transaction.
func (s *SQLiteStore) ReplaceAdvocates(ctx context.Context, records []advocate.Record) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin replace advocates")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM advocates`); err != nil {
		return 0, eris.Wrap(err, "sqlite: clear advocates")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO advocates (name, enrollment_number, jurisdiction, imported_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert advocate")
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC()
	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.Name, r.EnrollmentNumber, r.Jurisdiction, now); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert advocate %q", r.Name)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit replace advocates")
	}
	return len(records), nil
}

// ListAdvocates returns the roster in import order.
func (s *SQLiteStore) ListAdvocates(ctx context.Context) ([]advocate.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, enrollment_number, jurisdiction FROM advocates ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list advocates")
	}
	defer rows.Close() //nolint:errcheck

	var records []advocate.Record
	for rows.Next() {
		var r advocate.Record
		if err := rows.Scan(&r.Name, &r.EnrollmentNumber, &r.Jurisdiction); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan advocate")
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list advocates iterate")
}

func (s *SQLiteStore) SaveVerification(ctx context.Context, v model.Verification) (*model.Verification, error) {
	v.ID = uuid.New().String()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO verifications (`+sqliteVerificationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.ProfileID, v.SubmittedName, v.SubmittedEnrollment, v.IsVerified, v.Confidence,
		v.MatchedName, v.MatchedEnrollment, v.Reason, v.TotalCandidates, v.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert verification for %s", v.ProfileID)
	}
	return &v, nil
}

// GetVerification returns the most recent verdict for a profile.
func (s *SQLiteStore) GetVerification(ctx context.Context, profileID string) (*model.Verification, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteVerificationColumns+` FROM verifications
		WHERE profile_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		profileID,
	)
	v, err := scanVerification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: verification for %s", profileID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get verification")
	}
	return v, nil
}

func (s *SQLiteStore) ListVerifications(ctx context.Context, filter model.VerificationFilter) ([]model.Verification, error) {
	query := `SELECT ` + sqliteVerificationColumns + ` FROM verifications WHERE 1=1`
	var args []any

	if filter.ProfileID != "" {
		query += ` AND profile_id = ?`
		args = append(args, filter.ProfileID)
	}
	if filter.VerifiedOnly {
		query += ` AND is_verified = 1`
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, listLimit(filter))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list verifications")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Verification
	for rows.Next() {
		v, err := scanVerification(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan verification")
		}
		out = append(out, *v)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list verifications iterate")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanVerification(row scannable) (*model.Verification, error) {
	var v model.Verification
	err := row.Scan(
		&v.ID, &v.ProfileID, &v.SubmittedName, &v.SubmittedEnrollment, &v.IsVerified, &v.Confidence,
		&v.MatchedName, &v.MatchedEnrollment, &v.Reason, &v.TotalCandidates, &v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

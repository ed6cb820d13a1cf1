package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/advocate-cli/internal/advocate"
	"github.com/sells-group/advocate-cli/internal/db"
	"github.com/sells-group/advocate-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS advocates (
	id                BIGSERIAL PRIMARY KEY,
	name              TEXT NOT NULL,
	enrollment_number TEXT NOT NULL DEFAULT '',
	jurisdiction      TEXT NOT NULL DEFAULT '',
	imported_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS verifications (
	id                   TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	profile_id           TEXT NOT NULL,
	submitted_name       TEXT NOT NULL,
	submitted_enrollment TEXT NOT NULL DEFAULT '',
	is_verified          BOOLEAN NOT NULL,
	confidence           DOUBLE PRECISION NOT NULL,
	matched_name         TEXT NOT NULL DEFAULT '',
	matched_enrollment   TEXT NOT NULL DEFAULT '',
	reason               TEXT NOT NULL,
	total_candidates     INTEGER NOT NULL,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_verifications_profile_created ON verifications(profile_id, created_at DESC);
`

const pgVerificationColumns = `id, profile_id, submitted_name, submitted_enrollment, is_verified, confidence,
	matched_name, matched_enrollment, reason, total_candidates, created_at`

var advocateColumns = []string{"name", "enrollment_number", "jurisdiction", "imported_at"}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// ReplaceAdvocates truncates the roster and copies the new one in a single
// transaction.
func (s *PostgresStore) ReplaceAdvocates(ctx context.Context, records []advocate.Record) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin replace advocates")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `TRUNCATE advocates RESTART IDENTITY`); err != nil {
		return 0, eris.Wrap(err, "postgres: truncate advocates")
	}

	now := time.Now().UTC()
	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = []any{r.Name, r.EnrollmentNumber, r.Jurisdiction, now}
	}
	n, err := db.CopyFrom(ctx, tx, "advocates", advocateColumns, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: copy advocates")
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit replace advocates")
	}
	return int(n), nil
}

// ListAdvocates returns the roster in import order.
func (s *PostgresStore) ListAdvocates(ctx context.Context) ([]advocate.Record, error) {
	rows, err := s.pool.Query(ctx, `SELECT name, enrollment_number, jurisdiction FROM advocates ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list advocates")
	}
	defer rows.Close()

	var records []advocate.Record
	for rows.Next() {
		var r advocate.Record
		if err := rows.Scan(&r.Name, &r.EnrollmentNumber, &r.Jurisdiction); err != nil {
			return nil, eris.Wrap(err, "postgres: scan advocate")
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list advocates iterate")
}

func (s *PostgresStore) SaveVerification(ctx context.Context, v model.Verification) (*model.Verification, error) {
	v.ID = uuid.New().String()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO verifications (`+pgVerificationColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		v.ID, v.ProfileID, v.SubmittedName, v.SubmittedEnrollment, v.IsVerified, v.Confidence,
		v.MatchedName, v.MatchedEnrollment, v.Reason, v.TotalCandidates, v.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert verification for %s", v.ProfileID)
	}
	return &v, nil
}

// GetVerification returns the most recent verdict for a profile.
func (s *PostgresStore) GetVerification(ctx context.Context, profileID string) (*model.Verification, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgVerificationColumns+` FROM verifications
		WHERE profile_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`,
		profileID,
	)
	v, err := scanVerification(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: verification for %s", profileID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get verification")
	}
	return v, nil
}

func (s *PostgresStore) ListVerifications(ctx context.Context, filter model.VerificationFilter) ([]model.Verification, error) {
	query := `SELECT ` + pgVerificationColumns + ` FROM verifications WHERE true`
	args := []any{}
	argIdx := 1

	if filter.ProfileID != "" {
		query += fmt.Sprintf(` AND profile_id = $%d`, argIdx)
		args = append(args, filter.ProfileID)
		argIdx++
	}
	if filter.VerifiedOnly {
		query += ` AND is_verified`
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list verifications")
	}
	defer rows.Close()

	var out []model.Verification
	for rows.Next() {
		v, err := scanVerification(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan verification")
		}
		out = append(out, *v)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list verifications iterate")
}

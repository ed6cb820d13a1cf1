package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/advocate-cli/internal/advocate"
	"github.com/sells-group/advocate-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

var verificationRowColumns = []string{
	"id", "profile_id", "submitted_name", "submitted_enrollment", "is_verified", "confidence",
	"matched_name", "matched_enrollment", "reason", "total_candidates", "created_at",
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS advocates`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReplaceAdvocates(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`TRUNCATE advocates RESTART IDENTITY`).
		WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"advocates"}, advocateColumns).WillReturnResult(2)
	mock.ExpectCommit()

	n, err := s.ReplaceAdvocates(context.Background(), []advocate.Record{
		{Name: "Abdul Azeez", EnrollmentNumber: "AP/653/2022"},
		{Name: "Priya Sharma"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReplaceAdvocates_CopyFailureRollsBack(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`TRUNCATE advocates`).
		WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"advocates"}, advocateColumns).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := s.ReplaceAdvocates(context.Background(), []advocate.Record{{Name: "Abdul Azeez"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: copy advocates")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListAdvocates(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT name, enrollment_number, jurisdiction FROM advocates ORDER BY id`).
		WillReturnRows(pgxmock.NewRows([]string{"name", "enrollment_number", "jurisdiction"}).
			AddRow("Abdul Azeez", "AP/653/2022", "Andhra Pradesh").
			AddRow("Priya Sharma", "", ""))

	got, err := s.ListAdvocates(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Andhra Pradesh", got[0].Jurisdiction)
	assert.False(t, got[1].HasEnrollment())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveVerification(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	v := sampleVerification("profile-1", true, 0.99)

	mock.ExpectExec(`INSERT INTO verifications`).
		WithArgs(pgxmock.AnyArg(), "profile-1", "Abdul Azeez", "APS/653/2022", true, 0.99,
			"Abdul Azeez", "AP/653/2022", advocate.ReasonExact, 5, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	saved, err := s.SaveVerification(context.Background(), v)
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetVerification(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	created := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .+ FROM verifications\s+WHERE profile_id = \$1 ORDER BY created_at DESC`).
		WithArgs("profile-1").
		WillReturnRows(pgxmock.NewRows(verificationRowColumns).
			AddRow("v-1", "profile-1", "Abdul Azeez", "APS/653/2022", true, 0.99,
				"Abdul Azeez", "AP/653/2022", advocate.ReasonExact, 5, created))

	got, err := s.GetVerification(context.Background(), "profile-1")
	require.NoError(t, err)
	assert.Equal(t, "v-1", got.ID)
	assert.True(t, got.IsVerified)
	assert.Equal(t, created, got.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetVerification_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .+ FROM verifications`).
		WithArgs("nobody").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetVerification(context.Background(), "nobody")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetVerification_QueryError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .+ FROM verifications`).
		WithArgs("profile-1").
		WillReturnError(errors.New("connection lost"))

	_, err := s.GetVerification(context.Background(), "profile-1")
	require.Error(t, err)
	assert.False(t, eris.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "postgres: get verification")
}

func TestPostgresStore_ListVerifications(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	created := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM verifications WHERE true AND profile_id = \$1 AND is_verified ORDER BY created_at DESC, id DESC LIMIT \$2 OFFSET \$3`).
		WithArgs("profile-1", 10, 20).
		WillReturnRows(pgxmock.NewRows(verificationRowColumns).
			AddRow("v-1", "profile-1", "Abdul Azeez", "", true, 0.95,
				"Abdul Azeez", "AP/653/2022", advocate.ReasonExact, 5, created))

	got, err := s.ListVerifications(context.Background(), model.VerificationFilter{
		ProfileID:    "profile-1",
		VerifiedOnly: true,
		Limit:        10,
		Offset:       20,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "v-1", got[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListVerifications_DefaultLimit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM verifications WHERE true ORDER BY created_at DESC, id DESC LIMIT \$1`).
		WithArgs(defaultListLimit).
		WillReturnRows(pgxmock.NewRows(verificationRowColumns))

	got, err := s.ListVerifications(context.Background(), model.VerificationFilter{})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Close(t *testing.T) {
	called := false
	s := &PostgresStore{closeFn: func() { called = true }}
	require.NoError(t, s.Close())
	assert.True(t, called)
}

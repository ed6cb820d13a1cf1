// Package store persists the imported roster and verification verdicts.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/advocate-cli/internal/advocate"
	"github.com/sells-group/advocate-cli/internal/model"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = eris.New("store: not found")

// defaultListLimit caps ListVerifications when no limit is given.
const defaultListLimit = 100

// Store defines the persistence interface for verification.
type Store interface {
	// Roster
	ReplaceAdvocates(ctx context.Context, records []advocate.Record) (int, error)
	ListAdvocates(ctx context.Context) ([]advocate.Record, error)

	// Verdicts
	SaveVerification(ctx context.Context, v model.Verification) (*model.Verification, error)
	GetVerification(ctx context.Context, profileID string) (*model.Verification, error)
	ListVerifications(ctx context.Context, filter model.VerificationFilter) ([]model.Verification, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

func listLimit(filter model.VerificationFilter) int {
	if filter.Limit <= 0 {
		return defaultListLimit
	}
	return filter.Limit
}

package roster

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/advocate-cli/internal/advocate"
)

// Lister reads the advocates table.
type Lister interface {
	ListAdvocates(ctx context.Context) ([]advocate.Record, error)
}

// StoreSource reads the roster previously imported into the store.
type StoreSource struct {
	lister Lister
}

// NewStoreSource wraps a Lister.
func NewStoreSource(l Lister) *StoreSource {
	return &StoreSource{lister: l}
}

// Name implements advocate.Source.
func (s *StoreSource) Name() string { return "store" }

// Load implements advocate.Source.
func (s *StoreSource) Load(ctx context.Context) ([]advocate.Record, error) {
	if s.lister == nil {
		return nil, eris.New("roster: no store configured")
	}
	records, err := s.lister.ListAdvocates(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "roster: list advocates")
	}
	return records, nil
}

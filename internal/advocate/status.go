package advocate

import (
	"time"

	"github.com/rotisserie/eris"
)

// LoadState is the lifecycle state of a matcher's roster cache.
type LoadState int

const (
	// LoadIdle means nothing is cached yet, or the cache was cleared.
	LoadIdle LoadState = iota
	// LoadLoading means a load is in progress.
	LoadLoading
	// LoadLoaded means the roster (possibly the fallback, possibly empty) is cached.
	LoadLoaded
	// LoadFailed means the last load was abandoned before anything was cached.
	LoadFailed
)

func (s LoadState) String() string {
	switch s {
	case LoadIdle:
		return "idle"
	case LoadLoading:
		return "loading"
	case LoadLoaded:
		return "loaded"
	case LoadFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s LoadState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *LoadState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*s = LoadIdle
	case "loading":
		*s = LoadLoading
	case "loaded":
		*s = LoadLoaded
	case "failed":
		*s = LoadFailed
	default:
		return eris.Errorf("advocate: unknown load state %q", string(b))
	}
	return nil
}

// CacheStatus is a snapshot of the matcher's roster cache.
type CacheStatus struct {
	State     LoadState `json:"state" yaml:"state"`
	Records   int       `json:"records" yaml:"records"`
	Source    string    `json:"source,omitempty" yaml:"source,omitempty"`
	Fallback  bool      `json:"fallback" yaml:"fallback"`
	LoadedAt  time.Time `json:"loaded_at,omitzero" yaml:"loaded_at,omitempty"`
	LastError string    `json:"last_error,omitempty" yaml:"last_error,omitempty"`
}

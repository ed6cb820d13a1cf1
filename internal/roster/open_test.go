package roster

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/advocate-cli/internal/advocate"
	"github.com/sells-group/advocate-cli/internal/config"
)

type fakeLister struct {
	records []advocate.Record
	err     error
}

func (f *fakeLister) ListAdvocates(context.Context) ([]advocate.Record, error) {
	return f.records, f.err
}

func TestSeedSource(t *testing.T) {
	a, err := SeedSource{}.Load(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, a)

	for _, r := range a {
		assert.NotEmpty(t, r.Name)
	}

	// Mutating one load must not leak into the next.
	a[0].Name = "changed"
	b, err := SeedSource{}.Load(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, "changed", b[0].Name)
}

func TestSeedSource_VerifiesKnownAdvocate(t *testing.T) {
	m := advocate.NewMatcher(SeedSource{})
	v := m.Verify(context.Background(), "Abdul Azeez", "APS/653/2022")
	assert.True(t, v.IsVerified)
	require.NotNil(t, v.MatchedRecord)
	assert.Equal(t, "Abdul Azeez", v.MatchedRecord.Name)
}

func TestStoreSource(t *testing.T) {
	want := []advocate.Record{{Name: "Abdul Azeez", EnrollmentNumber: "AP/653/2022"}}
	src := NewStoreSource(&fakeLister{records: want})

	got, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, "store", src.Name())

	_, err = NewStoreSource(&fakeLister{err: errors.New("db down")}).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "roster: list advocates")

	_, err = NewStoreSource(nil).Load(context.Background())
	require.Error(t, err)
}

func TestOpen(t *testing.T) {
	lister := &fakeLister{}

	src, err := Open(config.RosterConfig{Source: "seed"}, nil)
	require.NoError(t, err)
	assert.IsType(t, SeedSource{}, src)

	src, err = Open(config.RosterConfig{}, nil)
	require.NoError(t, err)
	assert.IsType(t, SeedSource{}, src)

	src, err = Open(config.RosterConfig{Source: "store"}, lister)
	require.NoError(t, err)
	assert.IsType(t, &StoreSource{}, src)

	_, err = Open(config.RosterConfig{Source: "store"}, nil)
	require.Error(t, err)

	src, err = Open(config.RosterConfig{Source: "https://bar.example/roster.csv"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &HTTPSource{}, src)

	src, err = Open(config.RosterConfig{Source: "./data/roster.tsv", Delimiter: ";", Sheet: "S"}, nil)
	require.NoError(t, err)
	fs, ok := src.(*FileSource)
	require.True(t, ok)
	assert.Equal(t, "./data/roster.tsv", fs.Path)
	assert.Equal(t, ';', fs.Delimiter)
	assert.Equal(t, "S", fs.Sheet)
}

func TestFallback(t *testing.T) {
	assert.Nil(t, Fallback(config.RosterConfig{Source: "seed", FallbackSeed: true}))
	assert.Nil(t, Fallback(config.RosterConfig{Source: "roster.csv", FallbackSeed: false}))
	assert.Equal(t, SeedSource{}, Fallback(config.RosterConfig{Source: "roster.csv", FallbackSeed: true}))
}

func TestHTTPOptionsFromConfig(t *testing.T) {
	opts := HTTPOptionsFromConfig(config.RosterConfig{
		Delimiter: "tab",
		HTTP: config.RosterHTTPConfig{
			UserAgent:               "ua",
			TimeoutSecs:             12,
			RatePerSec:              2.5,
			MaxAttempts:             4,
			InitialBackoffMs:        100,
			MaxBackoffMs:            1000,
			CircuitFailureThreshold: 7,
			CircuitResetSecs:        60,
		},
	})
	assert.Equal(t, "ua", opts.UserAgent)
	assert.Equal(t, 12*time.Second, opts.Timeout)
	assert.InDelta(t, 2.5, opts.RatePerSec, 0.001)
	assert.Equal(t, 4, opts.Retry.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, opts.Retry.InitialBackoff)
	assert.Equal(t, 7, opts.Breaker.FailureThreshold)
	assert.Equal(t, time.Minute, opts.Breaker.ResetTimeout)
	assert.Equal(t, '\t', opts.Delimiter)
}

func TestMatcherFallsBackToSeedWhenFileMissing(t *testing.T) {
	cfg := config.RosterConfig{Source: "/does/not/exist.csv", FallbackSeed: true}
	src, err := Open(cfg, nil)
	require.NoError(t, err)

	m := advocate.NewMatcher(src, advocate.WithFallback(Fallback(cfg)))
	records, err := m.Load(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, records)

	status := m.CacheStatus()
	assert.True(t, status.Fallback)
	assert.Equal(t, "seed", status.Source)
	assert.NotEmpty(t, status.LastError)
}

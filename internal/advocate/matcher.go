package advocate

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Matcher verifies submitted credentials against a cached roster.
//
// Load and ClearCache serialize on the matcher's lock. Verify works on an
// immutable snapshot of the loaded roster, so concurrent verifies are safe.
type Matcher struct {
	source     Source
	fallback   Source
	thresholds Thresholds
	now        func() time.Time

	nameSim       func(a, b string) float64
	enrollmentSim func(a, b string) float64

	mu     sync.RWMutex
	idx    *index
	status CacheStatus
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithFallback sets the source used when the primary source fails or yields
// no records.
func WithFallback(src Source) Option {
	return func(m *Matcher) { m.fallback = src }
}

// WithThresholds overrides the verification policy.
func WithThresholds(t Thresholds) Option {
	return func(m *Matcher) { m.thresholds = t.withDefaults() }
}

// WithClock overrides the time source used for cache timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Matcher) { m.now = now }
}

// NewMatcher creates a matcher over the given roster source. A nil source is
// allowed and behaves like an unavailable one.
func NewMatcher(source Source, opts ...Option) *Matcher {
	m := &Matcher{
		source:     source,
		thresholds: DefaultThresholds(),
		now:        time.Now,

		nameSim:       NameSimilarity,
		enrollmentSim: EnrollmentSimilarity,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Thresholds returns the matcher's verification policy.
func (m *Matcher) Thresholds() Thresholds {
	return m.thresholds
}

// Load returns the cached roster, reading it from the source on first use.
// Source failures degrade to the fallback source and then to an empty roster;
// the only error returned is context cancellation.
func (m *Matcher) Load(ctx context.Context) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.idx != nil {
		return slices.Clone(m.idx.records), nil
	}

	m.status = CacheStatus{State: LoadLoading}

	records, name, fellBack, loadErr := m.readSources(ctx)
	if err := ctx.Err(); err != nil {
		m.status = CacheStatus{State: LoadFailed, LastError: err.Error()}
		return nil, eris.Wrap(err, "advocate: load roster")
	}

	records = slices.Clone(records)
	m.idx = buildIndex(records)
	m.status = CacheStatus{
		State:    LoadLoaded,
		Records:  len(records),
		Source:   name,
		Fallback: fellBack,
		LoadedAt: m.now(),
	}
	if loadErr != nil {
		m.status.LastError = loadErr.Error()
	}

	zap.L().Info("advocate: roster loaded",
		zap.String("source", name),
		zap.Int("records", len(records)),
		zap.Bool("fallback", fellBack),
	)
	return slices.Clone(records), nil
}

// readSources tries the primary source, then the fallback.
func (m *Matcher) readSources(ctx context.Context) ([]Record, string, bool, error) {
	records, primaryErr := loadSource(ctx, m.source)
	if primaryErr == nil && len(records) > 0 {
		return records, m.source.Name(), false, nil
	}
	if primaryErr == nil {
		primaryErr = eris.New("advocate: source returned no advocates")
	}
	if ctx.Err() != nil || m.fallback == nil {
		zap.L().Warn("advocate: roster source unavailable", zap.Error(primaryErr))
		return nil, sourceName(m.source), false, primaryErr
	}

	zap.L().Warn("advocate: roster source unavailable, using fallback",
		zap.String("fallback", m.fallback.Name()),
		zap.Error(primaryErr),
	)
	fallbackRecords, err := loadSource(ctx, m.fallback)
	if err != nil {
		zap.L().Warn("advocate: fallback roster unavailable", zap.Error(err))
		return fallbackRecords, m.fallback.Name(), true, eris.Wrapf(err, "%v; fallback", primaryErr)
	}
	return fallbackRecords, m.fallback.Name(), true, primaryErr
}

func loadSource(ctx context.Context, src Source) (records []Record, err error) {
	if src == nil {
		return nil, eris.New("advocate: no roster source configured")
	}
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("advocate: source %s panicked: %v", src.Name(), r)
		}
	}()
	records, err = src.Load(ctx)
	return records, eris.Wrapf(err, "advocate: load %s", src.Name())
}

func sourceName(src Source) string {
	if src == nil {
		return ""
	}
	return src.Name()
}

// Reload drops the cache and loads the roster again.
func (m *Matcher) Reload(ctx context.Context) ([]Record, error) {
	m.ClearCache()
	return m.Load(ctx)
}

// ClearCache drops the cached roster and its indexes.
func (m *Matcher) ClearCache() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.idx = nil
	m.status = CacheStatus{State: LoadIdle}
}

// CacheStatus reports what is currently cached.
func (m *Matcher) CacheStatus() CacheStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Matcher) snapshot() *index {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.idx
}

// Verify checks a submitted name and enrollment number against the roster,
// loading it first if needed. It always returns a verdict; internal faults
// become an unverified zero-confidence verdict. A blank or whitespace-only
// enrollment counts as absent, so the name alone decides the confidence.
func (m *Matcher) Verify(ctx context.Context, name, enrollment string) (v Verdict) {
	idx := m.snapshot()
	if idx == nil {
		if _, err := m.Load(ctx); err != nil {
			zap.L().Warn("advocate: verify without roster", zap.Error(err))
		}
		idx = m.snapshot()
	}

	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("advocate: verification failed",
				zap.String("name", name),
				zap.Any("panic", r),
			)
			v = Verdict{
				Reason:          fmt.Sprintf("Verification failed: %v", r),
				TotalCandidates: idx.size(),
			}
		}
	}()

	v = m.evaluate(idx, Query{SubmittedName: name, SubmittedEnrollment: enrollment})

	zap.L().Debug("advocate: verified",
		zap.String("name", name),
		zap.String("enrollment", enrollment),
		zap.Bool("verified", v.IsVerified),
		zap.Float64("confidence", v.Confidence),
		zap.String("reason", v.Reason),
	)
	return v
}

// VerifyQuery is Verify for a Query value.
func (m *Matcher) VerifyQuery(ctx context.Context, q Query) Verdict {
	return m.Verify(ctx, q.SubmittedName, q.SubmittedEnrollment)
}

// evaluate runs the fast exact path, then the enrollment-driven scan, then
// the name-driven scan if nothing good enough was found.
func (m *Matcher) evaluate(idx *index, q Query) Verdict {
	t := m.thresholds
	if idx.size() == 0 {
		return Verdict{Reason: ReasonEmptyRoster}
	}

	name := q.SubmittedName
	enrollment := strings.TrimSpace(q.SubmittedEnrollment)
	hasEnrollment := enrollment != ""

	var best *Record
	var bestConf float64

	if hasEnrollment {
		if hit, ok := idx.lookupEnrollment(enrollment); ok {
			bestConf = t.FastPathWeak
			if m.nameSim(name, hit.Name) >= t.FastPathNameCutoff {
				bestConf = t.FastPathStrong
			}
			best = &hit
		}
	} else if hit, ok := idx.lookupName(name); ok {
		bestConf = t.FastPathWeak
		best = &hit
	}

	if hasEnrollment {
		for i := range idx.enrolled {
			r := &idx.enrolled[i]
			es := m.enrollmentSim(enrollment, r.EnrollmentNumber)
			if es < t.EnrollmentScanMin {
				continue
			}
			overall := (m.nameSim(name, r.Name) + es) / 2
			if overall > bestConf {
				best, bestConf = copyRecord(r), overall
			}
		}
	}

	if best == nil || bestConf < t.Accept {
		for i := range idx.records {
			r := &idx.records[i]
			ns := m.nameSim(name, r.Name)
			overall := ns
			if hasEnrollment {
				var es float64
				if r.HasEnrollment() {
					es = m.enrollmentSim(enrollment, r.EnrollmentNumber)
				}
				overall = (ns + es) / 2
			}
			if overall > bestConf {
				best, bestConf = copyRecord(r), overall
			}
		}
	}

	return Verdict{
		IsVerified:      bestConf >= t.Accept,
		Confidence:      bestConf,
		MatchedRecord:   best,
		Reason:          t.Reason(bestConf),
		TotalCandidates: idx.size(),
	}
}

func copyRecord(r *Record) *Record {
	c := *r
	return &c
}

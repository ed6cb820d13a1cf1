package roster

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/advocate-cli/internal/advocate"
	"github.com/sells-group/advocate-cli/internal/config"
	"github.com/sells-group/advocate-cli/internal/resilience"
)

// Open builds the primary roster source described by cfg. The store is
// consulted only when cfg.Source is "store".
func Open(cfg config.RosterConfig, lister Lister) (advocate.Source, error) {
	src := strings.TrimSpace(cfg.Source)
	switch {
	case src == "" || src == "seed":
		return SeedSource{}, nil
	case src == "store":
		if lister == nil {
			return nil, eris.New("roster: source is store but no store is configured")
		}
		return NewStoreSource(lister), nil
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		hs, err := NewHTTPSource(src, HTTPOptionsFromConfig(cfg))
		if err != nil {
			return nil, err
		}
		return hs, nil
	default:
		return NewFileSource(src, cfg.DelimiterRune(), cfg.Sheet), nil
	}
}

// Fallback returns the source used when the primary source fails, or nil
// when fallback is disabled or the primary already is the seed roster.
func Fallback(cfg config.RosterConfig) advocate.Source {
	src := strings.TrimSpace(cfg.Source)
	if !cfg.FallbackSeed || src == "" || src == "seed" {
		return nil
	}
	return SeedSource{}
}

// HTTPOptionsFromConfig maps roster.http settings to HTTPOptions.
func HTTPOptionsFromConfig(cfg config.RosterConfig) HTTPOptions {
	h := cfg.HTTP
	return HTTPOptions{
		UserAgent:  h.UserAgent,
		Timeout:    time.Duration(h.TimeoutSecs) * time.Second,
		RatePerSec: h.RatePerSec,
		Retry:      resilience.FromRetryConfig(h.MaxAttempts, h.InitialBackoffMs, h.MaxBackoffMs),
		Breaker:    resilience.FromBreakerConfig(h.CircuitFailureThreshold, h.CircuitResetSecs),
		Delimiter:  cfg.DelimiterRune(),
		Sheet:      cfg.Sheet,
	}
}

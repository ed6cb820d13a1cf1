package main

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/advocate-cli/internal/advocate"
	"github.com/sells-group/advocate-cli/internal/roster"
	"github.com/sells-group/advocate-cli/internal/store"
)

// appEnv holds what a command needs to verify advocates.
type appEnv struct {
	Store   store.Store // nil unless the command needs persistence
	Matcher *advocate.Matcher
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv opens the store when withStore is set or the roster lives in it,
// then builds the matcher. Callers should defer env.Close().
func initEnv(ctx context.Context, withStore bool) (*appEnv, error) {
	env := &appEnv{}

	if withStore || strings.TrimSpace(cfg.Roster.Source) == "store" {
		st, err := initStore(ctx)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "migrate store")
		}
		env.Store = st
	}

	m, err := initMatcher(env.Store)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Matcher = m
	return env, nil
}

// initStore opens the configured store driver.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "advocate.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initMatcher builds a matcher over the configured roster source. The store
// may be nil when the roster does not live in it.
func initMatcher(st store.Store) (*advocate.Matcher, error) {
	var lister roster.Lister
	if st != nil {
		lister = st
	}
	src, err := roster.Open(cfg.Roster, lister)
	if err != nil {
		return nil, eris.Wrap(err, "open roster source")
	}

	zap.L().Debug("roster source configured",
		zap.String("source", src.Name()),
		zap.Bool("fallback_seed", cfg.Roster.FallbackSeed),
	)

	return advocate.NewMatcher(src,
		advocate.WithFallback(roster.Fallback(cfg.Roster)),
		advocate.WithThresholds(cfg.Matcher),
	), nil
}

// writeOutput renders v as indented JSON or YAML.
func writeOutput(w io.Writer, format string, v any) error {
	switch strings.ToLower(format) {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(v), "encode json output")
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "encode yaml output")
		}
		return eris.Wrap(enc.Close(), "flush yaml output")
	default:
		return eris.Errorf("unsupported output format: %s", format)
	}
}

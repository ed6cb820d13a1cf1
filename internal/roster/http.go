package roster

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/advocate-cli/internal/advocate"
	"github.com/sells-group/advocate-cli/internal/resilience"
)

// maxRosterBytes bounds a downloaded roster.
const maxRosterBytes = 64 << 20

// HTTPOptions configures an HTTPSource.
type HTTPOptions struct {
	UserAgent string
	Timeout   time.Duration
	// RatePerSec limits requests to the roster host. Zero means 1/s.
	RatePerSec float64
	Retry      resilience.RetryConfig
	Breaker    resilience.BreakerConfig
	Delimiter  rune
	Sheet      string
}

// HTTPSource downloads a roster table from a URL.
type HTTPSource struct {
	url     string
	opts    HTTPOptions
	client  *http.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker

	maxBytes int64
}

// NewHTTPSource creates an HTTPSource for rawURL.
func NewHTTPSource(rawURL string, opts HTTPOptions) (*HTTPSource, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "roster: parse url %q", rawURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, eris.Errorf("roster: unsupported url scheme %q", u.Scheme)
	}

	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "advocate-cli/1.0"
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 1
	}
	if opts.Retry.OnRetry == nil {
		opts.Retry.OnRetry = resilience.RetryLogger(rawURL)
	}
	if opts.Breaker.Name == "" {
		opts.Breaker.Name = u.Host
	}

	return &HTTPSource{
		url:     rawURL,
		opts:    opts,
		client:  &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSec), 1),
		breaker: resilience.NewBreaker(opts.Breaker),

		maxBytes: maxRosterBytes,
	}, nil
}

// Name implements advocate.Source.
func (s *HTTPSource) Name() string { return s.url }

// Load implements advocate.Source.
func (s *HTTPSource) Load(ctx context.Context) ([]advocate.Record, error) {
	data, err := resilience.DoVal(ctx, s.opts.Retry, func(ctx context.Context) ([]byte, error) {
		return resilience.Call(ctx, s.breaker, s.fetch)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "roster: download %s", s.url)
	}

	u, _ := url.Parse(s.url)
	format, gzipped, delim := DetectFormat(u.Path)
	if s.opts.Delimiter != 0 {
		delim = s.opts.Delimiter
	}

	if gzipped {
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, eris.Wrapf(err, "roster: gunzip %s", s.url)
		}
		defer gz.Close() //nolint:errcheck
		if data, err = readLimited(gz, s.maxBytes); err != nil {
			return nil, eris.Wrapf(err, "roster: gunzip %s", s.url)
		}
	}

	if format == FormatXLSX {
		rows, err := readXLSXBytes(data, s.opts.Sheet)
		if err != nil {
			return nil, err
		}
		records, stats := ParseRows(rows)
		logStats(s.Name(), stats)
		return records, nil
	}

	records, stats, err := ReadTable(ctx, bytes.NewReader(data), TableOptions{Delimiter: delim})
	if err != nil {
		return nil, eris.Wrapf(err, "roster: parse %s", s.url)
	}
	logStats(s.Name(), stats)
	return records, nil
}

// BreakerState reports the state of the source's circuit breaker.
func (s *HTTPSource) BreakerState() resilience.BreakerState {
	return s.breaker.State()
}

func (s *HTTPSource) fetch(ctx context.Context) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "roster: rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "roster: create request")
	}
	req.Header.Set("User-Agent", s.opts.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &resilience.StatusError{StatusCode: resp.StatusCode, URL: s.url}
	}

	return readLimited(resp.Body, s.maxBytes)
}

// readLimited reads r to the end and fails if it holds more than limit bytes.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, eris.Errorf("roster: body exceeds %d bytes", limit)
	}
	return data, nil
}

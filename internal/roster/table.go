// Package roster loads the reference list of registered advocates from
// delimited tables, spreadsheets, HTTP endpoints and the store.
package roster

import (
	"bufio"
	"context"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/sells-group/advocate-cli/internal/advocate"
)

// Column positions of the roster table: name, enrollment[, jurisdiction].
const (
	colName = iota
	colEnrollment
	colJurisdiction
)

// TableOptions configures the delimited table reader.
type TableOptions struct {
	Delimiter rune // default ','
}

// ParseStats counts what happened to the data rows of a table.
type ParseStats struct {
	Rows      int // data rows seen, header excluded
	Loaded    int
	Skipped   int // rows without a name
	Malformed int // rows with invalid UTF-8
}

// maxLineBytes bounds a single table line.
const maxLineBytes = 1 << 20

// StreamRows reads a delimited table and sends every row, header included,
// to a channel. Each line is split on the delimiter as is: quotes carry no
// meaning, so a stray quote never spans lines. A leading byte order mark is
// honored, blank lines are ignored and lines that are not valid UTF-8 are
// skipped and counted in the returned stats once both channels are closed.
func StreamRows(ctx context.Context, r io.Reader, opts TableOptions) (<-chan []string, <-chan error, *ParseStats) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)
	stats := &ParseStats{}

	sep := ","
	if opts.Delimiter != 0 {
		sep = string(opts.Delimiter)
	}

	go func() {
		defer close(rowCh)
		defer close(errCh)

		decoded := transform.NewReader(r, unicode.BOMOverride(transform.Nop))
		scanner := bufio.NewScanner(decoded)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

		line := 0
		for scanner.Scan() {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "roster: context cancelled")
				return
			}
			line++

			text := strings.TrimRight(scanner.Text(), "\r")
			if strings.TrimSpace(text) == "" {
				continue
			}
			if !utf8.ValidString(text) || strings.ContainsRune(text, utf8.RuneError) {
				stats.Malformed++
				zap.L().Debug("roster: skipping malformed row", zap.Int("line", line))
				continue
			}

			select {
			case rowCh <- strings.Split(text, sep):
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "roster: context cancelled")
				return
			}
		}
		if err := scanner.Err(); err != nil {
			errCh <- eris.Wrapf(err, "roster: read line %d", line+1)
			return
		}
		if ctx.Err() != nil {
			errCh <- eris.Wrap(ctx.Err(), "roster: context cancelled")
		}
	}()

	return rowCh, errCh, stats
}

// ReadTable reads a delimited roster table and converts it to records.
func ReadTable(ctx context.Context, r io.Reader, opts TableOptions) ([]advocate.Record, ParseStats, error) {
	rowCh, errCh, streamStats := StreamRows(ctx, r, opts)

	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	if err := <-errCh; err != nil {
		return nil, ParseStats{}, err
	}

	records, stats := ParseRows(rows)
	stats.Malformed = streamStats.Malformed
	return records, stats, nil
}

// ParseRows converts table rows into records. The first row is the header
// and is skipped. Fields are trimmed, an empty enrollment or jurisdiction is
// left empty, and rows whose name is empty are dropped.
func ParseRows(rows [][]string) ([]advocate.Record, ParseStats) {
	var stats ParseStats
	if len(rows) <= 1 {
		return nil, stats
	}

	records := make([]advocate.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		stats.Rows++
		rec, ok := recordFromRow(row)
		if !ok {
			stats.Skipped++
			continue
		}
		records = append(records, rec)
	}
	stats.Loaded = len(records)
	return records, stats
}

func recordFromRow(row []string) (advocate.Record, bool) {
	name := field(row, colName)
	if name == "" {
		return advocate.Record{}, false
	}
	return advocate.Record{
		Name:             name,
		EnrollmentNumber: field(row, colEnrollment),
		Jurisdiction:     field(row, colJurisdiction),
	}, true
}

func field(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

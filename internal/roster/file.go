package roster

import (
	"bufio"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/advocate-cli/internal/advocate"
)

// Format is the on-disk layout of a roster.
type Format int

const (
	FormatDelimited Format = iota
	FormatXLSX
)

// DetectFormat inspects a file name. A trailing .gz is reported separately
// and stripped before the inner extension is examined. Tab-separated files
// (.tsv, .tab) report a tab delimiter; everything else reports 0.
func DetectFormat(name string) (format Format, gzipped bool, delimiter rune) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".gz" {
		gzipped = true
		name = strings.TrimSuffix(name, filepath.Ext(name))
		ext = strings.ToLower(filepath.Ext(name))
	}
	switch ext {
	case ".xlsx":
		return FormatXLSX, gzipped, 0
	case ".tsv", ".tab":
		return FormatDelimited, gzipped, '\t'
	default:
		return FormatDelimited, gzipped, 0
	}
}

// FileSource reads a roster from a local file.
type FileSource struct {
	Path string
	// Delimiter overrides the delimiter implied by the extension.
	Delimiter rune
	// Sheet selects a worksheet in .xlsx files; the first sheet by default.
	Sheet string
}

// NewFileSource returns a FileSource for path.
func NewFileSource(path string, delimiter rune, sheet string) *FileSource {
	return &FileSource{Path: path, Delimiter: delimiter, Sheet: sheet}
}

// Name implements advocate.Source.
func (s *FileSource) Name() string { return "file:" + s.Path }

// Load implements advocate.Source.
func (s *FileSource) Load(ctx context.Context) ([]advocate.Record, error) {
	format, gzipped, delim := DetectFormat(s.Path)
	if s.Delimiter != 0 {
		delim = s.Delimiter
	}

	if format == FormatXLSX && !gzipped {
		rows, err := readXLSXFile(s.Path, s.Sheet)
		if err != nil {
			return nil, err
		}
		records, stats := ParseRows(rows)
		logStats(s.Name(), stats)
		return records, nil
	}

	f, err := os.Open(s.Path)
	if err != nil {
		return nil, eris.Wrapf(err, "roster: open %s", s.Path)
	}
	defer f.Close() //nolint:errcheck

	var r io.Reader = bufio.NewReader(f)
	if gzipped {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, eris.Wrapf(err, "roster: gunzip %s", s.Path)
		}
		defer gz.Close() //nolint:errcheck
		r = gz
	}

	if format == FormatXLSX {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, eris.Wrapf(err, "roster: read %s", s.Path)
		}
		rows, err := readXLSXBytes(data, s.Sheet)
		if err != nil {
			return nil, err
		}
		records, stats := ParseRows(rows)
		logStats(s.Name(), stats)
		return records, nil
	}

	records, stats, err := ReadTable(ctx, r, TableOptions{Delimiter: delim})
	if err != nil {
		return nil, eris.Wrapf(err, "roster: parse %s", s.Path)
	}
	logStats(s.Name(), stats)
	return records, nil
}

func logStats(source string, stats ParseStats) {
	zap.L().Debug("roster: parsed table",
		zap.String("source", source),
		zap.Int("rows", stats.Rows),
		zap.Int("loaded", stats.Loaded),
		zap.Int("skipped", stats.Skipped),
		zap.Int("malformed", stats.Malformed),
	)
}

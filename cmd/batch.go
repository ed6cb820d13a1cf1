package main

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/advocate-cli/internal/advocate"
	"github.com/sells-group/advocate-cli/internal/model"
	"github.com/sells-group/advocate-cli/internal/roster"
)

var (
	batchCSV         string
	batchOutput      string
	batchFormat      string
	batchConcurrency int
	batchSave        bool
	batchLimit       int
)

// batchItem is one row of the batch input.
type batchItem struct {
	Row       int
	ProfileID string
	Query     advocate.Query
}

// batchResult pairs an input row with its verdict.
type batchResult struct {
	Row       int              `json:"row" yaml:"row"`
	ProfileID string           `json:"profile_id,omitempty" yaml:"profile_id,omitempty"`
	Query     advocate.Query   `json:"query" yaml:"query"`
	Verdict   advocate.Verdict `json:"verdict" yaml:"verdict"`
	SaveError string           `json:"save_error,omitempty" yaml:"save_error,omitempty"`
}

// batchSummary counts the outcome of a batch.
type batchSummary struct {
	Total      int
	Verified   int64
	Unverified int64
	SaveFailed int64
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Verify every row of a CSV of submitted advocates",
	Long:  "Reads a CSV with a header row naming name, enrollment and optional profile_id columns, verifies each row concurrently, and writes the verdicts.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if batchConcurrency > 0 {
			cfg.Batch.Concurrency = batchConcurrency
		}
		if err := cfg.Validate("batch"); err != nil {
			return err
		}
		ctx := cmd.Context()

		items, err := readBatchInput(ctx, batchCSV)
		if err != nil {
			return err
		}
		if batchLimit > 0 && len(items) > batchLimit {
			items = items[:batchLimit]
		}

		env, err := initEnv(ctx, batchSave)
		if err != nil {
			return err
		}
		defer env.Close()

		if _, err := env.Matcher.Load(ctx); err != nil {
			return eris.Wrap(err, "batch: load roster")
		}

		results, summary := runBatch(ctx, env, items, cfg.Batch.Concurrency, batchSave)

		zap.L().Info("batch: complete",
			zap.Int("total", summary.Total),
			zap.Int64("verified", summary.Verified),
			zap.Int64("unverified", summary.Unverified),
			zap.Int64("save_failed", summary.SaveFailed),
		)

		return writeBatchResults(cmd.OutOrStdout(), batchOutput, batchFormat, results)
	},
}

// readBatchInput parses the batch CSV. The header row locates the columns;
// rows without a name are skipped.
func readBatchInput(ctx context.Context, path string) ([]batchItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "batch: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	return parseBatchInput(ctx, f)
}

func parseBatchInput(ctx context.Context, r io.Reader) ([]batchItem, error) {
	rowCh, errCh, stats := roster.StreamRows(ctx, r, roster.TableOptions{Delimiter: ','})

	var (
		items     []batchItem
		cols      map[string]int
		headerErr error
		rowNum    int
	)
	for row := range rowCh {
		rowNum++
		if headerErr != nil {
			continue
		}
		if cols == nil {
			cols = batchColumns(row)
			if _, ok := cols["name"]; !ok {
				headerErr = eris.New("batch: input header has no name column")
			}
			continue
		}

		name := cell(row, cols, "name")
		if name == "" {
			zap.L().Debug("batch: skipping row without name", zap.Int("row", rowNum))
			continue
		}
		items = append(items, batchItem{
			Row:       rowNum,
			ProfileID: cell(row, cols, "profile_id"),
			Query: advocate.Query{
				SubmittedName:       name,
				SubmittedEnrollment: cell(row, cols, "enrollment"),
			},
		})
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrap(err, "batch: read input")
	}
	if headerErr != nil {
		return nil, headerErr
	}
	if cols == nil {
		return nil, eris.New("batch: input is empty")
	}

	zap.L().Info("batch: input parsed",
		zap.Int("items", len(items)),
		zap.Int("malformed", stats.Malformed),
	)
	return items, nil
}

// batchColumns maps canonical column names to their header positions.
func batchColumns(header []string) map[string]int {
	aliases := map[string]string{
		"name":              "name",
		"advocate_name":     "name",
		"enrollment":        "enrollment",
		"enrollment_number": "enrollment",
		"enrollment_no":     "enrollment",
		"profile_id":        "profile_id",
		"id":                "profile_id",
	}
	cols := make(map[string]int)
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		key = strings.ReplaceAll(key, " ", "_")
		if canon, ok := aliases[key]; ok {
			if _, seen := cols[canon]; !seen {
				cols[canon] = i
			}
		}
	}
	return cols
}

func cell(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// runBatch verifies items with at most concurrency in flight. Results keep
// input order. Save failures are recorded on the result, not returned.
func runBatch(ctx context.Context, env *appEnv, items []batchItem, concurrency int, save bool) ([]batchResult, batchSummary) {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]batchResult, len(items))
	var verified, unverified, saveFailed atomic.Int64
	var saveMu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, item := range items {
		g.Go(func() error {
			v := env.Matcher.VerifyQuery(gCtx, item.Query)
			if v.IsVerified {
				verified.Add(1)
			} else {
				unverified.Add(1)
			}

			res := batchResult{
				Row:       item.Row,
				ProfileID: item.ProfileID,
				Query:     item.Query,
				Verdict:   v,
			}

			if save && item.ProfileID != "" && env.Store != nil {
				// One writer at a time for SQLite.
				saveMu.Lock()
				_, err := env.Store.SaveVerification(gCtx, model.NewVerification(item.ProfileID, item.Query, v))
				saveMu.Unlock()
				if err != nil {
					saveFailed.Add(1)
					res.SaveError = err.Error()
					zap.L().Error("batch: save verdict failed",
						zap.String("profile_id", item.ProfileID),
						zap.Error(err),
					)
				}
			}

			results[i] = res
			return nil
		})
	}

	_ = g.Wait()

	return results, batchSummary{
		Total:      len(items),
		Verified:   verified.Load(),
		Unverified: unverified.Load(),
		SaveFailed: saveFailed.Load(),
	}
}

// writeBatchResults writes to path, or to w when path is empty.
func writeBatchResults(w io.Writer, path, format string, results []batchResult) error {
	if path == "" {
		return writeOutput(w, format, results)
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "batch: create %s", path)
	}
	if err := writeOutput(f, format, results); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "batch: close %s", path)
	}
	zap.L().Info("batch: results written", zap.String("path", path), zap.Int("results", len(results)))
	return nil
}

func init() {
	batchCmd.Flags().StringVar(&batchCSV, "csv", "", "path to the input CSV (required)")
	batchCmd.Flags().StringVar(&batchOutput, "output", "", "write results to file (default: stdout)")
	batchCmd.Flags().StringVar(&batchFormat, "format", "json", "output format: json or yaml")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "rows verified concurrently (default from config)")
	batchCmd.Flags().BoolVar(&batchSave, "save", false, "save verdicts for rows with a profile_id")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max rows to verify (0 = all)")
	_ = batchCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(batchCmd)
}

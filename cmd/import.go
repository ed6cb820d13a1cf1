package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/advocate-cli/internal/config"
	"github.com/sells-group/advocate-cli/internal/roster"
	"github.com/sells-group/advocate-cli/internal/store"
)

var (
	importFile      string
	importDelimiter string
	importSheet     string
	importDryRun    bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Replace the stored roster with a roster file or URL",
	Long:  "Reads a delimited table, gzip table, XLSX workbook or http(s) URL and replaces the advocates table with its rows. Use roster.source=store to verify against the imported roster.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("import"); err != nil {
			return err
		}
		ctx := cmd.Context()

		rc := importRosterConfig(cfg.Roster, importFile, importDelimiter, importSheet)
		if strings.TrimSpace(rc.Source) == "store" {
			return eris.New("import: --file must name a file, URL or seed, not the store")
		}

		if importDryRun {
			n, err := importRoster(ctx, rc, nil)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d advocates parsed (dry run)\n", n)
			return nil
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "import: migrate store")
		}

		n, err := importRoster(ctx, rc, st)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d advocates imported\n", n)
		return nil
	},
}

// importRosterConfig overlays the command flags on the configured roster settings.
func importRosterConfig(base config.RosterConfig, source, delimiter, sheet string) config.RosterConfig {
	rc := base
	rc.Source = source
	if delimiter != "" {
		rc.Delimiter = delimiter
	}
	if sheet != "" {
		rc.Sheet = sheet
	}
	return rc
}

// importRoster reads the roster described by rc and, unless st is nil,
// replaces the stored roster with it. It returns the number of advocates.
func importRoster(ctx context.Context, rc config.RosterConfig, st store.Store) (int, error) {
	src, err := roster.Open(rc, nil)
	if err != nil {
		return 0, eris.Wrap(err, "import: open roster")
	}

	records, err := src.Load(ctx)
	if err != nil {
		return 0, eris.Wrapf(err, "import: load %s", src.Name())
	}
	if len(records) == 0 {
		return 0, eris.Errorf("import: %s has no advocates", src.Name())
	}

	if st == nil {
		return len(records), nil
	}

	n, err := st.ReplaceAdvocates(ctx, records)
	if err != nil {
		return 0, eris.Wrap(err, "import: replace advocates")
	}

	zap.L().Info("import: roster replaced",
		zap.String("source", src.Name()),
		zap.Int("advocates", n),
	)
	return n, nil
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "roster file path or http(s) URL (required)")
	importCmd.Flags().StringVar(&importDelimiter, "delimiter", "", "field delimiter (default from config or file extension)")
	importCmd.Flags().StringVar(&importSheet, "sheet", "", "XLSX sheet name (default: first sheet)")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "parse the roster and report the count, skip the store")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}

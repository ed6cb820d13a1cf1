package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	cacheStatusFormat string
	cacheStatusLoad   bool
)

var cacheStatusCmd = &cobra.Command{
	Use:   "cache-status",
	Short: "Load the roster and report what the matcher cached",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("verify"); err != nil {
			return err
		}
		ctx := cmd.Context()

		env, err := initEnv(ctx, false)
		if err != nil {
			return err
		}
		defer env.Close()

		if cacheStatusLoad {
			if _, err := env.Matcher.Load(ctx); err != nil {
				return eris.Wrap(err, "cache-status: load roster")
			}
		}
		return writeOutput(cmd.OutOrStdout(), cacheStatusFormat, env.Matcher.CacheStatus())
	},
}

func init() {
	cacheStatusCmd.Flags().StringVar(&cacheStatusFormat, "format", "json", "output format: json or yaml")
	cacheStatusCmd.Flags().BoolVar(&cacheStatusLoad, "load", true, "load the roster before reporting")
	rootCmd.AddCommand(cacheStatusCmd)
}

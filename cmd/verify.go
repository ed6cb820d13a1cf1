package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/advocate-cli/internal/advocate"
	"github.com/sells-group/advocate-cli/internal/model"
)

var (
	verifyName       string
	verifyEnrollment string
	verifyProfileID  string
	verifyFormat     string
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify one advocate against the roster",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("verify"); err != nil {
			return err
		}
		ctx := cmd.Context()

		env, err := initEnv(ctx, verifyProfileID != "")
		if err != nil {
			return err
		}
		defer env.Close()

		q := advocate.Query{SubmittedName: verifyName, SubmittedEnrollment: verifyEnrollment}
		v, err := verifyOne(ctx, env, q, verifyProfileID)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), verifyFormat, v)
	},
}

// verifyOne loads the roster, verifies q, and saves the verdict when a
// profile ID is given.
func verifyOne(ctx context.Context, env *appEnv, q advocate.Query, profileID string) (advocate.Verdict, error) {
	if _, err := env.Matcher.Load(ctx); err != nil {
		return advocate.Verdict{}, eris.Wrap(err, "verify: load roster")
	}

	v := env.Matcher.VerifyQuery(ctx, q)

	if profileID != "" {
		if env.Store == nil {
			return v, eris.New("verify: no store configured to save verdict")
		}
		saved, err := env.Store.SaveVerification(ctx, model.NewVerification(profileID, q, v))
		if err != nil {
			return v, eris.Wrap(err, "verify: save verdict")
		}
		zap.L().Info("verdict saved",
			zap.String("profile_id", profileID),
			zap.String("verification_id", saved.ID),
			zap.Bool("verified", v.IsVerified),
			zap.Float64("confidence", v.Confidence),
		)
	}
	return v, nil
}

func init() {
	verifyCmd.Flags().StringVar(&verifyName, "name", "", "submitted advocate name (required)")
	verifyCmd.Flags().StringVar(&verifyEnrollment, "enrollment", "", "submitted enrollment number")
	verifyCmd.Flags().StringVar(&verifyProfileID, "profile-id", "", "save the verdict for this profile")
	verifyCmd.Flags().StringVar(&verifyFormat, "format", "json", "output format: json or yaml")
	_ = verifyCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(verifyCmd)
}

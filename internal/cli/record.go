package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relicta-tech/revlabel/internal/domain/build"
)

var recordCmd = &cobra.Command{
	Use:   "record <success|failure>",
	Short: "Record the outcome of the current build",
	Long: `Record whether the build labelled by the last 'revlabel next' succeeded.

A successful build becomes the previous label of the next computation. After
a failure the next build of the same revision restarts at cycle 1 unless
label.increment_on_failure is set.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(build.StatusSuccess), string(build.StatusFailure)},
	RunE:      runRecord,
}

func runRecord(cmd *cobra.Command, args []string) error {
	status, err := build.ParseStatus(args[0])
	if err != nil {
		return err
	}

	svc, err := newLabeller(cfg, serviceOptions{})
	if err != nil {
		return err
	}

	rec, err := svc.Record(cmd.Context(), status)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if IsJSONOutput() {
		return writeJSON(out, rec)
	}

	msg := fmt.Sprintf("Build %s recorded as %s", rec.Label, rec.Status)
	if rec.Status == build.StatusSuccess {
		printSuccess(out, msg)
	} else {
		printWarning(out, msg)
	}
	return nil
}

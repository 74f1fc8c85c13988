package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/relicta-tech/revlabel/internal/domain/build"
	"github.com/relicta-tech/revlabel/internal/service/labeller"
)

var (
	nextPreviousLabel string
	nextLastStatus    string
	nextRef           string
	nextDryRun        bool
)

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Compute, record and publish the label of a new build",
	Long: `Compute the label of the revision about to be built.

The previous label and build status come from the state file unless
--previous-label or --last-status are given. The new build is recorded as
pending; finish it with 'revlabel record success|failure'.

With --dry-run the label is printed but neither recorded nor published.`,
	Args: cobra.NoArgs,
	RunE: runNext,
}

func init() {
	nextCmd.Flags().StringVar(&nextPreviousLabel, "previous-label", "", "label of the last successful build (overrides the state file)")
	nextCmd.Flags().StringVar(&nextLastStatus, "last-status", "", "status of the last build: success or failure (overrides the state file)")
	nextCmd.Flags().StringVar(&nextRef, "ref", "", "revision to label (overrides git.ref)")
	nextCmd.Flags().BoolVar(&nextDryRun, "dry-run", false, "compute the label without recording or publishing it")
}

// nextOptionsFromFlags converts the override flags of cmd.
func nextOptionsFromFlags(cmd *cobra.Command) (labeller.NextOptions, error) {
	var opts labeller.NextOptions

	if cmd.Flags().Changed("previous-label") {
		previous := nextPreviousLabel
		opts.PreviousLabel = &previous
	}

	if cmd.Flags().Changed("last-status") {
		status, err := build.ParseStatus(nextLastStatus)
		if err != nil {
			return opts, fmt.Errorf("--last-status: %w", err)
		}
		succeeded := status == build.StatusSuccess
		opts.LastBuildSucceeded = &succeeded
	}

	return opts, nil
}

func runNext(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	opts, err := nextOptionsFromFlags(cmd)
	if err != nil {
		return err
	}

	svcOpts := serviceOptions{ref: nextRef}
	if !nextDryRun {
		svcOpts.out = out
	}
	svc, err := newLabeller(cfg, svcOpts)
	if err != nil {
		return err
	}

	if nextDryRun {
		res, err := svc.Preview(ctx, opts)
		if err != nil {
			return err
		}
		if IsJSONOutput() {
			return writeJSON(out, res.Published.Map())
		}
		printResult(out, res)
		return nil
	}

	res, err := svc.Next(ctx, opts)
	if err != nil {
		return err
	}
	if !IsJSONOutput() {
		printResult(out, res)
	}
	return nil
}

// printResult renders a computed label for humans.
func printResult(w io.Writer, res *labeller.Result) {
	facts := res.Facts

	fmt.Fprintln(w, styles.Label.Render(facts.Label()))
	if cfg != nil && cfg.Output.Quiet {
		return
	}

	printField(w, "grammar", facts.Grammar().String())
	printField(w, "commit", facts.CommitHash())
	if facts.ParentHash() != "" {
		printField(w, "parents", facts.ParentHash())
	}
	printField(w, "tree", facts.TreeHash())
	printField(w, "checkin count", strconv.Itoa(facts.CheckinCount()))
	printField(w, "build cycle", strconv.Itoa(facts.BuildCycleNumber()))
	printField(w, "previous label", res.PreviousLabel)
	printField(w, "last build ok", strconv.FormatBool(res.LastBuildSucceeded))
	if res.BaseVersion != "" {
		printField(w, "version tag", res.BaseVersion)
	}
	if res.RepositoryPath != "" {
		printField(w, "repository", res.RepositoryPath)
	}
	if res.Record != nil {
		printField(w, "build id", res.Record.ID)
	}
}

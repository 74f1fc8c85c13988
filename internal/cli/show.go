package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/relicta-tech/revlabel/internal/domain/build"
)

var showLimit int

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored build state",
	Args:  cobra.NoArgs,
	RunE:  runShow,
}

func init() {
	showCmd.Flags().IntVarP(&showLimit, "limit", "n", 10, "number of history entries to show (0 for all)")
}

func runShow(cmd *cobra.Command, args []string) error {
	svc, err := newLabeller(cfg, serviceOptions{})
	if err != nil {
		return err
	}

	state, err := svc.State(cmd.Context())
	if err != nil {
		return err
	}

	history := state.History
	if showLimit > 0 && len(history) > showLimit {
		history = history[len(history)-showLimit:]
	}

	out := cmd.OutOrStdout()
	if IsJSONOutput() {
		view := *state
		view.History = history
		return writeJSON(out, view)
	}

	printState(out, state, history)
	return nil
}

func printState(w io.Writer, state *build.State, history []build.Record) {
	printTitle(w, "Build state")

	last := state.LastSuccessfulLabel
	if last == "" {
		last = "(none)"
	}
	printField(w, "last successful", last)

	status := string(state.LastStatus)
	if status == "" {
		status = string(build.StatusUnknown)
	}
	printField(w, "last status", status)

	if state.Current != nil {
		printField(w, "in progress", fmt.Sprintf("%s (started %s)", state.Current.Label, state.Current.StartedAt.Format(time.RFC3339)))
	}

	if len(history) == 0 {
		return
	}

	fmt.Fprintln(w)
	printTitle(w, "History")
	for i := len(history) - 1; i >= 0; i-- {
		rec := history[i]
		line := fmt.Sprintf("  %-24s %-8s %s", rec.Label, rec.Status, rec.FinishedAt.Format(time.RFC3339))
		switch rec.Status {
		case build.StatusSuccess:
			fmt.Fprintln(w, styles.Success.Render(line))
		case build.StatusFailure:
			fmt.Fprintln(w, styles.Error.Render(line))
		default:
			fmt.Fprintln(w, styles.Subtle.Render(line))
		}
	}
}

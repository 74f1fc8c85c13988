package cli

import (
	"errors"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/relicta-tech/revlabel/internal/domain/build"
	"github.com/relicta-tech/revlabel/internal/infrastructure/publish"
	"github.com/relicta-tech/revlabel/internal/service/labeller"
)

var execRecord bool

var execCmd = &cobra.Command{
	Use:   "exec [flags] -- <command> [args...]",
	Short: "Label a build and run a command with the label facts in its environment",
	Long: `Compute and record the label of a new build (like 'revlabel next'), then
run the given command with every published fact added to its environment,
e.g. CCNetLabel=1.0.5.4.

With --record the outcome of the command is recorded as the build status.
The command's exit status becomes revlabel's exit status.`,
	Example: `  revlabel exec -- make release
  revlabel exec --record -- sh -c 'docker build -t app:$CCNetLabel .'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExec,
}

func init() {
	execCmd.Flags().BoolVar(&execRecord, "record", false, "record the command's outcome as the build status")
	execCmd.Flags().SetInterspersed(false)
}

func runExec(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	svc, err := newLabeller(cfg, serviceOptions{})
	if err != nil {
		return err
	}

	res, err := svc.Next(ctx, labeller.NextOptions{})
	if err != nil {
		return err
	}

	child := exec.CommandContext(ctx, args[0], args[1:]...) // #nosec G204 -- runs the command the user asked for
	child.Env = publish.Environ(os.Environ(), res.Published)
	child.Stdin = os.Stdin
	child.Stdout = cmd.OutOrStdout()
	child.Stderr = cmd.ErrOrStderr()

	logger.Debug("running command", "command", args[0], "label", res.Label())

	code := 0
	if runErr := child.Run(); runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return runErr
		}
		code = exitErr.ExitCode()
		if code < 0 {
			code = 1
		}
	}

	if execRecord {
		status := build.StatusSuccess
		if code != 0 {
			status = build.StatusFailure
		}
		if _, err := svc.Record(ctx, status); err != nil {
			return err
		}
	}

	if code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

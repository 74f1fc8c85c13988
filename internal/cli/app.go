package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/relicta-tech/revlabel/internal/config"
	"github.com/relicta-tech/revlabel/internal/domain/build"
	"github.com/relicta-tech/revlabel/internal/infrastructure/git"
	"github.com/relicta-tech/revlabel/internal/infrastructure/persistence"
	"github.com/relicta-tech/revlabel/internal/infrastructure/publish"
	"github.com/relicta-tech/revlabel/internal/service/labeller"
)

// ExitError carries the exit status of a child process run by `exec`.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command exited with status %d", e.Code)
}

// serviceOptions tweaks newLabeller for individual commands.
type serviceOptions struct {
	// out receives JSON facts when JSON output is on.
	out io.Writer
	// ref overrides git.ref.
	ref string
}

// newLabeller wires the labelling service from the configuration.
func newLabeller(c *config.Config, opts serviceOptions) (*labeller.ServiceImpl, error) {
	policy, err := c.Label.Policy()
	if err != nil {
		return nil, err
	}

	repo, err := git.Open(git.Options{
		Backend:          git.Backend(c.Git.Backend),
		WorkingDirectory: c.Git.WorkingDirectory,
		Executable:       c.Git.Executable,
		Logger:           logger,
	})
	if err != nil {
		return nil, err
	}

	states, err := newStateRepository(c)
	if err != nil {
		return nil, err
	}

	ref := c.Git.Ref
	if opts.ref != "" {
		ref = opts.ref
	}

	return labeller.NewService(
		labeller.WithPolicy(policy),
		labeller.WithVersionSource(labeller.VersionSource(c.Label.VersionSource), c.Label.TagPrefix),
		labeller.WithRef(ref),
		labeller.WithRemote(c.Git.Remote),
		labeller.WithFactPrefix(c.Label.FactPrefix),
		labeller.WithRepository(repo),
		labeller.WithStateRepository(states),
		labeller.WithPublisher(newPublishers(c, opts)),
		labeller.WithLogger(logger),
	)
}

func newStateRepository(c *config.Config) (build.Repository, error) {
	if !c.State.Enabled {
		return persistence.NewMemoryStateRepository(nil), nil
	}
	return persistence.NewFileStateRepository(c.State.File)
}

func newPublishers(c *config.Config, opts serviceOptions) publish.Multi {
	var publishers publish.Multi
	if c.Publish.Log {
		publishers = append(publishers, publish.NewLogPublisher(logger, log.InfoLevel))
	}
	if c.Publish.Dotenv.Enabled {
		publishers = append(publishers, publish.NewDotenvPublisher(c.Publish.Dotenv.File))
	}
	if opts.out != nil && c.Output.Format == "json" {
		publishers = append(publishers, publish.NewJSONPublisher(opts.out, true))
	}
	return publishers
}

// writeJSON encodes v to w with indentation.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Package git reads revision metadata from git repositories, either through
// go-git or by invoking the git executable.
package git

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/relicta-tech/revlabel/internal/domain/sourcecontrol"
)

// Backend selects how revision metadata is read.
type Backend string

// Supported backends.
const (
	// BackendGoGit reads the repository in-process with go-git.
	BackendGoGit Backend = "go-git"
	// BackendCLI shells out to the git executable.
	BackendCLI Backend = "cli"
)

// Backends lists every supported backend.
var Backends = []Backend{BackendGoGit, BackendCLI}

// Options configures Open.
type Options struct {
	Backend          Backend
	WorkingDirectory string
	// Executable is the git binary used by BackendCLI.
	Executable string
	Logger     *log.Logger
}

// Open returns the repository reader for opts.Backend.
func Open(opts Options) (sourcecontrol.Repository, error) {
	dir := opts.WorkingDirectory
	if dir == "" {
		dir = "."
	}

	switch opts.Backend {
	case BackendGoGit, "":
		return OpenGoGitRepository(dir)
	case BackendCLI:
		return NewCLIRepository(dir, WithExecutable(opts.Executable), WithCLILogger(opts.Logger))
	default:
		return nil, fmt.Errorf("unknown git backend %q", opts.Backend)
	}
}

package publish

import (
	"context"
	"strings"

	"github.com/relicta-tech/revlabel/internal/domain/label"
	rlerrors "github.com/relicta-tech/revlabel/internal/errors"
	"github.com/relicta-tech/revlabel/internal/fileutil"
)

// DotenvPublisher appends NAME=VALUE lines to a file, the format read by
// GitHub Actions ($GITHUB_ENV) and most dotenv loaders.
type DotenvPublisher struct {
	path string
}

// NewDotenvPublisher creates a publisher appending to path.
func NewDotenvPublisher(path string) *DotenvPublisher {
	return &DotenvPublisher{path: path}
}

// Path returns the target file.
func (p *DotenvPublisher) Path() string {
	return p.path
}

// Publish implements label.Publisher. Nothing is written when any fact is
// invalid.
func (p *DotenvPublisher) Publish(ctx context.Context, facts label.FactSet) error {
	const op = "publish.Dotenv"

	if err := ctx.Err(); err != nil {
		return rlerrors.CanceledWrap(err, op)
	}

	var b strings.Builder
	for _, f := range facts {
		if err := ValidateFact(f); err != nil {
			return rlerrors.PublishWrap(err, op, "refusing to write dotenv file")
		}
		b.WriteString(f.Name)
		b.WriteByte('=')
		b.WriteString(f.Value)
		b.WriteByte('\n')
	}

	if err := fileutil.AppendFile(p.path, []byte(b.String()), 0o644); err != nil {
		return rlerrors.IOWrap(err, op, "failed to append to "+p.path)
	}
	return nil
}

// Package publish hands computed label facts to the build host: the log,
// a dotenv file, child process environments or JSON on stdout.
package publish

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/relicta-tech/revlabel/internal/domain/label"
	rlerrors "github.com/relicta-tech/revlabel/internal/errors"
)

// Ensure publishers implement label.Publisher.
var (
	_ label.Publisher = (*LogPublisher)(nil)
	_ label.Publisher = (*DotenvPublisher)(nil)
	_ label.Publisher = (*JSONPublisher)(nil)
	_ label.Publisher = Multi(nil)
)

// envNamePattern matches names usable as environment variables.
var envNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ErrInvalidFact is returned for facts that cannot be expressed as an
// environment variable.
var ErrInvalidFact = errors.New("invalid fact")

// ValidateFact checks that f can be written as NAME=VALUE on one line.
func ValidateFact(f label.Fact) error {
	if !envNamePattern.MatchString(f.Name) {
		return fmt.Errorf("%w: name %q is not a valid environment variable name", ErrInvalidFact, f.Name)
	}
	if strings.ContainsAny(f.Value, "\r\n\x00") {
		return fmt.Errorf("%w: value of %s spans multiple lines", ErrInvalidFact, f.Name)
	}
	return nil
}

// Multi publishes to every publisher in order. Every publisher runs even
// when an earlier one fails; the failures are joined.
type Multi []label.Publisher

// Publish implements label.Publisher.
func (m Multi) Publish(ctx context.Context, facts label.FactSet) error {
	const op = "publish.Multi"

	var errs []error
	for _, p := range m {
		if err := ctx.Err(); err != nil {
			return rlerrors.CanceledWrap(err, op)
		}
		if err := p.Publish(ctx, facts); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return rlerrors.PublishWrap(errors.Join(errs...), op, "failed to publish facts")
	}
	return nil
}

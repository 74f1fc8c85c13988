package publish

import (
	"context"
	"encoding/json"
	"io"

	"github.com/relicta-tech/revlabel/internal/domain/label"
	rlerrors "github.com/relicta-tech/revlabel/internal/errors"
)

// JSONPublisher writes the facts as one JSON object per publication.
type JSONPublisher struct {
	w      io.Writer
	indent bool
}

// NewJSONPublisher creates a publisher writing to w.
func NewJSONPublisher(w io.Writer, indent bool) *JSONPublisher {
	return &JSONPublisher{w: w, indent: indent}
}

// Publish implements label.Publisher.
func (p *JSONPublisher) Publish(_ context.Context, facts label.FactSet) error {
	enc := json.NewEncoder(p.w)
	if p.indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(facts.Map()); err != nil {
		return rlerrors.IOWrap(err, "publish.JSON", "failed to write facts")
	}
	return nil
}

package publish

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/relicta-tech/revlabel/internal/domain/label"
)

// LogPublisher writes each fact as "name: value".
type LogPublisher struct {
	logger *log.Logger
	level  log.Level
}

// NewLogPublisher creates a LogPublisher logging at level.
func NewLogPublisher(logger *log.Logger, level log.Level) *LogPublisher {
	if logger == nil {
		logger = log.Default()
	}
	return &LogPublisher{logger: logger, level: level}
}

// Publish implements label.Publisher.
func (p *LogPublisher) Publish(_ context.Context, facts label.FactSet) error {
	for _, f := range facts {
		p.logger.Log(p.level, f.Name+": "+f.Value)
	}
	return nil
}

package publish

import (
	"context"
	"sync"

	"github.com/relicta-tech/revlabel/internal/domain/label"
)

var _ label.Publisher = (*InMemoryPublisher)(nil)

// FactHandler is called with every published fact set.
type FactHandler func(facts label.FactSet)

// InMemoryPublisher keeps published fact sets in memory and notifies
// subscribers. It is a test double for label.Publisher: the CLI never
// configures it and service tests use it to observe what was published.
type InMemoryPublisher struct {
	mu       sync.RWMutex
	sets     []label.FactSet
	handlers []FactHandler
}

// NewInMemoryPublisher creates an empty InMemoryPublisher.
func NewInMemoryPublisher() *InMemoryPublisher {
	return &InMemoryPublisher{}
}

// Publish stores facts and notifies subscribers outside the lock.
func (p *InMemoryPublisher) Publish(_ context.Context, facts label.FactSet) error {
	stored := append(label.FactSet(nil), facts...)

	p.mu.Lock()
	p.sets = append(p.sets, stored)
	handlers := append([]FactHandler(nil), p.handlers...)
	p.mu.Unlock()

	for _, h := range handlers {
		h(stored)
	}
	return nil
}

// Subscribe registers h for future publications.
func (p *InMemoryPublisher) Subscribe(h FactHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, h)
}

// Published returns every fact set published so far.
func (p *InMemoryPublisher) Published() []label.FactSet {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]label.FactSet(nil), p.sets...)
}

// Last returns the most recent fact set, or nil.
func (p *InMemoryPublisher) Last() label.FactSet {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.sets) == 0 {
		return nil
	}
	return p.sets[len(p.sets)-1]
}

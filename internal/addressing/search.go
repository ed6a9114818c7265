package addressing

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

type directory interface {
	SearchContacts(ctx context.Context, query string) ([]Contact, error)
}

// Searcher supervises typeahead directory lookups. Each new query cancels the
// in-flight predecessor; a superseded lookup's late result is discarded by
// request identity, never delivered.
type Searcher struct {
	dir     directory
	deliver func(query string, results []Contact)

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// NewSearcher creates a Searcher that delivers result sets through the given
// callback.
func NewSearcher(dir directory, deliver func(query string, results []Contact)) *Searcher {
	return &Searcher{dir: dir, deliver: deliver}
}

// Search starts a lookup for query, superseding any lookup still in flight.
func (s *Searcher) Search(ctx context.Context, query string) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	if query == "" {
		s.deliverIfCurrent(gen, query, nil)
		return
	}

	go func() {
		defer cancel()

		results, err := s.dir.SearchContacts(ctx, query)
		if err != nil {
			if ctx.Err() == nil {
				log.Warn().Str("query", query).Err(err).Msg("contact search failed")
			}
			return
		}
		s.deliverIfCurrent(gen, query, results)
	}()
}

// Stop cancels any in-flight lookup.
func (s *Searcher) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
}

func (s *Searcher) deliverIfCurrent(gen uint64, query string, results []Contact) {
	s.mu.Lock()
	current := s.gen == gen
	s.mu.Unlock()

	if current && s.deliver != nil {
		s.deliver(query, results)
	}
}

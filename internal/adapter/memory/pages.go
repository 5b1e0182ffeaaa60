package memory

import (
	"context"
	"sync"

	"sitekb/internal/page"
)

// PageStore keeps crawled pages in memory for runs without Postgres.
type PageStore struct {
	mu    sync.RWMutex
	pages map[string]page.Page
}

func NewPageStore() *PageStore {
	return &PageStore{pages: make(map[string]page.Page)}
}

func (s *PageStore) Upsert(ctx context.Context, p page.Page) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[p.URL] = p
	return nil
}

func (s *PageStore) Get(ctx context.Context, url string) (*page.Page, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pages[url]
	if !ok {
		return nil, false
	}
	return &p, true
}

func (s *PageStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pages), nil
}

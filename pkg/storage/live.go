package storage

import (
	"context"
	"sync"
)

// Live hands out the current Store and lets it be replaced while requests are
// being served, for instance after the database file was refreshed from a
// mirror. Queries issued through Live that started on the previous Store
// finish against it; the previous Store is closed once they are done.
type Live struct {
	mu      sync.RWMutex
	current *Store

	// serializes Reopen
	reopenMu sync.Mutex
}

// NewLive wraps an already opened store.
func NewLive(s *Store) *Live {
	return &Live{current: s}
}

// Current returns the store new requests should use. The returned Store may
// be closed by a later Reopen; use the Live methods to query it safely.
func (l *Live) Current() *Store {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// acquire returns the current store and keeps it from being swapped out
// until release is called.
func (l *Live) acquire() *Store {
	l.mu.RLock()
	return l.current
}

func (l *Live) release() {
	l.mu.RUnlock()
}

// Reopen opens the database at the current store's path again and swaps it
// in. The swap waits for queries running on the previous store, which is
// closed afterwards. If opening fails the current store is kept.
func (l *Live) Reopen(ctx context.Context) error {
	l.reopenMu.Lock()
	defer l.reopenMu.Unlock()

	old := l.Current()
	next, err := Open(ctx, old.Path())
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.current = next
	l.mu.Unlock()

	if err := old.Close(); err != nil {
		logger.Warnf("failed to close previous store: %v", err)
	}
	logger.Infof("reopened %s", next.Path())
	return nil
}

// Close closes the current store.
func (l *Live) Close() error {
	l.reopenMu.Lock()
	defer l.reopenMu.Unlock()
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current.Close()
}

func (l *Live) Search(ctx context.Context, f SearchFilter) (*SearchResults, error) {
	s := l.acquire()
	defer l.release()
	return s.Search(ctx, f)
}

func (l *Live) GetStory(ctx context.Context, id int64) (Story, bool, error) {
	s := l.acquire()
	defer l.release()
	return s.GetStory(ctx, id)
}

func (l *Live) BasicStats(ctx context.Context) (BasicStats, error) {
	s := l.acquire()
	defer l.release()
	return s.BasicStats(ctx)
}

func (l *Live) TopFandoms(ctx context.Context, limit int) ([]NameCount, error) {
	s := l.acquire()
	defer l.release()
	return s.TopFandoms(ctx, limit)
}

func (l *Live) TopAuthors(ctx context.Context, limit int) ([]AuthorStats, error) {
	s := l.acquire()
	defer l.release()
	return s.TopAuthors(ctx, limit)
}

func (l *Live) LanguageStats(ctx context.Context) ([]NameCount, error) {
	s := l.acquire()
	defer l.release()
	return s.LanguageStats(ctx)
}

func (l *Live) RatingStats(ctx context.Context) ([]NameCount, error) {
	s := l.acquire()
	defer l.release()
	return s.RatingStats(ctx)
}

func (l *Live) StatusStats(ctx context.Context) ([]NameCount, error) {
	s := l.acquire()
	defer l.release()
	return s.StatusStats(ctx)
}

func (l *Live) LongestStories(ctx context.Context, limit int) ([]Story, error) {
	s := l.acquire()
	defer l.release()
	return s.LongestStories(ctx, limit)
}

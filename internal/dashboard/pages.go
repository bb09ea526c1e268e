package dashboard

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"txview/internal/cache"
	applog "txview/internal/log"
)

const (
	DefaultMaxPages = 1000
	DefaultPageTTL  = 30 * time.Minute
)

// Pages keeps one chart board per open dashboard page, so a selection on
// one page never changes the chart of another. Boards idle for longer than
// the TTL are dropped, and the least recently used board goes first when
// the limit is reached.
type Pages struct {
	mu     sync.Mutex
	boards *cache.LRUCache[*Board]
	logger *applog.Logger
}

func NewPages(maxPages int, ttl time.Duration, logger *applog.Logger) *Pages {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	if ttl <= 0 {
		ttl = DefaultPageTTL
	}
	return &Pages{
		boards: cache.NewLRUCache[*Board](maxPages, ttl),
		logger: logger,
	}
}

// Open registers a new page with an empty board and returns its id.
func (p *Pages) Open() string {
	id := uuid.NewString()
	p.boards.Set(id, NewBoard(p.logger))
	return id
}

// Attach returns the board of pageID, starting an empty one when the page
// is unknown or has expired. Every call renews the page's TTL.
func (p *Pages) Attach(pageID string) *Board {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.boards.Get(pageID)
	if !ok {
		b = NewBoard(p.logger)
	}
	p.boards.Set(pageID, b)
	return b
}

// Chart returns the live chart of pageID, or nil when the page has none.
func (p *Pages) Chart(pageID string) *Chart {
	b, ok := p.boards.Get(pageID)
	if !ok {
		return nil
	}
	return b.Current()
}

// CleanExpired drops idle pages. It makes Pages a cache.Cleaner.
func (p *Pages) CleanExpired() int {
	return p.boards.CleanExpired()
}

// Len returns the number of tracked pages.
func (p *Pages) Len() int {
	return p.boards.Size()
}

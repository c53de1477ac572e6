// Package analytics keeps per-address lookup counts for trending and a short
// recent-activity feed, persisted as a single document.
package analytics

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/orion-peep/pkg/explorer"
	"github.com/orion-peep/pkg/metrics"
)

const (
	DefaultFeedCap       = 200
	DefaultTrendingLimit = 12
	DefaultFeedLimit     = 24
	MaxFeedLimit         = 100
)

var (
	ErrInvalidEntry   = errors.New("missing address/type")
	ErrInvalidAddress = errors.New("invalid address")
)

// Backend persists the whole document. Every mutation rewrites it in full.
type Backend interface {
	Load() (*Document, error)
	Save(doc *Document) error
	Close() error
}

// Store is safe for concurrent use within one process. Several processes
// sharing one backend will overwrite each other's writes.
type Store struct {
	mu      sync.Mutex
	backend Backend
	doc     *Document
	feedCap int
	now     func() time.Time
}

type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

func WithFeedCap(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.feedCap = n
		}
	}
}

// Open loads the current document from backend. A backend that cannot be read
// starts the store empty rather than failing startup.
func Open(backend Backend, opts ...Option) *Store {
	s := &Store{backend: backend, feedCap: DefaultFeedCap, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	doc, err := backend.Load()
	if err != nil {
		log.Warn().Err(err).Msg("analytics document unreadable, starting empty")
		doc = NewDocument()
	}
	s.doc = doc.normalize()
	s.trimFeed()
	return s
}

func (s *Store) Close() error { return s.backend.Close() }

// Record upserts the item for e.Address and moves it to the head of the feed.
// The returned item reflects the in-memory state even when the save fails.
func (s *Store) Record(e Entry) (Item, error) {
	typ := strings.ToLower(strings.TrimSpace(e.Type))
	if strings.TrimSpace(e.Address) == "" || typ == "" {
		return Item{}, ErrInvalidEntry
	}
	addr, ok := explorer.CanonicalAddress(e.Address)
	if !ok {
		return Item{}, ErrInvalidAddress
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.doc.Items[addr]
	if !ok || prev == nil {
		prev = &Item{Address: addr}
	}
	at := s.now().UnixMilli()
	if at <= prev.LastAt {
		at = prev.LastAt + 1
	}

	it := *prev
	it.Type = typ
	it.Count++
	it.LastAt = at
	if e.Symbol != "" {
		it.Symbol = &e.Symbol
	}
	if e.Name != "" {
		it.Name = &e.Name
	}
	if e.USD != nil {
		it.USD = *e.USD
	}
	if e.Balance != nil {
		it.Balance = *e.Balance
	}
	it.TitleLine = nonEmpty(e.TitleLine, it.TitleLine)
	it.Message = nonEmpty(e.Message, it.Message)
	it.Icon = nonEmpty(e.Icon, it.Icon)
	s.doc.Items[addr] = &it

	fe := FeedEntry{
		Address:   addr,
		Type:      typ,
		Symbol:    it.Symbol,
		Name:      it.Name,
		USD:       e.USD,
		Balance:   e.Balance,
		TitleLine: e.TitleLine,
		Message:   e.Message,
		Icon:      e.Icon,
		Holders:   e.Holders,
		Market:    e.Market,
		At:        at,
	}
	feed := make([]FeedEntry, 0, len(s.doc.Feed)+1)
	feed = append(feed, fe)
	for _, old := range s.doc.Feed {
		if old.Address != addr {
			feed = append(feed, old)
		}
	}
	s.doc.Feed = feed
	s.trimFeed()

	err := s.backend.Save(s.doc)
	metrics.RecordAnalytics(err)
	return it, err
}

func (s *Store) trimFeed() {
	if len(s.doc.Feed) > s.feedCap {
		s.doc.Feed = s.doc.Feed[:s.feedCap]
	}
}

// Trending returns the top limit wallets and tokens by count. Ties go to the
// most recently seen address, then to the lower address.
func (s *Store) Trending(limit int) Trending {
	if limit <= 0 {
		limit = DefaultTrendingLimit
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := Trending{Wallets: []Item{}, Tokens: []Item{}, Total: len(s.doc.Items)}
	for _, it := range s.doc.Items {
		switch it.Type {
		case TypeWallet:
			out.Wallets = append(out.Wallets, *it)
		case TypeToken:
			out.Tokens = append(out.Tokens, *it)
		}
	}
	out.Wallets = top(out.Wallets, limit)
	out.Tokens = top(out.Tokens, limit)
	return out
}

func top(items []Item, limit int) []Item {
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.LastAt != b.LastAt {
			return a.LastAt > b.LastAt
		}
		return a.Address < b.Address
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}

// Feed returns up to limit of the newest feed entries. limit is clamped to
// [1, MaxFeedLimit]; zero or negative means DefaultFeedLimit.
func (s *Store) Feed(limit int) []FeedEntry {
	switch {
	case limit <= 0:
		limit = DefaultFeedLimit
	case limit > MaxFeedLimit:
		limit = MaxFeedLimit
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit > len(s.doc.Feed) {
		limit = len(s.doc.Feed)
	}
	out := make([]FeedEntry, limit)
	copy(out, s.doc.Feed[:limit])
	return out
}

// Item looks up one aggregate by address, any case.
func (s *Store) Item(addr string) (Item, bool) {
	key, ok := explorer.CanonicalAddress(addr)
	if !ok {
		return Item{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.doc.Items[key]
	if !ok || it == nil {
		return Item{}, false
	}
	return *it, true
}

func nonEmpty(v, prev string) string {
	if v != "" {
		return v
	}
	return prev
}

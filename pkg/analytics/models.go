package analytics

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/orion-peep/pkg/explorer"
)

const (
	TypeWallet = "wallet"
	TypeToken  = "token"
)

// Entry is one record event as posted by the front-end.
type Entry struct {
	Address   string          `json:"address"`
	Type      string          `json:"type"`
	Symbol    string          `json:"symbol,omitempty"`
	Name      string          `json:"name,omitempty"`
	USD       *float64        `json:"usd,omitempty"`
	Balance   *float64        `json:"balance,omitempty"`
	TitleLine string          `json:"titleLine,omitempty"`
	Message   string          `json:"message,omitempty"`
	Icon      string          `json:"icon,omitempty"`
	Holders   json.RawMessage `json:"holders,omitempty"`
	Market    json.RawMessage `json:"market,omitempty"`
}

// Item is the per-address aggregate used for trending.
type Item struct {
	Address   string  `json:"address"`
	Type      string  `json:"type"`
	Symbol    *string `json:"symbol"`
	Name      *string `json:"name"`
	USD       float64 `json:"usd"`
	Balance   float64 `json:"balance"`
	TitleLine string  `json:"titleLine"`
	Message   string  `json:"message"`
	Icon      string  `json:"icon"`
	Count     int64   `json:"count"`
	LastAt    int64   `json:"lastAt"` // unix millis
}

// FeedEntry is a snapshot of one record event.
type FeedEntry struct {
	Address   string          `json:"address"`
	Type      string          `json:"type"`
	Symbol    *string         `json:"symbol"`
	Name      *string         `json:"name"`
	USD       *float64        `json:"usd"`
	Balance   *float64        `json:"balance"`
	TitleLine string          `json:"titleLine"`
	Message   string          `json:"message"`
	Icon      string          `json:"icon"`
	Holders   json.RawMessage `json:"holders"`
	Market    json.RawMessage `json:"market"`
	At        int64           `json:"at"`
}

// Document is the whole persisted state.
type Document struct {
	Items map[string]*Item `json:"items"`
	Feed  []FeedEntry      `json:"feed"`
}

func NewDocument() *Document {
	return &Document{Items: map[string]*Item{}, Feed: []FeedEntry{}}
}

// normalize repairs a decoded document: nil collections are filled, null items
// and keys that are not hex addresses are dropped, and keys are lowercased.
// When two keys fold to the same address the higher count survives.
func (d *Document) normalize() *Document {
	items := make(map[string]*Item, len(d.Items))
	for k, it := range d.Items {
		key, ok := explorer.CanonicalAddress(k)
		if it == nil || !ok {
			log.Warn().Str("key", k).Msg("dropping unusable analytics item")
			continue
		}
		if prev, dup := items[key]; dup && prev.Count >= it.Count {
			continue
		}
		it.Address = key
		items[key] = it
	}
	d.Items = items

	feed := make([]FeedEntry, 0, len(d.Feed))
	seen := make(map[string]bool, len(d.Feed))
	for _, fe := range d.Feed {
		key, ok := explorer.CanonicalAddress(fe.Address)
		if !ok || seen[key] {
			continue
		}
		seen[key] = true
		fe.Address = key
		feed = append(feed, fe)
	}
	d.Feed = feed
	return d
}

type Trending struct {
	Wallets []Item `json:"wallets"`
	Tokens  []Item `json:"tokens"`
	Total   int    `json:"total"`
}

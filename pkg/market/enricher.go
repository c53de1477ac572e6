package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/orion-peep/pkg/explorer"
	"github.com/orion-peep/pkg/metrics"
)

// Fetcher is the upstream client surface the market code needs.
type Fetcher interface {
	FetchJSON(ctx context.Context, url string) explorer.Response
}

// Pair is one DexScreener trading pair.
type Pair struct {
	ChainID     string   `json:"chainId"`
	DexID       string   `json:"dexId"`
	URL         string   `json:"url"`
	PairAddress string   `json:"pairAddress"`
	BaseToken   pairSide `json:"baseToken"`
	QuoteToken  pairSide `json:"quoteToken"`
	PriceUSD    string   `json:"priceUsd"`
	Liquidity   *struct {
		USD *float64 `json:"usd"`
	} `json:"liquidity"`
	FDV       *float64 `json:"fdv"`
	MarketCap *float64 `json:"marketCap"`
}

type pairSide struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// LiquidityUSD returns the pair's USD liquidity, 0 when unknown.
func (p Pair) LiquidityUSD() float64 {
	if p.Liquidity == nil || p.Liquidity.USD == nil {
		return 0
	}
	return *p.Liquidity.USD
}

type pairsResponse struct {
	Pairs []Pair `json:"pairs"`
}

// Client talks to the DexScreener public API (no key required).
type Client struct {
	fetch   Fetcher
	base    string
	chainID string
}

func NewClient(fetch Fetcher, base, chainID string) *Client {
	return &Client{fetch: fetch, base: strings.TrimRight(base, "/"), chainID: chainID}
}

// TokenPairs lists every pair that references addr, on any chain.
func (c *Client) TokenPairs(ctx context.Context, addr string) ([]Pair, error) {
	return c.pairs(ctx, fmt.Sprintf("%s/latest/dex/tokens/%s", c.base, addr))
}

// Search runs a free-text pair search.
func (c *Client) Search(ctx context.Context, q string) ([]Pair, error) {
	return c.pairs(ctx, fmt.Sprintf("%s/latest/dex/search?q=%s", c.base, url.QueryEscape(q)))
}

func (c *Client) pairs(ctx context.Context, u string) ([]Pair, error) {
	r := c.fetch.FetchJSON(ctx, u)
	if !r.OK {
		if r.Err != nil {
			return nil, fmt.Errorf("dexscreener: %w: %v", explorer.ErrSourceUnavailable, r.Err)
		}
		return nil, fmt.Errorf("dexscreener: %w", explorer.ErrSourceUnavailable)
	}
	var resp pairsResponse
	if err := json.Unmarshal(r.Body, &resp); err != nil {
		return nil, fmt.Errorf("dexscreener decode: %w", err)
	}
	return resp.Pairs, nil
}

// SelectPair picks the most liquid pair, restricted to chainID when at least one
// pair lives there. The first pair wins ties. Returns nil for an empty input.
func SelectPair(pairs []Pair, chainID string) *Pair {
	candidates := pairs
	var onChain []Pair
	for _, p := range pairs {
		if strings.EqualFold(p.ChainID, chainID) {
			onChain = append(onChain, p)
		}
	}
	if len(onChain) > 0 {
		candidates = onChain
	}

	var best *Pair
	for i := range candidates {
		if best == nil || candidates[i].LiquidityUSD() > best.LiquidityUSD() {
			best = &candidates[i]
		}
	}
	return best
}

// Enrich attaches market data for a token record. It is best-effort: any failure
// leaves the record as it was. Wallet records pass through untouched.
func (c *Client) Enrich(ctx context.Context, rec *explorer.Record, addr string) *explorer.Record {
	if !rec.IsToken() {
		return rec
	}
	pairs, err := c.TokenPairs(ctx, addr)
	if err != nil {
		log.Debug().Err(err).Str("addr", explorer.Abbrev(addr)).Msg("market enrich skipped")
		metrics.RecordEnrich("error")
		return rec
	}
	p := SelectPair(pairs, c.chainID)
	if p == nil {
		metrics.RecordEnrich("no_pair")
		return rec
	}

	rec.Token.Market = marketInfo(p)
	if rec.Token.Symbol == nil && p.BaseToken.Symbol != "" {
		sym := p.BaseToken.Symbol
		rec.Token.Symbol = &sym
	}
	if rec.Token.Name == nil && p.BaseToken.Name != "" {
		name := p.BaseToken.Name
		rec.Token.Name = &name
	}
	metrics.RecordEnrich("ok")
	return rec
}

func marketInfo(p *Pair) *explorer.MarketInfo {
	m := &explorer.MarketInfo{
		PairURL:     p.URL,
		Dex:         p.DexID,
		ChainID:     p.ChainID,
		PairAddress: p.PairAddress,
		BaseSymbol:  p.BaseToken.Symbol,
		BaseName:    p.BaseToken.Name,
	}
	if d, err := decimal.NewFromString(p.PriceUSD); err == nil {
		m.PriceUSD = decimal.NewNullDecimal(d)
	}
	if p.Liquidity != nil && p.Liquidity.USD != nil {
		m.LiquidityUSD = decimal.NewNullDecimal(decimal.NewFromFloat(*p.Liquidity.USD))
	}
	if p.FDV != nil {
		m.FDVUSD = decimal.NewNullDecimal(decimal.NewFromFloat(*p.FDV))
	}
	switch {
	case p.MarketCap != nil:
		m.MarketCapUSD = decimal.NewNullDecimal(decimal.NewFromFloat(*p.MarketCap))
	case p.FDV != nil:
		m.MarketCapUSD = m.FDVUSD
	}
	return m
}

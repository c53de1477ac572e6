package market

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/orion-peep/pkg/metrics"
)

const (
	FromEnv         = "env"
	FromDexScreener = "dexscreener"
	FromFallback    = "fallback"
)

// Quote is a native coin USD price plus where it came from.
type Quote struct {
	USD    float64
	From   string
	Cached bool
	Age    time.Duration
}

type cachedQuote struct {
	price   float64
	from    string
	fetched time.Time
}

// Oracle answers "what is the native coin worth in USD", preferring an operator
// override, then a live DexScreener search, then a hardcoded default.
// Results are cached in memory for ttl; one process, no cross-instance sharing.
type Oracle struct {
	pairs    *Client
	symbol   string
	fixed    float64
	fallback float64
	ttl      time.Duration
	now      func() time.Time

	mu     sync.RWMutex
	cached *cachedQuote
	group  singleflight.Group
}

type OracleOptions struct {
	WrappedSymbol string  // e.g. WPLS
	FixedUSD      float64 // <= 0 disables the override
	FallbackUSD   float64
	TTL           time.Duration
	Now           func() time.Time
}

func NewOracle(pairs *Client, opts OracleOptions) *Oracle {
	if opts.TTL <= 0 {
		opts.TTL = 60 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Oracle{
		pairs:    pairs,
		symbol:   opts.WrappedSymbol,
		fixed:    opts.FixedUSD,
		fallback: opts.FallbackUSD,
		ttl:      opts.TTL,
		now:      opts.Now,
	}
}

// NativePriceUSD returns the current price. Callers inside the freshness window
// share the cached value; concurrent misses collapse into one upstream lookup.
func (o *Oracle) NativePriceUSD(ctx context.Context) Quote {
	if o.fixed > 0 {
		metrics.RecordPriceLookup(FromEnv)
		return Quote{USD: o.fixed, From: FromEnv}
	}

	o.mu.RLock()
	c := o.cached
	o.mu.RUnlock()
	if c != nil {
		if age := o.now().Sub(c.fetched); age < o.ttl {
			return Quote{USD: c.price, From: c.from, Cached: true, Age: age}
		}
	}

	v, _, _ := o.group.Do("native", func() (any, error) {
		return o.Refresh(context.WithoutCancel(ctx)), nil
	})
	return v.(Quote)
}

// Refresh performs a live lookup and stores the result regardless of cache age.
func (o *Oracle) Refresh(ctx context.Context) Quote {
	price, from := o.lookup(ctx)
	o.mu.Lock()
	o.cached = &cachedQuote{price: price, from: from, fetched: o.now()}
	o.mu.Unlock()
	metrics.RecordPriceLookup(from)
	return Quote{USD: price, From: from}
}

func (o *Oracle) lookup(ctx context.Context) (float64, string) {
	if o.pairs != nil && o.symbol != "" {
		pairs, err := o.pairs.Search(ctx, o.symbol)
		if err != nil {
			log.Warn().Err(err).Str("symbol", o.symbol).Msg("native price lookup failed, using fallback")
		}
		for _, p := range pairs {
			if p.BaseToken.Symbol != o.symbol {
				continue
			}
			if price, err := strconv.ParseFloat(p.PriceUSD, 64); err == nil && price > 0 {
				return price, FromDexScreener
			}
		}
	}
	return o.fallback, FromFallback
}

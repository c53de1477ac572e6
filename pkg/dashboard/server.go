package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/orion-peep/pkg/analytics"
	"github.com/orion-peep/pkg/explorer"
	"github.com/orion-peep/pkg/market"
	"github.com/orion-peep/pkg/metrics"
	"github.com/orion-peep/pkg/resolver"
)

const maxRecordBody = 1 << 20

// Resolver classifies an address.
type Resolver interface {
	Resolve(ctx context.Context, addr string) (*explorer.Record, error)
}

// RawSource proxies the upstream address document untouched.
type RawSource interface {
	RawAddress(ctx context.Context, addr string) (explorer.Response, string)
}

type PriceSource interface {
	NativePriceUSD(ctx context.Context) market.Quote
}

type Analytics interface {
	Record(e analytics.Entry) (analytics.Item, error)
	Trending(limit int) analytics.Trending
	Feed(limit int) []analytics.FeedEntry
}

type Dashboard struct {
	resolver  Resolver
	raw       RawSource
	price     PriceSource
	store     Analytics
	publicDir string
	port      int
	now       func() time.Time
}

type Deps struct {
	Resolver  Resolver
	Raw       RawSource
	Price     PriceSource
	Store     Analytics
	PublicDir string
	Port      int
}

func New(d Deps) *Dashboard {
	return &Dashboard{
		resolver:  d.Resolver,
		raw:       d.Raw,
		price:     d.Price,
		store:     d.Store,
		publicDir: d.PublicDir,
		port:      d.Port,
		now:       time.Now,
	}
}

// Handler builds the full route table wrapped in the security and logging middleware.
func (d *Dashboard) Handler() http.Handler {
	mux := http.NewServeMux()

	// API endpoints
	mux.HandleFunc("GET /api/explorer/addresses/{hash}", d.handleAddress)
	mux.HandleFunc("GET /api/explorer/raw/{hash}", d.handleRaw)
	mux.HandleFunc("POST /api/record", d.handleRecord)
	mux.HandleFunc("GET /api/trending", d.handleTrending)
	mux.HandleFunc("GET /api/feed", d.handleFeed)
	mux.HandleFunc("GET /api/price", d.handlePrice)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())

	// Serve frontend
	mux.Handle("/", d.frontend())

	return securityHeaders(requestLog(mux))
}

// Run serves until ctx is cancelled, then drains in-flight requests for up to 5s.
func (d *Dashboard) Run(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", d.port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           d.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("🌐 peep show listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeJSONStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

func (d *Dashboard) handleAddress(w http.ResponseWriter, r *http.Request) {
	addr, ok := explorer.CanonicalAddress(r.PathValue("hash"))
	if !ok {
		writeJSONStatus(w, http.StatusBadRequest, map[string]string{"error": "invalid address"})
		return
	}

	rec, err := d.resolver.Resolve(r.Context(), addr)
	if err != nil {
		var fail *resolver.AllSourcesFailedError
		details := []string{err.Error()}
		if errors.As(err, &fail) {
			details = fail.Details
		}
		writeJSONStatus(w, http.StatusBadGateway, map[string]interface{}{
			"error":   "all_sources_failed",
			"details": details,
		})
		return
	}
	writeJSON(w, rec)
}

func (d *Dashboard) handleRaw(w http.ResponseWriter, r *http.Request) {
	addr, ok := explorer.CanonicalAddress(r.PathValue("hash"))
	if !ok {
		writeJSONStatus(w, http.StatusBadRequest, map[string]string{"error": "invalid address"})
		return
	}

	resp, src := d.raw.RawAddress(r.Context(), addr)
	if resp.Status == 0 {
		writeJSONStatus(w, http.StatusBadGateway, map[string]string{"error": "proxy_fetch_failed", "hash": addr})
		return
	}
	w.Header().Set("x-proxy-source", src)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	w.Write([]byte(resp.Raw))
}

func (d *Dashboard) handleRecord(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRecordBody)
	var e analytics.Entry
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeJSONStatus(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "body too large"})
			return
		}
		writeJSONStatus(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if e.Address == "" || e.Type == "" {
		writeJSONStatus(w, http.StatusBadRequest, map[string]string{"error": "missing address/type"})
		return
	}
	if e.Type != analytics.TypeWallet && e.Type != analytics.TypeToken {
		writeJSONStatus(w, http.StatusBadRequest, map[string]string{"error": "type must be wallet or token"})
		return
	}
	if _, ok := explorer.CanonicalAddress(e.Address); !ok {
		writeJSONStatus(w, http.StatusBadRequest, map[string]string{"error": "invalid address"})
		return
	}

	item, err := d.store.Record(e)
	if errors.Is(err, analytics.ErrInvalidEntry) || errors.Is(err, analytics.ErrInvalidAddress) {
		writeJSONStatus(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("addr", explorer.Abbrev(item.Address)).Msg("analytics persist failed")
	}

	writeJSON(w, map[string]interface{}{"ok": true, "item": item})
}

func (d *Dashboard) handleTrending(w http.ResponseWriter, r *http.Request) {
	tr := d.store.Trending(queryInt(r, "limit", analytics.DefaultTrendingLimit))
	writeJSON(w, map[string]interface{}{
		"wallets":   tr.Wallets,
		"tokens":    tr.Tokens,
		"total":     tr.Total,
		"updatedAt": d.now().UnixMilli(),
	})
}

func (d *Dashboard) handleFeed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"items":     d.store.Feed(queryInt(r, "limit", analytics.DefaultFeedLimit)),
		"updatedAt": d.now().UnixMilli(),
	})
}

func (d *Dashboard) handlePrice(w http.ResponseWriter, r *http.Request) {
	q := d.price.NativePriceUSD(r.Context())
	writeJSON(w, map[string]interface{}{
		"wplsUsd":    q.USD,
		"from":       q.From,
		"cached":     q.Cached,
		"ageSeconds": int64(q.Age / time.Second),
	})
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

package resolver

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/orion-peep/pkg/explorer"
)

const (
	SourceV2Token      = "v2-token"
	SourceV2Address    = "v2-address"
	SourceV2TokenRetry = "v2-token-retry"
	SourceLegacy       = "legacy"
)

// ── 1. v2 token endpoint ────────────────────────────────────

type v2TokenStrategy struct {
	up  Upstream
	enr Enricher
}

func (s *v2TokenStrategy) Name() string { return SourceV2Token }

func (s *v2TokenStrategy) Try(ctx context.Context, addr string) (*explorer.Record, error) {
	tok, err := s.up.TokenV2(ctx, addr)
	if err != nil {
		return nil, err
	}
	return asToken(ctx, s.enr, tok, addr, SourceV2Token), nil
}

// ── 2. v2 address endpoint ──────────────────────────────────

type v2AddressStrategy struct {
	up  Upstream
	enr Enricher
}

func (s *v2AddressStrategy) Name() string { return SourceV2Address }

// Try normalizes the address document. Contracts get one more shot at the token
// endpoint since new tokens can show up there after the address is indexed.
func (s *v2AddressStrategy) Try(ctx context.Context, addr string) (*explorer.Record, error) {
	a, err := s.up.AddressV2(ctx, addr)
	if err != nil {
		return nil, err
	}
	if a.Contract() {
		if tok, err := s.up.TokenV2(ctx, addr); err == nil {
			return asToken(ctx, s.enr, tok, addr, SourceV2TokenRetry), nil
		}
	}
	rec := a.Normalize()
	rec.Source = SourceV2Address
	return rec, nil
}

// ── 3. legacy API ───────────────────────────────────────────

type legacyStrategy struct {
	up  Upstream
	enr Enricher
}

func (s *legacyStrategy) Name() string { return SourceLegacy }

// Try fetches balance, ABI and source metadata concurrently. A token only needs the
// ABI; a wallet record needs the balance, otherwise the strategy fails rather than
// reporting a zero balance it never saw.
func (s *legacyStrategy) Try(ctx context.Context, addr string) (*explorer.Record, error) {
	var (
		balance, abi            string
		meta                    *explorer.SourceMeta
		balErr, abiErr, metaErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { balance, balErr = s.up.LegacyBalance(gctx, addr); return nil })
	g.Go(func() error { abi, abiErr = s.up.LegacyABI(gctx, addr); return nil })
	g.Go(func() error { meta, metaErr = s.up.LegacySource(gctx, addr); return nil })
	_ = g.Wait()

	if balErr != nil && abiErr != nil && metaErr != nil {
		return nil, fmt.Errorf("balance: %v; abi: %v; source: %v", balErr, abiErr, metaErr)
	}

	isContract := abiErr == nil && abi != "" && abi != explorer.NotVerifiedSentinel
	if isContract && explorer.IsFungibleTokenABI(abi) {
		lt := &explorer.LegacyToken{Address: addr}
		if metaErr == nil && meta != nil {
			lt.Name = meta.ContractName
			lt.Symbol = meta.Symbol
		}
		rec := lt.Normalize()
		rec.Source = SourceLegacy
		if s.enr != nil {
			rec = s.enr.Enrich(ctx, rec, addr)
		}
		return rec, nil
	}

	if balErr != nil {
		return nil, fmt.Errorf("legacy balance: %w", balErr)
	}
	rec := (&explorer.LegacyWallet{Address: addr, Balance: balance, IsContract: isContract}).Normalize()
	rec.Source = SourceLegacy
	return rec, nil
}

func asToken(ctx context.Context, enr Enricher, tok *explorer.V2Token, addr, source string) *explorer.Record {
	rec := tok.Normalize()
	if rec.Hash == "" {
		rec.Hash = addr
		rec.Token.AddressHash = addr
	}
	rec.Source = source
	if enr != nil {
		rec = enr.Enrich(ctx, rec, addr)
	}
	return rec
}

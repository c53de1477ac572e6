// Package resolver decides whether an address is a wallet or a token and builds
// the canonical record for it, walking upstream sources in a fixed order.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/orion-peep/pkg/explorer"
	"github.com/orion-peep/pkg/metrics"
)

// ErrAllSourcesFailed is matched by errors.Is on *AllSourcesFailedError.
var ErrAllSourcesFailed = errors.New("all sources failed")

// Upstream is the explorer surface the strategies use.
type Upstream interface {
	TokenV2(ctx context.Context, addr string) (*explorer.V2Token, error)
	AddressV2(ctx context.Context, addr string) (*explorer.V2Address, error)
	LegacyBalance(ctx context.Context, addr string) (string, error)
	LegacyABI(ctx context.Context, addr string) (string, error)
	LegacySource(ctx context.Context, addr string) (*explorer.SourceMeta, error)
}

// Enricher adds market data to token records. It must never fail the lookup.
type Enricher interface {
	Enrich(ctx context.Context, rec *explorer.Record, addr string) *explorer.Record
}

// Strategy is one source in the fallback chain. Try returns a record, or an error
// wrapping explorer.ErrSourceUnavailable so the next strategy gets a turn.
type Strategy interface {
	Name() string
	Try(ctx context.Context, addr string) (*explorer.Record, error)
}

// AllSourcesFailedError carries why each strategy gave up.
type AllSourcesFailedError struct {
	Address string
	Details []string
}

func (e *AllSourcesFailedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrAllSourcesFailed, strings.Join(e.Details, "; "))
}

func (e *AllSourcesFailedError) Is(target error) bool { return target == ErrAllSourcesFailed }

type Resolver struct {
	strategies []Strategy
}

// New builds the default chain: v2 token, v2 address (with a token retry for
// contracts), then the legacy API.
func New(up Upstream, enr Enricher) *Resolver {
	return NewWithStrategies(
		&v2TokenStrategy{up: up, enr: enr},
		&v2AddressStrategy{up: up, enr: enr},
		&legacyStrategy{up: up, enr: enr},
	)
}

func NewWithStrategies(strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies}
}

// Strategies lists strategy names in the order they are tried.
func (r *Resolver) Strategies() []string {
	names := make([]string, len(r.strategies))
	for i, s := range r.strategies {
		names[i] = s.Name()
	}
	return names
}

// Resolve classifies addr. The first strategy to produce a record wins; if all of
// them fail the error is an *AllSourcesFailedError, never a zeroed record.
func (r *Resolver) Resolve(ctx context.Context, addr string) (*explorer.Record, error) {
	canon, ok := explorer.CanonicalAddress(addr)
	if !ok {
		return nil, fmt.Errorf("invalid address %q", addr)
	}

	fail := &AllSourcesFailedError{Address: canon}
	for _, s := range r.strategies {
		if err := ctx.Err(); err != nil {
			fail.Details = append(fail.Details, fmt.Sprintf("%s: %v", s.Name(), err))
			break
		}
		rec, err := s.Try(ctx, canon)
		if err != nil {
			fail.Details = append(fail.Details, fmt.Sprintf("%s: %v", s.Name(), err))
			log.Debug().Err(err).Str("strategy", s.Name()).Str("addr", explorer.Abbrev(canon)).Msg("source unavailable")
			continue
		}
		if rec == nil {
			fail.Details = append(fail.Details, s.Name()+": empty result")
			continue
		}
		if rec.Source == "" {
			rec.Source = s.Name()
		}
		metrics.RecordResolution(rec.Source)
		log.Info().Str("addr", explorer.Abbrev(canon)).Str("kind", string(rec.Kind)).
			Str("source", rec.Source).Msg("resolved")
		return rec, nil
	}

	metrics.RecordResolution("failed")
	log.Warn().Str("addr", explorer.Abbrev(canon)).Strs("details", fail.Details).Msg("all sources failed")
	return nil, fail
}

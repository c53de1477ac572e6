package resolver

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orion-peep/pkg/explorer"
)

const addr = "0xa1077a294dde1b09bb078844df40758a5d0f9a27"

var errDown = fmt.Errorf("test: %w", explorer.ErrSourceUnavailable)

const erc20ABI = `[{"name":"totalSupply"},{"name":"balanceOf"},{"name":"transfer"}]`

// fakeUpstream returns whatever each field holds; nil values mean "source down".
type fakeUpstream struct {
	token      []*explorer.V2Token // consumed in order, one per TokenV2 call
	address    *explorer.V2Address
	balance    *string
	abi        *string
	meta       *explorer.SourceMeta
	tokenCalls atomic.Int32
}

func (f *fakeUpstream) TokenV2(context.Context, string) (*explorer.V2Token, error) {
	n := int(f.tokenCalls.Add(1)) - 1
	if n >= len(f.token) || f.token[n] == nil {
		return nil, errDown
	}
	return f.token[n], nil
}

func (f *fakeUpstream) AddressV2(context.Context, string) (*explorer.V2Address, error) {
	if f.address == nil {
		return nil, errDown
	}
	return f.address, nil
}

func (f *fakeUpstream) LegacyBalance(context.Context, string) (string, error) {
	if f.balance == nil {
		return "", errDown
	}
	return *f.balance, nil
}

func (f *fakeUpstream) LegacyABI(context.Context, string) (string, error) {
	if f.abi == nil {
		return "", errDown
	}
	return *f.abi, nil
}

func (f *fakeUpstream) LegacySource(context.Context, string) (*explorer.SourceMeta, error) {
	if f.meta == nil {
		return nil, errDown
	}
	return f.meta, nil
}

// markEnricher tags token records so tests can see enrichment ran.
type markEnricher struct{ calls atomic.Int32 }

func (m *markEnricher) Enrich(_ context.Context, rec *explorer.Record, _ string) *explorer.Record {
	m.calls.Add(1)
	if rec.IsToken() {
		rec.Token.Market = &explorer.MarketInfo{Dex: "pulsex"}
	}
	return rec
}

func ptr[T any](v T) *T { return &v }

func assertExactlyOne(t *testing.T, rec *explorer.Record) {
	t.Helper()
	switch rec.Kind {
	case explorer.KindToken:
		assert.NotNil(t, rec.Token)
		assert.Nil(t, rec.CoinBalance)
	case explorer.KindWallet:
		assert.Nil(t, rec.Token)
	default:
		t.Fatalf("unexpected kind %q", rec.Kind)
	}
}

func TestResolve_TokenEndpointWins(t *testing.T) {
	up := &fakeUpstream{token: []*explorer.V2Token{{Address: addr, Symbol: ptr("HEX")}}}
	enr := &markEnricher{}
	rec, err := New(up, enr).Resolve(context.Background(), addr)
	require.NoError(t, err)

	assert.Equal(t, explorer.KindToken, rec.Kind)
	assert.Equal(t, SourceV2Token, rec.Source)
	assert.Equal(t, "pulsex", rec.Token.Market.Dex)
	assert.Equal(t, int32(1), enr.calls.Load())
	assertExactlyOne(t, rec)
}

func TestResolve_UppercaseInputIsCanonicalized(t *testing.T) {
	up := &fakeUpstream{address: &explorer.V2Address{Hash: addr, CoinBalance: "5"}}
	rec, err := New(up, nil).Resolve(context.Background(), "0xA1077A294DDE1B09BB078844DF40758A5D0F9A27")
	require.NoError(t, err)
	assert.Equal(t, addr, rec.Hash)
}

func TestResolve_WalletFromAddressEndpoint(t *testing.T) {
	up := &fakeUpstream{address: &explorer.V2Address{Hash: addr, CoinBalance: "1000", TxCount: ptr(int64(7))}}
	enr := &markEnricher{}
	rec, err := New(up, enr).Resolve(context.Background(), addr)
	require.NoError(t, err)

	assert.Equal(t, explorer.KindWallet, rec.Kind)
	assert.Equal(t, SourceV2Address, rec.Source)
	assert.Equal(t, "1000", *rec.CoinBalance)
	assert.Equal(t, int64(7), *rec.TransactionsCount)
	assert.Zero(t, enr.calls.Load(), "wallets are not enriched")
	assert.Equal(t, int32(1), up.tokenCalls.Load(), "no retry for plain wallets")
	assertExactlyOne(t, rec)
}

func TestResolve_ContractRetriesTokenEndpoint(t *testing.T) {
	up := &fakeUpstream{
		token:   []*explorer.V2Token{nil, {Address: addr, Symbol: ptr("NEW")}},
		address: &explorer.V2Address{Hash: addr, IsContract: ptr(true)},
	}
	rec, err := New(up, &markEnricher{}).Resolve(context.Background(), addr)
	require.NoError(t, err)

	assert.Equal(t, explorer.KindToken, rec.Kind)
	assert.Equal(t, SourceV2TokenRetry, rec.Source)
	assert.Equal(t, "NEW", *rec.Token.Symbol)
	assert.NotNil(t, rec.Token.Market)
	assert.Equal(t, int32(2), up.tokenCalls.Load())
}

func TestResolve_ContractRetryFailsKeepsWalletRecord(t *testing.T) {
	up := &fakeUpstream{address: &explorer.V2Address{Hash: addr, IsContract: ptr(true), CoinBalance: "3"}}
	rec, err := New(up, &markEnricher{}).Resolve(context.Background(), addr)
	require.NoError(t, err)

	assert.Equal(t, explorer.KindWallet, rec.Kind)
	assert.True(t, rec.IsContract)
	assert.Equal(t, SourceV2Address, rec.Source)
	assert.Equal(t, int32(2), up.tokenCalls.Load(), "exactly one retry")
}

func TestResolve_LegacyToken(t *testing.T) {
	up := &fakeUpstream{
		balance: ptr("0"),
		abi:     ptr(erc20ABI),
		meta:    &explorer.SourceMeta{ContractName: "HexToken", Symbol: "HEX"},
	}
	enr := &markEnricher{}
	rec, err := New(up, enr).Resolve(context.Background(), addr)
	require.NoError(t, err)

	assert.Equal(t, explorer.KindToken, rec.Kind)
	assert.Equal(t, SourceLegacy, rec.Source)
	assert.Equal(t, "HEX", *rec.Token.Symbol)
	assert.Equal(t, "HexToken", *rec.Token.Name)
	assert.Equal(t, explorer.DefaultDecimals, rec.Token.Decimals)
	assert.Equal(t, "0", rec.Token.TotalSupply)
	assert.Nil(t, rec.Token.HoldersCount)
	assert.Equal(t, int32(1), enr.calls.Load())
	assertExactlyOne(t, rec)
}

// tokens need only the ABI: balance and source lookups are both down here
func TestResolve_LegacyTokenWithoutSourceMeta(t *testing.T) {
	up := &fakeUpstream{abi: ptr(erc20ABI)}
	rec, err := New(up, nil).Resolve(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, explorer.KindToken, rec.Kind)
	assert.Nil(t, rec.Token.Symbol)
	assert.Nil(t, rec.Token.Name)
}

func TestResolve_LegacyWallet(t *testing.T) {
	cases := map[string]struct {
		abi        *string
		isContract bool
	}{
		"no abi":          {abi: ptr(""), isContract: false},
		"abi call failed": {abi: nil, isContract: false},
		"not verified":    {abi: ptr(explorer.NotVerifiedSentinel), isContract: false},
		"non-token abi":   {abi: ptr(`[{"name":"swap"}]`), isContract: true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			up := &fakeUpstream{balance: ptr("42"), abi: tc.abi}
			enr := &markEnricher{}
			rec, err := New(up, enr).Resolve(context.Background(), addr)
			require.NoError(t, err)

			assert.Equal(t, explorer.KindWallet, rec.Kind)
			assert.Equal(t, SourceLegacy, rec.Source)
			assert.Equal(t, tc.isContract, rec.IsContract)
			assert.Equal(t, "42", *rec.CoinBalance)
			assert.Nil(t, rec.TransactionsCount)
			assert.Nil(t, rec.IsVerified)
			assert.Zero(t, enr.calls.Load())
			assertExactlyOne(t, rec)
		})
	}
}

func TestResolve_LegacyWalletNeedsBalance(t *testing.T) {
	cases := map[string]*fakeUpstream{
		"balance down, abi not verified": {abi: ptr("")},
		"only source metadata answered":  {meta: &explorer.SourceMeta{}},
		"balance down, non-token abi":    {abi: ptr(`[{"name":"swap"}]`)},
	}
	for name, up := range cases {
		t.Run(name, func(t *testing.T) {
			rec, err := New(up, nil).Resolve(context.Background(), addr)
			assert.Nil(t, rec)
			require.ErrorIs(t, err, ErrAllSourcesFailed)

			var fail *AllSourcesFailedError
			require.ErrorAs(t, err, &fail)
			assert.Contains(t, fail.Details[2], "legacy balance")
		})
	}
}

func TestResolve_AllSourcesFailed(t *testing.T) {
	rec, err := New(&fakeUpstream{}, &markEnricher{}).Resolve(context.Background(), addr)
	assert.Nil(t, rec)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAllSourcesFailed))

	var fail *AllSourcesFailedError
	require.ErrorAs(t, err, &fail)
	assert.Equal(t, addr, fail.Address)
	assert.Len(t, fail.Details, 3)
	assert.Contains(t, fail.Details[0], SourceV2Token)
	assert.Contains(t, fail.Details[2], SourceLegacy)
}

func TestResolve_InvalidAddress(t *testing.T) {
	_, err := New(&fakeUpstream{}, nil).Resolve(context.Background(), "0x1234")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrAllSourcesFailed))
}

func TestResolve_CancelledContextStopsChain(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	up := &fakeUpstream{address: &explorer.V2Address{Hash: addr}}
	_, err := New(up, nil).Resolve(ctx, addr)
	assert.ErrorIs(t, err, ErrAllSourcesFailed)
	assert.Zero(t, up.tokenCalls.Load())
}

func TestStrategiesOrder(t *testing.T) {
	assert.Equal(t, []string{SourceV2Token, SourceV2Address, SourceLegacy}, New(nil, nil).Strategies())
}

package explorer

import (
	"github.com/shopspring/decimal"
)

// Kind tells wallets from token contracts.
type Kind string

const (
	KindWallet Kind = "wallet"
	KindToken  Kind = "token"
)

const (
	DefaultDecimals   = 18
	DefaultTokenType  = "ERC-20"
	DefaultReputation = "ok"
)

// ---- Canonical record ----
// Optional fields are pointers without omitempty so consumers always see
// the key, with null when the upstream said nothing.

type Record struct {
	Kind              Kind       `json:"kind"`
	Hash              string     `json:"hash"`
	IsContract        bool       `json:"isContract"`
	CoinBalance       *string    `json:"coinBalance"` // wei, wallets only
	TransactionsCount *int64     `json:"transactionsCount"`
	Token             *TokenInfo `json:"token"`
	IsVerified        *bool      `json:"isVerified"`
	Reputation        string     `json:"reputation"`
	Source            string     `json:"source"` // strategy that produced the record
}

type TokenInfo struct {
	Symbol       *string     `json:"symbol"`
	Name         *string     `json:"name"`
	AddressHash  string      `json:"addressHash"`
	Decimals     int         `json:"decimals"`
	HoldersCount *int64      `json:"holdersCount"`
	TotalSupply  string      `json:"totalSupply"`
	Type         string      `json:"type"`
	IconURL      *string     `json:"iconUrl"`
	ExchangeRate *string     `json:"exchangeRate"`
	Market       *MarketInfo `json:"market"`
}

type MarketInfo struct {
	PriceUSD     decimal.NullDecimal `json:"priceUsd"`
	LiquidityUSD decimal.NullDecimal `json:"liquidityUsd"`
	FDVUSD       decimal.NullDecimal `json:"fdvUsd"`
	MarketCapUSD decimal.NullDecimal `json:"marketCapUsd"`
	PairURL      string              `json:"pairUrl"`
	Dex          string              `json:"dex"`
	ChainID      string              `json:"chainId"`
	PairAddress  string              `json:"pairAddress"`
	BaseSymbol   string              `json:"baseSymbol"`
	BaseName     string              `json:"baseName"`
}

// IsToken reports whether the record carries token data.
func (r *Record) IsToken() bool {
	return r != nil && r.Kind == KindToken && r.Token != nil
}

// SourceMeta is the subset of legacy getsourcecode output used for naming tokens.
type SourceMeta struct {
	ContractName string
	Symbol       string
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func int64Ptr(v int64) *int64 { return &v }

func boolPtr(v bool) *bool { return &v }

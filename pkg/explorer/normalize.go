package explorer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Payload is one of the upstream shapes we know how to turn into a Record:
// *V2Token, *V2Address, *LegacyWallet or *LegacyToken.
type Payload interface {
	Normalize() *Record
}

// ── v2 token ────────────────────────────────────────────────

type V2Token struct {
	Address      string
	Symbol       *string
	Name         *string
	Decimals     *int
	Holders      *int64
	TotalSupply  string
	Type         string
	IconURL      *string
	ExchangeRate *string
}

var tokenKeys = []string{"symbol", "name", "decimals", "total_supply", "type", "holders", "holders_count"}

// ParseV2Token reads a /tokens/{addr} document. The token fields may sit under a
// "token" key or at the top level.
func ParseV2Token(body []byte, addr string) (*V2Token, error) {
	obj, err := object(body)
	if err != nil {
		return nil, err
	}
	if nested, err := object(obj["token"]); err == nil && len(nested) > 0 {
		obj = nested
	}
	if !hasAny(obj, tokenKeys...) {
		return nil, fmt.Errorf("not a token document")
	}
	t := &V2Token{
		Address:      firstNonEmpty(rawString(obj["address_hash"]), rawString(obj["address"]), addr),
		Symbol:       strPtr(rawString(obj["symbol"])),
		Name:         strPtr(rawString(obj["name"])),
		TotalSupply:  rawString(obj["total_supply"]),
		Type:         rawString(obj["type"]),
		IconURL:      strPtr(rawString(obj["icon_url"])),
		ExchangeRate: strPtr(rawString(obj["exchange_rate"])),
		Holders:      rawInt64(obj["holders_count"]),
	}
	if t.Holders == nil {
		t.Holders = rawInt64(obj["holders"])
	}
	if d := rawInt64(obj["decimals"]); d != nil {
		v := int(*d)
		t.Decimals = &v
	}
	return t, nil
}

func (t *V2Token) Normalize() *Record {
	info := &TokenInfo{
		Symbol:       t.Symbol,
		Name:         t.Name,
		AddressHash:  strings.ToLower(t.Address),
		Decimals:     DefaultDecimals,
		HoldersCount: t.Holders,
		TotalSupply:  orDefault(t.TotalSupply, "0"),
		Type:         orDefault(t.Type, DefaultTokenType),
		IconURL:      t.IconURL,
		ExchangeRate: t.ExchangeRate,
	}
	if t.Decimals != nil {
		info.Decimals = *t.Decimals
	}
	return &Record{
		Kind:       KindToken,
		Hash:       info.AddressHash,
		IsContract: true,
		Token:      info,
		Reputation: DefaultReputation,
	}
}

// ── v2 address ──────────────────────────────────────────────

type V2Address struct {
	Hash        string
	CoinBalance string
	TxCount     *int64
	IsContract  *bool
	IsVerified  *bool
	Reputation  string
	HasToken    bool // the explorer embedded a token object
}

// ParseV2Address reads an /addresses/{addr} document.
func ParseV2Address(body []byte, addr string) (*V2Address, error) {
	obj, err := object(body)
	if err != nil {
		return nil, err
	}
	if !hasAny(obj, "hash", "coin_balance", "is_contract") {
		return nil, fmt.Errorf("not an address document")
	}
	a := &V2Address{
		Hash:        firstNonEmpty(rawString(obj["hash"]), addr),
		CoinBalance: rawString(obj["coin_balance"]),
		IsContract:  rawBool(obj["is_contract"]),
		IsVerified:  rawBool(obj["is_verified"]),
		Reputation:  rawString(obj["reputation"]),
	}
	for _, k := range []string{"transactions_count", "transaction_count", "tx_count"} {
		if v := rawInt64(obj[k]); v != nil {
			a.TxCount = v
			break
		}
	}
	if tok, err := object(obj["token"]); err == nil && len(tok) > 0 {
		a.HasToken = true
	}
	return a, nil
}

// Contract reports whether the explorer considers the address a contract.
func (a *V2Address) Contract() bool {
	return (a.IsContract != nil && *a.IsContract) || a.HasToken
}

func (a *V2Address) Normalize() *Record {
	return &Record{
		Kind:              KindWallet,
		Hash:              strings.ToLower(a.Hash),
		IsContract:        a.Contract(),
		CoinBalance:       strPtrDefault(a.CoinBalance, "0"),
		TransactionsCount: int64Ptr(derefInt64(a.TxCount)),
		IsVerified:        boolPtr(a.IsVerified != nil && *a.IsVerified),
		Reputation:        orDefault(a.Reputation, DefaultReputation),
	}
}

// ── legacy fallbacks ────────────────────────────────────────

type LegacyWallet struct {
	Address    string
	Balance    string
	IsContract bool
}

// Normalize leaves transaction count and verification unknown: the legacy
// balance call says nothing about either.
func (w *LegacyWallet) Normalize() *Record {
	return &Record{
		Kind:        KindWallet,
		Hash:        strings.ToLower(w.Address),
		IsContract:  w.IsContract,
		CoinBalance: strPtrDefault(w.Balance, "0"),
		Reputation:  DefaultReputation,
	}
}

type LegacyToken struct {
	Address string
	Name    string
	Symbol  string
}

func (t *LegacyToken) Normalize() *Record {
	addr := strings.ToLower(t.Address)
	return &Record{
		Kind:       KindToken,
		Hash:       addr,
		IsContract: true,
		Token: &TokenInfo{
			Symbol:      strPtr(t.Symbol),
			Name:        strPtr(t.Name),
			AddressHash: addr,
			Decimals:    DefaultDecimals,
			TotalSupply: "0",
			Type:        DefaultTokenType,
		},
		Reputation: DefaultReputation,
	}
}

// ── raw JSON helpers ────────────────────────────────────────

func object(raw json.RawMessage) (map[string]json.RawMessage, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty body")
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("not a JSON object: %w", err)
	}
	if obj == nil {
		return nil, fmt.Errorf("null body")
	}
	return obj, nil
}

func hasAny(obj map[string]json.RawMessage, keys ...string) bool {
	for _, k := range keys {
		if v, ok := obj[k]; ok && string(v) != "null" {
			return true
		}
	}
	return false
}

// rawInt64 accepts both 123 and "123".
func rawInt64(raw json.RawMessage) *int64 {
	s := rawString(raw)
	if s == "" {
		return nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return &v
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		v := int64(f)
		return &v
	}
	return nil
}

func rawBool(raw json.RawMessage) *bool {
	var b bool
	if len(raw) == 0 || string(raw) == "null" || json.Unmarshal(raw, &b) != nil {
		return nil
	}
	return &b
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func strPtrDefault(s, def string) *string {
	v := orDefault(s, def)
	return &v
}

func derefInt64(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

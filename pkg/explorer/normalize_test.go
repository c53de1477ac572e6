package explorer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const addrA = "0xa1077a294dde1b09bb078844df40758a5d0f9a27"

func TestParseV2Token_Flat(t *testing.T) {
	body := []byte(`{"address":"0xA1077A294DDE1B09BB078844DF40758A5D0F9A27","symbol":"WPLS","name":"Wrapped Pulse",
		"decimals":"18","holders":"1234","total_supply":"1000000","type":"ERC-20","icon_url":"https://x/icon.png","exchange_rate":"0.00005"}`)
	tok, err := ParseV2Token(body, addrA)
	require.NoError(t, err)

	rec := tok.Normalize()
	assert.Equal(t, KindToken, rec.Kind)
	assert.Equal(t, addrA, rec.Hash)
	assert.True(t, rec.IsContract)
	assert.Nil(t, rec.CoinBalance)
	require.NotNil(t, rec.Token)
	assert.Equal(t, "WPLS", *rec.Token.Symbol)
	assert.Equal(t, "Wrapped Pulse", *rec.Token.Name)
	assert.Equal(t, 18, rec.Token.Decimals)
	assert.Equal(t, int64(1234), *rec.Token.HoldersCount)
	assert.Equal(t, "1000000", rec.Token.TotalSupply)
	assert.Equal(t, "https://x/icon.png", *rec.Token.IconURL)
	assert.Equal(t, "0.00005", *rec.Token.ExchangeRate)
	assert.Equal(t, DefaultReputation, rec.Reputation)
}

func TestParseV2Token_NestedAndDefaults(t *testing.T) {
	body := []byte(`{"token":{"address_hash":"` + addrA + `","symbol":"HEX","decimals":8}}`)
	tok, err := ParseV2Token(body, addrA)
	require.NoError(t, err)

	rec := tok.Normalize()
	require.NotNil(t, rec.Token)
	assert.Equal(t, "HEX", *rec.Token.Symbol)
	assert.Nil(t, rec.Token.Name)
	assert.Equal(t, 8, rec.Token.Decimals)
	assert.Nil(t, rec.Token.HoldersCount)
	assert.Equal(t, "0", rec.Token.TotalSupply)
	assert.Equal(t, DefaultTokenType, rec.Token.Type)
}

func TestParseV2Token_DefaultDecimals(t *testing.T) {
	tok, err := ParseV2Token([]byte(`{"name":"No Decimals"}`), addrA)
	require.NoError(t, err)
	assert.Equal(t, DefaultDecimals, tok.Normalize().Token.Decimals)
}

func TestParseV2Token_Rejects(t *testing.T) {
	for _, body := range []string{`{"message":"Not found"}`, `[]`, `null`, `"x"`, ``} {
		_, err := ParseV2Token([]byte(body), addrA)
		assert.Error(t, err, body)
	}
}

func TestParseV2Address(t *testing.T) {
	body := []byte(`{"hash":"0xA1077A294DDE1B09BB078844DF40758A5D0F9A27","coin_balance":"5000000000000000000",
		"is_contract":false,"is_verified":null,"reputation":"scam","token":null}`)
	a, err := ParseV2Address(body, addrA)
	require.NoError(t, err)
	assert.False(t, a.Contract())

	rec := a.Normalize()
	assert.Equal(t, KindWallet, rec.Kind)
	assert.Equal(t, addrA, rec.Hash)
	assert.Equal(t, "5000000000000000000", *rec.CoinBalance)
	assert.Equal(t, int64(0), *rec.TransactionsCount)
	assert.False(t, *rec.IsVerified)
	assert.Equal(t, "scam", rec.Reputation)
	assert.Nil(t, rec.Token)
}

func TestParseV2Address_Defaults(t *testing.T) {
	a, err := ParseV2Address([]byte(`{"hash":"`+addrA+`","transactions_count":"42"}`), addrA)
	require.NoError(t, err)

	rec := a.Normalize()
	assert.Equal(t, "0", *rec.CoinBalance)
	assert.Equal(t, int64(42), *rec.TransactionsCount)
	assert.False(t, rec.IsContract)
	assert.Equal(t, DefaultReputation, rec.Reputation)
}

func TestParseV2Address_EmbeddedTokenMeansContract(t *testing.T) {
	a, err := ParseV2Address([]byte(`{"hash":"`+addrA+`","is_contract":false,"token":{"symbol":"X"}}`), addrA)
	require.NoError(t, err)
	assert.True(t, a.Contract())
	assert.True(t, a.Normalize().IsContract)
}

func TestLegacyWalletNormalize(t *testing.T) {
	rec := (&LegacyWallet{Address: "0xA1077A294DDE1B09BB078844DF40758A5D0F9A27", Balance: "", IsContract: true}).Normalize()
	assert.Equal(t, KindWallet, rec.Kind)
	assert.Equal(t, addrA, rec.Hash)
	assert.True(t, rec.IsContract)
	assert.Equal(t, "0", *rec.CoinBalance)
	assert.Nil(t, rec.TransactionsCount)
	assert.Nil(t, rec.IsVerified)
	assert.Nil(t, rec.Token)
}

func TestLegacyTokenNormalize(t *testing.T) {
	rec := (&LegacyToken{Address: addrA, Name: "Wrapped Pulse"}).Normalize()
	assert.Equal(t, KindToken, rec.Kind)
	assert.Nil(t, rec.CoinBalance)
	require.NotNil(t, rec.Token)
	assert.Equal(t, "Wrapped Pulse", *rec.Token.Name)
	assert.Nil(t, rec.Token.Symbol)
	assert.Nil(t, rec.Token.HoldersCount)
	assert.Equal(t, DefaultDecimals, rec.Token.Decimals)
	assert.Equal(t, "0", rec.Token.TotalSupply)
}

// Optional fields must serialize as explicit nulls so the front-end sees a stable shape.
func TestRecordJSONKeepsNullKeys(t *testing.T) {
	rec := (&LegacyToken{Address: addrA}).Normalize()
	b, err := json.Marshal(rec)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	for _, k := range []string{"coinBalance", "transactionsCount", "isVerified", "token"} {
		assert.Contains(t, m, k)
	}
	assert.Nil(t, m["coinBalance"])

	tok := m["token"].(map[string]any)
	for _, k := range []string{"symbol", "name", "holdersCount", "iconUrl", "market"} {
		assert.Contains(t, tok, k)
		assert.Nil(t, tok[k])
	}
}

func TestPayloadVariants(t *testing.T) {
	payloads := []Payload{
		&V2Token{Address: addrA},
		&V2Address{Hash: addrA},
		&LegacyWallet{Address: addrA},
		&LegacyToken{Address: addrA},
	}
	for _, p := range payloads {
		rec := p.Normalize()
		// exactly one of wallet balance / token info is populated
		assert.NotEqual(t, rec.CoinBalance != nil, rec.Token != nil)
	}
}

package explorer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/api/v2", srv.URL+"/api", 2*time.Second)
}

func TestFetchJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte(` {"a":1} `))
		case "/html":
			w.Write([]byte(`<html>maintenance</html>`))
		case "/404":
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"Not found"}`))
		}
	})
	base := c.primary[:len(c.primary)-len("/api/v2")]

	r := c.FetchJSON(context.Background(), base+"/ok")
	assert.True(t, r.OK)
	assert.Equal(t, 200, r.Status)
	assert.JSONEq(t, `{"a":1}`, string(r.Body))

	r = c.FetchJSON(context.Background(), base+"/html")
	assert.False(t, r.OK)
	assert.Nil(t, r.Body)
	assert.Equal(t, "<html>maintenance</html>", r.Raw)

	r = c.FetchJSON(context.Background(), base+"/404")
	assert.False(t, r.OK)
	assert.Equal(t, 404, r.Status)
	assert.Nil(t, r.Body)
}

func TestFetchJSON_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(url, url, time.Second)
	r := c.FetchJSON(context.Background(), url+"/x")
	assert.False(t, r.OK)
	assert.Zero(t, r.Status)
	assert.Error(t, r.Err)
}

func TestFetchJSON_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(srv.URL, srv.URL, 50*time.Millisecond)
	start := time.Now()
	r := c.FetchJSON(context.Background(), srv.URL+"/slow")
	assert.False(t, r.OK)
	assert.Less(t, time.Since(start), time.Second)
}

func TestTokenV2AndAddressV2(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/tokens/" + addrA:
			w.Write([]byte(`{"symbol":"WPLS","decimals":"18"}`))
		case "/api/v2/addresses/" + addrA:
			w.Write([]byte(`{"hash":"` + addrA + `","coin_balance":"7","is_contract":true}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	tok, err := c.TokenV2(ctx, addrA)
	require.NoError(t, err)
	assert.Equal(t, "WPLS", *tok.Symbol)

	a, err := c.AddressV2(ctx, addrA)
	require.NoError(t, err)
	assert.True(t, a.Contract())
	assert.Equal(t, "7", a.CoinBalance)

	_, err = c.TokenV2(ctx, "0x0000000000000000000000000000000000000001")
	assert.True(t, errors.Is(err, ErrSourceUnavailable))
}

func TestLegacyCalls(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api", r.URL.Path)
		q := r.URL.Query()
		switch q.Get("action") {
		case "balance":
			w.Write([]byte(`{"status":"1","message":"OK","result":"123456"}`))
		case "getabi":
			if q.Get("address") == addrA {
				w.Write([]byte(`{"status":"1","message":"OK","result":"[{\"name\":\"totalSupply\"}]"}`))
				return
			}
			w.Write([]byte(`{"status":"0","message":"Contract source code not verified","result":null}`))
		case "getsourcecode":
			w.Write([]byte(`{"status":"1","message":"OK","result":[{"ContractName":"WPLS","ABI":"[]"}]}`))
		}
	})
	ctx := context.Background()

	bal, err := c.LegacyBalance(ctx, addrA)
	require.NoError(t, err)
	assert.Equal(t, "123456", bal)

	abi, err := c.LegacyABI(ctx, addrA)
	require.NoError(t, err)
	assert.Equal(t, `[{"name":"totalSupply"}]`, abi)

	abi, err = c.LegacyABI(ctx, "0x0000000000000000000000000000000000000002")
	require.NoError(t, err, "not verified is a usable negative")
	assert.Empty(t, abi)

	meta, err := c.LegacySource(ctx, addrA)
	require.NoError(t, err)
	assert.Equal(t, "WPLS", meta.ContractName)
	assert.Empty(t, meta.Symbol)
}

func TestLegacyCalls_Errors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("action") {
		case "balance":
			w.Write([]byte(`{"status":"0","message":"Invalid address","result":null}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	})
	ctx := context.Background()

	_, err := c.LegacyBalance(ctx, addrA)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	_, err = c.LegacyABI(ctx, addrA)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	_, err = c.LegacySource(ctx, addrA)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestRawAddress(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Not found"}`))
	})
	resp, src := c.RawAddress(context.Background(), addrA)
	assert.Equal(t, 404, resp.Status)
	assert.Equal(t, `{"message":"Not found"}`, resp.Raw)
	assert.Contains(t, src, "/api/v2/addresses/"+addrA)
}

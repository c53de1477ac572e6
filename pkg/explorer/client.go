package explorer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/orion-peep/pkg/metrics"
)

// ErrSourceUnavailable marks a single upstream call that failed, timed out or
// answered with something unusable. Callers advance to the next source.
var ErrSourceUnavailable = errors.New("source unavailable")

// NotVerifiedSentinel is what the legacy getabi action returns for addresses
// without verified contract code.
const NotVerifiedSentinel = "Contract source code not verified"

// Response is the outcome of FetchJSON. Body is nil unless OK.
type Response struct {
	OK     bool
	Status int
	Body   json.RawMessage
	Raw    string
	Err    error
}

type Client struct {
	primary string
	legacy  string
	client  *http.Client
}

func NewClient(primaryBase, legacyBase string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &Client{
		primary: strings.TrimRight(primaryBase, "/"),
		legacy:  strings.TrimRight(legacyBase, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// PrimaryBase returns the v2 API base URL.
func (c *Client) PrimaryBase() string { return c.primary }

// FetchJSON GETs url and parses the body as JSON. It never returns an error:
// network failures, non-2xx statuses and non-JSON bodies all come back as OK=false.
func (c *Client) FetchJSON(ctx context.Context, rawURL string) Response {
	endpoint := "other"
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		endpoint = u.Host
	}
	return c.fetch(ctx, endpoint, rawURL)
}

func (c *Client) fetch(ctx context.Context, endpoint, rawURL string) Response {
	start := time.Now()
	resp := c.do(ctx, rawURL)

	outcome := "ok"
	if !resp.OK {
		outcome = "unavailable"
	}
	metrics.RecordUpstream(endpoint, outcome, time.Since(start).Seconds())
	log.Debug().Str("endpoint", endpoint).Str("url", rawURL).Int("status", resp.Status).
		Bool("ok", resp.OK).Dur("took", time.Since(start)).Err(resp.Err).Msg("upstream")
	return resp
}

func (c *Client) do(ctx context.Context, rawURL string) Response {
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return Response{Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Response{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20)) // 10MB max
	if err != nil {
		return Response{Status: resp.StatusCode, Err: err}
	}
	out := Response{Status: resp.StatusCode, Raw: string(body)}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		out.Err = fmt.Errorf("HTTP %d", resp.StatusCode)
		return out
	}
	trimmed := bytes.TrimSpace(body)
	if !json.Valid(trimmed) {
		out.Err = fmt.Errorf("non-JSON body")
		return out
	}
	out.OK = true
	out.Body = json.RawMessage(trimmed)
	return out
}

func unavailable(what string, r Response) error {
	if r.Err != nil {
		return fmt.Errorf("%s: %w: %v", what, ErrSourceUnavailable, r.Err)
	}
	return fmt.Errorf("%s: %w", what, ErrSourceUnavailable)
}

// ── Primary (v2) API ────────────────────────────────────────

// TokenV2 fetches /tokens/{addr}. Anything that is not a token document is unavailable.
func (c *Client) TokenV2(ctx context.Context, addr string) (*V2Token, error) {
	r := c.fetch(ctx, "v2_token", fmt.Sprintf("%s/tokens/%s", c.primary, addr))
	if !r.OK {
		return nil, unavailable("v2 token", r)
	}
	tok, err := ParseV2Token(r.Body, addr)
	if err != nil {
		return nil, fmt.Errorf("v2 token: %w: %v", ErrSourceUnavailable, err)
	}
	return tok, nil
}

// AddressV2 fetches /addresses/{addr}.
func (c *Client) AddressV2(ctx context.Context, addr string) (*V2Address, error) {
	r := c.fetch(ctx, "v2_address", fmt.Sprintf("%s/addresses/%s", c.primary, addr))
	if !r.OK {
		return nil, unavailable("v2 address", r)
	}
	a, err := ParseV2Address(r.Body, addr)
	if err != nil {
		return nil, fmt.Errorf("v2 address: %w: %v", ErrSourceUnavailable, err)
	}
	return a, nil
}

// RawAddress proxies the v2 address document untouched, trying the trailing-slash
// variant when the first form cannot be reached.
func (c *Client) RawAddress(ctx context.Context, addr string) (Response, string) {
	var last Response
	for _, u := range []string{
		fmt.Sprintf("%s/addresses/%s", c.primary, addr),
		fmt.Sprintf("%s/addresses/%s/", c.primary, addr),
	} {
		last = c.fetch(ctx, "v2_raw", u)
		if last.Status != 0 {
			return last, u
		}
	}
	return last, ""
}

// ── Legacy (etherscan-compatible) API ───────────────────────

type legacyEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func (c *Client) legacyCall(ctx context.Context, endpoint string, q url.Values) (*legacyEnvelope, error) {
	r := c.fetch(ctx, endpoint, c.legacy+"?"+q.Encode())
	if !r.OK {
		return nil, unavailable(endpoint, r)
	}
	var env legacyEnvelope
	if err := json.Unmarshal(r.Body, &env); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", endpoint, ErrSourceUnavailable, err)
	}
	return &env, nil
}

// LegacyBalance returns the native coin balance in wei.
func (c *Client) LegacyBalance(ctx context.Context, addr string) (string, error) {
	env, err := c.legacyCall(ctx, "legacy_balance", url.Values{
		"module": {"account"}, "action": {"balance"}, "address": {addr},
	})
	if err != nil {
		return "", err
	}
	if env.Status != "1" {
		return "", fmt.Errorf("legacy balance: %w: status %s %s", ErrSourceUnavailable, env.Status, env.Message)
	}
	bal := rawString(env.Result)
	if bal == "" {
		bal = "0"
	}
	return bal, nil
}

// LegacyABI returns the verified ABI text, or "" when the explorer answers
// with the not-verified sentinel (a usable negative, not a failure).
func (c *Client) LegacyABI(ctx context.Context, addr string) (string, error) {
	env, err := c.legacyCall(ctx, "legacy_abi", url.Values{
		"module": {"contract"}, "action": {"getabi"}, "address": {addr},
	})
	if err != nil {
		return "", err
	}
	abi := rawString(env.Result)
	if env.Status == "1" && abi != NotVerifiedSentinel {
		return abi, nil
	}
	if abi == NotVerifiedSentinel || strings.Contains(env.Message, "not verified") {
		return "", nil
	}
	return "", fmt.Errorf("legacy abi: %w: status %s %s", ErrSourceUnavailable, env.Status, env.Message)
}

// LegacySource returns naming metadata from getsourcecode.
func (c *Client) LegacySource(ctx context.Context, addr string) (*SourceMeta, error) {
	env, err := c.legacyCall(ctx, "legacy_source", url.Values{
		"module": {"contract"}, "action": {"getsourcecode"}, "address": {addr},
	})
	if err != nil {
		return nil, err
	}
	if env.Status != "1" {
		return nil, fmt.Errorf("legacy source: %w: status %s %s", ErrSourceUnavailable, env.Status, env.Message)
	}
	var entries []map[string]any
	if json.Unmarshal(env.Result, &entries) != nil || len(entries) == 0 {
		return &SourceMeta{}, nil
	}
	e := entries[0]
	return &SourceMeta{
		ContractName: str(e, "ContractName"),
		Symbol:       firstNonEmpty(str(e, "Symbol"), str(e, "TokenSymbol")),
	}, nil
}

// rawString decodes a JSON string, or returns the literal text for other scalars.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}

func str(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return strings.TrimSpace(v)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

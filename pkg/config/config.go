package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// HTTP
	Port      int
	PublicDir string

	// Explorer (Blockscout v2 + etherscan-compatible legacy API)
	ExplorerBase       string
	ExplorerLegacyBase string
	UpstreamTimeout    time.Duration

	// Pair aggregator
	DexScreenerAPI      string
	MarketChainID       string
	NativeWrappedSymbol string

	// Price oracle
	FixedPriceUSD    float64 // <= 0 means unset
	FallbackPriceUSD float64
	PriceTTL         time.Duration
	PriceWarm        bool

	// Analytics
	DBPath  string
	FeedCap int

	// Logging
	LogLevel string
	LogJSON  bool
}

const (
	DefaultExplorerBase       = "https://scan.pulsechain.com/api/v2"
	DefaultExplorerLegacyBase = "https://scan.pulsechain.com/api"
	DefaultDexScreenerAPI     = "https://api.dexscreener.com"
)

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:      envInt("PORT", 3000),
		PublicDir: envOr("PUBLIC_DIR", "public"),

		ExplorerBase:       strings.TrimRight(envOr("EXPLORER_BASE", DefaultExplorerBase), "/"),
		ExplorerLegacyBase: strings.TrimRight(envOr("EXPLORER_LEGACY_BASE", DefaultExplorerLegacyBase), "/"),
		UpstreamTimeout:    time.Duration(envInt("UPSTREAM_TIMEOUT", 12)) * time.Second,

		DexScreenerAPI:      strings.TrimRight(envOr("DEXSCREENER_API", DefaultDexScreenerAPI), "/"),
		MarketChainID:       envOr("MARKET_CHAIN_ID", "pulsechain"),
		NativeWrappedSymbol: envOr("NATIVE_WRAPPED_SYMBOL", "WPLS"),

		FixedPriceUSD:    envFloat("FIXED_PRICE_USD", 0),
		FallbackPriceUSD: envFloat("FALLBACK_PRICE_USD", 0.00005),
		PriceTTL:         60 * time.Second,
		PriceWarm:        envBool("PRICE_WARM", true),

		DBPath:  envOr("DB_PATH", "db.json"),
		FeedCap: envInt("FEED_CAP", 200),

		LogLevel: envOr("LOG_LEVEL", "info"),
		LogJSON:  envBool("LOG_JSON", false),
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	for name, raw := range map[string]string{
		"EXPLORER_BASE":        c.ExplorerBase,
		"EXPLORER_LEGACY_BASE": c.ExplorerLegacyBase,
		"DEXSCREENER_API":      c.DexScreenerAPI,
	} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%s must be an http(s) URL, got %q", name, raw)
		}
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive")
	}
	if c.FeedCap <= 0 {
		return fmt.Errorf("FEED_CAP must be positive")
	}
	return nil
}

// helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

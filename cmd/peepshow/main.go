package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/orion-peep/pkg/analytics"
	"github.com/orion-peep/pkg/config"
	"github.com/orion-peep/pkg/dashboard"
	"github.com/orion-peep/pkg/explorer"
	"github.com/orion-peep/pkg/market"
	"github.com/orion-peep/pkg/resolver"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config load failed:", err)
		os.Exit(1)
	}
	flag.IntVar(&cfg.Port, "port", cfg.Port, "listen port")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "analytics document (.json file or .db sqlite)")
	flag.Parse()

	setupLogging(cfg)
	log.Info().Msg("🔭 Orion Peep Show starting...")

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	backend, err := analytics.OpenBackend(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("analytics backend init failed")
	}
	store := analytics.Open(backend, analytics.WithFeedCap(cfg.FeedCap))
	defer store.Close()

	up := explorer.NewClient(cfg.ExplorerBase, cfg.ExplorerLegacyBase, cfg.UpstreamTimeout)
	pairs := market.NewClient(up, cfg.DexScreenerAPI, cfg.MarketChainID)
	oracle := market.NewOracle(pairs, market.OracleOptions{
		WrappedSymbol: cfg.NativeWrappedSymbol,
		FixedUSD:      cfg.FixedPriceUSD,
		FallbackUSD:   cfg.FallbackPriceUSD,
		TTL:           cfg.PriceTTL,
	})
	res := resolver.New(up, pairs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() { <-sigCh; log.Info().Msg("shutting down..."); cancel() }()

	if cfg.PriceWarm && cfg.FixedPriceUSD <= 0 {
		warmer, err := market.StartWarmer(ctx, oracle, "@every 1m")
		if err != nil {
			log.Error().Err(err).Msg("price warmer disabled")
		} else {
			defer warmer.Stop()
		}
	}

	dash := dashboard.New(dashboard.Deps{
		Resolver:  res,
		Raw:       up,
		Price:     oracle,
		Store:     store,
		PublicDir: cfg.PublicDir,
		Port:      cfg.Port,
	})

	printSummary(cfg, res)
	if err := dash.Run(ctx); err != nil {
		log.Error().Err(err).Msg("server error")
	}
	log.Info().Msg("goodbye 👋")
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.LogJSON {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).With().Timestamp().Logger()
}

func printSummary(cfg *config.Config, res *resolver.Resolver) {
	backend := "json file"
	if analytics.IsSQLitePath(cfg.DBPath) {
		backend = "sqlite"
	}
	price := "live (DexScreener " + cfg.NativeWrappedSymbol + ")"
	if cfg.FixedPriceUSD > 0 {
		price = fmt.Sprintf("fixed $%g", cfg.FixedPriceUSD)
	}
	fmt.Println("\n" + strings.Repeat("═", 60))
	fmt.Println("  🔭 ORION PEEP SHOW - RUNNING")
	fmt.Println(strings.Repeat("═", 60))
	fmt.Printf("  Explorer:  %s\n", cfg.ExplorerBase)
	fmt.Printf("  Legacy:    %s\n", cfg.ExplorerLegacyBase)
	fmt.Printf("  Sources:   %s\n", strings.Join(res.Strategies(), " → "))
	fmt.Printf("  Price:     %s\n", price)
	fmt.Printf("  Analytics: %s (%s)\n", cfg.DBPath, backend)
	fmt.Printf("  Listening: http://localhost:%d\n", cfg.Port)
	fmt.Println(strings.Repeat("═", 60) + "\n")
}

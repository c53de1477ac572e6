// Command peek resolves one or more addresses from the terminal using the same
// pipeline as the server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/orion-peep/pkg/config"
	"github.com/orion-peep/pkg/explorer"
	"github.com/orion-peep/pkg/market"
	"github.com/orion-peep/pkg/resolver"
)

func main() {
	asJSON := flag.Bool("json", false, "print records as JSON")
	noMarket := flag.Bool("no-market", false, "skip DexScreener enrichment")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: peek [-json] [-no-market] [-v] <address>...\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).Level(level).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	up := explorer.NewClient(cfg.ExplorerBase, cfg.ExplorerLegacyBase, cfg.UpstreamTimeout)
	pairs := market.NewClient(up, cfg.DexScreenerAPI, cfg.MarketChainID)
	var res *resolver.Resolver
	if *noMarket {
		res = resolver.New(up, nil)
	} else {
		res = resolver.New(up, pairs)
	}
	oracle := market.NewOracle(pairs, market.OracleOptions{
		WrappedSymbol: cfg.NativeWrappedSymbol,
		FixedUSD:      cfg.FixedPriceUSD,
		FallbackUSD:   cfg.FallbackPriceUSD,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var records []*explorer.Record
	failed := 0
	for _, arg := range flag.Args() {
		rec, err := res.Resolve(ctx, arg)
		if err != nil {
			color.Red("✗ %s: %v", arg, err)
			failed++
			continue
		}
		records = append(records, rec)
	}

	if *asJSON {
		if err := writeRecords(os.Stdout, records); err != nil {
			color.Red("✗ write json: %v", err)
			os.Exit(1)
		}
	} else if len(records) > 0 {
		render(records, oracle.NativePriceUSD(ctx))
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func writeRecords(w io.Writer, records []*explorer.Record) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func render(records []*explorer.Record, q market.Quote) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Address", "Kind", "Source", "Symbol", "Balance / Supply", "USD", "Liquidity", "Txs / Holders"})
	table.SetAutoWrapText(false)

	native := decimal.NewFromFloat(q.USD)
	for _, r := range records {
		kind := color.GreenString("wallet")
		if r.IsToken() {
			kind = color.CyanString("token")
		}
		row := []string{explorer.Abbrev(r.Hash), kind, r.Source, "", "", "", "", ""}
		if r.IsToken() {
			t := r.Token
			row[3] = deref(t.Symbol)
			row[4] = shift(t.TotalSupply, t.Decimals).StringFixed(0)
			if t.Market != nil && t.Market.PriceUSD.Valid {
				row[5] = "$" + t.Market.PriceUSD.Decimal.String()
			}
			if t.Market != nil && t.Market.LiquidityUSD.Valid {
				row[6] = "$" + t.Market.LiquidityUSD.Decimal.StringFixed(0)
			}
			if t.HoldersCount != nil {
				row[7] = strconv.FormatInt(*t.HoldersCount, 10)
			}
		} else {
			pls := shift(deref(r.CoinBalance), explorer.DefaultDecimals)
			row[3] = "PLS"
			row[4] = pls.StringFixed(4)
			row[5] = "$" + pls.Mul(native).StringFixed(2)
			if r.TransactionsCount != nil {
				row[7] = strconv.FormatInt(*r.TransactionsCount, 10)
			}
		}
		table.Append(row)
	}
	table.Render()
	fmt.Printf("PLS/USD %s (%s)\n", color.YellowString("%g", q.USD), q.From)
}

// shift converts a base-unit integer string into whole units.
func shift(v string, decimals int) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero
	}
	return d.Shift(int32(-decimals))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

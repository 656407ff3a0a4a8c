package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"shadow-hedger/internal/app"
	"shadow-hedger/internal/config"
	"shadow-hedger/internal/hedge"
	"shadow-hedger/internal/logging"

	"github.com/shopspring/decimal"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	envPath := flag.String("env", ".env", "optional dotenv file with venue credentials")
	preview := flag.Bool("preview", false, "wait for one depth snapshot and print the quotes the next cycle would place")
	depthWait := flag.Duration("depth-wait", 15*time.Second, "how long -preview waits for a depth snapshot")
	flag.Parse()

	if err := config.LoadEnv(*envPath); err != nil {
		fatal(err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}
	log := logging.New(config.LoggingConfig{Level: "warn"})
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := app.Verify(ctx, cfg, log, app.VerifyOptions{Preview: *preview, DepthWait: *depthWait})
	if err != nil {
		fatal(err)
	}

	fmt.Printf("primary account: %s\n", report.AccountID)
	printAccount("primary", cfg.Primary.Symbol, report.Accounts.Primary)
	printAccount("hedge", cfg.Hedge.Symbol, report.Accounts.Hedge)
	if report.HasSnapshot {
		last := report.LastCycle
		fmt.Printf("last cycle: #%d aborted=%t cursor=%s fills_hedged=%d placed=%d ask=%s bid=%s at=%s\n",
			last.Cycle, last.Aborted, last.FillCursor, last.FillsHedged, last.Placed, last.AskSize, last.BidSize,
			time.UnixMilli(last.UpdatedAtMS).UTC().Format(time.RFC3339))
		if last.AbortReason != "" {
			fmt.Printf("last abort: %s\n", last.AbortReason)
		}
	} else {
		fmt.Println("last cycle: none recorded")
	}
	if !report.Previewed {
		return
	}
	fmt.Printf("preview ask size=%s floored=%t\n", report.Sizing.AskSize, report.Sizing.AskFloored)
	fmt.Printf("preview asks: %s\n", joinPrices(report.Ladder.Asks))
	fmt.Printf("preview bid size=%s floored=%t\n", report.Sizing.BidSize, report.Sizing.BidFloored)
	fmt.Printf("preview bids: %s\n", joinPrices(report.Ladder.Bids))
}

func printAccount(venue, symbol string, account hedge.Account) {
	fmt.Printf("%s %s: base=%s quote=%s taker=%s maker=%s\n",
		venue, symbol,
		account.Balances.Base, account.Balances.Quote,
		account.Fees.Taker, account.Fees.Maker,
	)
}

func joinPrices(prices []decimal.Decimal) string {
	parts := make([]string, 0, len(prices))
	for _, p := range prices {
		parts = append(parts, p.String())
	}
	return strings.Join(parts, " ")
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

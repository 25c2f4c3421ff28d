package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alopezag/stocksim/internal/config"
	"github.com/alopezag/stocksim/internal/domain"
	"github.com/alopezag/stocksim/internal/sim"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up slog logger with configured level.
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("stocksim", slog.String("version", domain.Version))

	simulator := sim.New(logger, cfg.TickInterval, cfg.Seed)

	simulator.AddSymbol("AAPL", 180.00)
	simulator.AddSymbol("MSFT", 410.00)
	simulator.AddSymbol("GOOG", 140.00)

	if _, err := simulator.AddMarketMaker(1_000_000, map[string]int64{
		"AAPL": 250,
		"MSFT": 250,
		"GOOG": 250,
	}); err != nil {
		logger.Error("failed to add market maker", slog.String("error", err.Error()))
		os.Exit(1)
	}

	simulator.AddParticipants(map[string]float64{"momentum_1": cfg.InitialCash})
	simulator.AddStrategy(sim.NewMomentumTrader("momentum_1", []string{"AAPL", "MSFT", "GOOG"}, sim.MomentumConfig{
		Lookback:     10,
		Threshold:    0.0005,
		PositionSize: 100,
	}))

	if err := simulator.Start(); err != nil {
		logger.Error("failed to start simulation", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Run until the configured duration elapses or SIGINT/SIGTERM arrives.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	timer := time.NewTimer(cfg.Duration)
	defer timer.Stop()

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	case <-timer.C:
	}

	simulator.Stop()

	printMarketSummary(simulator, cfg.DepthLevels)
	printPortfolioSummary(simulator)
	printTrades(simulator)
}

func printMarketSummary(simulator *sim.Simulator, depthLevels int) {
	writer := tablewriter.NewWriter(os.Stdout)
	writer.SetHeader([]string{"symbol", "last", "bid", "ask", "mid", "spread", "vwap", "trades"})
	for _, s := range simulator.MarketSummary(depthLevels) {
		writer.Append([]string{
			s.Symbol,
			money(s.LastPrice),
			money(s.Bid),
			money(s.Ask),
			money(s.Mid),
			money(s.Spread),
			money(s.VWAP),
			strconv.Itoa(s.TradesInWindow),
		})
	}
	writer.SetCaption(true, "market")
	writer.Render()
}

func printPortfolioSummary(simulator *sim.Simulator) {
	writer := tablewriter.NewWriter(os.Stdout)
	writer.SetHeader([]string{"participant", "cash", "value", "pnl", "positions"})
	for _, p := range simulator.PortfolioSummary() {
		writer.Append([]string{
			p.ParticipantID,
			money(p.Cash),
			money(p.Value),
			money(p.PnL),
			fmt.Sprintf("%v", p.Positions),
		})
	}
	writer.SetCaption(true, "portfolios")
	writer.Render()
}

func printTrades(simulator *sim.Simulator) {
	trades := simulator.TradeHistory()
	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].ExecutedAt.Before(trades[j].ExecutedAt)
	})
	total := len(trades)
	if total > 20 {
		trades = trades[total-20:]
	}

	writer := tablewriter.NewWriter(os.Stdout)
	writer.SetHeader([]string{"time", "symbol", "qty", "price", "buyer", "seller"})
	for _, t := range trades {
		writer.Append([]string{
			t.ExecutedAt.Format("15:04:05.000"),
			t.Symbol,
			strconv.FormatInt(t.Quantity, 10),
			money(t.Price),
			t.BuyerID,
			t.SellerID,
		})
	}
	writer.SetCaption(true, fmt.Sprintf("last trades (%d total)", total))
	writer.Render()
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

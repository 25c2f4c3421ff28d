package sim

import (
	"testing"

	"github.com/alopezag/stocksim/internal/book"
	"github.com/alopezag/stocksim/internal/domain"
	"github.com/alopezag/stocksim/internal/marketdata"
	"github.com/alopezag/stocksim/internal/portfolio"
)

// newMomentumEnv wires a momentum trader against a liquidity provider whose
// resting orders absorb the strategy's market orders.
func newMomentumEnv(t *testing.T) (*Env, *portfolio.Portfolio) {
	t.Helper()

	ledger := portfolio.New(map[string]float64{"momo": 100000, "lp": 100000})
	if err := ledger.SetInitialPosition("lp", "AAPL", 1000, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	b := book.New("AAPL")
	b.SetPortfolio(ledger)

	market := marketdata.NewEngineWith(marketdata.DefaultInterval, 1)
	market.AddSymbol("AAPL", 100)

	env := &Env{
		Portfolio: ledger,
		Books:     map[string]*book.OrderBook{"AAPL": b},
		Market:    market,
	}

	// Resting asks for the strategy's market buys.
	lp, err := domain.NewOrder("lp", "AAPL", domain.OrderSideSell, 100, domain.OrderTypeLimit, 103)
	if err != nil {
		t.Fatalf("order: %v", err)
	}
	if !b.AddOrder(lp) {
		t.Fatal("liquidity order rejected")
	}
	return env, ledger
}

func TestMomentum_BuysOnUptrend(t *testing.T) {
	env, ledger := newMomentumEnv(t)

	momo := NewMomentumTrader("momo", []string{"AAPL"}, MomentumConfig{
		Lookback:     3,
		Threshold:    0.01,
		PositionSize: 5,
	})
	momo.Initialize(env)

	momo.OnMarketData(tick(100))
	momo.OnMarketData(tick(100.5))

	pos, _ := ledger.Position("momo", "AAPL")
	if pos != 0 {
		t.Fatalf("expected no trade before lookback filled, got position %d", pos)
	}

	// (102 - 100) / 100 = 2% momentum crosses the 1% threshold.
	momo.OnMarketData(tick(102))

	pos, _ = ledger.Position("momo", "AAPL")
	if pos != 5 {
		t.Errorf("expected position 5 after buy signal, got %d", pos)
	}
}

func TestMomentum_DoesNotRepeatSignal(t *testing.T) {
	env, ledger := newMomentumEnv(t)

	momo := NewMomentumTrader("momo", []string{"AAPL"}, MomentumConfig{
		Lookback:     2,
		Threshold:    0.01,
		PositionSize: 5,
	})
	momo.Initialize(env)

	momo.OnMarketData(tick(100))
	momo.OnMarketData(tick(102))
	pos, _ := ledger.Position("momo", "AAPL")
	if pos != 5 {
		t.Fatalf("expected position 5 after first signal, got %d", pos)
	}

	// Still trending up: same signal, no new order.
	momo.OnMarketData(tick(104))
	pos, _ = ledger.Position("momo", "AAPL")
	if pos != 5 {
		t.Errorf("expected repeated signal to be ignored, got position %d", pos)
	}
}

func TestMomentum_SellSignalBeyondHoldingsRejected(t *testing.T) {
	env, ledger := newMomentumEnv(t)

	// Resting bids so a sell would have liquidity.
	bid, err := domain.NewOrder("lp", "AAPL", domain.OrderSideBuy, 100, domain.OrderTypeLimit, 97)
	if err != nil {
		t.Fatalf("order: %v", err)
	}
	if !env.Books["AAPL"].AddOrder(bid) {
		t.Fatal("bid rejected")
	}

	momo := NewMomentumTrader("momo", []string{"AAPL"}, MomentumConfig{
		Lookback:     2,
		Threshold:    0.01,
		PositionSize: 5,
	})
	momo.Initialize(env)

	// Establish a long of 5 on an up move.
	momo.OnMarketData(tick(100))
	momo.OnMarketData(tick(102))
	pos, _ := ledger.Position("momo", "AAPL")
	if pos != 5 {
		t.Fatalf("expected long 5, got %d", pos)
	}

	// Down move: the strategy tries to sell base size plus the long (10),
	// which the no-short check rejects outright with only 5 held. The
	// position is unchanged and the signal resets for a retry.
	momo.OnMarketData(tick(99))
	pos, _ = ledger.Position("momo", "AAPL")
	if pos != 5 {
		t.Errorf("expected position unchanged at 5 after rejected sell, got %d", pos)
	}
}

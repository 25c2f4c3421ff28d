package sim

import (
	"errors"
	"testing"
	"time"

	"github.com/alopezag/stocksim/internal/domain"
)

func newTestSimulator() *Simulator {
	return New(nil, 5*time.Millisecond, 1)
}

func submitLimit(t *testing.T, s *Simulator, participant, symbol string, side domain.OrderSide, qty int64, price float64) *domain.Order {
	t.Helper()
	o, err := domain.NewOrder(participant, symbol, side, qty, domain.OrderTypeLimit, price)
	if err != nil {
		t.Fatalf("order: %v", err)
	}
	if !s.Book(symbol).AddOrder(o) {
		t.Fatalf("order %s rejected", o.ID)
	}
	return o
}

func TestStart_RequiresSymbols(t *testing.T) {
	s := newTestSimulator()
	if err := s.Start(); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestTradeFlow_RecordsHistoryAndSettles(t *testing.T) {
	s := newTestSimulator()
	s.AddSymbol("AAPL", 100)
	s.AddParticipants(map[string]float64{"buyer": 10000, "seller": 10000})
	if err := s.SetInitialPositions("seller", map[string]int64{"AAPL": 10}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	submitLimit(t, s, "seller", "AAPL", domain.OrderSideSell, 10, 99)
	submitLimit(t, s, "buyer", "AAPL", domain.OrderSideBuy, 10, 99)

	trades := s.TradeHistory()
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	if trades[0].Quantity != 10 || trades[0].Price != 99 {
		t.Errorf("expected 10 @ 99, got %d @ %v", trades[0].Quantity, trades[0].Price)
	}

	buyerPos, _ := s.Portfolio().Position("buyer", "AAPL")
	if buyerPos != 10 {
		t.Errorf("expected buyer position 10, got %d", buyerPos)
	}
	// Seller's opening position cost 10 × 100 (the market price at seeding),
	// then the sale brought in 990.
	sellerCash, _ := s.Portfolio().Cash("seller")
	if sellerCash != 10000-1000+990 {
		t.Errorf("expected seller cash 9990, got %v", sellerCash)
	}
}

func TestHandleTick_UpdatesBookReferencePrice(t *testing.T) {
	s := newTestSimulator()
	s.AddSymbol("AAPL", 100)
	s.AddParticipants(map[string]float64{"buyer": 500})
	s.running.Store(true)

	var rejections []string
	s.OnRejection(func(o domain.Order, reason string) {
		rejections = append(rejections, reason)
	})

	s.handleTick(domain.NewMarketData("AAPL", 120, 1000, time.Now()))

	// A market buy with no resting asks validates against the tick's price:
	// 5 × 120 = 600 exceeds the buyer's 500 cash.
	o, err := domain.NewOrder("buyer", "AAPL", domain.OrderSideBuy, 5, domain.OrderTypeMarket, 0)
	if err != nil {
		t.Fatalf("order: %v", err)
	}
	if s.Book("AAPL").AddOrder(o) {
		t.Fatal("expected rejection at updated reference price")
	}
	if len(rejections) != 1 {
		t.Fatalf("expected 1 rejection, got %d", len(rejections))
	}
}

func TestExternalObservers_ReceiveEvents(t *testing.T) {
	s := newTestSimulator()
	s.AddSymbol("AAPL", 100)
	s.AddParticipants(map[string]float64{"a": 10000, "b": 10000})
	if err := s.SetInitialPositions("b", map[string]int64{"AAPL": 10}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var trades []domain.Trade
	s.OnTrade(func(tr domain.Trade) {
		trades = append(trades, tr)
	})

	submitLimit(t, s, "b", "AAPL", domain.OrderSideSell, 5, 100)
	submitLimit(t, s, "a", "AAPL", domain.OrderSideBuy, 5, 100)

	if len(trades) != 1 {
		t.Fatalf("expected 1 observed trade, got %d", len(trades))
	}
}

func TestAddMarketMaker_RegistersFundedParticipant(t *testing.T) {
	s := newTestSimulator()
	s.AddSymbol("AAPL", 100)

	id, err := s.AddMarketMaker(1_000_000, map[string]int64{"AAPL": 200})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "__market_maker_1" {
		t.Errorf("expected __market_maker_1, got %q", id)
	}

	cash, err := s.Portfolio().Cash(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Opening position debits 200 × 100 at the current market price.
	if cash != 1_000_000-20_000 {
		t.Errorf("expected cash 980000, got %v", cash)
	}
	pos, _ := s.Portfolio().Position(id, "AAPL")
	if pos != 200 {
		t.Errorf("expected position 200, got %d", pos)
	}

	summaries := s.PortfolioSummary()
	if len(summaries) != 1 || summaries[0].ParticipantID != id {
		t.Errorf("expected summary for %s, got %+v", id, summaries)
	}
}

func TestMarketSummary_VWAP(t *testing.T) {
	s := newTestSimulator()
	s.AddSymbol("AAPL", 100)
	s.AddParticipants(map[string]float64{"a": 100000, "b": 0})
	if err := s.SetInitialPositions("b", map[string]int64{"AAPL": 30}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	submitLimit(t, s, "b", "AAPL", domain.OrderSideSell, 10, 100)
	submitLimit(t, s, "a", "AAPL", domain.OrderSideBuy, 10, 100)
	submitLimit(t, s, "b", "AAPL", domain.OrderSideSell, 10, 110)
	submitLimit(t, s, "a", "AAPL", domain.OrderSideBuy, 10, 110)

	summaries := s.MarketSummary(5)
	if len(summaries) != 1 {
		t.Fatalf("expected 1 symbol summary, got %d", len(summaries))
	}
	sum := summaries[0]
	if sum.TradesInWindow != 2 {
		t.Errorf("expected 2 trades in window, got %d", sum.TradesInWindow)
	}
	// (10×100 + 10×110) / 20 = 105.
	if sum.VWAP != 105 {
		t.Errorf("expected VWAP 105, got %v", sum.VWAP)
	}
	if sum.LastPrice != 100 {
		t.Errorf("expected last generated price 100, got %v", sum.LastPrice)
	}
}

func TestRunFor_StartsAndStops(t *testing.T) {
	s := newTestSimulator()
	s.AddSymbol("AAPL", 150)
	if _, err := s.AddMarketMaker(1_000_000, map[string]int64{"AAPL": 200}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.RunFor(100 * time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.running.Load() {
		t.Error("expected simulator stopped")
	}

	// The market maker should have been quoting around the evolving price.
	summaries := s.MarketSummary(5)
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}
	if summaries[0].LastPrice <= 0 {
		t.Errorf("expected positive last price, got %v", summaries[0].LastPrice)
	}
	if summaries[0].Bid <= 0 || summaries[0].Ask <= 0 {
		t.Errorf("expected two-sided quotes, got bid %v ask %v", summaries[0].Bid, summaries[0].Ask)
	}
}

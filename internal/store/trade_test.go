package store

import (
	"testing"
	"time"

	"github.com/alopezag/stocksim/internal/domain"
)

func tradeFor(symbol string, qty int64, price float64) domain.Trade {
	return domain.Trade{
		TradeID:    domain.NewTradeID(),
		Symbol:     symbol,
		Quantity:   qty,
		Price:      price,
		ExecutedAt: time.Now(),
	}
}

func TestBySymbol_EmptyStore(t *testing.T) {
	s := NewTradeStore()
	trades := s.BySymbol("AAPL")
	if trades == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(trades) != 0 {
		t.Errorf("expected 0 trades, got %d", len(trades))
	}
}

func TestAppend_ChronologicalPerSymbol(t *testing.T) {
	s := NewTradeStore()
	s.Append(tradeFor("AAPL", 1, 100))
	s.Append(tradeFor("MSFT", 2, 200))
	s.Append(tradeFor("AAPL", 3, 101))

	aapl := s.BySymbol("AAPL")
	if len(aapl) != 2 {
		t.Fatalf("expected 2 AAPL trades, got %d", len(aapl))
	}
	if aapl[0].Quantity != 1 || aapl[1].Quantity != 3 {
		t.Errorf("trades out of order: %+v", aapl)
	}

	if s.Count() != 3 {
		t.Errorf("expected count 3, got %d", s.Count())
	}
	if len(s.All()) != 3 {
		t.Errorf("expected 3 trades total, got %d", len(s.All()))
	}
}

func TestBySymbol_ReturnsCopy(t *testing.T) {
	s := NewTradeStore()
	s.Append(tradeFor("AAPL", 1, 100))

	trades := s.BySymbol("AAPL")
	trades[0].Quantity = 999

	if got := s.BySymbol("AAPL")[0].Quantity; got != 1 {
		t.Errorf("caller mutation leaked into store: %d", got)
	}
}

package portfolio

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"github.com/alopezag/stocksim/internal/domain"
)

// Property: settlement conserves cash and shares — for any sequence of
// trades between registered participants, total cash and the per-symbol sum
// of positions are unchanged.
func TestProperty_SettlementConservation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numParticipants := rapid.IntRange(2, 5).Draw(t, "numParticipants")

		initial := make(map[string]float64)
		ids := make([]string, 0, numParticipants)
		var totalCash float64
		for i := 0; i < numParticipants; i++ {
			id := fmt.Sprintf("p%d", i)
			cash := float64(rapid.Int64Range(0, 1_000_000).Draw(t, fmt.Sprintf("cash-%d", i)))
			initial[id] = cash
			ids = append(ids, id)
			totalCash += cash
		}
		p := New(initial)

		symbols := []string{"AAPL", "MSFT"}
		numTrades := rapid.IntRange(1, 50).Draw(t, "numTrades")
		for i := 0; i < numTrades; i++ {
			buyer := ids[rapid.IntRange(0, numParticipants-1).Draw(t, fmt.Sprintf("buyer-%d", i))]
			seller := ids[rapid.IntRange(0, numParticipants-1).Draw(t, fmt.Sprintf("seller-%d", i))]
			symbol := symbols[rapid.IntRange(0, 1).Draw(t, fmt.Sprintf("symbol-%d", i))]
			qty := rapid.Int64Range(1, 100).Draw(t, fmt.Sprintf("qty-%d", i))
			price := float64(rapid.Int64Range(1, 10_000).Draw(t, fmt.Sprintf("price-%d", i)))

			tr := &domain.Trade{
				TradeID:  domain.NewTradeID(),
				BuyerID:  buyer,
				SellerID: seller,
				Symbol:   symbol,
				Quantity: qty,
				Price:    price,
			}
			if err := p.Settle(tr); err != nil {
				t.Fatalf("settle failed: %v", err)
			}
		}

		var cashAfter float64
		positionTotals := make(map[string]int64)
		for _, id := range ids {
			cash, err := p.Cash(id)
			if err != nil {
				t.Fatalf("cash lookup failed: %v", err)
			}
			cashAfter += cash
			for _, symbol := range symbols {
				pos, err := p.Position(id, symbol)
				if err != nil {
					t.Fatalf("position lookup failed: %v", err)
				}
				positionTotals[symbol] += pos
			}
		}

		if cashAfter != totalCash {
			t.Fatalf("total cash changed: before %v, after %v", totalCash, cashAfter)
		}
		for symbol, total := range positionTotals {
			if total != 0 {
				t.Fatalf("net %s position is %d, want 0", symbol, total)
			}
		}
	})
}

// Property: PnL equals Value minus initial cash for any price map.
func TestProperty_PnLIsValueMinusInitialCash(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cash := float64(rapid.Int64Range(0, 1_000_000).Draw(t, "cash"))
		p := New(map[string]float64{"a": cash, "b": cash})

		numTrades := rapid.IntRange(0, 20).Draw(t, "numTrades")
		for i := 0; i < numTrades; i++ {
			qty := rapid.Int64Range(1, 50).Draw(t, fmt.Sprintf("qty-%d", i))
			price := float64(rapid.Int64Range(1, 100).Draw(t, fmt.Sprintf("price-%d", i)))
			tr := &domain.Trade{BuyerID: "a", SellerID: "b", Symbol: "AAPL", Quantity: qty, Price: price}
			if err := p.Settle(tr); err != nil {
				t.Fatalf("settle failed: %v", err)
			}
		}

		prices := map[string]float64{"AAPL": float64(rapid.Int64Range(1, 500).Draw(t, "mark"))}
		pnl, err := p.PnL("a", prices)
		if err != nil {
			t.Fatalf("pnl failed: %v", err)
		}
		value, err := p.Value("a", prices)
		if err != nil {
			t.Fatalf("value failed: %v", err)
		}
		if pnl != value-cash {
			t.Fatalf("pnl %v != value %v - initial %v", pnl, value, cash)
		}
	})
}

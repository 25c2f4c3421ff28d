package sim

import (
	"time"

	"github.com/alopezag/stocksim/internal/book"
)

// ParticipantSummary is one strategy participant's portfolio snapshot at
// current market prices.
type ParticipantSummary struct {
	ParticipantID string
	Cash          float64
	Value         float64
	PnL           float64
	Positions     map[string]int64
}

// SymbolSummary is one symbol's market snapshot.
type SymbolSummary struct {
	Symbol         string
	LastPrice      float64
	Bid            float64
	Ask            float64
	Mid            float64
	Spread         float64
	VWAP           float64 // 0 when no trades in the window
	TradesInWindow int
	Depth          book.Depth
}

// PortfolioSummary returns a snapshot for every strategy participant.
func (s *Simulator) PortfolioSummary() []ParticipantSummary {
	prices := s.market.AllPrices()

	s.mu.Lock()
	strategies := s.strategies
	symbols := make([]string, len(s.symbols))
	copy(symbols, s.symbols)
	s.mu.Unlock()

	summaries := make([]ParticipantSummary, 0, len(strategies))
	for _, st := range strategies {
		id := st.ParticipantID()
		cash, err := s.ledger.Cash(id)
		if err != nil {
			continue
		}
		value, _ := s.ledger.Value(id, prices)
		pnl, _ := s.ledger.PnL(id, prices)

		positions := make(map[string]int64, len(symbols))
		for _, symbol := range symbols {
			pos, _ := s.ledger.Position(id, symbol)
			positions[symbol] = pos
		}
		summaries = append(summaries, ParticipantSummary{
			ParticipantID: id,
			Cash:          cash,
			Value:         value,
			PnL:           pnl,
			Positions:     positions,
		})
	}
	return summaries
}

// MarketSummary returns a snapshot for every registered symbol: the last
// generated price, top of book, spread, depth, and VWAP over the configured
// window.
func (s *Simulator) MarketSummary(depthLevels int) []SymbolSummary {
	prices := s.market.AllPrices()

	s.mu.Lock()
	symbols := make([]string, len(s.symbols))
	copy(symbols, s.symbols)
	window := s.vwapWindow
	s.mu.Unlock()

	now := time.Now()
	summaries := make([]SymbolSummary, 0, len(symbols))
	for _, symbol := range symbols {
		b := s.Book(symbol)
		summary := SymbolSummary{
			Symbol:    symbol,
			LastPrice: prices[symbol],
			Bid:       b.BidPrice(),
			Ask:       b.AskPrice(),
			Mid:       b.MidPrice(),
			Depth:     b.BookDepth(depthLevels),
		}
		if summary.Bid > 0 && summary.Ask > 0 {
			summary.Spread = summary.Ask - summary.Bid
		}
		summary.VWAP, summary.TradesInWindow = s.vwap(symbol, now.Add(-window))
		summaries = append(summaries, summary)
	}
	return summaries
}

// vwap computes the volume-weighted average trade price for the symbol over
// trades executed at or after windowStart.
func (s *Simulator) vwap(symbol string, windowStart time.Time) (float64, int) {
	var notional float64
	var quantity int64
	count := 0
	for _, t := range s.trades.BySymbol(symbol) {
		if t.ExecutedAt.Before(windowStart) {
			continue
		}
		notional += t.Notional()
		quantity += t.Quantity
		count++
	}
	if quantity == 0 {
		return 0, count
	}
	return notional / float64(quantity), count
}

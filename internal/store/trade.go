package store

import (
	"sync"

	"github.com/alopezag/stocksim/internal/domain"
)

// TradeStore is a thread-safe in-memory trade log, keyed by symbol.
// Trades are append-only and chronological.
type TradeStore struct {
	mu     sync.RWMutex
	trades map[string][]domain.Trade // symbol → trades (chronological)
}

// NewTradeStore creates an empty TradeStore.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		trades: make(map[string][]domain.Trade),
	}
}

// Append adds a trade to its symbol's chronological list.
func (s *TradeStore) Append(t domain.Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trades[t.Symbol] = append(s.trades[t.Symbol], t)
}

// BySymbol returns all trades for a symbol in chronological order.
// Returns an empty slice if no trades exist for the symbol.
func (s *TradeStore) BySymbol(symbol string) []domain.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trades := s.trades[symbol]
	result := make([]domain.Trade, len(trades))
	copy(result, trades)
	return result
}

// All returns every trade across all symbols. Ordering is chronological
// within a symbol and unspecified across symbols.
func (s *TradeStore) All() []domain.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Trade
	for _, trades := range s.trades {
		result = append(result, trades...)
	}
	return result
}

// Count returns the total number of recorded trades.
func (s *TradeStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, trades := range s.trades {
		n += len(trades)
	}
	return n
}

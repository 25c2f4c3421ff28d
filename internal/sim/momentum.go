package sim

import (
	"sync"

	"github.com/alopezag/stocksim/internal/domain"
)

// MomentumConfig tunes a MomentumTrader.
type MomentumConfig struct {
	Lookback     int     // ticks of history behind the momentum signal
	Threshold    float64 // fractional move that triggers a signal
	PositionSize int64   // base order size
}

// MomentumTrader buys when the price has risen more than the threshold over
// the lookback window and sells on the mirror move. A signal is traded as one
// market order sized to close any opposing position and open the new one, and
// a repeated signal is not re-traded. Sells are checked against shares held,
// so a sell order larger than the current holding is rejected and the
// position is left unchanged.
type MomentumTrader struct {
	Trader
	cfg MomentumConfig

	mu         sync.Mutex
	lastSignal map[string]domain.OrderSide
}

// NewMomentumTrader creates a momentum strategy for the given participant
// and symbols.
func NewMomentumTrader(participantID string, symbols []string, cfg MomentumConfig) *MomentumTrader {
	m := &MomentumTrader{
		cfg:        cfg,
		lastSignal: make(map[string]domain.OrderSide),
	}
	m.init(participantID, symbols)
	return m
}

// OnMarketData evaluates the momentum signal for the tick's symbol.
func (m *MomentumTrader) OnMarketData(md domain.MarketData) {
	m.RecordTick(md)

	history := m.History(md.Symbol, m.cfg.Lookback)
	if len(history) < m.cfg.Lookback {
		return
	}

	oldPrice := history[0].Price
	if oldPrice == 0 {
		return
	}
	momentum := (md.Price - oldPrice) / oldPrice

	var signal domain.OrderSide
	switch {
	case momentum > m.cfg.Threshold:
		signal = domain.OrderSideBuy
	case momentum < -m.cfg.Threshold:
		signal = domain.OrderSideSell
	default:
		return
	}

	m.mu.Lock()
	repeated := m.lastSignal[md.Symbol] == signal
	if !repeated {
		m.lastSignal[md.Symbol] = signal
	}
	m.mu.Unlock()
	if repeated {
		return
	}

	m.execute(md.Symbol, signal)
}

// execute trades the signal with market orders, covering any opposing
// position in the same order.
func (m *MomentumTrader) execute(symbol string, signal domain.OrderSide) {
	position := m.Position(symbol)

	switch signal {
	case domain.OrderSideBuy:
		if position > 0 {
			return
		}
		qty := m.cfg.PositionSize - position
		m.SubmitOrder(symbol, domain.OrderSideBuy, qty, domain.OrderTypeMarket, 0)
	case domain.OrderSideSell:
		if position < 0 {
			return
		}
		qty := m.cfg.PositionSize + position
		m.SubmitOrder(symbol, domain.OrderSideSell, qty, domain.OrderTypeMarket, 0)
	}
}

// OnTrade is informational for the momentum trader.
func (m *MomentumTrader) OnTrade(t domain.Trade) {}

// OnRejection resets the last signal so the strategy may retry once
// conditions change.
func (m *MomentumTrader) OnRejection(o domain.Order, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lastSignal, o.Symbol)
}

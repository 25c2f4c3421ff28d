package sim

import (
	"math"
	"sync"

	"github.com/alopezag/stocksim/internal/domain"
)

// MarketMakerConfig tunes a MarketMaker's quoting behavior.
type MarketMakerConfig struct {
	SpreadBps     int     // full quoted spread in basis points
	QuoteSize     int64   // size of each quote
	MaxPosition   int64   // absolute position cap per symbol
	InventorySkew float64 // how far inventory pushes quotes off-center
}

// quotePair tracks the market maker's resting orders for one symbol.
type quotePair struct {
	bidID string
	askID string
}

// MarketMaker provides liquidity by continuously quoting both sides around
// the current market price. Quotes are skewed against inventory and replaced
// when the price moves more than 0.1% since the last quote.
type MarketMaker struct {
	Trader
	cfg MarketMakerConfig

	mu        sync.Mutex
	quotes    map[string]quotePair
	lastQuote map[string]float64 // price at which quotes were last placed
}

// NewMarketMaker creates a market maker for the given participant and
// symbols.
func NewMarketMaker(participantID string, symbols []string, cfg MarketMakerConfig) *MarketMaker {
	m := &MarketMaker{
		cfg:       cfg,
		quotes:    make(map[string]quotePair),
		lastQuote: make(map[string]float64),
	}
	m.init(participantID, symbols)
	return m
}

// OnMarketData refreshes the symbol's quotes when needed.
func (m *MarketMaker) OnMarketData(md domain.MarketData) {
	m.RecordTick(md)

	if !m.shouldRequote(md.Symbol, md.Price) {
		return
	}
	m.requote(md.Symbol, md.Price)
}

// shouldRequote reports whether quotes are missing or the price has moved
// more than 0.1% since they were placed.
func (m *MarketMaker) shouldRequote(symbol string, price float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	q, ok := m.quotes[symbol]
	if !ok || q.bidID == "" || q.askID == "" {
		return true
	}
	last := m.lastQuote[symbol]
	if last == 0 {
		return true
	}
	return math.Abs(price-last)/last > 0.001
}

// requote cancels the existing quotes and places a fresh bid and ask around
// price, skewed against current inventory. Orders are submitted without
// holding the quote lock so trade callbacks may re-enter.
func (m *MarketMaker) requote(symbol string, price float64) {
	m.mu.Lock()
	old := m.quotes[symbol]
	delete(m.quotes, symbol)
	m.mu.Unlock()

	if old.bidID != "" {
		m.CancelOrder(symbol, old.bidID)
	}
	if old.askID != "" {
		m.CancelOrder(symbol, old.askID)
	}

	position := m.Position(symbol)

	halfSpread := price * (float64(m.cfg.SpreadBps) / 10000) / 2
	inventoryRatio := float64(position) / float64(m.cfg.MaxPosition)
	skew := inventoryRatio * m.cfg.InventorySkew * halfSpread

	bidPrice := domain.RoundPrice(math.Max(price-halfSpread-skew, 0.01))
	askPrice := domain.RoundPrice(math.Max(price+halfSpread-skew, bidPrice+0.01))

	var next quotePair
	if position < m.cfg.MaxPosition {
		if order, ok := m.SubmitOrder(symbol, domain.OrderSideBuy, m.cfg.QuoteSize, domain.OrderTypeLimit, bidPrice); ok {
			next.bidID = order.ID
		}
	}
	if position > -m.cfg.MaxPosition {
		if order, ok := m.SubmitOrder(symbol, domain.OrderSideSell, m.cfg.QuoteSize, domain.OrderTypeLimit, askPrice); ok {
			next.askID = order.ID
		}
	}

	m.mu.Lock()
	m.quotes[symbol] = next
	m.lastQuote[symbol] = price
	m.mu.Unlock()
}

// OnTrade is informational for the market maker; filled quotes are replaced
// on the next requote cycle.
func (m *MarketMaker) OnTrade(t domain.Trade) {}

// OnRejection clears the rejected quote so it is retried on the next tick.
func (m *MarketMaker) OnRejection(o domain.Order, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	q := m.quotes[o.Symbol]
	if q.bidID == o.ID {
		q.bidID = ""
	}
	if q.askID == o.ID {
		q.askID = ""
	}
	m.quotes[o.Symbol] = q
}

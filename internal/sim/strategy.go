package sim

import (
	"sync"

	"github.com/alopezag/stocksim/internal/book"
	"github.com/alopezag/stocksim/internal/domain"
	"github.com/alopezag/stocksim/internal/marketdata"
	"github.com/alopezag/stocksim/internal/portfolio"
)

// maxHistory bounds the per-symbol tick history kept by a Trader.
const maxHistory = 1000

// Strategy is a participant agent driven by simulation events. OnMarketData
// runs on the market-data goroutine; OnTrade and OnRejection run on whichever
// goroutine produced the event. Callbacks may submit and cancel orders.
type Strategy interface {
	ParticipantID() string
	Initialize(env *Env)
	OnMarketData(md domain.MarketData)
	OnTrade(t domain.Trade)
	OnRejection(o domain.Order, reason string)
}

// Env gives strategies access to the wired simulation components.
type Env struct {
	Portfolio *portfolio.Portfolio
	Books     map[string]*book.OrderBook
	Market    *marketdata.Engine
}

// Trader is an embeddable helper that implements the bookkeeping side of a
// strategy: order submission, portfolio queries, and bounded tick history.
type Trader struct {
	participantID string
	symbols       []string
	env           *Env

	historyMu sync.Mutex
	history   map[string][]domain.MarketData
}

// init prepares an embedded Trader for use.
func (t *Trader) init(participantID string, symbols []string) {
	t.participantID = participantID
	t.symbols = symbols
	t.history = make(map[string][]domain.MarketData)
}

// ParticipantID returns the owning participant's ID.
func (t *Trader) ParticipantID() string {
	return t.participantID
}

// Initialize wires the trader to the simulation components.
func (t *Trader) Initialize(env *Env) {
	t.env = env
}

// Symbols returns the symbols this trader trades.
func (t *Trader) Symbols() []string {
	return t.symbols
}

// SubmitOrder builds and submits an order to the symbol's book. It returns
// the order and true when accepted, nil and false when rejected or when the
// symbol has no book.
func (t *Trader) SubmitOrder(symbol string, side domain.OrderSide, qty int64, typ domain.OrderType, price float64) (*domain.Order, bool) {
	if t.env == nil {
		return nil, false
	}
	b, ok := t.env.Books[symbol]
	if !ok {
		return nil, false
	}
	order, err := domain.NewOrder(t.participantID, symbol, side, qty, typ, price)
	if err != nil {
		return nil, false
	}
	if !b.AddOrder(order) {
		return nil, false
	}
	return order, true
}

// CancelOrder cancels a resting order on the symbol's book.
func (t *Trader) CancelOrder(symbol, orderID string) bool {
	if t.env == nil {
		return false
	}
	b, ok := t.env.Books[symbol]
	if !ok {
		return false
	}
	return b.CancelOrder(orderID)
}

// Position returns the trader's position in a symbol, 0 when unknown.
func (t *Trader) Position(symbol string) int64 {
	if t.env == nil {
		return 0
	}
	pos, err := t.env.Portfolio.Position(t.participantID, symbol)
	if err != nil {
		return 0
	}
	return pos
}

// Cash returns the trader's current cash, 0 when unknown.
func (t *Trader) Cash() float64 {
	if t.env == nil {
		return 0
	}
	cash, err := t.env.Portfolio.Cash(t.participantID)
	if err != nil {
		return 0
	}
	return cash
}

// PortfolioValue returns cash plus positions marked at current prices.
func (t *Trader) PortfolioValue() float64 {
	if t.env == nil {
		return 0
	}
	value, err := t.env.Portfolio.Value(t.participantID, t.env.Market.AllPrices())
	if err != nil {
		return 0
	}
	return value
}

// PnL returns mark-to-market profit and loss at current prices.
func (t *Trader) PnL() float64 {
	if t.env == nil {
		return 0
	}
	pnl, err := t.env.Portfolio.PnL(t.participantID, t.env.Market.AllPrices())
	if err != nil {
		return 0
	}
	return pnl
}

// RecordTick appends a tick to the symbol's bounded history.
func (t *Trader) RecordTick(md domain.MarketData) {
	t.historyMu.Lock()
	defer t.historyMu.Unlock()

	h := append(t.history[md.Symbol], md)
	if len(h) > maxHistory {
		h = h[len(h)-maxHistory:]
	}
	t.history[md.Symbol] = h
}

// History returns up to lookback recent ticks for a symbol, oldest first.
func (t *Trader) History(symbol string, lookback int) []domain.MarketData {
	t.historyMu.Lock()
	defer t.historyMu.Unlock()

	h := t.history[symbol]
	if len(h) > lookback {
		h = h[len(h)-lookback:]
	}
	result := make([]domain.MarketData, len(h))
	copy(result, h)
	return result
}

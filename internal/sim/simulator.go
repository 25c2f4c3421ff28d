package sim

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alopezag/stocksim/internal/book"
	"github.com/alopezag/stocksim/internal/domain"
	"github.com/alopezag/stocksim/internal/marketdata"
	"github.com/alopezag/stocksim/internal/portfolio"
	"github.com/alopezag/stocksim/internal/store"
)

// ErrNotConfigured is returned by Start when the simulation has no symbols.
var ErrNotConfigured = errors.New("simulation not configured: no symbols registered")

// Simulator orchestrates the simulation core: one order book per symbol, a
// shared portfolio ledger, and the market data engine. Each tick's price is
// forwarded into the matching book's reference-price slot, then fanned out to
// strategies and external observers.
type Simulator struct {
	logger *slog.Logger

	mu           sync.Mutex
	ledger       *portfolio.Portfolio
	market       *marketdata.Engine
	books        map[string]*book.OrderBook
	symbols      []string
	strategies   []Strategy
	marketMakers int

	onTick      []marketdata.TickCallback
	onTrade     []book.TradeCallback
	onRejection []book.RejectionCallback

	trades     *store.TradeStore
	vwapWindow time.Duration
	running    atomic.Bool
}

// New creates an empty simulator. The market engine ticks at the given
// interval with the given RNG seed.
func New(logger *slog.Logger, tickInterval time.Duration, seed int64) *Simulator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulator{
		logger:     logger,
		ledger:     portfolio.New(nil),
		market:     marketdata.NewEngineWith(tickInterval, seed),
		books:      make(map[string]*book.OrderBook),
		trades:     store.NewTradeStore(),
		vwapWindow: 5 * time.Minute,
	}
}

// AddSymbol registers a symbol with the market data engine and creates its
// order book, wired to the shared ledger and the simulator's event handlers.
func (s *Simulator) AddSymbol(symbol string, initialPrice float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.market.AddSymbol(symbol, initialPrice)
	if _, ok := s.books[symbol]; ok {
		return
	}

	b := book.New(symbol)
	b.SetPortfolio(s.ledger)
	b.SetTradeCallback(s.handleTrade)
	b.SetRejectionCallback(s.handleRejection)
	b.UpdateMarketPrice(initialPrice)
	s.books[symbol] = b
	s.symbols = append(s.symbols, symbol)
}

// AddParticipants registers participants with their initial cash.
func (s *Simulator) AddParticipants(initialCash map[string]float64) {
	for id, cash := range initialCash {
		s.ledger.AddParticipant(id, cash)
	}
}

// SetInitialPositions seeds a participant's opening positions, using each
// symbol's current market price as the cost basis.
func (s *Simulator) SetInitialPositions(participantID string, positions map[string]int64) error {
	for symbol, qty := range positions {
		costBasis := s.market.CurrentPrice(symbol)
		if err := s.ledger.SetInitialPosition(participantID, symbol, qty, costBasis); err != nil {
			return err
		}
	}
	return nil
}

// AddStrategy registers a trading strategy. Strategies added after Start are
// not initialized.
func (s *Simulator) AddStrategy(st Strategy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strategies = append(s.strategies, st)
}

// AddMarketMaker registers a funded, pre-positioned market-making
// participant quoting every registered symbol, and returns its participant
// ID.
func (s *Simulator) AddMarketMaker(initialCash float64, positions map[string]int64) (string, error) {
	s.mu.Lock()
	s.marketMakers++
	id := fmt.Sprintf("__market_maker_%d", s.marketMakers)
	symbols := make([]string, len(s.symbols))
	copy(symbols, s.symbols)
	s.mu.Unlock()

	s.AddParticipants(map[string]float64{id: initialCash})
	if err := s.SetInitialPositions(id, positions); err != nil {
		return "", err
	}

	s.AddStrategy(NewMarketMaker(id, symbols, MarketMakerConfig{
		SpreadBps:     30,
		QuoteSize:     50,
		MaxPosition:   500,
		InventorySkew: 0.3,
	}))
	return id, nil
}

// OnTick registers an external tick observer.
func (s *Simulator) OnTick(cb marketdata.TickCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTick = append(s.onTick, cb)
}

// OnTrade registers an external trade observer.
func (s *Simulator) OnTrade(cb book.TradeCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTrade = append(s.onTrade, cb)
}

// OnRejection registers an external rejection observer.
func (s *Simulator) OnRejection(cb book.RejectionCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRejection = append(s.onRejection, cb)
}

// SetVWAPWindow overrides the window used for the market summary's VWAP.
func (s *Simulator) SetVWAPWindow(window time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vwapWindow = window
}

// Start initializes strategies and launches the market data engine.
func (s *Simulator) Start() error {
	s.mu.Lock()
	if len(s.books) == 0 {
		s.mu.Unlock()
		return ErrNotConfigured
	}
	env := &Env{
		Portfolio: s.ledger,
		Books:     s.books,
		Market:    s.market,
	}
	strategies := s.strategies
	s.mu.Unlock()

	for _, st := range strategies {
		st.Initialize(env)
	}

	s.market.SetCallback(s.handleTick)
	s.running.Store(true)
	s.market.Start()

	s.logger.Info("simulation started",
		slog.Int("symbols", len(s.books)),
		slog.Int("strategies", len(strategies)),
		slog.String("version", domain.Version),
	)
	return nil
}

// Stop halts the market data engine and stops tick fan-out. Trades and
// rejections from orders submitted directly to a book are still fanned out.
func (s *Simulator) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	s.market.Stop()
	s.logger.Info("simulation stopped", slog.Int("trades", s.trades.Count()))
}

// RunFor starts the simulation, lets it run for the given duration, and
// stops it.
func (s *Simulator) RunFor(d time.Duration) error {
	if err := s.Start(); err != nil {
		return err
	}
	time.Sleep(d)
	s.Stop()
	return nil
}

// Book returns the order book for a symbol, nil if unregistered.
func (s *Simulator) Book(symbol string) *book.OrderBook {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.books[symbol]
}

// Portfolio returns the shared ledger.
func (s *Simulator) Portfolio() *portfolio.Portfolio {
	return s.ledger
}

// Market returns the market data engine.
func (s *Simulator) Market() *marketdata.Engine {
	return s.market
}

// TradeHistory returns all executed trades.
func (s *Simulator) TradeHistory() []domain.Trade {
	return s.trades.All()
}

// handleTick forwards the tick price into the matching book's reference
// price, then notifies strategies and external observers.
func (s *Simulator) handleTick(md domain.MarketData) {
	if !s.running.Load() {
		return
	}

	s.mu.Lock()
	b := s.books[md.Symbol]
	strategies := s.strategies
	observers := s.onTick
	s.mu.Unlock()

	if b != nil {
		b.UpdateMarketPrice(md.Price)
	}
	for _, st := range strategies {
		st.OnMarketData(md)
	}
	for _, cb := range observers {
		cb(md)
	}
}

// handleTrade records the trade and fans it out.
func (s *Simulator) handleTrade(t domain.Trade) {
	s.trades.Append(t)

	s.mu.Lock()
	strategies := s.strategies
	observers := s.onTrade
	s.mu.Unlock()

	for _, st := range strategies {
		st.OnTrade(t)
	}
	for _, cb := range observers {
		cb(t)
	}
}

// handleRejection notifies the rejected order's own strategy and the
// external observers.
func (s *Simulator) handleRejection(o domain.Order, reason string) {
	s.logger.Debug("order rejected",
		slog.String("order_id", o.ID),
		slog.String("participant_id", o.ParticipantID),
		slog.String("reason", reason),
	)

	s.mu.Lock()
	strategies := s.strategies
	observers := s.onRejection
	s.mu.Unlock()

	for _, st := range strategies {
		if st.ParticipantID() == o.ParticipantID {
			st.OnRejection(o, reason)
		}
	}
	for _, cb := range observers {
		cb(o, reason)
	}
}

package marketdata

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/alopezag/stocksim/internal/domain"
)

const (
	// DefaultVolatility is the annualized volatility assigned to newly
	// registered symbols.
	DefaultVolatility = 0.20

	// DefaultInterval is the tick cadence (10 Hz).
	DefaultInterval = 100 * time.Millisecond

	// priceFloor is the minimum synthesized price.
	priceFloor = 0.01

	// tickVolume is the nominal size attached to each tick.
	tickVolume = 1000

	// dt is one second of a 6.5-hour, 252-day trading year.
	dt = 1.0 / (252 * 6.5 * 60 * 60)
)

// TickCallback observes generated ticks. Invoked on the engine's background
// goroutine, outside any internal lock.
type TickCallback func(md domain.MarketData)

// Engine drives a reference price per registered symbol by a geometric
// Brownian motion and publishes one tick per symbol per cycle to a single
// observer. A read-write lock guards the price map; the RNG has its own
// mutex because draws must be serialized.
type Engine struct {
	mu           sync.RWMutex
	prices       map[string]float64
	volatilities map[string]float64

	cbMu     sync.Mutex
	callback TickCallback

	rngMu sync.Mutex
	rng   *rand.Rand

	interval time.Duration

	lifecycle sync.Mutex
	running   bool
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// NewEngine creates an engine ticking at the default 100 ms cadence with a
// time-seeded RNG.
func NewEngine() *Engine {
	return NewEngineWith(DefaultInterval, time.Now().UnixNano())
}

// NewEngineWith creates an engine with an explicit tick interval and RNG
// seed. Tests use a fixed seed for reproducible paths.
func NewEngineWith(interval time.Duration, seed int64) *Engine {
	return &Engine{
		prices:       make(map[string]float64),
		volatilities: make(map[string]float64),
		rng:          rand.New(rand.NewSource(seed)),
		interval:     interval,
	}
}

// AddSymbol registers a symbol at an initial price with the default
// volatility. Re-registering replaces the price silently.
func (e *Engine) AddSymbol(symbol string, initialPrice float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.prices[symbol] = initialPrice
	e.volatilities[symbol] = DefaultVolatility
}

// SetVolatility overrides the annualized volatility for a registered symbol.
func (e *Engine) SetVolatility(symbol string, vol float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.prices[symbol]; !ok {
		return domain.ErrUnknownSymbol
	}
	e.volatilities[symbol] = vol
	return nil
}

// SetCallback installs the observer. Replacing is allowed at any time.
func (e *Engine) SetCallback(cb TickCallback) {
	e.cbMu.Lock()
	defer e.cbMu.Unlock()
	e.callback = cb
}

// Start launches the background generator. Calling Start on a running
// engine is a no-op.
func (e *Engine) Start() {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	if e.running {
		return
	}
	e.running = true
	e.stopCh = make(chan struct{})
	e.wg.Add(1)
	go e.generate(e.stopCh)
}

// Stop terminates the background generator and waits for it to exit. Stop
// is idempotent; Start may be called again afterwards.
func (e *Engine) Stop() {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	if !e.running {
		return
	}
	e.running = false
	close(e.stopCh)
	e.wg.Wait()
}

// CurrentPrice returns the latest price for a symbol, 0 if unknown.
func (e *Engine) CurrentPrice(symbol string) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.prices[symbol]
}

// AllPrices returns a snapshot of the current price map.
func (e *Engine) AllPrices() map[string]float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	snapshot := make(map[string]float64, len(e.prices))
	for symbol, price := range e.prices {
		snapshot[symbol] = price
	}
	return snapshot
}

// generate runs one price cycle per interval until stopped.
func (e *Engine) generate(stopCh <-chan struct{}) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			e.cycle()
		}
	}
}

// cycle evolves every registered price by one GBM step, commits the updates,
// and then publishes one tick per symbol outside all locks.
func (e *Engine) cycle() {
	type update struct {
		symbol string
		price  float64
	}

	// Generate all updates first to minimize lock time.
	e.mu.RLock()
	e.rngMu.Lock()
	updates := make([]update, 0, len(e.prices))
	for symbol, price := range e.prices {
		updates = append(updates, update{symbol, e.step(price, e.volatilities[symbol])})
	}
	e.rngMu.Unlock()
	e.mu.RUnlock()

	e.mu.Lock()
	for _, u := range updates {
		e.prices[u.symbol] = u.price
	}
	e.mu.Unlock()

	e.cbMu.Lock()
	cb := e.callback
	e.cbMu.Unlock()
	if cb == nil {
		return
	}
	ts := time.Now()
	for _, u := range updates {
		cb(domain.NewMarketData(u.symbol, u.price, tickVolume, ts))
	}
}

// step advances one price by a zero-drift GBM increment, floored at 0.01.
func (e *Engine) step(price, volatility float64) float64 {
	shock := e.rng.NormFloat64()
	change := price * (volatility * math.Sqrt(dt) * shock)
	return math.Max(priceFloor, price+change)
}

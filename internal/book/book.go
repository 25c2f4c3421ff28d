package book

import (
	"sync"
	"time"

	"github.com/google/btree"

	"github.com/alopezag/stocksim/internal/domain"
	"github.com/alopezag/stocksim/internal/portfolio"
)

// bookEntry represents a single resting order on a price ladder. seq is a
// per-book monotonic insertion counter that breaks wall-clock timestamp ties,
// so arrival order is preserved even under millisecond collisions.
type bookEntry struct {
	price     float64
	createdAt time.Time
	seq       uint64
	order     *domain.Order
}

// PriceLevel is an aggregated price level in the order book.
type PriceLevel struct {
	Price         float64
	TotalQuantity int64
	OrderCount    int
}

// Depth is an aggregated snapshot of the top of the book. Bids are ordered
// high-to-low, asks low-to-high.
type Depth struct {
	Bids []PriceLevel
	Asks []PriceLevel
}

// bidLess defines ordering for the bid side: price descending, then
// created_at ascending, then insertion sequence ascending. Min() returns the
// best bid (highest price, earliest arrival).
func bidLess(a, b bookEntry) bool {
	if a.price != b.price {
		return a.price > b.price
	}
	if !a.createdAt.Equal(b.createdAt) {
		return a.createdAt.Before(b.createdAt)
	}
	return a.seq < b.seq
}

// askLess defines ordering for the ask side: price ascending, then
// created_at ascending, then insertion sequence ascending. Min() returns the
// best ask (lowest price, earliest arrival).
func askLess(a, b bookEntry) bool {
	if a.price != b.price {
		return a.price < b.price
	}
	if !a.createdAt.Equal(b.createdAt) {
		return a.createdAt.Before(b.createdAt)
	}
	return a.seq < b.seq
}

// OrderBook accepts, validates, matches, cancels, and reports on orders for
// a single symbol under price-time priority. The bid/ask ladders and tracking
// maps are guarded by one read-write lock; the reference price and the
// callback slots have their own locks so callbacks and price updates never
// contend with matching. No callback is ever invoked while a lock is held.
type OrderBook struct {
	symbol string

	mu        sync.RWMutex
	bids      *btree.BTreeG[bookEntry]
	asks      *btree.BTreeG[bookEntry]
	active    map[string]*domain.Order // resting limit orders by ID
	locations map[string]bookEntry     // order ID → ladder entry
	seq       uint64
	ledger    *portfolio.Portfolio

	priceMu     sync.Mutex
	marketPrice float64

	cbMu        sync.Mutex
	tradeCb     TradeCallback
	rejectionCb RejectionCallback
}

// New creates an order book for the given symbol.
func New(symbol string) *OrderBook {
	const degree = 32
	return &OrderBook{
		symbol:    symbol,
		bids:      btree.NewG[bookEntry](degree, bidLess),
		asks:      btree.NewG[bookEntry](degree, askLess),
		active:    make(map[string]*domain.Order),
		locations: make(map[string]bookEntry),
	}
}

// Symbol returns the instrument this book trades.
func (b *OrderBook) Symbol() string {
	return b.symbol
}

// SetTradeCallback installs the trade observer. A nil observer is legal.
func (b *OrderBook) SetTradeCallback(cb TradeCallback) {
	b.cbMu.Lock()
	defer b.cbMu.Unlock()
	b.tradeCb = cb
}

// SetRejectionCallback installs the rejection observer. A nil observer is legal.
func (b *OrderBook) SetRejectionCallback(cb RejectionCallback) {
	b.cbMu.Lock()
	defer b.cbMu.Unlock()
	b.rejectionCb = cb
}

// SetPortfolio installs the ledger used for pre-trade validation and
// settlement. With no ledger installed, all orders pass validation and no
// settlement is attempted.
func (b *OrderBook) SetPortfolio(p *portfolio.Portfolio) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ledger = p
}

// UpdateMarketPrice sets the external reference price. It is used only to
// estimate buying power for market buys when no ask is resting.
func (b *OrderBook) UpdateMarketPrice(price float64) {
	b.priceMu.Lock()
	defer b.priceMu.Unlock()
	b.marketPrice = price
}

// BidPrice returns the best bid, 0 when the bid side is empty.
func (b *OrderBook) BidPrice() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bestBidLocked()
}

// AskPrice returns the best ask, 0 when the ask side is empty.
func (b *OrderBook) AskPrice() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bestAskLocked()
}

// MidPrice returns the midpoint of the best bid and ask, 0 unless both
// sides are present.
func (b *OrderBook) MidPrice() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	bid := b.bestBidLocked()
	ask := b.bestAskLocked()
	if bid > 0 && ask > 0 {
		return (bid + ask) / 2
	}
	return 0
}

func (b *OrderBook) bestBidLocked() float64 {
	if entry, ok := b.bids.Min(); ok {
		return entry.price
	}
	return 0
}

func (b *OrderBook) bestAskLocked() float64 {
	if entry, ok := b.asks.Min(); ok {
		return entry.price
	}
	return 0
}

// BookDepth returns aggregated (price, total quantity) levels for the top n
// levels on each side. The snapshot does not reveal individual orders.
func (b *OrderBook) BookDepth(levels int) Depth {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return Depth{
		Bids: topLevels(b.bids, levels),
		Asks: topLevels(b.asks, levels),
	}
}

// topLevels iterates a ladder in priority order and aggregates entries into
// at most n price levels.
func topLevels(tree *btree.BTreeG[bookEntry], n int) []PriceLevel {
	if n <= 0 {
		return nil
	}
	levels := make([]PriceLevel, 0, n)
	tree.Ascend(func(entry bookEntry) bool {
		if len(levels) > 0 && levels[len(levels)-1].Price == entry.price {
			levels[len(levels)-1].TotalQuantity += entry.order.Quantity
			levels[len(levels)-1].OrderCount++
			return true
		}
		if len(levels) >= n {
			return false
		}
		levels = append(levels, PriceLevel{
			Price:         entry.price,
			TotalQuantity: entry.order.Quantity,
			OrderCount:    1,
		})
		return true
	})
	return levels
}

// insertLocked rests a limit order on its side's ladder and records it in
// the tracking maps.
func (b *OrderBook) insertLocked(order *domain.Order) {
	b.seq++
	entry := bookEntry{
		price:     order.Price,
		createdAt: order.CreatedAt,
		seq:       b.seq,
		order:     order,
	}
	if order.Side == domain.OrderSideBuy {
		b.bids.ReplaceOrInsert(entry)
	} else {
		b.asks.ReplaceOrInsert(entry)
	}
	b.active[order.ID] = order
	b.locations[order.ID] = entry
}

// removeRestingLocked erases a fully filled resting order from its ladder
// and from both tracking maps.
func (b *OrderBook) removeRestingLocked(entry bookEntry) {
	if entry.order.Side == domain.OrderSideBuy {
		b.bids.Delete(entry)
	} else {
		b.asks.Delete(entry)
	}
	delete(b.active, entry.order.ID)
	delete(b.locations, entry.order.ID)
}

// RestingCount returns the number of individual orders resting on the book.
func (b *OrderBook) RestingCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bids.Len() + b.asks.Len()
}

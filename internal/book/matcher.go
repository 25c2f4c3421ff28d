package book

import (
	"fmt"
	"time"

	"github.com/alopezag/stocksim/internal/domain"
)

// AddOrder submits an order to the book. It returns false on rejection,
// which is reported to the rejection callback with a reason; otherwise it
// returns true, with zero or more trade callbacks fired synchronously before
// return. The submitted order is never mutated; residuals are tracked on an
// internal copy.
func (b *OrderBook) AddOrder(order *domain.Order) bool {
	if err := order.Validate(); err != nil {
		b.fireRejection(order, err.Error())
		return false
	}

	b.mu.Lock()

	if err := b.validateLocked(order); err != nil {
		b.mu.Unlock()
		b.fireRejection(order, err.Error())
		return false
	}

	var trades []domain.Trade
	var rejectErr error

	if order.Type == domain.OrderTypeMarket {
		trades, rejectErr = b.executeMarketOrderLocked(order)
	} else {
		trades = b.addLimitOrderLocked(order)
	}

	b.mu.Unlock()

	// Callbacks fire from a staged buffer after lock release, so observers
	// may re-enter the book.
	if rejectErr != nil {
		b.fireRejection(order, rejectErr.Error())
		return false
	}
	b.fireTrades(trades)
	return true
}

// validateLocked runs the pre-trade checks against the ledger. Sells require
// inventory covering the order size. Limit buys check cash at the limit
// price; market buys check cash at the best ask, falling back to the
// reference price, and fail when no execution price can be estimated.
func (b *OrderBook) validateLocked(order *domain.Order) error {
	if b.ledger == nil {
		return nil
	}

	if order.Side == domain.OrderSideSell {
		if !b.ledger.CanSell(order.ParticipantID, order.Symbol, order.Quantity) {
			return fmt.Errorf("%w for participant: %s", domain.ErrInsufficientPosition, order.ParticipantID)
		}
		return nil
	}

	price := order.Price
	if order.Type == domain.OrderTypeMarket {
		price = b.estimateExecutionPriceLocked()
		if price == 0 {
			return fmt.Errorf("%w to price market order", domain.ErrNoLiquidity)
		}
	}
	if !b.ledger.CanBuy(order.ParticipantID, order.Symbol, order.Quantity, price) {
		return fmt.Errorf("%w for participant: %s", domain.ErrInsufficientFunds, order.ParticipantID)
	}
	return nil
}

// estimateExecutionPriceLocked returns the best ask when one is resting,
// otherwise the last externally supplied reference price, otherwise 0.
func (b *OrderBook) estimateExecutionPriceLocked() float64 {
	if entry, ok := b.asks.Min(); ok {
		return entry.price
	}
	b.priceMu.Lock()
	defer b.priceMu.Unlock()
	return b.marketPrice
}

// executeMarketOrderLocked fills a market order against the opposite side,
// best price first, FIFO within a level. The residual of a partially filled
// market order is discarded; market orders never rest. An empty opposite
// side at entry is a rejection.
func (b *OrderBook) executeMarketOrderLocked(order *domain.Order) ([]domain.Trade, error) {
	opposite := b.asks
	if order.Side == domain.OrderSideSell {
		opposite = b.bids
	}
	if opposite.Len() == 0 {
		return nil, domain.ErrNoLiquidity
	}

	var trades []domain.Trade
	remaining := order.Quantity

	for remaining > 0 {
		entry, found := opposite.Min()
		if !found {
			break
		}
		resting := entry.order

		qty := remaining
		if resting.Quantity < qty {
			qty = resting.Quantity
		}

		// Trades execute at the resting order's price.
		if order.Side == domain.OrderSideBuy {
			trades = append(trades, b.settleLocked(order, resting, qty, entry.price))
		} else {
			trades = append(trades, b.settleLocked(resting, order, qty, entry.price))
		}

		remaining -= qty
		resting.Quantity -= qty
		if resting.Quantity == 0 {
			b.removeRestingLocked(entry)
		}
	}

	return trades, nil
}

// addLimitOrderLocked rests a copy of the order at its price level, then
// cross-matches while the best bid meets or exceeds the best ask. The trade
// price is the resting best ask at the moment of match, giving price
// improvement to a taker buyer.
func (b *OrderBook) addLimitOrderLocked(order *domain.Order) []domain.Trade {
	resting := *order
	b.insertLocked(&resting)

	var trades []domain.Trade

	for {
		bidEntry, haveBid := b.bids.Min()
		askEntry, haveAsk := b.asks.Min()
		if !haveBid || !haveAsk {
			break
		}
		if bidEntry.price < askEntry.price {
			break
		}

		buy := bidEntry.order
		sell := askEntry.order

		qty := buy.Quantity
		if sell.Quantity < qty {
			qty = sell.Quantity
		}

		trades = append(trades, b.settleLocked(buy, sell, qty, askEntry.price))

		buy.Quantity -= qty
		sell.Quantity -= qty
		if buy.Quantity == 0 {
			b.removeRestingLocked(bidEntry)
		}
		if sell.Quantity == 0 {
			b.removeRestingLocked(askEntry)
		}
	}

	return trades
}

// settleLocked builds the trade record and settles both legs in the ledger
// under a single ledger lock acquisition. Both parties were validated at
// submission and participants cannot be removed, so the ledger lookup cannot
// fail here.
func (b *OrderBook) settleLocked(buy, sell *domain.Order, qty int64, price float64) domain.Trade {
	trade := domain.Trade{
		TradeID:     domain.NewTradeID(),
		BuyOrderID:  buy.ID,
		SellOrderID: sell.ID,
		BuyerID:     buy.ParticipantID,
		SellerID:    sell.ParticipantID,
		Symbol:      b.symbol,
		Quantity:    qty,
		Price:       price,
		ExecutedAt:  time.Now(),
	}
	if b.ledger != nil {
		_ = b.ledger.Settle(&trade)
	}
	return trade
}

// CancelOrder removes a resting limit order by ID. It returns false if the
// ID is not currently resting — already filled, already cancelled, or never
// seen. A stale entry found in only one tracking map is repaired.
func (b *OrderBook) CancelOrder(orderID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, inActive := b.active[orderID]
	entry, inLocations := b.locations[orderID]

	if !inActive {
		if inLocations {
			delete(b.locations, orderID)
		}
		return false
	}
	if !inLocations {
		delete(b.active, orderID)
		return false
	}

	var removed bool
	if entry.order.Side == domain.OrderSideBuy {
		_, removed = b.bids.Delete(entry)
	} else {
		_, removed = b.asks.Delete(entry)
	}
	if !removed {
		return false
	}

	delete(b.active, orderID)
	delete(b.locations, orderID)
	return true
}

func (b *OrderBook) fireTrades(trades []domain.Trade) {
	if len(trades) == 0 {
		return
	}
	b.cbMu.Lock()
	cb := b.tradeCb
	b.cbMu.Unlock()
	if cb == nil {
		return
	}
	for _, t := range trades {
		cb(t)
	}
}

func (b *OrderBook) fireRejection(order *domain.Order, reason string) {
	b.cbMu.Lock()
	cb := b.rejectionCb
	b.cbMu.Unlock()
	if cb != nil {
		cb(*order, reason)
	}
}

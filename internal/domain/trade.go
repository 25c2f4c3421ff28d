package domain

import "time"

// Trade represents a matched execution between a buy and a sell order.
type Trade struct {
	TradeID     string
	BuyOrderID  string
	SellOrderID string
	BuyerID     string
	SellerID    string
	Symbol      string
	Quantity    int64
	Price       float64
	ExecutedAt  time.Time
}

// Notional returns quantity × price of the trade.
func (t *Trade) Notional() float64 {
	return float64(t.Quantity) * t.Price
}

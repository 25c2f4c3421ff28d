package domain

import "time"

// tickSpread is the multiplicative half-spread synthesized around the
// reference price in generated ticks (±0.1%).
const tickSpread = 0.001

// MarketData is a single tick for one symbol. Bid and Ask are synthesized
// around Price by a fixed multiplicative spread; Volume is a nominal size.
type MarketData struct {
	Symbol    string
	Price     float64
	Volume    int64
	Timestamp time.Time
	Bid       float64
	Ask       float64
}

// NewMarketData builds a tick with bid/ask synthesized around price.
func NewMarketData(symbol string, price float64, volume int64, ts time.Time) MarketData {
	return MarketData{
		Symbol:    symbol,
		Price:     price,
		Volume:    volume,
		Timestamp: ts,
		Bid:       price * (1 - tickSpread),
		Ask:       price * (1 + tickSpread),
	}
}

package book

import "github.com/alopezag/stocksim/internal/domain"

// TradeCallback observes executed trades. Invoked synchronously on the
// submitting goroutine, after the book lock has been released.
type TradeCallback func(trade domain.Trade)

// RejectionCallback observes rejected orders with a human-readable reason.
// Invoked on the submitting goroutine, outside any book lock.
type RejectionCallback func(order domain.Order, reason string)

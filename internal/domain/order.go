package domain

import (
	"fmt"
	"time"
)

// OrderType distinguishes limit orders from market orders.
type OrderType string

const (
	OrderTypeLimit  OrderType = "limit"
	OrderTypeMarket OrderType = "market"
)

// OrderSide indicates whether an order buys or sells.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// Order represents a buy or sell instruction submitted by a participant.
// Price is not used to match market orders but must not be negative; it must
// be positive for limit orders.
// CreatedAt is assigned at construction and breaks ties within a price level.
type Order struct {
	ID            string
	ParticipantID string
	Symbol        string
	Side          OrderSide
	Type          OrderType
	Quantity      int64
	Price         float64
	CreatedAt     time.Time
}

// NewOrder builds an order with an ID from the process-wide generator and
// the current wall-clock timestamp. It returns a ValidationError if the
// order violates the submission contract.
func NewOrder(participantID, symbol string, side OrderSide, qty int64, typ OrderType, price float64) (*Order, error) {
	o := &Order{
		ID:            NextOrderID(),
		ParticipantID: participantID,
		Symbol:        symbol,
		Side:          side,
		Type:          typ,
		Quantity:      qty,
		Price:         price,
		CreatedAt:     time.Now(),
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

// Validate checks the submission contract: non-empty identifiers, a positive
// quantity, a known side and type, and for limit orders a positive price with
// at most two decimal places.
func (o *Order) Validate() error {
	if o.ParticipantID == "" {
		return &ValidationError{Message: "participant_id must not be empty"}
	}
	if o.Symbol == "" {
		return &ValidationError{Message: "symbol must not be empty"}
	}
	switch o.Side {
	case OrderSideBuy, OrderSideSell:
	default:
		return &ValidationError{Message: fmt.Sprintf("invalid side: %q", o.Side)}
	}
	switch o.Type {
	case OrderTypeLimit, OrderTypeMarket:
	default:
		return &ValidationError{Message: fmt.Sprintf("invalid type: %q", o.Type)}
	}
	if o.Quantity <= 0 {
		return &ValidationError{Message: fmt.Sprintf("quantity must be positive, got %d", o.Quantity)}
	}
	if o.Price < 0 {
		return &ValidationError{Message: fmt.Sprintf("price must not be negative, got %v", o.Price)}
	}
	if o.Type == OrderTypeLimit {
		if o.Price == 0 {
			return &ValidationError{Message: "limit orders require a positive price"}
		}
		if err := ValidatePrice(o.Price); err != nil {
			return err
		}
	}
	return nil
}

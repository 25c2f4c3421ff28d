package domain

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// OrderIDGenerator produces order IDs unique within the process. Callers that
// need to control the literal IDs may use their own implementation and build
// Order values with its output; the order book accepts any well-formed order.
type OrderIDGenerator interface {
	NextOrderID() string
}

// CounterGenerator issues monotonically increasing ORD-<n> identifiers from
// an atomic counter. The zero value is ready to use.
type CounterGenerator struct {
	n atomic.Uint64
}

func (g *CounterGenerator) NextOrderID() string {
	return fmt.Sprintf("ORD-%d", g.n.Add(1))
}

// defaultOrderIDs is the process-wide generator used by NewOrder.
var defaultOrderIDs = &CounterGenerator{}

// NextOrderID returns the next ID from the process-wide generator.
func NextOrderID() string {
	return defaultOrderIDs.NextOrderID()
}

// NewTradeID returns a fresh unique trade identifier.
func NewTradeID() string {
	return uuid.New().String()
}

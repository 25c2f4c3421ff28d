package portfolio

import (
	"sync"

	"github.com/alopezag/stocksim/internal/domain"
)

// participantRecord holds one participant's cash and per-symbol positions.
// initialCash is set once at creation and anchors P&L.
type participantRecord struct {
	cash        float64
	initialCash float64
	positions   map[string]int64
}

// Portfolio is the authoritative record of participant cash and positions.
// It answers pre-trade questions and applies post-trade settlement. A single
// mutex covers the whole ledger, so buyer and seller legs of one trade are
// observed atomically by any external query.
type Portfolio struct {
	mu           sync.Mutex
	participants map[string]*participantRecord
}

// New creates a ledger with each participant initialized to its cash amount.
func New(initialCashByParticipant map[string]float64) *Portfolio {
	p := &Portfolio{
		participants: make(map[string]*participantRecord),
	}
	for id, cash := range initialCashByParticipant {
		p.participants[id] = newRecord(cash)
	}
	return p
}

func newRecord(cash float64) *participantRecord {
	return &participantRecord{
		cash:        cash,
		initialCash: cash,
		positions:   make(map[string]int64),
	}
}

// AddParticipant creates (or replaces) the record for a participant.
func (p *Portfolio) AddParticipant(participantID string, initialCash float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.participants[participantID] = newRecord(initialCash)
}

// SetInitialPosition sets a participant's position in a symbol to qty. When
// costBasis > 0 the participant's cash is debited by qty × costBasis, even if
// that drives cash negative; the ledger does not clamp opening adjustments.
func (p *Portfolio) SetInitialPosition(participantID, symbol string, qty int64, costBasis float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec, ok := p.participants[participantID]
	if !ok {
		return domain.ErrParticipantNotFound
	}
	rec.positions[symbol] = qty
	if costBasis > 0 {
		rec.cash -= float64(qty) * costBasis
	}
	return nil
}

// CanBuy reports whether the participant's cash covers qty × price. Unknown
// participants cannot buy.
func (p *Portfolio) CanBuy(participantID, symbol string, qty int64, price float64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec, ok := p.participants[participantID]
	if !ok {
		return false
	}
	return float64(qty)*price <= rec.cash
}

// CanSell reports whether the participant holds at least qty of the symbol.
// Unknown participants cannot sell.
func (p *Portfolio) CanSell(participantID, symbol string, qty int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec, ok := p.participants[participantID]
	if !ok {
		return false
	}
	return rec.positions[symbol] >= qty
}

// ExecuteTrade applies one leg of a trade to a participant: the buy side
// gains qty of the symbol and pays qty × price; the sell side is the mirror.
func (p *Portfolio) ExecuteTrade(participantID string, t *domain.Trade, side domain.OrderSide) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.applyLegLocked(participantID, t, side)
}

// Settle applies both legs of a trade — buyer then seller — under a single
// lock acquisition, so no reader can observe a half-applied trade.
func (p *Portfolio) Settle(t *domain.Trade) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.applyLegLocked(t.BuyerID, t, domain.OrderSideBuy); err != nil {
		return err
	}
	return p.applyLegLocked(t.SellerID, t, domain.OrderSideSell)
}

func (p *Portfolio) applyLegLocked(participantID string, t *domain.Trade, side domain.OrderSide) error {
	rec, ok := p.participants[participantID]
	if !ok {
		return domain.ErrParticipantNotFound
	}
	var multiplier int64 = 1
	if side == domain.OrderSideSell {
		multiplier = -1
	}
	rec.positions[t.Symbol] += multiplier * t.Quantity
	rec.cash -= float64(multiplier) * t.Notional()
	return nil
}

// PnL returns the participant's mark-to-market profit and loss:
// Σ position × price + cash − initial_cash. Symbols missing from the price
// map contribute nothing.
func (p *Portfolio) PnL(participantID string, prices map[string]float64) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec, ok := p.participants[participantID]
	if !ok {
		return 0, domain.ErrParticipantNotFound
	}
	return positionValueLocked(rec, prices) + rec.cash - rec.initialCash, nil
}

// Value returns cash + Σ position × price at the supplied prices.
func (p *Portfolio) Value(participantID string, prices map[string]float64) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec, ok := p.participants[participantID]
	if !ok {
		return 0, domain.ErrParticipantNotFound
	}
	return rec.cash + positionValueLocked(rec, prices), nil
}

// Cash returns the participant's current cash.
func (p *Portfolio) Cash(participantID string) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec, ok := p.participants[participantID]
	if !ok {
		return 0, domain.ErrParticipantNotFound
	}
	return rec.cash, nil
}

// BuyingPower returns the cash available for purchases. With no margin, it
// equals the participant's cash.
func (p *Portfolio) BuyingPower(participantID string) (float64, error) {
	return p.Cash(participantID)
}

// Position returns the participant's position in a symbol, 0 if absent.
func (p *Portfolio) Position(participantID, symbol string) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec, ok := p.participants[participantID]
	if !ok {
		return 0, domain.ErrParticipantNotFound
	}
	return rec.positions[symbol], nil
}

// TotalExposure returns Σ |position| × price at the supplied prices.
func (p *Portfolio) TotalExposure(participantID string, prices map[string]float64) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec, ok := p.participants[participantID]
	if !ok {
		return 0, domain.ErrParticipantNotFound
	}
	var total float64
	for symbol, qty := range rec.positions {
		if price, ok := prices[symbol]; ok {
			if qty < 0 {
				qty = -qty
			}
			total += float64(qty) * price
		}
	}
	return total, nil
}

func positionValueLocked(rec *participantRecord, prices map[string]float64) float64 {
	var value float64
	for symbol, qty := range rec.positions {
		if price, ok := prices[symbol]; ok {
			value += float64(qty) * price
		}
	}
	return value
}

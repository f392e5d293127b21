// Package ledger applies non-negative stock mutations to inventory rows.
//
// A Ledger never opens a transaction; it is built from the stock store of the
// caller's unit of work so its writes commit or roll back with the rest of
// the operation.
package ledger

import (
	"context"
	"time"

	"github.com/meditrack/meditrack-backend/internal/pharmacy/domain"
	"github.com/meditrack/meditrack-backend/internal/pharmacy/store"
	"github.com/meditrack/meditrack-backend/pkg/errors"
)

// Pair identifies an inventory row. PharmacyName only labels errors.
type Pair struct {
	MedicationID string
	PharmacyID   string
	PharmacyName string
}

// PairOf builds a Pair from a medication id and a pharmacy.
func PairOf(medicationID string, p *domain.Pharmacy) Pair {
	return Pair{MedicationID: medicationID, PharmacyID: p.ID, PharmacyName: p.Name}
}

func (p Pair) label() string {
	if p.PharmacyName != "" {
		return p.PharmacyName
	}
	return p.PharmacyID
}

// Ledger mutates stock through a transaction-bound StockStore.
type Ledger struct {
	stock store.StockStore
}

// New returns a Ledger over the given store.
func New(stock store.StockStore) *Ledger {
	return &Ledger{stock: stock}
}

// Increment adds amount to the pair, creating the row if needed. A non-nil
// restockedAt updates the restock timestamp.
func (l *Ledger) Increment(ctx context.Context, p Pair, amount int, restockedAt *time.Time) (*domain.Inventory, error) {
	if amount <= 0 {
		return nil, errors.Validation(map[string]string{"quantity": "must be greater than 0"})
	}
	return l.stock.Add(ctx, p.MedicationID, p.PharmacyID, amount, restockedAt)
}

// Decrement removes amount from the pair. It fails with InsufficientStock,
// leaving the row untouched, when the row is missing or holds less than amount.
func (l *Ledger) Decrement(ctx context.Context, p Pair, amount int) (*domain.Inventory, error) {
	if amount <= 0 {
		return nil, errors.Validation(map[string]string{"quantity": "must be greater than 0"})
	}

	inv, err := l.stock.SubtractIfAvailable(ctx, p.MedicationID, p.PharmacyID, amount)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, errors.InsufficientStock(p.label(), amount)
	}
	return inv, nil
}

// Adjust applies a signed change: positive deltas add stock, negative deltas
// remove it with the same guard as Decrement. A zero delta returns the current
// row, or nil when the pair has none.
func (l *Ledger) Adjust(ctx context.Context, p Pair, delta int) (*domain.Inventory, error) {
	switch {
	case delta > 0:
		return l.Increment(ctx, p, delta, nil)
	case delta < 0:
		return l.Decrement(ctx, p, -delta)
	default:
		inv, err := l.stock.Get(ctx, p.MedicationID, p.PharmacyID)
		if errors.Is(err, errors.ErrNotFound) {
			return nil, nil
		}
		return inv, err
	}
}

// SetAbsolute overwrites the pair's stock with newStock and stamps the restock
// time. It returns the previous level (zero when the row did not exist).
func (l *Ledger) SetAbsolute(ctx context.Context, p Pair, newStock int, at time.Time) (*domain.Inventory, int, error) {
	if newStock < 0 {
		return nil, 0, errors.Validation(map[string]string{"quantity": "must not be negative"})
	}

	current, err := l.stock.GetForUpdate(ctx, p.MedicationID, p.PharmacyID)
	if err != nil {
		return nil, 0, err
	}
	previous := 0
	if current != nil {
		previous = current.CurrentStock
	}

	inv, err := l.stock.Set(ctx, p.MedicationID, p.PharmacyID, newStock, at)
	if err != nil {
		return nil, 0, err
	}
	return inv, previous, nil
}

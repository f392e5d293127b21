// Package fees computes the per-unit fulfillment fee owed when the partner
// company is the requester.
package fees

import (
	"github.com/shopspring/decimal"
)

const (
	// FulfillmentPartner is the company whose orders carry a fee.
	FulfillmentPartner = "EONMeds"
	// FeePerUnit is charged for every unit dispensed to the partner.
	FeePerUnit = 15
)

// ComputeFulfillmentFee returns quantity * FeePerUnit for the partner and
// zero for every other company.
func ComputeFulfillmentFee(company string, quantity int) decimal.Decimal {
	return Default().Compute(company, quantity)
}

// Calculator holds a configurable partner and rate.
type Calculator struct {
	Partner string
	PerUnit decimal.Decimal
}

// Default returns the calculator with the standard partner and rate.
func Default() Calculator {
	return Calculator{Partner: FulfillmentPartner, PerUnit: decimal.NewFromInt(FeePerUnit)}
}

// New builds a Calculator, falling back to the defaults for empty values.
func New(partner string, perUnit int64) Calculator {
	c := Default()
	if partner != "" {
		c.Partner = partner
	}
	if perUnit > 0 {
		c.PerUnit = decimal.NewFromInt(perUnit)
	}
	return c
}

// Compute returns the fee for quantity units dispensed to company.
func (c Calculator) Compute(company string, quantity int) decimal.Decimal {
	if company != c.Partner || quantity <= 0 {
		return decimal.Zero
	}
	return c.PerUnit.Mul(decimal.NewFromInt(int64(quantity)))
}

// Applies reports whether company is charged a fee.
func (c Calculator) Applies(company string) bool {
	return company == c.Partner
}

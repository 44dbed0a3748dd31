// Package pricing turns a cart subtotal into the amounts shown at checkout.
//
// All arithmetic is exact decimal arithmetic. Rounding to cents happens only
// when a breakdown is prepared for display.
package pricing

import (
	"foodhub/internal/models"

	"github.com/shopspring/decimal"
)

// DisplayPlaces is the number of fractional digits shown to customers.
const DisplayPlaces = 2

// Policy carries the two configuration constants applied to every cart.
type Policy struct {
	DeliveryFee decimal.Decimal
	TaxRate     decimal.Decimal
}

// NewPolicy creates a pricing policy
func NewPolicy(deliveryFee, taxRate decimal.Decimal) Policy {
	return Policy{DeliveryFee: deliveryFee, TaxRate: taxRate}
}

// Apply computes the breakdown for subtotal under this policy
func (p Policy) Apply(subtotal decimal.Decimal) models.PricingBreakdown {
	return ComputeTotals(subtotal, p.DeliveryFee, p.TaxRate)
}

// ComputeTotals returns tax = subtotal*taxRate and
// total = subtotal + tax + deliveryFee.
func ComputeTotals(subtotal, deliveryFee, taxRate decimal.Decimal) models.PricingBreakdown {
	tax := subtotal.Mul(taxRate)
	return models.PricingBreakdown{
		Subtotal:    subtotal,
		Tax:         tax,
		DeliveryFee: deliveryFee,
		Total:       subtotal.Add(tax).Add(deliveryFee),
	}
}

// Subtotal sums unitPrice*quantity over items.
func Subtotal(items []models.LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.LineTotal())
	}
	return sum
}

// Round rounds d to cents, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(DisplayPlaces)
}

// Format renders d with exactly two fractional digits.
func Format(d decimal.Decimal) string {
	return d.StringFixed(DisplayPlaces)
}

// Display rounds every amount of b for presentation. Each figure is rounded
// on its own, so the displayed parts may not add up to the displayed total.
func Display(b models.PricingBreakdown) models.PricingDisplay {
	return models.PricingDisplay{
		Subtotal:    Format(b.Subtotal),
		Tax:         Format(b.Tax),
		DeliveryFee: Format(b.DeliveryFee),
		Total:       Format(b.Total),
	}
}

package quotes

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Pricing holds the shop-wide tax and deposit configuration.
type Pricing struct {
	TaxRate    decimal.Decimal
	DepositPct decimal.Decimal
}

// Amounts is the priced breakdown stored on an order.
type Amounts struct {
	Subtotal   decimal.Decimal
	Tax        decimal.Decimal
	Total      decimal.Decimal
	DepositPct decimal.Decimal
	Deposit    decimal.Decimal
}

// Compute prices subtotal. Tax and deposit are rounded to cents; the total
// is the exact sum of the rounded parts.
func (p Pricing) Compute(subtotal decimal.Decimal) Amounts {
	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(p.TaxRate).Round(2)
	total := subtotal.Add(tax)
	deposit := total.Mul(p.DepositPct).Div(hundred).Round(2)
	return Amounts{
		Subtotal:   subtotal,
		Tax:        tax,
		Total:      total,
		DepositPct: p.DepositPct,
		Deposit:    deposit,
	}
}

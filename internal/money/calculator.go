// Package money computes estimate totals, deposits and milestone splits.
//
// All arithmetic is done on exact decimals. Values are rounded half-up to
// whole cents once, when they leave this package as int64 cents.
package money

import (
	"fmt"

	"github.com/dukerupert/bidwell/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)

	// PercentTolerance is how far a set of milestone percentages may drift
	// from 100 and still be accepted.
	PercentTolerance = decimal.New(1, -2)
)

// Input is everything needed to price an estimate.
type Input struct {
	Items         []domain.LineItem
	TaxRate       decimal.Decimal // percent, e.g. 8 for 8%
	DiscountCents int64
	ShippingCents int64
	Deposit       domain.DepositSpec
}

// Totals is the priced result. Subtotal and Tax keep full precision for
// callers that need it; the *Cents fields are what gets persisted.
type Totals struct {
	Subtotal      decimal.Decimal
	Tax           decimal.Decimal
	SubtotalCents int64
	TaxCents      int64
	DiscountCents int64
	ShippingCents int64
	TotalCents    int64
	DepositCents  int64
}

// Calculate prices an estimate:
//
//	subtotal = Σ(qty * rate)
//	tax      = subtotal * taxRate / 100
//	total    = subtotal + tax - discount + shipping
//
// Total is assembled from the rounded subtotal and tax so the persisted
// cents always satisfy the equation exactly.
func Calculate(in Input) (Totals, error) {
	const op = "money.calculate"

	if in.TaxRate.IsNegative() {
		return Totals{}, domain.InvalidAmount(op, "tax_rate", "must not be negative")
	}
	if in.DiscountCents < 0 {
		return Totals{}, domain.InvalidAmount(op, "discount", "must not be negative")
	}
	if in.ShippingCents < 0 {
		return Totals{}, domain.InvalidAmount(op, "shipping", "must not be negative")
	}

	subtotal := decimal.Zero
	for i, item := range in.Items {
		if item.Quantity.IsNegative() {
			return Totals{}, domain.InvalidAmount(op, fmt.Sprintf("items[%d].quantity", i), "must not be negative")
		}
		if item.UnitRate.IsNegative() {
			return Totals{}, domain.InvalidAmount(op, fmt.Sprintf("items[%d].unit_rate", i), "must not be negative")
		}
		subtotal = subtotal.Add(item.Quantity.Mul(item.UnitRate))
	}

	tax := subtotal.Mul(in.TaxRate).Div(hundred)

	t := Totals{
		Subtotal:      subtotal,
		Tax:           tax,
		SubtotalCents: ToCents(subtotal),
		TaxCents:      ToCents(tax),
		DiscountCents: in.DiscountCents,
		ShippingCents: in.ShippingCents,
	}
	t.TotalCents = t.SubtotalCents + t.TaxCents - t.DiscountCents + t.ShippingCents
	if t.TotalCents < 0 {
		return Totals{}, domain.InvalidAmount(op, "discount", "exceeds the estimate total")
	}

	deposit, err := DepositCents(t.TotalCents, in.Deposit)
	if err != nil {
		return Totals{}, err
	}
	t.DepositCents = deposit

	return t, nil
}

// DepositCents computes the deposit owed on a total. A percent deposit is
// total * value / 100; a fixed deposit is value in currency units.
func DepositCents(totalCents int64, spec domain.DepositSpec) (int64, error) {
	const op = "money.deposit"

	switch spec.Type {
	case domain.DepositNone, "":
		return 0, nil

	case domain.DepositPercent:
		if spec.Value.IsNegative() || spec.Value.GreaterThan(hundred) {
			return 0, domain.InvalidAmount(op, "deposit.value", "percentage must be between 0 and 100")
		}
		return ToCents(FromCents(totalCents).Mul(spec.Value).Div(hundred)), nil

	case domain.DepositFixed:
		if spec.Value.IsNegative() {
			return 0, domain.InvalidAmount(op, "deposit.value", "must not be negative")
		}
		cents := ToCents(spec.Value)
		if cents > totalCents {
			return 0, domain.InvalidAmount(op, "deposit.value", "exceeds the estimate total")
		}
		return cents, nil

	default:
		return 0, domain.NewValidationError(op, "deposit.type", fmt.Sprintf("unknown deposit type %q", spec.Type))
	}
}

// CheckPercentages verifies that percentages are non-negative and sum to
// 100 within PercentTolerance.
func CheckPercentages(percentages []decimal.Decimal) error {
	const op = "money.percentages"

	if len(percentages) == 0 {
		return domain.Invalid(op, "at least one stage is required")
	}

	sum := decimal.Zero
	for i, p := range percentages {
		if p.IsNegative() {
			return domain.InvalidAmount(op, fmt.Sprintf("stages[%d].percentage", i), "must not be negative")
		}
		sum = sum.Add(p)
	}

	if sum.Sub(hundred).Abs().GreaterThan(PercentTolerance) {
		return domain.WithOp(domain.ErrPercentageSum, op)
	}
	return nil
}

// SplitByPercentage divides totalCents into one amount per percentage.
// Each share is rounded half-up and the last share takes the remainder,
// so the amounts always add back to totalCents.
func SplitByPercentage(totalCents int64, percentages []decimal.Decimal) ([]int64, error) {
	if totalCents < 0 {
		return nil, domain.InvalidAmount("money.split", "total", "must not be negative")
	}
	if err := CheckPercentages(percentages); err != nil {
		return nil, err
	}

	total := FromCents(totalCents)
	amounts := make([]int64, len(percentages))

	var allocated int64
	for i, p := range percentages[:len(percentages)-1] {
		amounts[i] = ToCents(total.Mul(p).Div(hundred))
		allocated += amounts[i]
	}

	last := totalCents - allocated
	if last < 0 {
		return nil, domain.WithOp(domain.ErrPercentageSum, "money.split")
	}
	amounts[len(amounts)-1] = last

	return amounts, nil
}

// PercentageOf expresses part as a percentage of total, to six places.
func PercentageOf(partCents, totalCents int64) decimal.Decimal {
	if totalCents == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(partCents).Mul(hundred).DivRound(decimal.NewFromInt(totalCents), 6)
}

// ToCents rounds a currency amount half-up to whole cents.
// Inputs here are never negative, so Round's half-away-from-zero is half-up.
func ToCents(d decimal.Decimal) int64 {
	return d.Mul(hundred).Round(0).IntPart()
}

// FromCents converts cents back to an exact currency amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// FormatCents renders cents as a dollar string, e.g. 108000 -> "$1080.00".
func FormatCents(cents int64) string {
	return "$" + FromCents(cents).StringFixed(2)
}

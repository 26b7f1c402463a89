package money_test

import (
	"testing"

	"github.com/dukerupert/bidwell/internal/domain"
	"github.com/dukerupert/bidwell/internal/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func item(desc, qty, rate string) domain.LineItem {
	return domain.LineItem{Description: desc, Quantity: d(qty), UnitRate: d(rate)}
}

// Test_Calculate_DepositScenario: $1000 subtotal, 8% tax, 30% deposit.
func Test_Calculate_DepositScenario(t *testing.T) {
	totals, err := money.Calculate(money.Input{
		Items:   []domain.LineItem{item("Kitchen remodel", "1", "1000")},
		TaxRate: d("8"),
		Deposit: domain.DepositSpec{Type: domain.DepositPercent, Value: d("30")},
	})

	require.NoError(t, err)
	assert.Equal(t, int64(100000), totals.SubtotalCents)
	assert.Equal(t, int64(8000), totals.TaxCents)
	assert.Equal(t, int64(108000), totals.TotalCents)
	assert.Equal(t, int64(32400), totals.DepositCents)
	assert.Equal(t, "$1080.00", money.FormatCents(totals.TotalCents))
	assert.Equal(t, "$324.00", money.FormatCents(totals.DepositCents))
}

func Test_Calculate_TotalEquation(t *testing.T) {
	tests := []struct {
		name     string
		items    []domain.LineItem
		taxRate  string
		discount int64
		shipping int64
	}{
		{"fractional quantities", []domain.LineItem{item("Labor", "7.5", "85.33"), item("Drywall", "12", "14.99")}, "8.25", 1500, 4500},
		{"repeating tax", []domain.LineItem{item("Paint", "3", "33.33")}, "7.125", 0, 0},
		{"no tax", []domain.LineItem{item("Consult", "1", "150")}, "0", 0, 2500},
		{"many small items", []domain.LineItem{
			item("Screws", "100", "0.015"), item("Nails", "333", "0.005"), item("Glue", "1", "4.995"),
		}, "6.5", 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totals, err := money.Calculate(money.Input{
				Items:         tt.items,
				TaxRate:       d(tt.taxRate),
				DiscountCents: tt.discount,
				ShippingCents: tt.shipping,
			})
			require.NoError(t, err)

			assert.Equal(t,
				totals.SubtotalCents+totals.TaxCents-totals.DiscountCents+totals.ShippingCents,
				totals.TotalCents,
				"total = subtotal + tax - discount + shipping")
		})
	}
}

func Test_Calculate_RoundsHalfUpOnce(t *testing.T) {
	// 3 * 0.335 = 1.005 exactly; rounding once gives 1.01.
	totals, err := money.Calculate(money.Input{
		Items:   []domain.LineItem{item("Widget", "3", "0.335")},
		TaxRate: d("0"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(101), totals.SubtotalCents)

	// Per-item rounding would give 0.34*3 = 1.02; exact accumulation must not.
	assert.True(t, totals.Subtotal.Equal(d("1.005")))
}

func Test_Calculate_RejectsNegativeAmounts(t *testing.T) {
	tests := []struct {
		name  string
		input money.Input
		field string
	}{
		{"negative quantity", money.Input{Items: []domain.LineItem{item("x", "-1", "10")}}, "items[0].quantity"},
		{"negative rate", money.Input{Items: []domain.LineItem{item("x", "1", "-10")}}, "items[0].unit_rate"},
		{"negative tax", money.Input{TaxRate: d("-1")}, "tax_rate"},
		{"negative discount", money.Input{DiscountCents: -1}, "discount"},
		{"negative shipping", money.Input{ShippingCents: -1}, "shipping"},
		{"discount exceeds total", money.Input{Items: []domain.LineItem{item("x", "1", "10")}, DiscountCents: 1001}, "discount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := money.Calculate(tt.input)
			require.Error(t, err)
			assert.True(t, domain.IsValidationError(err))
			assert.Contains(t, domain.GetValidationFields(err), tt.field)
		})
	}
}

func Test_DepositCents(t *testing.T) {
	tests := []struct {
		name    string
		total   int64
		spec    domain.DepositSpec
		want    int64
		wantErr bool
	}{
		{"none", 108000, domain.DepositSpec{Type: domain.DepositNone}, 0, false},
		{"zero value percent", 108000, domain.DepositSpec{Type: domain.DepositPercent, Value: d("0")}, 0, false},
		{"percent half-up", 1001, domain.DepositSpec{Type: domain.DepositPercent, Value: d("50")}, 501, false},
		{"full percent", 108000, domain.DepositSpec{Type: domain.DepositPercent, Value: d("100")}, 108000, false},
		{"fixed", 108000, domain.DepositSpec{Type: domain.DepositFixed, Value: d("250.50")}, 25050, false},
		{"percent over 100", 108000, domain.DepositSpec{Type: domain.DepositPercent, Value: d("100.01")}, 0, true},
		{"percent negative", 108000, domain.DepositSpec{Type: domain.DepositPercent, Value: d("-5")}, 0, true},
		{"fixed negative", 108000, domain.DepositSpec{Type: domain.DepositFixed, Value: d("-1")}, 0, true},
		{"fixed over total", 10000, domain.DepositSpec{Type: domain.DepositFixed, Value: d("100.01")}, 0, true},
		{"unknown type", 10000, domain.DepositSpec{Type: "bitcoin", Value: d("1")}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := money.DepositCents(tt.total, tt.spec)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, domain.IsValidationError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_SplitByPercentage_ThirtyFortyThirty(t *testing.T) {
	amounts, err := money.SplitByPercentage(100000, []decimal.Decimal{d("30"), d("40"), d("30")})

	require.NoError(t, err)
	assert.Equal(t, []int64{30000, 40000, 30000}, amounts)
}

func Test_SplitByPercentage_SumsToTotal(t *testing.T) {
	tests := []struct {
		name  string
		total int64
		pcts  []string
	}{
		{"thirds", 100000, []string{"33.33", "33.33", "33.34"}},
		{"odd cents", 100001, []string{"25", "25", "25", "25"}},
		{"within tolerance", 54321, []string{"33.333", "33.333", "33.333"}},
		{"single stage", 777, []string{"100"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pcts := make([]decimal.Decimal, len(tt.pcts))
			for i, p := range tt.pcts {
				pcts[i] = d(p)
			}

			amounts, err := money.SplitByPercentage(tt.total, pcts)
			require.NoError(t, err)

			var sum int64
			for _, a := range amounts {
				assert.GreaterOrEqual(t, a, int64(0))
				sum += a
			}
			assert.Equal(t, tt.total, sum)
		})
	}
}

func Test_CheckPercentages_RejectsBadSums(t *testing.T) {
	tests := []struct {
		name string
		pcts []string
	}{
		{"under", []string{"30", "40", "29"}},
		{"over", []string{"30", "40", "31"}},
		{"just outside tolerance", []string{"50", "49.98"}},
		{"negative stage", []string{"110", "-10"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pcts := make([]decimal.Decimal, len(tt.pcts))
			for i, p := range tt.pcts {
				pcts[i] = d(p)
			}
			err := money.CheckPercentages(pcts)
			require.Error(t, err)
			assert.True(t, domain.IsCode(err, domain.EINVALID))
		})
	}

	assert.Error(t, money.CheckPercentages(nil))
	assert.NoError(t, money.CheckPercentages([]decimal.Decimal{d("50"), d("49.99")}))
}

func Test_PercentageOf(t *testing.T) {
	assert.True(t, money.PercentageOf(40000, 100000).Equal(d("40")))
	assert.True(t, money.PercentageOf(1, 3).Equal(d("33.333333")))
	assert.True(t, money.PercentageOf(5, 0).IsZero())
}

package commission

import (
	"github.com/shopspring/decimal"
)

type Mode int

const (
	// ModeAuto switches to proportional allocation when the line items do not
	// reconcile with the recorded sale total.
	ModeAuto Mode = iota
	// ModeDirect always uses the category subtotal as the commission base.
	ModeDirect
)

type Method string

const (
	MethodDirect       Method = "direct"
	MethodProportional Method = "proportional"
)

const (
	ReasonNoRate       = "No commission rate set"
	ReasonExists       = "Already exists"
	ReasonNoItems      = "No line items in category"
	ReasonZeroSubtotal = "Line item subtotal is zero, proportional allocation undefined"
)

// Tolerance is the absolute amount, in the sale's currency, below which two
// figures are treated as equal.
var Tolerance = decimal.New(1, -2)

type Input struct {
	SaleTotal        decimal.Decimal
	CategorySubtotal decimal.Decimal
	AllItemsSubtotal decimal.Decimal
	ItemCount        int
	RatePercent      decimal.Decimal
}

type Result struct {
	Amount  decimal.Decimal `json:"amount"`
	Method  Method          `json:"method,omitempty"`
	Skipped bool            `json:"skipped"`
	Reason  string          `json:"reason,omitempty"`
}

// Round2 rounds to the cent, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Mismatched reports whether the line item sum disagrees with the recorded
// sale total by more than Tolerance.
func Mismatched(saleTotal, allItemsSubtotal decimal.Decimal) bool {
	return saleTotal.Sub(allItemsSubtotal).Abs().GreaterThan(Tolerance)
}

// Drifted reports whether a stored amount differs from a recomputed one by
// more than Tolerance.
func Drifted(stored, recomputed decimal.Decimal) bool {
	return stored.Sub(recomputed).Abs().GreaterThan(Tolerance)
}

func Direct(categorySubtotal, ratePercent decimal.Decimal) decimal.Decimal {
	return Round2(categorySubtotal.Mul(ratePercent).Div(hundred))
}

// Proportional scales the category's share of the line items onto the sale
// total. ok is false when the line items sum to zero.
func Proportional(saleTotal, categorySubtotal, allItemsSubtotal, ratePercent decimal.Decimal) (decimal.Decimal, bool) {
	if allItemsSubtotal.IsZero() {
		return decimal.Zero, false
	}
	num := saleTotal.Mul(categorySubtotal).Mul(ratePercent)
	den := allItemsSubtotal.Mul(hundred)
	return Round2(num.Div(den)), true
}

func Calculate(in Input, mode Mode) Result {
	if in.ItemCount == 0 {
		return Result{Skipped: true, Reason: ReasonNoItems}
	}

	if mode == ModeDirect || !Mismatched(in.SaleTotal, in.AllItemsSubtotal) {
		return Result{
			Amount: Direct(in.CategorySubtotal, in.RatePercent),
			Method: MethodDirect,
		}
	}

	amount, ok := Proportional(in.SaleTotal, in.CategorySubtotal, in.AllItemsSubtotal, in.RatePercent)
	if !ok {
		return Result{Skipped: true, Reason: ReasonZeroSubtotal, Method: MethodProportional}
	}
	return Result{Amount: amount, Method: MethodProportional}
}

// Expectation holds both candidate amounts for manual audit. Proportional is
// nil when it is undefined.
type Expectation struct {
	Direct       decimal.Decimal  `json:"expected_direct"`
	Proportional *decimal.Decimal `json:"expected_proportional"`
	Method       Method           `json:"method"`
}

func Expected(in Input) Expectation {
	exp := Expectation{
		Direct: Direct(in.CategorySubtotal, in.RatePercent),
		Method: MethodDirect,
	}
	if p, ok := Proportional(in.SaleTotal, in.CategorySubtotal, in.AllItemsSubtotal, in.RatePercent); ok {
		exp.Proportional = &p
	}
	if Mismatched(in.SaleTotal, in.AllItemsSubtotal) {
		exp.Method = MethodProportional
	}
	return exp
}

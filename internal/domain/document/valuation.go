package document

import (
	"fmt"

	"github.com/shopspring/decimal"

	"tradebook/internal/core/apperror"
	"tradebook/internal/core/id"
	"tradebook/internal/core/types"
)

var hundred = decimal.NewFromInt(100)

// numericLimit mirrors a NUMERIC(precision, scale) column.
type numericLimit struct {
	precision int32
	scale     int32
}

// Limits of the line and header columns.
var (
	quantityLimit   = numericLimit{precision: 18, scale: 6}
	unitPriceLimit  = numericLimit{precision: 18, scale: 6}
	discountLimit   = numericLimit{precision: 18, scale: 2}
	taxPercentLimit = numericLimit{precision: 7, scale: 4}
	amountLimit     = numericLimit{precision: 18, scale: 2}
)

// fits reports whether v is stored without rounding or overflow.
func (l numericLimit) fits(v decimal.Decimal) bool {
	if !v.Equal(v.Truncate(l.scale)) {
		return false
	}
	return v.Abs().LessThan(decimal.New(1, l.precision-l.scale))
}

func (l numericLimit) check(field string, v decimal.Decimal) error {
	if !v.Equal(v.Truncate(l.scale)) {
		return apperror.NewInvalidLine(field, fmt.Sprintf("%s allows at most %d decimal places", field, l.scale)).
			WithDetail("value", v.String())
	}
	if !l.fits(v) {
		return apperror.NewInvalidLine(field, field+" is out of range").
			WithDetail("value", v.String())
	}
	return nil
}

// Valuation is the computed money of one line.
type Valuation struct {
	LineAmount types.Money
	LineTax    types.Money
}

// Totals are the document aggregates.
type Totals struct {
	Subtotal   types.Money
	TaxTotal   types.Money
	GrandTotal types.Money
}

// Valuate computes the line amount and tax for a single draft line.
//
//	line_amount = round(quantity * unit_price - discount, 2)
//	line_tax    = round(line_amount * tax_percent / 100, 2)
//
// A negative line_amount (discount above the gross) is allowed. Inputs and
// results must fit their storage columns exactly.
func Valuate(line DraftLine) (Valuation, error) {
	if !line.Quantity.IsPositive() {
		return Valuation{}, apperror.NewInvalidLine("quantity", "quantity must be greater than zero").
			WithDetail("value", line.Quantity.String())
	}
	if err := quantityLimit.check("quantity", line.Quantity); err != nil {
		return Valuation{}, err
	}
	if err := unitPriceLimit.check("unit_price", line.UnitPrice); err != nil {
		return Valuation{}, err
	}

	discount := types.OrZero(line.Discount)
	if discount.IsNegative() {
		return Valuation{}, apperror.NewInvalidLine("discount", "discount must not be negative").
			WithDetail("value", discount.String())
	}
	if err := discountLimit.check("discount", discount); err != nil {
		return Valuation{}, err
	}

	taxPercent := types.OrZero(line.TaxPercent)
	if taxPercent.IsNegative() || taxPercent.GreaterThan(hundred) {
		return Valuation{}, apperror.NewInvalidLine("tax_percent", "tax percent must be between 0 and 100").
			WithDetail("value", taxPercent.String())
	}
	if err := taxPercentLimit.check("tax_percent", taxPercent); err != nil {
		return Valuation{}, err
	}

	amount := types.RoundMoney(line.Quantity.Mul(line.UnitPrice).Sub(discount))
	if !amountLimit.fits(amount) {
		return Valuation{}, apperror.NewInvalidLine("line_amount", "line amount is out of range").
			WithDetail("value", amount.String())
	}
	tax := types.RoundMoney(amount.Mul(taxPercent).Div(hundred))

	return Valuation{LineAmount: amount, LineTax: tax}, nil
}

// Totalize sums already-rounded line values.
func Totalize(vals []Valuation) (Totals, error) {
	if len(vals) == 0 {
		return Totals{}, apperror.NewEmptyDocument()
	}

	sub := decimal.Zero
	tax := decimal.Zero
	for _, v := range vals {
		sub = sub.Add(v.LineAmount)
		tax = tax.Add(v.LineTax)
	}

	grand := types.RoundMoney(sub.Add(tax))
	if !amountLimit.fits(sub) || !amountLimit.fits(grand) {
		return Totals{}, apperror.NewValidation("document total is out of range").
			WithDetail("field", "grand_total").
			WithDetail("value", grand.String())
	}

	return Totals{
		Subtotal:   sub,
		TaxTotal:   tax,
		GrandTotal: grand,
	}, nil
}

// buildLines values every draft line, failing on the first invalid one, and
// returns stored lines numbered from 1 together with the totals.
func buildLines(docID id.ID, drafts []DraftLine) ([]LineItem, Totals, error) {
	if len(drafts) == 0 {
		return nil, Totals{}, apperror.NewEmptyDocument()
	}

	lines := make([]LineItem, len(drafts))
	vals := make([]Valuation, len(drafts))
	for i, d := range drafts {
		v, err := Valuate(d)
		if err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				return nil, Totals{}, appErr.WithDetail("lineNo", i+1)
			}
			return nil, Totals{}, err
		}
		vals[i] = v
		lines[i] = LineItem{
			LineID:        id.New(),
			DocumentID:    docID,
			LineNo:        i + 1,
			ItemReference: d.ItemReference,
			Description:   d.Description,
			Quantity:      d.Quantity,
			UnitPrice:     d.UnitPrice,
			Discount:      types.OrZero(d.Discount),
			TaxPercent:    types.OrZero(d.TaxPercent),
			LineAmount:    v.LineAmount,
			LineTax:       v.LineTax,
		}
	}

	totals, err := Totalize(vals)
	if err != nil {
		return nil, Totals{}, err
	}
	return lines, totals, nil
}

func (d *Document) applyTotals(t Totals) {
	d.Subtotal = t.Subtotal
	d.TaxTotal = t.TaxTotal
	d.GrandTotal = t.GrandTotal
}

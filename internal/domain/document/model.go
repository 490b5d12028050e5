// Package document implements the posting engine for trade documents:
// sales invoices and purchase bills made of a header and ordered lines whose
// aggregates are kept consistent inside one storage transaction.
package document

import (
	"time"

	"github.com/shopspring/decimal"

	"tradebook/internal/core/id"
	"tradebook/internal/core/types"
	"tradebook/internal/domain/catalogs/party"
)

// Kind identifies the document family. Each kind has its own tables.
type Kind string

const (
	KindSalesInvoice Kind = "sales_invoice"
	KindPurchaseBill Kind = "purchase_bill"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindSalesInvoice || k == KindPurchaseBill
}

// PartyRole is the role the counterparty plays for this kind.
func (k Kind) PartyRole() party.Type {
	if k == KindPurchaseBill {
		return party.TypeVendor
	}
	return party.TypeCustomer
}

// Document is a committed header with its lines.
type Document struct {
	ID               id.ID       `db:"id"`
	Kind             Kind        `db:"-"`
	DocumentNo       string      `db:"document_no"`
	CounterpartyID   *id.ID      `db:"counterparty_id"`
	CounterpartyName *string     `db:"counterparty_name"`
	DocumentDate     time.Time   `db:"document_date"`
	Notes            *string     `db:"notes"`
	Subtotal         types.Money `db:"subtotal"`
	TaxTotal         types.Money `db:"tax_total"`
	GrandTotal       types.Money `db:"grand_total"`
	CreatedAt        time.Time   `db:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at"`

	Lines []LineItem `db:"-"`
}

// LineItem is one valued line of a document.
type LineItem struct {
	LineID        id.ID           `db:"line_id"`
	DocumentID    id.ID           `db:"document_id"`
	LineNo        int             `db:"line_no"`
	ItemReference *string         `db:"item_reference"`
	Description   *string         `db:"description"`
	Quantity      decimal.Decimal `db:"quantity"`
	UnitPrice     types.Money     `db:"unit_price"`
	Discount      types.Money     `db:"discount"`
	TaxPercent    decimal.Decimal `db:"tax_percent"`
	LineAmount    types.Money     `db:"line_amount"`
	LineTax       types.Money     `db:"line_tax"`
}

// Summary is a list row: header and aggregates without lines.
type Summary struct {
	ID               id.ID       `db:"id"`
	DocumentNo       string      `db:"document_no"`
	CounterpartyID   *id.ID      `db:"counterparty_id"`
	CounterpartyName *string     `db:"counterparty_name"`
	DocumentDate     time.Time   `db:"document_date"`
	Subtotal         types.Money `db:"subtotal"`
	TaxTotal         types.Money `db:"tax_total"`
	GrandTotal       types.Money `db:"grand_total"`
	LineCount        int         `db:"line_count"`
	CreatedAt        time.Time   `db:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at"`
}

// Draft is the caller's input for Post, already in canonical field names.
type Draft struct {
	DocumentNo     string
	CounterpartyID *id.ID
	DocumentDate   *time.Time
	Notes          *string
	Lines          []DraftLine
}

// DraftLine is an unvalued line. Nil Discount and TaxPercent mean zero.
type DraftLine struct {
	ItemReference *string
	Description   *string
	Quantity      decimal.Decimal
	UnitPrice     types.Money
	Discount      *types.Money
	TaxPercent    *decimal.Decimal
}

// HeaderPatch changes header fields only. Nil fields are left untouched.
type HeaderPatch struct {
	DocumentNo        *string
	CounterpartyID    *id.ID
	ClearCounterparty bool
	DocumentDate      *time.Time
	Notes             *string
}

// IsEmpty reports whether the patch changes nothing.
func (p HeaderPatch) IsEmpty() bool {
	return p.DocumentNo == nil && p.CounterpartyID == nil && !p.ClearCounterparty &&
		p.DocumentDate == nil && p.Notes == nil
}

// ListFilter narrows document summaries.
type ListFilter struct {
	Search         string
	CounterpartyID *id.ID
	DateFrom       *time.Time
	DateTo         *time.Time
	OrderBy        string
	Limit          int
	Offset         int
}

// snapshot renders the document for the audit trail.
func (d *Document) snapshot() map[string]any {
	lines := make([]map[string]any, len(d.Lines))
	for i, l := range d.Lines {
		lines[i] = map[string]any{
			"line_no":        l.LineNo,
			"item_reference": l.ItemReference,
			"description":    l.Description,
			"quantity":       l.Quantity.String(),
			"unit_price":     l.UnitPrice.String(),
			"discount":       types.FormatMoney(l.Discount),
			"tax_percent":    l.TaxPercent.String(),
			"line_amount":    types.FormatMoney(l.LineAmount),
			"line_tax":       types.FormatMoney(l.LineTax),
		}
	}
	s := d.headerSnapshot()
	s["lines"] = lines
	return s
}

func (d *Document) headerSnapshot() map[string]any {
	return map[string]any{
		"document_no":       d.DocumentNo,
		"counterparty_id":   id.StringPtr(d.CounterpartyID),
		"counterparty_name": d.CounterpartyName,
		"document_date":     d.DocumentDate.Format(types.DateLayout),
		"notes":             d.Notes,
		"subtotal":          types.FormatMoney(d.Subtotal),
		"tax_total":         types.FormatMoney(d.TaxTotal),
		"grand_total":       types.FormatMoney(d.GrandTotal),
		"line_count":        len(d.Lines),
	}
}

package dto

import (
	"encoding/json"
	"strings"
	"time"

	"tradebook/internal/core/apperror"
	"tradebook/internal/core/id"
	"tradebook/internal/core/types"
	"tradebook/internal/domain/document"
)

// Accepted aliases, canonical name first.
var (
	documentNoAliases   = []string{"document_no", "invoice_no", "bill_no"}
	counterpartyAliases = []string{"counterparty_id", "customer_id", "vendor_id"}
	documentDateAliases = []string{"document_date", "date", "invoice_date", "bill_date"}
	itemRefAliases      = []string{"item_reference", "item_id", "id"}
	unitPriceAliases    = []string{"unit_price", "price", "rate"}
	taxPercentAliases   = []string{"tax_percent", "tax", "tax_rate"}
)

// --- Request DTOs ---

// DocumentRequest is the body of create and update calls for any kind.
type DocumentRequest struct {
	DocumentNo     *string       `binding:"omitempty,notblank,max=64"`
	CounterpartyID Flex          `binding:"-"`
	DocumentDate   Flex          `binding:"-"`
	Notes          *string       `binding:"omitempty,max=2000"`
	Lines          []LineRequest `binding:"omitempty,max=1000,dive"`

	counterpartyPresent bool
	linesPresent        bool
}

// UnmarshalJSON folds aliases onto canonical fields.
func (r *DocumentRequest) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = DocumentRequest{}
	if _, err := pickInto(raw, &r.DocumentNo, documentNoAliases...); err != nil {
		return err
	}
	present, err := pickInto(raw, &r.CounterpartyID, counterpartyAliases...)
	if err != nil {
		return err
	}
	r.counterpartyPresent = present
	if _, err := pickInto(raw, &r.DocumentDate, documentDateAliases...); err != nil {
		return err
	}
	if _, err := pickInto(raw, &r.Notes, "notes"); err != nil {
		return err
	}
	if v, ok := raw["lines"]; ok && !isNull(v) {
		r.linesPresent = true
		if err := json.Unmarshal(v, &r.Lines); err != nil {
			return &FieldError{Field: "lines", Err: err}
		}
	}
	return nil
}

// HasLines reports whether the body carried a lines array.
func (r *DocumentRequest) HasLines() bool {
	return r.linesPresent
}

// ToDraft converts a create body into a draft.
func (r *DocumentRequest) ToDraft() (document.Draft, error) {
	draft := document.Draft{Notes: r.Notes}
	if r.DocumentNo != nil {
		draft.DocumentNo = *r.DocumentNo
	}

	var err error
	if draft.CounterpartyID, err = r.counterparty(); err != nil {
		return draft, err
	}
	if draft.DocumentDate, err = parseDate(r.DocumentDate, "document_date"); err != nil {
		return draft, err
	}
	if draft.Lines, err = r.DraftLines(); err != nil {
		return draft, err
	}
	return draft, nil
}

// ToPatch converts an update body into a header patch. An explicit null
// counterparty clears it.
func (r *DocumentRequest) ToPatch() (document.HeaderPatch, error) {
	patch := document.HeaderPatch{
		DocumentNo: r.DocumentNo,
		Notes:      r.Notes,
	}

	var err error
	if patch.CounterpartyID, err = r.counterparty(); err != nil {
		return patch, err
	}
	patch.ClearCounterparty = r.counterpartyPresent && !r.CounterpartyID.IsSet()

	if patch.DocumentDate, err = parseDate(r.DocumentDate, "document_date"); err != nil {
		return patch, err
	}
	return patch, nil
}

// DraftLines converts every line, numbering errors from 1.
func (r *DocumentRequest) DraftLines() ([]document.DraftLine, error) {
	return toDraftLines(r.Lines)
}

func (r *DocumentRequest) counterparty() (*id.ID, error) {
	if !r.CounterpartyID.IsSet() || r.CounterpartyID.String() == "" {
		return nil, nil
	}
	cp, err := id.Parse(r.CounterpartyID.String())
	if err != nil {
		return nil, apperror.NewValidation("counterparty_id must be a UUID").
			WithDetail("field", "counterparty_id")
	}
	return &cp, nil
}

// ReplaceLinesRequest is the body of PUT /:id/lines.
type ReplaceLinesRequest struct {
	Lines []LineRequest `json:"lines" binding:"omitempty,max=1000,dive"`
}

// DraftLines converts every line.
func (r *ReplaceLinesRequest) DraftLines() ([]document.DraftLine, error) {
	return toDraftLines(r.Lines)
}

// LineRequest is one unvalued line.
type LineRequest struct {
	ItemReference Flex    `binding:"-"`
	Description   *string `binding:"omitempty,max=1000"`
	Quantity      Flex    `binding:"-"`
	UnitPrice     Flex    `binding:"-"`
	Discount      Flex    `binding:"-"`
	TaxPercent    Flex    `binding:"-"`
}

// UnmarshalJSON folds aliases onto canonical fields.
func (l *LineRequest) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*l = LineRequest{}
	fields := []struct {
		dst     any
		aliases []string
	}{
		{&l.ItemReference, itemRefAliases},
		{&l.Description, []string{"description"}},
		{&l.Quantity, []string{"quantity"}},
		{&l.UnitPrice, unitPriceAliases},
		{&l.Discount, []string{"discount"}},
		{&l.TaxPercent, taxPercentAliases},
	}
	for _, f := range fields {
		if _, err := pickInto(raw, f.dst, f.aliases...); err != nil {
			return err
		}
	}
	return nil
}

// ToDraftLine converts the line. lineNo is 1-based and only used in errors.
func (l *LineRequest) ToDraftLine(lineNo int) (document.DraftLine, error) {
	line := document.DraftLine{
		ItemReference: l.ItemReference.StringPtr(),
		Description:   l.Description,
	}

	var err error
	if line.Quantity, err = requiredNumber(l.Quantity, "quantity"); err != nil {
		return line, withLineNo(err, lineNo)
	}
	if line.UnitPrice, err = requiredNumber(l.UnitPrice, "unit_price"); err != nil {
		return line, withLineNo(err, lineNo)
	}
	if l.Discount.IsSet() {
		d, err := requiredNumber(l.Discount, "discount")
		if err != nil {
			return line, withLineNo(err, lineNo)
		}
		line.Discount = &d
	}
	if l.TaxPercent.IsSet() {
		t, err := requiredNumber(l.TaxPercent, "tax_percent")
		if err != nil {
			return line, withLineNo(err, lineNo)
		}
		line.TaxPercent = &t
	}
	return line, nil
}

func toDraftLines(lines []LineRequest) ([]document.DraftLine, error) {
	out := make([]document.DraftLine, len(lines))
	for i := range lines {
		l, err := lines[i].ToDraftLine(i + 1)
		if err != nil {
			return nil, err
		}
		out[i] = l
	}
	return out, nil
}

func requiredNumber(f Flex, field string) (types.Money, error) {
	if !f.IsSet() || f.String() == "" {
		return types.Zero(), apperror.NewInvalidLine(field, field+" is required")
	}
	d, err := f.Decimal()
	if err != nil {
		return types.Zero(), apperror.NewInvalidLine(field, field+" must be a number").
			WithDetail("value", f.String())
	}
	return d, nil
}

func withLineNo(err error, lineNo int) error {
	if appErr, ok := apperror.AsAppError(err); ok {
		return appErr.WithDetail("lineNo", lineNo)
	}
	return err
}

// parseDate accepts a calendar date or an RFC 3339 timestamp.
func parseDate(f Flex, field string) (*time.Time, error) {
	if !f.IsSet() || f.String() == "" {
		return nil, nil
	}
	for _, layout := range []string{types.DateLayout, time.RFC3339} {
		if t, err := time.Parse(layout, f.String()); err == nil {
			d := types.DateOnly(t)
			return &d, nil
		}
	}
	return nil, apperror.NewValidation(field+" must be a date (YYYY-MM-DD)").
		WithDetail("field", field).
		WithDetail("value", f.String())
}

// DocumentListQuery holds list query parameters.
type DocumentListQuery struct {
	Search         string `form:"search" binding:"max=200"`
	CounterpartyID string `form:"counterpartyId" binding:"omitempty,uuid"`
	DateFrom       string `form:"dateFrom"`
	DateTo         string `form:"dateTo"`
	Limit          int    `form:"limit" binding:"min=0"`
	Offset         int    `form:"offset" binding:"min=0"`
	OrderBy        string `form:"orderBy" binding:"max=64"`
}

// ToFilter converts the query into a list filter.
func (q *DocumentListQuery) ToFilter() (document.ListFilter, error) {
	filter := document.ListFilter{
		Search:  strings.TrimSpace(q.Search),
		OrderBy: q.OrderBy,
		Limit:   q.Limit,
		Offset:  q.Offset,
	}

	if q.CounterpartyID != "" {
		cp, err := id.Parse(q.CounterpartyID)
		if err != nil {
			return filter, apperror.NewValidation("counterpartyId must be a UUID").WithDetail("field", "counterpartyId")
		}
		filter.CounterpartyID = &cp
	}

	var err error
	if q.DateFrom != "" {
		if filter.DateFrom, err = parseDate(NewFlex(q.DateFrom), "dateFrom"); err != nil {
			return filter, err
		}
	}
	if q.DateTo != "" {
		if filter.DateTo, err = parseDate(NewFlex(q.DateTo), "dateTo"); err != nil {
			return filter, err
		}
	}
	return filter, nil
}

// --- Response DTOs ---

// DocumentResponse is a materialized document. Money is a 2-decimal string.
type DocumentResponse struct {
	ID               string         `json:"id"`
	Kind             string         `json:"kind"`
	DocumentNo       string         `json:"document_no"`
	CounterpartyID   *string        `json:"counterparty_id"`
	CounterpartyName *string        `json:"counterparty_name"`
	DocumentDate     string         `json:"document_date"`
	Notes            *string        `json:"notes"`
	Subtotal         string         `json:"subtotal"`
	TaxTotal         string         `json:"tax_total"`
	GrandTotal       string         `json:"grand_total"`
	LineCount        int            `json:"line_count"`
	Lines            []LineResponse `json:"lines"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// LineResponse is one stored line.
type LineResponse struct {
	LineID        string  `json:"line_id"`
	DocumentID    string  `json:"document_id"`
	LineNo        int     `json:"line_no"`
	ItemReference *string `json:"item_reference"`
	Description   *string `json:"description"`
	Quantity      string  `json:"quantity"`
	UnitPrice     string  `json:"unit_price"`
	Discount      string  `json:"discount"`
	TaxPercent    string  `json:"tax_percent"`
	LineAmount    string  `json:"line_amount"`
	LineTax       string  `json:"line_tax"`
}

// SummaryResponse is a list row.
type SummaryResponse struct {
	ID               string    `json:"id"`
	DocumentNo       string    `json:"document_no"`
	CounterpartyID   *string   `json:"counterparty_id"`
	CounterpartyName *string   `json:"counterparty_name"`
	DocumentDate     string    `json:"document_date"`
	Subtotal         string    `json:"subtotal"`
	TaxTotal         string    `json:"tax_total"`
	GrandTotal       string    `json:"grand_total"`
	LineCount        int       `json:"line_count"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// FromDocument converts a document to its response.
func FromDocument(doc *document.Document) DocumentResponse {
	return DocumentResponse{
		ID:               doc.ID.String(),
		Kind:             string(doc.Kind),
		DocumentNo:       doc.DocumentNo,
		CounterpartyID:   id.StringPtr(doc.CounterpartyID),
		CounterpartyName: doc.CounterpartyName,
		DocumentDate:     doc.DocumentDate.Format(types.DateLayout),
		Notes:            doc.Notes,
		Subtotal:         types.FormatMoney(doc.Subtotal),
		TaxTotal:         types.FormatMoney(doc.TaxTotal),
		GrandTotal:       types.FormatMoney(doc.GrandTotal),
		LineCount:        len(doc.Lines),
		Lines:            FromLines(doc.Lines),
		CreatedAt:        doc.CreatedAt,
		UpdatedAt:        doc.UpdatedAt,
	}
}

// FromLine converts a line to its response.
func FromLine(l *document.LineItem) LineResponse {
	return LineResponse{
		LineID:        l.LineID.String(),
		DocumentID:    l.DocumentID.String(),
		LineNo:        l.LineNo,
		ItemReference: l.ItemReference,
		Description:   l.Description,
		Quantity:      l.Quantity.String(),
		UnitPrice:     l.UnitPrice.String(),
		Discount:      types.FormatMoney(l.Discount),
		TaxPercent:    l.TaxPercent.String(),
		LineAmount:    types.FormatMoney(l.LineAmount),
		LineTax:       types.FormatMoney(l.LineTax),
	}
}

// FromLines converts lines, never returning nil.
func FromLines(lines []document.LineItem) []LineResponse {
	out := make([]LineResponse, len(lines))
	for i := range lines {
		out[i] = FromLine(&lines[i])
	}
	return out
}

// FromSummary converts a list row.
func FromSummary(s document.Summary) SummaryResponse {
	return SummaryResponse{
		ID:               s.ID.String(),
		DocumentNo:       s.DocumentNo,
		CounterpartyID:   id.StringPtr(s.CounterpartyID),
		CounterpartyName: s.CounterpartyName,
		DocumentDate:     s.DocumentDate.Format(types.DateLayout),
		Subtotal:         types.FormatMoney(s.Subtotal),
		TaxTotal:         types.FormatMoney(s.TaxTotal),
		GrandTotal:       types.FormatMoney(s.GrandTotal),
		LineCount:        s.LineCount,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

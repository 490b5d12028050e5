package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradebook/internal/core/apperror"
	"tradebook/internal/core/types"
	"tradebook/internal/domain/document"
)

func decode(t *testing.T, body string) *DocumentRequest {
	t.Helper()
	var req DocumentRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	return &req
}

func TestDocumentRequest_Aliases(t *testing.T) {
	req := decode(t, `{
		"invoice_no": "INV-1",
		"customer_id": "0190b6d2-7c4e-7a3b-9c1d-2e3f4a5b6c7d",
		"invoice_date": "2024-03-15",
		"lines": [
			{"item_id": "SKU-1", "quantity": 2, "rate": "10.50", "tax_rate": 18},
			{"id": 42, "quantity": "1", "price": 5, "discount": 0.5}
		]
	}`)

	draft, err := req.ToDraft()
	require.NoError(t, err)

	assert.Equal(t, "INV-1", draft.DocumentNo)
	require.NotNil(t, draft.CounterpartyID)
	assert.Equal(t, "0190b6d2-7c4e-7a3b-9c1d-2e3f4a5b6c7d", draft.CounterpartyID.String())
	require.NotNil(t, draft.DocumentDate)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), *draft.DocumentDate)

	require.Len(t, draft.Lines, 2)
	assert.Equal(t, "SKU-1", *draft.Lines[0].ItemReference)
	assert.True(t, draft.Lines[0].UnitPrice.Equal(types.MustMoney("10.5")))
	assert.True(t, draft.Lines[0].TaxPercent.Equal(types.MustMoney("18")))
	assert.Nil(t, draft.Lines[0].Discount)

	assert.Equal(t, "42", *draft.Lines[1].ItemReference)
	assert.True(t, draft.Lines[1].Quantity.Equal(types.MustMoney("1")))
	assert.True(t, draft.Lines[1].Discount.Equal(types.MustMoney("0.5")))
	assert.Nil(t, draft.Lines[1].TaxPercent)
}

func TestDocumentRequest_CanonicalWins(t *testing.T) {
	req := decode(t, `{"bill_no": "B-2", "document_no": "D-1", "date": "2024-01-01T10:00:00Z"}`)

	draft, err := req.ToDraft()
	require.NoError(t, err)
	assert.Equal(t, "D-1", draft.DocumentNo)
	assert.Equal(t, "2024-01-01", draft.DocumentDate.Format(types.DateLayout))
}

func TestDocumentRequest_LineErrors(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
		wantLine  int
	}{
		{"missing quantity", `{"lines":[{"unit_price":1}]}`, "quantity", 1},
		{"missing price", `{"lines":[{"quantity":1,"unit_price":1},{"quantity":1}]}`, "unit_price", 2},
		{"non-numeric price", `{"lines":[{"quantity":1,"unit_price":"abc"}]}`, "unit_price", 1},
		{"non-numeric tax", `{"lines":[{"quantity":1,"unit_price":1,"tax":"x"}]}`, "tax_percent", 1},
		{"null quantity", `{"lines":[{"quantity":null,"unit_price":1}]}`, "quantity", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decode(t, tt.body).ToDraft()

			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeInvalidLine, appErr.Code)
			assert.Equal(t, tt.wantField, appErr.Details["field"])
			assert.Equal(t, tt.wantLine, appErr.Details["lineNo"])
		})
	}
}

func TestDocumentRequest_HeaderErrors(t *testing.T) {
	_, err := decode(t, `{"counterparty_id": "nope"}`).ToDraft()
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = decode(t, `{"document_date": "15/03/2024"}`).ToDraft()
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestDocumentRequest_Patch(t *testing.T) {
	t.Run("null counterparty clears", func(t *testing.T) {
		req := decode(t, `{"vendor_id": null, "notes": "x"}`)
		patch, err := req.ToPatch()
		require.NoError(t, err)
		assert.True(t, patch.ClearCounterparty)
		assert.Nil(t, patch.CounterpartyID)
		assert.Equal(t, "x", *patch.Notes)
		assert.False(t, req.HasLines())
	})

	t.Run("absent counterparty is untouched", func(t *testing.T) {
		patch, err := decode(t, `{"bill_no": "B-9"}`).ToPatch()
		require.NoError(t, err)
		assert.False(t, patch.ClearCounterparty)
		assert.Equal(t, "B-9", *patch.DocumentNo)
	})

	t.Run("lines present", func(t *testing.T) {
		req := decode(t, `{"lines": []}`)
		assert.True(t, req.HasLines())
		lines, err := req.DraftLines()
		require.NoError(t, err)
		assert.Empty(t, lines)
	})
}

func TestDocumentRequest_BadJSON(t *testing.T) {
	var req DocumentRequest
	err := json.Unmarshal([]byte(`{"lines": "nope"}`), &req)

	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "lines", fe.Field)
}

func TestDocumentListQuery_ToFilter(t *testing.T) {
	q := DocumentListQuery{
		Search:         "  acme ",
		CounterpartyID: "0190b6d2-7c4e-7a3b-9c1d-2e3f4a5b6c7d",
		DateFrom:       "2024-01-01",
		Limit:          10,
	}
	f, err := q.ToFilter()
	require.NoError(t, err)
	assert.Equal(t, "acme", f.Search)
	require.NotNil(t, f.CounterpartyID)
	require.NotNil(t, f.DateFrom)
	assert.Nil(t, f.DateTo)
	assert.Equal(t, 10, f.Limit)

	_, err = (&DocumentListQuery{DateTo: "yesterday"}).ToFilter()
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestFromDocument_FormatsMoney(t *testing.T) {
	doc := &document.Document{
		Kind:         document.KindSalesInvoice,
		DocumentNo:   "INV-1",
		DocumentDate: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Subtotal:     types.MustMoney("190"),
		TaxTotal:     types.MustMoney("34.2"),
		GrandTotal:   types.MustMoney("224.2"),
		Lines: []document.LineItem{{
			LineNo:     1,
			Quantity:   types.MustMoney("2"),
			UnitPrice:  types.MustMoney("100"),
			Discount:   types.MustMoney("10"),
			TaxPercent: types.MustMoney("18"),
			LineAmount: types.MustMoney("190"),
			LineTax:    types.MustMoney("34.2"),
		}},
	}

	resp := FromDocument(doc)
	assert.Equal(t, "sales_invoice", resp.Kind)
	assert.Equal(t, "2024-03-15", resp.DocumentDate)
	assert.Equal(t, "190.00", resp.Subtotal)
	assert.Equal(t, "34.20", resp.TaxTotal)
	assert.Equal(t, "224.20", resp.GrandTotal)
	assert.Equal(t, 1, resp.LineCount)
	assert.Equal(t, "10.00", resp.Lines[0].Discount)
	assert.Equal(t, "34.20", resp.Lines[0].LineTax)
	assert.Nil(t, resp.CounterpartyID)
}

func TestFromLines_NeverNil(t *testing.T) {
	assert.NotNil(t, FromLines(nil))
}

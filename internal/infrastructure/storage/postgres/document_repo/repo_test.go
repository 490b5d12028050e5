package document_repo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradebook/internal/core/apperror"
	"tradebook/internal/core/id"
	"tradebook/internal/core/types"
	"tradebook/internal/domain/document"
)

func TestTablesFor(t *testing.T) {
	tables, err := TablesFor(document.KindPurchaseBill)
	require.NoError(t, err)
	assert.Equal(t, "doc_purchase_bills", tables.Header)
	assert.Equal(t, "doc_purchase_bill_lines", tables.Lines)

	_, err = TablesFor("credit_note")
	assert.Error(t, err)
}

func TestRepo_HeaderQueries(t *testing.T) {
	repo := NewSalesInvoiceRepo(nil)
	doc := &document.Document{
		ID:           id.New(),
		DocumentNo:   "INV-1",
		DocumentDate: types.Today(),
		Subtotal:     types.MustMoney("190.00"),
		TaxTotal:     types.MustMoney("34.20"),
		GrandTotal:   types.MustMoney("224.20"),
	}

	t.Run("insert", func(t *testing.T) {
		sql, args, err := repo.insertHeaderQuery(doc).ToSql()
		require.NoError(t, err)

		want := "INSERT INTO doc_sales_invoices " +
			"(id,document_no,counterparty_id,counterparty_name,document_date,notes,subtotal,tax_total,grand_total,created_at,updated_at) " +
			"VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)"
		assert.Equal(t, want, sql)
		assert.Len(t, args, 11)
		assert.Equal(t, doc.ID, args[0])
	})

	t.Run("update keeps id and created_at", func(t *testing.T) {
		sql, args, err := repo.updateHeaderQuery(doc).ToSql()
		require.NoError(t, err)

		assert.Contains(t, sql, "UPDATE doc_sales_invoices SET ")
		assert.Contains(t, sql, "grand_total = ")
		assert.NotContains(t, sql, "created_at")
		assert.Contains(t, sql, "WHERE id = $10")
		assert.Len(t, args, 10)
		// squirrel.Eq passes driver.Valuer arguments through Value()
		assert.Equal(t, doc.ID.String(), args[9])
	})

	t.Run("lock", func(t *testing.T) {
		sql, _, err := repo.selectHeader().Where("id = ?", doc.ID).Suffix("FOR UPDATE").ToSql()
		require.NoError(t, err)
		assert.Contains(t, sql, "FROM doc_sales_invoices WHERE id = $1 FOR UPDATE")
	})
}

func TestRepo_InsertLinesQuery(t *testing.T) {
	repo := NewPurchaseBillRepo(nil)
	docID := id.New()
	lines := []document.LineItem{
		{LineID: id.New(), LineNo: 1, Quantity: types.MustMoney("1"), UnitPrice: types.MustMoney("10")},
		{LineID: id.New(), LineNo: 2, Quantity: types.MustMoney("2"), UnitPrice: types.MustMoney("5")},
	}

	sql, args, err := repo.insertLinesQuery(docID, lines).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "INSERT INTO doc_purchase_bill_lines (line_id,document_id,line_no,")
	assert.Contains(t, sql, "VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11),($12,")
	assert.Len(t, args, 22)
	assert.Equal(t, docID, args[1])
	assert.Equal(t, docID, args[12])
	assert.Equal(t, 2, args[13])
}

func TestRepo_FilteredSummaries(t *testing.T) {
	repo := NewSalesInvoiceRepo(nil)
	customer := id.New()
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	sql, args, err := repo.filteredSummaries(document.ListFilter{
		Search:         "acme",
		CounterpartyID: &customer,
		DateFrom:       &from,
		DateTo:         &to,
	}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "(SELECT COUNT(*) FROM doc_sales_invoice_lines l WHERE l.document_id = d.id) AS line_count")
	assert.Contains(t, sql, "FROM doc_sales_invoices d WHERE ")
	assert.Contains(t, sql, "d.document_no ILIKE $1 OR d.counterparty_name ILIKE $2")
	assert.Contains(t, sql, "d.counterparty_id = $3")
	assert.Contains(t, sql, "d.document_date >= $4")
	assert.Contains(t, sql, "d.document_date <= $5")
	assert.Equal(t, []any{"%acme%", "%acme%", customer.String(), from, to}, args)

	sql, args, err = repo.filteredSummaries(document.ListFilter{}).ToSql()
	require.NoError(t, err)
	assert.NotContains(t, sql, "WHERE d.")
	assert.Empty(t, args)

	_, args, err = repo.filteredSummaries(document.ListFilter{Search: " 10%_off "}).ToSql()
	require.NoError(t, err)
	assert.Equal(t, []any{`%10\%\_off%`, `%10\%\_off%`}, args)
}

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"INV-001", "INV-001"},
		{"50%", `50\%`},
		{"a_b", `a\_b`},
		{`C:\path`, `C:\\path`},
		{`%_\`, `\%\_\\`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, escapeLike(tt.in))
		})
	}
}

func TestParseOrderBy(t *testing.T) {
	tests := []struct {
		in      string
		want    []string
		wantErr bool
	}{
		{"", []string{"d.document_date DESC", "d.id DESC"}, false},
		{"grand_total", []string{"d.grand_total ASC", "d.id ASC"}, false},
		{"-document_no", []string{"d.document_no DESC", "d.id DESC"}, false},
		{"+created_at", []string{"d.created_at ASC", "d.id ASC"}, false},
		{"notes; DROP TABLE x", nil, true},
		{"-", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseOrderBy(tt.in)
			if tt.wantErr {
				assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

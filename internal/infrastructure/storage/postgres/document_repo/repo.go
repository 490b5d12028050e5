// Package document_repo provides PostgreSQL storage for trade documents.
// Every kind has a header table and a line table with identical shapes.
package document_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"tradebook/internal/core/apperror"
	"tradebook/internal/core/id"
	"tradebook/internal/domain"
	"tradebook/internal/domain/document"
	"tradebook/internal/infrastructure/storage/postgres"
)

// Tables names the storage of one document kind.
type Tables struct {
	Header string
	Lines  string
}

var kindTables = map[document.Kind]Tables{
	document.KindSalesInvoice: {Header: "doc_sales_invoices", Lines: "doc_sales_invoice_lines"},
	document.KindPurchaseBill: {Header: "doc_purchase_bills", Lines: "doc_purchase_bill_lines"},
}

// TablesFor returns the tables of kind.
func TablesFor(kind document.Kind) (Tables, error) {
	t, ok := kindTables[kind]
	if !ok {
		return Tables{}, fmt.Errorf("unknown document kind %q", kind)
	}
	return t, nil
}

var (
	headerCols = postgres.Columns[document.Document]()
	lineCols   = postgres.Columns[document.LineItem]()
)

// sortable columns for List; values are the SQL expressions.
var sortable = map[string]string{
	"document_no":       "d.document_no",
	"document_date":     "d.document_date",
	"counterparty_name": "d.counterparty_name",
	"subtotal":          "d.subtotal",
	"tax_total":         "d.tax_total",
	"grand_total":       "d.grand_total",
	"created_at":        "d.created_at",
	"updated_at":        "d.updated_at",
}

var _ document.Repository = (*Repo)(nil)

// Repo stores one document kind.
type Repo struct {
	kind      document.Kind
	tables    Tables
	txManager *postgres.TxManager
}

// New creates a repository for kind.
func New(txManager *postgres.TxManager, kind document.Kind) (*Repo, error) {
	tables, err := TablesFor(kind)
	if err != nil {
		return nil, err
	}
	return &Repo{kind: kind, tables: tables, txManager: txManager}, nil
}

// NewSalesInvoiceRepo creates the sales invoice repository.
func NewSalesInvoiceRepo(txManager *postgres.TxManager) *Repo {
	r, _ := New(txManager, document.KindSalesInvoice)
	return r
}

// NewPurchaseBillRepo creates the purchase bill repository.
func NewPurchaseBillRepo(txManager *postgres.TxManager) *Repo {
	r, _ := New(txManager, document.KindPurchaseBill)
	return r
}

// Kind returns the stored document kind.
func (r *Repo) Kind() document.Kind {
	return r.kind
}

// Builder returns a new squirrel builder.
func (r *Repo) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *Repo) notFound(docID id.ID) *apperror.AppError {
	return apperror.NewDocumentNotFound(string(r.kind), docID.String())
}

func (r *Repo) exec(ctx context.Context, q squirrel.Sqlizer, what string) (int64, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build %s: %w", what, err)
	}
	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", what, r.tables.Header, err)
	}
	return tag.RowsAffected(), nil
}

// Insert stores the header row.
func (r *Repo) Insert(ctx context.Context, doc *document.Document) error {
	_, err := r.exec(ctx, r.insertHeaderQuery(doc), "insert")
	return err
}

func (r *Repo) insertHeaderQuery(doc *document.Document) squirrel.InsertBuilder {
	return r.Builder().
		Insert(r.tables.Header).
		Columns(headerCols...).
		Values(postgres.Values(doc, headerCols)...)
}

// UpdateHeader rewrites every mutable header column.
func (r *Repo) UpdateHeader(ctx context.Context, doc *document.Document) error {
	n, err := r.exec(ctx, r.updateHeaderQuery(doc), "update")
	if err != nil {
		return err
	}
	if n == 0 {
		return r.notFound(doc.ID)
	}
	return nil
}

func (r *Repo) updateHeaderQuery(doc *document.Document) squirrel.UpdateBuilder {
	data := postgres.StructToMap(doc)
	delete(data, "id")
	delete(data, "created_at")

	return r.Builder().
		Update(r.tables.Header).
		SetMap(data).
		Where(squirrel.Eq{"id": doc.ID})
}

// Delete hard-deletes the header row; lines cascade.
func (r *Repo) Delete(ctx context.Context, docID id.ID) (bool, error) {
	n, err := r.exec(ctx, r.Builder().Delete(r.tables.Header).Where(squirrel.Eq{"id": docID}), "delete")
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// InsertLines stores all lines in a single statement.
func (r *Repo) InsertLines(ctx context.Context, docID id.ID, lines []document.LineItem) error {
	if len(lines) == 0 {
		return nil
	}
	_, err := r.exec(ctx, r.insertLinesQuery(docID, lines), "insert lines")
	return err
}

func (r *Repo) insertLinesQuery(docID id.ID, lines []document.LineItem) squirrel.InsertBuilder {
	q := r.Builder().Insert(r.tables.Lines).Columns(lineCols...)
	for i := range lines {
		lines[i].DocumentID = docID
		q = q.Values(postgres.Values(&lines[i], lineCols)...)
	}
	return q
}

// DeleteLines removes every line of the document.
func (r *Repo) DeleteLines(ctx context.Context, docID id.ID) (int64, error) {
	return r.exec(ctx, r.Builder().Delete(r.tables.Lines).Where(squirrel.Eq{"document_id": docID}), "delete lines")
}

func (r *Repo) selectHeader() squirrel.SelectBuilder {
	return r.Builder().Select(headerCols...).From(r.tables.Header)
}

// GetByID retrieves a document header.
func (r *Repo) GetByID(ctx context.Context, docID id.ID) (*document.Document, error) {
	return r.getHeader(ctx, r.selectHeader().Where(squirrel.Eq{"id": docID}), docID)
}

// GetForUpdate retrieves a document header with a row lock.
func (r *Repo) GetForUpdate(ctx context.Context, docID id.ID) (*document.Document, error) {
	return r.getHeader(ctx, r.selectHeader().Where(squirrel.Eq{"id": docID}).Suffix("FOR UPDATE"), docID)
}

func (r *Repo) getHeader(ctx context.Context, q squirrel.SelectBuilder, docID id.ID) (*document.Document, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var doc document.Document
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &doc, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, r.notFound(docID)
		}
		return nil, fmt.Errorf("get %s: %w", r.tables.Header, err)
	}
	doc.Kind = r.kind
	return &doc, nil
}

func (r *Repo) selectLines() squirrel.SelectBuilder {
	return r.Builder().Select(lineCols...).From(r.tables.Lines)
}

// GetLines returns the lines ordered by line_no.
func (r *Repo) GetLines(ctx context.Context, docID id.ID) ([]document.LineItem, error) {
	sql, args, err := r.selectLines().
		Where(squirrel.Eq{"document_id": docID}).
		OrderBy("line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	lines := []document.LineItem{}
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get %s: %w", r.tables.Lines, err)
	}
	return lines, nil
}

// GetLine returns one line scoped to its document.
func (r *Repo) GetLine(ctx context.Context, docID, lineID id.ID) (*document.LineItem, error) {
	sql, args, err := r.selectLines().
		Where(squirrel.Eq{"document_id": docID, "line_id": lineID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var line document.LineItem
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &line, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, r.notFound(docID).WithDetail("line_id", lineID.String())
		}
		return nil, fmt.Errorf("get %s: %w", r.tables.Lines, err)
	}
	return &line, nil
}

// List returns summaries with the total count of matching rows.
func (r *Repo) List(ctx context.Context, filter document.ListFilter) (domain.ListResult[document.Summary], error) {
	result := domain.ListResult[document.Summary]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.filteredSummaries(filter)
	querier := r.txManager.GetQuerier(ctx)

	countSQL, countArgs, err := r.Builder().Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count %s: %w", r.tables.Header, err)
	}

	orderBy, err := parseOrderBy(filter.OrderBy)
	if err != nil {
		return result, err
	}
	q = q.OrderBy(orderBy...)
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list %s: %w", r.tables.Header, err)
	}
	return result, nil
}

func (r *Repo) filteredSummaries(filter document.ListFilter) squirrel.SelectBuilder {
	q := r.Builder().
		Select(
			"d.id", "d.document_no", "d.counterparty_id", "d.counterparty_name", "d.document_date",
			"d.subtotal", "d.tax_total", "d.grand_total",
			fmt.Sprintf("(SELECT COUNT(*) FROM %s l WHERE l.document_id = d.id) AS line_count", r.tables.Lines),
			"d.created_at", "d.updated_at",
		).
		From(r.tables.Header + " d")

	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := "%" + escapeLike(s) + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"d.document_no": pattern},
			squirrel.ILike{"d.counterparty_name": pattern},
		})
	}
	if filter.CounterpartyID != nil {
		q = q.Where(squirrel.Eq{"d.counterparty_id": *filter.CounterpartyID})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"d.document_date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"d.document_date": *filter.DateTo})
	}
	return q
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes search text match literally under ILIKE's default
// backslash escape.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// parseOrderBy accepts "field" or "-field" from the sortable allowlist.
func parseOrderBy(orderBy string) ([]string, error) {
	orderBy = strings.TrimSpace(orderBy)
	if orderBy == "" {
		return []string{"d.document_date DESC", "d.id DESC"}, nil
	}

	direction := "ASC"
	field := orderBy
	if strings.HasPrefix(orderBy, "-") {
		direction = "DESC"
		field = strings.TrimPrefix(orderBy, "-")
	} else if strings.HasPrefix(orderBy, "+") {
		field = strings.TrimPrefix(orderBy, "+")
	}

	expr, ok := sortable[strings.TrimSpace(field)]
	if !ok {
		return nil, apperror.NewValidation("invalid orderBy").WithDetail("orderBy", orderBy)
	}
	return []string{expr + " " + direction, "d.id " + direction}, nil
}

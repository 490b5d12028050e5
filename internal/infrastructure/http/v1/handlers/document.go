package handlers

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"tradebook/internal/core/id"
	"tradebook/internal/domain"
	"tradebook/internal/domain/audit"
	"tradebook/internal/domain/document"
	"tradebook/internal/infrastructure/http/v1/dto"
)

// DocumentWriter is the write side used by DocumentHandler.
type DocumentWriter interface {
	Post(ctx context.Context, draft document.Draft) (*document.Document, error)
	ReplaceLines(ctx context.Context, docID id.ID, lines []document.DraftLine) (*document.Document, error)
	UpdateHeader(ctx context.Context, docID id.ID, patch document.HeaderPatch) (*document.Document, error)
	Amend(ctx context.Context, docID id.ID, patch document.HeaderPatch, lines []document.DraftLine) (*document.Document, error)
	Delete(ctx context.Context, docID id.ID) error
}

// DocumentQuerier is the read side used by DocumentHandler.
type DocumentQuerier interface {
	Get(ctx context.Context, docID id.ID) (*document.Document, error)
	GetLines(ctx context.Context, docID id.ID) ([]document.LineItem, error)
	GetLine(ctx context.Context, docID, lineID id.ID) (*document.LineItem, error)
	List(ctx context.Context, filter document.ListFilter) (domain.ListResult[document.Summary], error)
	History(ctx context.Context, docID id.ID, limit int) ([]audit.Entry, error)
}

// DocumentHandler serves one document kind. Sales invoices and purchase
// bills share it and differ only in the services behind it.
type DocumentHandler struct {
	*BaseHandler
	service DocumentWriter
	reader  DocumentQuerier
}

// NewDocumentHandler creates a document handler.
func NewDocumentHandler(base *BaseHandler, service DocumentWriter, reader DocumentQuerier) *DocumentHandler {
	return &DocumentHandler{
		BaseHandler: base,
		service:     service,
		reader:      reader,
	}
}

// Create handles POST /documents/{kind}
func (h *DocumentHandler) Create(c *gin.Context) {
	var req dto.DocumentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	draft, err := req.ToDraft()
	if err != nil {
		h.Error(c, err)
		return
	}

	doc, err := h.service.Post(c.Request.Context(), draft)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromDocument(doc))
}

// Get handles GET /documents/{kind}/:id
func (h *DocumentHandler) Get(c *gin.Context) {
	docID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	doc, err := h.reader.Get(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromDocument(doc))
}

// List handles GET /documents/{kind}
func (h *DocumentHandler) List(c *gin.Context) {
	var query dto.DocumentListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	filter, err := query.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.reader.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.SummaryResponse, len(result.Items))
	for i, s := range result.Items {
		items[i] = dto.FromSummary(s)
	}

	h.OK(c, dto.ListResponse[dto.SummaryResponse]{
		Items:      items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// Update handles PUT /documents/{kind}/:id
// A body carrying "lines" amends header and lines together; otherwise only
// the header changes.
func (h *DocumentHandler) Update(c *gin.Context) {
	docID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.DocumentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	patch, err := req.ToPatch()
	if err != nil {
		h.Error(c, err)
		return
	}

	var doc *document.Document
	if req.HasLines() {
		lines, lerr := req.DraftLines()
		if lerr != nil {
			h.Error(c, lerr)
			return
		}
		doc, err = h.service.Amend(c.Request.Context(), docID, patch, lines)
	} else {
		doc, err = h.service.UpdateHeader(c.Request.Context(), docID, patch)
	}
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromDocument(doc))
}

// ReplaceLines handles PUT /documents/{kind}/:id/lines
func (h *DocumentHandler) ReplaceLines(c *gin.Context) {
	docID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.ReplaceLinesRequest
	if !h.BindJSON(c, &req) {
		return
	}

	lines, err := req.DraftLines()
	if err != nil {
		h.Error(c, err)
		return
	}

	doc, err := h.service.ReplaceLines(c.Request.Context(), docID, lines)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromDocument(doc))
}

// GetLines handles GET /documents/{kind}/:id/lines
func (h *DocumentHandler) GetLines(c *gin.Context) {
	docID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	lines, err := h.reader.GetLines(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromLines(lines))
}

// GetLine handles GET /documents/{kind}/:id/lines/:lineId
func (h *DocumentHandler) GetLine(c *gin.Context) {
	docID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	lineID, ok := h.ParseID(c, "lineId")
	if !ok {
		return
	}

	line, err := h.reader.GetLine(c.Request.Context(), docID, lineID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromLine(line))
}

// History handles GET /documents/{kind}/:id/history
func (h *DocumentHandler) History(c *gin.Context) {
	docID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	entries, err := h.reader.History(c.Request.Context(), docID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, entries)
}

// Delete handles DELETE /documents/{kind}/:id
func (h *DocumentHandler) Delete(c *gin.Context) {
	docID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), docID); err != nil {
		h.Error(c, err)
		return
	}

	h.Acknowledge(c)
}

package document

import (
	"context"
	"fmt"

	"tradebook/internal/core/apperror"
	"tradebook/internal/core/id"
	"tradebook/internal/core/tx"
	"tradebook/internal/domain"
	"tradebook/internal/domain/audit"
)

// DefaultHistoryLimit caps History when the caller passes no limit.
const DefaultHistoryLimit = 50

// Reader serves committed documents of one kind.
type Reader struct {
	kind      Kind
	repo      Repository
	txManager tx.ReadOnlyManager
	audit     audit.Recorder // optional
}

// NewReader creates a document reader. recorder may be nil.
func NewReader(repo Repository, txManager tx.ReadOnlyManager, recorder audit.Recorder) *Reader {
	return &Reader{
		kind:      repo.Kind(),
		repo:      repo,
		txManager: txManager,
		audit:     recorder,
	}
}

// Get returns a document with its lines read from one snapshot.
func (r *Reader) Get(ctx context.Context, docID id.ID) (*Document, error) {
	ctx, span := startSpan(ctx, r.kind, "document.get", &docID)
	defer span.End()

	var doc *Document
	err := r.txManager.ReadOnly(ctx, func(ctx context.Context) error {
		var err error
		doc, err = load(ctx, r.repo, docID)
		return err
	})
	if err != nil {
		return nil, storageError(ctx, r.kind, "get", &docID, err)
	}
	return doc, nil
}

// GetLines returns the lines of an existing document.
func (r *Reader) GetLines(ctx context.Context, docID id.ID) ([]LineItem, error) {
	ctx, span := startSpan(ctx, r.kind, "document.get_lines", &docID)
	defer span.End()

	var lines []LineItem
	err := r.txManager.ReadOnly(ctx, func(ctx context.Context) error {
		if _, err := r.repo.GetByID(ctx, docID); err != nil {
			return err
		}
		var err error
		lines, err = r.repo.GetLines(ctx, docID)
		return err
	})
	if err != nil {
		return nil, storageError(ctx, r.kind, "get_lines", &docID, err)
	}
	return lines, nil
}

// GetLine returns one line scoped to its document.
func (r *Reader) GetLine(ctx context.Context, docID, lineID id.ID) (*LineItem, error) {
	ctx, span := startSpan(ctx, r.kind, "document.get_line", &docID)
	defer span.End()

	line, err := r.repo.GetLine(ctx, docID, lineID)
	if err != nil {
		return nil, storageError(ctx, r.kind, "get_line", &docID, err)
	}
	return line, nil
}

// List returns document summaries. Lines are never loaded.
func (r *Reader) List(ctx context.Context, filter ListFilter) (domain.ListResult[Summary], error) {
	ctx, span := startSpan(ctx, r.kind, "document.list", nil)
	defer span.End()

	page := domain.ListFilter{Limit: filter.Limit, Offset: filter.Offset}
	page.Normalize()
	filter.Limit, filter.Offset = page.Limit, page.Offset

	// COUNT and page SELECT share one snapshot so total_count matches the page.
	var result domain.ListResult[Summary]
	err := r.txManager.ReadOnly(ctx, func(ctx context.Context) error {
		var err error
		result, err = r.repo.List(ctx, filter)
		return err
	})
	if err != nil {
		return result, storageError(ctx, r.kind, "list", nil, err)
	}
	if result.Items == nil {
		result.Items = []Summary{}
	}
	return result, nil
}

// History returns the audit trail of a document, newest first. Entries
// outlive the document itself.
func (r *Reader) History(ctx context.Context, docID id.ID, limit int) ([]audit.Entry, error) {
	if r.audit == nil {
		return nil, apperror.NewInternal(fmt.Errorf("audit trail is not configured"))
	}
	if limit <= 0 || limit > domain.MaxListLimit {
		limit = DefaultHistoryLimit
	}

	entries, err := r.audit.History(ctx, string(r.kind), docID, limit)
	if err != nil {
		return nil, storageError(ctx, r.kind, "history", &docID, err)
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	return entries, nil
}

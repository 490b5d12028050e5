package document

import (
	"context"

	"tradebook/internal/core/id"
	"tradebook/internal/domain"
	"tradebook/internal/domain/catalogs/party"
)

// Repository persists one document kind. All methods join the transaction
// carried in ctx when there is one.
type Repository interface {
	Kind() Kind

	// Insert stores the header row.
	Insert(ctx context.Context, doc *Document) error

	// UpdateHeader rewrites header fields and aggregates of an existing row.
	UpdateHeader(ctx context.Context, doc *Document) error

	// Delete removes the header row and reports whether a row existed.
	Delete(ctx context.Context, docID id.ID) (bool, error)

	// InsertLines stores lines in the given order.
	InsertLines(ctx context.Context, docID id.ID, lines []LineItem) error

	// DeleteLines removes every line of the document.
	DeleteLines(ctx context.Context, docID id.ID) (int64, error)

	// GetByID returns DOCUMENT_NOT_FOUND when the header is missing.
	GetByID(ctx context.Context, docID id.ID) (*Document, error)

	// GetForUpdate is GetByID with a row lock held until the transaction ends.
	GetForUpdate(ctx context.Context, docID id.ID) (*Document, error)

	// GetLines returns lines ordered by line_no.
	GetLines(ctx context.Context, docID id.ID) ([]LineItem, error)

	// GetLine returns DOCUMENT_NOT_FOUND when the line is not part of the document.
	GetLine(ctx context.Context, docID, lineID id.ID) (*LineItem, error)

	List(ctx context.Context, filter ListFilter) (domain.ListResult[Summary], error)
}

// PartyResolver snapshots a counterparty name. It never fails.
type PartyResolver interface {
	Resolve(ctx context.Context, partyID *id.ID, role party.Type) *string
}

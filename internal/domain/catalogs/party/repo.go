package party

import (
	"context"

	"tradebook/internal/core/id"
)

// Repository defines the interface for Party persistence.
type Repository interface {
	Create(ctx context.Context, p *Party) error

	// GetByID returns apperror NOT_FOUND when no party has the id.
	GetByID(ctx context.Context, partyID id.ID) (*Party, error)
}

package party

import (
	"context"

	"tradebook/internal/core/apperror"
	"tradebook/internal/core/id"
	"tradebook/pkg/logger"
)

// Resolver turns an optional party reference into a display-name snapshot.
// Lookups are best effort: every failure yields nil and a warning.
type Resolver struct {
	repo Repository
}

// NewResolver creates a resolver over repo.
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve returns the party name, or nil when partyID is nil or the lookup fails.
// A party whose type does not cover role still resolves.
func (r *Resolver) Resolve(ctx context.Context, partyID *id.ID, role Type) *string {
	if partyID == nil {
		return nil
	}

	p, err := r.repo.GetByID(ctx, *partyID)
	if err != nil {
		reason := "read_error"
		if apperror.IsNotFound(err) {
			reason = "not_found"
		}
		logger.Warn(ctx, "party lookup failed",
			"code", apperror.CodePartyLookupFailed,
			"party_id", *partyID,
			"reason", reason,
			"error", err)
		return nil
	}

	if !p.Serves(role) {
		logger.Info(ctx, "party role mismatch",
			"party_id", p.ID,
			"party_type", p.Type,
			"expected", role)
	}

	name := p.Name
	return &name
}

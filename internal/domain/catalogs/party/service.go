package party

import (
	"context"
	"fmt"

	"tradebook/internal/core/id"
	"tradebook/pkg/logger"
)

// Service provides business logic for the party catalog.
type Service struct {
	repo Repository
}

// NewService creates a new party service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates and stores a party.
func (s *Service) Create(ctx context.Context, p *Party) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return fmt.Errorf("create party: %w", err)
	}

	logger.Info(ctx, "party created", "id", p.ID, "type", p.Type)
	return nil
}

// GetByID retrieves a party.
func (s *Service) GetByID(ctx context.Context, partyID id.ID) (*Party, error) {
	return s.repo.GetByID(ctx, partyID)
}

package dto

import (
	"strings"
	"time"

	"tradebook/internal/domain/catalogs/party"
)

// CreatePartyRequest is the body of POST /parties.
type CreatePartyRequest struct {
	Name  string  `json:"name" binding:"required,notblank,max=200"`
	Type  string  `json:"type" binding:"required,oneof=customer vendor both"`
	TaxID *string `json:"tax_id" binding:"omitempty,max=32"`
	Email *string `json:"email" binding:"omitempty,email"`
}

// ToEntity converts the request to a new party.
func (r *CreatePartyRequest) ToEntity() *party.Party {
	p := party.NewParty(strings.TrimSpace(r.Name), party.Type(r.Type))
	p.TaxID = r.TaxID
	p.Email = r.Email
	return p
}

// PartyResponse is a stored party.
type PartyResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	TaxID     *string   `json:"tax_id"`
	Email     *string   `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FromParty converts a party to its response.
func FromParty(p *party.Party) PartyResponse {
	return PartyResponse{
		ID:        p.ID.String(),
		Name:      p.Name,
		Type:      string(p.Type),
		TaxID:     p.TaxID,
		Email:     p.Email,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

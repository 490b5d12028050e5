package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"tradebook/internal/core/id"
	"tradebook/internal/domain/catalogs/party"
	"tradebook/internal/infrastructure/http/v1/dto"
)

// PartyService is the party catalog used by PartyHandler.
type PartyService interface {
	Create(ctx context.Context, p *party.Party) error
	GetByID(ctx context.Context, partyID id.ID) (*party.Party, error)
}

// PartyHandler serves the party catalog.
type PartyHandler struct {
	*BaseHandler
	service PartyService
}

// NewPartyHandler creates a party handler.
func NewPartyHandler(base *BaseHandler, service PartyService) *PartyHandler {
	return &PartyHandler{BaseHandler: base, service: service}
}

// Create handles POST /parties
func (h *PartyHandler) Create(c *gin.Context) {
	var req dto.CreatePartyRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p := req.ToEntity()
	if err := h.service.Create(c.Request.Context(), p); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromParty(p))
}

// Get handles GET /parties/:id
func (h *PartyHandler) Get(c *gin.Context) {
	partyID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	p, err := h.service.GetByID(c.Request.Context(), partyID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromParty(p))
}

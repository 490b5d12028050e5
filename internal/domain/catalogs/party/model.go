// Package party provides the party catalog: customers and vendors that
// documents reference as their counterparty.
package party

import (
	"regexp"
	"strings"
	"time"

	"tradebook/internal/core/apperror"
	"tradebook/internal/core/id"
)

var emailRE = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Type defines the role a party plays in trade.
type Type string

const (
	TypeCustomer Type = "customer"
	TypeVendor   Type = "vendor"
	TypeBoth     Type = "both"
)

// Party is a business partner.
type Party struct {
	ID        id.ID     `db:"id"`
	Name      string    `db:"name"`
	Type      Type      `db:"party_type"`
	TaxID     *string   `db:"tax_id"`
	Email     *string   `db:"email"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// NewParty creates a Party with a fresh ID.
func NewParty(name string, t Type) *Party {
	now := time.Now().UTC()
	return &Party{
		ID:        id.New(),
		Name:      name,
		Type:      t,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks required fields.
func (p *Party) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	if !p.Type.Valid() {
		return apperror.NewValidation("invalid party type").
			WithDetail("field", "type").
			WithDetail("value", string(p.Type))
	}
	if p.Email != nil && *p.Email != "" && !emailRE.MatchString(*p.Email) {
		return apperror.NewValidation("invalid email format").WithDetail("field", "email")
	}
	return nil
}

// Valid reports whether t is a known party type.
func (t Type) Valid() bool {
	switch t {
	case TypeCustomer, TypeVendor, TypeBoth:
		return true
	}
	return false
}

// Serves reports whether the party may act in the given role.
func (p *Party) Serves(role Type) bool {
	return p.Type == role || p.Type == TypeBoth
}

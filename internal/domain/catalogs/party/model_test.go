package party

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tradebook/internal/core/apperror"
)

func TestValidate(t *testing.T) {
	bad := "not-an-email"
	tests := []struct {
		name    string
		party   *Party
		wantErr bool
	}{
		{"ok", NewParty("Acme", TypeCustomer), false},
		{"blank name", NewParty("   ", TypeCustomer), true},
		{"bad type", NewParty("Acme", Type("partner")), true},
		{"bad email", &Party{Name: "Acme", Type: TypeVendor, Email: &bad}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.party.Validate()
			if tt.wantErr {
				assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestServes(t *testing.T) {
	assert.True(t, NewParty("a", TypeBoth).Serves(TypeVendor))
	assert.True(t, NewParty("a", TypeCustomer).Serves(TypeCustomer))
	assert.False(t, NewParty("a", TypeCustomer).Serves(TypeVendor))
}

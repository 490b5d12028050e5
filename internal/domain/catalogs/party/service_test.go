package party_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"tradebook/internal/core/apperror"
	"tradebook/internal/domain/catalogs/party"
)

func TestService_Create(t *testing.T) {
	repo := new(mockRepo)
	svc := party.NewService(repo)
	p := party.NewParty(" Acme ", party.TypeBoth)
	repo.On("Create", mock.Anything, p).Return(nil)

	assert.NoError(t, svc.Create(context.Background(), p))
	assert.Equal(t, "Acme", p.Name)
	repo.AssertExpectations(t)
}

func TestService_Create_InvalidSkipsRepo(t *testing.T) {
	repo := new(mockRepo)
	svc := party.NewService(repo)

	err := svc.Create(context.Background(), party.NewParty("", party.TypeCustomer))

	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

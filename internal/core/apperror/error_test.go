package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactories_StatusAndCode(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantCode   string
		wantStatus int
	}{
		{"validation", NewValidation("bad"), CodeValidation, http.StatusBadRequest},
		{"invalid line", NewInvalidLine("quantity", "quantity must be positive"), CodeInvalidLine, http.StatusBadRequest},
		{"empty document", NewEmptyDocument(), CodeEmptyDocument, http.StatusBadRequest},
		{"not found", NewNotFound("party", "x"), CodeNotFound, http.StatusNotFound},
		{"document not found", NewDocumentNotFound("sales_invoice", "x"), CodeDocumentNotFound, http.StatusNotFound},
		{"storage", NewStorage("post", "x", errors.New("boom")), CodeStorage, http.StatusInternalServerError},
		{"idempotency", NewIdempotencyMismatch("k"), CodeIdempotency, http.StatusConflict},
		{"rate limited", NewRateLimited(10), CodeRateLimited, http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, tt.err.Code)
			assert.Equal(t, tt.wantStatus, tt.err.HTTPStatus)
			assert.Equal(t, tt.wantStatus, GetHTTPStatus(tt.err))
		})
	}
}

func TestStorage_KeepsCauseOutOfDetails(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewStorage("replace_lines", "doc-1", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "replace_lines", err.Details["operation"])
	assert.Equal(t, "doc-1", err.Details["document_id"])
	for _, v := range err.Details {
		assert.NotEqual(t, cause.Error(), v)
	}
}

func TestStorage_WithoutDocumentID(t *testing.T) {
	err := NewStorage("list", nil, errors.New("x"))
	_, ok := err.Details["document_id"]
	assert.False(t, ok)
}

func TestAsAppError_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("service: %w", NewDocumentNotFound("purchase_bill", "abc"))

	appErr, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeDocumentNotFound, appErr.Code)
	assert.True(t, IsNotFound(wrapped))
	assert.True(t, IsDocumentNotFound(wrapped))
	assert.False(t, IsDocumentNotFound(NewNotFound("party", "abc")))
}

func TestGetHTTPStatus_PlainError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(errors.New("plain")))
	assert.False(t, IsAppError(errors.New("plain")))
}

func TestWithDetail(t *testing.T) {
	err := NewInvalidLine("tax_percent", "tax percent must be between 0 and 100").WithDetail("lineNo", 3)
	assert.Equal(t, 3, err.Details["lineNo"])
	assert.Equal(t, "tax_percent", err.Details["field"])
	assert.Contains(t, err.Error(), CodeInvalidLine)
}

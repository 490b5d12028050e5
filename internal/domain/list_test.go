package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListFilter_Normalize(t *testing.T) {
	tests := []struct {
		name       string
		in         ListFilter
		wantLimit  int
		wantOffset int
	}{
		{"zero limit", ListFilter{}, DefaultListLimit, 0},
		{"over max", ListFilter{Limit: 10_000}, MaxListLimit, 0},
		{"negative offset", ListFilter{Limit: 10, Offset: -3}, 10, 0},
		{"kept", ListFilter{Limit: 20, Offset: 40}, 20, 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.in
			f.Normalize()
			assert.Equal(t, tt.wantLimit, f.Limit)
			assert.Equal(t, tt.wantOffset, f.Offset)
		})
	}
}

func TestHookRegistry_RunStopsAtFirstError(t *testing.T) {
	r := NewHookRegistry[*int]()
	calls := 0
	r.On(AfterCreate, func(ctx context.Context, v *int) error { calls++; return errors.New("first") })
	r.On(AfterCreate, func(ctx context.Context, v *int) error { calls++; return nil })

	n := 1
	err := r.Run(context.Background(), AfterCreate, &n)
	assert.EqualError(t, err, "first")
	assert.Equal(t, 1, calls)
	assert.NoError(t, r.Run(context.Background(), AfterDelete, &n))
}

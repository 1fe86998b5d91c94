package errors

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkAllMatchesEverySentinel(t *testing.T) {
	err := NewError("payment exceeds balance due").
		MarkAll(ErrOverpayment, ErrConsistency)

	assert.True(t, IsOverpayment(err))
	assert.True(t, IsConsistency(err))
	assert.False(t, IsValidation(err))
}

func TestHTTPStatusPrefersNamedMark(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "currency mismatch over validation",
			err:  NewError("rate currency does not match plan").MarkAll(ErrCurrencyMismatch, ErrValidation),
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "rate conflict over consistency",
			err:  NewError("rate window overlaps an existing rate").MarkAll(ErrRateConflict, ErrConsistency),
			want: http.StatusConflict,
		},
		{
			name: "overpayment over consistency",
			err:  NewError("payment exceeds balance due").MarkAll(ErrOverpayment, ErrConsistency),
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "not editable over invalid operation",
			err:  NewError("invoice is not editable").MarkAll(ErrInvoiceNotEditable, ErrInvalidOperation),
			want: http.StatusBadRequest,
		},
		{
			name: "single mark",
			err:  NewError("invoice not found").Mark(ErrNotFound),
			want: http.StatusNotFound,
		},
		{
			name: "unmarked errors are internal",
			err:  NewError("unexpected").MarkAll(),
			want: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusFromErr(tt.err))
		})
	}
}

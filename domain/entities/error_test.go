package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorDetail_Error(t *testing.T) {
	tests := []struct {
		name   string
		detail *ErrorDetail
		want   string
	}{
		{
			name:   "nil",
			detail: nil,
			want:   "",
		},
		{
			name:   "internal type is not prefixed",
			detail: NewErrorDetail("internal", "boom"),
			want:   "boom",
		},
		{
			name:   "typed with code",
			detail: NewErrorDetail("native", "trap").WithCode("increment"),
			want:   "native: trap [increment]",
		},
		{
			name: "wrapped",
			detail: &ErrorDetail{
				Type:    "allocation",
				Message: "create failed",
				Wrapped: NewErrorDetail("internal", "out of memory"),
			},
			want: "allocation: create failed: out of memory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.detail.Error())
		})
	}
}

func TestErrorDetail_WithDetails(t *testing.T) {
	d := NewErrorDetail("invalid_argument", "empty").WithDetails(map[string]any{"len": 0})
	assert.Equal(t, 0, d.Details["len"])
}

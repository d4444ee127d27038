package tawi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
	}{
		{"success", PaymentSuccess},
		{"successful", PaymentSuccess},
		{"paid", PaymentSuccess},
		{"completed", PaymentSuccess},
		{"COMPLETED", PaymentSuccess},
		{"  Paid  ", PaymentSuccess},
		{"failed", PaymentFailed},
		{"fail", PaymentFailed},
		{"declined", PaymentFailed},
		{"cancelled", PaymentCancelled},
		{"canceled", PaymentCancelled},
		{"pending", PaymentPending},
		{"processing", PaymentPending},
		{"something-new", PaymentPending},
		{"", PaymentPending},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeStatus(tt.raw))
		})
	}
}

package tawi

import "strings"

// Normalized payment status vocabulary. Every provider status string maps
// to exactly one of these.
const (
	PaymentPending   = "pending"
	PaymentSuccess   = "success"
	PaymentFailed    = "failed"
	PaymentCancelled = "cancelled"
)

// NormalizeStatus maps a free-form provider status to the fixed vocabulary.
// Unknown and empty statuses count as pending. Total: never errors.
func NormalizeStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "success", "successful", "paid", "completed":
		return PaymentSuccess
	case "failed", "fail", "declined":
		return PaymentFailed
	case "cancelled", "canceled":
		return PaymentCancelled
	}
	return PaymentPending
}

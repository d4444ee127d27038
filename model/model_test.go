package model

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"0712345678", "254712345678"},
		{"254712345678", "254712345678"},
		{" 0712345678 ", "254712345678"},
		{"+254712345678", "+254712345678"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, NormalizePhone(tt.in))
	}
}

func TestGenerateUUIDWithSuffix(t *testing.T) {
	id := GenerateUUIDWithSuffix("redeem")
	assert.True(t, strings.HasPrefix(id, "redeem_"))
	assert.NotEqual(t, id, GenerateUUIDWithSuffix("redeem"))
}

func TestTransactionTargetNumber(t *testing.T) {
	txn := Transaction{PayerNumber: "254712345678"}
	assert.Equal(t, "254712345678", txn.TargetNumber())

	txn.PayoutNumber = "254733000111"
	assert.Equal(t, "254733000111", txn.TargetNumber())
}

func TestTransactionIsTerminal(t *testing.T) {
	tests := []struct {
		status       string
		retryPending bool
		terminal     bool
	}{
		{StatusInitiated, false, false},
		{StatusPending, false, false},
		{StatusConfirmed, false, false},
		{StatusFulfilled, false, true},
		{StatusFailed, false, true},
		{StatusCancelled, false, true},
		{StatusTimedOut, false, true},
		{StatusFulfillmentFailed, true, false},
		{StatusFulfillmentFailed, false, true},
	}

	for _, tt := range tests {
		txn := Transaction{Status: tt.status, RetryPending: tt.retryPending}
		assert.Equal(t, tt.terminal, txn.IsTerminal(), "status %s retryPending %v", tt.status, tt.retryPending)
	}
}

func TestRetryJobBaseReference(t *testing.T) {
	job := RetryJob{Reference: "TXN-1" + BonusRefSuffix}
	assert.Equal(t, "TXN-1", job.BaseReference())

	job = RetryJob{Reference: "TXN-2"}
	assert.Equal(t, "TXN-2", job.BaseReference())
}

func TestRewardsAccountApply(t *testing.T) {
	account := RewardsAccount{Phone: "254712345678"}
	account.Apply(RewardEvent{Kind: RewardEarn, Points: 100, Timestamp: time.Now()})
	account.Apply(RewardEvent{Kind: RewardRedeem, Points: -60, Timestamp: time.Now()})
	account.Apply(RewardEvent{Kind: RewardRefund, Points: 60, Timestamp: time.Now()})

	assert.Equal(t, int64(100), account.Points)
	assert.Len(t, account.History, 3)
}

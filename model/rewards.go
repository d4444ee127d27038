package model

import "time"

// Reward event kinds. Points deltas are signed: earn and refund are
// positive, redeem is negative. The account balance must always equal the
// sum of its history deltas.
const (
	RewardEarn   = "earn"
	RewardRedeem = "redeem"
	RewardRefund = "refund"
)

type RewardEvent struct {
	Kind      string    `json:"kind"`
	Points    int64     `json:"points"`
	Reference string    `json:"reference"`
	Amount    float64   `json:"amount,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type RewardsAccount struct {
	Phone   string        `json:"phone"`
	Points  int64         `json:"points"`
	History []RewardEvent `json:"history"`
}

// Apply appends an event and moves the balance by its delta, keeping the
// conservation invariant in one place.
func (account *RewardsAccount) Apply(event RewardEvent) {
	account.Points += event.Points
	account.History = append(account.History, event)
}

package model

import (
	"strings"
	"time"
)

// Payment lifecycle states. INITIATED, PENDING and CONFIRMED are transient;
// everything else is terminal except FULFILLMENT_FAILED while a retry is
// still pending.
const (
	StatusInitiated         = "INITIATED"
	StatusPending           = "PENDING"
	StatusConfirmed         = "CONFIRMED"
	StatusFulfilled         = "FULFILLED"
	StatusFulfillmentFailed = "FULFILLMENT_FAILED"
	StatusFailed            = "FAILED"
	StatusCancelled         = "CANCELLED"
	StatusTimedOut          = "TIMED_OUT"
)

// Fulfillment outcomes as seen by clients.
const (
	FulfillmentPending   = "PENDING"
	FulfillmentDelivered = "DELIVERED"
	FulfillmentFailed    = "FAILED"
)

// Retry job kinds.
const (
	JobKindPurchase   = "purchase"
	JobKindRedemption = "redemption"
)

// BonusRefSuffix distinguishes a bonus sub-payment reference from the base
// payment reference when the two are dispatched separately.
const BonusRefSuffix = "-bonus"

// Transaction is one in-flight (or recently terminal) top-up, keyed by the
// payment provider's transaction reference. ComputedFee is internal and must
// never reach a client-facing payload; redaction happens in api/model.
type Transaction struct {
	Reference        string                 `json:"reference"`
	PayerNumber      string                 `json:"payer_number"`
	PayoutNumber     string                 `json:"payout_number,omitempty"`
	RequestedAmount  float64                `json:"requested_amount"`
	Status           string                 `json:"status"`
	PollAttempts     int                    `json:"poll_attempts"`
	ComputedFee      float64                `json:"computed_fee"`
	BonusAmount      int64                  `json:"bonus_amount"`
	TotalAirtimeSent int64                  `json:"total_airtime_sent"`
	Fulfillment      string                 `json:"fulfillment"`
	RetryPending     bool                   `json:"retry_pending"`
	LastError        string                 `json:"last_error,omitempty"`
	PaymentResult    map[string]interface{} `json:"payment_result,omitempty"`
	AirtimeResult    map[string]interface{} `json:"airtime_result,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	TerminalAt       time.Time              `json:"terminal_at,omitempty"`
}

// TargetNumber returns the number airtime is sent to: the payout override
// when set, otherwise the paying number.
func (transaction *Transaction) TargetNumber() string {
	if transaction.PayoutNumber != "" {
		return transaction.PayoutNumber
	}
	return transaction.PayerNumber
}

// IsTerminal reports whether no further automatic transition can occur.
// FULFILLMENT_FAILED is terminal only once no retry is pending.
func (transaction *Transaction) IsTerminal() bool {
	switch transaction.Status {
	case StatusFulfilled, StatusFailed, StatusCancelled, StatusTimedOut:
		return true
	case StatusFulfillmentFailed:
		return !transaction.RetryPending
	}
	return false
}

// RetryJob is one queued fulfillment attempt. AttemptCount strictly
// increases on every requeue; the job is discarded once it exceeds the
// configured ceiling. AccountPhone/Points carry the rewards side effect:
// an earn credit on delivery for purchase jobs, a refund on terminal
// failure for redemption jobs.
type RetryJob struct {
	TargetNumber string `json:"target_number"`
	Amount       int64  `json:"amount"`
	Reference    string `json:"reference"`
	AttemptCount int    `json:"attempt_count"`
	Kind         string `json:"kind"`
	AccountPhone string `json:"account_phone,omitempty"`
	Points       int64  `json:"points,omitempty"`
	AmountPaid   float64 `json:"amount_paid,omitempty"`
}

// BaseReference strips the bonus suffix so the job can be matched back to
// the transaction that spawned it.
func (job *RetryJob) BaseReference() string {
	return strings.TrimSuffix(job.Reference, BonusRefSuffix)
}

// Snapshot is the full serializable state of the coordinator: the
// transaction table, the retry queue and the rewards ledger.
type Snapshot struct {
	TakenAt      time.Time                  `json:"taken_at"`
	Transactions map[string]*Transaction    `json:"transactions"`
	RetryJobs    []RetryJob                 `json:"retry_jobs"`
	Rewards      map[string]*RewardsAccount `json:"rewards"`
}

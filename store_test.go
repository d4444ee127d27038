package tawi

import (
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"

	"github.com/tawihq/tawi/model"
)

func newTestTransaction(reference string) *model.Transaction {
	return &model.Transaction{
		Reference:       reference,
		PayerNumber:     "254" + gofakeit.DigitN(9),
		RequestedAmount: 1000,
		Status:          model.StatusInitiated,
		Fulfillment:     model.FulfillmentPending,
		CreatedAt:       time.Now(),
	}
}

func TestStoreRegisterIsIdempotent(t *testing.T) {
	store := NewStore()
	ref := gofakeit.UUID()

	first := store.Register(newTestTransaction(ref))
	assert.Equal(t, model.StatusInitiated, first.Status)

	replay := newTestTransaction(ref)
	replay.RequestedAmount = 99
	second := store.Register(replay)

	assert.Equal(t, first.RequestedAmount, second.RequestedAmount)
	assert.Equal(t, 1, store.Count())
}

func TestStoreConfirmedTransitionFiresOnce(t *testing.T) {
	store := NewStore()
	ref := gofakeit.UUID()
	store.Register(newTestTransaction(ref))

	action := store.ApplyPollResult(ref, PaymentSuccess, nil, 40)
	assert.Equal(t, PollActionFulfill, action)

	// A concurrent webhook or second poll must not win a second fulfillment.
	action = store.ApplyPollResult(ref, PaymentSuccess, nil, 40)
	assert.Equal(t, PollActionNone, action)

	action, known := store.MergeWebhook(ref, PaymentSuccess, nil)
	assert.True(t, known)
	assert.Equal(t, PollActionNone, action)
}

func TestStorePendingCountsAttempts(t *testing.T) {
	store := NewStore()
	ref := gofakeit.UUID()
	store.Register(newTestTransaction(ref))

	action := store.ApplyPollResult(ref, PaymentPending, map[string]interface{}{"status": "pending"}, 40)
	assert.Equal(t, PollActionNone, action)

	txn, ok := store.Get(ref)
	assert.True(t, ok)
	assert.Equal(t, model.StatusPending, txn.Status)
	assert.Equal(t, 1, txn.PollAttempts)
}

func TestStoreTimesOutAtAttemptCeiling(t *testing.T) {
	store := NewStore()
	ref := gofakeit.UUID()
	store.Register(newTestTransaction(ref))

	var action PollAction
	for i := 0; i < 3; i++ {
		action = store.ApplyPollResult(ref, PaymentPending, nil, 3)
	}
	assert.Equal(t, PollActionTimedOut, action)

	txn, _ := store.Get(ref)
	assert.Equal(t, model.StatusTimedOut, txn.Status)
	assert.Equal(t, model.FulfillmentFailed, txn.Fulfillment)
	assert.True(t, txn.IsTerminal())
	assert.Empty(t, store.DuePolls(3))
}

func TestStorePollErrorCountsAsAttempt(t *testing.T) {
	store := NewStore()
	ref := gofakeit.UUID()
	store.Register(newTestTransaction(ref))

	action := store.RecordPollError(ref, "connection refused", 2)
	assert.Equal(t, PollActionNone, action)

	action = store.RecordPollError(ref, "connection refused", 2)
	assert.Equal(t, PollActionTimedOut, action)

	txn, _ := store.Get(ref)
	assert.Equal(t, "connection refused", txn.LastError)
	assert.Equal(t, 2, txn.PollAttempts)
}

func TestStoreFailedPaymentIsTerminal(t *testing.T) {
	store := NewStore()
	ref := gofakeit.UUID()
	store.Register(newTestTransaction(ref))

	store.ApplyPollResult(ref, PaymentFailed, nil, 40)

	txn, _ := store.Get(ref)
	assert.Equal(t, model.StatusFailed, txn.Status)
	assert.True(t, txn.IsTerminal())

	// A late success push never resurrects a terminal transaction.
	action, known := store.MergeWebhook(ref, PaymentSuccess, nil)
	assert.True(t, known)
	assert.Equal(t, PollActionNone, action)

	txn, _ = store.Get(ref)
	assert.Equal(t, model.StatusFailed, txn.Status)
}

func TestStoreWebhookUnknownReference(t *testing.T) {
	store := NewStore()

	action, known := store.MergeWebhook(gofakeit.UUID(), PaymentSuccess, nil)
	assert.False(t, known)
	assert.Equal(t, PollActionNone, action)
	assert.Equal(t, 0, store.Count())
}

func TestStoreWebhookIgnoresPollCeiling(t *testing.T) {
	store := NewStore()
	ref := gofakeit.UUID()
	store.Register(newTestTransaction(ref))

	for i := 0; i < 5; i++ {
		store.ApplyPollResult(ref, PaymentPending, nil, 40)
	}

	action, known := store.MergeWebhook(ref, PaymentSuccess, nil)
	assert.True(t, known)
	assert.Equal(t, PollActionFulfill, action)
}

func TestStoreRetryPendingKeepsTransactionAlive(t *testing.T) {
	store := NewStore()
	ref := gofakeit.UUID()
	store.Register(newTestTransaction(ref))
	store.ApplyPollResult(ref, PaymentSuccess, nil, 40)

	store.SetFulfillment(ref, model.FulfillmentFailed, nil, true)

	txn, _ := store.Get(ref)
	assert.Equal(t, model.StatusFulfillmentFailed, txn.Status)
	assert.True(t, txn.RetryPending)
	assert.False(t, txn.IsTerminal())

	store.ResolveFulfillment(ref, true, map[string]interface{}{"status_code": 200})

	txn, _ = store.Get(ref)
	assert.Equal(t, model.StatusFulfilled, txn.Status)
	assert.Equal(t, model.FulfillmentDelivered, txn.Fulfillment)
	assert.False(t, txn.RetryPending)
	assert.True(t, txn.IsTerminal())
}

func TestStoreEvictExpired(t *testing.T) {
	store := NewStore()
	oldRef := gofakeit.UUID()
	freshRef := gofakeit.UUID()
	liveRef := gofakeit.UUID()

	old := newTestTransaction(oldRef)
	old.Status = model.StatusFulfilled
	old.Fulfillment = model.FulfillmentDelivered
	old.TerminalAt = time.Now().Add(-20 * time.Minute)
	store.Register(old)

	fresh := newTestTransaction(freshRef)
	fresh.Status = model.StatusFailed
	fresh.TerminalAt = time.Now()
	store.Register(fresh)

	store.Register(newTestTransaction(liveRef))

	evicted := store.EvictExpired(10 * time.Minute)
	assert.Equal(t, []string{oldRef}, evicted)
	assert.Equal(t, 2, store.Count())

	_, ok := store.Get(oldRef)
	assert.False(t, ok)
}

func TestStoreSnapshotRoundTrip(t *testing.T) {
	store := NewStore()
	ref := gofakeit.UUID()
	store.Register(newTestTransaction(ref))
	store.ApplyPollResult(ref, PaymentPending, nil, 40)

	dump := store.SnapshotTransactions()

	restored := NewStore()
	restored.Restore(dump)

	original, _ := store.Get(ref)
	copied, ok := restored.Get(ref)
	assert.True(t, ok)
	assert.Equal(t, original.Status, copied.Status)
	assert.Equal(t, original.PollAttempts, copied.PollAttempts)

	// The snapshot is a copy, not a view.
	store.ApplyPollResult(ref, PaymentPending, nil, 40)
	copied, _ = restored.Get(ref)
	assert.Equal(t, 1, copied.PollAttempts)
}

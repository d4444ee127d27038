package tawi

import (
	"context"
	"fmt"
	"time"

	"github.com/tawihq/tawi/internal/apierror"
	"github.com/tawihq/tawi/internal/notification"
	"github.com/tawihq/tawi/model"
)

// InitiatePurchase starts a top-up: it initializes payment collection with
// the provider and registers the transaction for polling. No airtime moves
// here; fulfillment waits for payment confirmation.
func (t *Tawi) InitiatePurchase(ctx context.Context, payerNumber, payoutNumber string, amount float64) (*model.Transaction, error) {
	payer := model.NormalizePhone(payerNumber)
	payout := ""
	if payoutNumber != "" {
		payout = model.NormalizePhone(payoutNumber)
	}

	reference, raw, err := t.payment.Initialize(ctx, payer, amount)
	if err != nil {
		notification.NotifyError(err)
		return nil, apierror.NewAPIError(apierror.ErrProvider, "failed to initialize payment", err.Error())
	}

	txn := &model.Transaction{
		Reference:       reference,
		PayerNumber:     payer,
		PayoutNumber:    payout,
		RequestedAmount: amount,
		Status:          model.StatusInitiated,
		Fulfillment:     model.FulfillmentPending,
		PaymentResult:   raw,
		CreatedAt:       time.Now(),
	}
	return t.store.Register(txn), nil
}

// GetTransaction returns a copy of a tracked transaction. It never touches
// a provider: status queries must not block on external calls.
func (t *Tawi) GetTransaction(reference string) (*model.Transaction, error) {
	txn, ok := t.store.Get(reference)
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("reference %s not found", reference), nil)
	}
	return &txn, nil
}

// PendingOverview lists every tracked transaction, including internal
// figures. Debug surface only.
func (t *Tawi) PendingOverview() []model.Transaction {
	return t.store.All()
}

// MergePaymentCallback folds a provider push notification into the tracked
// state. Unknown references are rejected, terminal states are never
// overridden, and a confirming push triggers fulfillment through the same
// one-way gate the poller uses.
func (t *Tawi) MergePaymentCallback(ctx context.Context, reference, status string, raw map[string]interface{}) error {
	normalized := NormalizeStatus(status)
	action, known := t.store.MergeWebhook(reference, normalized, raw)
	if !known {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("reference %s not tracked", reference), nil)
	}
	if action == PollActionFulfill {
		t.fulfill(ctx, reference)
	}
	return nil
}

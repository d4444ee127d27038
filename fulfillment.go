/*
Copyright 2025 Tawi Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package tawi

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/tawihq/tawi/config"
	"github.com/tawihq/tawi/internal/audit"
	"github.com/tawihq/tawi/internal/notification"
	"github.com/tawihq/tawi/model"
)

// Charges are the amounts derived from a confirmed payment. Fee stays
// internal; base and bonus go out as one combined dispatch.
type Charges struct {
	Fee         float64
	BaseAirtime int64
	Bonus       int64
	Total       int64
	Points      int64
}

// ComputeCharges derives the hidden fee, the airtime actually sent and the
// loyalty points earned from the requested amount.
func ComputeCharges(amount float64, biz config.BusinessConfig) Charges {
	amt := decimal.NewFromFloat(amount)
	hundred := decimal.NewFromInt(100)

	fee := amt.Mul(decimal.NewFromFloat(biz.FeePercent)).Div(hundred).Round(2)
	base := amt.Sub(fee).Floor().IntPart()
	if base < 1 {
		base = 1
	}
	bonus := amt.Mul(decimal.NewFromFloat(biz.BonusPercent)).Div(hundred).Floor().IntPart()
	points := amt.Mul(decimal.NewFromFloat(biz.PointsPerUnit)).Floor().IntPart()

	feeValue, _ := fee.Float64()
	return Charges{
		Fee:         feeValue,
		BaseAirtime: base,
		Bonus:       bonus,
		Total:       base + bonus,
		Points:      points,
	}
}

// fulfill runs the fulfillment routine for a confirmed transaction. Callers
// must have won the CONFIRMED transition first; that gate makes the airtime
// call and the points credit at-most-once per reference.
func (t *Tawi) fulfill(ctx context.Context, reference string) {
	txn, ok := t.store.Get(reference)
	if !ok {
		return
	}

	conf, err := config.Fetch()
	if err != nil {
		notification.NotifyError(err)
		return
	}

	charges := ComputeCharges(txn.RequestedAmount, conf.Business)
	t.store.SetCharges(reference, charges.Fee, charges.Bonus, charges.Total)

	target := txn.TargetNumber()
	result := t.airtime.Dispatch(ctx, target, charges.Total, reference)

	switch {
	case result.Delivered:
		t.store.SetFulfillment(reference, model.FulfillmentDelivered, result.Raw, false)
		t.rewards.Earn(txn.PayerNumber, charges.Points, reference, txn.RequestedAmount)
		if charges.Bonus > 0 {
			t.audit.Record(audit.CategoryBonus, audit.Event{
				"reference": reference,
				"phone":     target,
				"bonus":     charges.Bonus,
			})
		}
		logrus.Infof("fulfilled %s: sent %d airtime to %s", reference, charges.Total, target)
	case result.Retryable:
		t.store.SetFulfillment(reference, model.FulfillmentFailed, result.Raw, true)
		t.queue.Push(model.RetryJob{
			TargetNumber: target,
			Amount:       charges.Total,
			Reference:    reference,
			Kind:         model.JobKindPurchase,
			AccountPhone: txn.PayerNumber,
			Points:       charges.Points,
			AmountPaid:   txn.RequestedAmount,
		})
		logrus.Warnf("fulfillment for %s hit a float shortage, queued for retry", reference)
	default:
		t.store.SetFulfillment(reference, model.FulfillmentFailed, result.Raw, false)
		t.audit.Record(audit.CategoryFailure, audit.Event{
			"reference": reference,
			"phone":     target,
			"amount":    charges.Total,
			"response":  result.Raw,
		})
		logrus.Errorf("fulfillment for %s failed permanently", reference)
	}
}

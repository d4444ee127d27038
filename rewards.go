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
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tawihq/tawi/config"
	"github.com/tawihq/tawi/internal/apierror"
	"github.com/tawihq/tawi/internal/audit"
	"github.com/tawihq/tawi/model"
)

// Rewards is the in-process loyalty points ledger, keyed by phone number.
// Balance always equals the signed sum of history deltas; a failed
// redemption is compensated with a refund entry, never silently dropped.
type Rewards struct {
	mu       sync.Mutex
	accounts map[string]*model.RewardsAccount
}

func NewRewards() *Rewards {
	return &Rewards{accounts: make(map[string]*model.RewardsAccount)}
}

// ensure returns the account for a phone, creating it empty if needed.
// Callers hold the lock.
func (r *Rewards) ensure(phone string) *model.RewardsAccount {
	account, ok := r.accounts[phone]
	if !ok {
		account = &model.RewardsAccount{Phone: phone}
		r.accounts[phone] = account
	}
	return account
}

// Earn credits points for a completed purchase. Zero earnings are skipped.
func (r *Rewards) Earn(phone string, points int64, reference string, amount float64) {
	if points <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ensure(phone).Apply(model.RewardEvent{
		Kind:      model.RewardEarn,
		Points:    points,
		Reference: reference,
		Amount:    amount,
		Timestamp: time.Now(),
	})
}

// Debit charges points for a redemption. The balance check and the write
// happen under one lock so concurrent redemptions cannot overdraw.
func (r *Rewards) Debit(phone string, points int64, reference string, amount float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account := r.ensure(phone)
	if account.Points < points {
		return errors.New("not enough points")
	}
	account.Apply(model.RewardEvent{
		Kind:      model.RewardRedeem,
		Points:    -points,
		Reference: reference,
		Amount:    amount,
		Timestamp: time.Now(),
	})
	return nil
}

// Refund restores points after a terminally failed redemption dispatch.
func (r *Rewards) Refund(phone string, points int64, reference string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ensure(phone).Apply(model.RewardEvent{
		Kind:      model.RewardRefund,
		Points:    points,
		Reference: reference,
		Timestamp: time.Now(),
	})
	logrus.Infof("refunded %d points to %s for %s", points, phone, reference)
}

func (r *Rewards) Balance(phone string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if account, ok := r.accounts[phone]; ok {
		return account.Points
	}
	return 0
}

// Account returns a copy of an account with at most historyLimit most
// recent events. Unknown phones get an empty account.
func (r *Rewards) Account(phone string, historyLimit int) model.RewardsAccount {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[phone]
	if !ok {
		return model.RewardsAccount{Phone: phone, History: []model.RewardEvent{}}
	}

	history := account.History
	if historyLimit > 0 && len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	copied := make([]model.RewardEvent, len(history))
	copy(copied, history)
	return model.RewardsAccount{Phone: account.Phone, Points: account.Points, History: copied}
}

// SnapshotAccounts copies the ledger for serialization.
func (r *Rewards) SnapshotAccounts() map[string]*model.RewardsAccount {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]*model.RewardsAccount, len(r.accounts))
	for phone, account := range r.accounts {
		copied := model.RewardsAccount{Phone: account.Phone, Points: account.Points}
		copied.History = make([]model.RewardEvent, len(account.History))
		copy(copied.History, account.History)
		out[phone] = &copied
	}
	return out
}

func (r *Rewards) Restore(accounts map[string]*model.RewardsAccount) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.accounts = make(map[string]*model.RewardsAccount, len(accounts))
	for phone, account := range accounts {
		copied := *account
		r.accounts[phone] = &copied
	}
}

// RedeemOutcome is the synchronous answer to a redemption request.
type RedeemOutcome struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	AirtimeAmount int64  `json:"airtime_amount"`
	PointsCharged int64  `json:"points_charged"`
	Reference     string `json:"reference"`
}

// Redemption outcome statuses.
const (
	RedeemSent   = "sent"
	RedeemQueued = "queued"
)

// RedeemPoints converts points into airtime in fixed-size bundles. Points
// are debited optimistically before dispatch: a delivered or queued
// dispatch keeps the debit, a terminal failure reverses it with a refund
// entry so the balance nets back to its pre-redemption value.
func (t *Tawi) RedeemPoints(ctx context.Context, phone string, points int64, payoutNumber string) (*RedeemOutcome, error) {
	conf, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	phone = model.NormalizePhone(phone)
	if points <= 0 {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "points must be a positive number", nil)
	}
	if t.rewards.Balance(phone) < points {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "not enough points", nil)
	}

	bundles := points / conf.Business.PointsPerBundle
	if bundles < 1 {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput,
			fmt.Sprintf("minimum %d points to redeem", conf.Business.PointsPerBundle), nil)
	}

	pointsCharged := bundles * conf.Business.PointsPerBundle
	airtimeAmount := bundles * conf.Business.RedeemRate
	reference := model.GenerateUUIDWithSuffix("redeem")

	if err := t.rewards.Debit(phone, pointsCharged, reference, float64(airtimeAmount)); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, err.Error(), nil)
	}

	target := phone
	if payoutNumber != "" {
		target = model.NormalizePhone(payoutNumber)
	}

	result := t.airtime.Dispatch(ctx, target, airtimeAmount, reference)
	outcome := &RedeemOutcome{AirtimeAmount: airtimeAmount, PointsCharged: pointsCharged, Reference: reference}

	switch {
	case result.Delivered:
		outcome.Status = RedeemSent
		outcome.Message = "Airtime redeemed and sent"
		t.audit.Record(audit.CategoryRedemption, audit.Event{
			"reference": reference,
			"phone":     target,
			"airtime":   airtimeAmount,
			"points":    pointsCharged,
			"outcome":   RedeemSent,
		})
		return outcome, nil
	case result.Retryable:
		t.queue.Push(model.RetryJob{
			TargetNumber: target,
			Amount:       airtimeAmount,
			Reference:    reference,
			Kind:         model.JobKindRedemption,
			AccountPhone: phone,
			Points:       pointsCharged,
		})
		outcome.Status = RedeemQueued
		outcome.Message = "Airtime redemption queued (awaiting float)"
		t.audit.Record(audit.CategoryRedemption, audit.Event{
			"reference": reference,
			"phone":     target,
			"airtime":   airtimeAmount,
			"points":    pointsCharged,
			"outcome":   RedeemQueued,
		})
		return outcome, nil
	default:
		t.rewards.Refund(phone, pointsCharged, reference)
		t.audit.Record(audit.CategoryRedemption, audit.Event{
			"reference": reference,
			"phone":     target,
			"airtime":   airtimeAmount,
			"points":    pointsCharged,
			"outcome":   "failed",
		})
		return nil, apierror.NewAPIError(apierror.ErrProvider, "failed to send airtime, points refunded", nil)
	}
}

// RewardsAccount returns a phone's balance and its 20 most recent events.
func (t *Tawi) RewardsAccount(phone string) model.RewardsAccount {
	return t.rewards.Account(model.NormalizePhone(phone), 20)
}

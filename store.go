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
	"sort"
	"sync"
	"time"

	"github.com/tawihq/tawi/model"
)

// PollAction tells the caller what a state transition requires next.
type PollAction int

const (
	PollActionNone PollAction = iota
	// PollActionFulfill means the caller won the CONFIRMED transition and
	// must run fulfillment exactly once.
	PollActionFulfill
	PollActionTimedOut
)

// Store is the authoritative in-memory table of in-flight transactions,
// keyed by payment reference. Every "read current state, decide, write new
// state" step happens under one lock so no task observes an intermediate
// state for the same reference.
type Store struct {
	mu   sync.RWMutex
	txns map[string]*model.Transaction
}

func NewStore() *Store {
	return &Store{txns: make(map[string]*model.Transaction)}
}

// Register adds a transaction under its reference. References are
// provider-assigned and unique; if one is somehow replayed the existing
// entry wins and is returned unchanged.
func (s *Store) Register(txn *model.Transaction) *model.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.txns[txn.Reference]; ok {
		copied := *existing
		return &copied
	}
	s.txns[txn.Reference] = txn
	copied := *txn
	return &copied
}

// Get returns a copy of the transaction; mutations go through the store.
func (s *Store) Get(reference string) (model.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txn, ok := s.txns[reference]
	if !ok {
		return model.Transaction{}, false
	}
	return *txn, true
}

// All returns copies of every tracked transaction, oldest first.
func (s *Store) All() []model.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Transaction, 0, len(s.txns))
	for _, txn := range s.txns {
		out = append(out, *txn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.txns)
}

// DuePolls lists references that still need a payment status poll: not yet
// confirmed or terminal, and under the attempt ceiling.
func (s *Store) DuePolls(maxAttempts int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var refs []string
	for ref, txn := range s.txns {
		if (txn.Status == model.StatusInitiated || txn.Status == model.StatusPending) && txn.PollAttempts < maxAttempts {
			refs = append(refs, ref)
		}
	}
	sort.Strings(refs)
	return refs
}

// ApplyPollResult records one poll cycle: increments the attempt counter,
// stores the raw provider payload and drives the state machine. The
// CONFIRMED transition is one-way; winning it is the fulfillment gate.
func (s *Store) ApplyPollResult(reference, normalized string, raw map[string]interface{}, maxAttempts int) PollAction {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn, ok := s.txns[reference]
	if !ok {
		return PollActionNone
	}

	txn.PollAttempts++
	if raw != nil {
		txn.PaymentResult = raw
	}
	return s.advance(txn, normalized, maxAttempts)
}

// RecordPollError counts a failed poll as a no-op attempt. Transient
// provider errors never terminate a transaction early, except through the
// attempt ceiling.
func (s *Store) RecordPollError(reference, errMsg string, maxAttempts int) PollAction {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn, ok := s.txns[reference]
	if !ok {
		return PollActionNone
	}

	txn.PollAttempts++
	txn.LastError = errMsg
	return s.advance(txn, PaymentPending, maxAttempts)
}

// MergeWebhook folds a push notification into poll-derived state. Unknown
// references are rejected and a terminal state is never overridden; a push
// is merged, not trusted on its own.
func (s *Store) MergeWebhook(reference, normalized string, raw map[string]interface{}) (PollAction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn, ok := s.txns[reference]
	if !ok {
		return PollActionNone, false
	}
	if txn.IsTerminal() {
		return PollActionNone, true
	}
	if raw != nil {
		txn.PaymentResult = raw
	}
	// maxAttempts 0 disables the ceiling check: a webhook is not a poll.
	return s.advance(txn, normalized, 0), true
}

// advance applies the normalized payment status to the state machine.
// Callers hold the lock.
func (s *Store) advance(txn *model.Transaction, normalized string, maxAttempts int) PollAction {
	pollable := txn.Status == model.StatusInitiated || txn.Status == model.StatusPending
	if !pollable {
		return PollActionNone
	}

	switch normalized {
	case PaymentSuccess:
		txn.Status = model.StatusConfirmed
		return PollActionFulfill
	case PaymentFailed:
		txn.Status = model.StatusFailed
		txn.Fulfillment = model.FulfillmentFailed
		s.markTerminal(txn)
		return PollActionNone
	case PaymentCancelled:
		txn.Status = model.StatusCancelled
		txn.Fulfillment = model.FulfillmentFailed
		s.markTerminal(txn)
		return PollActionNone
	}

	txn.Status = model.StatusPending
	if maxAttempts > 0 && txn.PollAttempts >= maxAttempts {
		txn.Status = model.StatusTimedOut
		txn.Fulfillment = model.FulfillmentFailed
		s.markTerminal(txn)
		return PollActionTimedOut
	}
	return PollActionNone
}

// SetCharges records the derived amounts computed at confirmation. They are
// set once and never change afterwards.
func (s *Store) SetCharges(reference string, fee float64, bonus, total int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if txn, ok := s.txns[reference]; ok {
		txn.ComputedFee = fee
		txn.BonusAmount = bonus
		txn.TotalAirtimeSent = total
	}
}

// SetFulfillment records the outcome of the first dispatch attempt.
// retryPending keeps FULFILLMENT_FAILED non-terminal while a retry job is
// queued.
func (s *Store) SetFulfillment(reference, outcome string, raw map[string]interface{}, retryPending bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn, ok := s.txns[reference]
	if !ok {
		return
	}

	txn.Fulfillment = outcome
	txn.AirtimeResult = raw
	txn.RetryPending = retryPending

	switch outcome {
	case model.FulfillmentDelivered:
		txn.Status = model.StatusFulfilled
		s.markTerminal(txn)
	case model.FulfillmentFailed:
		txn.Status = model.StatusFulfillmentFailed
		if !retryPending {
			s.markTerminal(txn)
		}
	}
}

// ResolveFulfillment finalizes a transaction once the retry queue settles
// its job. A reference that has since been evicted is a no-op: dispatch
// already happened and is not reference-checked.
func (s *Store) ResolveFulfillment(reference string, delivered bool, raw map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn, ok := s.txns[reference]
	if !ok {
		return
	}

	txn.RetryPending = false
	txn.AirtimeResult = raw
	if delivered {
		txn.Fulfillment = model.FulfillmentDelivered
		txn.Status = model.StatusFulfilled
	} else {
		txn.Fulfillment = model.FulfillmentFailed
		txn.Status = model.StatusFulfillmentFailed
	}
	s.markTerminal(txn)
}

// EvictExpired removes terminal transactions whose retention window has
// elapsed and returns their references.
func (s *Store) EvictExpired(retention time.Duration) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted []string
	now := time.Now()
	for ref, txn := range s.txns {
		if txn.IsTerminal() && !txn.TerminalAt.IsZero() && now.Sub(txn.TerminalAt) >= retention {
			delete(s.txns, ref)
			evicted = append(evicted, ref)
		}
	}
	return evicted
}

// SnapshotTransactions returns a deep-enough copy of the table for
// serialization.
func (s *Store) SnapshotTransactions() map[string]*model.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*model.Transaction, len(s.txns))
	for ref, txn := range s.txns {
		copied := *txn
		out[ref] = &copied
	}
	return out
}

// Restore replaces the table with snapshot contents.
func (s *Store) Restore(txns map[string]*model.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.txns = make(map[string]*model.Transaction, len(txns))
	for ref, txn := range txns {
		copied := *txn
		s.txns[ref] = &copied
	}
}

func (s *Store) markTerminal(txn *model.Transaction) {
	if txn.TerminalAt.IsZero() {
		txn.TerminalAt = time.Now()
	}
}

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
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tawihq/tawi/config"
	"github.com/tawihq/tawi/internal/audit"
	"github.com/tawihq/tawi/internal/notification"
)

// StartSchedulers launches the payment poller, the retry worker and the
// snapshot writer. The retry period is configured strictly slower than the
// poll period. All three stop when ctx is cancelled.
func (t *Tawi) StartSchedulers(ctx context.Context) error {
	conf, err := config.Fetch()
	if err != nil {
		return err
	}

	go t.runEvery(ctx, time.Duration(conf.Scheduler.PollIntervalSec)*time.Second, t.pollTick)
	go t.runEvery(ctx, time.Duration(conf.Scheduler.RetryIntervalSec)*time.Second, t.retryTick)
	go t.runEvery(ctx, time.Duration(conf.Snapshot.IntervalSec)*time.Second, t.snapshotTick)
	return nil
}

// runEvery drives one periodic task. Ticks share schedMu so at most one
// task body executes at a time; a tick that outlasts its period simply
// skips cycles instead of interleaving.
func (t *Tawi) runEvery(ctx context.Context, period time.Duration, tick func(context.Context)) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.schedMu.Lock()
			tick(ctx)
			t.schedMu.Unlock()
		}
	}
}

// pollTick queries the payment provider for every transaction still
// awaiting confirmation, then sweeps out terminal entries past the
// retention window.
func (t *Tawi) pollTick(ctx context.Context) {
	conf, err := config.Fetch()
	if err != nil {
		notification.NotifyError(err)
		return
	}

	maxAttempts := conf.Scheduler.MaxPollAttempts
	for _, reference := range t.store.DuePolls(maxAttempts) {
		t.pollOne(ctx, reference, maxAttempts)
	}

	retention := time.Duration(conf.Scheduler.RetentionMin) * time.Minute
	if evicted := t.store.EvictExpired(retention); len(evicted) > 0 {
		logrus.Infof("evicted %d terminal transactions past retention", len(evicted))
	}
}

// pollOne runs a single poll cycle for one reference. A failing poll is a
// counted no-op attempt, so one bad reference never blocks the rest of the
// tick and a dead provider still times transactions out.
func (t *Tawi) pollOne(ctx context.Context, reference string, maxAttempts int) {
	var action PollAction

	rawStatus, raw, err := t.payment.Status(ctx, reference)
	if err != nil {
		logrus.Errorf("poll %s: %v", reference, err)
		action = t.store.RecordPollError(reference, err.Error(), maxAttempts)
	} else {
		action = t.store.ApplyPollResult(reference, NormalizeStatus(rawStatus), raw, maxAttempts)
	}

	switch action {
	case PollActionFulfill:
		t.fulfill(ctx, reference)
	case PollActionTimedOut:
		t.audit.Record(audit.CategoryTimeout, audit.Event{
			"reference": reference,
			"attempts":  maxAttempts,
		})
		logrus.Warnf("transaction %s timed out after %d polls", reference, maxAttempts)
	}
}

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
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/tawihq/tawi/config"
	"github.com/tawihq/tawi/internal/audit"
	"github.com/tawihq/tawi/internal/backups"
)

// Tawi coordinates the top-up transaction lifecycle: it owns the in-memory
// transaction table, the retry queue and the rewards ledger, and drives
// them through the payment poller and retry worker schedulers.
type Tawi struct {
	store   *Store
	queue   *RetryQueue
	rewards *Rewards
	payment *PaymentClient
	airtime *AirtimeClient
	audit   *audit.Sink

	// schedMu serializes scheduler ticks so at most one periodic task
	// runs at a time.
	schedMu sync.Mutex
}

// NewTawi initializes a new instance of Tawi from the loaded configuration
// and restores the latest snapshot when one exists.
//
// Returns:
// - *Tawi: A pointer to the newly created Tawi instance.
// - error: An error if any of the initialization steps fail.
func NewTawi() (*Tawi, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	sink, err := audit.NewSink(configuration.AuditDir)
	if err != nil {
		return nil, err
	}

	newTawi := &Tawi{
		store:   NewStore(),
		queue:   NewRetryQueue(),
		rewards: NewRewards(),
		payment: NewPaymentClient(configuration.Payment),
		airtime: NewAirtimeClient(configuration.Airtime, sink),
		audit:   sink,
	}

	snap, err := backups.LoadLatest()
	if err != nil {
		logrus.Warnf("could not load snapshot, starting empty: %v", err)
	} else if snap != nil {
		newTawi.restore(snap)
	}

	return newTawi, nil
}

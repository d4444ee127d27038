package tawi

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tawihq/tawi/internal/backups"
	"github.com/tawihq/tawi/internal/notification"
	"github.com/tawihq/tawi/model"
)

// Snapshot captures the full coordinator state: the transaction table, the
// retry queue and the rewards ledger, taken at one point in time.
func (t *Tawi) Snapshot() *model.Snapshot {
	return &model.Snapshot{
		TakenAt:      time.Now(),
		Transactions: t.store.SnapshotTransactions(),
		RetryJobs:    t.queue.Jobs(),
		Rewards:      t.rewards.SnapshotAccounts(),
	}
}

// SaveSnapshot dumps the current state to the snapshot directory.
func (t *Tawi) SaveSnapshot() error {
	path, err := backups.WriteSnapshot(t.Snapshot())
	if err != nil {
		notification.NotifyError(err)
		return err
	}
	logrus.Infof("snapshot written to %s", path)
	return nil
}

func (t *Tawi) restore(snap *model.Snapshot) {
	t.store.Restore(snap.Transactions)
	t.queue.Restore(snap.RetryJobs)
	t.rewards.Restore(snap.Rewards)
	logrus.Infof("restored snapshot from %s: %d transactions, %d retry jobs, %d rewards accounts",
		snap.TakenAt.Format(time.RFC3339), len(snap.Transactions), len(snap.RetryJobs), len(snap.Rewards))
}

func (t *Tawi) snapshotTick(context.Context) {
	if err := t.SaveSnapshot(); err != nil {
		logrus.Errorf("periodic snapshot failed: %v", err)
	}
}

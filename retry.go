package tawi

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/tawihq/tawi/config"
	"github.com/tawihq/tawi/internal/audit"
	"github.com/tawihq/tawi/internal/notification"
	"github.com/tawihq/tawi/model"
)

// RetryQueue is the FIFO queue of fulfillment jobs that failed with a
// retryable cause. It is owned by this process and serialized into every
// snapshot.
type RetryQueue struct {
	mu   sync.Mutex
	jobs []model.RetryJob
}

func NewRetryQueue() *RetryQueue {
	return &RetryQueue{}
}

func (q *RetryQueue) Push(job model.RetryJob) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
}

func (q *RetryQueue) Pop() (model.RetryJob, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.jobs) == 0 {
		return model.RetryJob{}, false
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	return job, true
}

func (q *RetryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Jobs returns a copy of the queue contents for snapshotting.
func (q *RetryQueue) Jobs() []model.RetryJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]model.RetryJob, len(q.jobs))
	copy(out, q.jobs)
	return out
}

func (q *RetryQueue) Restore(jobs []model.RetryJob) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = make([]model.RetryJob, len(jobs))
	copy(q.jobs, jobs)
}

// retryTick drains one job from the head of the queue. On success the
// originating transaction is resolved delivered (and purchase points are
// credited now, not earlier); a float shortage under the ceiling requeues
// with an incremented count; anything else settles the job permanently,
// refunding points for redemption jobs.
func (t *Tawi) retryTick(ctx context.Context) {
	job, ok := t.queue.Pop()
	if !ok {
		return
	}

	conf, err := config.Fetch()
	if err != nil {
		notification.NotifyError(err)
		t.queue.Push(job)
		return
	}

	logrus.Infof("retrying airtime for %s (attempt %d of %d)", job.Reference, job.AttemptCount+1, conf.Scheduler.RetryLimit)
	result := t.airtime.Dispatch(ctx, job.TargetNumber, job.Amount, job.Reference)

	switch {
	case result.Delivered:
		t.store.ResolveFulfillment(job.BaseReference(), true, result.Raw)
		if job.Kind == model.JobKindPurchase && job.Points > 0 {
			t.rewards.Earn(job.AccountPhone, job.Points, job.BaseReference(), job.AmountPaid)
		}
		logrus.Infof("retry succeeded for %s", job.Reference)
	case result.Retryable && job.AttemptCount < conf.Scheduler.RetryLimit:
		job.AttemptCount++
		t.queue.Push(job)
		logrus.Warnf("float still low for %s, requeueing (attempt %d)", job.Reference, job.AttemptCount)
	default:
		t.store.ResolveFulfillment(job.BaseReference(), false, result.Raw)
		if job.Kind == model.JobKindRedemption {
			t.rewards.Refund(job.AccountPhone, job.Points, job.Reference)
		}
		t.audit.Record(audit.CategoryFailure, audit.Event{
			"reference": job.Reference,
			"phone":     job.TargetNumber,
			"amount":    job.Amount,
			"attempts":  job.AttemptCount,
			"response":  result.Raw,
		})
		logrus.Errorf("retry failed permanently for %s", job.Reference)
	}
}

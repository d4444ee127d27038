package tawi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tawihq/tawi/internal/apierror"
	"github.com/tawihq/tawi/model"
)

func TestRewardsConservation(t *testing.T) {
	rewards := NewRewards()
	phone := "254712345678"

	rewards.Earn(phone, 100, "ref-1", 10000)
	rewards.Earn(phone, 50, "ref-2", 5000)
	require.NoError(t, rewards.Debit(phone, 120, "ref-3", 12))
	rewards.Refund(phone, 120, "ref-3")

	account := rewards.Account(phone, 0)
	var sum int64
	for _, event := range account.History {
		sum += event.Points
	}
	assert.Equal(t, sum, account.Points)
	assert.Equal(t, int64(150), account.Points)
}

func TestRewardsDebitInsufficientBalance(t *testing.T) {
	rewards := NewRewards()
	phone := "254712345678"
	rewards.Earn(phone, 50, "ref-1", 5000)

	err := rewards.Debit(phone, 100, "ref-2", 10)
	assert.Error(t, err)
	assert.Equal(t, int64(50), rewards.Balance(phone))
}

func TestRewardsEarnIgnoresZeroPoints(t *testing.T) {
	rewards := NewRewards()
	rewards.Earn("254712345678", 0, "ref-1", 50)

	account := rewards.Account("254712345678", 0)
	assert.Equal(t, int64(0), account.Points)
	assert.Empty(t, account.History)
}

func TestRewardsAccountHistoryLimit(t *testing.T) {
	rewards := NewRewards()
	phone := "254712345678"
	for i := 0; i < 30; i++ {
		rewards.Earn(phone, 1, "ref", 100)
	}

	account := rewards.Account(phone, 20)
	assert.Len(t, account.History, 20)
	assert.Equal(t, int64(30), account.Points)
}

func TestRewardsRestoreRoundTrip(t *testing.T) {
	rewards := NewRewards()
	rewards.Earn("254712345678", 75, "ref-1", 7500)

	restored := NewRewards()
	restored.Restore(rewards.SnapshotAccounts())
	assert.Equal(t, int64(75), restored.Balance("254712345678"))
}

func TestRedeemPointsSent(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	tw := newTestTawi(t)
	registerAirtimeResponder(map[string]interface{}{"status_code": 200})

	phone := "0712345678"
	normalized := model.NormalizePhone(phone)
	tw.rewards.Earn(normalized, 250, "seed", 25000)

	outcome, err := tw.RedeemPoints(context.Background(), phone, 250, "")
	require.NoError(t, err)

	// 250 points at 100 per bundle is 2 bundles: 200 points for 20 airtime.
	assert.Equal(t, RedeemSent, outcome.Status)
	assert.Equal(t, int64(200), outcome.PointsCharged)
	assert.Equal(t, int64(20), outcome.AirtimeAmount)
	assert.NotEmpty(t, outcome.Reference)
	assert.Equal(t, int64(50), tw.rewards.Balance(normalized))
}

func TestRedeemPointsQueuedOnFloatShortage(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	tw := newTestTawi(t)
	registerAirtimeResponder(map[string]interface{}{
		"status_code": 4001,
		"description": "Insufficient float balance",
	})

	phone := "254712345678"
	tw.rewards.Earn(phone, 100, "seed", 10000)

	outcome, err := tw.RedeemPoints(context.Background(), phone, 100, "")
	require.NoError(t, err)

	assert.Equal(t, RedeemQueued, outcome.Status)
	assert.Equal(t, 1, tw.queue.Len())
	// The debit stands while the job is queued.
	assert.Equal(t, int64(0), tw.rewards.Balance(phone))

	job, _ := tw.queue.Pop()
	assert.Equal(t, model.JobKindRedemption, job.Kind)
	assert.Equal(t, int64(100), job.Points)
}

func TestRedeemPointsTerminalFailureRefunds(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	tw := newTestTawi(t)
	registerAirtimeResponder(map[string]interface{}{
		"status_code": 4003,
		"description": "Invalid phone number",
	})

	phone := "254712345678"
	tw.rewards.Earn(phone, 250, "seed", 25000)

	_, err := tw.RedeemPoints(context.Background(), phone, 250, "")
	require.Error(t, err)

	apiErr, ok := err.(apierror.APIError)
	require.True(t, ok)
	assert.Equal(t, apierror.ErrProvider, apiErr.Code)
	assert.Equal(t, int64(250), tw.rewards.Balance(phone))
}

func TestRedeemPointsBelowBundleRefused(t *testing.T) {
	tw := newTestTawi(t)
	phone := "254712345678"
	tw.rewards.Earn(phone, 250, "seed", 25000)

	_, err := tw.RedeemPoints(context.Background(), phone, 50, "")
	require.Error(t, err)

	apiErr, ok := err.(apierror.APIError)
	require.True(t, ok)
	assert.Equal(t, apierror.ErrInvalidInput, apiErr.Code)
	assert.Equal(t, int64(250), tw.rewards.Balance(phone))
}

func TestRedeemPointsInsufficientBalance(t *testing.T) {
	tw := newTestTawi(t)
	phone := "254712345678"
	tw.rewards.Earn(phone, 150, "seed", 15000)

	_, err := tw.RedeemPoints(context.Background(), phone, 300, "")
	require.Error(t, err)
	assert.Equal(t, int64(150), tw.rewards.Balance(phone))
}

func TestRedeemPointsPayoutOverride(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	tw := newTestTawi(t)

	var dispatchedTo string
	httpmock.RegisterResponder("POST", "https://airtime.test/api/v2/airtime",
		func(req *http.Request) (*http.Response, error) {
			var payload map[string]string
			if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
				return nil, err
			}
			dispatchedTo = payload["phone_number"]
			return httpmock.NewJsonResponse(200, map[string]interface{}{"status_code": 200})
		})

	phone := "254712345678"
	tw.rewards.Earn(phone, 100, "seed", 10000)

	outcome, err := tw.RedeemPoints(context.Background(), phone, 100, "0733000111")
	require.NoError(t, err)
	assert.Equal(t, RedeemSent, outcome.Status)
	assert.Equal(t, "254733000111", dispatchedTo)
}

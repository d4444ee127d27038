package tawi

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tawihq/tawi/config"
)

func defaultBusiness() config.BusinessConfig {
	biz := config.BusinessConfig{}
	cnf := config.Configuration{Business: biz}
	config.MockConfig(&cnf)
	loaded, _ := config.Fetch()
	return loaded.Business
}

func TestComputeCharges(t *testing.T) {
	biz := defaultBusiness()

	charges := ComputeCharges(1000, biz)
	assert.Equal(t, 25.0, charges.Fee)
	assert.Equal(t, int64(975), charges.BaseAirtime)
	assert.Equal(t, int64(50), charges.Bonus)
	assert.Equal(t, int64(1025), charges.Total)
	assert.Equal(t, int64(10), charges.Points)
}

func TestComputeChargesFractionalFee(t *testing.T) {
	biz := defaultBusiness()

	charges := ComputeCharges(100, biz)
	assert.Equal(t, 2.5, charges.Fee)
	assert.Equal(t, int64(97), charges.BaseAirtime)
	assert.Equal(t, int64(5), charges.Bonus)
	assert.Equal(t, int64(102), charges.Total)
	assert.Equal(t, int64(1), charges.Points)
}

func TestComputeChargesSmallAmountSendsAtLeastOne(t *testing.T) {
	biz := defaultBusiness()

	charges := ComputeCharges(1, biz)
	assert.GreaterOrEqual(t, charges.Fee, 0.0)
	assert.Equal(t, int64(1), charges.BaseAirtime)
	assert.Equal(t, int64(0), charges.Bonus)
	assert.Equal(t, int64(1), charges.Total)
	assert.Equal(t, int64(0), charges.Points)
}

func TestComputeChargesTotalIsBasePlusBonus(t *testing.T) {
	biz := defaultBusiness()

	for _, amount := range []float64{10, 50, 123.45, 500, 999.99, 10000} {
		charges := ComputeCharges(amount, biz)
		assert.Equal(t, charges.BaseAirtime+charges.Bonus, charges.Total, "amount %v", amount)
		assert.GreaterOrEqual(t, charges.BaseAirtime, int64(1), "amount %v", amount)
	}
}

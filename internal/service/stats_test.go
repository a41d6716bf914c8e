package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/fest-registration/internal/model"
)

func rec(status model.Status, amount int64) model.Registration {
	return model.Registration{Status: status, TotalAmount: amount}
}

func TestComputeStatsDashboard(t *testing.T) {
	st := ComputeStats([]model.Registration{
		rec(model.StatusApproved, 1000),
		rec(model.StatusPending, 500),
		rec(model.StatusRejected, 2000),
	})
	assert.Equal(t, Stats{
		Total:          3,
		Pending:        1,
		Approved:       1,
		Rejected:       1,
		TotalRevenue:   1000,
		PendingAmount:  500,
		RejectedAmount: 2000,
	}, st)
}

func TestComputeStatsRevenueIgnoresUnapproved(t *testing.T) {
	base := []model.Registration{rec(model.StatusApproved, 375), rec(model.StatusApproved, 1250)}
	before := ComputeStats(base).TotalRevenue

	withOthers := append(append([]model.Registration{}, base...),
		rec(model.StatusPending, 9999),
		rec(model.StatusRejected, 4242),
	)
	after := ComputeStats(withOthers)

	assert.Equal(t, int64(1625), before)
	assert.Equal(t, before, after.TotalRevenue)
	assert.Equal(t, 4, after.Total)
}

func TestComputeStatsEmpty(t *testing.T) {
	assert.Equal(t, Stats{}, ComputeStats(nil))
}

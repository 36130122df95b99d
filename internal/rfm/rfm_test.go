package rfm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	datasetdomain "github.com/smallbiznis/insight/internal/dataset/domain"
)

var testNow = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func tx(customer string, daysAgo int, amount float64) datasetdomain.Transaction {
	return datasetdomain.Transaction{
		CustomerID: customer,
		Amount:     amount,
		Date:       testNow.AddDate(0, 0, -daysAgo),
		Category:   "Electronics",
		Channel:    "Online",
	}
}

func TestComputeProfilesSingleTransaction(t *testing.T) {
	c := New(zap.NewNop())
	profiles := c.ComputeProfiles([]datasetdomain.Transaction{tx("CUST-1", 10, 120)}, testNow)
	require.Len(t, profiles, 1)

	p := profiles[0]
	assert.Equal(t, 10, p.Recency)
	assert.Equal(t, 1, p.Frequency)
	assert.Equal(t, 120.0, p.Monetary)
	assert.Equal(t, 0.0, p.AvgInterval)
	assert.Equal(t, 11, p.ChurnRisk)
	assert.Equal(t, 1, p.NextPurchaseDays)
}

func TestComputeProfilesRepeatBuyer(t *testing.T) {
	c := New(zap.NewNop())
	txns := []datasetdomain.Transaction{
		tx("CUST-1", 40, 100),
		tx("CUST-1", 30, 100),
		tx("CUST-1", 20, 100),
		tx("CUST-1", 10, 100),
	}
	profiles := c.ComputeProfiles(txns, testNow)
	require.Len(t, profiles, 1)

	p := profiles[0]
	assert.Equal(t, 10, p.Recency)
	assert.Equal(t, 4, p.Frequency)
	assert.Equal(t, 400.0, p.Monetary)
	assert.Equal(t, 100.0, p.AvgSpend)
	assert.Equal(t, 10.0, p.AvgInterval)

	// Recency is well inside the expected interval, so risk stays low.
	assert.Less(t, p.ChurnRisk, 50)
	assert.Greater(t, p.CLV, 0)
}

func TestComputeProfilesChurnOrdering(t *testing.T) {
	c := New(zap.NewNop())
	txns := []datasetdomain.Transaction{
		tx("active", 30, 100), tx("active", 20, 100), tx("active", 10, 100),
		tx("dormant", 200, 100), tx("dormant", 190, 100), tx("dormant", 180, 100),
	}
	profiles := c.ComputeProfiles(txns, testNow)
	require.Len(t, profiles, 2)

	byID := map[string]Profile{}
	for _, p := range profiles {
		byID[p.CustomerID] = p
	}
	assert.Greater(t, byID["dormant"].ChurnRisk, byID["active"].ChurnRisk)
	assert.Greater(t, byID["active"].CLV, byID["dormant"].CLV)
}

func TestComputeProfilesBounds(t *testing.T) {
	c := New(zap.NewNop())
	txns := []datasetdomain.Transaction{
		tx("CUST-1", 900, 50),
		tx("CUST-2", 500, 80), tx("CUST-2", 10, 80),
		tx("CUST-3", 0, 1000), tx("CUST-3", 1, 1000), tx("CUST-3", 2, 1000),
	}
	for _, p := range c.ComputeProfiles(txns, testNow) {
		assert.GreaterOrEqual(t, p.ChurnRisk, 0)
		assert.LessOrEqual(t, p.ChurnRisk, 100)
		assert.GreaterOrEqual(t, p.CLV, 0)
		assert.GreaterOrEqual(t, p.NextPurchaseDays, 1)
	}
}

func TestComputeProfilesSortedByCustomerID(t *testing.T) {
	c := New(zap.NewNop())
	txns := []datasetdomain.Transaction{tx("b", 5, 10), tx("a", 5, 10), tx("c", 5, 10)}
	profiles := c.ComputeProfiles(txns, testNow)
	require.Len(t, profiles, 3)
	assert.Equal(t, "a", profiles[0].CustomerID)
	assert.Equal(t, "b", profiles[1].CustomerID)
	assert.Equal(t, "c", profiles[2].CustomerID)
}

func TestComputeProfilesEmpty(t *testing.T) {
	c := New(zap.NewNop())
	assert.Empty(t, c.ComputeProfiles(nil, testNow))
}

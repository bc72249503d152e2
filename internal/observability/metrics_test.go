package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObservePlacement_IncrementsOutcomeCounter(t *testing.T) {
	before := testutil.ToFloat64(placementRequests.WithLabelValues(OutcomePaymentDeclined))

	ObservePlacement(OutcomePaymentDeclined, 10*time.Millisecond)

	after := testutil.ToFloat64(placementRequests.WithLabelValues(OutcomePaymentDeclined))
	assert.Equal(t, before+1, after)
}

func TestRecordOrderAndRevenue(t *testing.T) {
	ordersBefore := testutil.ToFloat64(ordersTotal.WithLabelValues(OrderStatusSuccess))
	revenueBefore := testutil.ToFloat64(revenueTotal)

	RecordOrder(OrderStatusSuccess)
	AddRevenue(199.99)

	assert.Equal(t, ordersBefore+1, testutil.ToFloat64(ordersTotal.WithLabelValues(OrderStatusSuccess)))
	assert.InDelta(t, revenueBefore+199.99, testutil.ToFloat64(revenueTotal), 1e-9)
}

func TestIncActiveUsers(t *testing.T) {
	before := testutil.ToFloat64(activeUsers)
	IncActiveUsers()
	assert.Equal(t, before+1, testutil.ToFloat64(activeUsers))
}

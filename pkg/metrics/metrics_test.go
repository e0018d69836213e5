package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectors(t *testing.T) {
	before := testutil.ToFloat64(Commands.WithLabelValues("get_balance", "ok"))
	Commands.WithLabelValues("get_balance", "ok").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(Commands.WithLabelValues("get_balance", "ok")))

	WalletBalance.Set(42)
	assert.Equal(t, float64(42), testutil.ToFloat64(WalletBalance))

	r := testutil.ToFloat64(RelayReconnects)
	RelayReconnects.Inc()
	assert.Equal(t, r+1, testutil.ToFloat64(RelayReconnects))
}

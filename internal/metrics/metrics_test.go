package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegisterIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Register()
		Register()
	})
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(operations.WithLabelValues("create", "ok"))
	IncOperation("create", "ok")
	assert.Equal(t, before+1, testutil.ToFloat64(operations.WithLabelValues("create", "ok")))

	reqBefore := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/api/reservations", "200"))
	ObserveHTTP(http.MethodGet, "/api/reservations", http.StatusOK, 5*time.Millisecond)
	assert.Equal(t, reqBefore+1, testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/api/reservations", "200")))

	SetStoreSize(3)
	assert.Equal(t, float64(3), testutil.ToFloat64(storeSize))
}

package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveContractCall(t *testing.T) {
	before := testutil.ToFloat64(contractCalls.WithLabelValues(KindQuery, "Get", "error"))
	ObserveContractCall(KindQuery, "Get", errors.New("down"), 20*time.Millisecond)
	after := testutil.ToFloat64(contractCalls.WithLabelValues(KindQuery, "Get", "error"))
	assert.Equal(t, before+1, after)
}

func TestHandlerServesRegistry(t *testing.T) {
	ObserveHTTPRequest("GET", "/api/todos", "200", time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "docustore_http_requests_total")
}

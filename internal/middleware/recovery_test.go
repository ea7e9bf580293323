package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/2beens/fittrack/internal/telemetry/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

type panickingHandler struct {
	panicWith any
	called    bool
}

func (h *panickingHandler) ServeHTTP(http.ResponseWriter, *http.Request) {
	h.called = true
	if h.panicWith != nil {
		panic(h.panicWith)
	}
}

func TestPanicRecovery(t *testing.T) {
	testCases := []struct {
		name           string
		panicWith      any
		expectedCode   int
		expectedPanics float64
	}{
		{name: "no panic", expectedCode: http.StatusOK},
		{name: "string panic", panicWith: "tick on nil session", expectedCode: http.StatusInternalServerError, expectedPanics: 1},
		{name: "error panic", panicWith: assert.AnError, expectedCode: http.StatusInternalServerError, expectedPanics: 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			metricsManager := metrics.NewTestManager()
			next := &panickingHandler{panicWith: tc.panicWith}

			rr := httptest.NewRecorder()
			PanicRecovery(metricsManager)(next).ServeHTTP(rr, httptest.NewRequest("POST", "/activity/stop", nil))

			assert.True(t, next.called)
			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.Equal(t, tc.expectedPanics, testutil.ToFloat64(metricsManager.CounterHandleRequestPanic))
		})
	}
}

func TestPanicRecovery_AbortHandlerPropagates(t *testing.T) {
	next := &panickingHandler{panicWith: http.ErrAbortHandler}
	handler := PanicRecovery(nil)(next)

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/activity/stream", nil))
	})
}

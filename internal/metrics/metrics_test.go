package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayMetrics(t *testing.T) {
	reg := NewRegistry()
	m := NewGatewayMetrics(reg)

	m.Frames.WithLabelValues("decoded").Inc()
	m.Frames.WithLabelValues("decoded").Inc()
	m.Commands.WithLabelValues("dropped").Inc()
	m.MQTTConnected.Set(1)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Frames.WithLabelValues("decoded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Commands.WithLabelValues("dropped")))

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "rfm12_frames_total")
	assert.Contains(t, rec.Body.String(), "rfm12_mqtt_connected 1")
}

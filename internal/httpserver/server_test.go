package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	cfgpkg "github.com/linjuya-lu/device_rfm12_go/internal/config"
)

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRoutes(t *testing.T) {
	ready := false
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("rfm12_frames_total 1"))
	})
	s := New(cfgpkg.HTTPConfig{Addr: ":0"}, "/metrics", metrics, func() bool { return ready })
	h := s.Handler()

	assert.Equal(t, http.StatusOK, get(h, "/healthz").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(h, "/readyz").Code)

	ready = true
	assert.Equal(t, http.StatusOK, get(h, "/readyz").Code)

	rec := get(h, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "rfm12_frames_total 1", rec.Body.String())
}

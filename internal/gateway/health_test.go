package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthAlwaysReportsOK(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	Health(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyGateReflectsCacheSyncState(t *testing.T) {
	gate := &ReadyGate{}

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	gate.Ready(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	gate.MarkReady()

	rec = httptest.NewRecorder()
	gate.Ready(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

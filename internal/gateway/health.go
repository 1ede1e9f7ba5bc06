package gateway

import (
	"net/http"
	"sync/atomic"
)

// Health implements GET /health: liveness, always OK once the process is
// serving requests.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadyGate flips to ready once the manager's informer cache has synced;
// 4.I requires readiness to "reflect informer cache sync state" rather than
// always reporting healthy.
type ReadyGate struct {
	ready atomic.Bool
}

func (g *ReadyGate) MarkReady() { g.ready.Store(true) }

// Ready implements GET /ready.
func (g *ReadyGate) Ready(w http.ResponseWriter, r *http.Request) {
	if !g.ready.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

package gateway

import (
	"net/http"
	"sync"

	nmcpv1 "github.com/nwrx/nmcp/internal/apis/nmcp/v1alpha1"
	"github.com/nwrx/nmcp/internal/transport"
)

// session is one open SSE-proxy session, keyed by a UUIDv4 handed to the
// client as part of the "endpoint" event in the SSE-open hard path. It
// holds exactly enough state for the message POST path (4.F) to forward a
// body to the right upstream.
type session struct {
	id            string
	namespace     string
	name          string
	transportType nmcpv1.MCPServerTransportType

	httpClient *http.Client
	messageURL string // sse transport: upstream message endpoint

	bridge *transport.StdioBridge // stdio transport: exec-attach bridge
}

// sessionRegistry maps session ids to sessions under a single RWMutex; the
// registry itself is not the hot path (only opened/closed once per
// connection, looked up once per message), unlike the accountant's
// per-key-locked counters.
type sessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: make(map[string]*session)}
}

func (r *sessionRegistry) add(s *session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.id] = s
}

func (r *sessionRegistry) get(id string) (*session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *sessionRegistry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

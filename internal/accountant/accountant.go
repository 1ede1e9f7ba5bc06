// Package accountant is the gateway's only in-process shared mutable state
// (per §5): it tracks open connections, total requests, and the
// last-request timestamp per server, and coalesces writes to the status
// subresource on a 1s timer so the controller can reap idle servers.
// Grounded on the teacher's stdio.Manager gc-loop (stopGC channel + ticker
// shape) adapted from process lifecycle bookkeeping to connection
// bookkeeping.
package accountant

import (
	"context"
	"sync"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	nmcpv1 "github.com/nwrx/nmcp/internal/apis/nmcp/v1alpha1"
	"github.com/nwrx/nmcp/internal/kube"
)

type key struct {
	namespace, name string
}

type counters struct {
	mu            sync.Mutex
	openConns     int32
	requestsDelta uint64
	lastRequestAt time.Time
	dirty         bool
}

// Accountant holds per-server counters behind per-key locks — no global
// lock is ever taken while mutating a counter, per the shared-resource
// policy in §5.
type Accountant struct {
	kube *kube.Client

	mu    sync.RWMutex
	byKey map[key]*counters

	flushInterval time.Duration
	stop          chan struct{}
	done          chan struct{}
}

// New returns an Accountant with the documented 1s coalescing flush.
func New(k *kube.Client) *Accountant {
	return &Accountant{
		kube:          k,
		byKey:         make(map[key]*counters),
		flushInterval: time.Second,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

func (a *Accountant) entry(namespace, name string) *counters {
	k := key{namespace, name}

	a.mu.RLock()
	c, ok := a.byKey[k]
	a.mu.RUnlock()
	if ok {
		return c
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if c, ok := a.byKey[k]; ok {
		return c
	}
	c = &counters{}
	a.byKey[k] = c
	return c
}

// Open increments currentConnections on SSE-open.
func (a *Accountant) Open(namespace, name string) {
	c := a.entry(namespace, name)
	c.mu.Lock()
	c.openConns++
	c.dirty = true
	c.mu.Unlock()
}

// Close decrements currentConnections exactly once on SSE-close — invariant
// 6 — regardless of whether the close was clean or abrupt; callers must
// guard against double-decrement with a sync.Once at the call site.
func (a *Accountant) Close(namespace, name string) {
	c := a.entry(namespace, name)
	c.mu.Lock()
	if c.openConns > 0 {
		c.openConns--
	}
	c.dirty = true
	c.mu.Unlock()
}

// RecordRequest increments totalRequests and updates lastRequestAt on a
// message POST.
func (a *Accountant) RecordRequest(namespace, name string) {
	c := a.entry(namespace, name)
	c.mu.Lock()
	c.requestsDelta++
	c.lastRequestAt = time.Now()
	c.dirty = true
	c.mu.Unlock()
}

// OpenConnections reports the current in-memory count for a server, used by
// the reconciler's idle-reap check when it runs in-process with the gateway,
// and by tests.
func (a *Accountant) OpenConnections(namespace, name string) int32 {
	c := a.entry(namespace, name)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.openConns
}

// Run starts the background flusher; it returns once ctx is cancelled or
// Stop is called, after a final flush.
func (a *Accountant) Run(ctx context.Context) {
	ticker := time.NewTicker(a.flushInterval)
	defer ticker.Stop()
	defer close(a.done)

	for {
		select {
		case <-ctx.Done():
			a.flushAll(context.Background())
			return
		case <-a.stop:
			a.flushAll(context.Background())
			return
		case <-ticker.C:
			a.flushAll(ctx)
		}
	}
}

// Stop requests the flusher to exit after one final flush and blocks until
// it has.
func (a *Accountant) Stop() {
	close(a.stop)
	<-a.done
}

func (a *Accountant) flushAll(ctx context.Context) {
	a.mu.RLock()
	keys := make([]key, 0, len(a.byKey))
	for k := range a.byKey {
		keys = append(keys, k)
	}
	a.mu.RUnlock()

	for _, k := range keys {
		a.flushOne(ctx, k)
	}
}

// flushOne patches one server's status in a single call. On failure the
// pending delta is left in place (not cleared) so the next tick folds it
// in — the back-pressure policy in 4.G.
func (a *Accountant) flushOne(ctx context.Context, k key) {
	a.mu.RLock()
	c, ok := a.byKey[k]
	a.mu.RUnlock()
	if !ok {
		return
	}

	c.mu.Lock()
	if !c.dirty {
		c.mu.Unlock()
		return
	}
	openConns := c.openConns
	requestsDelta := c.requestsDelta
	lastRequestAt := c.lastRequestAt
	c.mu.Unlock()

	server, err := a.kube.GetServer(ctx, k.namespace, k.name)
	if err != nil {
		return
	}

	err = a.kube.PatchServerStatus(ctx, server, func(s *nmcpv1.MCPServer) {
		s.Status.CurrentConnections = uint32(openConns)
		s.Status.TotalRequests += requestsDelta
		if !lastRequestAt.IsZero() {
			t := metav1.NewTime(lastRequestAt)
			s.Status.LastRequestAt = &t
		}
	})
	if err != nil {
		return
	}

	c.mu.Lock()
	c.requestsDelta -= requestsDelta
	if c.openConns == openConns {
		c.dirty = false
	}
	c.mu.Unlock()
}

// Package activation implements the gateway's cold-path helper: given an
// idle server, it requests activation and blocks until the server is
// routable or the deadline passes. Grounded on the teacher's
// internal/k8s.Manager.GetOrCreate/waitForReady/waitForConnection, adapted
// from a dynamic-client + TCP-dial design to polling the typed server CR,
// Pod and Service through kube.Client every PollInterval, since our server
// CR and Pod/Service already live in the same scheme the operator half of
// this repository shares.
package activation

import (
	"context"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"

	nmcpv1 "github.com/nwrx/nmcp/internal/apis/nmcp/v1alpha1"
	"github.com/nwrx/nmcp/internal/kube"
	"github.com/nwrx/nmcp/internal/nmcperr"
	"github.com/nwrx/nmcp/internal/resources"
)

// Endpoint is the routable target the gateway opens its upstream connection
// against once activation succeeds.
type Endpoint struct {
	Server    *nmcpv1.MCPServer
	Pod       *corev1.Pod
	Service   *corev1.Service
	DNSName   string
	Port      int32
	Transport nmcpv1.MCPServerTransportType
}

// Waiter transitions a server from Idle to Running and returns a routable
// endpoint, or fails with ActivationTimeout/ActivationFailed.
type Waiter struct {
	Kube          *kube.Client
	PollInterval  time.Duration
	MaxCASRetries int
}

// New returns a Waiter with the documented defaults (2s poll, 5 CAS
// retries).
func New(k *kube.Client) *Waiter {
	return &Waiter{Kube: k, PollInterval: 2 * time.Second, MaxCASRetries: 5}
}

// Activate implements 4.E's activate(namespace, name, timeout) operation.
func (w *Waiter) Activate(ctx context.Context, namespace, name string, timeout time.Duration) (*Endpoint, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	server, err := w.Kube.GetServer(ctx, namespace, name)
	if err != nil {
		return nil, err
	}

	if server.Status.Phase == nmcpv1.MCPServerPhaseRunning {
		if ep, ok, err := w.tryResolve(ctx, server); err != nil {
			return nil, err
		} else if ok {
			return ep, nil
		}
	}

	if server.Status.Phase == nmcpv1.MCPServerPhaseIdle || server.Status.Phase == "" {
		if err := w.requestActivation(ctx, server); err != nil {
			return nil, err
		}
	}

	ticker := time.NewTicker(w.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, nmcperr.New(nmcperr.KindActivationTimeout, fmt.Sprintf("server %s/%s did not become routable in time", namespace, name), ctx.Err())
		case <-ticker.C:
			server, err = w.Kube.GetServer(ctx, namespace, name)
			if err != nil {
				if nmcperr.Is(err, nmcperr.KindNotFound) {
					return nil, nmcperr.New(nmcperr.KindActivationFailed, "server was deleted during activation", err)
				}
				continue
			}
			if server.Status.Phase == nmcpv1.MCPServerPhaseFailed {
				return nil, nmcperr.New(nmcperr.KindActivationFailed, "server entered Failed phase during activation", nil)
			}
			if server.Status.Phase != nmcpv1.MCPServerPhaseRunning {
				continue
			}
			ep, ok, err := w.tryResolve(ctx, server)
			if err != nil {
				continue
			}
			if ok {
				return ep, nil
			}
		}
	}
}

// requestActivation performs the compare-and-swap status patch Idle→Requested,
// reloading and retrying on conflict up to MaxCASRetries.
func (w *Waiter) requestActivation(ctx context.Context, server *nmcpv1.MCPServer) error {
	current := server
	for attempt := 0; attempt <= w.MaxCASRetries; attempt++ {
		err := w.Kube.PatchServerStatus(ctx, current, func(s *nmcpv1.MCPServer) {
			s.Status.Phase = nmcpv1.MCPServerPhaseRequested
		})
		if err == nil {
			return nil
		}
		if !nmcperr.Is(err, nmcperr.KindConflict) {
			return err
		}
		reloaded, getErr := w.Kube.GetServer(ctx, server.Namespace, server.Name)
		if getErr != nil {
			return getErr
		}
		current = reloaded
		if current.Status.Phase != nmcpv1.MCPServerPhaseIdle && current.Status.Phase != "" {
			return nil
		}
	}
	return nmcperr.New(nmcperr.KindConflict, "exhausted CAS retries activating server", nil)
}

func (w *Waiter) tryResolve(ctx context.Context, server *nmcpv1.MCPServer) (*Endpoint, bool, error) {
	pod, err := w.Kube.GetPod(ctx, server.Namespace, server.Name)
	if err != nil {
		if nmcperr.Is(err, nmcperr.KindNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if !resources.PodReady(pod) {
		return nil, false, nil
	}

	svc, err := w.Kube.GetService(ctx, server.Namespace, server.Name)
	if err != nil {
		if nmcperr.Is(err, nmcperr.KindNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	port := server.Spec.Transport.Port
	if server.Spec.Transport.Type != nmcpv1.MCPServerTransportSSE || port == 0 {
		port = 8080
	}

	return &Endpoint{
		Server:    server,
		Pod:       pod,
		Service:   svc,
		DNSName:   kube.ServiceDNSName(server.Namespace, server.Name, port),
		Port:      port,
		Transport: server.Spec.Transport.Type,
	}, true, nil
}


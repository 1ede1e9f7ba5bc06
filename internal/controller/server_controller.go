package controller

import (
	"context"
	"reflect"
	"time"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/event"
	"sigs.k8s.io/controller-runtime/pkg/handler"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/source"

	nmcpv1 "github.com/nwrx/nmcp/internal/apis/nmcp/v1alpha1"
	"github.com/nwrx/nmcp/internal/kube"
	"github.com/nwrx/nmcp/internal/metrics"
	"github.com/nwrx/nmcp/internal/nmcperr"
	"github.com/nwrx/nmcp/internal/resources"
)

// ServerFinalizer guarantees Pod/Service cleanup before the CR is removed.
const ServerFinalizer = "nmcp.nwrx.io/server-cleanup"

const defaultPoolName = "default"
const defaultIdleTimeoutSeconds = 60

// ServerReconciler reconciles a single MCPServer. It is single-writer per
// (namespace, name): controller-runtime's workqueue guarantees at most one
// in-flight reconcile per key.
type ServerReconciler struct {
	client.Client
	Kube   *kube.Client
	Scheme *runtime.Scheme
	Clock  func() time.Time

	// WakeServers lets the pool controller enqueue server keys without
	// sharing memory; see SetupWithManager.
	WakeServers chan event.GenericEvent
}

// +kubebuilder:rbac:groups=nmcp.nwrx.io,resources=mcpservers,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups=nmcp.nwrx.io,resources=mcpservers/status,verbs=get;update;patch
// +kubebuilder:rbac:groups=nmcp.nwrx.io,resources=mcpservers/finalizers,verbs=update
// +kubebuilder:rbac:groups="",resources=pods,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups="",resources=services,verbs=get;list;watch;create;update;patch;delete

func (r *ServerReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	logger := log.FromContext(ctx)
	now := r.now()

	result, err := r.reconcile(ctx, req, logger, now)
	if err != nil {
		metrics.ReconcilesTotal.WithLabelValues("server", "error").Inc()
	} else {
		metrics.ReconcilesTotal.WithLabelValues("server", "ok").Inc()
	}
	return result, err
}

func (r *ServerReconciler) reconcile(ctx context.Context, req ctrl.Request, logger logr.Logger, now time.Time) (ctrl.Result, error) {
	server, err := r.Kube.GetServer(ctx, req.Namespace, req.Name)
	if err != nil {
		if nmcperr.Is(err, nmcperr.KindNotFound) {
			return ctrl.Result{}, nil
		}
		return ctrl.Result{}, err
	}

	if !server.DeletionTimestamp.IsZero() {
		return r.reconcileDeletion(ctx, server)
	}

	if !controllerutil.ContainsFinalizer(server, ServerFinalizer) {
		controllerutil.AddFinalizer(server, ServerFinalizer)
		if err := r.Kube.UpdateServer(ctx, server); err != nil {
			return ctrl.Result{}, err
		}
		return ctrl.Result{Requeue: true}, nil
	}

	if reason := validate(server); reason != "" {
		return r.failValidation(ctx, server, reason)
	}

	poolName := server.Spec.Pool
	if poolName == "" {
		poolName = defaultPoolName
	}

	pool, err := r.Kube.GetPool(ctx, server.Namespace, poolName)
	if err != nil {
		if nmcperr.Is(err, nmcperr.KindNotFound) {
			if patchErr := r.Kube.PatchServerStatus(ctx, server, func(s *nmcpv1.MCPServer) {
				s.Status.Conditions = setCondition(s.Status.Conditions, nmcpv1.ConditionPoolNotFound,
					metav1.ConditionTrue, "PoolNotFound", "referenced pool does not exist", s.Generation)
			}); patchErr != nil {
				return ctrl.Result{}, patchErr
			}
			return ctrl.Result{RequeueAfter: 10 * time.Second}, nil
		}
		return ctrl.Result{}, err
	}

	if server.Status.Phase == nmcpv1.MCPServerPhaseRequested {
		active, err := countActive(ctx, r.Kube, server.Namespace, poolName)
		if err != nil {
			return ctrl.Result{}, err
		}
		if active >= uint32(pool.Spec.MaxActive) {
			return r.staySuspended(ctx, server, now)
		}
	}

	return r.reconcileRunning(ctx, server, pool, now, logger)
}

func (r *ServerReconciler) now() time.Time {
	if r.Clock != nil {
		return r.Clock()
	}
	return time.Now()
}

func validate(server *nmcpv1.MCPServer) string {
	if server.Spec.Transport.Type == nmcpv1.MCPServerTransportSSE && server.Spec.Transport.Port <= 0 {
		return "transport.port must be set and positive for sse transport"
	}
	if server.Spec.IdleTimeoutSeconds < 0 {
		return "idleTimeoutSeconds must be non-negative"
	}
	return ""
}

func (r *ServerReconciler) failValidation(ctx context.Context, server *nmcpv1.MCPServer, reason string) (ctrl.Result, error) {
	if server.Status.ObservedGeneration == server.Generation && server.Status.Phase == nmcpv1.MCPServerPhaseFailed {
		return ctrl.Result{}, nil
	}
	err := r.Kube.PatchServerStatus(ctx, server, func(s *nmcpv1.MCPServer) {
		s.Status.Phase = nmcpv1.MCPServerPhaseFailed
		s.Status.ObservedGeneration = s.Generation
		s.Status.Conditions = setCondition(s.Status.Conditions, nmcpv1.ConditionInvalidSpec,
			metav1.ConditionTrue, "InvalidSpec", reason, s.Generation)
	})
	return ctrl.Result{}, err
}

func (r *ServerReconciler) staySuspended(ctx context.Context, server *nmcpv1.MCPServer, now time.Time) (ctrl.Result, error) {
	err := r.Kube.PatchServerStatus(ctx, server, func(s *nmcpv1.MCPServer) {
		s.Status.Conditions = setCondition(s.Status.Conditions, nmcpv1.ConditionAwaitingCapacity,
			metav1.ConditionTrue, "PoolExhausted", "pool.maxActive reached", s.Generation)
	})
	return ctrl.Result{RequeueAfter: 5 * time.Second}, err
}

func (r *ServerReconciler) reconcileRunning(ctx context.Context, server *nmcpv1.MCPServer, pool *nmcpv1.MCPPool, now time.Time, logger logr.Logger) (ctrl.Result, error) {
	poolName := server.Spec.Pool
	if poolName == "" {
		poolName = defaultPoolName
	}

	observedPod, podErr := r.Kube.GetPod(ctx, server.Namespace, server.Name)
	podExists := podErr == nil
	if podErr != nil && !nmcperr.Is(podErr, nmcperr.KindNotFound) {
		return ctrl.Result{}, podErr
	}

	desiredPod := resources.BuildPod(server, poolName, pool.Spec.DefaultResources)
	if err := controllerutil.SetControllerReference(server, desiredPod, r.Scheme); err != nil {
		return ctrl.Result{}, err
	}

	// Idle reap takes priority over drift/creation when the server is Running
	// and has no open connections.
	if server.Status.Phase == nmcpv1.MCPServerPhaseRunning && server.Status.CurrentConnections == 0 {
		idleTimeout := effectiveIdleTimeout(server, pool)
		if server.Status.LastRequestAt != nil && now.Sub(server.Status.LastRequestAt.Time) >= idleTimeout {
			return r.reap(ctx, server)
		}
	}

	if podExists && resources.SpecDrift(desiredPod, observedPod) {
		return r.recreate(ctx, server)
	}

	if podExists && observedPod.Status.Phase == corev1.PodFailed {
		return r.handlePodFailure(ctx, server, now, logger)
	}

	if !podExists {
		if server.Status.Phase != nmcpv1.MCPServerPhaseRequested && server.Status.Phase != nmcpv1.MCPServerPhaseStarting {
			// Nothing requested activation; remain Idle.
			return r.patchIdle(ctx, server)
		}
		if err := r.Kube.CreatePod(ctx, desiredPod); err != nil && !nmcperr.Is(err, nmcperr.KindConflict) {
			return ctrl.Result{}, err
		}
		logger.Info("created pod for server", "server", server.Name, "pool", poolName)
		if err := r.ensureService(ctx, server, poolName); err != nil {
			return ctrl.Result{}, err
		}
		startedAt := metav1.NewTime(now)
		return r.patchStatus(ctx, server, func(s *nmcpv1.MCPServer) {
			s.Status.Phase = nmcpv1.MCPServerPhaseStarting
			if s.Status.StartedAt == nil {
				s.Status.StartedAt = &startedAt
			}
		}, 2*time.Second)
	}

	if err := r.ensureService(ctx, server, poolName); err != nil {
		return ctrl.Result{}, err
	}

	if !resources.PodReady(observedPod) {
		return r.patchStatus(ctx, server, func(s *nmcpv1.MCPServer) {
			s.Status.Phase = nmcpv1.MCPServerPhaseStarting
		}, 2*time.Second)
	}

	return r.patchStatus(ctx, server, func(s *nmcpv1.MCPServer) {
		s.Status.Phase = nmcpv1.MCPServerPhaseRunning
		s.Status.Conditions = clearCondition(s.Status.Conditions, nmcpv1.ConditionAwaitingCapacity, s.Generation)
		s.Status.Conditions = clearCondition(s.Status.Conditions, nmcpv1.ConditionPodFailed, s.Generation)
		s.Status.PodFailureCount = 0
		s.Status.FirstPodFailureAt = nil
	}, 30*time.Second)
}

func (r *ServerReconciler) ensureService(ctx context.Context, server *nmcpv1.MCPServer, poolName string) error {
	_, err := r.Kube.GetService(ctx, server.Namespace, server.Name)
	if err == nil {
		return nil
	}
	if !nmcperr.Is(err, nmcperr.KindNotFound) {
		return err
	}
	svc := resources.BuildService(server, poolName)
	if err := controllerutil.SetControllerReference(server, svc, r.Scheme); err != nil {
		return err
	}
	if err := r.Kube.CreateService(ctx, svc); err != nil && !nmcperr.Is(err, nmcperr.KindConflict) {
		return err
	}
	return nil
}

const (
	maxPodFailures   = 3
	podFailureWindow = 5 * time.Minute
)

// handlePodFailure implements the §7 bounded retry window: failures within
// podFailureWindow are counted, the Pod is recreated for each failure below
// maxPodFailures, and the failure that brings the count to maxPodFailures
// marks the server Failed and leaves it for the operator to investigate.
func (r *ServerReconciler) handlePodFailure(ctx context.Context, server *nmcpv1.MCPServer, now time.Time, logger logr.Logger) (ctrl.Result, error) {
	windowStart := server.Status.FirstPodFailureAt
	withinWindow := windowStart != nil && now.Sub(windowStart.Time) <= podFailureWindow
	nextCount := int32(1)
	if withinWindow {
		nextCount = server.Status.PodFailureCount + 1
	}

	if withinWindow && nextCount >= maxPodFailures {
		logger.Info("pod failed repeatedly, marking server Failed", "server", server.Name, "attempts", nextCount)
		if err := r.Kube.DeletePod(ctx, server.Namespace, server.Name); err != nil {
			return ctrl.Result{}, err
		}
		return r.patchStatus(ctx, server, func(s *nmcpv1.MCPServer) {
			s.Status.Phase = nmcpv1.MCPServerPhaseFailed
			s.Status.PodFailureCount = nextCount
			s.Status.Conditions = setCondition(s.Status.Conditions, nmcpv1.ConditionPodFailed,
				metav1.ConditionTrue, "PodFailed", "pod failed repeatedly within the retry window", s.Generation)
		}, 0)
	}

	if err := r.Kube.DeletePod(ctx, server.Namespace, server.Name); err != nil {
		return ctrl.Result{}, err
	}
	nowTS := metav1.NewTime(now)
	return r.patchStatus(ctx, server, func(s *nmcpv1.MCPServer) {
		s.Status.Phase = nmcpv1.MCPServerPhaseStarting
		s.Status.PodFailureCount = nextCount
		if !withinWindow {
			s.Status.FirstPodFailureAt = &nowTS
		}
	}, time.Second)
}

func (r *ServerReconciler) recreate(ctx context.Context, server *nmcpv1.MCPServer) (ctrl.Result, error) {
	if err := r.Kube.DeletePod(ctx, server.Namespace, server.Name); err != nil {
		return ctrl.Result{}, err
	}
	return r.patchStatus(ctx, server, func(s *nmcpv1.MCPServer) {
		s.Status.Phase = nmcpv1.MCPServerPhaseStarting
	}, time.Second)
}

func (r *ServerReconciler) reap(ctx context.Context, server *nmcpv1.MCPServer) (ctrl.Result, error) {
	metrics.IdleReapsTotal.Inc()
	if _, err := r.patchStatus(ctx, server, func(s *nmcpv1.MCPServer) {
		s.Status.Phase = nmcpv1.MCPServerPhaseStopping
	}, 0); err != nil {
		return ctrl.Result{}, err
	}
	if err := r.Kube.DeletePod(ctx, server.Namespace, server.Name); err != nil {
		return ctrl.Result{}, err
	}
	if err := r.Kube.DeleteService(ctx, server.Namespace, server.Name); err != nil {
		return ctrl.Result{}, err
	}
	stoppedAt := metav1.Now()
	return r.patchStatus(ctx, server, func(s *nmcpv1.MCPServer) {
		s.Status.Phase = nmcpv1.MCPServerPhaseIdle
		s.Status.StoppedAt = &stoppedAt
	}, 0)
}

func (r *ServerReconciler) patchIdle(ctx context.Context, server *nmcpv1.MCPServer) (ctrl.Result, error) {
	if server.Status.Phase == nmcpv1.MCPServerPhaseIdle {
		return ctrl.Result{}, nil
	}
	return r.patchStatus(ctx, server, func(s *nmcpv1.MCPServer) {
		s.Status.Phase = nmcpv1.MCPServerPhaseIdle
	}, 0)
}

// patchStatus writes the status subresource, suppressing the write when the
// resulting status is bit-identical to what's already stored — invariant 4
// (idempotent reconcile, zero API writes on an unchanged key).
func (r *ServerReconciler) patchStatus(ctx context.Context, server *nmcpv1.MCPServer, mutate func(*nmcpv1.MCPServer), requeueAfter time.Duration) (ctrl.Result, error) {
	before := server.Status.DeepCopy()
	candidate := server.DeepCopy()
	mutate(candidate)
	if reflect.DeepEqual(*before, candidate.Status) {
		return ctrl.Result{RequeueAfter: requeueAfter}, nil
	}
	if err := r.Kube.PatchServerStatus(ctx, server, func(s *nmcpv1.MCPServer) {
		mutate(s)
	}); err != nil {
		if nmcperr.Is(err, nmcperr.KindConflict) {
			return ctrl.Result{Requeue: true}, nil
		}
		return ctrl.Result{}, err
	}
	return ctrl.Result{RequeueAfter: requeueAfter}, nil
}

func (r *ServerReconciler) reconcileDeletion(ctx context.Context, server *nmcpv1.MCPServer) (ctrl.Result, error) {
	if !controllerutil.ContainsFinalizer(server, ServerFinalizer) {
		return ctrl.Result{}, nil
	}

	if server.Status.Phase != nmcpv1.MCPServerPhaseStopping {
		if err := r.Kube.PatchServerStatus(ctx, server, func(s *nmcpv1.MCPServer) {
			s.Status.Phase = nmcpv1.MCPServerPhaseStopping
		}); err != nil {
			return ctrl.Result{}, err
		}
	}

	if err := r.Kube.DeletePod(ctx, server.Namespace, server.Name); err != nil {
		return ctrl.Result{}, err
	}
	if err := r.Kube.DeleteService(ctx, server.Namespace, server.Name); err != nil {
		return ctrl.Result{}, err
	}

	controllerutil.RemoveFinalizer(server, ServerFinalizer)
	if err := r.Kube.UpdateServer(ctx, server); err != nil {
		if nmcperr.Is(err, nmcperr.KindConflict) {
			return ctrl.Result{Requeue: true}, nil
		}
		return ctrl.Result{}, err
	}
	return ctrl.Result{}, nil
}

func effectiveIdleTimeout(server *nmcpv1.MCPServer, pool *nmcpv1.MCPPool) time.Duration {
	if server.Spec.IdleTimeoutSeconds > 0 {
		return time.Duration(server.Spec.IdleTimeoutSeconds) * time.Second
	}
	if pool.Spec.DefaultIdleTimeoutSeconds > 0 {
		return time.Duration(pool.Spec.DefaultIdleTimeoutSeconds) * time.Second
	}
	return defaultIdleTimeoutSeconds * time.Second
}

func countActive(ctx context.Context, k *kube.Client, namespace, poolName string) (uint32, error) {
	servers, err := k.ListServers(ctx, namespace)
	if err != nil {
		return 0, err
	}
	var active uint32
	for i := range servers {
		s := &servers[i]
		if s.Spec.Pool != poolName && !(poolName == defaultPoolName && s.Spec.Pool == "") {
			continue
		}
		if s.Status.Phase == nmcpv1.MCPServerPhaseStarting || s.Status.Phase == nmcpv1.MCPServerPhaseRunning {
			active++
		}
	}
	return active, nil
}

// SetupWithManager wires the reconciler, including the cross-controller wake
// channel the pool controller uses to enqueue server keys without sharing
// memory (design note: "preserves single-writer discipline").
func (r *ServerReconciler) SetupWithManager(mgr ctrl.Manager) error {
	if r.WakeServers == nil {
		r.WakeServers = make(chan event.GenericEvent, 256)
	}
	return ctrl.NewControllerManagedBy(mgr).
		For(&nmcpv1.MCPServer{}).
		Owns(&corev1.Pod{}).
		Owns(&corev1.Service{}).
		WatchesRawSource(source.Channel(r.WakeServers, &handler.EnqueueRequestForObject{})).
		Complete(r)
}

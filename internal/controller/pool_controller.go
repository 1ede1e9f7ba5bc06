package controller

import (
	"context"
	"reflect"
	"sort"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/event"
	"sigs.k8s.io/controller-runtime/pkg/handler"
	"sigs.k8s.io/controller-runtime/pkg/log"

	nmcpv1 "github.com/nwrx/nmcp/internal/apis/nmcp/v1alpha1"
	"github.com/nwrx/nmcp/internal/kube"
	"github.com/nwrx/nmcp/internal/metrics"
	"github.com/nwrx/nmcp/internal/nmcperr"
)

// PoolFinalizer guarantees member servers are deleted (cascade) before a
// pool CR is removed.
const PoolFinalizer = "nmcp.nwrx.io/pool-cascade"

// PoolReconciler reconciles a single MCPPool: it classifies member servers
// into managed/unmanaged and active/pending, admits pending servers up to
// maxActive, and recomputes the pool's derived counters.
type PoolReconciler struct {
	client.Client
	Kube   *kube.Client
	Scheme *runtime.Scheme

	// WakeServers mirrors ServerReconciler.WakeServers; the pool controller
	// publishes here instead of calling the server controller directly,
	// preserving single-writer discipline per the design notes.
	WakeServers chan event.GenericEvent
}

// +kubebuilder:rbac:groups=nmcp.nwrx.io,resources=mcppools,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups=nmcp.nwrx.io,resources=mcppools/status,verbs=get;update;patch
// +kubebuilder:rbac:groups=nmcp.nwrx.io,resources=mcpservers,verbs=get;list;watch

func (r *PoolReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	result, err := r.reconcile(ctx, req)
	if err != nil {
		metrics.ReconcilesTotal.WithLabelValues("pool", "error").Inc()
	} else {
		metrics.ReconcilesTotal.WithLabelValues("pool", "ok").Inc()
	}
	return result, err
}

func (r *PoolReconciler) reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	logger := log.FromContext(ctx)

	pool, err := r.Kube.GetPool(ctx, req.Namespace, req.Name)
	if err != nil {
		if nmcperr.Is(err, nmcperr.KindNotFound) {
			return ctrl.Result{}, nil
		}
		return ctrl.Result{}, err
	}

	if !pool.DeletionTimestamp.IsZero() {
		return r.reconcileDeletion(ctx, pool)
	}

	if !controllerutil.ContainsFinalizer(pool, PoolFinalizer) {
		controllerutil.AddFinalizer(pool, PoolFinalizer)
		if err := r.Kube.UpdatePool(ctx, pool); err != nil {
			return ctrl.Result{}, err
		}
		return ctrl.Result{Requeue: true}, nil
	}

	all, err := r.Kube.ListServers(ctx, req.Namespace)
	if err != nil {
		return ctrl.Result{}, err
	}

	members := make([]*nmcpv1.MCPServer, 0, len(all))
	for i := range all {
		s := &all[i]
		pn := s.Spec.Pool
		if pn == "" {
			pn = defaultPoolName
		}
		if pn == pool.Name {
			members = append(members, s)
		}
	}

	sort.Slice(members, func(i, j int) bool {
		ti := members[i].CreationTimestamp.Time
		tj := members[j].CreationTimestamp.Time
		if ti.Equal(tj) {
			return members[i].UID < members[j].UID
		}
		return ti.Before(tj)
	})

	maxManaged := pool.Spec.EffectiveMaxManaged()
	managed := members
	var unmanaged []*nmcpv1.MCPServer
	if uint32(len(members)) > maxManaged {
		managed = members[:maxManaged]
		unmanaged = members[maxManaged:]
	}

	for _, s := range unmanaged {
		if err := r.Kube.PatchServerStatus(ctx, s, func(s *nmcpv1.MCPServer) {
			s.Status.Conditions = setCondition(s.Status.Conditions, nmcpv1.ConditionUnmanaged,
				metav1.ConditionTrue, "PoolCapacityExceeded", "server exceeds pool.maxManaged", s.Generation)
		}); err != nil {
			return ctrl.Result{}, err
		}
	}

	var active, pending uint32
	var pendingServers []*nmcpv1.MCPServer
	for _, s := range managed {
		switch s.Status.Phase {
		case nmcpv1.MCPServerPhaseStarting, nmcpv1.MCPServerPhaseRunning:
			active++
		case nmcpv1.MCPServerPhaseRequested:
			pending++
			pendingServers = append(pendingServers, s)
		}
	}

	slack := int(pool.Spec.MaxActive) - int(active)
	if slack > 0 {
		promote := pendingServers
		if len(promote) > slack {
			promote = promote[:slack]
		}
		for _, s := range promote {
			logger.Info("waking server for admission", "server", s.Name, "pool", pool.Name)
			select {
			case r.WakeServers <- event.GenericEvent{Object: s}:
			default:
				logger.Info("wake channel full, server will be retried on next pool reconcile", "server", s.Name)
			}
		}
	}

	newStatus := nmcpv1.MCPPoolStatus{
		Total:              uint32(len(members)),
		Managed:            uint32(len(managed)),
		Unmanaged:          uint32(len(unmanaged)),
		Active:             active,
		Pending:            pending,
		ObservedGeneration: pool.Generation,
	}
	if reflect.DeepEqual(pool.Status, newStatus) {
		return ctrl.Result{RequeueAfter: 30 * time.Second}, nil
	}
	if err := r.Kube.PatchPoolStatus(ctx, pool, func(p *nmcpv1.MCPPool) {
		p.Status = newStatus
	}); err != nil {
		if nmcperr.Is(err, nmcperr.KindConflict) {
			return ctrl.Result{Requeue: true}, nil
		}
		return ctrl.Result{}, err
	}

	return ctrl.Result{RequeueAfter: 30 * time.Second}, nil
}

// reconcileDeletion deletes every member server (cascade), matching §3's
// "deletion cascades to all owning servers via ownerReference or label
// cleanup", then removes the finalizer once no member remains.
func (r *PoolReconciler) reconcileDeletion(ctx context.Context, pool *nmcpv1.MCPPool) (ctrl.Result, error) {
	if !controllerutil.ContainsFinalizer(pool, PoolFinalizer) {
		return ctrl.Result{}, nil
	}

	servers, err := r.Kube.ListServers(ctx, pool.Namespace)
	if err != nil {
		return ctrl.Result{}, err
	}

	remaining := 0
	for i := range servers {
		s := &servers[i]
		pn := s.Spec.Pool
		if pn == "" {
			pn = defaultPoolName
		}
		if pn != pool.Name {
			continue
		}
		remaining++
		if err := r.Kube.DeleteServer(ctx, s); err != nil {
			return ctrl.Result{}, err
		}
	}
	if remaining > 0 {
		return ctrl.Result{RequeueAfter: time.Second}, nil
	}

	controllerutil.RemoveFinalizer(pool, PoolFinalizer)
	if err := r.Kube.UpdatePool(ctx, pool); err != nil {
		if nmcperr.Is(err, nmcperr.KindConflict) {
			return ctrl.Result{Requeue: true}, nil
		}
		return ctrl.Result{}, err
	}
	return ctrl.Result{}, nil
}

// SetupWithManager wires the pool reconciler, watching servers so that a
// server's pool-membership/phase change triggers a re-reconcile of its pool.
func (r *PoolReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&nmcpv1.MCPPool{}).
		Watches(&nmcpv1.MCPServer{}, handler.EnqueueRequestsFromMapFunc(r.mapServerToPool)).
		Complete(r)
}

func (r *PoolReconciler) mapServerToPool(ctx context.Context, obj client.Object) []ctrl.Request {
	server, ok := obj.(*nmcpv1.MCPServer)
	if !ok {
		return nil
	}
	poolName := server.Spec.Pool
	if poolName == "" {
		poolName = defaultPoolName
	}
	return []ctrl.Request{{NamespacedName: client.ObjectKey{Namespace: server.Namespace, Name: poolName}}}
}

package controller

import (
	"context"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	nmcpv1 "github.com/nwrx/nmcp/internal/apis/nmcp/v1alpha1"
	"github.com/nwrx/nmcp/internal/kube"
	"github.com/nwrx/nmcp/internal/resources"
)

func newServerReconciler(t *testing.T, objs ...client.Object) (*ServerReconciler, *kube.Client) {
	t.Helper()
	s := runtime.NewScheme()
	require.NoError(t, clientgoscheme.AddToScheme(s))
	require.NoError(t, nmcpv1.AddToScheme(s))

	builder := fake.NewClientBuilder().WithScheme(s).WithStatusSubresource(&nmcpv1.MCPServer{}, &nmcpv1.MCPPool{})
	if len(objs) > 0 {
		builder = builder.WithObjects(objs...)
	}
	fc := builder.Build()
	k := kube.New(fc)
	return &ServerReconciler{Client: fc, Kube: k, Scheme: s}, k
}

func defaultPool() *nmcpv1.MCPPool {
	return &nmcpv1.MCPPool{
		ObjectMeta: metav1.ObjectMeta{Name: "default", Namespace: "default"},
		Spec:       nmcpv1.MCPPoolSpec{MaxActive: 10, MaxManaged: 10},
	}
}

func TestReconcileAddsFinalizerFirst(t *testing.T) {
	server := &nmcpv1.MCPServer{ObjectMeta: metav1.ObjectMeta{Name: "fetch", Namespace: "default"}}
	r, k := newServerReconciler(t, server, defaultPool())

	result, err := r.Reconcile(context.Background(), ctrl.Request{NamespacedName: client.ObjectKey{Namespace: "default", Name: "fetch"}})
	require.NoError(t, err)
	assert.True(t, result.Requeue)

	got, err := k.GetServer(context.Background(), "default", "fetch")
	require.NoError(t, err)
	assert.Contains(t, got.Finalizers, ServerFinalizer)
}

func TestReconcileFailsValidationForBadSSEPort(t *testing.T) {
	server := &nmcpv1.MCPServer{
		ObjectMeta: metav1.ObjectMeta{Name: "fetch", Namespace: "default", Finalizers: []string{ServerFinalizer}},
		Spec:       nmcpv1.MCPServerSpec{Transport: nmcpv1.MCPServerTransport{Type: nmcpv1.MCPServerTransportSSE, Port: 0}},
	}
	r, k := newServerReconciler(t, server, defaultPool())

	_, err := r.Reconcile(context.Background(), ctrl.Request{NamespacedName: client.ObjectKey{Namespace: "default", Name: "fetch"}})
	require.NoError(t, err)

	got, err := k.GetServer(context.Background(), "default", "fetch")
	require.NoError(t, err)
	assert.Equal(t, nmcpv1.MCPServerPhaseFailed, got.Status.Phase)
}

func TestReconcileStaysSuspendedWhenPoolExhausted(t *testing.T) {
	server := &nmcpv1.MCPServer{
		ObjectMeta: metav1.ObjectMeta{Name: "fetch", Namespace: "default", Finalizers: []string{ServerFinalizer}},
		Status:     nmcpv1.MCPServerStatus{Phase: nmcpv1.MCPServerPhaseRequested},
	}
	running := &nmcpv1.MCPServer{
		ObjectMeta: metav1.ObjectMeta{Name: "other", Namespace: "default", Finalizers: []string{ServerFinalizer}},
		Status:     nmcpv1.MCPServerStatus{Phase: nmcpv1.MCPServerPhaseRunning},
	}
	pool := defaultPool()
	pool.Spec.MaxActive = 1

	r, k := newServerReconciler(t, server, running, pool)
	result, err := r.Reconcile(context.Background(), ctrl.Request{NamespacedName: client.ObjectKey{Namespace: "default", Name: "fetch"}})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, result.RequeueAfter)

	got, err := k.GetServer(context.Background(), "default", "fetch")
	require.NoError(t, err)
	found := false
	for _, c := range got.Status.Conditions {
		if c.Type == nmcpv1.ConditionAwaitingCapacity && c.Status == metav1.ConditionTrue {
			found = true
		}
	}
	assert.True(t, found)
}

func TestReconcileCreatesPodWhenRequested(t *testing.T) {
	server := &nmcpv1.MCPServer{
		ObjectMeta: metav1.ObjectMeta{Name: "fetch", Namespace: "default", Finalizers: []string{ServerFinalizer}},
		Status:     nmcpv1.MCPServerStatus{Phase: nmcpv1.MCPServerPhaseRequested},
	}
	r, k := newServerReconciler(t, server, defaultPool())

	_, err := r.Reconcile(context.Background(), ctrl.Request{NamespacedName: client.ObjectKey{Namespace: "default", Name: "fetch"}})
	require.NoError(t, err)

	pod, err := k.GetPod(context.Background(), "default", "fetch")
	require.NoError(t, err)
	assert.Equal(t, "fetch", pod.Name)
	require.Len(t, pod.OwnerReferences, 1)
	assert.Equal(t, "fetch", pod.OwnerReferences[0].Name)
	assert.Equal(t, "MCPServer", pod.OwnerReferences[0].Kind)
	assert.True(t, *pod.OwnerReferences[0].Controller)

	svc, err := k.GetService(context.Background(), "default", "fetch")
	require.NoError(t, err)
	require.Len(t, svc.OwnerReferences, 1)
	assert.Equal(t, "fetch", svc.OwnerReferences[0].Name)
	assert.Equal(t, "MCPServer", svc.OwnerReferences[0].Kind)
	assert.True(t, *svc.OwnerReferences[0].Controller)

	got, err := k.GetServer(context.Background(), "default", "fetch")
	require.NoError(t, err)
	assert.Equal(t, nmcpv1.MCPServerPhaseStarting, got.Status.Phase)
}

func TestReconcileIdleReapsAfterTimeout(t *testing.T) {
	past := metav1.NewTime(time.Now().Add(-2 * time.Minute))
	server := &nmcpv1.MCPServer{
		ObjectMeta: metav1.ObjectMeta{Name: "fetch", Namespace: "default", Finalizers: []string{ServerFinalizer}},
		Spec:       nmcpv1.MCPServerSpec{IdleTimeoutSeconds: 60},
		Status:     nmcpv1.MCPServerStatus{Phase: nmcpv1.MCPServerPhaseRunning, CurrentConnections: 0, LastRequestAt: &past},
	}
	pod := &corev1.Pod{ObjectMeta: metav1.ObjectMeta{Name: "fetch", Namespace: "default"}}
	svc := &corev1.Service{ObjectMeta: metav1.ObjectMeta{Name: "fetch", Namespace: "default"}}
	r, k := newServerReconciler(t, server, defaultPool(), pod, svc)

	_, err := r.Reconcile(context.Background(), ctrl.Request{NamespacedName: client.ObjectKey{Namespace: "default", Name: "fetch"}})
	require.NoError(t, err)

	got, err := k.GetServer(context.Background(), "default", "fetch")
	require.NoError(t, err)
	assert.Equal(t, nmcpv1.MCPServerPhaseIdle, got.Status.Phase)

	_, err = k.GetPod(context.Background(), "default", "fetch")
	assert.Error(t, err)
}

func TestReconcileRecreatesOnSpecDrift(t *testing.T) {
	server := &nmcpv1.MCPServer{
		ObjectMeta: metav1.ObjectMeta{Name: "fetch", Namespace: "default", Finalizers: []string{ServerFinalizer}},
		Spec:       nmcpv1.MCPServerSpec{Image: "mcp/fetch:v2"},
		Status:     nmcpv1.MCPServerStatus{Phase: nmcpv1.MCPServerPhaseRunning},
	}
	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: "fetch", Namespace: "default"},
		Spec:       corev1.PodSpec{Containers: []corev1.Container{{Name: "mcp-server", Image: "mcp/fetch:v1"}}},
	}
	r, k := newServerReconciler(t, server, defaultPool(), pod)

	_, err := r.Reconcile(context.Background(), ctrl.Request{NamespacedName: client.ObjectKey{Namespace: "default", Name: "fetch"}})
	require.NoError(t, err)

	_, err = k.GetPod(context.Background(), "default", "fetch")
	assert.Error(t, err)

	got, err := k.GetServer(context.Background(), "default", "fetch")
	require.NoError(t, err)
	assert.Equal(t, nmcpv1.MCPServerPhaseStarting, got.Status.Phase)
}

func TestHandlePodFailureRecreatesWithinWindow(t *testing.T) {
	server := &nmcpv1.MCPServer{
		ObjectMeta: metav1.ObjectMeta{Name: "fetch", Namespace: "default", Finalizers: []string{ServerFinalizer}},
		Status:     nmcpv1.MCPServerStatus{Phase: nmcpv1.MCPServerPhaseRunning},
	}
	r, k := newServerReconciler(t, server)

	now := time.Now()
	result, err := r.handlePodFailure(context.Background(), server, now, logr.Discard())
	require.NoError(t, err)
	assert.Equal(t, time.Second, result.RequeueAfter)

	got, err := k.GetServer(context.Background(), "default", "fetch")
	require.NoError(t, err)
	assert.Equal(t, nmcpv1.MCPServerPhaseStarting, got.Status.Phase)
	assert.Equal(t, int32(1), got.Status.PodFailureCount)
	require.NotNil(t, got.Status.FirstPodFailureAt)
}

func TestHandlePodFailureMarksFailedAfterThreeWithinWindow(t *testing.T) {
	start := metav1.NewTime(time.Now().Add(-time.Minute))
	server := &nmcpv1.MCPServer{
		ObjectMeta: metav1.ObjectMeta{Name: "fetch", Namespace: "default", Finalizers: []string{ServerFinalizer}},
		Status: nmcpv1.MCPServerStatus{
			Phase:             nmcpv1.MCPServerPhaseRunning,
			PodFailureCount:   2,
			FirstPodFailureAt: &start,
		},
	}
	r, k := newServerReconciler(t, server)

	now := time.Now()
	result, err := r.handlePodFailure(context.Background(), server, now, logr.Discard())
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), result.RequeueAfter)

	got, err := k.GetServer(context.Background(), "default", "fetch")
	require.NoError(t, err)
	assert.Equal(t, nmcpv1.MCPServerPhaseFailed, got.Status.Phase)
	assert.Equal(t, int32(3), got.Status.PodFailureCount)
}

func TestHandlePodFailureResetsWindowAfterItExpires(t *testing.T) {
	start := metav1.NewTime(time.Now().Add(-10 * time.Minute))
	server := &nmcpv1.MCPServer{
		ObjectMeta: metav1.ObjectMeta{Name: "fetch", Namespace: "default", Finalizers: []string{ServerFinalizer}},
		Status: nmcpv1.MCPServerStatus{
			Phase:             nmcpv1.MCPServerPhaseRunning,
			PodFailureCount:   2,
			FirstPodFailureAt: &start,
		},
	}
	r, k := newServerReconciler(t, server)

	now := time.Now()
	_, err := r.handlePodFailure(context.Background(), server, now, logr.Discard())
	require.NoError(t, err)

	got, err := k.GetServer(context.Background(), "default", "fetch")
	require.NoError(t, err)
	assert.Equal(t, nmcpv1.MCPServerPhaseStarting, got.Status.Phase)
	assert.Equal(t, int32(1), got.Status.PodFailureCount)
}

func TestReconcileRunningClearsFailureTrackingOnceReady(t *testing.T) {
	start := metav1.NewTime(time.Now().Add(-time.Minute))
	server := &nmcpv1.MCPServer{
		ObjectMeta: metav1.ObjectMeta{Name: "fetch", Namespace: "default", Finalizers: []string{ServerFinalizer}},
		Status: nmcpv1.MCPServerStatus{
			Phase:             nmcpv1.MCPServerPhaseStarting,
			PodFailureCount:   2,
			FirstPodFailureAt: &start,
		},
	}
	pod := resources.BuildPod(server, "default", nil)
	pod.Status = corev1.PodStatus{
		Conditions: []corev1.PodCondition{{Type: corev1.PodReady, Status: corev1.ConditionTrue}},
	}
	r, k := newServerReconciler(t, server, defaultPool(), pod)

	_, err := r.Reconcile(context.Background(), ctrl.Request{NamespacedName: client.ObjectKey{Namespace: "default", Name: "fetch"}})
	require.NoError(t, err)

	got, err := k.GetServer(context.Background(), "default", "fetch")
	require.NoError(t, err)
	assert.Equal(t, nmcpv1.MCPServerPhaseRunning, got.Status.Phase)
	assert.Equal(t, int32(0), got.Status.PodFailureCount)
	assert.Nil(t, got.Status.FirstPodFailureAt)
}

func TestReconcileDeletionRemovesFinalizerAndResources(t *testing.T) {
	server := &nmcpv1.MCPServer{
		ObjectMeta: metav1.ObjectMeta{
			Name: "fetch", Namespace: "default",
			Finalizers:        []string{ServerFinalizer},
			DeletionTimestamp: &metav1.Time{Time: time.Now()},
		},
	}
	pod := &corev1.Pod{ObjectMeta: metav1.ObjectMeta{Name: "fetch", Namespace: "default"}}
	svc := &corev1.Service{ObjectMeta: metav1.ObjectMeta{Name: "fetch", Namespace: "default"}}
	r, k := newServerReconciler(t, server, pod, svc)

	_, err := r.Reconcile(context.Background(), ctrl.Request{NamespacedName: client.ObjectKey{Namespace: "default", Name: "fetch"}})
	require.NoError(t, err)

	_, err = k.GetServer(context.Background(), "default", "fetch")
	assert.Error(t, err)
}

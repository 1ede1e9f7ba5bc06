// Package kube is the typed client surface every other component reads and
// writes the cluster through: list, get, watch (via the manager's cache),
// create, patch, delete, and patchStatus against the status subresource.
// Updates and status patches carry a resource-version precondition through
// the controller-runtime client's optimistic-concurrency semantics; creates
// and the by-name deletes carry none. Conflicts surface to the caller as
// nmcperr.KindConflict for the caller to retry.
package kube

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	nmcpv1 "github.com/nwrx/nmcp/internal/apis/nmcp/v1alpha1"
	"github.com/nwrx/nmcp/internal/nmcperr"
)

// Client is the narrow surface the controllers, the activation waiter, and
// the gateway depend on instead of the raw controller-runtime client,
// classifying errors onto the taxonomy at the boundary.
type Client struct {
	c client.Client
}

// New wraps a controller-runtime client.
func New(c client.Client) *Client { return &Client{c: c} }

func (k *Client) GetServer(ctx context.Context, namespace, name string) (*nmcpv1.MCPServer, error) {
	out := &nmcpv1.MCPServer{}
	if err := k.c.Get(ctx, types.NamespacedName{Namespace: namespace, Name: name}, out); err != nil {
		return nil, nmcperr.Classify(err)
	}
	return out, nil
}

func (k *Client) GetPool(ctx context.Context, namespace, name string) (*nmcpv1.MCPPool, error) {
	out := &nmcpv1.MCPPool{}
	if err := k.c.Get(ctx, types.NamespacedName{Namespace: namespace, Name: name}, out); err != nil {
		return nil, nmcperr.Classify(err)
	}
	return out, nil
}

func (k *Client) ListServers(ctx context.Context, namespace string, opts ...client.ListOption) ([]nmcpv1.MCPServer, error) {
	list := &nmcpv1.MCPServerList{}
	allOpts := append([]client.ListOption{client.InNamespace(namespace)}, opts...)
	if err := k.c.List(ctx, list, allOpts...); err != nil {
		return nil, nmcperr.Classify(err)
	}
	return list.Items, nil
}

func (k *Client) ListPools(ctx context.Context, namespace string) ([]nmcpv1.MCPPool, error) {
	list := &nmcpv1.MCPPoolList{}
	if err := k.c.List(ctx, list, client.InNamespace(namespace)); err != nil {
		return nil, nmcperr.Classify(err)
	}
	return list.Items, nil
}

func (k *Client) CreateServer(ctx context.Context, server *nmcpv1.MCPServer) error {
	if err := k.c.Create(ctx, server); err != nil {
		return nmcperr.Classify(err)
	}
	return nil
}

func (k *Client) CreatePool(ctx context.Context, pool *nmcpv1.MCPPool) error {
	if err := k.c.Create(ctx, pool); err != nil {
		return nmcperr.Classify(err)
	}
	return nil
}

func (k *Client) UpdatePool(ctx context.Context, pool *nmcpv1.MCPPool) error {
	if err := k.c.Update(ctx, pool); err != nil {
		return nmcperr.Classify(err)
	}
	return nil
}

func (k *Client) UpdateServer(ctx context.Context, server *nmcpv1.MCPServer) error {
	if err := k.c.Update(ctx, server); err != nil {
		return nmcperr.Classify(err)
	}
	return nil
}

func (k *Client) DeleteServer(ctx context.Context, server *nmcpv1.MCPServer) error {
	if err := k.c.Delete(ctx, server); err != nil && !apierrors.IsNotFound(err) {
		return nmcperr.Classify(err)
	}
	return nil
}

func (k *Client) DeletePool(ctx context.Context, pool *nmcpv1.MCPPool) error {
	if err := k.c.Delete(ctx, pool); err != nil && !apierrors.IsNotFound(err) {
		return nmcperr.Classify(err)
	}
	return nil
}

// PatchServerStatus performs a status-subresource merge-patch, carrying the
// object's own resourceVersion as the optimistic-concurrency precondition.
func (k *Client) PatchServerStatus(ctx context.Context, server *nmcpv1.MCPServer, mutate func(*nmcpv1.MCPServer)) error {
	original := server.DeepCopy()
	mutate(server)
	if err := k.c.Status().Patch(ctx, server, client.MergeFromWithOptions(original, client.MergeFromWithOptimisticLock{})); err != nil {
		return nmcperr.Classify(err)
	}
	return nil
}

// PatchPoolStatus performs a status-subresource merge-patch for a pool,
// with the same resourceVersion precondition as PatchServerStatus.
func (k *Client) PatchPoolStatus(ctx context.Context, pool *nmcpv1.MCPPool, mutate func(*nmcpv1.MCPPool)) error {
	original := pool.DeepCopy()
	mutate(pool)
	if err := k.c.Status().Patch(ctx, pool, client.MergeFromWithOptions(original, client.MergeFromWithOptimisticLock{})); err != nil {
		return nmcperr.Classify(err)
	}
	return nil
}

func (k *Client) GetPod(ctx context.Context, namespace, name string) (*corev1.Pod, error) {
	out := &corev1.Pod{}
	if err := k.c.Get(ctx, types.NamespacedName{Namespace: namespace, Name: name}, out); err != nil {
		return nil, nmcperr.Classify(err)
	}
	return out, nil
}

func (k *Client) GetService(ctx context.Context, namespace, name string) (*corev1.Service, error) {
	out := &corev1.Service{}
	if err := k.c.Get(ctx, types.NamespacedName{Namespace: namespace, Name: name}, out); err != nil {
		return nil, nmcperr.Classify(err)
	}
	return out, nil
}

func (k *Client) CreatePod(ctx context.Context, pod *corev1.Pod) error {
	if err := k.c.Create(ctx, pod); err != nil {
		return nmcperr.Classify(err)
	}
	return nil
}

func (k *Client) CreateService(ctx context.Context, svc *corev1.Service) error {
	if err := k.c.Create(ctx, svc); err != nil {
		return nmcperr.Classify(err)
	}
	return nil
}

func (k *Client) DeletePod(ctx context.Context, namespace, name string) error {
	pod := &corev1.Pod{}
	pod.Namespace, pod.Name = namespace, name
	if err := k.c.Delete(ctx, pod); err != nil && !apierrors.IsNotFound(err) {
		return nmcperr.Classify(err)
	}
	return nil
}

func (k *Client) DeleteService(ctx context.Context, namespace, name string) error {
	svc := &corev1.Service{}
	svc.Namespace, svc.Name = namespace, name
	if err := k.c.Delete(ctx, svc); err != nil && !apierrors.IsNotFound(err) {
		return nmcperr.Classify(err)
	}
	return nil
}

// ServiceDNSName returns the in-cluster DNS name for a server's Service.
func ServiceDNSName(namespace, name string, port int32) string {
	return fmt.Sprintf("%s.%s.svc.cluster.local:%d", name, namespace, port)
}

// Raw exposes the underlying controller-runtime client for callers that need
// watches or other operations this narrow surface does not wrap.
func (k *Client) Raw() client.Client { return k.c }

package gateway

import (
	"context"

	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	nmcpv1 "github.com/nwrx/nmcp/internal/apis/nmcp/v1alpha1"
)

// KubeClient is the narrow surface the gateway needs from *kube.Client.
// Expressed as an interface, matching the teacher's api.InstanceRestarter
// seam, so handler tests can substitute a fake without standing up a real
// informer cache.
type KubeClient interface {
	ListPools(ctx context.Context, namespace string) ([]nmcpv1.MCPPool, error)
	GetPool(ctx context.Context, namespace, name string) (*nmcpv1.MCPPool, error)
	CreatePool(ctx context.Context, pool *nmcpv1.MCPPool) error
	UpdatePool(ctx context.Context, pool *nmcpv1.MCPPool) error
	DeletePool(ctx context.Context, pool *nmcpv1.MCPPool) error

	ListServers(ctx context.Context, namespace string, opts ...client.ListOption) ([]nmcpv1.MCPServer, error)
	GetServer(ctx context.Context, namespace, name string) (*nmcpv1.MCPServer, error)
	CreateServer(ctx context.Context, server *nmcpv1.MCPServer) error
	UpdateServer(ctx context.Context, server *nmcpv1.MCPServer) error
	DeleteServer(ctx context.Context, server *nmcpv1.MCPServer) error

	GetPod(ctx context.Context, namespace, name string) (*corev1.Pod, error)
	GetService(ctx context.Context, namespace, name string) (*corev1.Service, error)
}

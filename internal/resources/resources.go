// Package resources builds the desired Pod and Service for an MCPServer.
// Every function here is pure: given a spec it returns a descriptor, with no
// I/O and no side effects, so the controller can diff desired against actual
// without ever mutating the cluster from this package.
package resources

import (
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"

	nmcpv1 "github.com/nwrx/nmcp/internal/apis/nmcp/v1alpha1"
)

const (
	LabelManagedBy = "app.kubernetes.io/managed-by"
	LabelServer    = "nmcp.nwrx.io/server"
	LabelPool      = "nmcp.nwrx.io/pool"

	ManagedByValue = "nmcp"
)

// Labels returns the label set every Pod/Service for server belongs under.
func Labels(serverName, poolName string) map[string]string {
	return map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelServer:    serverName,
		LabelPool:      poolName,
	}
}

// BuildPod produces the desired Pod for a server. poolName is the resolved
// pool the server belongs to (spec.Pool, defaulted upstream); defaults carry
// resource requirements inherited from the pool when the server does not
// override them.
func BuildPod(server *nmcpv1.MCPServer, poolName string, defaultResources *corev1.ResourceRequirements) *corev1.Pod {
	labels := Labels(server.Name, poolName)

	env := make([]corev1.EnvVar, 0, len(server.Spec.Env))
	for _, e := range server.Spec.Env {
		env = append(env, corev1.EnvVar{Name: e.Name, Value: e.Value, ValueFrom: e.ValueFrom})
	}

	container := corev1.Container{
		Name:    "mcp-server",
		Image:   effectiveImage(server.Spec.Image),
		Command: server.Spec.Command,
		Args:    server.Spec.Args,
		Env:     env,
	}

	if server.Spec.Transport.Type == nmcpv1.MCPServerTransportSSE && server.Spec.Transport.Port != 0 {
		container.Ports = []corev1.ContainerPort{
			{Name: "mcp", ContainerPort: server.Spec.Transport.Port, Protocol: corev1.ProtocolTCP},
		}
	}

	switch {
	case server.Spec.Resources != nil:
		container.Resources = *server.Spec.Resources
	case defaultResources != nil:
		container.Resources = *defaultResources
	}

	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      server.Name,
			Namespace: server.Namespace,
			Labels:    labels,
		},
		Spec: corev1.PodSpec{
			Containers:    []corev1.Container{container},
			RestartPolicy: corev1.RestartPolicyNever,
		},
	}
}

// BuildService produces the desired Service for a server, selecting the Pod
// by label and exposing the transport port. For stdio transport the Service
// still exists (for DNS/label consistency and future sidecar bridging) but
// the gateway talks to the Pod via exec, not via this Service.
func BuildService(server *nmcpv1.MCPServer, poolName string) *corev1.Service {
	labels := Labels(server.Name, poolName)
	port := server.Spec.Transport.Port
	if server.Spec.Transport.Type != nmcpv1.MCPServerTransportSSE || port == 0 {
		port = 8080
	}

	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      server.Name,
			Namespace: server.Namespace,
			Labels:    labels,
		},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeClusterIP,
			Selector: labels,
			Ports: []corev1.ServicePort{
				{Name: "mcp", Port: port, TargetPort: intstr.FromInt32(port), Protocol: corev1.ProtocolTCP},
			},
		},
	}
}

func effectiveImage(image string) string {
	if image == "" {
		return "mcp/fetch:latest"
	}
	return image
}

// PodReady reports whether pod has a PodReady condition that is True.
func PodReady(pod *corev1.Pod) bool {
	if pod == nil {
		return false
	}
	for _, cond := range pod.Status.Conditions {
		if cond.Type == corev1.PodReady && cond.Status == corev1.ConditionTrue {
			return true
		}
	}
	return false
}

// SpecDrift reports whether the observed Pod no longer matches the desired
// immutable fields (image, command, env); the caller should delete+recreate
// on drift.
func SpecDrift(desired, observed *corev1.Pod) bool {
	if len(desired.Spec.Containers) != 1 || len(observed.Spec.Containers) != 1 {
		return true
	}
	d, o := desired.Spec.Containers[0], observed.Spec.Containers[0]
	if d.Image != o.Image {
		return true
	}
	if !stringSliceEqual(d.Command, o.Command) || !stringSliceEqual(d.Args, o.Args) {
		return true
	}
	if len(d.Env) != len(o.Env) {
		return true
	}
	for i := range d.Env {
		if d.Env[i].Name != o.Env[i].Name || d.Env[i].Value != o.Env[i].Value {
			return true
		}
	}
	return false
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

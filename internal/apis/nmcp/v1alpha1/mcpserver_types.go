package v1alpha1

import (
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// MCPServerPhase is the coarse lifecycle state of a server.
type MCPServerPhase string

const (
	MCPServerPhaseIdle      MCPServerPhase = "Idle"
	MCPServerPhaseRequested MCPServerPhase = "Requested"
	MCPServerPhaseStarting  MCPServerPhase = "Starting"
	MCPServerPhaseRunning   MCPServerPhase = "Running"
	MCPServerPhaseStopping  MCPServerPhase = "Stopping"
	MCPServerPhaseFailed    MCPServerPhase = "Failed"
)

// MCPServerTransportType names the in-band channel used to talk to the
// server's process.
type MCPServerTransportType string

const (
	MCPServerTransportStdio MCPServerTransportType = "stdio"
	MCPServerTransportSSE   MCPServerTransportType = "sse"
)

// MCPServerTransport is a closed tagged union at the Go boundary; at the CRD
// wire format it remains a plain struct with a discriminating Type field for
// schema compatibility.
type MCPServerTransport struct {
	// Type selects the transport. One of "stdio", "sse".
	// +kubebuilder:validation:Enum=stdio;sse
	// +kubebuilder:default=stdio
	Type MCPServerTransportType `json:"type"`

	// Port is the container port the MCP server listens on. Required when
	// Type is "sse"; ignored for "stdio".
	// +optional
	Port int32 `json:"port,omitempty"`
}

// MCPServerEnvVarSource mirrors corev1.EnvVarSource, the set of places a
// server's environment values may come from besides a literal value.
type MCPServerEnvVarSource = corev1.EnvVarSource

// MCPServerEnvVar is one entry of a server's environment, with optional
// indirection through config maps, secrets, fields or resources.
type MCPServerEnvVar struct {
	Name      string                  `json:"name"`
	Value     string                  `json:"value,omitempty"`
	ValueFrom *MCPServerEnvVarSource  `json:"valueFrom,omitempty"`
}

// MCPServerSpec defines the desired state of an MCPServer.
type MCPServerSpec struct {
	// Image is the container image reference for the MCP server process.
	// +kubebuilder:default="mcp/fetch:latest"
	// +optional
	Image string `json:"image,omitempty"`

	// Command overrides the container entrypoint.
	// +optional
	Command []string `json:"command,omitempty"`

	// Args overrides the container arguments.
	// +optional
	Args []string `json:"args,omitempty"`

	// Env is the server's environment, expanded from refs at resource-build
	// time.
	// +optional
	Env []MCPServerEnvVar `json:"env,omitempty"`

	// Resources overrides the pool's default resource requirements.
	// +optional
	Resources *corev1.ResourceRequirements `json:"resources,omitempty"`

	// Pool names the MCPPool this server belongs to.
	// +kubebuilder:default="default"
	// +optional
	Pool string `json:"pool,omitempty"`

	// IdleTimeoutSeconds is how long a Running server may sit with no open
	// connections before being reaped. Zero means inherit the pool default.
	// +kubebuilder:validation:Minimum=0
	// +optional
	IdleTimeoutSeconds int64 `json:"idleTimeoutSeconds,omitempty"`

	// Transport selects how the gateway talks to the server process.
	// +optional
	Transport MCPServerTransport `json:"transport,omitempty"`
}

// MCPServerCondition follows the Kubernetes condition pattern.
type MCPServerCondition struct {
	Type               string                 `json:"type"`
	Status             metav1.ConditionStatus `json:"status"`
	Reason             string                 `json:"reason,omitempty"`
	Message            string                 `json:"message,omitempty"`
	LastTransitionTime metav1.Time            `json:"lastTransitionTime,omitempty"`
	ObservedGeneration int64                  `json:"observedGeneration,omitempty"`
}

// Condition type names used across the server controller and the gateway.
const (
	ConditionPoolNotFound     = "PoolNotFound"
	ConditionAwaitingCapacity = "AwaitingCapacity"
	ConditionUnmanaged        = "Unmanaged"
	ConditionInvalidSpec      = "InvalidSpec"
	ConditionPodFailed        = "PodFailed"
)

// MCPServerStatus defines the observed state of an MCPServer.
type MCPServerStatus struct {
	// Phase is the current lifecycle phase.
	// +optional
	Phase MCPServerPhase `json:"phase,omitempty"`

	// CurrentConnections is the number of open gateway connections proxied to
	// this server right now.
	// +optional
	CurrentConnections uint32 `json:"currentConnections,omitempty"`

	// TotalRequests is monotonic within a server's lifecycle; it never
	// decreases except across a full recreation of the CR.
	// +optional
	TotalRequests uint64 `json:"totalRequests,omitempty"`

	// LastRequestAt is updated by the gateway's connection accountant.
	// +optional
	LastRequestAt *metav1.Time `json:"lastRequestAt,omitempty"`

	// StartedAt records when the server last entered Starting.
	// +optional
	StartedAt *metav1.Time `json:"startedAt,omitempty"`

	// StoppedAt records when the server last completed Stopping.
	// +optional
	StoppedAt *metav1.Time `json:"stoppedAt,omitempty"`

	// PodFailureCount tracks consecutive Pod failures for the bounded retry
	// window before the server is marked Failed.
	// +optional
	PodFailureCount int32 `json:"podFailureCount,omitempty"`

	// FirstPodFailureAt marks the start of the current retry window;
	// PodFailureCount resets once a Pod reaches Running, which also clears
	// this field.
	// +optional
	FirstPodFailureAt *metav1.Time `json:"firstPodFailureAt,omitempty"`

	// Conditions record the latest observations of this server's state.
	// +optional
	Conditions []MCPServerCondition `json:"conditions,omitempty"`

	// ObservedGeneration is the spec generation this status was computed
	// from; it gates re-evaluation of a Failed server after validation
	// failures.
	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:shortName=mcp
// +kubebuilder:printcolumn:name="Pool",type=string,JSONPath=`.spec.pool`
// +kubebuilder:printcolumn:name="Phase",type=string,JSONPath=`.status.phase`
// +kubebuilder:printcolumn:name="Connections",type=integer,JSONPath=`.status.currentConnections`
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`

// MCPServer is the Schema for the mcpservers API.
type MCPServer struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   MCPServerSpec   `json:"spec,omitempty"`
	Status MCPServerStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// MCPServerList contains a list of MCPServer.
type MCPServerList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []MCPServer `json:"items"`
}

func init() {
	SchemeBuilder.Register(&MCPServer{}, &MCPServerList{})
}

package v1alpha1

import (
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// MCPPoolSpec defines the desired capacity and defaults for a pool of MCPServers.
type MCPPoolSpec struct {
	// DefaultIdleTimeoutSeconds is the idle timeout servers in this pool inherit
	// when they do not specify their own.
	// +kubebuilder:default=60
	// +kubebuilder:validation:Minimum=0
	// +optional
	DefaultIdleTimeoutSeconds int64 `json:"defaultIdleTimeoutSeconds,omitempty"`

	// DefaultResources is an opaque pass-through applied to a server's container
	// when the server does not specify its own resource requirements.
	// +optional
	DefaultResources *corev1.ResourceRequirements `json:"defaultResources,omitempty"`

	// MaxActive bounds how many servers in this pool may be Starting or Running
	// at once. The exported CRD does not apply the default below: an unset
	// MaxActive reads as 0, and the controllers then admit no server of the
	// pool.
	// +kubebuilder:default=100
	// +optional
	MaxActive uint32 `json:"maxActive,omitempty"`

	// MaxManaged bounds how many servers this pool admits into its managed set
	// (a superset of active). Servers beyond this count are Unmanaged.
	//
	// MaxServersLimit is the deprecated predecessor of this field, retained for
	// schema compatibility; when MaxManaged is unset, MaxServersLimit (if set)
	// supplies its value.
	// +kubebuilder:default=100
	// +optional
	MaxManaged uint32 `json:"maxManaged,omitempty"`

	// MaxServersLimit is deprecated; use MaxManaged.
	// +optional
	MaxServersLimit *uint32 `json:"maxServersLimit,omitempty"`
}

// MCPPoolStatus holds derived, non-authoritative counters for a pool.
type MCPPoolStatus struct {
	// Total is the number of servers that declare membership in this pool.
	// +optional
	Total uint32 `json:"total,omitempty"`

	// Managed is the number of servers admitted into the managed set.
	// +optional
	Managed uint32 `json:"managed,omitempty"`

	// Unmanaged is Total - Managed.
	// +optional
	Unmanaged uint32 `json:"unmanaged,omitempty"`

	// Active is the number of managed servers in phase Starting or Running.
	// +optional
	Active uint32 `json:"active,omitempty"`

	// Pending is the number of managed servers in phase Requested.
	// +optional
	Pending uint32 `json:"pending,omitempty"`

	// ObservedGeneration is the spec generation this status was computed from.
	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`
}

// EffectiveMaxManaged returns MaxManaged, falling back to the deprecated
// MaxServersLimit when the former was never set explicitly.
func (s MCPPoolSpec) EffectiveMaxManaged() uint32 {
	if s.MaxManaged != 0 {
		return s.MaxManaged
	}
	if s.MaxServersLimit != nil {
		return *s.MaxServersLimit
	}
	return 100
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:shortName=mcpp
// +kubebuilder:printcolumn:name="InUse",type=integer,JSONPath=`.status.active`
// +kubebuilder:printcolumn:name="Waiting",type=integer,JSONPath=`.status.pending`
// +kubebuilder:printcolumn:name="Managed",type=integer,JSONPath=`.status.managed`
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`

// MCPPool is the Schema for the mcppools API.
type MCPPool struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   MCPPoolSpec   `json:"spec,omitempty"`
	Status MCPPoolStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// MCPPoolList contains a list of MCPPool.
type MCPPoolList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []MCPPool `json:"items"`
}

func init() {
	SchemeBuilder.Register(&MCPPool{}, &MCPPoolList{})
}

// Code generated by hand to match controller-gen's object-generate output;
// keep in sync with the types in this package when they change.

package v1alpha1

import (
	runtime "k8s.io/apimachinery/pkg/runtime"
)

// DeepCopyInto is a deepcopy function, copying the receiver, writing into out. in must be non-nil.
func (in *MCPServerEnvVar) DeepCopyInto(out *MCPServerEnvVar) {
	*out = *in
	if in.ValueFrom != nil {
		out.ValueFrom = in.ValueFrom.DeepCopy()
	}
}

// DeepCopy is a deepcopy function, copying the receiver, creating a new MCPServerEnvVar.
func (in *MCPServerEnvVar) DeepCopy() *MCPServerEnvVar {
	if in == nil {
		return nil
	}
	out := new(MCPServerEnvVar)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyInto is a deepcopy function, copying the receiver, writing into out. in must be non-nil.
func (in *MCPServerTransport) DeepCopyInto(out *MCPServerTransport) {
	*out = *in
}

// DeepCopy is a deepcopy function, copying the receiver, creating a new MCPServerTransport.
func (in *MCPServerTransport) DeepCopy() *MCPServerTransport {
	if in == nil {
		return nil
	}
	out := new(MCPServerTransport)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyInto is a deepcopy function, copying the receiver, writing into out. in must be non-nil.
func (in *MCPServerSpec) DeepCopyInto(out *MCPServerSpec) {
	*out = *in
	if in.Command != nil {
		out.Command = make([]string, len(in.Command))
		copy(out.Command, in.Command)
	}
	if in.Args != nil {
		out.Args = make([]string, len(in.Args))
		copy(out.Args, in.Args)
	}
	if in.Env != nil {
		out.Env = make([]MCPServerEnvVar, len(in.Env))
		for i := range in.Env {
			in.Env[i].DeepCopyInto(&out.Env[i])
		}
	}
	if in.Resources != nil {
		out.Resources = in.Resources.DeepCopy()
	}
	out.Transport = in.Transport
}

// DeepCopy is a deepcopy function, copying the receiver, creating a new MCPServerSpec.
func (in *MCPServerSpec) DeepCopy() *MCPServerSpec {
	if in == nil {
		return nil
	}
	out := new(MCPServerSpec)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyInto is a deepcopy function, copying the receiver, writing into out. in must be non-nil.
func (in *MCPServerCondition) DeepCopyInto(out *MCPServerCondition) {
	*out = *in
	in.LastTransitionTime.DeepCopyInto(&out.LastTransitionTime)
}

// DeepCopy is a deepcopy function, copying the receiver, creating a new MCPServerCondition.
func (in *MCPServerCondition) DeepCopy() *MCPServerCondition {
	if in == nil {
		return nil
	}
	out := new(MCPServerCondition)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyInto is a deepcopy function, copying the receiver, writing into out. in must be non-nil.
func (in *MCPServerStatus) DeepCopyInto(out *MCPServerStatus) {
	*out = *in
	if in.LastRequestAt != nil {
		out.LastRequestAt = in.LastRequestAt.DeepCopy()
	}
	if in.StartedAt != nil {
		out.StartedAt = in.StartedAt.DeepCopy()
	}
	if in.StoppedAt != nil {
		out.StoppedAt = in.StoppedAt.DeepCopy()
	}
	if in.FirstPodFailureAt != nil {
		out.FirstPodFailureAt = in.FirstPodFailureAt.DeepCopy()
	}
	if in.Conditions != nil {
		out.Conditions = make([]MCPServerCondition, len(in.Conditions))
		for i := range in.Conditions {
			in.Conditions[i].DeepCopyInto(&out.Conditions[i])
		}
	}
}

// DeepCopy is a deepcopy function, copying the receiver, creating a new MCPServerStatus.
func (in *MCPServerStatus) DeepCopy() *MCPServerStatus {
	if in == nil {
		return nil
	}
	out := new(MCPServerStatus)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyInto is a deepcopy function, copying the receiver, writing into out. in must be non-nil.
func (in *MCPServer) DeepCopyInto(out *MCPServer) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ObjectMeta.DeepCopyInto(&out.ObjectMeta)
	in.Spec.DeepCopyInto(&out.Spec)
	in.Status.DeepCopyInto(&out.Status)
}

// DeepCopy is a deepcopy function, copying the receiver, creating a new MCPServer.
func (in *MCPServer) DeepCopy() *MCPServer {
	if in == nil {
		return nil
	}
	out := new(MCPServer)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyObject implements runtime.Object.
func (in *MCPServer) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}

// DeepCopyInto is a deepcopy function, copying the receiver, writing into out. in must be non-nil.
func (in *MCPServerList) DeepCopyInto(out *MCPServerList) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ListMeta.DeepCopyInto(&out.ListMeta)
	if in.Items != nil {
		out.Items = make([]MCPServer, len(in.Items))
		for i := range in.Items {
			in.Items[i].DeepCopyInto(&out.Items[i])
		}
	}
}

// DeepCopy is a deepcopy function, copying the receiver, creating a new MCPServerList.
func (in *MCPServerList) DeepCopy() *MCPServerList {
	if in == nil {
		return nil
	}
	out := new(MCPServerList)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyObject implements runtime.Object.
func (in *MCPServerList) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}

// DeepCopyInto is a deepcopy function, copying the receiver, writing into out. in must be non-nil.
func (in *MCPPoolSpec) DeepCopyInto(out *MCPPoolSpec) {
	*out = *in
	if in.DefaultResources != nil {
		out.DefaultResources = in.DefaultResources.DeepCopy()
	}
	if in.MaxServersLimit != nil {
		v := *in.MaxServersLimit
		out.MaxServersLimit = &v
	}
}

// DeepCopy is a deepcopy function, copying the receiver, creating a new MCPPoolSpec.
func (in *MCPPoolSpec) DeepCopy() *MCPPoolSpec {
	if in == nil {
		return nil
	}
	out := new(MCPPoolSpec)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyInto is a deepcopy function, copying the receiver, writing into out. in must be non-nil.
func (in *MCPPoolStatus) DeepCopyInto(out *MCPPoolStatus) {
	*out = *in
}

// DeepCopy is a deepcopy function, copying the receiver, creating a new MCPPoolStatus.
func (in *MCPPoolStatus) DeepCopy() *MCPPoolStatus {
	if in == nil {
		return nil
	}
	out := new(MCPPoolStatus)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyInto is a deepcopy function, copying the receiver, writing into out. in must be non-nil.
func (in *MCPPool) DeepCopyInto(out *MCPPool) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ObjectMeta.DeepCopyInto(&out.ObjectMeta)
	in.Spec.DeepCopyInto(&out.Spec)
	out.Status = in.Status
}

// DeepCopy is a deepcopy function, copying the receiver, creating a new MCPPool.
func (in *MCPPool) DeepCopy() *MCPPool {
	if in == nil {
		return nil
	}
	out := new(MCPPool)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyObject implements runtime.Object.
func (in *MCPPool) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}

// DeepCopyInto is a deepcopy function, copying the receiver, writing into out. in must be non-nil.
func (in *MCPPoolList) DeepCopyInto(out *MCPPoolList) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ListMeta.DeepCopyInto(&out.ListMeta)
	if in.Items != nil {
		out.Items = make([]MCPPool, len(in.Items))
		for i := range in.Items {
			in.Items[i].DeepCopyInto(&out.Items[i])
		}
	}
}

// DeepCopy is a deepcopy function, copying the receiver, creating a new MCPPoolList.
func (in *MCPPoolList) DeepCopy() *MCPPoolList {
	if in == nil {
		return nil
	}
	out := new(MCPPoolList)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyObject implements runtime.Object.
func (in *MCPPoolList) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}

// Package crdexport renders the MCPServer/MCPPool CustomResourceDefinition
// manifests the `export --type=crd` subcommand prints. There is no
// controller-gen invocation behind this repository (consistent with the
// hand-authored zz_generated.deepcopy.go elsewhere in internal/apis); the
// manifests below are hand-built apiextensions/v1 types whose schema is an
// open object (see preserveUnknownFields), with the group, kind, and
// printer columns pinned to §6's EXTERNAL INTERFACES table.
package crdexport

import (
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const group = "nmcp.nwrx.io"

// preserveUnknownFields avoids hand-authoring the full OpenAPI v3 schema
// for every field of MCPServerSpec/MCPPoolSpec (env vars, resource
// requirements, transport) — structural validation is left to the Go type
// system and the reconcilers' own `validate()` step. The enum, minimum and
// default markers on the Go structs are not part of this schema, so the
// apiserver neither validates nor defaults those fields.
var preserveUnknownFields = true

// Server returns the MCPServer CRD manifest.
func Server() *apiextensionsv1.CustomResourceDefinition {
	return &apiextensionsv1.CustomResourceDefinition{
		TypeMeta: metav1.TypeMeta{
			APIVersion: "apiextensions.k8s.io/v1",
			Kind:       "CustomResourceDefinition",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name: "mcpservers." + group,
		},
		Spec: apiextensionsv1.CustomResourceDefinitionSpec{
			Group: group,
			Names: apiextensionsv1.CustomResourceDefinitionNames{
				Plural:   "mcpservers",
				Singular: "mcpserver",
				Kind:     "MCPServer",
				ListKind: "MCPServerList",
				ShortNames: []string{"mcp"},
			},
			Scope: apiextensionsv1.NamespaceScoped,
			Versions: []apiextensionsv1.CustomResourceDefinitionVersion{
				{
					Name:    "v1",
					Served:  true,
					Storage: true,
					Subresources: &apiextensionsv1.CustomResourceSubresources{
						Status: &apiextensionsv1.CustomResourceSubresourceStatus{},
					},
					Schema: &apiextensionsv1.CustomResourceValidation{
						OpenAPIV3Schema: &apiextensionsv1.JSONSchemaProps{
							Type:                   "object",
							XPreserveUnknownFields: &preserveUnknownFields,
						},
					},
					AdditionalPrinterColumns: []apiextensionsv1.CustomResourceColumnDefinition{
						{Name: "Pool", Type: "string", JSONPath: ".spec.pool"},
						{Name: "Phase", Type: "string", JSONPath: ".status.phase"},
						{Name: "Age", Type: "date", JSONPath: ".metadata.creationTimestamp"},
					},
				},
			},
		},
	}
}

// Pool returns the MCPPool CRD manifest.
func Pool() *apiextensionsv1.CustomResourceDefinition {
	return &apiextensionsv1.CustomResourceDefinition{
		TypeMeta: metav1.TypeMeta{
			APIVersion: "apiextensions.k8s.io/v1",
			Kind:       "CustomResourceDefinition",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name: "mcppools." + group,
		},
		Spec: apiextensionsv1.CustomResourceDefinitionSpec{
			Group: group,
			Names: apiextensionsv1.CustomResourceDefinitionNames{
				Plural:     "mcppools",
				Singular:   "mcppool",
				Kind:       "MCPPool",
				ListKind:   "MCPPoolList",
				ShortNames: []string{"mcpp"},
			},
			Scope: apiextensionsv1.NamespaceScoped,
			Versions: []apiextensionsv1.CustomResourceDefinitionVersion{
				{
					Name:    "v1",
					Served:  true,
					Storage: true,
					Subresources: &apiextensionsv1.CustomResourceSubresources{
						Status: &apiextensionsv1.CustomResourceSubresourceStatus{},
					},
					Schema: &apiextensionsv1.CustomResourceValidation{
						OpenAPIV3Schema: &apiextensionsv1.JSONSchemaProps{
							Type:                   "object",
							XPreserveUnknownFields: &preserveUnknownFields,
						},
					},
					AdditionalPrinterColumns: []apiextensionsv1.CustomResourceColumnDefinition{
						{Name: "InUse", Type: "integer", JSONPath: ".status.active"},
						{Name: "Waiting", Type: "integer", JSONPath: ".status.pending"},
						{Name: "Age", Type: "date", JSONPath: ".metadata.creationTimestamp"},
					},
				},
			},
		},
	}
}

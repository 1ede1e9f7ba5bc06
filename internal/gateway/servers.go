package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	nmcpv1 "github.com/nwrx/nmcp/internal/apis/nmcp/v1alpha1"
	"github.com/nwrx/nmcp/internal/nmcperr"
)

// ServerHandlers implements the `/api/v1/servers` CRUD surface of 4.F.
type ServerHandlers struct {
	kube      KubeClient
	namespace string
}

func NewServerHandlers(k KubeClient, namespace string) *ServerHandlers {
	return &ServerHandlers{kube: k, namespace: namespace}
}

func (h *ServerHandlers) List(w http.ResponseWriter, r *http.Request) {
	servers, err := h.kube.ListServers(r.Context(), h.namespace)
	if err != nil {
		writeError(w, err)
		return
	}
	if servers == nil {
		servers = []nmcpv1.MCPServer{}
	}
	writeJSON(w, http.StatusOK, servers)
}

func (h *ServerHandlers) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	server, err := h.kube.GetServer(r.Context(), h.namespace, name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, server)
}

func (h *ServerHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var server nmcpv1.MCPServer
	if err := json.NewDecoder(r.Body).Decode(&server); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, nmcperr.KindValidation, "invalid request body")
		return
	}
	server.Namespace = h.namespace
	if server.Name == "" {
		writeErrorStatus(w, http.StatusBadRequest, nmcperr.KindValidation, "name is required")
		return
	}
	if err := h.kube.CreateServer(r.Context(), &server); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, &server)
}

func (h *ServerHandlers) Replace(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	existing, err := h.kube.GetServer(r.Context(), h.namespace, name)
	if err != nil {
		writeError(w, err)
		return
	}

	var body nmcpv1.MCPServer
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, nmcperr.KindValidation, "invalid request body")
		return
	}
	existing.Spec = body.Spec

	if err := h.kube.UpdateServer(r.Context(), existing); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

func (h *ServerHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	server, err := h.kube.GetServer(r.Context(), h.namespace, name)
	if err != nil {
		if nmcperr.Is(err, nmcperr.KindNotFound) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeError(w, err)
		return
	}
	if err := h.kube.DeleteServer(r.Context(), server); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

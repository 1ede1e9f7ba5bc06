package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	nmcpv1 "github.com/nwrx/nmcp/internal/apis/nmcp/v1alpha1"
	"github.com/nwrx/nmcp/internal/nmcperr"
)

// PoolHandlers implements the `/api/v1/pools` CRUD surface of 4.F.
type PoolHandlers struct {
	kube      KubeClient
	namespace string
}

// NewPoolHandlers wires the pool CRUD handlers to a namespace-scoped kube
// client, the way the teacher's api.Handlers wires a repository.
func NewPoolHandlers(k KubeClient, namespace string) *PoolHandlers {
	return &PoolHandlers{kube: k, namespace: namespace}
}

func (h *PoolHandlers) List(w http.ResponseWriter, r *http.Request) {
	pools, err := h.kube.ListPools(r.Context(), h.namespace)
	if err != nil {
		writeError(w, err)
		return
	}
	if pools == nil {
		pools = []nmcpv1.MCPPool{}
	}
	writeJSON(w, http.StatusOK, pools)
}

func (h *PoolHandlers) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	pool, err := h.kube.GetPool(r.Context(), h.namespace, name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pool)
}

func (h *PoolHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var pool nmcpv1.MCPPool
	if err := json.NewDecoder(r.Body).Decode(&pool); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, nmcperr.KindValidation, "invalid request body")
		return
	}
	pool.Namespace = h.namespace
	if pool.Name == "" {
		writeErrorStatus(w, http.StatusBadRequest, nmcperr.KindValidation, "name is required")
		return
	}
	if err := h.kube.CreatePool(r.Context(), &pool); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, &pool)
}

// Replace implements PUT /api/v1/pools/{name}: a full spec replace keyed on
// the URL name, ignoring any name carried in the body.
func (h *PoolHandlers) Replace(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	existing, err := h.kube.GetPool(r.Context(), h.namespace, name)
	if err != nil {
		writeError(w, err)
		return
	}

	var body nmcpv1.MCPPool
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, nmcperr.KindValidation, "invalid request body")
		return
	}
	existing.Spec = body.Spec

	if err := h.kube.UpdatePool(r.Context(), existing); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

func (h *PoolHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	pool, err := h.kube.GetPool(r.Context(), h.namespace, name)
	if err != nil {
		if nmcperr.Is(err, nmcperr.KindNotFound) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeError(w, err)
		return
	}
	if err := h.kube.DeletePool(r.Context(), pool); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

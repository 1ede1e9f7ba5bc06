package gateway

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	nmcpv1 "github.com/nwrx/nmcp/internal/apis/nmcp/v1alpha1"
)

func serverRouter(k KubeClient) chi.Router {
	h := NewServerHandlers(k, "default")
	r := chi.NewRouter()
	r.Route("/servers", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{name}", h.Get)
		r.Put("/{name}", h.Replace)
		r.Delete("/{name}", h.Delete)
	})
	return r
}

func TestServerListReturnsEmptyArrayNotNull(t *testing.T) {
	r := serverRouter(newTestKube(t))
	req := httptest.NewRequest(http.MethodGet, "/servers/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestServerCreateRequiresName(t *testing.T) {
	r := serverRouter(newTestKube(t))
	req := httptest.NewRequest(http.MethodPost, "/servers/", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServerCreateRejectsMalformedBody(t *testing.T) {
	r := serverRouter(newTestKube(t))
	req := httptest.NewRequest(http.MethodPost, "/servers/", bytes.NewBufferString(`not json`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServerCreateThenGet(t *testing.T) {
	r := serverRouter(newTestKube(t))

	body := `{"metadata":{"name":"fetch"},"spec":{"image":"mcp/fetch:v1"}}`
	createReq := httptest.NewRequest(http.MethodPost, "/servers/", bytes.NewBufferString(body))
	createRec := httptest.NewRecorder()
	r.ServeHTTP(createRec, createReq)
	require.Equal(t, http.StatusCreated, createRec.Code)

	getReq := httptest.NewRequest(http.MethodGet, "/servers/fetch", nil)
	getRec := httptest.NewRecorder()
	r.ServeHTTP(getRec, getReq)
	require.Equal(t, http.StatusOK, getRec.Code)

	var server nmcpv1.MCPServer
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &server))
	assert.Equal(t, "fetch", server.Name)
	assert.Equal(t, "mcp/fetch:v1", server.Spec.Image)
}

func TestServerDeleteExistingReturnsNoContent(t *testing.T) {
	server := &nmcpv1.MCPServer{ObjectMeta: metav1.ObjectMeta{Name: "fetch", Namespace: "default"}}
	r := serverRouter(newTestKube(t, server))

	req := httptest.NewRequest(http.MethodDelete, "/servers/fetch", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestServerReplaceKeepsURLNameIgnoringBodyName(t *testing.T) {
	server := &nmcpv1.MCPServer{ObjectMeta: metav1.ObjectMeta{Name: "fetch", Namespace: "default"}}
	r := serverRouter(newTestKube(t, server))

	req := httptest.NewRequest(http.MethodPut, "/servers/fetch", bytes.NewBufferString(`{"metadata":{"name":"renamed"},"spec":{"image":"mcp/fetch:v2"}}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var got nmcpv1.MCPServer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "fetch", got.Name)
	assert.Equal(t, "mcp/fetch:v2", got.Spec.Image)
}

package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/nwrx/nmcp/internal/nmcperr"
)

func TestStatusForKindCoversTheTaxonomyTable(t *testing.T) {
	cases := map[nmcperr.Kind]int{
		nmcperr.KindNotFound:          http.StatusNotFound,
		nmcperr.KindConflict:          http.StatusConflict,
		nmcperr.KindValidation:        http.StatusBadRequest,
		nmcperr.KindPoolExhausted:     http.StatusTooManyRequests,
		nmcperr.KindPodFailed:         http.StatusBadGateway,
		nmcperr.KindActivationTimeout: http.StatusGatewayTimeout,
		nmcperr.KindActivationFailed:  http.StatusBadGateway,
		nmcperr.KindUpstreamIOError:   http.StatusBadGateway,
		nmcperr.KindFatal:             http.StatusInternalServerError,
		nmcperr.KindTransientAPI:      http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, statusForKind(kind), "kind=%s", kind)
	}
}

func TestWriteErrorClassifiesRawAPIError(t *testing.T) {
	rec := httptest.NewRecorder()
	err := apierrors.NewNotFound(schema.GroupResource{Group: "nmcp.nwrx.io", Resource: "mcpservers"}, "fetch")

	writeError(rec, err)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, string(nmcperr.KindNotFound), body.Error.Kind)
}

func TestWriteErrorStatusWritesGivenEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	writeErrorStatus(rec, http.StatusBadRequest, nmcperr.KindValidation, "name is required")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "name is required", body.Error.Message)
}

// Package gateway is the HTTP demand-router (4.F): CRUD over pools and
// servers, the SSE-open hard path, the message POST path, and the
// observability endpoints. Grounded on the teacher's internal/api and
// internal/gateway packages — same chi router shape, same writeJSON/
// writeError helpers, same error-to-status mapping idiom, adapted from a
// JWT-session proxy to a Kubernetes-CR demand-router.
package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/nwrx/nmcp/internal/nmcperr"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// errorBody is the `{"error": {"kind", "message"}}` envelope 7. requires.
type errorBody struct {
	Error struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

// writeError classifies err onto the taxonomy and writes the JSON envelope
// with the status the table in §7 assigns to its kind.
func writeError(w http.ResponseWriter, err error) {
	classified := nmcperr.Classify(err)
	status := statusForKind(classified.Kind)

	body := errorBody{}
	body.Error.Kind = string(classified.Kind)
	body.Error.Message = classified.Message
	writeJSON(w, status, body)
}

func writeErrorStatus(w http.ResponseWriter, status int, kind nmcperr.Kind, message string) {
	body := errorBody{}
	body.Error.Kind = string(kind)
	body.Error.Message = message
	writeJSON(w, status, body)
}

func statusForKind(kind nmcperr.Kind) int {
	switch kind {
	case nmcperr.KindNotFound:
		return http.StatusNotFound
	case nmcperr.KindConflict:
		return http.StatusConflict
	case nmcperr.KindValidation:
		return http.StatusBadRequest
	case nmcperr.KindPoolExhausted:
		return http.StatusTooManyRequests
	case nmcperr.KindPodFailed:
		return http.StatusBadGateway
	case nmcperr.KindActivationTimeout:
		return http.StatusGatewayTimeout
	case nmcperr.KindActivationFailed:
		return http.StatusBadGateway
	case nmcperr.KindUpstreamIOError:
		return http.StatusBadGateway
	case nmcperr.KindFatal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

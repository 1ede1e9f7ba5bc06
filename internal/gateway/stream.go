package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	nmcpv1 "github.com/nwrx/nmcp/internal/apis/nmcp/v1alpha1"
	"github.com/nwrx/nmcp/internal/accountant"
	"github.com/nwrx/nmcp/internal/activation"
	"github.com/nwrx/nmcp/internal/metrics"
	"github.com/nwrx/nmcp/internal/nmcperr"
	"github.com/nwrx/nmcp/internal/transport"
)

// upstreamSSEPath and upstreamMessagePath are the fixed paths an `sse`
// transport server exposes on its own container port; the gateway is a
// transparent proxy in front of them and never renegotiates this contract.
const (
	upstreamSSEPath     = "/sse"
	upstreamMessagePath = "/message"
)

// StreamHandlers implements the SSE-open hard path and the message POST
// path of 4.F: the only two routes that touch activation, the accountant,
// and the per-transport upstream bridge.
type StreamHandlers struct {
	kube       KubeClient
	namespace  string
	waiter     *activation.Waiter
	accountant *accountant.Accountant
	sessions   *sessionRegistry
	httpClient *http.Client

	restConfig *rest.Config
	clientSet  kubernetes.Interface

	activationTimeout time.Duration
}

// NewStreamHandlers wires the SSE-open/message handlers. restConfig and
// clientSet may be nil when stdio transport is not in use by any server in
// the watched namespace; OpenSSE answers 502 only if a stdio session is
// actually attempted without them.
func NewStreamHandlers(k KubeClient, namespace string, waiter *activation.Waiter, acct *accountant.Accountant, restConfig *rest.Config, clientSet kubernetes.Interface, activationTimeout time.Duration) *StreamHandlers {
	return &StreamHandlers{
		kube:              k,
		namespace:         namespace,
		waiter:            waiter,
		accountant:        acct,
		sessions:          newSessionRegistry(),
		httpClient:        &http.Client{},
		restConfig:        restConfig,
		clientSet:         clientSet,
		activationTimeout: activationTimeout,
	}
}

// OpenSSE implements GET /api/v1/servers/{name}/sse.
func (h *StreamHandlers) OpenSSE(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ctx := r.Context()

	if _, err := h.kube.GetServer(ctx, h.namespace, name); err != nil {
		writeError(w, err)
		return
	}

	activationStart := time.Now()
	endpoint, err := h.waiter.Activate(ctx, h.namespace, name, h.activationTimeout)
	if err != nil {
		writeError(w, err)
		return
	}
	metrics.ActivationLatencySeconds.Observe(time.Since(activationStart).Seconds())

	sessionID := uuid.New().String()

	var upstreamEvents <-chan *transport.Event
	var upstreamErrs <-chan error
	var bridge *transport.StdioBridge
	var messageURL string

	switch endpoint.Transport {
	case nmcpv1.MCPServerTransportSSE:
		url := fmt.Sprintf("http://%s%s", endpoint.DNSName, upstreamSSEPath)
		events, errs, err := transport.Dial(ctx, h.httpClient, url, nil)
		if err != nil {
			writeErrorStatus(w, http.StatusBadGateway, nmcperr.KindUpstreamIOError, "failed to dial upstream SSE")
			return
		}
		upstreamEvents, upstreamErrs = events, errs
		messageURL = fmt.Sprintf("http://%s%s", endpoint.DNSName, upstreamMessagePath)
	case nmcpv1.MCPServerTransportStdio:
		if h.restConfig == nil || h.clientSet == nil {
			writeErrorStatus(w, http.StatusBadGateway, nmcperr.KindUpstreamIOError, "stdio transport not configured on this gateway")
			return
		}
		bridge = transport.NewStdioBridge(h.restConfig, h.clientSet, h.namespace, endpoint.Pod.Name, "")
		if err := bridge.Start(ctx); err != nil {
			writeErrorStatus(w, http.StatusBadGateway, nmcperr.KindUpstreamIOError, "failed to open exec stream")
			return
		}
	default:
		writeErrorStatus(w, http.StatusBadGateway, nmcperr.KindUpstreamIOError, "unsupported transport type")
		return
	}

	writer, err := transport.NewWriter(w)
	if err != nil {
		writeErrorStatus(w, http.StatusInternalServerError, nmcperr.KindFatal, "streaming not supported")
		return
	}

	s := &session{
		id:            sessionID,
		namespace:     h.namespace,
		name:          name,
		transportType: endpoint.Transport,
		httpClient:    h.httpClient,
		messageURL:    messageURL,
		bridge:        bridge,
	}
	h.sessions.add(s)

	h.accountant.Open(h.namespace, name)
	metrics.SSESessionsOpened.Inc()
	metrics.SSESessionsOpen.Inc()

	var closeOnce bool
	defer func() {
		if !closeOnce {
			h.accountant.Close(h.namespace, name)
		}
		metrics.SSESessionsOpen.Dec()
		h.sessions.remove(sessionID)
		if bridge != nil {
			bridge.Close()
		}
	}()

	if err := writer.WriteEndpoint(fmt.Sprintf("/api/v1/servers/%s/message?session=%s", name, sessionID)); err != nil {
		return
	}

	if bridge != nil {
		h.pumpStdio(ctx, writer, bridge)
	} else {
		if err := transport.Pump(ctx, writer, upstreamEvents, upstreamErrs); err != nil {
			log.Debug().Err(err).Str("server", name).Msg("sse pump ended")
		}
	}

	closeOnce = true
	h.accountant.Close(h.namespace, name)
	writer.Close()
}

// pumpStdio relays exec-attach stdout lines to the client as "message"
// events, symmetric in shape to transport.Pump but sourced from a
// StdioBridge instead of an upstream SSE response.
func (h *StreamHandlers) pumpStdio(ctx context.Context, w *transport.Writer, bridge *transport.StdioBridge) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-bridge.Errs():
			if ok && err != nil {
				return
			}
		case line, ok := <-bridge.Lines():
			if !ok {
				return
			}
			if err := w.WriteMessage(line); err != nil {
				return
			}
		}
	}
}

// PostMessage implements POST /api/v1/servers/{name}/message.
func (h *StreamHandlers) PostMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		writeErrorStatus(w, http.StatusConflict, nmcperr.KindValidation, "session query parameter is required")
		return
	}

	s, ok := h.sessions.get(sessionID)
	if !ok {
		writeErrorStatus(w, http.StatusConflict, nmcperr.KindUpstreamIOError, "no such session")
		return
	}

	body, err := readBody(r)
	if err != nil {
		writeErrorStatus(w, http.StatusBadRequest, nmcperr.KindValidation, "failed to read request body")
		return
	}

	if s.bridge != nil {
		if err := s.bridge.WriteMessage(body); err != nil {
			writeErrorStatus(w, http.StatusBadGateway, nmcperr.KindUpstreamIOError, "failed to write to server stdin")
			return
		}
	} else {
		req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, s.messageURL, newBodyReader(body))
		if err != nil {
			writeErrorStatus(w, http.StatusBadGateway, nmcperr.KindUpstreamIOError, "failed to build upstream request")
			return
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := s.httpClient.Do(req)
		if err != nil {
			writeErrorStatus(w, http.StatusBadGateway, nmcperr.KindUpstreamIOError, "failed to reach upstream")
			return
		}
		resp.Body.Close()
	}

	h.accountant.RecordRequest(s.namespace, s.name)
	w.WriteHeader(http.StatusAccepted)
}

func readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(r.Body)
}

func newBodyReader(body []byte) io.Reader {
	return bytes.NewReader(body)
}

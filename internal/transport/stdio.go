package transport

import (
	"bufio"
	"context"
	"io"
	"sync"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/remotecommand"
)

// StdioBridge execs into a running Pod's container and exposes its
// stdin/stdout as a line-delimited JSON-RPC channel, resolving §9's open
// question on the stdio wire format ("POST body written to stdin via
// attach") the way original_source's MCPServerTransportStdio does: each
// outbound message is newline-terminated on stdin; each newline-terminated
// line of stdout is forwarded as one frame.
type StdioBridge struct {
	Config        *rest.Config
	ClientSet     kubernetes.Interface
	Namespace     string
	PodName       string
	ContainerName string

	mu     sync.Mutex
	stdin  io.WriteCloser
	lines  chan []byte
	errs   chan error
	cancel context.CancelFunc
}

// NewStdioBridge prepares a bridge; call Start to actually open the exec
// stream.
func NewStdioBridge(cfg *rest.Config, cs kubernetes.Interface, namespace, podName, containerName string) *StdioBridge {
	if containerName == "" {
		containerName = "mcp-server"
	}
	return &StdioBridge{Config: cfg, ClientSet: cs, Namespace: namespace, PodName: podName, ContainerName: containerName}
}

// Start opens the exec stream and begins pumping stdout lines into Lines().
// The exec stream is cancelled when ctx is cancelled by the caller (gateway
// client disconnect) or when Close is called.
func (b *StdioBridge) Start(ctx context.Context) error {
	req := b.ClientSet.CoreV1().RESTClient().Post().
		Resource("pods").
		Name(b.PodName).
		Namespace(b.Namespace).
		SubResource("exec")

	req.VersionedParams(&corev1.PodExecOptions{
		Container: b.ContainerName,
		Stdin:     true,
		Stdout:    true,
		Stderr:    false,
		TTY:       false,
	}, scheme.ParameterCodec)

	executor, err := remotecommand.NewSPDYExecutor(b.Config, "POST", req.URL())
	if err != nil {
		return err
	}

	stdinReader, stdinWriter := io.Pipe()
	stdoutReader, stdoutWriter := io.Pipe()

	streamCtx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.stdin = stdinWriter
	b.lines = make(chan []byte, 64)
	b.errs = make(chan error, 1)
	b.cancel = cancel
	b.mu.Unlock()

	go func() {
		err := executor.StreamWithContext(streamCtx, remotecommand.StreamOptions{
			Stdin:  stdinReader,
			Stdout: stdoutWriter,
			Tty:    false,
		})
		stdoutWriter.CloseWithError(err)
		if err != nil && err != io.EOF {
			select {
			case b.errs <- err:
			default:
			}
		}
	}()

	go b.scanLines(stdoutReader)

	return nil
}

func (b *StdioBridge) scanLines(r io.Reader) {
	defer close(b.lines)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		cp := make([]byte, len(line))
		copy(cp, line)
		select {
		case b.lines <- cp:
		default:
		}
	}
}

// WriteMessage writes one newline-terminated JSON-RPC message to the
// process's stdin.
func (b *StdioBridge) WriteMessage(raw []byte) error {
	b.mu.Lock()
	stdin := b.stdin
	b.mu.Unlock()
	if stdin == nil {
		return io.ErrClosedPipe
	}
	if _, err := stdin.Write(append(raw, '\n')); err != nil {
		return err
	}
	return nil
}

// Lines returns the channel of stdout lines; closed when the exec stream
// ends.
func (b *StdioBridge) Lines() <-chan []byte { return b.lines }

// Errs returns the channel of terminal stream errors.
func (b *StdioBridge) Errs() <-chan error { return b.errs }

// Close cancels the exec stream and releases the stdin pipe.
func (b *StdioBridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
	}
	if b.stdin != nil {
		return b.stdin.Close()
	}
	return nil
}

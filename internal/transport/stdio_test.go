package transport

import (
	"bufio"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStdioBridgeDefaultsContainerName(t *testing.T) {
	b := NewStdioBridge(nil, nil, "default", "fetch", "")
	assert.Equal(t, "mcp-server", b.ContainerName)
}

func TestNewStdioBridgeKeepsExplicitContainerName(t *testing.T) {
	b := NewStdioBridge(nil, nil, "default", "fetch", "sidecar")
	assert.Equal(t, "sidecar", b.ContainerName)
}

func TestScanLinesForwardsNonEmptyLines(t *testing.T) {
	b := &StdioBridge{}
	b.lines = make(chan []byte, 8)
	r, w := io.Pipe()

	go func() {
		_, _ = w.Write([]byte("line one\n\nline two\n"))
		_ = w.Close()
	}()

	done := make(chan struct{})
	go func() {
		b.scanLines(r)
		close(done)
	}()

	select {
	case line := <-b.lines:
		assert.Equal(t, "line one", string(line))
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for first line")
	}
	select {
	case line := <-b.lines:
		assert.Equal(t, "line two", string(line))
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for second line")
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scanLines did not exit after pipe closed")
	}
}

func TestWriteMessageFailsWithoutStdin(t *testing.T) {
	b := &StdioBridge{}
	err := b.WriteMessage([]byte(`{}`))
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestWriteMessageAppendsNewline(t *testing.T) {
	r, w := io.Pipe()
	b := &StdioBridge{stdin: w}

	writeErrs := make(chan error, 1)
	go func() {
		writeErrs <- b.WriteMessage([]byte(`{"a":1}`))
		_ = w.Close()
	}()

	reader := bufio.NewReader(r)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":1}\n", line)
	require.NoError(t, <-writeErrs)
}

func TestCloseWithoutStartIsSafe(t *testing.T) {
	b := &StdioBridge{}
	assert.NoError(t, b.Close())
}

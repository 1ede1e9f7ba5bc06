package accountant

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	nmcpv1 "github.com/nwrx/nmcp/internal/apis/nmcp/v1alpha1"
	"github.com/nwrx/nmcp/internal/kube"
)

func newTestAccountant(t *testing.T, objs ...client.Object) (*Accountant, *kube.Client) {
	t.Helper()
	s := runtime.NewScheme()
	require.NoError(t, clientgoscheme.AddToScheme(s))
	require.NoError(t, nmcpv1.AddToScheme(s))

	builder := fake.NewClientBuilder().WithScheme(s).WithStatusSubresource(&nmcpv1.MCPServer{})
	if len(objs) > 0 {
		builder = builder.WithObjects(objs...)
	}
	k := kube.New(builder.Build())
	return New(k), k
}

func TestOpenAndCloseTrackOpenConnections(t *testing.T) {
	a, _ := newTestAccountant(t)
	a.Open("default", "fetch")
	a.Open("default", "fetch")
	assert.Equal(t, int32(2), a.OpenConnections("default", "fetch"))

	a.Close("default", "fetch")
	assert.Equal(t, int32(1), a.OpenConnections("default", "fetch"))
}

func TestCloseNeverGoesNegative(t *testing.T) {
	a, _ := newTestAccountant(t)
	a.Close("default", "fetch")
	assert.Equal(t, int32(0), a.OpenConnections("default", "fetch"))
}

func TestFlushOnePersistsCountersToStatus(t *testing.T) {
	server := &nmcpv1.MCPServer{ObjectMeta: metav1.ObjectMeta{Name: "fetch", Namespace: "default"}}
	a, k := newTestAccountant(t, server)

	a.Open("default", "fetch")
	a.RecordRequest("default", "fetch")
	a.RecordRequest("default", "fetch")

	a.flushOne(context.Background(), key{namespace: "default", name: "fetch"})

	got, err := k.GetServer(context.Background(), "default", "fetch")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), got.Status.CurrentConnections)
	assert.Equal(t, uint64(2), got.Status.TotalRequests)
	require.NotNil(t, got.Status.LastRequestAt)
}

func TestFlushOneSkipsWhenNotDirty(t *testing.T) {
	a, _ := newTestAccountant(t)
	// never touched, so entry() creates a fresh, clean counter.
	a.entry("default", "fetch")
	a.flushOne(context.Background(), key{namespace: "default", name: "fetch"})
	// absence of a server object would make a GetServer call fail; since
	// flushOne returns early on !dirty, no such call happens and no panic
	// or error propagates.
}

func TestRunFlushesOnStopAndExitsCleanly(t *testing.T) {
	server := &nmcpv1.MCPServer{ObjectMeta: metav1.ObjectMeta{Name: "fetch", Namespace: "default"}}
	a, k := newTestAccountant(t, server)
	a.flushInterval = time.Hour

	a.Open("default", "fetch")

	done := make(chan struct{})
	go func() {
		a.Run(context.Background())
		close(done)
	}()

	a.Stop()
	<-done

	got, err := k.GetServer(context.Background(), "default", "fetch")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), got.Status.CurrentConnections)
}

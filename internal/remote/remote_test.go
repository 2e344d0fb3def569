package remote

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"go.klb.dev/handoff/internal/content"
	"go.klb.dev/handoff/internal/exchange"
	"go.klb.dev/handoff/internal/grpcservice"
	"go.klb.dev/handoff/internal/hub"
	"go.klb.dev/handoff/internal/world"
)

// serve starts a server over h and returns a connection to it.
func serve(t *testing.T, h *hub.Hub) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	grpcservice.Register(srv, grpcservice.New(h, ""))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestSource(t *testing.T) {
	server := hub.New()
	pub := hub.NewStaticSource("desktop")
	require.NoError(t, pub.Publish(server, content.General, []content.Entry{content.NewCText("Copied Text")}))

	src := NewSource("bufnet", serve(t, server))
	assert.Equal(t, "server:bufnet", src.ID())

	ctx := context.Background()
	types, err := src.Offer(ctx, content.General)
	require.NoError(t, err)
	assert.Equal(t, []string{content.TextPlain}, types)

	data, err := src.Fetch(ctx, content.General, content.TextPlain)
	require.NoError(t, err)
	assert.Equal(t, "Copied Text\x00", string(data))

	_, err = src.Offer(ctx, content.DragDrop)
	assert.ErrorIs(t, err, hub.ErrNoOwner)
}

func TestPasteFromServer(t *testing.T) {
	server := hub.New()
	pub := hub.NewStaticSource("desktop")
	require.NoError(t, pub.Publish(server, content.General, []content.Entry{
		{Type: "text/html", Data: []byte("<i>hi</i>")},
		content.NewText("hi"),
	}))

	local := hub.New()
	local.Claim(content.General, NewSource("bufnet", serve(t, server)))
	w := world.New(local, world.DefaultConfig())
	t.Cleanup(w.Close)

	var got *content.Entry
	v := world.NewView(w, struct{}{}, func(v *world.View[struct{}], ev world.Event) {
		switch e := ev.(type) {
		case world.OfferEvent:
			require.NoError(t, v.AcceptOffer(e.Exchange, 1, exchange.ActionCopy, v.Frame()))
		case world.DataEvent:
			entry := e.Entry()
			got = &entry
		case world.FailedEvent:
			t.Fatalf("paste failed: %v", e.Err)
		}
	})
	_, err := v.RequestPaste(content.General)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, w.RunUntil(ctx, world.BlockUntilEvent, func() bool { return got != nil }))
	assert.Equal(t, content.NewText("hi"), *got)
}

func TestCallerCreds(t *testing.T) {
	md, err := (&callerCreds{token: "t", source: "laptop"}).GetRequestMetadata(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"authorization": "Bearer t", grpcservice.MetadataSource: "laptop"}, md)

	opts, err := dialOpts(DialConfig{Addr: "x", TLS: true})
	require.NoError(t, err)
	assert.Len(t, opts, 2)
}

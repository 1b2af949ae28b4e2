package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	grpc "google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

func startNotificationServer(t *testing.T, received chan<- *structpb.Struct) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := grpc.NewServer()
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: "publisher.NotificationService",
		HandlerType: (*any)(nil),
		Methods: []grpc.MethodDesc{{
			MethodName: "PostPublished",
			Handler: func(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
				in := new(structpb.Struct)
				if err := dec(in); err != nil {
					return nil, err
				}
				received <- in
				return &emptypb.Empty{}, nil
			},
		}},
	}, struct{}{})

	go server.Serve(lis)
	t.Cleanup(server.Stop)
	return lis.Addr().String()
}

func TestPostPublished(t *testing.T) {
	received := make(chan *structpb.Struct, 1)
	addr := startNotificationServer(t, received)

	client, err := NewClient(addr, 2*time.Second)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.PostPublished(context.Background(), "p1", "u1", "Launch", []string{"facebook", "twitter"}))

	select {
	case msg := <-received:
		fields := msg.AsMap()
		assert.Equal(t, "p1", fields["post_id"])
		assert.Equal(t, "Launch", fields["title"])
		assert.Equal(t, []any{"facebook", "twitter"}, fields["platforms"])
	case <-time.After(2 * time.Second):
		t.Fatal("notification not received")
	}
}

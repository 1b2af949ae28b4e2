package notify

import (
	"context"

	"social-publisher/grpc"
)

// GRPCSink forwards notifications to the notification service.
type GRPCSink struct {
	client *grpc.Client
}

func NewGRPCSink(client *grpc.Client) *GRPCSink {
	return &GRPCSink{client: client}
}

func (g *GRPCSink) Notify(ctx context.Context, n Notification) error {
	names := make([]string, len(n.Platforms))
	for i, p := range n.Platforms {
		names[i] = string(p)
	}
	return g.client.PostPublished(ctx, n.PostID, n.UserID, n.Title, names)
}

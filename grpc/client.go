package grpc

import (
	"context"
	"fmt"
	"time"

	"social-publisher/utils"

	grpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// PostPublishedMethod is the unary RPC that receives publish notifications.
// The request is a google.protobuf.Struct, the response google.protobuf.Empty.
const PostPublishedMethod = "/publisher.NotificationService/PostPublished"

// Client wraps the connection to the notification service.
type Client struct {
	conn          *grpc.ClientConn
	serverAddress string
	timeout       time.Duration
}

// NewClient creates a lazily connecting client.
func NewClient(serverAddress string, timeout time.Duration) (*Client, error) {
	conn, err := grpc.NewClient(serverAddress, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		conn:          conn,
		serverAddress: serverAddress,
		timeout:       timeout,
	}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// GetServerAddress returns the target address.
func (c *Client) GetServerAddress() string {
	return c.serverAddress
}

// PostPublished reports a published post and the platforms that accepted it.
func (c *Client) PostPublished(ctx context.Context, postID, userID, title string, platforms []string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	names := make([]any, len(platforms))
	for i, p := range platforms {
		names[i] = p
	}
	req, err := structpb.NewStruct(map[string]any{
		"post_id":   postID,
		"user_id":   userID,
		"title":     title,
		"platforms": names,
	})
	if err != nil {
		return fmt.Errorf("failed to build notification: %w", err)
	}

	if err := c.conn.Invoke(ctx, PostPublishedMethod, req, &emptypb.Empty{}); err != nil {
		utils.Component("grpc").WithError(err).WithField("server", c.serverAddress).Warn("notification call failed")
		return err
	}
	return nil
}

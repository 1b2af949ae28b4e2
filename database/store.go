package database

import (
	"context"
	"time"

	"social-publisher/models"
)

// Store is the document store behind posts, users and admin role requests.
//
// UpdatePost is the only way a post changes after creation. It writes the whole
// record only if the stored status equals expected and the stored version equals
// post.Version; on success post.Version is incremented. A mismatch yields a
// *models.StaleStateError, a missing record models.ErrNotFound.
type Store interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, id string) (*models.Post, error)
	ListPosts(ctx context.Context, opts ...QueryOption) ([]*models.Post, error)
	UpdatePost(ctx context.Context, post *models.Post, expected models.PostStatus) error

	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	// UpdateUserRole changes a user's role if it is still from.
	UpdateUserRole(ctx context.Context, id string, from, to models.Role) error
	// DeleteUser removes a user if its role is still expected.
	DeleteUser(ctx context.Context, id string, expected models.Role) error

	// CreateAdminRequest fails with models.ErrDuplicateRequest when a pending
	// request for the same target and role exists.
	CreateAdminRequest(ctx context.Context, req *models.AdminRoleRequest) error
	GetAdminRequest(ctx context.Context, id string) (*models.AdminRoleRequest, error)
	FindPendingAdminRequest(ctx context.Context, targetID string, role models.Role) (*models.AdminRoleRequest, error)
	ListAdminRequests(ctx context.Context, status models.RequestStatus) ([]*models.AdminRoleRequest, error)
	// ProcessAdminRequest stores req's terminal status if the stored request is still pending.
	ProcessAdminRequest(ctx context.Context, req *models.AdminRoleRequest) error

	// Subscribe streams post change events for userID ("" for every user)
	// until ctx is cancelled.
	Subscribe(ctx context.Context, userID string) <-chan models.PostEvent

	Close() error
}

// PostQuery is the filter built from QueryOptions.
type PostQuery struct {
	UserID        string
	Statuses      []models.PostStatus
	DueBefore     *time.Time
	ClaimedBefore *time.Time
	Limit         int
}

// QueryOption narrows a ListPosts query.
type QueryOption func(*PostQuery)

// WithOwner restricts the query to one user's posts.
func WithOwner(userID string) QueryOption {
	return func(q *PostQuery) {
		q.UserID = userID
	}
}

// WithStatus restricts the query to the given statuses.
func WithStatus(statuses ...models.PostStatus) QueryOption {
	return func(q *PostQuery) {
		q.Statuses = append(q.Statuses, statuses...)
	}
}

// DueBefore selects posts whose scheduled date is at or before t, oldest first.
func DueBefore(t time.Time) QueryOption {
	return func(q *PostQuery) {
		q.DueBefore = &t
	}
}

// ClaimedBefore selects posts claimed for publishing at or before t.
func ClaimedBefore(t time.Time) QueryOption {
	return func(q *PostQuery) {
		q.ClaimedBefore = &t
	}
}

// WithLimit caps the number of returned posts.
func WithLimit(n int) QueryOption {
	return func(q *PostQuery) {
		q.Limit = n
	}
}

func buildQuery(opts []QueryOption) PostQuery {
	var q PostQuery
	for _, opt := range opts {
		opt(&q)
	}
	return q
}

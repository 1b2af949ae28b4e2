package database

import (
	"context"
	"errors"
	"fmt"

	"social-publisher/models"
	"social-publisher/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	collectionPosts         = "posts"
	collectionUsers         = "users"
	collectionAdminRequests = "adminRequests"
)

// MongoStore implements Store on MongoDB collections.
type MongoStore struct {
	client   *mongo.Client
	db       *mongo.Database
	posts    *mongo.Collection
	users    *mongo.Collection
	requests *mongo.Collection
	events   *Broker
}

// NewMongoStore connects to uri and prepares the collections of database name.
func NewMongoStore(ctx context.Context, uri, name string) (*MongoStore, error) {
	if name == "" {
		name = "social_publisher"
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	db := client.Database(name)
	s := &MongoStore{
		client:   client,
		db:       db,
		posts:    db.Collection(collectionPosts),
		users:    db.Collection(collectionUsers),
		requests: db.Collection(collectionAdminRequests),
		events:   NewBroker(),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	utils.Info("database", "NewMongoStore", "connected to mongo database "+name)
	return s, nil
}

// Database exposes the underlying database, e.g. for GridFS media storage.
func (s *MongoStore) Database() *mongo.Database {
	return s.db
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.posts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "scheduled_date", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create post indexes: %w", err)
	}
	_, err = s.requests.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "target_user_id", Value: 1}, {Key: "requested_role", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"status": string(models.RequestPending)}),
	})
	if err != nil {
		return fmt.Errorf("failed to create admin request index: %w", err)
	}
	return nil
}

func (s *MongoStore) CreatePost(ctx context.Context, post *models.Post) error {
	if _, err := s.posts.InsertOne(ctx, post); err != nil {
		return fmt.Errorf("failed to insert post %s: %w", post.ID, err)
	}
	s.events.Publish(eventFor(post))
	return nil
}

func (s *MongoStore) GetPost(ctx context.Context, id string) (*models.Post, error) {
	var p models.Post
	err := s.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("post %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load post %s: %w", id, err)
	}
	return &p, nil
}

func (s *MongoStore) ListPosts(ctx context.Context, opts ...QueryOption) ([]*models.Post, error) {
	q := buildQuery(opts)

	filter := bson.M{}
	if q.UserID != "" {
		filter["user_id"] = q.UserID
	}
	if len(q.Statuses) > 0 {
		statuses := make([]string, len(q.Statuses))
		for i, st := range q.Statuses {
			statuses[i] = string(st)
		}
		filter["status"] = bson.M{"$in": statuses}
	}
	if q.DueBefore != nil {
		filter["scheduled_date"] = bson.M{"$lte": *q.DueBefore}
	}
	if q.ClaimedBefore != nil {
		filter["claimed_at"] = bson.M{"$lte": *q.ClaimedBefore}
	}

	findOpts := options.Find()
	if q.DueBefore != nil {
		findOpts.SetSort(bson.D{{Key: "scheduled_date", Value: 1}, {Key: "_id", Value: 1}})
	} else {
		findOpts.SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	}
	if q.Limit > 0 {
		findOpts.SetLimit(int64(q.Limit))
	}

	cur, err := s.posts.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	var posts []*models.Post
	if err := cur.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("failed to decode posts: %w", err)
	}
	return posts, nil
}

func (s *MongoStore) UpdatePost(ctx context.Context, post *models.Post, expected models.PostStatus) error {
	next := post.Clone()
	next.Version = post.Version + 1

	filter := bson.M{"_id": post.ID, "status": string(expected), "version": post.Version}
	res, err := s.posts.ReplaceOne(ctx, filter, next)
	if err != nil {
		return fmt.Errorf("failed to update post %s: %w", post.ID, err)
	}
	if res.MatchedCount == 0 {
		current, err := s.GetPost(ctx, post.ID)
		if err != nil {
			return err
		}
		return &models.StaleStateError{ID: post.ID, Expected: string(expected), Actual: string(current.Status)}
	}

	post.Version = next.Version
	s.events.Publish(eventFor(post))
	return nil
}

func (s *MongoStore) CreateUser(ctx context.Context, user *models.User) error {
	if _, err := s.users.InsertOne(ctx, user); err != nil {
		return fmt.Errorf("failed to insert user %s: %w", user.ID, err)
	}
	return nil
}

func (s *MongoStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", id, err)
	}
	return &u, nil
}

func (s *MongoStore) UpdateUserRole(ctx context.Context, id string, from, to models.Role) error {
	res, err := s.users.UpdateOne(ctx,
		bson.M{"_id": id, "role": string(from)},
		bson.M{"$set": bson.M{"role": string(to)}})
	if err != nil {
		return fmt.Errorf("failed to update role of user %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return s.staleUser(ctx, id, from)
	}
	return nil
}

func (s *MongoStore) DeleteUser(ctx context.Context, id string, expected models.Role) error {
	res, err := s.users.DeleteOne(ctx, bson.M{"_id": id, "role": string(expected)})
	if err != nil {
		return fmt.Errorf("failed to delete user %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return s.staleUser(ctx, id, expected)
	}
	return nil
}

func (s *MongoStore) staleUser(ctx context.Context, id string, expected models.Role) error {
	current, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	return &models.StaleStateError{ID: id, Expected: string(expected), Actual: string(current.Role)}
}

func (s *MongoStore) CreateAdminRequest(ctx context.Context, req *models.AdminRoleRequest) error {
	_, err := s.requests.InsertOne(ctx, req)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("request for %s as %s: %w", req.TargetUserID, req.RequestedRole, models.ErrDuplicateRequest)
	}
	if err != nil {
		return fmt.Errorf("failed to insert admin request: %w", err)
	}
	return nil
}

func (s *MongoStore) GetAdminRequest(ctx context.Context, id string) (*models.AdminRoleRequest, error) {
	var r models.AdminRoleRequest
	err := s.requests.FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("admin request %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load admin request %s: %w", id, err)
	}
	return &r, nil
}

func (s *MongoStore) FindPendingAdminRequest(ctx context.Context, targetID string, role models.Role) (*models.AdminRoleRequest, error) {
	var r models.AdminRoleRequest
	err := s.requests.FindOne(ctx, bson.M{
		"target_user_id": targetID,
		"requested_role": string(role),
		"status":         string(models.RequestPending),
	}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up pending request: %w", err)
	}
	return &r, nil
}

func (s *MongoStore) ListAdminRequests(ctx context.Context, status models.RequestStatus) ([]*models.AdminRoleRequest, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = string(status)
	}
	cur, err := s.requests.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query admin requests: %w", err)
	}
	var out []*models.AdminRoleRequest
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode admin requests: %w", err)
	}
	return out, nil
}

func (s *MongoStore) ProcessAdminRequest(ctx context.Context, req *models.AdminRoleRequest) error {
	res, err := s.requests.UpdateOne(ctx,
		bson.M{"_id": req.ID, "status": string(models.RequestPending)},
		bson.M{"$set": bson.M{
			"status":       string(req.Status),
			"processed_at": req.ProcessedAt,
			"processed_by": req.ProcessedBy,
		}})
	if err != nil {
		return fmt.Errorf("failed to update admin request %s: %w", req.ID, err)
	}
	if res.MatchedCount == 0 {
		current, err := s.GetAdminRequest(ctx, req.ID)
		if err != nil {
			return err
		}
		return &models.StaleStateError{ID: req.ID, Expected: string(models.RequestPending), Actual: string(current.Status)}
	}
	return nil
}

func (s *MongoStore) Subscribe(ctx context.Context, userID string) <-chan models.PostEvent {
	return s.events.Subscribe(ctx, userID)
}

func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

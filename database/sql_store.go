package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"social-publisher/models"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

const postColumns = `id, user_id, title, content, status, platforms, platform_post_ids, manual_platforms,
	scheduled_date, images, urls, hashtags, approved_by, approved_at, rejection_reason, last_results,
	claimed_at, created_at, updated_at, published_at, version`

const requestColumns = `id, target_user_id, target_email, target_display_name, requested_role, current_role,
	requester_id, requester_email, reason, status, created_at, processed_at, processed_by`

// SQLStore implements Store on SQLite or Postgres through database/sql.
type SQLStore struct {
	db     *sql.DB
	driver string
	events *Broker
}

// NewSQLStore wraps an initialised database (see InitDB).
func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver, events: NewBroker()}
}

// rebind rewrites ? placeholders into $n for Postgres.
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) CreatePost(ctx context.Context, post *models.Post) error {
	args, err := postArgs(post)
	if err != nil {
		return err
	}
	query := s.rebind(`INSERT INTO posts (` + postColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert post %s: %w", post.ID, err)
	}
	s.events.Publish(eventFor(post))
	return nil
}

func (s *SQLStore) GetPost(ctx context.Context, id string) (*models.Post, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+postColumns+` FROM posts WHERE id = ?`), id)
	post, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("post %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load post %s: %w", id, err)
	}
	return post, nil
}

func (s *SQLStore) ListPosts(ctx context.Context, opts ...QueryOption) ([]*models.Post, error) {
	q := buildQuery(opts)

	var where []string
	var args []any
	if q.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, q.UserID)
	}
	if len(q.Statuses) > 0 {
		marks := make([]string, len(q.Statuses))
		for i, st := range q.Statuses {
			marks[i] = "?"
			args = append(args, string(st))
		}
		where = append(where, "status IN ("+strings.Join(marks, ", ")+")")
	}
	if q.DueBefore != nil {
		where = append(where, "scheduled_date IS NOT NULL AND scheduled_date <= ?")
		args = append(args, q.DueBefore.UnixNano())
	}
	if q.ClaimedBefore != nil {
		where = append(where, "claimed_at IS NOT NULL AND claimed_at <= ?")
		args = append(args, q.ClaimedBefore.UnixNano())
	}

	query := `SELECT ` + postColumns + ` FROM posts`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if q.DueBefore != nil {
		query += " ORDER BY scheduled_date ASC, id ASC"
	} else {
		query += " ORDER BY created_at DESC, id ASC"
	}
	if q.Limit > 0 {
		query += " LIMIT " + strconv.Itoa(q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (s *SQLStore) UpdatePost(ctx context.Context, post *models.Post, expected models.PostStatus) error {
	next := post.Clone()
	next.Version = post.Version + 1
	args, err := postArgs(next)
	if err != nil {
		return err
	}
	// Drop id from the SET arguments; it goes into the WHERE clause.
	args = append(args[1:], post.ID, string(expected), post.Version)

	query := s.rebind(`UPDATE posts SET
		user_id = ?, title = ?, content = ?, status = ?, platforms = ?, platform_post_ids = ?,
		manual_platforms = ?, scheduled_date = ?, images = ?, urls = ?, hashtags = ?, approved_by = ?,
		approved_at = ?, rejection_reason = ?, last_results = ?, claimed_at = ?, created_at = ?,
		updated_at = ?, published_at = ?, version = ?
		WHERE id = ? AND status = ? AND version = ?`)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update post %s: %w", post.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update post %s: %w", post.ID, err)
	}
	if affected == 0 {
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

func (s *SQLStore) CreateUser(ctx context.Context, user *models.User) error {
	query := s.rebind(`INSERT INTO users (id, email, display_name, role, notify_on_publish, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query, user.ID, user.Email, user.DisplayName, string(user.Role),
		user.NotifyOnPublish, user.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert user %s: %w", user.ID, err)
	}
	return nil
}

func (s *SQLStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	var role string
	var created int64
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT id, email, display_name, role, notify_on_publish, created_at FROM users WHERE id = ?`), id,
	).Scan(&u.ID, &u.Email, &u.DisplayName, &role, &u.NotifyOnPublish, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", id, err)
	}
	u.Role = models.Role(role)
	u.CreatedAt = time.Unix(0, created).UTC()
	return &u, nil
}

func (s *SQLStore) UpdateUserRole(ctx context.Context, id string, from, to models.Role) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE users SET role = ? WHERE id = ? AND role = ?`),
		string(to), id, string(from))
	if err != nil {
		return fmt.Errorf("failed to update role of user %s: %w", id, err)
	}
	return s.checkUserAffected(ctx, res, id, string(from))
}

func (s *SQLStore) DeleteUser(ctx context.Context, id string, expected models.Role) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM users WHERE id = ? AND role = ?`), id, string(expected))
	if err != nil {
		return fmt.Errorf("failed to delete user %s: %w", id, err)
	}
	return s.checkUserAffected(ctx, res, id, string(expected))
}

func (s *SQLStore) checkUserAffected(ctx context.Context, res sql.Result, id, expected string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}
	current, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	return &models.StaleStateError{ID: id, Expected: expected, Actual: string(current.Role)}
}

func (s *SQLStore) CreateAdminRequest(ctx context.Context, req *models.AdminRoleRequest) error {
	query := s.rebind(`INSERT INTO admin_requests (` + requestColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query,
		req.ID, req.TargetUserID, req.TargetEmail, req.TargetDisplayName, string(req.RequestedRole),
		string(req.CurrentRole), req.RequesterID, req.RequesterEmail, req.Reason, string(req.Status),
		req.CreatedAt.UnixNano(), nullTime(req.ProcessedAt), req.ProcessedBy,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("request for %s as %s: %w", req.TargetUserID, req.RequestedRole, models.ErrDuplicateRequest)
	}
	if err != nil {
		return fmt.Errorf("failed to insert admin request: %w", err)
	}
	return nil
}

func (s *SQLStore) GetAdminRequest(ctx context.Context, id string) (*models.AdminRoleRequest, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+requestColumns+` FROM admin_requests WHERE id = ?`), id)
	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("admin request %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load admin request %s: %w", id, err)
	}
	return req, nil
}

func (s *SQLStore) FindPendingAdminRequest(ctx context.Context, targetID string, role models.Role) (*models.AdminRoleRequest, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+requestColumns+` FROM admin_requests
		WHERE target_user_id = ? AND requested_role = ? AND status = ?`),
		targetID, string(role), string(models.RequestPending))
	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up pending request: %w", err)
	}
	return req, nil
}

func (s *SQLStore) ListAdminRequests(ctx context.Context, status models.RequestStatus) ([]*models.AdminRoleRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM admin_requests`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query admin requests: %w", err)
	}
	defer rows.Close()

	var out []*models.AdminRoleRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan admin request: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (s *SQLStore) ProcessAdminRequest(ctx context.Context, req *models.AdminRoleRequest) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE admin_requests
		SET status = ?, processed_at = ?, processed_by = ?
		WHERE id = ? AND status = ?`),
		string(req.Status), nullTime(req.ProcessedAt), req.ProcessedBy, req.ID, string(models.RequestPending))
	if err != nil {
		return fmt.Errorf("failed to update admin request %s: %w", req.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		current, err := s.GetAdminRequest(ctx, req.ID)
		if err != nil {
			return err
		}
		return &models.StaleStateError{ID: req.ID, Expected: string(models.RequestPending), Actual: string(current.Status)}
	}
	return nil
}

func (s *SQLStore) Subscribe(ctx context.Context, userID string) <-chan models.PostEvent {
	return s.events.Subscribe(ctx, userID)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func postArgs(p *models.Post) ([]any, error) {
	platforms, err := json.Marshal(nonNil(p.Platforms))
	if err != nil {
		return nil, err
	}
	ids := p.PlatformPostIDs
	if ids == nil {
		ids = map[models.Platform]string{}
	}
	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}
	manual, err := json.Marshal(nonNil(p.ManualPlatforms))
	if err != nil {
		return nil, err
	}
	images, err := json.Marshal(nonNil(p.Images))
	if err != nil {
		return nil, err
	}
	urls, err := json.Marshal(nonNil(p.URLs))
	if err != nil {
		return nil, err
	}
	hashtags, err := json.Marshal(nonNil(p.Hashtags))
	if err != nil {
		return nil, err
	}
	results, err := json.Marshal(nonNil(p.LastResults))
	if err != nil {
		return nil, err
	}
	return []any{
		p.ID, p.UserID, p.Title, p.Content, string(p.Status), string(platforms), string(idsJSON),
		string(manual), nullTime(p.ScheduledDate), string(images), string(urls), string(hashtags),
		p.ApprovedBy, nullTime(p.ApprovedAt), p.RejectionReason, string(results), nullTime(p.ClaimedAt),
		p.CreatedAt.UnixNano(), p.UpdatedAt.UnixNano(), nullTime(p.PublishedAt), p.Version,
	}, nil
}

func scanPost(row rowScanner) (*models.Post, error) {
	var p models.Post
	var status, platforms, ids, manual, images, urls, hashtags, results string
	var scheduled, approved, claimed, published sql.NullInt64
	var created, updated int64
	err := row.Scan(&p.ID, &p.UserID, &p.Title, &p.Content, &status, &platforms, &ids, &manual,
		&scheduled, &images, &urls, &hashtags, &p.ApprovedBy, &approved, &p.RejectionReason, &results,
		&claimed, &created, &updated, &published, &p.Version)
	if err != nil {
		return nil, err
	}
	p.Status = models.PostStatus(status)
	for _, f := range []struct {
		raw string
		dst any
	}{
		{platforms, &p.Platforms},
		{ids, &p.PlatformPostIDs},
		{manual, &p.ManualPlatforms},
		{images, &p.Images},
		{urls, &p.URLs},
		{hashtags, &p.Hashtags},
		{results, &p.LastResults},
	} {
		if f.raw == "" {
			continue
		}
		if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
			return nil, fmt.Errorf("post %s: corrupt column: %w", p.ID, err)
		}
	}
	p.ScheduledDate = fromNull(scheduled)
	p.ApprovedAt = fromNull(approved)
	p.ClaimedAt = fromNull(claimed)
	p.PublishedAt = fromNull(published)
	p.CreatedAt = time.Unix(0, created).UTC()
	p.UpdatedAt = time.Unix(0, updated).UTC()
	return &p, nil
}

func scanRequest(row rowScanner) (*models.AdminRoleRequest, error) {
	var r models.AdminRoleRequest
	var requested, current, status string
	var created int64
	var processed sql.NullInt64
	err := row.Scan(&r.ID, &r.TargetUserID, &r.TargetEmail, &r.TargetDisplayName, &requested, &current,
		&r.RequesterID, &r.RequesterEmail, &r.Reason, &status, &created, &processed, &r.ProcessedBy)
	if err != nil {
		return nil, err
	}
	r.RequestedRole = models.Role(requested)
	r.CurrentRole = models.Role(current)
	r.Status = models.RequestStatus(status)
	r.CreatedAt = time.Unix(0, created).UTC()
	r.ProcessedAt = fromNull(processed)
	return &r, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

func nullTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func fromNull(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(0, v.Int64).UTC()
	return &t
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

package models

import "time"

// PostStatus is the lifecycle state of a post.
type PostStatus string

const (
	StatusDraft     PostStatus = "draft"
	StatusPending   PostStatus = "pending"
	StatusApproved  PostStatus = "approved"
	StatusRejected  PostStatus = "rejected"
	StatusScheduled PostStatus = "scheduled"
	// StatusPublishing marks a post claimed by a publisher; no other publisher may fan it out.
	StatusPublishing PostStatus = "publishing"
	StatusPublished  PostStatus = "published"
)

// Valid reports whether s is a known status.
func (s PostStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusApproved, StatusRejected,
		StatusScheduled, StatusPublishing, StatusPublished:
		return true
	}
	return false
}

// Post is a piece of content composed once and published to one or more platforms.
type Post struct {
	ID              string              `json:"id" bson:"_id"`
	UserID          string              `json:"user_id" bson:"user_id"`
	Title           string              `json:"title,omitempty" bson:"title"`
	Content         string              `json:"content" bson:"content"`
	Status          PostStatus          `json:"status" bson:"status"`
	Platforms       []Platform          `json:"platforms" bson:"platforms"`
	PlatformPostIDs map[Platform]string `json:"platform_post_ids,omitempty" bson:"platform_post_ids"`
	// ManualPlatforms are platforms the owner posted to by hand after a manual fallback.
	ManualPlatforms []Platform      `json:"manual_platforms,omitempty" bson:"manual_platforms"`
	ScheduledDate   *time.Time      `json:"scheduled_date,omitempty" bson:"scheduled_date"`
	Images          []string        `json:"images,omitempty" bson:"images"`
	URLs            []string        `json:"urls,omitempty" bson:"urls"`
	Hashtags        []string        `json:"hashtags,omitempty" bson:"hashtags"`
	ApprovedBy      string          `json:"approved_by,omitempty" bson:"approved_by"`
	ApprovedAt      *time.Time      `json:"approved_at,omitempty" bson:"approved_at"`
	RejectionReason string          `json:"rejection_reason,omitempty" bson:"rejection_reason"`
	LastResults     []PublishResult `json:"last_results,omitempty" bson:"last_results"`
	ClaimedAt       *time.Time      `json:"claimed_at,omitempty" bson:"claimed_at"`
	CreatedAt       time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" bson:"updated_at"`
	PublishedAt     *time.Time      `json:"published_at,omitempty" bson:"published_at"`
	Version         int64           `json:"version" bson:"version"`
}

// Clone returns a deep copy of the post so callers can mutate it freely.
func (p *Post) Clone() *Post {
	c := *p
	c.Platforms = append([]Platform(nil), p.Platforms...)
	c.ManualPlatforms = append([]Platform(nil), p.ManualPlatforms...)
	c.Images = append([]string(nil), p.Images...)
	c.URLs = append([]string(nil), p.URLs...)
	c.Hashtags = append([]string(nil), p.Hashtags...)
	c.LastResults = append([]PublishResult(nil), p.LastResults...)
	if p.PlatformPostIDs != nil {
		c.PlatformPostIDs = make(map[Platform]string, len(p.PlatformPostIDs))
		for k, v := range p.PlatformPostIDs {
			c.PlatformPostIDs[k] = v
		}
	}
	c.ScheduledDate = cloneTime(p.ScheduledDate)
	c.ApprovedAt = cloneTime(p.ApprovedAt)
	c.ClaimedAt = cloneTime(p.ClaimedAt)
	c.PublishedAt = cloneTime(p.PublishedAt)
	return &c
}

// Link is the reference link handed to platforms, the first of URLs.
func (p *Post) Link() string {
	if len(p.URLs) == 0 {
		return ""
	}
	return p.URLs[0]
}

// DisplayTitle is the title used in notifications, falling back to the content.
func (p *Post) DisplayTitle() string {
	if p.Title != "" {
		return p.Title
	}
	runes := []rune(p.Content)
	if len(runes) > 50 {
		return string(runes[:50]) + "..."
	}
	return p.Content
}

// IsDue reports whether a scheduled post should be published at now.
func (p *Post) IsDue(now time.Time) bool {
	return p.Status == StatusScheduled && p.ScheduledDate != nil && !p.ScheduledDate.After(now)
}

// PostEvent is emitted by the store whenever a post is created or updated.
type PostEvent struct {
	PostID string
	UserID string
	Status PostStatus
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// Package notify delivers "post published" and "post submitted" notifications.
package notify

import (
	"context"
	"errors"
	"strings"

	"social-publisher/database"
	"social-publisher/models"
	"social-publisher/utils"

	"github.com/sirupsen/logrus"
)

// Notification says that a post went out on the listed platforms.
type Notification struct {
	PostID    string
	UserID    string
	Title     string
	Platforms []models.Platform
}

// PlatformNames returns the display names of the platforms, comma separated.
func (n Notification) PlatformNames() string {
	names := make([]string, len(n.Platforms))
	for i, p := range n.Platforms {
		names[i] = p.DisplayName()
	}
	return strings.Join(names, ", ")
}

// Sink delivers notifications.
type Sink interface {
	Notify(ctx context.Context, n Notification) error
}

// Multi delivers to every sink and joins their errors.
type Multi []Sink

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, s := range m {
		if err := s.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink writes notifications to the structured log.
type LogSink struct {
	log *logrus.Entry
}

func NewLogSink() *LogSink {
	return &LogSink{log: utils.Component("notify")}
}

func (l *LogSink) Notify(ctx context.Context, n Notification) error {
	l.log.WithFields(logrus.Fields{
		"post":      n.PostID,
		"user":      n.UserID,
		"platforms": n.PlatformNames(),
	}).Infof("post %q published", n.Title)
	return nil
}

// Preferences reads the per-user publish notification flag from the store.
type Preferences struct {
	store database.Store
}

func NewPreferences(store database.Store) *Preferences {
	return &Preferences{store: store}
}

// NotifyOnPublish reports whether userID wants publish notifications. Unknown
// users get none.
func (p *Preferences) NotifyOnPublish(ctx context.Context, userID string) (bool, error) {
	user, err := p.store.GetUser(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return user.NotifyOnPublish, nil
}

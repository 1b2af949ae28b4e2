// Package scheduler publishes scheduled posts once their time has come.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"social-publisher/clock"
	"social-publisher/database"
	"social-publisher/lifecycle"
	"social-publisher/models"
	"social-publisher/notify"
	"social-publisher/utils"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	defaultInterval = 60 * time.Second
	defaultGuard    = 30 * time.Second
)

// DuePublisher publishes one due post; *lifecycle.Machine implements it.
type DuePublisher interface {
	PublishDue(ctx context.Context, id string) (*lifecycle.Outcome, error)
}

// Preferences tells whether a user wants publish notifications.
type Preferences interface {
	NotifyOnPublish(ctx context.Context, userID string) (bool, error)
}

// TickReport summarises one tick.
type TickReport struct {
	// Skipped is set when the tick fell inside the guard interval.
	Skipped   bool
	Due       int
	Published []string
	// Reverted holds posts every platform rejected; they are back in draft.
	Reverted []string
	Failed   []*models.SchedulerTickError
}

// Scheduler finds due posts and drives each through the publisher.
type Scheduler struct {
	store     database.Store
	publisher DuePublisher
	sink      notify.Sink
	prefs     Preferences
	clock     clock.Clock
	cfg       models.SchedulerSettings
	log       *logrus.Entry

	mu        sync.Mutex
	lastCheck time.Time
}

// New builds a Scheduler. sink and prefs may be nil to disable notifications.
func New(store database.Store, publisher DuePublisher, sink notify.Sink, prefs Preferences, clk clock.Clock, cfg models.SchedulerSettings) *Scheduler {
	if clk == nil {
		clk = clock.Real{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.Guard <= 0 {
		cfg.Guard = defaultGuard
	}
	return &Scheduler{
		store:     store,
		publisher: publisher,
		sink:      sink,
		prefs:     prefs,
		clock:     clk,
		cfg:       cfg,
		log:       utils.Component("scheduler"),
	}
}

// Tick publishes every due scheduled post. Each post is handled on its own: a
// failure is recorded in the report and does not stop the others. Ticks closer
// than the guard interval to the previous one are skipped.
func (s *Scheduler) Tick(ctx context.Context) (TickReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var report TickReport
	now := s.clock.Now()
	if !s.lastCheck.IsZero() && now.Sub(s.lastCheck) < s.cfg.Guard {
		report.Skipped = true
		return report, nil
	}
	s.lastCheck = now

	opts := []database.QueryOption{database.WithStatus(models.StatusScheduled), database.DueBefore(now)}
	if s.cfg.Owner != "" {
		opts = append(opts, database.WithOwner(s.cfg.Owner))
	}
	due, err := s.store.ListPosts(ctx, opts...)
	if err != nil {
		return report, fmt.Errorf("failed to query due posts: %w", err)
	}
	report.Due = len(due)

	for _, post := range due {
		out, err := s.publisher.PublishDue(ctx, post.ID)
		switch {
		case err == nil:
		case models.IsStale(err) || errors.Is(err, lifecycle.ErrNotDue):
			// Claimed or changed by someone else since the query.
			s.log.WithField("post", post.ID).WithError(err).Debug("due post skipped")
			continue
		default:
			tickErr := &models.SchedulerTickError{PostID: post.ID, Err: err}
			report.Failed = append(report.Failed, tickErr)
			utils.Error("Scheduler", "PublishDue", tickErr.Error())
			continue
		}

		if out.Post.Status == models.StatusPublished {
			report.Published = append(report.Published, post.ID)
		} else {
			report.Reverted = append(report.Reverted, post.ID)
		}
		if failure := out.Failure(); failure != nil {
			utils.Warn("Scheduler", "PublishDue", fmt.Sprintf("post %s: %v", post.ID, failure))
		}
		s.notify(ctx, out)
	}
	return report, nil
}

// notify is best effort; errors are logged only.
func (s *Scheduler) notify(ctx context.Context, out *lifecycle.Outcome) {
	if s.sink == nil || out.Report == nil {
		return
	}
	succeeded := out.Report.Succeeded()
	if len(succeeded) == 0 {
		return
	}
	post := out.Post
	if s.prefs != nil {
		wants, err := s.prefs.NotifyOnPublish(ctx, post.UserID)
		if err != nil {
			s.log.WithError(err).WithField("user", post.UserID).Warn("failed to read notification preference")
			return
		}
		if !wants {
			return
		}
	}
	err := s.sink.Notify(ctx, notify.Notification{
		PostID:    post.ID,
		UserID:    post.UserID,
		Title:     post.DisplayTitle(),
		Platforms: succeeded,
	})
	if err != nil {
		s.log.WithError(err).WithField("post", post.ID).Warn("failed to send publish notification")
	}
}

// Handle controls a started scheduler.
type Handle struct {
	cron   *cron.Cron
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// Stop stops the timers and the change subscription and waits for running ticks.
func (h *Handle) Stop() {
	h.once.Do(func() {
		h.cancel()
		<-h.cron.Stop().Done()
		h.wg.Wait()
	})
}

// Start runs Tick every interval and, when enabled, whenever one of the
// watched posts becomes scheduled. Stale claims are released every claim
// timeout.
func (s *Scheduler) Start(ctx context.Context) (*Handle, error) {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{cron: cron.New(), cancel: cancel}

	_, err := h.cron.AddFunc(fmt.Sprintf("@every %s", s.cfg.Interval), func() {
		s.run(ctx, "timer")
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("could not set up publish job: %w", err)
	}

	if s.cfg.ClaimTimeout > 0 {
		_, err = h.cron.AddFunc(fmt.Sprintf("@every %s", s.cfg.ClaimTimeout), func() {
			if _, err := database.RecoverStaleClaims(ctx, s.store, s.clock.Now(), s.cfg.ClaimTimeout); err != nil {
				utils.Error("Scheduler", "RecoverStaleClaims", err.Error())
			}
		})
		if err != nil {
			cancel()
			return nil, fmt.Errorf("could not set up claim recovery job: %w", err)
		}
	}
	h.cron.Start()

	if s.cfg.WatchChanges {
		events := s.store.Subscribe(ctx, s.cfg.Owner)
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			for ev := range events {
				if ev.Status == models.StatusScheduled {
					s.run(ctx, "change")
				}
			}
		}()
	}

	if s.cfg.RunAtStartup {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			s.run(ctx, "startup")
		}()
	}

	s.log.WithFields(logrus.Fields{
		"interval": s.cfg.Interval,
		"guard":    s.cfg.Guard,
		"owner":    s.cfg.Owner,
	}).Info("scheduler started")
	return h, nil
}

func (s *Scheduler) run(ctx context.Context, trigger string) {
	if ctx.Err() != nil {
		return
	}
	report, err := s.Tick(ctx)
	if err != nil {
		utils.Error("Scheduler", "Tick", err.Error())
		return
	}
	if report.Skipped {
		return
	}
	s.log.WithFields(logrus.Fields{
		"trigger":   trigger,
		"due":       report.Due,
		"published": len(report.Published),
		"reverted":  len(report.Reverted),
		"failed":    len(report.Failed),
	}).Debug("tick finished")
}

// Package publisher fans a post out to the platform adapters and aggregates
// the per-platform outcome.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"social-publisher/clock"
	"social-publisher/media"
	"social-publisher/models"
	"social-publisher/platform"
	"social-publisher/utils"

	"github.com/sirupsen/logrus"
)

// Orchestrator publishes posts through the configured adapters.
type Orchestrator struct {
	adapters map[models.Platform]platform.Adapter
	storage  media.Storage
	clock    clock.Clock
	log      *logrus.Entry
}

// New builds an Orchestrator. storage may be nil when every media reference is
// expected to be durable already.
func New(adapters map[models.Platform]platform.Adapter, storage media.Storage, clk clock.Clock) *Orchestrator {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Orchestrator{
		adapters: adapters,
		storage:  storage,
		clock:    clk,
		log:      utils.Component("publisher"),
	}
}

// Targets resolves the platforms to publish to: the requested subset, or every
// platform selected on the post when none is requested.
func (o *Orchestrator) Targets(post *models.Post, requested []models.Platform) ([]models.Platform, error) {
	if len(requested) == 0 {
		return models.OrderPlatforms(post.Platforms), nil
	}
	for _, p := range requested {
		if !models.ContainsPlatform(post.Platforms, p) {
			return nil, models.Invalid("platforms", "%s is not selected on this post", p)
		}
	}
	return models.OrderPlatforms(requested), nil
}

// Validate checks what can be checked before any side effect: content, platform
// selection, required images and length limits.
func (o *Orchestrator) Validate(post *models.Post, platforms []models.Platform, pending []media.Ref) error {
	if strings.TrimSpace(post.Content) == "" {
		return models.Invalid("content", "content is required")
	}
	if len(platforms) == 0 {
		return models.Invalid("platforms", "at least one platform is required")
	}

	text := Compose(post)
	images := len(post.Images) + len(pending)
	for _, p := range platforms {
		if !p.Valid() {
			return models.Invalid("platforms", "unknown platform %q", p)
		}
		if _, ok := o.adapters[p]; !ok {
			return models.Invalid("platforms", "%s is not enabled", p.DisplayName())
		}
		caps := p.Capabilities()
		if caps.RequiresImage && images == 0 {
			return models.Invalid("images", "%s requires at least one image", p.DisplayName())
		}
		if n := len([]rune(text)); !caps.Truncate && caps.MaxContentLength > 0 && n > caps.MaxContentLength {
			return models.Invalid("content", "%s accepts at most %d characters, got %d", p.DisplayName(), caps.MaxContentLength, n)
		}
	}
	return nil
}

// Prepare uploads pending media onto post.Images and reports whether the post
// should be published now. A future scheduled date means it must not be.
func (o *Orchestrator) Prepare(ctx context.Context, post *models.Post, pending []media.Ref) (bool, error) {
	if len(pending) > 0 {
		urls, err := media.Resolve(ctx, o.storage, pending)
		if err != nil {
			return false, fmt.Errorf("failed to upload media: %w", err)
		}
		post.Images = append(post.Images, urls...)
	}
	if post.ScheduledDate != nil && post.ScheduledDate.After(o.clock.Now()) {
		return false, nil
	}
	return true, nil
}

// FanOut publishes post to each platform in fixed order. A failing or panicking
// adapter only affects its own result.
func (o *Orchestrator) FanOut(ctx context.Context, post *models.Post, platforms []models.Platform) *Report {
	req := platform.Request{
		Content: Compose(post),
		Images:  append([]string(nil), post.Images...),
		Link:    post.Link(),
	}

	report := &Report{PlatformPostIDs: map[models.Platform]string{}}
	for _, p := range models.OrderPlatforms(platforms) {
		result := o.publishOne(ctx, p, req)
		if result.Success {
			report.PlatformPostIDs[p] = result.PostID
		} else {
			o.log.WithFields(logrus.Fields{
				"post":     post.ID,
				"platform": p,
			}).WithError(result.Err).Warn("platform publish failed")
		}
		report.Results = append(report.Results, result)
	}

	report.Status = models.StatusDraft
	if len(report.PlatformPostIDs) > 0 {
		report.Status = models.StatusPublished
	}
	return report
}

func (o *Orchestrator) publishOne(ctx context.Context, p models.Platform, req platform.Request) (result models.PublishResult) {
	result.Platform = p
	defer func() {
		if r := recover(); r != nil {
			result.Success = false
			result.Err = fmt.Errorf("%s adapter panicked: %v", p, r)
			result.Error = result.Err.Error()
		}
	}()

	adapter, ok := o.adapters[p]
	if !ok {
		result.Err = fmt.Errorf("%s is not enabled", p.DisplayName())
		result.Error = result.Err.Error()
		return result
	}

	resp, err := adapter.Publish(ctx, req)
	if err != nil {
		result.Err = err
		result.Error = err.Error()
		var fallback *models.ManualFallbackError
		if errors.As(err, &fallback) {
			result.ManualFallback = true
			result.FallbackURL = fallback.URL
		}
		return result
	}
	result.Success = true
	result.PostID = resp.PostID
	return result
}

// PropagateEdit pushes the post's current text to every platform it was
// published on. Failures are reported per platform and never stop the rest.
func (o *Orchestrator) PropagateEdit(ctx context.Context, post *models.Post) []models.EditResult {
	text := Compose(post)
	published := make([]models.Platform, 0, len(post.PlatformPostIDs))
	for p := range post.PlatformPostIDs {
		published = append(published, p)
	}

	var results []models.EditResult
	for _, p := range models.OrderPlatforms(published) {
		result := models.EditResult{Platform: p}
		adapter, ok := o.adapters[p]
		if !ok {
			result.Err = fmt.Errorf("%s is not enabled", p.DisplayName())
		} else {
			result.Err = o.editOne(ctx, adapter, post.PlatformPostIDs[p], text)
		}
		if result.Err == nil {
			result.Success = true
		} else {
			result.Error = result.Err.Error()
			result.Permanent = errors.Is(result.Err, models.ErrEditUnsupported)
			o.log.WithFields(logrus.Fields{
				"post":     post.ID,
				"platform": p,
			}).WithError(result.Err).Warn("platform edit failed")
		}
		results = append(results, result)
	}
	return results
}

func (o *Orchestrator) editOne(ctx context.Context, adapter platform.Adapter, externalID, text string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s adapter panicked: %v", adapter.Platform(), r)
		}
	}()
	return adapter.Edit(ctx, externalID, text)
}

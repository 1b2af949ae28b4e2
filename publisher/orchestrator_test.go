package publisher

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"social-publisher/clock"
	"social-publisher/media"
	"social-publisher/models"
	"social-publisher/platform"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdapter struct {
	platform models.Platform
	id       string
	err      error
	panics   bool
	editErr  error
	calls    []platform.Request
	edits    []string
}

func (f *fakeAdapter) Platform() models.Platform { return f.platform }

func (f *fakeAdapter) Publish(ctx context.Context, req platform.Request) (platform.Response, error) {
	f.calls = append(f.calls, req)
	if f.panics {
		panic("boom")
	}
	if f.err != nil {
		return platform.Response{}, f.err
	}
	return platform.Response{PostID: f.id}, nil
}

func (f *fakeAdapter) Edit(ctx context.Context, externalID, content string) error {
	f.edits = append(f.edits, externalID+":"+content)
	return f.editErr
}

type memStorage struct{ n int }

func (m *memStorage) Put(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	m.n++
	return "https://cdn.example.com/" + name, nil
}

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func adapters(as ...*fakeAdapter) map[models.Platform]platform.Adapter {
	out := make(map[models.Platform]platform.Adapter, len(as))
	for _, a := range as {
		out[a.platform] = a
	}
	return out
}

func TestFanOutPartialSuccessIsPublished(t *testing.T) {
	fb := &fakeAdapter{platform: models.Facebook, id: "fb_1"}
	tw := &fakeAdapter{platform: models.Twitter, err: &models.PlatformAPIError{
		Platform: models.Twitter, StatusCode: 403, Message: "not enrolled", Kind: models.ErrTierRestricted,
	}}
	o := New(adapters(fb, tw), nil, clock.NewFake(now))

	post := &models.Post{ID: "p1", Content: "hello", Platforms: []models.Platform{models.Twitter, models.Facebook}}
	report := o.FanOut(context.Background(), post, post.Platforms)

	assert.Equal(t, models.StatusPublished, report.Status)
	assert.Equal(t, map[models.Platform]string{models.Facebook: "fb_1"}, report.PlatformPostIDs)
	require.Len(t, report.Results, 2)
	assert.Equal(t, models.Facebook, report.Results[0].Platform)

	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, models.Twitter, failed[0].Platform)
	assert.Equal(t, tw.err.Error(), failed[0].Error)

	var partial *models.PartialPublishError
	require.ErrorAs(t, report.Failure(), &partial)
	assert.Equal(t, []models.Platform{models.Facebook}, partial.Succeeded)
}

func TestFanOutTotalFailureIsDraft(t *testing.T) {
	fb := &fakeAdapter{platform: models.Facebook, panics: true}
	tw := &fakeAdapter{platform: models.Twitter, err: &models.ManualFallbackError{
		Platform: models.Twitter, URL: "https://twitter.com/intent/tweet?text=hi", Cause: errors.New("timeout"),
	}}
	o := New(adapters(fb, tw), nil, clock.NewFake(now))

	post := &models.Post{ID: "p1", Content: "hi", Platforms: []models.Platform{models.Facebook, models.Twitter}}
	report := o.FanOut(context.Background(), post, post.Platforms)

	assert.Equal(t, models.StatusDraft, report.Status)
	assert.Empty(t, report.PlatformPostIDs)
	require.Len(t, report.Results, 2)
	assert.Contains(t, report.Results[0].Error, "panicked")
	assert.True(t, report.Results[1].ManualFallback)
	assert.Equal(t, "https://twitter.com/intent/tweet?text=hi", report.Results[1].FallbackURL)

	var total *models.TotalPublishError
	assert.ErrorAs(t, report.Failure(), &total)
}

func TestFanOutComposesHashtagsAndLink(t *testing.T) {
	fb := &fakeAdapter{platform: models.Facebook, id: "fb_1"}
	o := New(adapters(fb), nil, clock.NewFake(now))

	post := &models.Post{
		Content:   "Launch day",
		Platforms: []models.Platform{models.Facebook},
		Hashtags:  []string{"go", "#Launch", " go "},
		URLs:      []string{"https://example.com", "https://other.example.com"},
		Images:    []string{"https://cdn.example.com/a.png"},
	}
	report := o.FanOut(context.Background(), post, post.Platforms)
	require.Nil(t, report.Failure())

	require.Len(t, fb.calls, 1)
	assert.Equal(t, "Launch day\n\n#go #Launch", fb.calls[0].Content)
	assert.Equal(t, "https://example.com", fb.calls[0].Link)
	assert.Equal(t, []string{"https://cdn.example.com/a.png"}, fb.calls[0].Images)
}

func TestValidateInstagramWithoutImages(t *testing.T) {
	ig := &fakeAdapter{platform: models.Instagram, id: "ig_1"}
	o := New(adapters(ig), nil, clock.NewFake(now))

	post := &models.Post{Content: "no picture", Platforms: []models.Platform{models.Instagram}}
	err := o.Validate(post, post.Platforms, nil)
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "images", verr.Field)
	assert.Empty(t, ig.calls)

	assert.NoError(t, o.Validate(post, post.Platforms, []media.Ref{{Data: []byte("img")}}))
}

func TestValidate(t *testing.T) {
	o := New(adapters(
		&fakeAdapter{platform: models.Facebook},
		&fakeAdapter{platform: models.Twitter},
	), nil, clock.NewFake(now))

	long := make([]rune, 3000)
	for i := range long {
		long[i] = 'x'
	}

	tests := []struct {
		name      string
		post      *models.Post
		platforms []models.Platform
		field     string
	}{
		{"empty content", &models.Post{Content: "  "}, []models.Platform{models.Facebook}, "content"},
		{"no platforms", &models.Post{Content: "x"}, nil, "platforms"},
		{"disabled platform", &models.Post{Content: "x"}, []models.Platform{models.Instagram}, "platforms"},
		{"unknown platform", &models.Post{Content: "x"}, []models.Platform{"myspace"}, "platforms"},
		{"twitter truncates", &models.Post{Content: string(long)}, []models.Platform{models.Twitter}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := o.Validate(tt.post, tt.platforms, nil)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verr *models.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestTargets(t *testing.T) {
	o := New(nil, nil, nil)
	post := &models.Post{Platforms: []models.Platform{models.Twitter, models.Facebook}}

	all, err := o.Targets(post, nil)
	require.NoError(t, err)
	assert.Equal(t, []models.Platform{models.Facebook, models.Twitter}, all)

	only, err := o.Targets(post, []models.Platform{models.Twitter})
	require.NoError(t, err)
	assert.Equal(t, []models.Platform{models.Twitter}, only)

	_, err = o.Targets(post, []models.Platform{models.Instagram})
	assert.True(t, models.IsValidation(err))
}

func TestPrepareUploadsAndHonoursSchedule(t *testing.T) {
	store := &memStorage{}
	o := New(nil, store, clock.NewFake(now))

	post := &models.Post{Images: []string{"https://cdn.example.com/keep.png"}}
	due, err := o.Prepare(context.Background(), post, []media.Ref{
		{URL: "https://cdn.example.com/remote.png"},
		{Data: []byte("raw"), Name: "local.png"},
	})
	require.NoError(t, err)
	assert.True(t, due)
	assert.Equal(t, 1, store.n)
	require.Len(t, post.Images, 3)
	assert.Equal(t, "https://cdn.example.com/remote.png", post.Images[1])

	future := now.Add(time.Hour)
	post.ScheduledDate = &future
	due, err = o.Prepare(context.Background(), post, nil)
	require.NoError(t, err)
	assert.False(t, due)

	past := now.Add(-time.Minute)
	post.ScheduledDate = &past
	due, err = o.Prepare(context.Background(), post, nil)
	require.NoError(t, err)
	assert.True(t, due)
}

func TestPropagateEdit(t *testing.T) {
	fb := &fakeAdapter{platform: models.Facebook}
	ig := &fakeAdapter{platform: models.Instagram, editErr: &models.PlatformAPIError{
		Platform: models.Instagram, Message: "no edit", Kind: models.ErrEditUnsupported,
	}}
	tw := &fakeAdapter{platform: models.Twitter, editErr: &models.PlatformAPIError{
		Platform: models.Twitter, StatusCode: 403, Message: "tier", Kind: models.ErrTierRestricted,
	}}
	o := New(adapters(fb, ig, tw), nil, clock.NewFake(now))

	post := &models.Post{
		Content: "fixed typo",
		PlatformPostIDs: map[models.Platform]string{
			models.Twitter:   "tw_1",
			models.Facebook:  "fb_1",
			models.Instagram: "ig_1",
		},
	}
	results := o.PropagateEdit(context.Background(), post)
	require.Len(t, results, 3)

	assert.Equal(t, models.Facebook, results[0].Platform)
	assert.True(t, results[0].Success)
	assert.Equal(t, []string{"fb_1:fixed typo"}, fb.edits)

	assert.False(t, results[1].Success)
	assert.True(t, results[1].Permanent)

	assert.False(t, results[2].Success)
	assert.False(t, results[2].Permanent)
	assert.ErrorIs(t, results[2].Err, models.ErrTierRestricted)
}

func TestNormalizeHashtags(t *testing.T) {
	assert.Equal(t, []string{"#a", "#bc"}, NormalizeHashtags([]string{"a", "##b c", "", "#A"}))
	assert.Empty(t, NormalizeHashtags(nil))
}

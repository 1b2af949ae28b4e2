package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"social-publisher/media"
	"social-publisher/models"
)

// Facebook publishes to a page through the Graph API.
type Facebook struct {
	graph  *graphClient
	pageID string
}

func NewFacebook(cfg models.FacebookSettings, client *http.Client) *Facebook {
	return &Facebook{
		graph:  newGraphClient(models.Facebook, cfg.GraphURL, cfg.AccessToken, client),
		pageID: cfg.PageID,
	}
}

const publicPrivacy = `{"value":"EVERYONE"}`

func (f *Facebook) Platform() models.Platform { return models.Facebook }

func (f *Facebook) Publish(ctx context.Context, req Request) (Response, error) {
	if f.pageID == "" || f.graph.token == "" {
		return Response{}, &models.AuthError{Platform: models.Facebook, Message: "page id or access token not configured"}
	}

	var created struct {
		ID     string `json:"id"`
		PostID string `json:"post_id"`
	}
	var err error
	if len(req.Images) > 0 {
		form := url.Values{}
		form.Set("caption", withLink(req.Content, req.Link))
		form.Set("published", "true")
		form.Set("privacy", publicPrivacy)
		image := req.Images[0]
		if media.IsDurable(image) {
			form.Set("url", image)
			err = f.graph.postForm(ctx, f.pageID+"/photos", form, &created)
		} else {
			err = f.graph.postFile(ctx, f.pageID+"/photos", form, "source", image, &created)
		}
	} else {
		form := url.Values{}
		form.Set("message", req.Content)
		if req.Link != "" {
			form.Set("link", req.Link)
		}
		form.Set("published", "true")
		form.Set("privacy", publicPrivacy)
		err = f.graph.postForm(ctx, f.pageID+"/feed", form, &created)
	}
	if err != nil {
		return Response{}, err
	}

	id := created.PostID
	if id == "" {
		id = created.ID
	}
	if id == "" {
		return Response{}, &models.PlatformAPIError{Platform: models.Facebook, Message: "response carried no post id"}
	}
	if err := f.verify(ctx, id); err != nil {
		return Response{}, err
	}
	return Response{PostID: id}, nil
}

// verify reads back is_published; pages can accept a post and hold it for review.
func (f *Facebook) verify(ctx context.Context, id string) error {
	var state struct {
		IsPublished *bool `json:"is_published"`
	}
	query := url.Values{}
	query.Set("fields", "is_published")
	if err := f.graph.get(ctx, id, query, &state); err != nil {
		return fmt.Errorf("verify post %s: %w", id, err)
	}
	if state.IsPublished != nil && !*state.IsPublished {
		return &models.PlatformAPIError{
			Platform: models.Facebook,
			Message:  fmt.Sprintf("post %s was created but is not published", id),
			Kind:     models.ErrPendingReview,
		}
	}
	return nil
}

func (f *Facebook) Edit(ctx context.Context, externalID, content string) error {
	if f.graph.token == "" {
		return &models.AuthError{Platform: models.Facebook, Message: "access token not configured"}
	}
	form := url.Values{}
	form.Set("message", content)
	var out struct {
		Success bool `json:"success"`
	}
	if err := f.graph.postForm(ctx, externalID, form, &out); err != nil {
		return err
	}
	if !out.Success {
		return &models.PlatformAPIError{Platform: models.Facebook, Message: "edit was not acknowledged"}
	}
	return nil
}

// withLink appends link to text unless it is already there.
func withLink(text, link string) string {
	if link == "" || strings.Contains(text, link) {
		return text
	}
	if text == "" {
		return link
	}
	return text + "\n" + link
}

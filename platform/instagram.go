package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"social-publisher/models"
)

// Instagram publishes through the two-step container flow of the Graph API.
type Instagram struct {
	graph     *graphClient
	accountID string
}

func NewInstagram(cfg models.InstagramSettings, client *http.Client) *Instagram {
	return &Instagram{
		graph:     newGraphClient(models.Instagram, cfg.GraphURL, cfg.AccessToken, client),
		accountID: cfg.AccountID,
	}
}

func (in *Instagram) Platform() models.Platform { return models.Instagram }

func (in *Instagram) Publish(ctx context.Context, req Request) (Response, error) {
	if len(req.Images) == 0 {
		return Response{}, models.Invalid("images", "instagram requires at least one image")
	}
	if in.accountID == "" || in.graph.token == "" {
		return Response{}, &models.AuthError{Platform: models.Instagram, Message: "account id or access token not configured"}
	}

	var container struct {
		ID string `json:"id"`
	}
	form := url.Values{}
	form.Set("image_url", req.Images[0])
	form.Set("caption", req.Content)
	if err := in.graph.postForm(ctx, in.accountID+"/media", form, &container); err != nil {
		return Response{}, fmt.Errorf("create media container: %w", err)
	}
	if container.ID == "" {
		return Response{}, &models.PlatformAPIError{Platform: models.Instagram, Message: "create media container: no container id returned"}
	}

	var published struct {
		ID string `json:"id"`
	}
	form = url.Values{}
	form.Set("creation_id", container.ID)
	if err := in.graph.postForm(ctx, in.accountID+"/media_publish", form, &published); err != nil {
		return Response{}, fmt.Errorf("publish media container %s: %w", container.ID, err)
	}
	if published.ID == "" {
		return Response{}, &models.PlatformAPIError{Platform: models.Instagram, Message: "publish media container: no media id returned"}
	}
	return Response{PostID: published.ID}, nil
}

// Edit always fails: captions cannot be changed after publishing.
func (in *Instagram) Edit(ctx context.Context, externalID, content string) error {
	return &models.PlatformAPIError{
		Platform: models.Instagram,
		Message:  "captions cannot be edited after publishing",
		Kind:     models.ErrEditUnsupported,
	}
}

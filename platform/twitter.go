package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"

	"social-publisher/models"

	"github.com/dghubble/oauth1"
)

const (
	defaultTwitterAPI    = "https://api.twitter.com"
	defaultTwitterUpload = "https://upload.twitter.com/1.1/media/upload.json"
	defaultTwitterIntent = "https://twitter.com/intent/tweet"

	maxTweetImages = 4
	// X API error code for apps limited to a subset of v2 endpoints.
	codeAccessSubset = 453
)

// Twitter posts with OAuth 1.0a user context and edits with the app bearer token.
type Twitter struct {
	apiURL     string
	uploadURL  string
	intentURL  string
	bearer     string
	configured bool
	signed     *http.Client
	plain      *http.Client
}

func NewTwitter(cfg models.TwitterSettings, client *http.Client) *Twitter {
	configured := cfg.ConsumerKey != "" && cfg.ConsumerSecret != "" &&
		cfg.AccessToken != "" && cfg.AccessSecret != ""
	t := &Twitter{
		apiURL:     strings.TrimRight(orDefault(cfg.APIURL, defaultTwitterAPI), "/"),
		uploadURL:  orDefault(cfg.UploadURL, defaultTwitterUpload),
		intentURL:  orDefault(cfg.IntentURL, defaultTwitterIntent),
		bearer:     cfg.BearerToken,
		configured: configured,
		plain:      client,
	}

	config := oauth1.NewConfig(cfg.ConsumerKey, cfg.ConsumerSecret)
	token := oauth1.NewToken(cfg.AccessToken, cfg.AccessSecret)
	ctx := context.WithValue(context.Background(), oauth1.HTTPClient, client)
	t.signed = config.Client(ctx, token)
	t.signed.Timeout = client.Timeout
	return t
}

func (t *Twitter) Platform() models.Platform { return models.Twitter }

type tweetBody struct {
	Text  string      `json:"text"`
	Media *tweetMedia `json:"media,omitempty"`
}

type tweetMedia struct {
	MediaIDs []string `json:"media_ids"`
}

type twitterError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Reason string `json:"reason"`
	Status int    `json:"status"`
	Errors []struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"errors"`
}

func (e twitterError) message() string {
	if e.Detail != "" {
		return e.Detail
	}
	if len(e.Errors) > 0 {
		return e.Errors[0].Message
	}
	return e.Title
}

func (e twitterError) empty() bool {
	return e.Title == "" && e.Detail == "" && len(e.Errors) == 0
}

func (t *Twitter) Publish(ctx context.Context, req Request) (Response, error) {
	if !t.configured {
		return Response{}, &models.AuthError{Platform: models.Twitter, Message: "oauth credentials not configured"}
	}

	text := Truncate(withLink(req.Content, req.Link), models.Twitter.Capabilities().MaxContentLength)
	body := tweetBody{Text: text}

	images := req.Images
	if len(images) > maxTweetImages {
		images = images[:maxTweetImages]
	}
	for _, image := range images {
		id, err := t.uploadMedia(ctx, image)
		if err != nil {
			return Response{}, err
		}
		if body.Media == nil {
			body.Media = &tweetMedia{}
		}
		body.Media.MediaIDs = append(body.Media.MediaIDs, id)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Response{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.apiURL+"/2/tweets", bytes.NewReader(payload))
	if err != nil {
		return Response{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := t.signed.Do(httpReq)
	if err != nil {
		return Response{}, t.fallback(text, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, t.fallback(text, err)
	}

	if resp.StatusCode < 300 {
		var created struct {
			Data struct {
				ID string `json:"id"`
			} `json:"data"`
		}
		if err := json.Unmarshal(raw, &created); err != nil || created.Data.ID == "" {
			return Response{}, t.fallback(text, fmt.Errorf("status %d without tweet id", resp.StatusCode))
		}
		return Response{PostID: created.Data.ID}, nil
	}

	if err := classify(resp.StatusCode, raw); err != nil {
		return Response{}, err
	}
	return Response{}, t.fallback(text, fmt.Errorf("unexpected status %d", resp.StatusCode))
}

// classify turns a definitive API rejection into a typed error. It returns nil
// when the response is not a parseable client error.
func classify(status int, raw []byte) error {
	if status == http.StatusUnauthorized {
		return &models.AuthError{Platform: models.Twitter, Message: "credentials rejected"}
	}
	if status < 400 || status >= 500 {
		return nil
	}
	var apiErr twitterError
	if err := json.Unmarshal(raw, &apiErr); err != nil || apiErr.empty() {
		return nil
	}

	out := &models.PlatformAPIError{Platform: models.Twitter, StatusCode: status, Message: apiErr.message()}
	if len(apiErr.Errors) > 0 {
		out.Code = apiErr.Errors[0].Code
	}
	if status == http.StatusForbidden && isTierRestriction(apiErr) {
		out.Kind = models.ErrTierRestricted
	}
	return out
}

func isTierRestriction(e twitterError) bool {
	if e.Reason == "client-not-enrolled" {
		return true
	}
	for _, item := range e.Errors {
		if item.Code == codeAccessSubset {
			return true
		}
	}
	msg := strings.ToLower(e.message())
	return strings.Contains(msg, "access level") || strings.Contains(msg, "subset of")
}

func (t *Twitter) fallback(text string, cause error) error {
	return &models.ManualFallbackError{
		Platform: models.Twitter,
		URL:      t.intentURL + "?text=" + url.QueryEscape(text),
		Cause:    cause,
	}
}

// uploadMedia fetches a durable image and uploads it through the v1.1 media endpoint.
func (t *Twitter) uploadMedia(ctx context.Context, imageURL string) (string, error) {
	getReq, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := t.plain.Do(getReq)
	if err != nil {
		return "", &models.PlatformAPIError{Platform: models.Twitter, Message: "fetch media: " + err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &models.PlatformAPIError{Platform: models.Twitter, StatusCode: resp.StatusCode, Message: "fetch media " + imageURL}
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("media", path.Base(getReq.URL.Path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, resp.Body); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	upReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.uploadURL, &body)
	if err != nil {
		return "", err
	}
	upReq.Header.Set("Content-Type", w.FormDataContentType())
	upResp, err := t.signed.Do(upReq)
	if err != nil {
		return "", &models.PlatformAPIError{Platform: models.Twitter, Message: "upload media: " + err.Error()}
	}
	defer upResp.Body.Close()
	raw, _ := io.ReadAll(upResp.Body)
	if upResp.StatusCode >= 300 {
		if err := classify(upResp.StatusCode, raw); err != nil {
			return "", err
		}
		return "", &models.PlatformAPIError{Platform: models.Twitter, StatusCode: upResp.StatusCode, Message: "upload media failed"}
	}

	var uploaded struct {
		MediaID string `json:"media_id_string"`
	}
	if err := json.Unmarshal(raw, &uploaded); err != nil || uploaded.MediaID == "" {
		return "", &models.PlatformAPIError{Platform: models.Twitter, StatusCode: upResp.StatusCode, Message: "upload media: no media id returned"}
	}
	return uploaded.MediaID, nil
}

// Edit replaces the text of a tweet. Only elevated API tiers may edit; other
// credentials surface ErrTierRestricted.
func (t *Twitter) Edit(ctx context.Context, externalID, content string) error {
	if t.bearer == "" {
		return &models.AuthError{Platform: models.Twitter, Message: "bearer token not configured"}
	}
	payload, err := json.Marshal(tweetBody{Text: Truncate(content, models.Twitter.Capabilities().MaxContentLength)})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, t.apiURL+"/2/tweets/"+url.PathEscape(externalID), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.bearer)

	resp, err := t.plain.Do(req)
	if err != nil {
		return &models.PlatformAPIError{Platform: models.Twitter, Message: err.Error()}
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusForbidden:
		msg := "editing requires an elevated API tier"
		var apiErr twitterError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.message() != "" {
			msg = apiErr.message()
		}
		return &models.PlatformAPIError{Platform: models.Twitter, StatusCode: resp.StatusCode, Message: msg, Kind: models.ErrTierRestricted}
	}
	if err := classify(resp.StatusCode, raw); err != nil {
		return err
	}
	return &models.PlatformAPIError{Platform: models.Twitter, StatusCode: resp.StatusCode, Message: "edit failed"}
}

// Truncate shortens s to max runes, ending with "..." when anything was cut.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if max <= 0 || len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

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
	"os"
	"path/filepath"
	"strings"

	"social-publisher/models"
)

const defaultGraphURL = "https://graph.facebook.com/v19.0"

// Graph error codes for invalid or expired tokens and missing permissions.
var graphAuthCodes = map[int]bool{102: true, 190: true, 200: true}

// graphClient is the small Graph API surface shared by Facebook and Instagram.
type graphClient struct {
	platform models.Platform
	baseURL  string
	token    string
	http     *http.Client
}

type graphErrorBody struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
		Subcode int    `json:"error_subcode"`
	} `json:"error"`
}

func newGraphClient(p models.Platform, baseURL, token string, client *http.Client) *graphClient {
	if baseURL == "" {
		baseURL = defaultGraphURL
	}
	return &graphClient{platform: p, baseURL: strings.TrimRight(baseURL, "/"), token: token, http: client}
}

func (g *graphClient) endpoint(path string) string {
	return g.baseURL + "/" + strings.TrimLeft(path, "/")
}

func (g *graphClient) get(ctx context.Context, path string, query url.Values, out any) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("access_token", g.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint(path)+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}
	return g.do(req, out)
}

func (g *graphClient) postForm(ctx context.Context, path string, form url.Values, out any) error {
	form.Set("access_token", g.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint(path), strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return g.do(req, out)
}

// postFile uploads a local file as the multipart field `field` alongside form.
func (g *graphClient) postFile(ctx context.Context, path string, form url.Values, field, filePath string, out any) error {
	data, err := os.ReadFile(strings.TrimPrefix(filePath, "file://"))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filePath, err)
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	form.Set("access_token", g.token)
	for key, values := range form {
		for _, v := range values {
			if err := w.WriteField(key, v); err != nil {
				return err
			}
		}
	}
	part, err := w.CreateFormFile(field, filepath.Base(filePath))
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint(path), &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return g.do(req, out)
}

func (g *graphClient) do(req *http.Request, out any) error {
	resp, err := g.http.Do(req)
	if err != nil {
		return &models.PlatformAPIError{Platform: g.platform, Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &models.PlatformAPIError{Platform: g.platform, StatusCode: resp.StatusCode, Message: err.Error()}
	}

	var apiErr graphErrorBody
	_ = json.Unmarshal(raw, &apiErr)
	if apiErr.Error != nil {
		if graphAuthCodes[apiErr.Error.Code] || resp.StatusCode == http.StatusUnauthorized {
			return &models.AuthError{Platform: g.platform, Message: apiErr.Error.Message}
		}
		return &models.PlatformAPIError{
			Platform:   g.platform,
			StatusCode: resp.StatusCode,
			Code:       apiErr.Error.Code,
			Message:    apiErr.Error.Message,
		}
	}
	if resp.StatusCode >= 400 {
		return &models.PlatformAPIError{Platform: g.platform, StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &models.PlatformAPIError{Platform: g.platform, StatusCode: resp.StatusCode, Message: "unreadable response: " + err.Error()}
	}
	return nil
}

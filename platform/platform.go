// Package platform holds the adapters that talk to each social network.
package platform

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"social-publisher/models"

	"golang.org/x/net/http/httpproxy"
)

const defaultTimeout = 30 * time.Second

// Request is the composed content handed to an adapter.
type Request struct {
	Content string
	// Images are durable URLs.
	Images []string
	Link   string
}

// Response carries the platform-assigned id of a created post.
type Response struct {
	PostID string
}

// Adapter publishes to and edits posts on one platform.
type Adapter interface {
	Platform() models.Platform
	Publish(ctx context.Context, req Request) (Response, error)
	Edit(ctx context.Context, externalID, content string) error
}

// NewHTTPClient builds the client shared by the adapters. An explicit proxy
// overrides HTTP(S)_PROXY from the environment; NO_PROXY is still honoured.
func NewHTTPClient(timeout time.Duration, proxy string) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	cfg := httpproxy.FromEnvironment()
	if proxy != "" {
		cfg.HTTPProxy = proxy
		cfg.HTTPSProxy = proxy
	}
	proxyFunc := cfg.ProxyFunc()

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = func(r *http.Request) (*url.URL, error) {
		return proxyFunc(r.URL)
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// NewAdapters builds an adapter for every enabled platform. An empty
// enabled list enables all of them.
func NewAdapters(cfg models.PlatformSettings) map[models.Platform]Adapter {
	client := NewHTTPClient(cfg.Timeout, cfg.Proxy)
	enabled := cfg.Enabled
	if len(enabled) == 0 {
		enabled = models.AllPlatforms
	}

	adapters := make(map[models.Platform]Adapter, len(enabled))
	for _, p := range models.OrderPlatforms(enabled) {
		switch p {
		case models.Facebook:
			adapters[p] = NewFacebook(cfg.Facebook, client)
		case models.Instagram:
			adapters[p] = NewInstagram(cfg.Instagram, client)
		case models.Twitter:
			adapters[p] = NewTwitter(cfg.Twitter, client)
		}
	}
	return adapters
}

package models

// PublishResult is the outcome of publishing one post to one platform.
type PublishResult struct {
	Platform Platform `json:"platform" bson:"platform"`
	Success  bool     `json:"success" bson:"success"`
	Error    string   `json:"error,omitempty" bson:"error"`
	PostID   string   `json:"post_id,omitempty" bson:"post_id"`
	// ManualFallback is set when the platform gave no definitive answer and the
	// caller may offer the web posting path at FallbackURL.
	ManualFallback bool   `json:"manual_fallback,omitempty" bson:"manual_fallback"`
	FallbackURL    string `json:"fallback_url,omitempty" bson:"fallback_url"`

	Err error `json:"-" bson:"-"`
}

// EditResult is the outcome of propagating a content edit to one platform.
type EditResult struct {
	Platform Platform `json:"platform"`
	Success  bool     `json:"success"`
	Error    string   `json:"error,omitempty"`
	// Permanent is set when retrying cannot help, e.g. the platform has no edit API.
	Permanent bool `json:"permanent,omitempty"`

	Err error `json:"-"`
}

// SucceededPlatforms returns the platforms of the successful results, in order.
func SucceededPlatforms(results []PublishResult) []Platform {
	var out []Platform
	for _, r := range results {
		if r.Success {
			out = append(out, r.Platform)
		}
	}
	return out
}

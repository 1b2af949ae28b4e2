package models

import (
	"fmt"
	"strings"
)

// Platform identifies an external social network a post can be published to.
type Platform string

const (
	Facebook  Platform = "facebook"
	Instagram Platform = "instagram"
	Twitter   Platform = "twitter"
)

// AllPlatforms lists every supported platform in fan-out order.
var AllPlatforms = []Platform{Facebook, Instagram, Twitter}

// Capabilities describes what a platform accepts.
type Capabilities struct {
	RequiresImage    bool
	MaxContentLength int
	// Truncate means content over MaxContentLength is shortened instead of rejected.
	Truncate       bool
	SupportsEdit   bool
	ManualFallback bool
}

// Capabilities returns the capability metadata for the platform.
func (p Platform) Capabilities() Capabilities {
	switch p {
	case Facebook:
		return Capabilities{MaxContentLength: 63206, SupportsEdit: true}
	case Instagram:
		return Capabilities{RequiresImage: true, MaxContentLength: 2200}
	case Twitter:
		return Capabilities{MaxContentLength: 280, Truncate: true, SupportsEdit: true, ManualFallback: true}
	default:
		return Capabilities{}
	}
}

// Valid reports whether p is one of the supported platforms.
func (p Platform) Valid() bool {
	for _, known := range AllPlatforms {
		if p == known {
			return true
		}
	}
	return false
}

func (p Platform) String() string { return string(p) }

// DisplayName is the human readable platform name used in notifications.
func (p Platform) DisplayName() string {
	switch p {
	case Facebook:
		return "Facebook"
	case Instagram:
		return "Instagram"
	case Twitter:
		return "Twitter"
	}
	return string(p)
}

// ParsePlatform converts a tag such as "Twitter" or "twitter" into a Platform.
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown platform %q", s)
	}
	return p, nil
}

// ParsePlatforms parses a list of platform tags, dropping duplicates.
func ParsePlatforms(tags []string) ([]Platform, error) {
	out := make([]Platform, 0, len(tags))
	for _, tag := range tags {
		p, err := ParsePlatform(tag)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return OrderPlatforms(out), nil
}

// OrderPlatforms returns the distinct platforms of ps in fan-out order.
func OrderPlatforms(ps []Platform) []Platform {
	seen := make(map[Platform]bool, len(ps))
	for _, p := range ps {
		seen[p] = true
	}
	out := make([]Platform, 0, len(seen))
	for _, p := range AllPlatforms {
		if seen[p] {
			out = append(out, p)
		}
	}
	return out
}

// ContainsPlatform reports whether p is in ps.
func ContainsPlatform(ps []Platform, p Platform) bool {
	for _, x := range ps {
		if x == p {
			return true
		}
	}
	return false
}

package publisher

import (
	"strings"

	"social-publisher/models"
)

// NormalizeHashtags trims, prefixes with '#' and drops empty or repeated tags.
func NormalizeHashtags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimLeft(strings.TrimSpace(tag), "#")
		tag = strings.Join(strings.Fields(tag), "")
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, "#"+tag)
	}
	return out
}

// Compose returns the text sent to platforms: the content with the hashtags
// appended as a trailing line.
func Compose(post *models.Post) string {
	content := strings.TrimSpace(post.Content)
	tags := NormalizeHashtags(post.Hashtags)
	if len(tags) == 0 {
		return content
	}
	line := strings.Join(tags, " ")
	if content == "" {
		return line
	}
	return content + "\n\n" + line
}

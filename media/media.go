// Package media turns local or in-memory media references into durable URLs.
package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"social-publisher/models"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// Storage persists a blob and returns a stable public URL for it.
type Storage interface {
	Put(ctx context.Context, name, contentType string, r io.Reader) (string, error)
}

// Ref is a media reference supplied by a caller: a durable http(s) URL or raw
// bytes. Path names a local file and is only settable in-process.
type Ref struct {
	URL         string `json:"url,omitempty" validate:"omitempty,http_url"`
	Data        []byte `json:"data,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Name        string `json:"name,omitempty"`
	Path        string `json:"-"`
}

// IsDurable reports whether ref already points at durable storage.
func IsDurable(ref string) bool {
	return strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "http://")
}

// Durable reports whether the reference needs no upload.
func (r Ref) Durable() bool {
	return len(r.Data) == 0 && r.Path == "" && IsDurable(r.URL)
}

// Resolve uploads every non-durable reference and returns the durable URLs in
// input order. Durable references pass through unchanged.
func Resolve(ctx context.Context, store Storage, refs []Ref) ([]string, error) {
	urls := make([]string, 0, len(refs))
	for i, ref := range refs {
		if ref.Durable() {
			urls = append(urls, ref.URL)
			continue
		}
		if ref.URL != "" && !IsDurable(ref.URL) {
			return nil, models.Invalid(fmt.Sprintf("media[%d]", i), "%q is not an http(s) URL", ref.URL)
		}
		if store == nil {
			return nil, fmt.Errorf("media %d: no media storage configured", i)
		}

		data, name, err := load(ref)
		if err != nil {
			return nil, fmt.Errorf("media %d: %w", i, err)
		}
		contentType := ref.ContentType
		mt := mimetype.Detect(data)
		if contentType == "" {
			contentType = mt.String()
		}
		if name == "" {
			name = uuid.NewString() + mt.Extension()
		}

		url, err := store.Put(ctx, name, contentType, bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("media %d: upload failed: %w", i, err)
		}
		urls = append(urls, url)
	}
	return urls, nil
}

func load(ref Ref) ([]byte, string, error) {
	if len(ref.Data) > 0 {
		return ref.Data, safeName(ref.Name), nil
	}
	if ref.Path == "" {
		return nil, "", models.Invalid("media", "empty media reference")
	}
	data, err := os.ReadFile(ref.Path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read local media: %w", err)
	}
	return data, "", nil
}

// safeName keeps caller-provided names unique and free of path components.
func safeName(name string) string {
	if name == "" {
		return ""
	}
	return uuid.NewString() + "-" + filepath.Base(name)
}

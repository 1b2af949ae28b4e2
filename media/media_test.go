package media

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"social-publisher/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingStorage struct {
	puts         []string
	contentTypes []string
}

func (r *recordingStorage) Put(ctx context.Context, name, contentType string, body io.Reader) (string, error) {
	if _, err := io.ReadAll(body); err != nil {
		return "", err
	}
	r.puts = append(r.puts, name)
	r.contentTypes = append(r.contentTypes, contentType)
	return "https://cdn.example.com/" + name, nil
}

// 1x1 transparent PNG.
var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89,
}

func TestResolvePassesDurableURLsThrough(t *testing.T) {
	store := &recordingStorage{}
	urls, err := Resolve(context.Background(), store, []Ref{
		{URL: "https://images.example.com/cat.jpg"},
		{URL: "http://legacy.example.com/dog.jpg"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://images.example.com/cat.jpg", "http://legacy.example.com/dog.jpg"}, urls)
	assert.Empty(t, store.puts)
}

func TestResolveUploadsLocalMedia(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "local.png")
	require.NoError(t, os.WriteFile(path, pngBytes, 0644))

	store := &recordingStorage{}
	urls, err := Resolve(context.Background(), store, []Ref{
		{URL: "https://images.example.com/keep.jpg"},
		{Path: path},
		{Data: pngBytes, Name: "upload.png"},
	})
	require.NoError(t, err)
	require.Len(t, urls, 3)
	assert.Equal(t, "https://images.example.com/keep.jpg", urls[0])
	assert.True(t, strings.HasPrefix(urls[1], "https://cdn.example.com/"))
	assert.True(t, strings.HasSuffix(urls[1], ".png"))
	assert.True(t, strings.HasSuffix(urls[2], "-upload.png"))
	assert.Equal(t, []string{"image/png", "image/png"}, store.contentTypes)
}

func TestResolveRejectsLocalURLs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secret.txt")
	require.NoError(t, os.WriteFile(path, []byte("secret"), 0644))

	for _, url := range []string{path, "file://" + path, "ftp://example.com/a.png"} {
		store := &recordingStorage{}
		_, err := Resolve(context.Background(), store, []Ref{{URL: url}})
		var verr *models.ValidationError
		require.ErrorAs(t, err, &verr, url)
		assert.Equal(t, "media[0]", verr.Field)
		assert.Empty(t, store.puts)
	}
}

func TestResolveWithoutStorage(t *testing.T) {
	_, err := Resolve(context.Background(), nil, []Ref{{Data: pngBytes}})
	assert.Error(t, err)
}

func TestDiskStorage(t *testing.T) {
	dir := t.TempDir()
	disk, err := NewDiskStorage(filepath.Join(dir, "media"), "http://localhost:8080/media/")
	require.NoError(t, err)

	url, err := disk.Put(context.Background(), "../escape.png", "image/png", strings.NewReader("data"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/media/escape.png", url)

	content, err := os.ReadFile(filepath.Join(dir, "media", "escape.png"))
	require.NoError(t, err)
	assert.Equal(t, "data", string(content))
}

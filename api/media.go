package api

import (
	"context"
	"io"
	"net/http"

	"social-publisher/media"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

const maxUploadBytes = 10 << 20

// mediaOpener is a storage that can stream its blobs back, such as GridFS.
type mediaOpener interface {
	media.Storage
	Open(ctx context.Context, id string) (io.ReadCloser, error)
}

// UploadMedia stores the multipart "file" field and returns its durable URL.
func (h *Handler) UploadMedia(c *gin.Context) {
	if h.Media == nil {
		RespondError(c, http.StatusServiceUnavailable, "media storage is not configured")
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "missing file")
		return
	}
	if fh.Size > maxUploadBytes {
		RespondError(c, http.StatusRequestEntityTooLarge, "file too large")
		return
	}
	f, err := fh.Open()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "unreadable file")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "unreadable file")
		return
	}

	urls, err := media.Resolve(c.Request.Context(), h.Media, []media.Ref{{Data: data, Name: fh.Filename}})
	if err != nil {
		RespondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": urls[0]})
}

// ServeMedia streams a blob from a storage that keeps blobs out of the filesystem.
func (h *Handler) ServeMedia(c *gin.Context) {
	opener, ok := h.Media.(mediaOpener)
	if !ok {
		RespondError(c, http.StatusNotFound, "not found")
		return
	}
	rc, err := opener.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusNotFound, "not found")
		return
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		RespondErr(c, err)
		return
	}
	c.Data(http.StatusOK, mimetype.Detect(data).String(), data)
}

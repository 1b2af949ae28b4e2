package media

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GridFSStorage keeps blobs in a MongoDB GridFS bucket; URLs are BaseURL/<file id>.
type GridFSStorage struct {
	bucket  *gridfs.Bucket
	baseURL string
}

// NewGridFSStorage opens (or lazily creates) the named bucket.
func NewGridFSStorage(db *mongo.Database, bucketName, baseURL string) (*GridFSStorage, error) {
	opts := options.GridFSBucket()
	if bucketName != "" {
		opts.SetName(bucketName)
	}
	bucket, err := gridfs.NewBucket(db, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open gridfs bucket: %w", err)
	}
	return &GridFSStorage{bucket: bucket, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (g *GridFSStorage) Put(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	upload := options.GridFSUpload().SetMetadata(bson.M{"content_type": contentType})
	id, err := g.bucket.UploadFromStream(name, r, upload)
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to gridfs: %w", name, err)
	}
	return g.baseURL + "/" + id.Hex(), nil
}

// Open streams a stored blob by the id part of its URL.
func (g *GridFSStorage) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid media id %q: %w", id, err)
	}
	stream, err := g.bucket.OpenDownloadStream(oid)
	if err != nil {
		return nil, fmt.Errorf("failed to open media %s: %w", id, err)
	}
	return stream, nil
}

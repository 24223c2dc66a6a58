package resource

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/ternarybob/datacat/internal/models"
)

// LocalFileResource reads a file from the local filesystem.
type LocalFileResource struct {
	path string
}

// NewLocalFileResource returns a resource over an absolute file path.
func NewLocalFileResource(path string) *LocalFileResource {
	return &LocalFileResource{path: path}
}

// Identifier returns the resource's absolute path.
func (r *LocalFileResource) Identifier() string {
	return r.path
}

// Exists reports whether the file is present and stat-able.
func (r *LocalFileResource) Exists(ctx context.Context) (bool, error) {
	_, err := os.Stat(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Fetch reads the entire file, deriving content type from its extension.
func (r *LocalFileResource) Fetch(ctx context.Context) (*models.FetchResult, error) {
	info, err := os.Stat(r.path)
	if err != nil {
		return &models.FetchResult{Success: false, Error: err.Error()}, fmt.Errorf("stat %s: %w", r.path, err)
	}

	content, err := os.ReadFile(r.path)
	if err != nil {
		return &models.FetchResult{Success: false, Error: err.Error()}, fmt.Errorf("read %s: %w", r.path, err)
	}

	modTime := info.ModTime()
	return &models.FetchResult{
		Content: content,
		Success: true,
		Metadata: models.FetchMetadata{
			ContentType:  mime.TypeByExtension(filepath.Ext(r.path)),
			Size:         info.Size(),
			LastModified: &modTime,
		},
	}, nil
}

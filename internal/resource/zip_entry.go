package resource

import (
	"archive/zip"
	"context"
	"fmt"
	"io"

	"github.com/ternarybob/datacat/internal/models"
)

// ZipEntryResource reads a single named entry from a local ZIP archive.
type ZipEntryResource struct {
	archivePath string
	entryName   string
}

// NewZipEntryResource returns a resource addressing entryName inside the
// ZIP archive at archivePath.
func NewZipEntryResource(archivePath, entryName string) *ZipEntryResource {
	return &ZipEntryResource{archivePath: archivePath, entryName: entryName}
}

// Identifier returns the zip://path#entry form used for cache keys and
// logging.
func (r *ZipEntryResource) Identifier() string {
	return fmt.Sprintf("zip://%s#%s", r.archivePath, r.entryName)
}

func (r *ZipEntryResource) find() (*zip.ReadCloser, *zip.File, error) {
	rc, err := zip.OpenReader(r.archivePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open zip %s: %w", r.archivePath, err)
	}
	for _, f := range rc.File {
		if f.Name == r.entryName {
			return rc, f, nil
		}
	}
	rc.Close()
	return nil, nil, nil
}

// Exists verifies entry presence in the archive's central directory.
func (r *ZipEntryResource) Exists(ctx context.Context) (bool, error) {
	rc, f, err := r.find()
	if err != nil {
		return false, err
	}
	if rc != nil {
		rc.Close()
	}
	return f != nil, nil
}

// Fetch reads the named entry's decompressed content.
func (r *ZipEntryResource) Fetch(ctx context.Context) (*models.FetchResult, error) {
	rc, f, err := r.find()
	if err != nil {
		return &models.FetchResult{Success: false, Error: err.Error()}, err
	}
	if f == nil {
		err := fmt.Errorf("entry %s not found in %s", r.entryName, r.archivePath)
		return &models.FetchResult{Success: false, Error: err.Error()}, err
	}
	defer rc.Close()

	reader, err := f.Open()
	if err != nil {
		return &models.FetchResult{Success: false, Error: err.Error()}, err
	}
	defer reader.Close()

	content, err := io.ReadAll(reader)
	if err != nil {
		return &models.FetchResult{Success: false, Error: err.Error()}, err
	}

	modTime := f.Modified
	return &models.FetchResult{
		Content: content,
		Success: true,
		Metadata: models.FetchMetadata{
			Size:         int64(f.UncompressedSize64),
			LastModified: &modTime,
		},
	}, nil
}

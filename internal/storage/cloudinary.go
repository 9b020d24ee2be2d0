package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"catalog-api/internal/config"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryStorage stores catalog images in Cloudinary.
type CloudinaryStorage struct {
	client *cloudinary.Cloudinary
	folder string
}

// NewCloudinaryStorage builds a client from the configured credentials.
func NewCloudinaryStorage(cfg config.StorageConfig) (*CloudinaryStorage, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudinary client: %w", err)
	}

	return &CloudinaryStorage{
		client: cld,
		folder: cfg.Folder,
	}, nil
}

// Upload streams the file to Cloudinary and returns its public URL and id.
func (s *CloudinaryStorage) Upload(ctx context.Context, r io.Reader, filename string) (*UploadResult, error) {
	publicID := fmt.Sprintf("catalog-%d-%s", time.Now().UnixNano(), baseName(filename))

	resp, err := s.client.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder:   s.folder,
		PublicID: publicID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", filename, err)
	}
	if resp.Error.Message != "" {
		return nil, fmt.Errorf("failed to upload %s: %s", filename, resp.Error.Message)
	}

	return &UploadResult{
		URL:       resp.SecureURL,
		StorageID: resp.PublicID,
	}, nil
}

// Delete removes the object. A missing object counts as success.
func (s *CloudinaryStorage) Delete(ctx context.Context, storageID string) error {
	resp, err := s.client.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: storageID})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", storageID, err)
	}

	if resp.Result != "ok" && resp.Result != "not found" {
		return fmt.Errorf("failed to delete %s: %s", storageID, resp.Result)
	}

	return nil
}

// baseName strips the extension and any path component from an upload name so
// it can be embedded in a public id.
func baseName(filename string) string {
	name := path.Base(filename)
	name = strings.TrimSuffix(name, path.Ext(name))
	return strings.ReplaceAll(name, " ", "_")
}

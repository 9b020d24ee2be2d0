// Package storage abstracts the external object store holding catalog image
// binaries. The store is separate from the primary database; callers are
// responsible for keeping the two consistent.
package storage

import (
	"context"
	"io"
)

// UploadResult identifies a stored object.
type UploadResult struct {
	// URL is the stable public retrieval URL.
	URL string
	// StorageID is the opaque identifier used to delete the object later.
	StorageID string
}

// ObjectStorage uploads and deletes image objects. Implementations must treat
// deletion of a missing object as success so compensating deletes stay
// idempotent.
type ObjectStorage interface {
	Upload(ctx context.Context, r io.Reader, filename string) (*UploadResult, error)
	Delete(ctx context.Context, storageID string) error
}

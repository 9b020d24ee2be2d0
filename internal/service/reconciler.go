package service

import (
	"context"
	"io"

	"catalog-api/internal/domain"
	"catalog-api/internal/storage"

	"go.uber.org/zap"
)

// ImageUpload is one binary attachment bound for the object store.
type ImageUpload struct {
	Filename    string
	ContentType string
	Reader      io.Reader
}

// ImageReconciler moves a catalog's hosted image set from its current state to
// a desired state. Uploads cannot ride in the database transaction, so every
// side effect not yet anchored by a successful row write must be individually
// reversible; reversal failures degrade to a logged leak.
type ImageReconciler struct {
	storage storage.ObjectStorage
	logger  *zap.Logger
}

// NewImageReconciler creates a new ImageReconciler.
func NewImageReconciler(store storage.ObjectStorage, logger *zap.Logger) *ImageReconciler {
	return &ImageReconciler{
		storage: store,
		logger:  logger,
	}
}

// UploadAll uploads the files sequentially, in order.
//
// Primary selection rule: the first successfully uploaded image of a batch is
// marked primary. Uploads are deliberately sequential so this rule, and the
// rollback below, stay deterministic.
//
// If the k-th upload fails, the k-1 objects already stored by this call are
// deleted before the upload error is returned. Rollback failures are logged,
// never propagated.
func (r *ImageReconciler) UploadAll(ctx context.Context, files []ImageUpload) ([]domain.ImageRef, error) {
	refs := make([]domain.ImageRef, 0, len(files))

	for i, file := range files {
		result, err := r.storage.Upload(ctx, file.Reader, file.Filename)
		if err != nil {
			r.logger.Error("Image upload failed, rolling back batch",
				zap.String("filename", file.Filename),
				zap.Int("index", i),
				zap.Int("uploaded_so_far", len(refs)),
				zap.Error(err),
			)
			r.rollback(ctx, refs)
			return nil, err
		}

		refs = append(refs, domain.ImageRef{
			URL:       result.URL,
			StorageID: result.StorageID,
			IsPrimary: i == 0,
		})
	}

	return refs, nil
}

// DeleteMany issues best-effort deletes for each storage id. Deleting an
// already-removed object is success. Individual failures are collected into a
// CleanupError for the caller to log; they are never raised as the operation's
// outcome.
func (r *ImageReconciler) DeleteMany(ctx context.Context, storageIDs []string) *domain.CleanupError {
	var leaked []string
	var errs []error

	for _, id := range storageIDs {
		if err := r.storage.Delete(ctx, id); err != nil {
			leaked = append(leaked, id)
			errs = append(errs, err)
		}
	}

	if len(errs) == 0 {
		return nil
	}

	return &domain.CleanupError{
		StorageIDs: leaked,
		Errs:       errs,
	}
}

func (r *ImageReconciler) rollback(ctx context.Context, refs []domain.ImageRef) {
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		ids = append(ids, ref.StorageID)
	}

	if cleanupErr := r.DeleteMany(ctx, ids); cleanupErr != nil {
		r.logger.Warn("Compensating deletes left orphaned objects",
			zap.Strings("storage_ids", cleanupErr.StorageIDs),
			zap.Int("errors", len(cleanupErr.Errs)),
		)
	}
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"catalog-api/internal/domain"
	"catalog-api/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// MaxImagesPerCatalog caps the attachments accepted by Create and Update.
	MaxImagesPerCatalog = 10
)

// CreateCatalogInput carries the validated-at-the-edge fields for Create.
// Colors and Sizes arrive raw (repeated form values or one serialized JSON
// array) and are decoded by the service before any upload happens.
type CreateCatalogInput struct {
	ProductName        string
	ProductPrice       float64
	ProductDescription string
	Category           string
	Colors             []string
	Sizes              []string
	Stock              int
}

// UpdateCatalogInput describes a partial update. Nil fields leave the current
// value untouched.
type UpdateCatalogInput struct {
	ProductName        *string
	ProductPrice       *float64
	ProductDescription *string
	Category           *string
	Colors             []string
	Sizes              []string
	Stock              *int
	IsActive           *bool

	// NewFiles are uploaded during the call; rollback on failure covers only
	// these, never the record's pre-existing images.
	NewFiles []ImageUpload
	// ExistingImages is the caller-declared retained set. Nil means "keep the
	// current list"; non-nil replaces it. Retained refs keep their prior
	// primary flags; new uploads never become primary here.
	ExistingImages []domain.ImageRef
	// RemoveStorageIDs are deleted from the object store only after the
	// database write succeeds. Unknown ids are idempotent no-ops.
	RemoveStorageIDs []string
}

// StockStatus is the read-only stock projection.
type StockStatus struct {
	Stock     int  `json:"stock"`
	Available bool `json:"available"`
}

// CatalogService defines the catalog business operations.
type CatalogService interface {
	Create(ctx context.Context, input CreateCatalogInput, files []ImageUpload) (*domain.Catalog, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateCatalogInput) (*domain.Catalog, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetAll(ctx context.Context, filter domain.CatalogFilter) ([]*domain.Catalog, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Catalog, error)
	GetColors(ctx context.Context, id uuid.UUID) ([]string, error)
	CheckStock(ctx context.Context, id uuid.UUID) (*StockStatus, error)
}

type catalogService struct {
	repo       repository.CatalogRepository
	reconciler *ImageReconciler
	logger     *zap.Logger
}

// NewCatalogService creates a new instance of CatalogService.
func NewCatalogService(repo repository.CatalogRepository, reconciler *ImageReconciler, logger *zap.Logger) CatalogService {
	return &catalogService{
		repo:       repo,
		reconciler: reconciler,
		logger:     logger,
	}
}

// Create validates the input, uploads every file, then persists the record.
// On any post-upload failure the call's own uploads are compensated before the
// error is returned; a failed create never leaves a row or attributable
// objects behind, modulo logged compensation failures.
func (s *catalogService) Create(ctx context.Context, input CreateCatalogInput, files []ImageUpload) (*domain.Catalog, error) {
	name := strings.TrimSpace(input.ProductName)
	description := strings.TrimSpace(input.ProductDescription)

	if name == "" {
		return nil, domain.NewValidationError("product name is required")
	}
	if input.ProductPrice < 0 {
		return nil, domain.NewValidationError("product price must not be negative")
	}
	if description == "" {
		return nil, domain.NewValidationError("product description is required")
	}
	if input.Stock < 0 {
		return nil, domain.NewValidationError("stock must not be negative")
	}

	colors, err := ParseLabels(input.Colors)
	if err != nil {
		return nil, domain.NewValidationError("invalid colors format")
	}
	if len(colors) == 0 {
		return nil, domain.NewValidationError("at least one color is required")
	}

	sizes, err := ParseLabels(input.Sizes)
	if err != nil {
		return nil, domain.NewValidationError("invalid sizes format")
	}
	if len(sizes) == 0 {
		return nil, domain.NewValidationError("at least one size is required")
	}

	if len(files) == 0 {
		return nil, domain.NewValidationError("at least one image is required")
	}
	if len(files) > MaxImagesPerCatalog {
		return nil, domain.NewValidationError("at most %d images are allowed", MaxImagesPerCatalog)
	}

	refs, err := s.reconciler.UploadAll(ctx, files)
	if err != nil {
		return nil, &domain.UploadError{Err: err}
	}

	now := time.Now()
	catalog := &domain.Catalog{
		ID:                 uuid.New(),
		ProductName:        name,
		ProductPrice:       input.ProductPrice,
		ProductDescription: description,
		Category:           strings.TrimSpace(input.Category),
		Images:             refs,
		Colors:             colors,
		Sizes:              sizes,
		Stock:              input.Stock,
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.repo.Create(ctx, catalog); err != nil {
		s.compensate(ctx, "create", catalog.StorageIDs())
		return nil, &domain.PersistenceError{Err: err}
	}

	s.logger.Info("Catalog created",
		zap.String("catalog_id", catalog.ID.String()),
		zap.Int("images", len(catalog.Images)),
	)

	return catalog, nil
}

// Update merges the provided fields into the current record field-by-field and
// persists the result. There is no concurrency token: two concurrent updates
// to the same id are last-write-wins at the database layer.
//
// The image list becomes (declared-retained-or-current ++ new uploads) minus
// declared removals. Declared removals are deleted from the object store only
// after the row write succeeds, best-effort.
func (s *catalogService) Update(ctx context.Context, id uuid.UUID, input UpdateCatalogInput) (*domain.Catalog, error) {
	catalog, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	// Decode and validate everything before touching the object store so a
	// bad request leaves the record and the store untouched.
	if input.Colors != nil {
		colors, err := ParseLabels(input.Colors)
		if err != nil {
			return nil, domain.NewValidationError("invalid colors format")
		}
		if len(colors) == 0 {
			return nil, domain.NewValidationError("at least one color is required")
		}
		catalog.Colors = colors
	}

	if input.Sizes != nil {
		sizes, err := ParseLabels(input.Sizes)
		if err != nil {
			return nil, domain.NewValidationError("invalid sizes format")
		}
		if len(sizes) == 0 {
			return nil, domain.NewValidationError("at least one size is required")
		}
		catalog.Sizes = sizes
	}

	if input.ProductName != nil {
		name := strings.TrimSpace(*input.ProductName)
		if name == "" {
			return nil, domain.NewValidationError("product name must not be empty")
		}
		catalog.ProductName = name
	}

	if input.ProductPrice != nil {
		if *input.ProductPrice < 0 {
			return nil, domain.NewValidationError("product price must not be negative")
		}
		catalog.ProductPrice = *input.ProductPrice
	}

	if input.ProductDescription != nil {
		description := strings.TrimSpace(*input.ProductDescription)
		if description == "" {
			return nil, domain.NewValidationError("product description must not be empty")
		}
		catalog.ProductDescription = description
	}

	if input.Category != nil {
		catalog.Category = strings.TrimSpace(*input.Category)
	}

	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, domain.NewValidationError("stock must not be negative")
		}
		catalog.Stock = *input.Stock
	}

	if input.IsActive != nil {
		catalog.IsActive = *input.IsActive
	}

	if len(input.NewFiles) > MaxImagesPerCatalog {
		return nil, domain.NewValidationError("at most %d images are allowed", MaxImagesPerCatalog)
	}

	var newRefs []domain.ImageRef
	if len(input.NewFiles) > 0 {
		newRefs, err = s.reconciler.UploadAll(ctx, input.NewFiles)
		if err != nil {
			return nil, &domain.UploadError{Err: err}
		}
		// New uploads never steal the primary flag from the retained set;
		// only Create designates a primary.
		for i := range newRefs {
			newRefs[i].IsPrimary = false
		}
	}

	retained := catalog.Images
	if input.ExistingImages != nil {
		retained = input.ExistingImages
	}

	merged := make([]domain.ImageRef, 0, len(retained)+len(newRefs))
	merged = append(merged, retained...)
	merged = append(merged, newRefs...)

	if len(input.RemoveStorageIDs) > 0 {
		removed := make(map[string]bool, len(input.RemoveStorageIDs))
		for _, sid := range input.RemoveStorageIDs {
			removed[sid] = true
		}
		kept := merged[:0]
		for _, ref := range merged {
			if !removed[ref.StorageID] {
				kept = append(kept, ref)
			}
		}
		merged = kept
	}
	catalog.Images = merged

	catalog.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, catalog); err != nil {
		// The declared removals stay in place: they only fire after a
		// successful write, since they describe the new desired state.
		s.compensate(ctx, "update", storageIDsOf(newRefs))
		if errors.Is(err, repository.ErrCatalogNotFound) {
			return nil, &domain.NotFoundError{ID: id.String()}
		}
		return nil, &domain.PersistenceError{Err: err}
	}

	if len(input.RemoveStorageIDs) > 0 {
		if cleanupErr := s.reconciler.DeleteMany(ctx, input.RemoveStorageIDs); cleanupErr != nil {
			s.logCleanup("update", cleanupErr)
		}
	}

	s.logger.Info("Catalog updated",
		zap.String("catalog_id", catalog.ID.String()),
		zap.Int("images", len(catalog.Images)),
	)

	return catalog, nil
}

// Delete removes every backing object best-effort, then the record itself. A
// store-side failure never blocks the row delete; the alternative would leave
// an unreachable database row behind.
func (s *catalogService) Delete(ctx context.Context, id uuid.UUID) error {
	catalog, err := s.fetch(ctx, id)
	if err != nil {
		return err
	}

	if cleanupErr := s.reconciler.DeleteMany(ctx, catalog.StorageIDs()); cleanupErr != nil {
		s.logCleanup("delete", cleanupErr)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrCatalogNotFound) {
			return &domain.NotFoundError{ID: id.String()}
		}
		return &domain.PersistenceError{Err: err}
	}

	s.logger.Info("Catalog deleted", zap.String("catalog_id", id.String()))
	return nil
}

// GetAll lists catalogs matching the filter, newest-created-first.
func (s *catalogService) GetAll(ctx context.Context, filter domain.CatalogFilter) ([]*domain.Catalog, error) {
	catalogs, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, &domain.PersistenceError{Err: err}
	}
	return catalogs, nil
}

// GetByID retrieves a single catalog.
func (s *catalogService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Catalog, error) {
	return s.fetch(ctx, id)
}

// GetColors returns the color labels of a catalog.
func (s *catalogService) GetColors(ctx context.Context, id uuid.UUID) ([]string, error) {
	catalog, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	return catalog.Colors, nil
}

// CheckStock reports the global stock level. Stock is not tracked per color
// or size.
func (s *catalogService) CheckStock(ctx context.Context, id uuid.UUID) (*StockStatus, error) {
	catalog, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	return &StockStatus{
		Stock:     catalog.Stock,
		Available: catalog.Stock > 0,
	}, nil
}

func (s *catalogService) fetch(ctx context.Context, id uuid.UUID) (*domain.Catalog, error) {
	catalog, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCatalogNotFound) {
			return nil, &domain.NotFoundError{ID: id.String()}
		}
		return nil, &domain.PersistenceError{Err: err}
	}
	return catalog, nil
}

// compensate deletes objects uploaded by a failed call. Failures are logged
// and swallowed: the caller's outcome is determined by the primary step alone.
func (s *catalogService) compensate(ctx context.Context, op string, storageIDs []string) {
	if len(storageIDs) == 0 {
		return
	}
	if cleanupErr := s.reconciler.DeleteMany(ctx, storageIDs); cleanupErr != nil {
		s.logCleanup(op, cleanupErr)
	}
}

func (s *catalogService) logCleanup(op string, cleanupErr *domain.CleanupError) {
	s.logger.Warn("Best-effort cleanup leaked objects",
		zap.String("operation", op),
		zap.Strings("storage_ids", cleanupErr.StorageIDs),
		zap.Int("errors", len(cleanupErr.Errs)),
	)
}

// ParseLabels decodes a colors/sizes field that arrives either as repeated
// form values or as a single JSON-serialized array. Blank entries are dropped.
// This is the single decode point; callers never special-case the two shapes.
func ParseLabels(values []string) ([]string, error) {
	var raw []string

	if len(values) == 1 && strings.HasPrefix(strings.TrimSpace(values[0]), "[") {
		if err := json.Unmarshal([]byte(values[0]), &raw); err != nil {
			return nil, err
		}
	} else {
		raw = values
	}

	labels := make([]string, 0, len(raw))
	for _, v := range raw {
		v = strings.TrimSpace(v)
		if v != "" {
			labels = append(labels, v)
		}
	}
	return labels, nil
}

func storageIDsOf(refs []domain.ImageRef) []string {
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		ids = append(ids, ref.StorageID)
	}
	return ids
}

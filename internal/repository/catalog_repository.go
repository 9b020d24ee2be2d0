package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"catalog-api/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrCatalogNotFound = errors.New("catalog not found")
)

// CatalogRepository defines the interface for catalog data access.
type CatalogRepository interface {
	Create(ctx context.Context, catalog *domain.Catalog) error
	Update(ctx context.Context, catalog *domain.Catalog) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Catalog, error)
	List(ctx context.Context, filter domain.CatalogFilter) ([]*domain.Catalog, error)
}

type catalogRepository struct {
	db *sql.DB
}

// NewCatalogRepository creates a new instance of CatalogRepository.
func NewCatalogRepository(db *sql.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

// Create inserts a new catalog record using parameterized queries.
func (r *catalogRepository) Create(ctx context.Context, catalog *domain.Catalog) error {
	images, colors, sizes, err := marshalAggregates(catalog)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO catalogs (id, product_name, product_price, product_description, category,
			images, colors, sizes, stock, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = r.db.ExecContext(
		ctx,
		query,
		catalog.ID,
		catalog.ProductName,
		catalog.ProductPrice,
		catalog.ProductDescription,
		nullableString(catalog.Category),
		images,
		colors,
		sizes,
		catalog.Stock,
		catalog.IsActive,
		catalog.CreatedAt,
		catalog.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create catalog: %w", err)
	}

	return nil
}

// Update writes the full merged record. The service performs the partial
// merge; concurrent updates are last-write-wins at this layer.
func (r *catalogRepository) Update(ctx context.Context, catalog *domain.Catalog) error {
	images, colors, sizes, err := marshalAggregates(catalog)
	if err != nil {
		return err
	}

	query := `
		UPDATE catalogs
		SET product_name = $2, product_price = $3, product_description = $4, category = $5,
		    images = $6, colors = $7, sizes = $8, stock = $9, is_active = $10, updated_at = $11
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		catalog.ID,
		catalog.ProductName,
		catalog.ProductPrice,
		catalog.ProductDescription,
		nullableString(catalog.Category),
		images,
		colors,
		sizes,
		catalog.Stock,
		catalog.IsActive,
		catalog.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update catalog: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrCatalogNotFound
	}

	return nil
}

// Delete removes a catalog record.
func (r *catalogRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM catalogs WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete catalog: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrCatalogNotFound
	}

	return nil
}

// FindByID retrieves a catalog record by ID.
func (r *catalogRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Catalog, error) {
	query := `
		SELECT id, product_name, product_price, product_description, category,
			images, colors, sizes, stock, is_active, created_at, updated_at
		FROM catalogs
		WHERE id = $1
	`

	catalog, err := scanCatalog(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCatalogNotFound
		}
		return nil, fmt.Errorf("failed to find catalog by ID: %w", err)
	}

	return catalog, nil
}

// List retrieves catalogs matching the filter, newest-created-first.
func (r *catalogRepository) List(ctx context.Context, filter domain.CatalogFilter) ([]*domain.Catalog, error) {
	whereClause := ""
	args := []interface{}{}
	argIndex := 1

	if filter.Category != nil {
		whereClause = fmt.Sprintf("WHERE category = $%d", argIndex)
		args = append(args, *filter.Category)
		argIndex++
	}

	if filter.IsActive != nil {
		if whereClause == "" {
			whereClause = fmt.Sprintf("WHERE is_active = $%d", argIndex)
		} else {
			whereClause += fmt.Sprintf(" AND is_active = $%d", argIndex)
		}
		args = append(args, *filter.IsActive)
	}

	query := fmt.Sprintf(`
		SELECT id, product_name, product_price, product_description, category,
			images, colors, sizes, stock, is_active, created_at, updated_at
		FROM catalogs
		%s
		ORDER BY created_at DESC
	`, whereClause)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalogs: %w", err)
	}
	defer rows.Close()

	catalogs := []*domain.Catalog{}
	for rows.Next() {
		catalog, err := scanCatalog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan catalog: %w", err)
		}
		catalogs = append(catalogs, catalog)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating catalogs: %w", err)
	}

	return catalogs, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCatalog(row rowScanner) (*domain.Catalog, error) {
	catalog := &domain.Catalog{}
	var category sql.NullString
	var images, colors, sizes []byte

	err := row.Scan(
		&catalog.ID,
		&catalog.ProductName,
		&catalog.ProductPrice,
		&catalog.ProductDescription,
		&category,
		&images,
		&colors,
		&sizes,
		&catalog.Stock,
		&catalog.IsActive,
		&catalog.CreatedAt,
		&catalog.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	catalog.Category = category.String

	if err := json.Unmarshal(images, &catalog.Images); err != nil {
		return nil, fmt.Errorf("failed to decode images column: %w", err)
	}
	if err := json.Unmarshal(colors, &catalog.Colors); err != nil {
		return nil, fmt.Errorf("failed to decode colors column: %w", err)
	}
	if err := json.Unmarshal(sizes, &catalog.Sizes); err != nil {
		return nil, fmt.Errorf("failed to decode sizes column: %w", err)
	}

	return catalog, nil
}

func marshalAggregates(catalog *domain.Catalog) (images, colors, sizes []byte, err error) {
	if catalog.Images == nil {
		catalog.Images = []domain.ImageRef{}
	}

	images, err = json.Marshal(catalog.Images)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode images: %w", err)
	}
	colors, err = json.Marshal(catalog.Colors)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode colors: %w", err)
	}
	sizes, err = json.Marshal(catalog.Sizes)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to encode sizes: %w", err)
	}
	return images, colors, sizes, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

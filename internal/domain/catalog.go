package domain

import (
	"time"

	"github.com/google/uuid"
)

// Catalog represents a sellable product with its hosted images and
// color/size/stock metadata.
type Catalog struct {
	ID                 uuid.UUID  `json:"id" db:"id"`
	ProductName        string     `json:"product_name" db:"product_name"`
	ProductPrice       float64    `json:"product_price" db:"product_price"`
	ProductDescription string     `json:"product_description" db:"product_description"`
	Category           string     `json:"category,omitempty" db:"category"`
	Images             []ImageRef `json:"images" db:"images"`
	Colors             []string   `json:"colors" db:"colors"`
	Sizes              []string   `json:"sizes" db:"sizes"`
	Stock              int        `json:"stock" db:"stock"`
	IsActive           bool       `json:"is_active" db:"is_active"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
}

// ImageRef points at one object in the external image store. The object is
// owned by the catalog record that references it: it is created before the
// record row and destroyed with it.
type ImageRef struct {
	URL       string `json:"url"`
	StorageID string `json:"storage_id"`
	IsPrimary bool   `json:"is_primary"`
}

// PrimaryImage returns the designated representative image, if any.
func (c *Catalog) PrimaryImage() (ImageRef, bool) {
	for _, img := range c.Images {
		if img.IsPrimary {
			return img, true
		}
	}
	return ImageRef{}, false
}

// StorageIDs lists the storage identifiers of every referenced image.
func (c *Catalog) StorageIDs() []string {
	ids := make([]string, 0, len(c.Images))
	for _, img := range c.Images {
		ids = append(ids, img.StorageID)
	}
	return ids
}

// CatalogFilter narrows listing results. Nil fields are ignored.
type CatalogFilter struct {
	Category *string
	IsActive *bool
}

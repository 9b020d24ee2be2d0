package transport

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"catalog-api/internal/domain"
	"catalog-api/internal/middleware"
	"catalog-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// MaxFileSize limits each uploaded image to 5MB.
	MaxFileSize = 5 << 20
	// maxMultipartMemory bounds the in-memory portion of multipart parsing.
	maxMultipartMemory = 32 << 20

	imagesField = "images"
)

var allowedImageExtensions = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// CreateCatalogRequest mirrors the multipart form fields of POST /catalogs.
type CreateCatalogRequest struct {
	ProductName        string  `validate:"required"`
	ProductPrice       float64 `validate:"gte=0"`
	ProductDescription string  `validate:"required"`
	Stock              int     `validate:"gte=0"`
}

// CatalogResponse is the success envelope the API speaks.
type CatalogResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Count   *int        `json:"count,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// CatalogHandler handles HTTP requests for catalog operations.
type CatalogHandler struct {
	catalogService service.CatalogService
	logger         *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(catalogService service.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		logger:         logger,
	}
}

// RegisterRoutes registers all catalog routes. Write routes go behind the
// supplied guard (JWT + admin role); the read path is public.
func (h *CatalogHandler) RegisterRoutes(r chi.Router, writeGuard ...func(http.Handler) http.Handler) {
	r.Route("/catalogs", func(r chi.Router) {
		r.Get("/", h.GetAll)
		r.Get("/{id}", h.GetByID)
		r.Get("/{id}/colors", h.GetColors)
		r.Get("/{id}/stock", h.CheckStock)

		r.Group(func(r chi.Router) {
			for _, mw := range writeGuard {
				r.Use(mw)
			}
			r.Post("/", h.Create)
			r.Patch("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		})
	})
}

// Create handles POST /catalogs.
func (h *CatalogHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		h.logger.Debug("Invalid multipart form", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	price, err := parsePrice(r.FormValue("productPrice"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product price")
		return
	}

	stock, err := parseStock(r.FormValue("stock"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid stock value")
		return
	}

	req := CreateCatalogRequest{
		ProductName:        r.FormValue("productName"),
		ProductPrice:       price,
		ProductDescription: r.FormValue("productDescription"),
		Stock:              stock,
	}
	if err := middleware.ValidateRequest(&req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request")
		return
	}

	files, cleanup, err := h.openImageFiles(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer cleanup()

	input := service.CreateCatalogInput{
		ProductName:        req.ProductName,
		ProductPrice:       req.ProductPrice,
		ProductDescription: req.ProductDescription,
		Category:           r.FormValue("category"),
		Colors:             r.Form["colors"],
		Sizes:              r.Form["sizes"],
		Stock:              req.Stock,
	}

	catalog, err := h.catalogService.Create(r.Context(), input, files)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, CatalogResponse{
		Success: true,
		Message: "catalog created",
		Data:    catalog,
	})
}

// Update handles PATCH /catalogs/{id}.
func (h *CatalogHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		h.logger.Debug("Invalid multipart form", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	var input service.UpdateCatalogInput

	if v, ok := formValue(r, "productName"); ok {
		input.ProductName = &v
	}
	if v, ok := formValue(r, "productDescription"); ok {
		input.ProductDescription = &v
	}
	if v, ok := formValue(r, "category"); ok {
		input.Category = &v
	}
	if v, ok := formValue(r, "productPrice"); ok {
		price, err := parsePrice(v)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid product price")
			return
		}
		input.ProductPrice = &price
	}
	if v, ok := formValue(r, "stock"); ok {
		stock, err := strconv.Atoi(v)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid stock value")
			return
		}
		input.Stock = &stock
	}
	if v, ok := formValue(r, "isActive"); ok {
		active, err := strconv.ParseBool(v)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid isActive value")
			return
		}
		input.IsActive = &active
	}

	input.Colors = r.Form["colors"]
	input.Sizes = r.Form["sizes"]

	if v, ok := formValue(r, "existingImages"); ok {
		var existing []domain.ImageRef
		if err := json.Unmarshal([]byte(v), &existing); err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid existingImages format")
			return
		}
		input.ExistingImages = existing
	}
	if v, ok := formValue(r, "deletedImages"); ok {
		var deleted []string
		if err := json.Unmarshal([]byte(v), &deleted); err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid deletedImages format")
			return
		}
		input.RemoveStorageIDs = deleted
	}

	files, cleanup, err := h.openImageFiles(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer cleanup()
	input.NewFiles = files

	catalog, err := h.catalogService.Update(r.Context(), id, input)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, CatalogResponse{
		Success: true,
		Message: "catalog updated",
		Data:    catalog,
	})
}

// Delete handles DELETE /catalogs/{id}.
func (h *CatalogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	if err := h.catalogService.Delete(r.Context(), id); err != nil {
		h.respondError(w, r, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, CatalogResponse{
		Success: true,
		Message: "catalog deleted",
	})
}

// GetAll handles GET /catalogs with optional category/isActive filters.
func (h *CatalogHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	var filter domain.CatalogFilter

	if category := r.URL.Query().Get("category"); category != "" {
		filter.Category = &category
	}
	if activeParam := r.URL.Query().Get("isActive"); activeParam != "" {
		active := activeParam == "true"
		filter.IsActive = &active
	}

	catalogs, err := h.catalogService.GetAll(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	count := len(catalogs)
	middleware.RespondWithJSON(w, http.StatusOK, CatalogResponse{
		Success: true,
		Message: "catalogs retrieved",
		Count:   &count,
		Data:    catalogs,
	})
}

// GetByID handles GET /catalogs/{id}.
func (h *CatalogHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	catalog, err := h.catalogService.GetByID(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, CatalogResponse{
		Success: true,
		Data:    catalog,
	})
}

// GetColors handles GET /catalogs/{id}/colors.
func (h *CatalogHandler) GetColors(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	colors, err := h.catalogService.GetColors(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, CatalogResponse{
		Success: true,
		Data:    colors,
	})
}

// CheckStock handles GET /catalogs/{id}/stock.
func (h *CatalogHandler) CheckStock(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	status, err := h.catalogService.CheckStock(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, CatalogResponse{
		Success: true,
		Data:    status,
	})
}

// openImageFiles validates and opens the "images" attachments. The returned
// cleanup closes every opened file and must be called by the caller.
func (h *CatalogHandler) openImageFiles(r *http.Request) ([]service.ImageUpload, func(), error) {
	noop := func() {}

	if r.MultipartForm == nil {
		return nil, noop, nil
	}

	headers := r.MultipartForm.File[imagesField]
	if len(headers) == 0 {
		return nil, noop, nil
	}
	if len(headers) > service.MaxImagesPerCatalog {
		return nil, noop, errors.New("too many files: at most 10 images are allowed")
	}

	var opened []multipart.File
	cleanup := func() {
		for _, f := range opened {
			f.Close()
		}
	}

	files := make([]service.ImageUpload, 0, len(headers))
	for _, header := range headers {
		if header.Size > MaxFileSize {
			cleanup()
			return nil, noop, errors.New("file too large: at most 5MB per image")
		}

		ext := strings.ToLower(filepath.Ext(header.Filename))
		if !allowedImageExtensions[ext] {
			cleanup()
			return nil, noop, errors.New("only image files are allowed")
		}

		file, err := header.Open()
		if err != nil {
			cleanup()
			return nil, noop, errors.New("failed to read uploaded file")
		}
		opened = append(opened, file)

		files = append(files, service.ImageUpload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Reader:      file,
		})
	}

	return files, cleanup, nil
}

func (h *CatalogHandler) parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid catalog id")
		return uuid.Nil, false
	}
	return id, true
}

// respondError maps the service error taxonomy to HTTP statuses. Validation
// and not-found map to 4xx; upload and persistence failures map to 500 and
// get logged with the request path.
func (h *CatalogHandler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *domain.ValidationError
	var notFoundErr *domain.NotFoundError
	var uploadErr *domain.UploadError
	var persistenceErr *domain.PersistenceError

	switch {
	case errors.As(err, &validationErr):
		middleware.RespondWithError(w, http.StatusBadRequest, validationErr.Message)
	case errors.As(err, &notFoundErr):
		middleware.RespondWithError(w, http.StatusNotFound, "catalog not found")
	case errors.As(err, &uploadErr):
		h.logger.Error("Image upload failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to upload images")
	case errors.As(err, &persistenceErr):
		h.logger.Error("Catalog persistence failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to save catalog")
	default:
		h.logger.Error("Unexpected error",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		middleware.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

func formValue(r *http.Request, key string) (string, bool) {
	if r.MultipartForm == nil {
		return "", false
	}
	values, ok := r.MultipartForm.Value[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

func parsePrice(raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseFloat(raw, 64)
}

func parseStock(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

package transport

import (
	"errors"
	"net/http"

	"threadcart/internal/domain"
	"threadcart/internal/media"
	"threadcart/internal/middleware"
	"threadcart/internal/repository"
	"threadcart/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// uploadField is the multipart form field holding the image bytes.
const uploadField = "product"

// AddProductRequest represents the product creation payload. Image, when
// set, is a URL previously returned by /upload and is trusted verbatim.
type AddProductRequest struct {
	Name      string   `json:"name" validate:"required"`
	Category  string   `json:"category" validate:"required"`
	Image     string   `json:"image"`
	NewPrice  float64  `json:"new_price" validate:"required,gt=0"`
	OldPrice  float64  `json:"old_price" validate:"gte=0"`
	Available *bool    `json:"available"`
	Features  []string `json:"features"`
}

// UpdateProductRequest represents a partial product edit; absent fields are
// left untouched. Image, when set, is a URL previously returned by /upload
// and replaces the current image, bumping its cache-busting version.
type UpdateProductRequest struct {
	ID        int64     `json:"id" validate:"required,gt=0"`
	Name      *string   `json:"name"`
	Category  *string   `json:"category"`
	Image     *string   `json:"image"`
	NewPrice  *float64  `json:"new_price"`
	OldPrice  *float64  `json:"old_price"`
	Available *bool     `json:"available"`
	Features  *[]string `json:"features"`
}

// RemoveProductRequest represents the product deletion payload
type RemoveProductRequest struct {
	ID int64 `json:"id" validate:"required,gt=0"`
}

// UploadResponse is returned by /upload
type UploadResponse struct {
	Success  bool   `json:"success"`
	ImageURL string `json:"image_url"`
}

// AddProductResponse is returned by /addproduct
type AddProductResponse struct {
	Success bool            `json:"success"`
	Name    string          `json:"name"`
	Product *domain.Product `json:"product"`
}

// UpdateProductResponse is returned by /updateproduct
type UpdateProductResponse struct {
	Success bool            `json:"success"`
	Product *domain.Product `json:"product"`
}

// RemoveProductResponse is returned by /removeproduct
type RemoveProductResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ProductHandler handles HTTP requests for catalog operations
type ProductHandler struct {
	catalog        service.CatalogService
	maxUploadBytes int64
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(catalog service.CatalogService, maxUploadBytes int64, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		catalog:        catalog,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// RegisterRoutes registers all catalog routes. Mutating routes go behind the
// admin middleware chain.
func (h *ProductHandler) RegisterRoutes(r chi.Router, adminOnly ...func(http.Handler) http.Handler) {
	r.Get("/allproducts", h.AllProducts)
	r.Get("/newcollections", h.NewCollections)
	r.Get("/popular", h.Popular)
	r.Get("/products/category/{category}", h.ByCategory)

	r.Group(func(r chi.Router) {
		for _, mw := range adminOnly {
			r.Use(mw)
		}
		r.Post("/upload", h.Upload)
		r.Post("/addproduct", h.AddProduct)
		r.Post("/updateproduct", h.UpdateProduct)
		r.Post("/removeproduct", h.RemoveProduct)
	})
}

// Upload handles image uploads to the media store. Nothing is written to the
// catalog; the client posts the returned URL to /addproduct.
func (h *ProductHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		h.logger.Debug("Upload form parsing failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "missing image file field 'product'")
		return
	}
	defer file.Close()

	result, err := h.catalog.UploadImage(r.Context(), file)
	if err != nil {
		h.logger.Error("Image upload failed",
			zap.String("filename", header.Filename),
			zap.Error(err),
		)
		h.respondCatalogError(w, err)
		return
	}

	h.logger.Info("Image uploaded",
		zap.String("filename", header.Filename),
		zap.String("public_id", result.PublicID),
	)
	middleware.RespondWithJSON(w, http.StatusOK, UploadResponse{
		Success:  true,
		ImageURL: result.URL,
	})
}

// AddProduct handles catalog record creation
func (h *ProductHandler) AddProduct(w http.ResponseWriter, r *http.Request) {
	var req AddProductRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Add product validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.catalog.AddProduct(r.Context(), service.AddProductInput{
		Name:      req.Name,
		Category:  req.Category,
		Image:     req.Image,
		NewPrice:  req.NewPrice,
		OldPrice:  req.OldPrice,
		Available: req.Available,
		Features:  req.Features,
	})
	if err != nil {
		h.logger.Error("Add product failed", zap.Error(err))
		h.respondCatalogError(w, err)
		return
	}

	h.logger.Info("Product added",
		zap.Int64("product_id", product.ID),
		zap.String("name", product.Name),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, AddProductResponse{
		Success: true,
		Name:    product.Name,
		Product: product,
	})
}

// UpdateProduct handles partial attribute edits
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req UpdateProductRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Update product validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Image != nil && *req.Image == "" {
		middleware.RespondWithError(w, http.StatusBadRequest, "image must not be empty")
		return
	}

	product, err := h.catalog.UpdateProduct(r.Context(), req.ID, domain.ProductUpdate{
		Name:      req.Name,
		Category:  req.Category,
		NewPrice:  req.NewPrice,
		OldPrice:  req.OldPrice,
		Available: req.Available,
		Features:  req.Features,
	})
	if err != nil {
		h.logger.Error("Update product failed", zap.Int64("product_id", req.ID), zap.Error(err))
		h.respondCatalogError(w, err)
		return
	}

	if req.Image != nil {
		product, err = h.catalog.ReplaceProductImageURL(r.Context(), req.ID, *req.Image)
		if err != nil {
			h.logger.Error("Replace product image failed", zap.Int64("product_id", req.ID), zap.Error(err))
			h.respondCatalogError(w, err)
			return
		}
	}

	h.logger.Info("Product updated", zap.Int64("product_id", product.ID))
	middleware.RespondWithJSON(w, http.StatusOK, UpdateProductResponse{
		Success: true,
		Product: product,
	})
}

// RemoveProduct deletes the remote image first and the catalog row only
// after the media store confirmed the object is gone (or was never there).
func (h *ProductHandler) RemoveProduct(w http.ResponseWriter, r *http.Request) {
	var req RemoveProductRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Remove product validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.catalog.RemoveProduct(r.Context(), req.ID); err != nil {
		h.logger.Error("Remove product failed", zap.Int64("product_id", req.ID), zap.Error(err))
		h.respondCatalogError(w, err)
		return
	}

	h.logger.Info("Product removed", zap.Int64("product_id", req.ID))
	middleware.RespondWithJSON(w, http.StatusOK, RemoveProductResponse{
		Success: true,
		Message: "product removed",
	})
}

// AllProducts lists the whole catalog with cache-busted image URLs
func (h *ProductHandler) AllProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.ListProducts(r.Context())
	if err != nil {
		h.logger.Error("List products failed", zap.Error(err))
		h.respondCatalogError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, products)
}

// NewCollections returns the new-collections shelf slice
func (h *ProductHandler) NewCollections(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.NewCollections(r.Context())
	if err != nil {
		h.logger.Error("New collections failed", zap.Error(err))
		h.respondCatalogError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, products)
}

// Popular returns the popular shelf slice
func (h *ProductHandler) Popular(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.Popular(r.Context())
	if err != nil {
		h.logger.Error("Popular products failed", zap.Error(err))
		h.respondCatalogError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, products)
}

// ByCategory lists products for one category shelf
func (h *ProductHandler) ByCategory(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	if category == "" {
		middleware.RespondWithError(w, http.StatusBadRequest, "missing category")
		return
	}

	products, err := h.catalog.ProductsByCategory(r.Context(), category)
	if err != nil {
		h.logger.Error("List by category failed", zap.String("category", category), zap.Error(err))
		h.respondCatalogError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, products)
}

// respondCatalogError maps service and repository errors onto the error
// envelope.
func (h *ProductHandler) respondCatalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, media.ErrNoImage):
		middleware.RespondWithError(w, http.StatusConflict, "product has no image")
	case errors.Is(err, media.ErrUpload):
		middleware.RespondWithError(w, http.StatusBadGateway, "failed to upload image")
	case errors.Is(err, service.ErrMediaDelete):
		middleware.RespondWithError(w, http.StatusBadGateway, "failed to delete product image")
	default:
		middleware.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

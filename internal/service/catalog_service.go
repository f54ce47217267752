package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"threadcart/internal/domain"
	"threadcart/internal/media"
	"threadcart/internal/repository"
)

const (
	// createAttempts bounds the optimistic insert-and-retry loop used to
	// resolve ID collisions between concurrent creators.
	createAttempts = 5
)

var (
	// ErrMediaDelete means the media store failed to confirm deletion of a
	// product image. The catalog row is left in place so the two stores
	// never diverge towards "row gone, image still stored silently".
	ErrMediaDelete = errors.New("failed to delete product image from media store")
)

// AddProductInput carries the metadata for a new catalog record. Image, when
// set, is a pre-uploaded media URL and is trusted verbatim.
type AddProductInput struct {
	Name      string
	Category  string
	Image     string
	NewPrice  float64
	OldPrice  float64
	Available *bool
	Features  []string
}

// CatalogService coordinates the media store and the catalog so that every
// product's image field references a live, uniquely owned remote object.
type CatalogService interface {
	// UploadImage stores raw image bytes and returns the remote location.
	// Nothing is written to the catalog.
	UploadImage(ctx context.Context, r io.Reader) (*media.UploadResult, error)

	// AddProduct inserts a catalog record, assigning the next free ID.
	AddProduct(ctx context.Context, input AddProductInput) (*domain.Product, error)

	// AddProductWithImage uploads the image first and inserts the record
	// only on upload success. A catalog failure after a successful upload
	// leaves an orphaned remote object for the reconciliation sweep.
	AddProductWithImage(ctx context.Context, input AddProductInput, image io.Reader) (*domain.Product, error)

	// UpdateProduct applies a shallow partial edit of product attributes.
	UpdateProduct(ctx context.Context, id int64, update domain.ProductUpdate) (*domain.Product, error)

	// ReplaceProductImage uploads a new image for an existing product and
	// bumps its cache-busting version. The previous remote object is
	// destroyed best-effort; a leftover is cleaned up by the sweep.
	ReplaceProductImage(ctx context.Context, id int64, image io.Reader) (*domain.Product, error)

	// ReplaceProductImageURL points an existing product at a pre-uploaded
	// media URL and bumps its cache-busting version. The URL is trusted
	// verbatim, same as on create.
	ReplaceProductImageURL(ctx context.Context, id int64, imageURL string) (*domain.Product, error)

	// RemoveProduct deletes the remote image first and the catalog row
	// only after a confirmed-safe destroy.
	RemoveProduct(ctx context.Context, id int64) error

	ListProducts(ctx context.Context) ([]*domain.Product, error)
	NewCollections(ctx context.Context) ([]*domain.Product, error)
	Popular(ctx context.Context) ([]*domain.Product, error)
	ProductsByCategory(ctx context.Context, category string) ([]*domain.Product, error)
}

type catalogService struct {
	products repository.ProductRepository
	media    media.Store
	folder   string
}

// NewCatalogService creates a new instance of CatalogService. folder is the
// media store prefix product images live under.
func NewCatalogService(products repository.ProductRepository, mediaStore media.Store, folder string) CatalogService {
	return &catalogService{
		products: products,
		media:    mediaStore,
		folder:   folder,
	}
}

func (s *catalogService) UploadImage(ctx context.Context, r io.Reader) (*media.UploadResult, error) {
	result, err := s.media.Upload(ctx, r, s.folder)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *catalogService) AddProduct(ctx context.Context, input AddProductInput) (*domain.Product, error) {
	product := s.buildProduct(input)

	// The URL was uploaded out-of-band; the public ID is derived now so
	// deletion never has to parse the URL again.
	if product.Image != "" {
		if publicID, err := media.PublicIDFromURL(product.Image, s.folder); err == nil {
			product.ImagePublicID = publicID
		}
	}

	if err := s.insertWithRetry(ctx, product); err != nil {
		return nil, err
	}

	return product, nil
}

func (s *catalogService) AddProductWithImage(ctx context.Context, input AddProductInput, image io.Reader) (*domain.Product, error) {
	// Upload before insert: a failed upload costs nothing, a failed
	// insert after a successful upload leaves an orphan the sweep removes.
	uploaded, err := s.media.Upload(ctx, image, s.folder)
	if err != nil {
		return nil, err
	}

	product := s.buildProduct(input)
	product.Image = uploaded.URL
	product.ImagePublicID = uploaded.PublicID

	if err := s.insertWithRetry(ctx, product); err != nil {
		return nil, err
	}

	return product, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, id int64, update domain.ProductUpdate) (*domain.Product, error) {
	if err := s.products.UpdateFields(ctx, id, update); err != nil {
		return nil, err
	}
	return s.products.FindByID(ctx, id)
}

func (s *catalogService) ReplaceProductImage(ctx context.Context, id int64, image io.Reader) (*domain.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	uploaded, err := s.media.Upload(ctx, image, s.folder)
	if err != nil {
		return nil, err
	}

	if err := s.products.ReplaceImage(ctx, id, uploaded.URL, uploaded.PublicID); err != nil {
		return nil, err
	}

	// The replaced object is destroyed best-effort only: the catalog
	// already points at the new upload, so a failure here merely leaves
	// an orphan for the sweep.
	if product.Image != "" {
		if publicID, derr := s.publicIDFor(product); derr == nil {
			_, _ = s.media.Destroy(ctx, publicID)
		}
	}

	return s.products.FindByID(ctx, id)
}

func (s *catalogService) ReplaceProductImageURL(ctx context.Context, id int64, imageURL string) (*domain.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// The public ID is derived now so deletion never has to parse the URL
	// again.
	publicID := ""
	if derived, derr := media.PublicIDFromURL(imageURL, s.folder); derr == nil {
		publicID = derived
	}

	if err := s.products.ReplaceImage(ctx, id, imageURL, publicID); err != nil {
		return nil, err
	}

	// Destroy the replaced object best-effort, but never when the client
	// re-posted the URL the row already holds.
	if product.Image != "" && baseURL(product.Image) != baseURL(imageURL) {
		if oldID, derr := s.publicIDFor(product); derr == nil {
			_, _ = s.media.Destroy(ctx, oldID)
		}
	}

	return s.products.FindByID(ctx, id)
}

func (s *catalogService) RemoveProduct(ctx context.Context, id int64) error {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return err
	}

	// Products without an image skip the media store entirely.
	if product.Image != "" {
		publicID, err := s.publicIDFor(product)
		if err != nil {
			return err
		}

		// Destroy before the catalog delete. "not_found" is success: the
		// remote object may already be gone.
		outcome, err := s.media.Destroy(ctx, publicID)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMediaDelete, err)
		}
		if outcome != media.DestroyOK && outcome != media.DestroyNotFound {
			return fmt.Errorf("%w: unexpected outcome %q", ErrMediaDelete, outcome)
		}
	}

	return s.products.Delete(ctx, id)
}

func (s *catalogService) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	products, err := s.products.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return cacheBusted(products), nil
}

func (s *catalogService) NewCollections(ctx context.Context) ([]*domain.Product, error) {
	products, err := s.products.FindPage(ctx, 1, 8)
	if err != nil {
		return nil, err
	}
	return cacheBusted(products), nil
}

func (s *catalogService) Popular(ctx context.Context) ([]*domain.Product, error) {
	products, err := s.products.FindPage(ctx, 1, 3)
	if err != nil {
		return nil, err
	}
	return cacheBusted(products), nil
}

func (s *catalogService) ProductsByCategory(ctx context.Context, category string) ([]*domain.Product, error) {
	products, err := s.products.ListByCategory(ctx, category)
	if err != nil {
		return nil, err
	}
	return cacheBusted(products), nil
}

func (s *catalogService) buildProduct(input AddProductInput) *domain.Product {
	available := true
	if input.Available != nil {
		available = *input.Available
	}

	features := input.Features
	if features == nil {
		features = []string{}
	}

	return &domain.Product{
		Name:         input.Name,
		Category:     input.Category,
		Image:        input.Image,
		ImageVersion: 1,
		NewPrice:     input.NewPrice,
		OldPrice:     input.OldPrice,
		Available:    available,
		Features:     features,
		Date:         time.Now().UTC(),
	}
}

// insertWithRetry reads the next free ID and inserts, retrying with a fresh
// ID when a concurrent creator won the race to the same one.
func (s *catalogService) insertWithRetry(ctx context.Context, product *domain.Product) error {
	var err error
	for attempt := 0; attempt < createAttempts; attempt++ {
		var id int64
		id, err = s.products.NextID(ctx)
		if err != nil {
			return err
		}

		product.ID = id
		err = s.products.Create(ctx, product)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicateProductID) {
			return err
		}
	}
	return fmt.Errorf("exhausted %d id assignment attempts: %w", createAttempts, err)
}

func (s *catalogService) publicIDFor(product *domain.Product) (string, error) {
	if product.ImagePublicID != "" {
		return product.ImagePublicID, nil
	}
	return media.PublicIDFromURL(product.Image, s.folder)
}

// cacheBusted appends ?v=<imageVersion> to every image URL. This decorates
// the response only; the stored URL is never rewritten.
func cacheBusted(products []*domain.Product) []*domain.Product {
	decorated := make([]*domain.Product, len(products))
	for i, p := range products {
		cp := *p
		if cp.Image != "" {
			cp.Image = fmt.Sprintf("%s?v=%d", cp.Image, cp.ImageVersion)
		}
		decorated[i] = &cp
	}
	return decorated
}

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"threadcart/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrProductNotFound = errors.New("product not found")

	// ErrDuplicateProductID signals a primary-key collision between two
	// concurrent NextID+Create sequences. Callers re-read NextID and retry.
	ErrDuplicateProductID = errors.New("product id already taken")
)

// ImageRef pairs a product's stored image URL with its media public ID.
// PublicID is empty for rows created from a client-supplied URL.
type ImageRef struct {
	URL      string
	PublicID string
}

// ProductRepository defines the interface for catalog data access
type ProductRepository interface {
	// NextID returns max(id)+1, or 1 for an empty catalog. Not atomic
	// against concurrent callers; Create reports ErrDuplicateProductID
	// when two writers race to the same ID.
	NextID(ctx context.Context) (int64, error)
	Create(ctx context.Context, product *domain.Product) error
	UpdateFields(ctx context.Context, id int64, update domain.ProductUpdate) error
	ReplaceImage(ctx context.Context, id int64, url, publicID string) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*domain.Product, error)
	FindAll(ctx context.Context) ([]*domain.Product, error)
	FindPage(ctx context.Context, skip, limit int) ([]*domain.Product, error)
	ListByCategory(ctx context.Context, category string) ([]*domain.Product, error)
	ImageRefs(ctx context.Context) ([]ImageRef, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = "id, name, category, image, image_public_id, image_version, new_price, old_price, available, features, created_at"

// NextID reads the current maximum product ID.
func (r *productRepository) NextID(ctx context.Context) (int64, error) {
	var maxID sql.NullInt64
	err := r.db.QueryRowContext(ctx, `SELECT MAX(id) FROM products`).Scan(&maxID)
	if err != nil {
		return 0, fmt.Errorf("failed to read max product id: %w", err)
	}
	if !maxID.Valid {
		return 1, nil
	}
	return maxID.Int64 + 1, nil
}

// Create inserts a new product into the database using parameterized queries
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	features, err := json.Marshal(product.Features)
	if err != nil {
		return fmt.Errorf("failed to encode features: %w", err)
	}

	query := `
		INSERT INTO products (id, name, category, image, image_public_id, image_version, new_price, old_price, available, features, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Category,
		product.Image,
		product.ImagePublicID,
		product.ImageVersion,
		product.NewPrice,
		product.OldPrice,
		product.Available,
		features,
		product.Date,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateProductID
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// UpdateFields applies a shallow partial update: only non-nil fields are
// written, everything else is retained.
func (r *productRepository) UpdateFields(ctx context.Context, id int64, update domain.ProductUpdate) error {
	setClauses := []string{}
	args := []interface{}{id}
	argIndex := 2

	addClause := func(column string, value interface{}) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argIndex))
		args = append(args, value)
		argIndex++
	}

	if update.Name != nil {
		addClause("name", *update.Name)
	}
	if update.Category != nil {
		addClause("category", *update.Category)
	}
	if update.NewPrice != nil {
		addClause("new_price", *update.NewPrice)
	}
	if update.OldPrice != nil {
		addClause("old_price", *update.OldPrice)
	}
	if update.Available != nil {
		addClause("available", *update.Available)
	}
	if update.Features != nil {
		features, err := json.Marshal(*update.Features)
		if err != nil {
			return fmt.Errorf("failed to encode features: %w", err)
		}
		addClause("features", features)
	}

	if len(setClauses) == 0 {
		// Nothing to change, but the row must still exist.
		_, err := r.FindByID(ctx, id)
		return err
	}

	query := "UPDATE products SET "
	for i, clause := range setClauses {
		if i > 0 {
			query += ", "
		}
		query += clause
	}
	query += " WHERE id = $1"

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// ReplaceImage points the product at a new remote object and bumps the
// cache-busting version counter in the same statement.
func (r *productRepository) ReplaceImage(ctx context.Context, id int64, url, publicID string) error {
	query := `
		UPDATE products
		SET image = $2, image_public_id = $3, image_version = image_version + 1
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, url, publicID)
	if err != nil {
		return fmt.Errorf("failed to replace product image: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// Delete removes a product from the database using parameterized queries
func (r *productRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM products WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// FindByID retrieves a product by ID using parameterized queries
func (r *productRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// FindAll returns the whole catalog in insertion (ID) order.
func (r *productRepository) FindAll(ctx context.Context) ([]*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products ORDER BY id`, productColumns)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

// FindPage returns a slice of the catalog in insertion order, skipping the
// first skip rows.
func (r *productRepository) FindPage(ctx context.Context, skip, limit int) ([]*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products ORDER BY id OFFSET $1 LIMIT $2`, productColumns)

	rows, err := r.db.QueryContext(ctx, query, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to page products: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

// ListByCategory returns all products in a category in insertion order.
func (r *productRepository) ListByCategory(ctx context.Context, category string) ([]*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE category = $1 ORDER BY id`, productColumns)

	rows, err := r.db.QueryContext(ctx, query, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list products by category: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

// ImageRefs returns the image URL and stored public ID of every product that
// has an image. Used by the reconciliation sweep.
func (r *productRepository) ImageRefs(ctx context.Context) ([]ImageRef, error) {
	query := `SELECT image, image_public_id FROM products WHERE image <> ''`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list image refs: %w", err)
	}
	defer rows.Close()

	refs := []ImageRef{}
	for rows.Next() {
		var ref ImageRef
		if err := rows.Scan(&ref.URL, &ref.PublicID); err != nil {
			return nil, fmt.Errorf("failed to scan image ref: %w", err)
		}
		refs = append(refs, ref)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating image refs: %w", err)
	}

	return refs, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	product := &domain.Product{}
	var features []byte

	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Category,
		&product.Image,
		&product.ImagePublicID,
		&product.ImageVersion,
		&product.NewPrice,
		&product.OldPrice,
		&product.Available,
		&features,
		&product.Date,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(features, &product.Features); err != nil {
		return nil, fmt.Errorf("failed to decode features: %w", err)
	}

	return product, nil
}

func collectProducts(rows *sql.Rows) ([]*domain.Product, error) {
	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

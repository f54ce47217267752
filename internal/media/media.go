// Package media wraps the external content-addressed image host. Swap
// implementations by changing the concrete type injected at startup.
package media

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrUpload indicates the media host rejected or failed an upload.
	ErrUpload = errors.New("media upload failed")

	// ErrNoImage indicates a public ID was requested for a product that
	// has no image URL.
	ErrNoImage = errors.New("product has no image")
)

// DestroyOutcome is the result of a destroy call. Deleting an object that is
// already absent is not an error.
type DestroyOutcome string

const (
	DestroyOK       DestroyOutcome = "ok"
	DestroyNotFound DestroyOutcome = "not_found"
)

// UploadResult holds the remote location of a stored object.
type UploadResult struct {
	URL      string
	PublicID string
}

// Asset is a remote object listed under a folder prefix.
type Asset struct {
	URL      string
	PublicID string
}

// Store is the interface for the media host.
type Store interface {
	// Upload stores the image bytes under the given folder and returns
	// the stable URL and public ID of the created object. Every call
	// creates a distinct object.
	Upload(ctx context.Context, r io.Reader, folder string) (*UploadResult, error)

	// Destroy removes the object addressed by publicID. It is idempotent:
	// destroying an absent object returns DestroyNotFound, not an error.
	Destroy(ctx context.Context, publicID string) (DestroyOutcome, error)

	// List returns the full set of objects under the folder prefix.
	List(ctx context.Context, prefix string) ([]Asset, error)
}

package media

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/admin"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const listPageSize = 500

// CloudinaryStore implements Store against Cloudinary.
type CloudinaryStore struct {
	client *cloudinary.Cloudinary
}

// NewCloudinaryStore builds a store from a cloudinary:// connection string.
func NewCloudinaryStore(connURL string) (*CloudinaryStore, error) {
	client, err := cloudinary.NewFromURL(connURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize media client: %w", err)
	}
	return &CloudinaryStore{client: client}, nil
}

// Upload stores the image bytes under folder. Cloudinary assigns a unique
// public ID per call, so concurrent uploads never collide on a key.
func (s *CloudinaryStore) Upload(ctx context.Context, r io.Reader, folder string) (*UploadResult, error) {
	resp, err := s.client.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder: folder,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpload, err)
	}
	if resp.Error.Message != "" {
		return nil, fmt.Errorf("%w: %s", ErrUpload, resp.Error.Message)
	}

	return &UploadResult{
		URL:      resp.SecureURL,
		PublicID: resp.PublicID,
	}, nil
}

// Destroy deletes the object addressed by publicID. Cloudinary reports a
// missing object with result "not found", which maps to DestroyNotFound.
func (s *CloudinaryStore) Destroy(ctx context.Context, publicID string) (DestroyOutcome, error) {
	resp, err := s.client.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID: publicID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to destroy %s: %w", publicID, err)
	}

	switch strings.ToLower(resp.Result) {
	case "ok":
		return DestroyOK, nil
	case "not found":
		return DestroyNotFound, nil
	default:
		return "", fmt.Errorf("unexpected destroy result %q for %s", resp.Result, publicID)
	}
}

// List walks the admin assets API until the cursor is exhausted and returns
// every object under the prefix.
func (s *CloudinaryStore) List(ctx context.Context, prefix string) ([]Asset, error) {
	var assets []Asset
	cursor := ""

	for {
		resp, err := s.client.Admin.Assets(ctx, admin.AssetsParams{
			AssetType:    api.Image,
			DeliveryType: "upload",
			Prefix:       prefix,
			MaxResults:   listPageSize,
			NextCursor:   cursor,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list assets under %s: %w", prefix, err)
		}

		for _, a := range resp.Assets {
			assets = append(assets, Asset{
				URL:      a.SecureURL,
				PublicID: a.PublicID,
			})
		}

		if resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}

	return assets, nil
}

package media

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// PublicIDFromURL derives the media host public ID from a delivery URL:
// query parameters are stripped, the final path segment is taken, its file
// extension is dropped, and the folder is prepended.
//
// This derivation is only a fallback for rows created from a client-supplied
// URL; rows uploaded through this service carry the public ID returned at
// upload time. It is known to misbehave for filenames containing literal
// dots or for URLs carrying host-side transformation segments.
func PublicIDFromURL(rawURL, folder string) (string, error) {
	if rawURL == "" {
		return "", ErrNoImage
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid image URL %q: %w", rawURL, err)
	}

	base := path.Base(u.Path)
	if base == "." || base == "/" || base == "" {
		return "", fmt.Errorf("image URL %q has no file segment", rawURL)
	}

	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}

	return folder + "/" + base, nil
}

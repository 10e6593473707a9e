// ABOUTME: Fetches images by URL for relaying into chat networks
// ABOUTME: Enforces an image content type and a size cap

package matrix

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
)

// maxImageBytes caps downloads relayed by sendimage.
const maxImageBytes = 10 << 20

type image struct {
	data     []byte
	mimeType string
	fileName string
}

func fetchImage(ctx context.Context, client *http.Client, rawURL string) (*image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building image request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching image: status %d", resp.StatusCode)
	}

	mimeType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("not an image: content type %q", mimeType)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("image larger than %d bytes", maxImageBytes)
	}

	return &image{data: data, mimeType: mimeType, fileName: imageFileName(rawURL, mimeType)}, nil
}

func imageFileName(rawURL, mimeType string) string {
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "" && base != "/" && base != "." {
			return base
		}
	}
	return "image." + strings.TrimPrefix(mimeType, "image/")
}

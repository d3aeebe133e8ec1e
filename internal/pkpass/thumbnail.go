package pkpass

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"net/http"
	"time"

	"golang.org/x/image/draw"
)

const maxPhotoBytes = 8 << 20

type size struct{ w, h int }

var thumbnailSizes = map[string]size{
	"thumbnail.png":    {68, 90},
	"thumbnail@2x.png": {136, 180},
	"thumbnail@3x.png": {204, 270},
}

// Thumbnailer fetches a holder photo and renders the three thumbnail sizes.
type Thumbnailer struct {
	http    *http.Client
	timeout time.Duration
}

func NewThumbnailer(client *http.Client, timeout time.Duration) *Thumbnailer {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Thumbnailer{http: client, timeout: timeout}
}

// Render returns PNG thumbnails keyed by archive entry name.
func (t *Thumbnailer) Render(ctx context.Context, photoURL string) (map[string][]byte, error) {
	src, err := t.fetch(ctx, photoURL)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(thumbnailSizes))
	for name, sz := range thumbnailSizes {
		dst := image.NewRGBA(image.Rect(0, 0, sz.w, sz.h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

		var buf bytes.Buffer
		if err := png.Encode(&buf, dst); err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
		out[name] = buf.Bytes()
	}
	return out, nil
}

func (t *Thumbnailer) fetch(ctx context.Context, photoURL string) (image.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, photoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build photo request: %w", err)
	}
	resp, err := t.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch photo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch photo: status %d", resp.StatusCode)
	}
	img, _, err := image.Decode(io.LimitReader(resp.Body, maxPhotoBytes))
	if err != nil {
		return nil, fmt.Errorf("decode photo: %w", err)
	}
	return img, nil
}

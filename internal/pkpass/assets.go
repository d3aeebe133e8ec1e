package pkpass

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

var (
	staticAssets = []string{
		"icon.png", "icon@2x.png", "icon@3x.png",
		"logo.png", "logo@2x.png", "logo@3x.png",
	}
	thumbnailAssets = []string{"thumbnail.png", "thumbnail@2x.png", "thumbnail@3x.png"}
)

// Assets are the bundled images shipped in every archive. Thumbnails are the
// defaults used when the holder photo cannot be rendered.
type Assets struct {
	Static     map[string][]byte
	Thumbnails map[string][]byte
}

// LoadAssets reads the template directory. icon.png is mandatory for a
// valid pass; every other image is optional.
func LoadAssets(dir string) (*Assets, error) {
	a := &Assets{Static: map[string][]byte{}, Thumbnails: map[string][]byte{}}
	if err := readInto(a.Static, dir, staticAssets); err != nil {
		return nil, err
	}
	if err := readInto(a.Thumbnails, dir, thumbnailAssets); err != nil {
		return nil, err
	}
	if _, ok := a.Static["icon.png"]; !ok {
		return nil, fmt.Errorf("pkpass assets %s: icon.png is required", dir)
	}
	return a, nil
}

func readInto(dst map[string][]byte, dir string, names []string) error {
	for _, name := range names {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read asset %s: %w", name, err)
		}
		dst[name] = b
	}
	return nil
}

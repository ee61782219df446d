// Package gallery is the ordered list of practice images and the cursor
// that walks it.
package gallery

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Default is the built-in list, relative to the working directory.
var Default = []string{
	"images/DSC_8597.jpg",
	"images/DSC_8688.jpg",
	"images/DSC_9379.png",
	"images/Gemini_Generated_Image_39psba39psba39ps.png",
	"images/IMG20250721174414.jpg",
	"images/IMG_20250721_184457.jpg",
	"images/bengal-tiger-from-Asia.webp",
	"images/bike.png",
	"images/swim.png",
	"images/kings-x-1024x483.jpg",
	"images/Ontario-Airport-1024x766.jpg",
	"images/dogs.jpg",
}

var ErrEmpty = errors.New("image list is empty")

var imageExt = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".bmp": true,
}

func IsImage(name string) bool {
	return imageExt[strings.ToLower(filepath.Ext(name))]
}

// Gallery cycles through its images in order, wrapping at the end.
type Gallery struct {
	images []string

	mu      sync.Mutex
	next    int
	current string
}

func New(images []string) (*Gallery, error) {
	if len(images) == 0 {
		return nil, ErrEmpty
	}
	return &Gallery{images: append([]string(nil), images...)}, nil
}

// FromDir lists the image files in dir sorted by name.
func FromDir(dir string) (*Gallery, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading image directory: %w", err)
	}
	var images []string
	for _, e := range entries {
		if e.IsDir() || !IsImage(e.Name()) {
			continue
		}
		images = append(images, filepath.Join(dir, e.Name()))
	}
	sort.Strings(images)
	if len(images) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrEmpty)
	}
	return New(images)
}

// Open picks the image source: an explicit list wins over a directory,
// and with neither the built-in list is used.
func Open(dir string, list []string) (*Gallery, error) {
	switch {
	case len(list) > 0:
		return New(list)
	case dir != "":
		return FromDir(dir)
	default:
		return New(Default)
	}
}

// Next shows the image under the cursor and advances it.
func (g *Gallery) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current = g.images[g.next]
	g.next = (g.next + 1) % len(g.images)
	return g.current
}

// Current is the image last returned by Next, or "" before the first call.
func (g *Gallery) Current() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

func (g *Gallery) Images() []string {
	return append([]string(nil), g.images...)
}

func (g *Gallery) Len() int { return len(g.images) }

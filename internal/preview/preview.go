// Package preview generates the small thumbnails shown next to each worklist
// item and tracks their handles until the item is removed.
package preview

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"sync"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const thumbnailWidth uint = 200
const thumbnailHeight uint = 300

// GenerateThumbnail takes raw image data, resizes it, encodes it as a
// Base64 JPEG, and returns it as a data URI string.
func GenerateThumbnail(imageData []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	imgHeight := img.Bounds().Dy()
	imgWidth := img.Bounds().Dx()

	var resizedImg image.Image
	if imgHeight > imgWidth {
		resizedImg = resize.Thumbnail(thumbnailWidth, thumbnailHeight, img, resize.Lanczos3)
	} else {
		resizedImg = resize.Thumbnail(thumbnailHeight, thumbnailWidth, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resizedImg, &jpeg.Options{Quality: 75}); err != nil {
		return "", fmt.Errorf("failed to encode jpeg: %w", err)
	}

	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Store holds generated previews keyed by an opaque handle.
type Store struct {
	mu       sync.RWMutex
	previews map[string]string
}

// NewStore creates an empty preview store.
func NewStore() *Store {
	return &Store{previews: make(map[string]string)}
}

// Create generates a preview for imageData and returns its handle.
func (s *Store) Create(imageData []byte) (string, error) {
	uri, err := GenerateThumbnail(imageData)
	if err != nil {
		return "", err
	}
	handle := uuid.NewString()
	s.mu.Lock()
	s.previews[handle] = uri
	s.mu.Unlock()
	return handle, nil
}

// Get returns the data URI behind a handle.
func (s *Store) Get(handle string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	uri, ok := s.previews[handle]
	return uri, ok
}

// Release drops a handle. Releasing an unknown handle is a no-op.
func (s *Store) Release(handle string) {
	s.mu.Lock()
	delete(s.previews, handle)
	s.mu.Unlock()
}

// Len returns the number of live previews.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.previews)
}

package folio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/png"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hugePNG returns a valid 1x1 PNG whose header declares w x h pixels.
func hugePNG(t *testing.T, w, h uint32) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))))
	b := buf.Bytes()
	// signature(8) length(4) "IHDR"(4) data(13) crc(4)
	binary.BigEndian.PutUint32(b[16:20], w)
	binary.BigEndian.PutUint32(b[20:24], h)
	binary.BigEndian.PutUint32(b[29:33], crc32.ChecksumIEEE(b[12:29]))
	return b
}

func TestProcessImageRejectsHugeDimensions(t *testing.T) {
	_, err := processImage(bytes.NewReader(hugePNG(t, 50000, 50000)))
	assert.ErrorIs(t, err, errImageTooLarge)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(hugePNG(t, 50000, 50000)))
	require.NoError(t, err, "the header itself is well formed")
	assert.Equal(t, 50000, cfg.Width)

	_, err = processImage(bytes.NewReader([]byte("not an image")))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, errImageTooLarge)
}

func TestImageUploadRejectsHugeDimensions(t *testing.T) {
	a, _ := newTestApp(t)
	token := setupAdmin(t, a)

	rec := uploadImage(t, a, token, "bomb.png", hugePNG(t, 40000, 40000), "")
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	images, err := a.Store.ListImages(context.Background())
	require.NoError(t, err)
	assert.Empty(t, images)
}

type memImageHost struct {
	mu        sync.Mutex
	files     map[string][]byte
	deleteErr error
}

func (h *memImageHost) Put(_ context.Context, name string, data []byte, _ string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.files == nil {
		h.files = make(map[string][]byte)
	}
	path := "https://cdn.example.com/" + name
	h.files[path] = data
	return path, nil
}

func (h *memImageHost) Delete(_ context.Context, path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.deleteErr != nil {
		return h.deleteErr
	}
	delete(h.files, path)
	return nil
}

func TestImageDeleteRemovesRowWhenFileRemovalFails(t *testing.T) {
	host := &memImageHost{}
	a, _ := newTestApp(t, WithImageHost(host))
	token := setupAdmin(t, a)

	var raw bytes.Buffer
	require.NoError(t, png.Encode(&raw, image.NewGray(image.Rect(0, 0, 10, 10))))
	rec := uploadImage(t, a, token, "small.png", raw.Bytes(), "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	uploaded := decode[Image](t, rec)
	assert.Contains(t, host.files, uploaded.Path)

	host.deleteErr = errors.New("bucket unavailable")
	rec = serve(t, a, request{method: http.MethodDelete, path: "/api/images/" + uploaded.ID, token: token})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err := a.Store.GetImage(context.Background(), uploaded.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

package folio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/image/draw"
)

const (
	maxImageWidth = 1600
	jpegQuality   = 82
	maxUploadSize = 10 << 20 // 10MB
	// Decoding allocates per pixel, so the declared size is checked first.
	maxImagePixels = 40_000_000
	uploadsSubdir = "uploads"
)

// ImageHost stores processed image files. Put returns the public URL that is
// saved as the image path.
type ImageHost interface {
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, path string) error
}

// LocalImageHost keeps images in a directory served under a URL prefix.
type LocalImageHost struct {
	Dir    string // e.g. "public/uploads"
	Prefix string // e.g. "/public/uploads"
}

// Put writes data to Dir/name.
func (h LocalImageHost) Put(_ context.Context, name string, data []byte, _ string) (string, error) {
	name = filepath.Base(name)
	if err := os.MkdirAll(h.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create uploads dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(h.Dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return strings.TrimRight(h.Prefix, "/") + "/" + name, nil
}

// Delete removes the file behind path. A missing file is not an error.
func (h LocalImageHost) Delete(_ context.Context, path string) error {
	name := filepath.Base(strings.TrimPrefix(path, strings.TrimRight(h.Prefix, "/")+"/"))
	err := os.Remove(filepath.Join(h.Dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

var errImageTooLarge = errors.New("image dimensions too large")

type processedImage struct {
	data        []byte
	contentType string
	ext         string
	width       int
	height      int
}

// processImage decodes an image, scales it down to maxImageWidth and
// re-encodes it. PNGs stay PNG to keep transparency, everything else
// becomes JPEG.
func processImage(src io.Reader) (processedImage, error) {
	raw, err := io.ReadAll(src)
	if err != nil {
		return processedImage{}, fmt.Errorf("read image: %w", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return processedImage{}, fmt.Errorf("decode image config: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxImagePixels {
		return processedImage{}, fmt.Errorf("%w: %dx%d", errImageTooLarge, cfg.Width, cfg.Height)
	}

	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return processedImage{}, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w > maxImageWidth {
		newH := h * maxImageWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		w = maxImageWidth
		h = newH
	}

	var buf bytes.Buffer
	out := processedImage{width: w, height: h}
	if format == "png" {
		if err := png.Encode(&buf, img); err != nil {
			return processedImage{}, fmt.Errorf("encode png: %w", err)
		}
		out.contentType, out.ext = "image/png", ".png"
	} else {
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return processedImage{}, fmt.Errorf("encode jpeg: %w", err)
		}
		out.contentType, out.ext = "image/jpeg", ".jpg"
	}
	out.data = buf.Bytes()
	return out, nil
}

func (a *App) handleImageUpload(c echo.Context) error {
	file, err := c.FormFile("image")
	if err != nil {
		return invalid("image", "file is required")
	}
	if file.Size > maxUploadSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large (max 10MB)")
	}
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	processed, err := processImage(io.LimitReader(src, maxUploadSize))
	if errors.Is(err, errImageTooLarge) {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "image dimensions too large")
	}
	if err != nil {
		return invalid("image", "is not a supported image")
	}

	ctx := c.Request().Context()
	id := uuid.NewString()
	path, err := a.images.Put(ctx, id+processed.ext, processed.data, processed.contentType)
	if err != nil {
		return err
	}
	img, err := a.Store.CreateImage(ctx, Image{
		ID:     id,
		Path:   path,
		Alt:    strings.TrimSpace(c.FormValue("alt")),
		Size:   int64(len(processed.data)),
		Type:   processed.contentType,
		Width:  processed.width,
		Height: processed.height,
	})
	if err != nil {
		if derr := a.images.Delete(ctx, path); derr != nil {
			c.Logger().Errorf("remove orphaned image %s: %v", path, derr)
		}
		return err
	}
	return c.JSON(http.StatusCreated, img)
}

// handleImage redirects to the hosted file so pages can reference images by id.
func (a *App) handleImage(c echo.Context) error {
	img, err := a.Store.GetImage(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, img.Path)
}

func (a *App) handleImageList(c echo.Context) error {
	images, err := a.Store.ListImages(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, images)
}

func (a *App) handleImageDelete(c echo.Context) error {
	ctx := c.Request().Context()
	img, err := a.Store.GetImage(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	if err := a.Store.DeleteImage(ctx, img.ID); err != nil {
		return err
	}
	a.Cache.Invalidate()
	// The row is gone, so a leftover file is only wasted space.
	if err := a.images.Delete(ctx, img.Path); err != nil {
		c.Logger().Errorf("remove image file %s: %v", img.Path, err)
	}
	return c.NoContent(http.StatusNoContent)
}

package main

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/image/draw"
)

const (
	imageCacheControl = "public, max-age=31536000, immutable"

	// Callers choose w/h/q freely, so the variant key space is theirs to
	// grow. The cache must stay bounded regardless.
	imageCacheMaxVariants = 128
)

type imageVariant struct {
	contentType string
	data        []byte
}

// imageHandler serves a bundled image, optionally resized to the requested
// width/height. Resized variants are kept in memory, capped at
// imageCacheMaxVariants entries.
func (a *App) imageHandler(c *gin.Context) {
	name := c.Param("name")
	if name != path.Base(name) || strings.HasPrefix(name, ".") {
		c.Status(http.StatusBadRequest)
		return
	}

	original, err := siteAssetsFS.ReadFile("static/" + name)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}

	width, ok := parseDimensionQuery(c, "w", a.cfg.ImageMaxDimension)
	if !ok {
		c.Status(http.StatusBadRequest)
		return
	}
	height, ok := parseDimensionQuery(c, "h", a.cfg.ImageMaxDimension)
	if !ok {
		c.Status(http.StatusBadRequest)
		return
	}
	quality := defaultImageQuality
	if raw := strings.TrimSpace(c.Query("q")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			c.Status(http.StatusBadRequest)
			return
		}
		quality = parsed
	}

	if width == 0 && height == 0 {
		c.Header("Cache-Control", imageCacheControl)
		c.Data(http.StatusOK, contentTypeForImage(name), original)
		return
	}

	key := fmt.Sprintf("%s|%d|%d|%d", name, width, height, quality)

	variant, err := a.cachedVariant(key, name, original, width, height, quality)
	if err != nil {
		a.log.Error("image resize failed", "name", name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Cache-Control", imageCacheControl)
	c.Data(http.StatusOK, variant.contentType, variant.data)
}

// cachedVariant resolves one resized variant, computing it at most once.
// The resize runs under the lock so concurrent first requests for the same
// variant do not duplicate work.
func (a *App) cachedVariant(key, name string, original []byte, width, height, quality int) (imageVariant, error) {
	a.imageMu.Lock()
	defer a.imageMu.Unlock()

	if variant, cached := a.imageCache[key]; cached {
		return variant, nil
	}

	variant, err := resizeImage(name, original, width, height, quality)
	if err != nil {
		return imageVariant{}, err
	}

	if len(a.imageCache) >= imageCacheMaxVariants {
		for evicted := range a.imageCache {
			delete(a.imageCache, evicted)
			break
		}
	}
	a.imageCache[key] = variant

	return variant, nil
}

func parseDimensionQuery(c *gin.Context, key string, max int) (int, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, true
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 1 {
		return 0, false
	}
	if parsed > max {
		parsed = max
	}
	return parsed, true
}

func resizeImage(name string, original []byte, width, height, quality int) (imageVariant, error) {
	decoded, _, err := image.Decode(bytes.NewReader(original))
	if err != nil {
		return imageVariant{}, fmt.Errorf("decode %s: %w", name, err)
	}

	bounds := decoded.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()
	if srcW == 0 || srcH == 0 {
		return imageVariant{}, fmt.Errorf("decode %s: empty image", name)
	}

	// A single dimension scales the other to preserve aspect ratio.
	if width == 0 {
		width = height * srcW / srcH
	}
	if height == 0 {
		height = width * srcH / srcW
	}
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}

	scaled := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), decoded, bounds, draw.Over, nil)

	buffer := &bytes.Buffer{}
	contentType := contentTypeForImage(name)
	switch contentType {
	case "image/png":
		if err := png.Encode(buffer, scaled); err != nil {
			return imageVariant{}, fmt.Errorf("encode %s: %w", name, err)
		}
	default:
		if err := jpeg.Encode(buffer, scaled, &jpeg.Options{Quality: quality}); err != nil {
			return imageVariant{}, fmt.Errorf("encode %s: %w", name, err)
		}
	}

	return imageVariant{contentType: contentType, data: buffer.Bytes()}, nil
}

func contentTypeForImage(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".png":
		return "image/png"
	default:
		return "image/jpeg"
	}
}

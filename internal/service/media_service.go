package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"snapgram/internal/config"
	"snapgram/internal/models"
	"snapgram/internal/observability"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultMediaUploadDir       = "uploads"
	DefaultMediaMaxUploadSizeMB = 50
	DefaultMediaMaxDimension    = 1080
	DefaultAvatarMaxDimension   = 400
	DefaultJPEGQuality          = 85
)

// Media folders under the upload root.
const (
	MediaKindPost   = "posts"
	MediaKindStory  = "stories"
	MediaKindAvatar = "avatars"
)

// MediaProcessor stores uploads, shrinks stored raster images and deletes
// files that are no longer referenced.
type MediaProcessor interface {
	Store(ctx context.Context, kind, filename string, content []byte) (string, error)
	Downscale(ctx context.Context, ref string, maxDim int) error
	Remove(ref string)
}

// MediaService keeps uploaded files on local disk. References returned by
// Store are slash-separated paths relative to the upload root.
type MediaService struct {
	uploadDir string
	maxBytes  int64
	quality   int
}

func NewMediaService(cfg *config.Config) *MediaService {
	s := &MediaService{
		uploadDir: DefaultMediaUploadDir,
		maxBytes:  DefaultMediaMaxUploadSizeMB * 1024 * 1024,
		quality:   DefaultJPEGQuality,
	}
	if cfg != nil {
		if cfg.MediaUploadDir != "" {
			s.uploadDir = cfg.MediaUploadDir
		}
		if cfg.MediaMaxUploadSizeMB > 0 {
			s.maxBytes = int64(cfg.MaxUploadBytes())
		}
		if cfg.MediaJPEGQuality > 0 {
			s.quality = cfg.MediaJPEGQuality
		}
	}
	return s
}

// UploadDir is the directory served under /media.
func (s *MediaService) UploadDir() string { return s.uploadDir }

// Store validates filename's extension and the size limit, then writes
// content under kind/ with a random name.
func (s *MediaService) Store(_ context.Context, kind, filename string, content []byte) (string, error) {
	if _, err := models.DeriveMediaType(filename); err != nil {
		return "", err
	}
	if len(content) == 0 {
		return "", models.NewValidationError("No file uploaded")
	}
	if int64(len(content)) > s.maxBytes {
		return "", models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxBytes/(1024*1024)))
	}
	ext := strings.ToLower(filepath.Ext(filename))
	ref := filepath.ToSlash(filepath.Join(kind, uuid.NewString()+ext))
	if err := writeBytesToFile(s.path(ref), content); err != nil {
		return "", models.NewInternalError(err)
	}
	return ref, nil
}

// Downscale shrinks the raster image at ref to fit maxDim×maxDim, keeping
// the aspect ratio and format. Non-raster media, references that are not
// local files and images already within bounds are left untouched.
func (s *MediaService) Downscale(ctx context.Context, ref string, maxDim int) error {
	if !models.IsRaster(ref) {
		observability.MediaTransforms.WithLabelValues("skipped").Inc()
		return nil
	}
	path, ok := s.localPath(ref)
	if !ok {
		observability.MediaTransforms.WithLabelValues("skipped").Inc()
		return nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			observability.MediaTransforms.WithLabelValues("skipped").Inc()
			return nil
		}
		observability.MediaTransforms.WithLabelValues("failed").Inc()
		return models.NewInternalError(err)
	}

	_, end := observability.StartSpan(ctx, "media.downscale")
	out, resized, err := downscaleBytes(content, maxDim, s.quality)
	end(err)
	if err != nil {
		observability.MediaTransforms.WithLabelValues("failed").Inc()
		slog.WarnContext(ctx, "media transform failed", "ref", ref, "error", err)
		return models.NewValidationError("Invalid image file")
	}
	if !resized {
		observability.MediaTransforms.WithLabelValues("unchanged").Inc()
		return nil
	}
	if err := writeBytesToFile(path, out); err != nil {
		observability.MediaTransforms.WithLabelValues("failed").Inc()
		return models.NewInternalError(err)
	}
	observability.MediaTransforms.WithLabelValues("resized").Inc()
	return nil
}

// Remove deletes the local file behind ref, if any.
func (s *MediaService) Remove(ref string) {
	if path, ok := s.localPath(ref); ok {
		_ = os.Remove(path)
	}
}

func (s *MediaService) path(ref string) string {
	return filepath.Join(s.uploadDir, filepath.FromSlash(ref))
}

// localPath maps ref into the upload root, rejecting URLs and traversal.
func (s *MediaService) localPath(ref string) (string, bool) {
	if ref == "" || strings.Contains(ref, "://") {
		return "", false
	}
	clean := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(ref, "/")))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", false
	}
	return filepath.Join(s.uploadDir, clean), true
}

// downscaleBytes decodes content and, when it exceeds maxDim on either side,
// returns it resized and re-encoded in its original format.
func downscaleBytes(content []byte, maxDim, quality int) ([]byte, bool, error) {
	decoded, format, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, false, err
	}
	b := decoded.Bounds()
	if b.Dx() <= maxDim && b.Dy() <= maxDim {
		return nil, false, nil
	}
	resized := resizeToFit(decoded, maxDim, maxDim)

	var out []byte
	switch format {
	case "jpeg":
		out, err = encodeJPEG(resized, quality)
	case "png":
		out, err = encodePNG(resized)
	case "webp":
		out, err = encodeWebP(resized, quality)
	default:
		return nil, false, fmt.Errorf("unsupported image format %q", format)
	}
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scaleW := float64(maxWidth) / float64(w)
	scaleH := float64(maxHeight) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodePNG(img image.Image) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeBytesToFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

package service

import (
	"bytes"
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"

	"snapgram/internal/config"
	"snapgram/internal/models"
	"snapgram/internal/testutil"

	"github.com/chai2010/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMedia(t *testing.T) *MediaService {
	t.Helper()
	return NewMediaService(&config.Config{
		MediaUploadDir:       t.TempDir(),
		MediaMaxUploadSizeMB: 1,
		MediaJPEGQuality:     85,
	})
}

func TestMediaService_StoreRejectsUnknownExtension(t *testing.T) {
	svc := newTestMedia(t)
	_, err := svc.Store(context.Background(), MediaKindPost, "archive.zip", []byte("PK"))
	assertValidationError(t, err)

	_, err = svc.Store(context.Background(), MediaKindPost, "a.png", nil)
	assertValidationError(t, err)

	_, err = svc.Store(context.Background(), MediaKindPost, "a.png", make([]byte, 2*1024*1024))
	assertValidationError(t, err)
}

func TestMediaService_StoreAndDownscalePNG(t *testing.T) {
	svc := newTestMedia(t)
	ctx := context.Background()

	ref, err := svc.Store(ctx, MediaKindPost, "Wide.PNG", testutil.TinyPNG(t, 2160, 1080))
	require.NoError(t, err)
	assert.Regexp(t, `^posts/[0-9a-f-]+\.png$`, ref)

	require.NoError(t, svc.Downscale(ctx, ref, 1080))
	w, h := testutil.DecodeSize(t, filepath.Join(svc.UploadDir(), ref))
	assert.Equal(t, 1080, w)
	assert.Equal(t, 540, h)
}

func TestMediaService_DownscaleJPEGPortrait(t *testing.T) {
	svc := newTestMedia(t)
	dir := filepath.Join(svc.UploadDir(), "stories")
	require.NoError(t, os.MkdirAll(dir, 0o750))
	testutil.WriteJPEG(t, dir, "tall.jpg", 500, 2160)

	require.NoError(t, svc.Downscale(context.Background(), "stories/tall.jpg", 1080))
	w, h := testutil.DecodeSize(t, filepath.Join(dir, "tall.jpg"))
	assert.Equal(t, 250, w)
	assert.Equal(t, 1080, h)
}

func TestMediaService_SmallImageUntouched(t *testing.T) {
	svc := newTestMedia(t)
	ref, err := svc.Store(context.Background(), MediaKindAvatar, "me.png", testutil.TinyPNG(t, 200, 100))
	require.NoError(t, err)
	before, err := os.ReadFile(filepath.Join(svc.UploadDir(), ref))
	require.NoError(t, err)

	require.NoError(t, svc.Downscale(context.Background(), ref, 400))
	after, err := os.ReadFile(filepath.Join(svc.UploadDir(), ref))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestMediaService_DownscaleWebP(t *testing.T) {
	svc := newTestMedia(t)
	buf := bytes.NewBuffer(nil)
	require.NoError(t, webp.Encode(buf, image.NewRGBA(image.Rect(0, 0, 800, 800)), &webp.Options{Quality: 90}))
	ref, err := svc.Store(context.Background(), MediaKindAvatar, "me.webp", buf.Bytes())
	require.NoError(t, err)

	require.NoError(t, svc.Downscale(context.Background(), ref, 400))
	f, err := os.Open(filepath.Join(svc.UploadDir(), ref))
	require.NoError(t, err)
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, "webp", format)
	assert.Equal(t, 400, cfg.Width)
}

func TestMediaService_SkipsNonLocalAndNonRaster(t *testing.T) {
	svc := newTestMedia(t)
	ctx := context.Background()
	assert.NoError(t, svc.Downscale(ctx, "https://cdn.example.com/a.jpg", 1080))
	assert.NoError(t, svc.Downscale(ctx, "../../etc/passwd.png", 1080))
	assert.NoError(t, svc.Downscale(ctx, "posts/clip.mp4", 1080))
	assert.NoError(t, svc.Downscale(ctx, "posts/anim.gif", 1080))
	assert.NoError(t, svc.Downscale(ctx, "posts/missing.jpg", 1080))
}

func TestMediaService_CorruptImage(t *testing.T) {
	svc := newTestMedia(t)
	ref, err := svc.Store(context.Background(), MediaKindPost, "bad.jpg", []byte("not an image"))
	require.NoError(t, err)

	err = svc.Downscale(context.Background(), ref, 1080)
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.CodeValidation))
}

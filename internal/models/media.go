package models

import (
	"path/filepath"
	"strings"
)

// MediaType classifies the media attached to a post or story.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

var mediaExtensions = map[string]MediaType{
	".jpg":  MediaImage,
	".jpeg": MediaImage,
	".png":  MediaImage,
	".gif":  MediaImage,
	".webp": MediaImage,
	".mp4":  MediaVideo,
	".mov":  MediaVideo,
	".avi":  MediaVideo,
	".wmv":  MediaVideo,
}

// DeriveMediaType classifies a media reference by its file extension,
// case-insensitively. Unknown extensions are rejected.
func DeriveMediaType(ref string) (MediaType, error) {
	ext := strings.ToLower(filepath.Ext(ref))
	if mt, ok := mediaExtensions[ext]; ok {
		return mt, nil
	}
	if ext == "" {
		return "", NewValidationError("media file has no extension")
	}
	return "", NewValidationError("unsupported media extension " + ext)
}

// IsRaster reports whether the media can be decoded and re-encoded as an image.
// Animated GIFs are left untouched.
func IsRaster(ref string) bool {
	switch strings.ToLower(filepath.Ext(ref)) {
	case ".jpg", ".jpeg", ".png", ".webp":
		return true
	}
	return false
}

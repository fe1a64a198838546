package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveMediaType(t *testing.T) {
	tests := []struct {
		ref     string
		want    MediaType
		wantErr bool
	}{
		{"photo.JPG", MediaImage, false},
		{"uploads/posts/a.jpeg", MediaImage, false},
		{"a.png", MediaImage, false},
		{"a.gif", MediaImage, false},
		{"a.webp", MediaImage, false},
		{"clip.mov", MediaVideo, false},
		{"clip.MP4", MediaVideo, false},
		{"clip.avi", MediaVideo, false},
		{"clip.wmv", MediaVideo, false},
		{"archive.zip", "", true},
		{"noextension", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := DeriveMediaType(tt.ref)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsCode(err, CodeValidation))
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsRaster(t *testing.T) {
	assert.True(t, IsRaster("a.PNG"))
	assert.True(t, IsRaster("a.webp"))
	assert.False(t, IsRaster("a.gif"))
	assert.False(t, IsRaster("a.mp4"))
}

func TestStoryIsExpired(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := Story{ExpiresAt: now.Add(time.Minute)}
	assert.False(t, s.IsExpired(now))
	assert.True(t, s.IsExpired(now.Add(time.Minute)))
	assert.True(t, s.IsExpired(now.Add(time.Hour)))
}

func TestReportReasonValid(t *testing.T) {
	for _, r := range []ReportReason{ReasonSpam, ReasonInappropriate, ReasonHarassment, ReasonViolence, ReasonHateSpeech, ReasonFalseInfo, ReasonOther} {
		assert.True(t, r.Valid(), r)
	}
	assert.False(t, ReportReason("boring").Valid())
}

func TestUserPublic(t *testing.T) {
	phone := "+15550100"
	u := User{Username: "jane", Email: "jane@example.com", Phone: &phone}
	p := u.Public()
	assert.Empty(t, p.Email)
	assert.Nil(t, p.Phone)
	assert.Equal(t, "jane@example.com", u.Email)
}

package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidImageType(t *testing.T) {
	assert.True(t, ValidImageType("image/png"))
	assert.True(t, ValidImageType(" IMAGE/JPEG "))
	assert.False(t, ValidImageType("video/mp4"))
	assert.False(t, ValidImageType(""))
}

func TestPostImageKey(t *testing.T) {
	key := PostImageKey("abc", "image/webp")
	assert.True(t, strings.HasPrefix(key, "posts/abc/"))
	assert.True(t, strings.HasSuffix(key, ".webp"))
	assert.NotEqual(t, key, PostImageKey("abc", "image/webp"))
}

func TestKeyFromURL(t *testing.T) {
	s := &S3{cfg: S3Config{Region: "ap-northeast-1", UploadsBucket: "uploads"}}
	url := s.PublicObjectURL("posts/abc/x.png")
	key, ok := s.KeyFromURL(url)
	assert.True(t, ok)
	assert.Equal(t, "posts/abc/x.png", key)

	_, ok = s.KeyFromURL("https://elsewhere.example.com/x.png")
	assert.False(t, ok)
}

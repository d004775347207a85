package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	hashed, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPassword("correct horse", hashed))
	assert.False(t, CheckPassword("wrong horse", hashed))
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Spring Workshop 2026":        "spring-workshop-2026",
		"  Lead -- with  Questions! ": "lead-with-questions",
		"教練課程 Coaching":               "coaching",
		"???":                         "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
	assert.True(t, ValidSlug(Slugify("Spring Workshop 2026")))
	assert.False(t, ValidSlug("a"))
	assert.False(t, ValidSlug("-leading"))
}

package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, ".png", extensionFor("image/png"))
	assert.Equal(t, ".webp", extensionFor("image/webp"))
	assert.Equal(t, ".heic", extensionFor("image/heic"))
	assert.Equal(t, ".jpg", extensionFor("image/jpeg"))
	assert.Equal(t, ".jpg", extensionFor("application/octet-stream"))
}

func TestAllowedContentTypes(t *testing.T) {
	for _, ct := range []string{"image/jpeg", "image/png", "image/webp", "image/heic"} {
		assert.True(t, allowedContentTypes[ct], ct)
	}
	assert.False(t, allowedContentTypes["application/pdf"])
}

package util

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D}

func TestDecodeBase64MaybeDataURL(t *testing.T) {
	raw := base64.StdEncoding.EncodeToString(pngHeader)

	b, mime, err := DecodeBase64MaybeDataURL("data:image/png;base64," + raw)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, b)
	assert.Equal(t, "image/png", mime)

	b, mime, err = DecodeBase64MaybeDataURL("  " + raw + "\n")
	require.NoError(t, err)
	assert.Equal(t, pngHeader, b)
	assert.Empty(t, mime)

	b, _, err = DecodeBase64MaybeDataURL(base64.RawURLEncoding.EncodeToString([]byte{0xff, 0xfe, 0xfd, 0xfc}))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xfe, 0xfd, 0xfc}, b)

	_, _, err = DecodeBase64MaybeDataURL("data:image/jpeg;base64,")
	assert.ErrorIs(t, err, ErrEmptyImage)

	_, _, err = DecodeBase64MaybeDataURL("not base64 at all!")
	assert.Error(t, err)
}

func TestPickMIME(t *testing.T) {
	assert.Equal(t, "image/webp", PickMIME("image/webp", "image/png", pngHeader))
	assert.Equal(t, "image/png", PickMIME("", "image/png", nil))
	assert.Equal(t, "image/png", PickMIME("", "", pngHeader))
	assert.Equal(t, "image/jpeg", PickMIME("", "", nil))
	assert.Equal(t, "image/jpeg", PickMIME("", "", []byte{0xFF, 0xD8, 0xFF, 0xE0}))
}

func TestIsImageMIME(t *testing.T) {
	assert.True(t, IsImageMIME("image/jpeg"))
	assert.True(t, IsImageMIME(" Image/PNG"))
	assert.False(t, IsImageMIME("application/pdf"))
	assert.False(t, IsImageMIME(""))
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFences(` {"a":1} `))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 3))
	assert.Equal(t, "ab…", Truncate("abc", 2))
	assert.Equal(t, "कि…", Truncate("किसान", 2))
}

func TestSHA256Hex(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", SHA256Hex(nil))
}

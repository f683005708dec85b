package imagedata

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngHeader  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}
	jpegHeader = []byte{0xff, 0xd8, 0xff, 0xe0, 0, 0x10, 'J', 'F', 'I', 'F', 0}
)

func encode(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func TestNormalize_AddsPrefix(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		mask   bool
		prefix string
	}{
		{"png photo", pngHeader, false, "data:image/png;base64,"},
		{"jpeg photo", jpegHeader, false, "data:image/jpeg;base64,"},
		{"unknown photo falls back to jpeg", []byte("not really an image"), false, "data:image/jpeg;base64,"},
		{"png mask", pngHeader, true, "data:image/png;base64,"},
		{"jpeg mask", jpegHeader, true, "data:image/jpeg;base64,"},
		{"unknown mask falls back to png", []byte("not really an image"), true, "data:image/png;base64,"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := encode(tt.data)

			var (
				got string
				err error
			)

			if tt.mask {
				got, err = NormalizeMask(raw)
			} else {
				got, err = Normalize(raw)
			}

			require.NoError(t, err)
			assert.Equal(t, tt.prefix+raw, got)
			assert.True(t, IsDataURI(got))
		})
	}
}

func TestNormalize_PassesThroughPrefixed(t *testing.T) {
	for _, value := range []string{
		"data:image/png;base64," + encode(pngHeader),
		"data:image/webp;base64,AAAA",
		"https://cdn.example/room.jpg",
	} {
		got, err := Normalize(value)
		require.NoError(t, err)
		assert.Equal(t, value, got)
	}
}

func TestNormalize_TrimsWhitespace(t *testing.T) {
	raw := encode(pngHeader)

	got, err := Normalize("  " + raw + "\n")
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,"+raw, got)
}

func TestNormalize_UnpaddedBase64(t *testing.T) {
	raw := strings.TrimRight(encode(jpegHeader), "=")

	got, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, "data:image/jpeg;base64,"+raw, got)
}

func TestNormalize_Rejects(t *testing.T) {
	_, err := Normalize("")
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = Normalize("   ")
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = NormalizeMask("%%% not base64 %%%")
	assert.ErrorIs(t, err, ErrEncoded)
}

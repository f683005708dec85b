package imagedata

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	MimePNG  = "image/png"
	MimeJPEG = "image/jpeg"
	MimeWebP = "image/webp"
)

var (
	ErrEmpty   = errors.New("image data is empty")
	ErrEncoded = errors.New("image data is not valid base64")
)

// image types passed through with their sniffed mime type
var recognized = []string{MimePNG, MimeJPEG, MimeWebP}

// returns a data URI for a room photo. Values that are already data URIs or
// remote URLs are returned unchanged; bare base64 gets a prefix based on the
// decoded header, falling back to JPEG.
func Normalize(value string) (string, error) {
	return normalize(value, MimeJPEG)
}

// same as Normalize but unrecognized masks are labeled PNG
func NormalizeMask(value string) (string, error) {
	return normalize(value, MimePNG)
}

func normalize(value, fallback string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", ErrEmpty
	}

	if IsDataURI(value) || isRemoteURL(value) {
		return value, nil
	}

	decoded, err := decode(value)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("data:%s;base64,%s", sniff(decoded, fallback), value), nil
}

// reports whether value already carries a data: scheme
func IsDataURI(value string) bool {
	return strings.HasPrefix(value, "data:")
}

func isRemoteURL(value string) bool {
	return strings.HasPrefix(value, "https://") || strings.HasPrefix(value, "http://")
}

func decode(value string) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(value)
	if err == nil {
		return decoded, nil
	}

	decoded, err = base64.RawStdEncoding.DecodeString(value)
	if err != nil {
		return nil, ErrEncoded
	}

	return decoded, nil
}

func sniff(data []byte, fallback string) string {
	detected := mimetype.Detect(data)

	for _, mime := range recognized {
		if detected.Is(mime) {
			return mime
		}
	}

	return fallback
}

package convert

import (
	"bytes"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"

	// Register decoders for the upload formats we accept.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// ContentType is the media type every published image is served with.
// The service does not negotiate formats with clients.
const ContentType = "image/webp"

const encodeQuality = 90

const artifactExt = ".webp"

// OutputKey maps a stored original's key to its converted artifact's key:
// same base name, .webp extension. Pure function of the input, so re-running
// a conversion always lands on the same key.
func OutputKey(key string) string {
	ext := filepath.Ext(key)
	return strings.TrimSuffix(key, ext) + artifactExt
}

// ArtifactKey maps a published image's name, which already has its extension
// stripped, to the artifact key OutputKey produced for the original filename.
// ArtifactKey(name) == OutputKey(name + ext) for any single extension ext.
func ArtifactKey(name string) string {
	return name + artifactExt
}

// ToWebP decodes an image from any registered encoding and re-encodes it as
// WebP. Deterministic for a given input; a corrupt or unsupported payload
// fails at decode.
func ToWebP(src []byte) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: encodeQuality}); err != nil {
		return nil, fmt.Errorf("encode webp from %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

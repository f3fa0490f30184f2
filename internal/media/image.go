// Package media provides image payload validation and the transport-safe
// encoding used for persisted messages.
//
// Every image that enters the system — uploaded by the user, produced by
// the image-edit backend, or read back from storage — passes through
// Validate before it is stored, displayed, or forwarded to a model.
package media

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"

	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
)

// ErrInvalidImage reports a payload that does not decode to an image with
// strictly positive dimensions.
var ErrInvalidImage = fmt.Errorf("payload is not a decodable image")

// Validate checks that data decodes to an image with positive width and
// height. Only the header is decoded, so validation is cheap even for
// large payloads.
func Validate(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("%w: %s image has dimensions %dx%d", ErrInvalidImage, format, cfg.Width, cfg.Height)
	}
	return nil
}

// Encode converts raw image bytes to the transport-safe text form used in
// persisted message JSON.
func Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// Decode converts the transport-safe text form back to raw bytes and
// validates the result. The round trip is lossless byte-for-byte.
func Decode(encoded string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: bad base64: %v", ErrInvalidImage, err)
	}
	if err := Validate(data); err != nil {
		return nil, err
	}
	return data, nil
}

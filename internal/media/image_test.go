package media

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"
)

// tinyPNG is a valid 1x1 PNG.
const tinyPNGBase64 = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mP8z8BQDwAEhQGAhKmMIQAAAABJRU5ErkJggg=="

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	data, err := base64.StdEncoding.DecodeString(tinyPNGBase64)
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return data
}

func TestValidateAcceptsPNG(t *testing.T) {
	if err := Validate(tinyPNG(t)); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"text", []byte("not an image")},
		{"truncated header", []byte{0x89, 'P'}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.data)
			if !errors.Is(err, ErrInvalidImage) {
				t.Errorf("expected ErrInvalidImage, got %v", err)
			}
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := tinyPNG(t)

	encoded := Encode(original)
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !bytes.Equal(original, decoded) {
		t.Error("round trip is not byte-for-byte lossless")
	}
}

func TestDecodeRejectsCorruptPayload(t *testing.T) {
	if _, err := Decode("!!!not base64!!!"); !errors.Is(err, ErrInvalidImage) {
		t.Errorf("expected ErrInvalidImage for bad base64, got %v", err)
	}

	// Valid base64 but not an image.
	if _, err := Decode(Encode([]byte("plain text"))); !errors.Is(err, ErrInvalidImage) {
		t.Errorf("expected ErrInvalidImage for non-image bytes, got %v", err)
	}
}

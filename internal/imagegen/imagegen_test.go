package imagegen

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"testing"
)

const tinyPNGBase64 = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mP8z8BQDwAEhQGAhKmMIQAAAABJRU5ErkJggg=="

func TestEditRejectsMissingSourceImage(t *testing.T) {
	e := &Editor{logger: slog.Default()}

	_, err := e.Edit(context.Background(), nil, "make the jacket white")
	if !errors.Is(err, ErrNoSourceImage) {
		t.Errorf("expected ErrNoSourceImage, got %v", err)
	}
}

func TestEditRejectsUndecodableSourceImage(t *testing.T) {
	e := &Editor{logger: slog.Default()}

	_, err := e.Edit(context.Background(), []byte("not an image"), "make the jacket white")
	if !errors.Is(err, ErrNoSourceImage) {
		t.Errorf("expected ErrNoSourceImage for corrupt source, got %v", err)
	}
}

func TestImageFormat(t *testing.T) {
	png, err := base64.StdEncoding.DecodeString(tinyPNGBase64)
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"png", png, "png"},
		{"jpeg", []byte{0xff, 0xd8, 0xff, 0xe0, 0, 0, 0, 0, 0, 0, 0, 0}, "jpeg"},
		{"unknown defaults to png", []byte("garbage bytes here"), "png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := imageFormat(tt.data); got != tt.want {
				t.Errorf("imageFormat = %q, want %q", got, tt.want)
			}
		})
	}
}

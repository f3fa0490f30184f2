// Package imagegen provides the identity-preserving outfit edit capability,
// backed by a Gemini image generation model.
package imagegen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/keynar/stylegenie/internal/media"
	"github.com/keynar/stylegenie/internal/prompts"
)

// Error kinds reported by the editor. The orchestration layer switches on
// these to decide what to tell the user.
var (
	// ErrNoSourceImage is returned when an edit is requested but the turn
	// has no image to edit.
	ErrNoSourceImage = errors.New("no source image for this session")

	// ErrGenerationFailed is returned when the backend call fails or comes
	// back without an image payload.
	ErrGenerationFailed = errors.New("image generation failed")

	// ErrInvalidImageData is returned when the backend call succeeds but the
	// returned bytes do not decode to a positive-dimension image. The call
	// is treated as failed even though the remote call itself succeeded.
	ErrInvalidImageData = errors.New("backend returned invalid image data")
)

// Result is a successful edit: the new image plus optional commentary from
// the backend.
type Result struct {
	Image []byte
	Text  string
}

// Editor wraps the Gemini image model.
type Editor struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// New creates an Editor. The genai client is constructed once here and
// released by Close on shutdown; nothing relies on finalizers.
func New(ctx context.Context, apiKey, model string, logger *slog.Logger) (*Editor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Editor{
		client: client,
		model:  model,
		logger: logger.With("component", "imagegen"),
	}, nil
}

// Close releases the underlying client.
func (e *Editor) Close() error {
	return e.client.Close()
}

// Edit applies instruction to image and returns the edited image plus any
// commentary the model produced. The source image must be a valid image;
// the returned image is validated before success is reported.
func (e *Editor) Edit(ctx context.Context, image []byte, instruction string) (*Result, error) {
	if len(image) == 0 {
		return nil, ErrNoSourceImage
	}
	if err := media.Validate(image); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSourceImage, err)
	}

	model := e.client.GenerativeModel(e.model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(prompts.StylistSystemPrompt())},
	}

	e.logger.Debug("edit request", "model", e.model, "instruction_len", len(instruction), "image_bytes", len(image))

	resp, err := model.GenerateContent(ctx,
		genai.Text(instruction),
		genai.ImageData(imageFormat(image), image),
	)
	if err != nil {
		e.logger.Error("generation failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("%w: empty response", ErrGenerationFailed)
	}

	var result Result
	for _, part := range resp.Candidates[0].Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			if result.Text != "" {
				result.Text += "\n"
			}
			result.Text += string(p)
		case genai.Blob:
			result.Image = p.Data
		}
	}

	if len(result.Image) == 0 {
		return nil, fmt.Errorf("%w: response carried no image payload", ErrGenerationFailed)
	}
	if err := media.Validate(result.Image); err != nil {
		e.logger.Warn("backend returned undecodable image", "bytes", len(result.Image), "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidImageData, err)
	}

	e.logger.Info("edit complete", "image_bytes", len(result.Image), "text_len", len(result.Text))
	return &result, nil
}

// imageFormat maps sniffed content type to the genai format label
// ("jpeg", "png", ...).
func imageFormat(data []byte) string {
	switch http.DetectContentType(data) {
	case "image/jpeg":
		return "jpeg"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	default:
		return "png"
	}
}

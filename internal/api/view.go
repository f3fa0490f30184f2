package api

import (
	"bytes"
	"log/slog"

	"github.com/yuin/goldmark"

	"github.com/keynar/stylegenie/internal/media"
	"github.com/keynar/stylegenie/internal/store"
)

// MessageView is a display-ready message. Assistant markdown is
// rendered to an HTML fragment; user text passes through untouched.
type MessageView struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	HTML    string   `json:"html,omitempty"`
	Images  []string `json:"images,omitempty"` // base64-encoded
}

// renderMarkdown converts markdown to an HTML fragment. On render
// failure the raw text is returned so the message still displays.
func renderMarkdown(md string, logger *slog.Logger) string {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		logger.Warn("markdown render failed", "error", err)
		return md
	}
	return buf.String()
}

// renderMessages prepares a history for display. Image payloads are
// validated again on the way out; an undecodable one is dropped with a
// warning rather than handed to the client.
func renderMessages(messages []store.Message, logger *slog.Logger) []MessageView {
	views := make([]MessageView, 0, len(messages))
	for _, m := range messages {
		view := MessageView{Role: m.Role, Content: m.Content}
		if m.Role == "assistant" {
			view.HTML = renderMarkdown(m.Content, logger)
		}
		for _, enc := range m.Images {
			if _, err := media.Decode(enc); err != nil {
				logger.Warn("dropping undecodable display image",
					"role", m.Role, "error", err)
				continue
			}
			view.Images = append(view.Images, enc)
		}
		views = append(views, view)
	}
	return views
}

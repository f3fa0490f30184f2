package tools

import (
	"context"
	"sync"
)

type contextKey string

const turnKey contextKey = "turn"

// Turn carries per-request state through a single agent turn: who is
// asking, the image they attached, and any image a tool produced along
// the way. It exists so concurrent requests never share image state.
type Turn struct {
	UserID string

	// SourceImage is the image the user attached to this turn, if any.
	SourceImage []byte

	mu      sync.Mutex
	pending []byte
}

// NewTurn creates turn state for one request.
func NewTurn(userID string, sourceImage []byte) *Turn {
	return &Turn{UserID: userID, SourceImage: sourceImage}
}

// SetPendingImage records an image produced by a tool during this turn.
// A later call overwrites an unclaimed earlier image; the slot holds
// one image at a time.
func (t *Turn) SetPendingImage(img []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = img
}

// TakePendingImage returns the pending image and clears the slot, so
// each produced image is delivered exactly once. Returns nil when no
// tool produced an image this turn.
func (t *Turn) TakePendingImage() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	img := t.pending
	t.pending = nil
	return img
}

// WithTurn attaches turn state to the context.
func WithTurn(ctx context.Context, t *Turn) context.Context {
	return context.WithValue(ctx, turnKey, t)
}

// TurnFromContext extracts turn state from the context. Returns nil if
// no turn was set.
func TurnFromContext(ctx context.Context) *Turn {
	if t, ok := ctx.Value(turnKey).(*Turn); ok {
		return t
	}
	return nil
}

// UserIDFromContext returns the turn's user id, or "anonymous" when no
// turn state is present (the ask CLI path).
func UserIDFromContext(ctx context.Context) string {
	if t := TurnFromContext(ctx); t != nil && t.UserID != "" {
		return t.UserID
	}
	return "anonymous"
}

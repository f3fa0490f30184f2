// Package session resolves the identity behind a request: which user
// this browsing context belongs to and which conversation it should
// resume.
//
// Identity is a stable random UUID minted on first contact and carried
// by the client from then on (as a cookie in the web UI). The same
// UUID keys conversation storage and long-term memories, so reopening
// the app continues where the user left off.
package session

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/keynar/stylegenie/internal/store"
)

// Session is a resolved identity: a user and their active conversation.
type Session struct {
	UserID         string
	ConversationID int64

	// NewUser is set when this request minted the user id. The caller
	// must hand the id back to the client for reuse.
	NewUser bool
}

// Resolver resolves request identities against the conversation store.
type Resolver struct {
	store *store.Store
}

// NewResolver creates a session resolver.
func NewResolver(s *store.Store) *Resolver {
	return &Resolver{store: s}
}

// Resolve maps a claimed user id and optional pinned conversation to a
// full session. An empty userID mints a fresh identity. A pinned
// conversation id of zero selects the user's most recently updated
// conversation, creating one for first-time users.
func (r *Resolver) Resolve(userID string, pinnedConv int64) (*Session, error) {
	sess := &Session{UserID: userID}

	if sess.UserID == "" {
		sess.UserID = uuid.NewString()
		sess.NewUser = true
	}
	if err := r.store.EnsureUser(sess.UserID); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	if pinnedConv != 0 {
		// Ownership check: a pinned id from another user falls back to
		// the caller's own active conversation.
		if _, err := r.store.Load(sess.UserID, pinnedConv); err == nil {
			sess.ConversationID = pinnedConv
			return sess, nil
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("session: %w", err)
		}
	}

	active, err := r.store.Active(sess.UserID)
	if errors.Is(err, store.ErrNotFound) {
		conv, err := r.store.Create(sess.UserID, "")
		if err != nil {
			return nil, fmt.Errorf("session: %w", err)
		}
		sess.ConversationID = conv.ID
		return sess, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	sess.ConversationID = active.ID
	return sess, nil
}

package session

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/keynar/stylegenie/internal/store"
)

func newTestResolver(t *testing.T) (*Resolver, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewResolver(s), s
}

func TestResolveMintsIdentity(t *testing.T) {
	r, _ := newTestResolver(t)

	sess, err := r.Resolve("", 0)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !sess.NewUser {
		t.Error("expected NewUser for blank identity")
	}
	if _, err := uuid.Parse(sess.UserID); err != nil {
		t.Errorf("minted id should be a UUID: %q", sess.UserID)
	}
	if sess.ConversationID == 0 {
		t.Error("first resolve should create a conversation")
	}
}

func TestResolveStableAcrossRequests(t *testing.T) {
	r, _ := newTestResolver(t)

	first, err := r.Resolve("", 0)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	second, err := r.Resolve(first.UserID, 0)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if second.NewUser {
		t.Error("returning user should not be NewUser")
	}
	if second.UserID != first.UserID {
		t.Errorf("identity changed between requests: %q vs %q", first.UserID, second.UserID)
	}
	if second.ConversationID != first.ConversationID {
		t.Errorf("conversation changed between requests: %d vs %d",
			first.ConversationID, second.ConversationID)
	}
}

func TestResolvePinnedConversation(t *testing.T) {
	r, s := newTestResolver(t)

	sess, _ := r.Resolve("", 0)
	second, err := s.Create(sess.UserID, "second")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	pinned, err := r.Resolve(sess.UserID, second.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if pinned.ConversationID != second.ID {
		t.Errorf("expected pinned conversation %d, got %d", second.ID, pinned.ConversationID)
	}
}

func TestResolveForeignPinFallsBack(t *testing.T) {
	r, s := newTestResolver(t)

	other, _ := r.Resolve("", 0)
	foreign, err := s.Create(other.UserID, "not yours")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	mine, err := r.Resolve("", foreign.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if mine.ConversationID == foreign.ID {
		t.Error("pinned conversation of another user must not be resolved")
	}
	if mine.ConversationID == 0 {
		t.Error("fallback should still yield a conversation")
	}
}

func TestResolveResumesMostRecent(t *testing.T) {
	r, s := newTestResolver(t)

	sess, _ := r.Resolve("", 0)
	second, _ := s.Create(sess.UserID, "second")
	if err := s.Save(sess.UserID, second.ID, []store.Message{{Role: "user", Content: "hi"}}); err != nil {
		t.Fatalf("save: %v", err)
	}

	resumed, err := r.Resolve(sess.UserID, 0)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resumed.ConversationID != second.ID {
		t.Errorf("expected most recently updated conversation %d, got %d",
			second.ID, resumed.ConversationID)
	}
}

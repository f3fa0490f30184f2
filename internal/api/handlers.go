package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/keynar/stylegenie/internal/agent"
	"github.com/keynar/stylegenie/internal/media"
	"github.com/keynar/stylegenie/internal/store"
)

// ChatRequest is one user turn entering the API.
type ChatRequest struct {
	Message        string `json:"message"`
	Image          string `json:"image,omitempty"` // base64-encoded
	ConversationID int64  `json:"conversation_id,omitempty"`
}

// ChatResponse is the finished turn.
type ChatResponse struct {
	Text           string `json:"text"`
	HTML           string `json:"html"`
	Image          string `json:"image,omitempty"` // base64-encoded
	ConversationID int64  `json:"conversation_id"`
	Failed         bool   `json:"failed,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" && req.Image == "" {
		s.errorResponse(w, http.StatusBadRequest, "message or image is required")
		return
	}

	var img []byte
	if req.Image != "" {
		var err error
		img, err = media.Decode(req.Image)
		if err != nil {
			s.errorResponse(w, http.StatusBadRequest, "image payload is not a decodable image")
			return
		}
	}

	sess, err := s.resolveSession(w, r, req.ConversationID)
	if err != nil {
		s.logger.Error("session resolution failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "session resolution failed")
		return
	}

	result, err := s.agent.Run(r.Context(), agent.TurnInput{
		UserID:         sess.UserID,
		ConversationID: sess.ConversationID,
		Text:           req.Message,
		Image:          img,
	})
	if err != nil {
		s.logger.Error("turn failed", "conversation", sess.ConversationID, "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "turn failed")
		return
	}

	resp := ChatResponse{
		Text:           result.Text,
		HTML:           renderMarkdown(result.Text, s.logger),
		ConversationID: sess.ConversationID,
		Failed:         result.Failed,
	}
	if len(result.Image) > 0 {
		resp.Image = media.Encode(result.Image)
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, resp, s.logger)
}

// ConversationView is a conversation list entry.
type ConversationView struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	UpdatedAt string `json:"updated_at"`
	Active    bool   `json:"active"`
}

func (s *Server) handleConversationList(w http.ResponseWriter, r *http.Request) {
	sess, err := s.resolveSession(w, r, 0)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "session resolution failed")
		return
	}

	convs, err := s.store.List(sess.UserID)
	if err != nil {
		s.logger.Error("conversation list failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "conversation list failed")
		return
	}

	views := make([]ConversationView, 0, len(convs))
	for _, c := range convs {
		views = append(views, ConversationView{
			ID:        c.ID,
			Title:     c.Title,
			UpdatedAt: c.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			Active:    c.ID == sess.ConversationID,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{
		"conversations": views,
		"active":        sess.ConversationID,
	}, s.logger)
}

func (s *Server) handleConversationCreate(w http.ResponseWriter, r *http.Request) {
	sess, err := s.resolveSession(w, r, 0)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "session resolution failed")
		return
	}

	conv, err := s.store.Create(sess.UserID, "")
	if err != nil {
		s.logger.Error("conversation create failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "conversation create failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, ConversationView{
		ID:        conv.ID,
		Title:     conv.Title,
		UpdatedAt: conv.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		Active:    true,
	}, s.logger)
}

func (s *Server) handleConversationDelete(w http.ResponseWriter, r *http.Request) {
	convID, ok := s.pathConversationID(w, r)
	if !ok {
		return
	}
	sess, err := s.resolveSession(w, r, 0)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "session resolution failed")
		return
	}

	switch err := s.store.Delete(sess.UserID, convID); {
	case errors.Is(err, store.ErrLastConversation):
		s.errorResponse(w, http.StatusConflict, "cannot delete the last conversation")
		return
	case errors.Is(err, store.ErrNotFound):
		s.errorResponse(w, http.StatusNotFound, "conversation not found")
		return
	case err != nil:
		s.logger.Error("conversation delete failed", "conversation", convID, "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "conversation delete failed")
		return
	}

	// Deleting the active conversation falls back deterministically to
	// the most recently updated survivor.
	active, err := s.store.Active(sess.UserID)
	if err != nil {
		s.logger.Error("active fallback failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "active fallback failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{"deleted": convID, "active": active.ID}, s.logger)
}

func (s *Server) handleConversationRename(w http.ResponseWriter, r *http.Request) {
	convID, ok := s.pathConversationID(w, r)
	if !ok {
		return
	}

	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := s.resolveSession(w, r, 0)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "session resolution failed")
		return
	}

	switch err := s.store.Rename(sess.UserID, convID, req.Title); {
	case errors.Is(err, store.ErrNotFound):
		s.errorResponse(w, http.StatusNotFound, "conversation not found")
		return
	case err != nil:
		s.logger.Error("conversation rename failed", "conversation", convID, "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "conversation rename failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{"renamed": convID}, s.logger)
}

func (s *Server) handleConversationClear(w http.ResponseWriter, r *http.Request) {
	convID, ok := s.pathConversationID(w, r)
	if !ok {
		return
	}
	sess, err := s.resolveSession(w, r, 0)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "session resolution failed")
		return
	}

	switch err := s.store.ClearMessages(sess.UserID, convID); {
	case errors.Is(err, store.ErrNotFound):
		s.errorResponse(w, http.StatusNotFound, "conversation not found")
		return
	case err != nil:
		s.logger.Error("conversation clear failed", "conversation", convID, "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "conversation clear failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{"cleared": convID}, s.logger)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	var pinned int64
	if raw := r.URL.Query().Get("conversation_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.errorResponse(w, http.StatusBadRequest, "invalid conversation_id")
			return
		}
		pinned = id
	}

	sess, err := s.resolveSession(w, r, pinned)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "session resolution failed")
		return
	}

	conv, err := s.store.Load(sess.UserID, sess.ConversationID)
	if err != nil {
		s.logger.Error("message load failed", "conversation", sess.ConversationID, "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "message load failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{
		"conversation_id": conv.ID,
		"title":           conv.Title,
		"messages":        renderMessages(conv.Messages, s.logger),
	}, s.logger)
}

func (s *Server) pathConversationID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid conversation id")
		return 0, false
	}
	return id, true
}

package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/furkanardicm/bloodshare-sub000/internal/metrics"
	"github.com/furkanardicm/bloodshare-sub000/internal/model"
	"github.com/furkanardicm/bloodshare-sub000/internal/repository"
)

// MessageHandler serves the direct messaging endpoints.  Authorization
// is enforced by the repository layer inside each statement; handlers
// only translate sentinel errors to status codes.
type MessageHandler struct {
	Messages *repository.MessageRepo
	Users    *repository.UserRepo
	Metrics  *metrics.Metrics
}

// NewMessageHandler constructs a MessageHandler.  Repositories must be
// non-nil; Metrics may be nil in tests.
func NewMessageHandler(m *repository.MessageRepo, u *repository.UserRepo, mm *metrics.Metrics) *MessageHandler {
	if m == nil || u == nil {
		panic("nil repository passed to NewMessageHandler")
	}
	return &MessageHandler{Messages: m, Users: u, Metrics: mm}
}

type sendMessageReq struct {
	ReceiverID uint64 `json:"receiver_id"`
	Content    string `json:"content"`
}
type editMessageReq struct {
	Content string `json:"content"`
}
type markReadReq struct {
	SenderID uint64 `json:"sender_id"` // 0 = from anyone
}

type messageView struct {
	ID         uint64 `json:"id"`
	SenderID   uint64 `json:"sender_id"`
	ReceiverID uint64 `json:"receiver_id"`
	Content    string `json:"content"`
	ReadStatus string `json:"read_status"`
	IsEdited   bool   `json:"is_edited"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

func messageViewOf(m model.Message) messageView {
	return messageView{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Content:    m.Content,
		ReadStatus: m.ReadStatus,
		IsEdited:   m.IsEdited,
		CreatedAt:  m.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  m.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// Send handles POST /v1/messages.  The receiver must exist and differ
// from the sender; new messages start UNREAD.
func (h *MessageHandler) Send(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req sendMessageReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.ReceiverID == 0 || req.Content == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "receiver_id/content required"})
	}
	if req.ReceiverID == userID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot message yourself"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Users.GetByID(ctx, req.ReceiverID); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "receiver not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	m := model.Message{SenderID: userID, ReceiverID: req.ReceiverID, Content: req.Content}
	if err := h.Messages.Create(ctx, &m); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "send message failed"})
	}

	h.Metrics.IncrementMessagesSent()

	return c.JSON(http.StatusCreated, messageViewOf(m))
}

// Conversation handles GET /v1/messages/:userId: both directions of
// the exchange with the given user, oldest first, excluding messages
// the caller soft-deleted.
func (h *MessageHandler) Conversation(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	otherID, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil || otherID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	msgs, err := h.Messages.Conversation(ctx, userID, otherID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load conversation failed"})
	}

	out := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageViewOf(m))
	}
	return c.JSON(http.StatusOK, echo.Map{"messages": out, "count": len(out)})
}

// MarkRead handles POST /v1/messages/read.  Flips the caller's UNREAD
// incoming messages to ALL_READ, optionally from one sender only, and
// reports how many changed.  The receiver guard is part of the UPDATE
// statement, so messages addressed to others are untouchable.
func (h *MessageHandler) MarkRead(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req markReadReq
	_ = c.Bind(&req) // body is optional

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	n, err := h.Messages.MarkRead(ctx, userID, req.SenderID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "mark read failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": n})
}

// Edit handles PUT /v1/messages/:id.  Only the sender may edit; the
// message is flagged edited and its read state stays untouched.
func (h *MessageHandler) Edit(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid message id"})
	}

	var req editMessageReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "content required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	m, err := h.Messages.Edit(ctx, id, userID, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrMessageNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "message not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "only the sender can edit"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "edit message failed"})
		}
	}
	return c.JSON(http.StatusOK, messageViewOf(m))
}

// Delete handles DELETE /v1/messages/:id?for=me|all.  "me" (the
// default) soft-deletes the caller's side only.  "all" removes the
// message for both participants; only the sender may do that, and only
// inside the five-minute window after sending.
func (h *MessageHandler) Delete(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid message id"})
	}

	scope := strings.ToLower(strings.TrimSpace(c.QueryParam("for")))
	if scope == "" {
		scope = "me"
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	switch scope {
	case "me":
		if err := h.Messages.SoftDelete(ctx, id, userID); err != nil {
			switch {
			case errors.Is(err, repository.ErrMessageNotFound):
				return c.JSON(http.StatusNotFound, echo.Map{"error": "message not found"})
			case errors.Is(err, repository.ErrForbidden):
				return c.JSON(http.StatusForbidden, echo.Map{"error": "not a participant"})
			default:
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete message failed"})
			}
		}
		return c.NoContent(http.StatusNoContent)

	case "all":
		m, err := h.Messages.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrMessageNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "message not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		if m.SenderID != userID {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "only the sender can delete for everyone"})
		}
		// The window is re-checked inside the DELETE; a stale read here
		// cannot extend it.
		if err := h.Messages.HardDelete(ctx, id, userID, model.HardDeleteWindow); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return c.JSON(http.StatusConflict, echo.Map{"error": "delete window has passed"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete message failed"})
		}
		return c.NoContent(http.StatusNoContent)

	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "for must be me or all"})
	}
}

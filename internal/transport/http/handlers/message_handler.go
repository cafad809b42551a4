package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/vedran77/anonbox/internal/service"
	"github.com/vedran77/anonbox/internal/transport/http/middleware"
)

type MessageHandler struct {
	messageService *service.MessageService
}

func NewMessageHandler(messageService *service.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// Send accepts an anonymous message for the user in the path. No session is
// needed.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	var input service.SendMessageInput
	if !decodeJSON(w, r, &input) {
		return
	}

	_, err := h.messageService.Send(r.Context(), r.PathValue("username"), input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyMessage):
			writeError(w, http.StatusBadRequest, "MISSING_CONTENT", "Message content cannot be empty")
		case errors.Is(err, service.ErrMessageTooLong):
			writeError(w, http.StatusBadRequest, "CONTENT_TOO_LONG", "Message is too long")
		case errors.Is(err, service.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Recipient not found")
		default:
			writeInternal(w, "send message", err)
		}
		return
	}

	writeMessage(w, http.StatusCreated, "Message sent")
}

func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	msgs, err := h.messageService.List(r.Context(), userID)
	if err != nil {
		writeInternal(w, "list messages", err)
		return
	}

	writeJSON(w, http.StatusOK, msgs)
}

// MarkRead answers 204 whether or not the message was already read.
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	messageID, ok := parseID(w, r, "message")
	if !ok {
		return
	}

	if _, err := h.messageService.MarkRead(r.Context(), userID, messageID); err != nil {
		if errors.Is(err, service.ErrMessageNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Message not found")
		} else {
			writeInternal(w, "mark read", err)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *MessageHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	n, err := h.messageService.DeleteAll(r.Context(), userID)
	if err != nil {
		writeInternal(w, "delete messages", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":      fmt.Sprintf("Deleted %d messages", n),
		"deletedCount": n,
	})
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/vedran77/anonbox/internal/service"
	"github.com/vedran77/anonbox/internal/transport/http/middleware"
)

type PollHandler struct {
	pollService *service.PollService
}

func NewPollHandler(pollService *service.PollService) *PollHandler {
	return &PollHandler{pollService: pollService}
}

func (h *PollHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input service.CreatePollInput
	if !decodeJSON(w, r, &input) {
		return
	}

	poll, err := h.pollService.Create(r.Context(), userID, input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPollQuestion),
			errors.Is(err, service.ErrPollTooFewOptions),
			errors.Is(err, service.ErrPollTooManyOptions):
			writeError(w, http.StatusBadRequest, "INVALID_POLL", err.Error())
		default:
			writeInternal(w, "create poll", err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, poll)
}

func (h *PollHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	polls, err := h.pollService.ListMine(r.Context(), userID)
	if err != nil {
		writeInternal(w, "list polls", err)
		return
	}

	writeJSON(w, http.StatusOK, polls)
}

func (h *PollHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	polls, err := h.pollService.ListActive(r.Context(), r.PathValue("username"))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "User not found")
		} else {
			writeInternal(w, "list active polls", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, polls)
}

type voteRequest struct {
	OptionIndex *int `json:"optionIndex"`
}

func (h *PollHandler) Vote(w http.ResponseWriter, r *http.Request) {
	pollID, ok := parseID(w, r, "poll")
	if !ok {
		return
	}

	var input voteRequest
	if !decodeJSON(w, r, &input) {
		return
	}
	if input.OptionIndex == nil {
		writeError(w, http.StatusBadRequest, "INVALID_OPTION", "optionIndex is required")
		return
	}

	err := h.pollService.Vote(r.Context(), pollID, *input.OptionIndex, middleware.GetClientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPollNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Poll not found or inactive")
		case errors.Is(err, service.ErrInvalidOption), errors.Is(err, service.ErrMissingVoterAddress):
			writeError(w, http.StatusBadRequest, "INVALID_OPTION", "Selected option is invalid")
		case errors.Is(err, service.ErrAlreadyVoted):
			writeError(w, http.StatusForbidden, "ALREADY_VOTED", "You have already voted in this poll")
		default:
			writeInternal(w, "vote", err)
		}
		return
	}

	writeMessage(w, http.StatusOK, "Vote recorded")
}

func (h *PollHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	pollID, ok := parseID(w, r, "poll")
	if !ok {
		return
	}

	if err := h.pollService.Delete(r.Context(), userID, pollID); err != nil {
		if errors.Is(err, service.ErrPollNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Poll not found")
		} else {
			writeInternal(w, "delete poll", err)
		}
		return
	}

	writeMessage(w, http.StatusOK, "Poll deleted")
}

func (h *PollHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	pollID, ok := parseID(w, r, "poll")
	if !ok {
		return
	}

	poll, err := h.pollService.Toggle(r.Context(), userID, pollID)
	if err != nil {
		if errors.Is(err, service.ErrPollNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Poll not found")
		} else {
			writeInternal(w, "toggle poll", err)
		}
		return
	}

	message := "Poll deactivated"
	if poll.IsActive {
		message = "Poll activated"
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": message, "poll": poll})
}

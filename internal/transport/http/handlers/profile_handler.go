package handlers

import (
	"errors"
	"net/http"

	"github.com/vedran77/anonbox/internal/service"
	"github.com/vedran77/anonbox/internal/transport/http/middleware"
	"github.com/vedran77/anonbox/pkg/validator"
)

// Multipart envelopes carry a little more than the file itself.
const multipartSlack = 1 << 20

type ProfileHandler struct {
	profileService *service.ProfileService
}

func NewProfileHandler(profileService *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	me, err := h.profileService.Me(r.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "User not found")
		} else {
			writeInternal(w, "me", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, me)
}

type updatePromptRequest struct {
	Prompt string `json:"prompt"`
}

func (h *ProfileHandler) UpdatePrompt(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input updatePromptRequest
	if !decodeJSON(w, r, &input) {
		return
	}
	if errs := validator.ValidatePrompt(input.Prompt); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	prompt, err := h.profileService.UpdatePrompt(r.Context(), userID, input.Prompt)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "User not found")
		} else {
			writeInternal(w, "update prompt", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":   "Prompt updated",
		"newPrompt": prompt,
	})
}

func (h *ProfileHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, service.MaxAvatarSize+multipartSlack)
	file, header, err := r.FormFile("avatar")
	if err != nil {
		if isTooLarge(err) {
			writeError(w, http.StatusBadRequest, "FILE_TOO_LARGE", "Avatar must be 5MB or smaller")
		} else {
			writeError(w, http.StatusBadRequest, "MISSING_FILE", "No image file was uploaded")
		}
		return
	}
	defer file.Close()

	url, err := h.profileService.UpdateAvatar(r.Context(), userID, service.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotImage):
			writeError(w, http.StatusBadRequest, "NOT_IMAGE", "Only image files are allowed")
		case errors.Is(err, service.ErrFileTooLarge):
			writeError(w, http.StatusBadRequest, "FILE_TOO_LARGE", "Avatar must be 5MB or smaller")
		case errors.Is(err, service.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "User not found")
		case errors.Is(err, service.ErrMediaUpload):
			writeError(w, http.StatusInternalServerError, "UPLOAD_FAILED", "Failed to upload avatar")
		default:
			writeInternal(w, "update avatar", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":      "Avatar updated",
		"newAvatarUrl": url,
	})
}

func (h *ProfileHandler) Public(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profileService.PublicProfile(r.Context(), r.PathValue("username"))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "User not found")
		} else {
			writeInternal(w, "public profile", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

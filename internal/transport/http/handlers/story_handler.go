package handlers

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vedran77/anonbox/internal/domain"
	"github.com/vedran77/anonbox/internal/service"
	"github.com/vedran77/anonbox/internal/transport/http/middleware"
)

type StoryHandler struct {
	storyService *service.StoryService
}

func NewStoryHandler(storyService *service.StoryService) *StoryHandler {
	return &StoryHandler{storyService: storyService}
}

// storyRequest mirrors the form fields of POST /api/stories. Text and reply
// stories may also be sent as JSON.
type storyRequest struct {
	Type                   string      `json:"type"`
	TextContent            string      `json:"textContent"`
	BackgroundColor        string      `json:"backgroundColor"`
	FontColor              string      `json:"fontColor"`
	FontFamily             string      `json:"fontFamily"`
	TextAlign              string      `json:"textAlign"`
	ReplyImageMediaURL     string      `json:"replyImageMediaUrl"`
	OriginalMessageContent string      `json:"originalMessageContent"`
	UserReplyContent       string      `json:"userReplyContent"`
	DurationSeconds        json.Number `json:"durationSeconds"`
	ExpiresAt              string      `json:"expiresAt"`
}

func (req storyRequest) input() (service.CreateStoryInput, error) {
	input := service.CreateStoryInput{
		Type:                   domain.StoryType(req.Type),
		TextContent:            req.TextContent,
		BackgroundColor:        req.BackgroundColor,
		FontColor:              req.FontColor,
		FontFamily:             req.FontFamily,
		TextAlign:              req.TextAlign,
		ReplyImageMediaURL:     req.ReplyImageMediaURL,
		OriginalMessageContent: req.OriginalMessageContent,
		UserReplyContent:       req.UserReplyContent,
	}
	// Unparseable durations fall back to the type default.
	if n, err := strconv.Atoi(string(req.DurationSeconds)); err == nil {
		input.DurationSeconds = n
	}
	if req.ExpiresAt != "" {
		t, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			return input, service.ErrInvalidExpiry
		}
		input.ExpiresAt = &t
	}
	return input, nil
}

func formStoryRequest(form *multipart.Form) storyRequest {
	get := func(key string) string {
		if v := form.Value[key]; len(v) > 0 {
			return v[0]
		}
		return ""
	}
	return storyRequest{
		Type:                   get("type"),
		TextContent:            get("textContent"),
		BackgroundColor:        get("backgroundColor"),
		FontColor:              get("fontColor"),
		FontFamily:             get("fontFamily"),
		TextAlign:              get("textAlign"),
		ReplyImageMediaURL:     get("replyImageMediaUrl"),
		OriginalMessageContent: get("originalMessageContent"),
		UserReplyContent:       get("userReplyContent"),
		DurationSeconds:        json.Number(get("durationSeconds")),
		ExpiresAt:              get("expiresAt"),
	}
}

func (h *StoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req storyRequest
	var upload *service.Upload

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, service.MaxStoryMediaSize+multipartSlack)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			if isTooLarge(err) {
				writeError(w, http.StatusBadRequest, "FILE_TOO_LARGE", "File is too large. Maximum is 25MB.")
			} else {
				writeError(w, http.StatusBadRequest, "INVALID_FORM", "Invalid multipart form")
			}
			return
		}
		req = formStoryRequest(r.MultipartForm)

		if files := r.MultipartForm.File["mediaFile"]; len(files) > 0 {
			header := files[0]
			file, err := header.Open()
			if err != nil {
				writeInternal(w, "open story media", err)
				return
			}
			defer file.Close()
			upload = &service.Upload{
				Filename:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Size:        header.Size,
				Body:        file,
			}
		}
	} else if !decodeJSON(w, r, &req) {
		return
	}

	input, err := req.input()
	if err == nil {
		input.File = upload
		var story *domain.Story
		story, err = h.storyService.Create(r.Context(), userID, input)
		if err == nil {
			writeJSON(w, http.StatusCreated, story)
			return
		}
	}

	switch {
	case errors.Is(err, service.ErrInvalidStoryType),
		errors.Is(err, service.ErrEmptyStoryText),
		errors.Is(err, service.ErrStoryTextTooLong),
		errors.Is(err, service.ErrInvalidTextAlign),
		errors.Is(err, service.ErrMediaRequired),
		errors.Is(err, service.ErrReplyImageRequired),
		errors.Is(err, service.ErrInvalidExpiry):
		writeError(w, http.StatusBadRequest, "INVALID_STORY", err.Error())
	case errors.Is(err, service.ErrUnsupportedMedia):
		writeError(w, http.StatusBadRequest, "UNSUPPORTED_MEDIA", "Only image or video files are allowed")
	case errors.Is(err, service.ErrFileTooLarge):
		writeError(w, http.StatusBadRequest, "FILE_TOO_LARGE", "File is too large. Maximum is 25MB.")
	case errors.Is(err, service.ErrMediaUpload):
		writeError(w, http.StatusInternalServerError, "UPLOAD_FAILED", "Failed to upload story media")
	default:
		writeInternal(w, "create story", err)
	}
}

type replyImageRequest struct {
	ImageDataURL string `json:"imageDataUrl"`
	Filename     string `json:"filename"`
}

func (h *StoryHandler) UploadReplyImage(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	// Base64 inflates the payload by a third.
	r.Body = http.MaxBytesReader(w, r.Body, service.MaxStoryMediaSize*4/3+multipartSlack)
	var input replyImageRequest
	if err := decodeBody(r, &input); err != nil {
		if isTooLarge(err) {
			writeError(w, http.StatusBadRequest, "FILE_TOO_LARGE", "Image is too large")
		} else {
			writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		}
		return
	}
	if input.ImageDataURL == "" {
		writeError(w, http.StatusBadRequest, "MISSING_IMAGE", "imageDataUrl is required")
		return
	}

	up, err := h.storyService.UploadReplyImage(r.Context(), userID, input.ImageDataURL, input.Filename)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidImageDataURL):
			writeError(w, http.StatusBadRequest, "INVALID_IMAGE", err.Error())
		case errors.Is(err, service.ErrFileTooLarge):
			writeError(w, http.StatusBadRequest, "FILE_TOO_LARGE", "Image is too large")
		case errors.Is(err, service.ErrMediaUpload):
			writeError(w, http.StatusInternalServerError, "UPLOAD_FAILED", "Failed to upload reply image")
		default:
			writeInternal(w, "upload reply image", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, up)
}

func (h *StoryHandler) Public(w http.ResponseWriter, r *http.Request) {
	stories, err := h.storyService.Public(r.Context(), r.PathValue("username"))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "User not found")
		} else {
			writeInternal(w, "public stories", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, stories)
}

func (h *StoryHandler) Mine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	stories, err := h.storyService.Mine(r.Context(), userID)
	if err != nil {
		writeInternal(w, "my stories", err)
		return
	}

	writeJSON(w, http.StatusOK, stories)
}

func (h *StoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	storyID, ok := parseID(w, r, "story")
	if !ok {
		return
	}

	if err := h.storyService.Delete(r.Context(), userID, storyID); err != nil {
		switch {
		case errors.Is(err, service.ErrStoryNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Story not found")
		case errors.Is(err, service.ErrMediaDelete):
			writeError(w, http.StatusInternalServerError, "MEDIA_DELETE_FAILED", "Failed to delete story media")
		default:
			writeInternal(w, "delete story", err)
		}
		return
	}

	writeMessage(w, http.StatusOK, "Story deleted")
}

func (h *StoryHandler) Archive(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	storyID, ok := parseID(w, r, "story")
	if !ok {
		return
	}

	story, err := h.storyService.Archive(r.Context(), userID, storyID)
	if err != nil {
		if errors.Is(err, service.ErrStoryNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Story not found")
		} else {
			writeInternal(w, "archive story", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "Story archived", "story": story})
}

func (h *StoryHandler) Unarchive(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	storyID, ok := parseID(w, r, "story")
	if !ok {
		return
	}

	story, err := h.storyService.Unarchive(r.Context(), userID, storyID)
	if err != nil {
		if errors.Is(err, service.ErrStoryNotArchived) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Story not found or not archived")
		} else {
			writeInternal(w, "unarchive story", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "Story restored", "story": story})
}

func (h *StoryHandler) View(w http.ResponseWriter, r *http.Request) {
	storyID, ok := parseID(w, r, "story")
	if !ok {
		return
	}

	if err := h.storyService.View(r.Context(), storyID); err != nil {
		if errors.Is(err, service.ErrStoryNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Story not found")
		} else {
			writeInternal(w, "view story", err)
		}
		return
	}

	writeMessage(w, http.StatusOK, "View recorded")
}

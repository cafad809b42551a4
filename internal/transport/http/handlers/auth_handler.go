package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vedran77/anonbox/internal/service"
	"github.com/vedran77/anonbox/pkg/validator"
)

// Sessions opens and closes cookie sessions.
type Sessions interface {
	Start(ctx context.Context, w http.ResponseWriter, userID uuid.UUID) error
	End(w http.ResponseWriter, r *http.Request) (uuid.UUID, error)
}

// Unbinder drops a user's real-time connection binding.
type Unbinder interface {
	Unbind(userID uuid.UUID)
}

type AuthHandler struct {
	authService *service.AuthService
	sessions    Sessions
	registry    Unbinder
}

func NewAuthHandler(authService *service.AuthService, sessions Sessions, registry Unbinder) *AuthHandler {
	return &AuthHandler{authService: authService, sessions: sessions, registry: registry}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input service.RegisterInput
	if !decodeJSON(w, r, &input) {
		return
	}

	if errs := validator.ValidateRegister(input.Username, input.Email, input.Password); errs.HasErrors() {
		writeValidationErrors(w, errs, "username", "email", "password")
		return
	}

	user, err := h.authService.Register(r.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUsernameTaken):
			writeError(w, http.StatusBadRequest, "USERNAME_TAKEN", "Username is already taken")
		case errors.Is(err, service.ErrEmailTaken):
			writeError(w, http.StatusBadRequest, "EMAIL_TAKEN", "Email is already registered")
		default:
			writeInternal(w, "register", err)
		}
		return
	}

	if err := h.sessions.Start(r.Context(), w, user.ID); err != nil {
		writeInternal(w, "register session", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Registration successful",
		"user":    user.Summary(),
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input service.LoginInput
	if !decodeJSON(w, r, &input) {
		return
	}

	if errs := validator.ValidateLogin(input.Username, input.Password); errs.HasErrors() {
		writeValidationErrors(w, errs, "username", "password")
		return
	}

	user, err := h.authService.Login(r.Context(), input)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCreds) {
			writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password")
		} else {
			writeInternal(w, "login", err)
		}
		return
	}

	if err := h.sessions.Start(r.Context(), w, user.ID); err != nil {
		writeInternal(w, "login session", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"user":    user.Summary(),
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, err := h.sessions.End(w, r)
	if err != nil {
		writeInternal(w, "logout", err)
		return
	}

	if userID != uuid.Nil {
		h.registry.Unbind(userID)
		logrus.WithField("user_id", userID).Info("user logged out")
	}

	writeMessage(w, http.StatusOK, "Logout successful")
}

type forgotPasswordRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
}

const forgotPasswordReply = "If the account exists and has an email address, a reset link has been sent."

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var input forgotPasswordRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	identifier := input.Email
	if identifier == "" {
		identifier = input.Username
	}
	if identifier == "" {
		writeError(w, http.StatusBadRequest, "MISSING_IDENTIFIER", "Enter your email address or username")
		return
	}

	if err := h.authService.ForgotPassword(r.Context(), identifier); err != nil {
		if errors.Is(err, service.ErrEmailDelivery) {
			writeError(w, http.StatusInternalServerError, "EMAIL_FAILED", "Could not send the reset email. Try again later.")
		} else {
			writeInternal(w, "forgot password", err)
		}
		return
	}

	writeMessage(w, http.StatusOK, forgotPasswordReply)
}

type resetPasswordRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var input resetPasswordRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	if errs := validator.ValidateResetPassword(input.Password, input.ConfirmPassword); errs.HasErrors() {
		writeValidationErrors(w, errs, "password", "confirmPassword")
		return
	}

	if err := h.authService.ResetPassword(r.Context(), r.PathValue("token"), input.Password); err != nil {
		if errors.Is(err, service.ErrInvalidResetToken) {
			writeError(w, http.StatusBadRequest, "INVALID_TOKEN", "Reset token is invalid or has expired")
		} else {
			writeInternal(w, "reset password", err)
		}
		return
	}

	writeMessage(w, http.StatusOK, "Password has been reset. You can log in now.")
}

package validator

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

type ValidationErrors map[string]string

func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Add(field, message string) {
	v[field] = message
}

// First returns one message, preferring the given field order.
func (v ValidationErrors) First(order ...string) string {
	for _, f := range order {
		if msg, ok := v[f]; ok {
			return msg
		}
	}
	for _, msg := range v {
		return msg
	}
	return ""
}

const (
	MinPasswordLength = 6
	MaxPromptLength   = 100
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

func ValidateRegister(username, email, password string) ValidationErrors {
	errs := make(ValidationErrors)

	username = strings.TrimSpace(username)
	if username == "" {
		errs.Add("username", "Username is required")
	} else if len(username) < 3 {
		errs.Add("username", "Username must be at least 3 characters")
	} else if len(username) > 30 {
		errs.Add("username", "Username is too long")
	} else if !usernameRegex.MatchString(username) {
		errs.Add("username", "Username can only contain letters, numbers, _, . and -")
	}

	// Email is optional; it only enables password reset.
	email = strings.TrimSpace(email)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			errs.Add("email", "Invalid email address")
		}
	}

	validatePassword(password, errs)

	return errs
}

func ValidateLogin(username, password string) ValidationErrors {
	errs := make(ValidationErrors)

	if strings.TrimSpace(username) == "" {
		errs.Add("username", "Username is required")
	}
	if password == "" {
		errs.Add("password", "Password is required")
	}

	return errs
}

func ValidateResetPassword(password, confirm string) ValidationErrors {
	errs := make(ValidationErrors)

	if password == "" || confirm == "" {
		errs.Add("password", "Password and confirmation are required")
		return errs
	}
	if password != confirm {
		errs.Add("confirmPassword", "Passwords do not match")
		return errs
	}
	validatePassword(password, errs)

	return errs
}

func ValidatePrompt(prompt string) ValidationErrors {
	errs := make(ValidationErrors)

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		errs.Add("prompt", "Prompt cannot be empty")
	} else if utf8.RuneCountInString(prompt) > MaxPromptLength {
		errs.Add("prompt", "Prompt is too long (max 100 characters)")
	}

	return errs
}

func validatePassword(password string, errs ValidationErrors) {
	if password == "" {
		errs.Add("password", "Password is required")
		return
	}
	if len(password) < MinPasswordLength {
		errs.Add("password", "Password must be at least 6 characters")
	}
}

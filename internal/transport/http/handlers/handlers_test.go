package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/anonbox/internal/domain"
	"github.com/vedran77/anonbox/internal/service"
	"github.com/vedran77/anonbox/pkg/validator"
)

func TestHealthHandler_Ready(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]Pinger
		wantStatus int
		wantReady  bool
	}{
		{
			name:       "all up",
			checks:     map[string]Pinger{"db": PingFunc(func(context.Context) error { return nil })},
			wantStatus: http.StatusOK,
			wantReady:  true,
		},
		{
			name:   "redis down",
			checks: map[string]Pinger{
				"db":    PingFunc(func(context.Context) error { return nil }),
				"redis": PingFunc(func(context.Context) error { return errors.New("connection refused") }),
			},
			wantStatus: http.StatusServiceUnavailable,
			wantReady:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewHealthHandler(tt.checks).Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body struct {
				Ready  bool              `json:"ready"`
				Checks map[string]string `json:"checks"`
			}
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.wantReady, body.Ready)
			assert.Len(t, body.Checks, len(tt.checks))
		})
	}
}

func TestStoryRequest_Input(t *testing.T) {
	in, err := storyRequest{Type: "text_story", TextContent: "hi", DurationSeconds: "12"}.input()
	require.NoError(t, err)
	assert.Equal(t, domain.StoryTypeText, in.Type)
	assert.Equal(t, 12, in.DurationSeconds)
	assert.Nil(t, in.ExpiresAt)

	in, err = storyRequest{Type: "text_story", DurationSeconds: "soon"}.input()
	require.NoError(t, err)
	assert.Zero(t, in.DurationSeconds)

	exp := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	in, err = storyRequest{ExpiresAt: exp.Format(time.RFC3339)}.input()
	require.NoError(t, err)
	require.NotNil(t, in.ExpiresAt)
	assert.True(t, exp.Equal(*in.ExpiresAt))

	_, err = storyRequest{ExpiresAt: "tomorrow"}.input()
	assert.ErrorIs(t, err, service.ErrInvalidExpiry)
}

func TestWriteValidationErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	errs := validator.ValidationErrors{}
	errs.Add("password", "Password is required")
	errs.Add("username", "Username is required")

	writeValidationErrors(rec, errs, "username", "password")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Error struct {
			Code    string            `json:"code"`
			Message string            `json:"message"`
			Fields  map[string]string `json:"fields"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
	assert.Equal(t, "Username is required", body.Error.Message)
	assert.Len(t, body.Error.Fields, 2)
}

func TestParseID(t *testing.T) {
	mux := http.NewServeMux()
	var ok bool
	mux.HandleFunc("GET /things/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, ok = parseID(w, r, "thing")
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/things/nope", nil))
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_ID")
}

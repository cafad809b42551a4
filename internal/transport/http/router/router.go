package router

import (
	"net/http"
	"net/netip"

	"github.com/vedran77/anonbox/internal/service"
	"github.com/vedran77/anonbox/internal/transport/http/handlers"
	"github.com/vedran77/anonbox/internal/transport/http/middleware"
	"github.com/vedran77/anonbox/internal/transport/ws"
)

// SessionManager authenticates requests and opens and closes sessions.
type SessionManager interface {
	middleware.Authenticator
	handlers.Sessions
}

type Deps struct {
	AuthService    *service.AuthService
	ProfileService *service.ProfileService
	MessageService *service.MessageService
	PollService    *service.PollService
	StoryService   *service.StoryService

	Sessions       SessionManager
	Registry       *ws.Registry
	MessageLimiter middleware.Limiter

	CORSOrigin       string
	WSOriginPatterns []string
	TrustedProxies   []netip.Prefix
	ReadyChecks      map[string]handlers.Pinger
}

const messageLimitReply = "Too many messages sent from this IP, please try again later."

// New builds the complete HTTP handler: routes, auth, rate limiting, CORS,
// client address resolution and access logging.
func New(d Deps) http.Handler {
	authHandler := handlers.NewAuthHandler(d.AuthService, d.Sessions, d.Registry)
	profileHandler := handlers.NewProfileHandler(d.ProfileService)
	messageHandler := handlers.NewMessageHandler(d.MessageService)
	pollHandler := handlers.NewPollHandler(d.PollService)
	storyHandler := handlers.NewStoryHandler(d.StoryService)
	healthHandler := handlers.NewHealthHandler(d.ReadyChecks)

	auth := middleware.Auth(d.Sessions)
	limitMessages := middleware.RateLimit(d.MessageLimiter, messageLimitReply)

	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /ready", healthHandler.Ready)
	mux.HandleFunc("POST /api/register", authHandler.Register)
	mux.HandleFunc("POST /api/login", authHandler.Login)
	mux.HandleFunc("POST /api/logout", authHandler.Logout)
	mux.HandleFunc("POST /api/forgot-password", authHandler.ForgotPassword)
	mux.HandleFunc("POST /api/reset/{token}", authHandler.ResetPassword)
	mux.HandleFunc("GET /api/users/{username}", profileHandler.Public)
	mux.Handle("POST /api/messages/{username}", limitMessages(http.HandlerFunc(messageHandler.Send)))
	mux.HandleFunc("GET /api/polls/active/{username}", pollHandler.ListActive)
	mux.HandleFunc("POST /api/polls/{id}/vote", pollHandler.Vote)
	mux.HandleFunc("GET /api/stories/public/{username}", storyHandler.Public)
	mux.HandleFunc("POST /api/stories/{id}/view", storyHandler.View)

	// Protected - Profile
	mux.Handle("GET /api/me", auth(http.HandlerFunc(profileHandler.Me)))
	mux.Handle("PUT /api/me/prompt", auth(http.HandlerFunc(profileHandler.UpdatePrompt)))
	mux.Handle("POST /api/me/avatar", auth(http.HandlerFunc(profileHandler.UpdateAvatar)))

	// Protected - Messages
	mux.Handle("GET /api/my-messages", auth(http.HandlerFunc(messageHandler.List)))
	mux.Handle("PUT /api/messages/{id}/read", auth(http.HandlerFunc(messageHandler.MarkRead)))
	mux.Handle("DELETE /api/my-messages/all", auth(http.HandlerFunc(messageHandler.DeleteAll)))

	// Protected - Polls
	mux.Handle("POST /api/polls", auth(http.HandlerFunc(pollHandler.Create)))
	mux.Handle("GET /api/my-polls", auth(http.HandlerFunc(pollHandler.ListMine)))
	mux.Handle("DELETE /api/polls/{id}", auth(http.HandlerFunc(pollHandler.Delete)))
	mux.Handle("PUT /api/polls/{id}/toggle", auth(http.HandlerFunc(pollHandler.Toggle)))

	// Protected - Stories
	mux.Handle("POST /api/stories", auth(http.HandlerFunc(storyHandler.Create)))
	mux.Handle("POST /api/stories/upload-reply-image", auth(http.HandlerFunc(storyHandler.UploadReplyImage)))
	mux.Handle("GET /api/stories/me", auth(http.HandlerFunc(storyHandler.Mine)))
	mux.Handle("DELETE /api/stories/{id}", auth(http.HandlerFunc(storyHandler.Delete)))
	mux.Handle("PUT /api/stories/{id}/archive", auth(http.HandlerFunc(storyHandler.Archive)))
	mux.Handle("PUT /api/stories/{id}/unarchive", auth(http.HandlerFunc(storyHandler.Unarchive)))

	// Real-time; the session is checked before the upgrade
	mux.HandleFunc("GET /ws", ws.ServeWS(d.Registry, d.Sessions, d.WSOriginPatterns))

	return middleware.ClientIP(d.TrustedProxies)(middleware.Logger(middleware.CORS(d.CORSOrigin)(mux)))
}

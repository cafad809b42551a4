package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vedran77/anonbox/internal/config"
	"github.com/vedran77/anonbox/internal/database"
	"github.com/vedran77/anonbox/internal/email"
	"github.com/vedran77/anonbox/internal/logging"
	"github.com/vedran77/anonbox/internal/media"
	"github.com/vedran77/anonbox/internal/ratelimit"
	postgresrepo "github.com/vedran77/anonbox/internal/repository/postgres"
	"github.com/vedran77/anonbox/internal/service"
	"github.com/vedran77/anonbox/internal/session"
	"github.com/vedran77/anonbox/internal/transport/http/handlers"
	"github.com/vedran77/anonbox/internal/transport/http/middleware"
	"github.com/vedran77/anonbox/internal/transport/http/router"
	"github.com/vedran77/anonbox/internal/transport/ws"
)

func main() {
	cfg := config.Load()

	logCloser, err := logging.Setup(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	if err != nil {
		logrus.Fatal(err)
	}
	defer logCloser.Close()

	ctx := context.Background()

	// Database
	db, err := database.Connect(cfg)
	if err != nil {
		logrus.Fatal(err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		logrus.Fatal(err)
	}
	logrus.Info("Connected to database")

	// Redis
	sessionStore, err := session.NewRedisStore(cfg.RedisURL)
	if err != nil {
		logrus.Fatal(err)
	}
	defer sessionStore.Close()

	// Media and email
	mediaStore, err := media.NewS3Store(ctx, media.Config{
		Region:       cfg.S3Region,
		Bucket:       cfg.S3Bucket,
		BaseEndpoint: cfg.S3BaseEndpoint,
		AccessKey:    cfg.S3AccessKey,
		SecretKey:    cfg.S3SecretKey,
		PublicURL:    cfg.MediaPublicURL,
	})
	if err != nil {
		logrus.Fatal(err)
	}
	mailer := email.NewService(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	})
	if !mailer.IsConfigured() {
		logrus.Warn("SMTP is not configured; password reset emails will fail")
	}

	// Repositories
	userRepo := postgresrepo.NewUserRepo(db)
	messageRepo := postgresrepo.NewMessageRepo(db)
	pollRepo := postgresrepo.NewPollRepo(db)
	storyRepo := postgresrepo.NewStoryRepo(db)

	trustedProxies, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		logrus.Fatal(err)
	}

	// Real-time
	registry := ws.NewRegistry()

	// Services
	messageService := service.NewMessageService(messageRepo, userRepo)
	messageService.SetNotifier(ws.NewRegistryNotifier(registry))

	handler := router.New(router.Deps{
		AuthService:    service.NewAuthService(userRepo, mailer, cfg.BaseURL),
		ProfileService: service.NewProfileService(userRepo, messageRepo, mediaStore),
		MessageService: messageService,
		PollService:    service.NewPollService(pollRepo, userRepo, cfg.VoteSalt),
		StoryService:   service.NewStoryService(storyRepo, userRepo, mediaStore),

		Sessions:       session.NewManager(sessionStore, cfg.SessionSecret, cfg.SessionTTL, cfg.CookieSecure),
		Registry:       registry,
		MessageLimiter: ratelimit.NewRedisLimiter(sessionStore.Client(), "anonbox:ratelimit:messages", cfg.MessageRateLimit, cfg.MessageRateWindow),

		CORSOrigin:       cfg.CORSOrigin,
		WSOriginPatterns: originPatterns(cfg.CORSOrigin),
		TrustedProxies:   trustedProxies,
		ReadyChecks:      map[string]handlers.Pinger{
			"database": handlers.PingFunc(db.PingContext),
			"redis":    sessionStore,
		},
	})

	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logrus.Infof("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatal(err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logrus.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("graceful shutdown failed")
	}
}

// originPatterns turns the CORS origin into the host pattern the WebSocket
// upgrade checks against.
func originPatterns(origin string) []string {
	if origin == "*" {
		return []string{"*"}
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return nil
	}
	return []string{u.Host}
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"tripplanner-backend/config"
	"tripplanner-backend/database"
	"tripplanner-backend/handlers"
	"tripplanner-backend/jobs"
	"tripplanner-backend/logging"
	"tripplanner-backend/middleware"
	"tripplanner-backend/realtime"
	"tripplanner-backend/services"
	"tripplanner-backend/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load configuration")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		log.WithError(err).Fatal("connect database")
	}
	defer database.Close(db)
	if err := database.Migrate(db); err != nil {
		log.WithError(err).Fatal("migrate database")
	}

	// Redis is optional; without it the realtime hub only serves local sockets.
	rdb := database.ConnectRedis(ctx, cfg.RedisURL, log)
	if rdb != nil {
		defer rdb.Close()
	}

	hub := realtime.NewHub(rdb, cfg.AllowedOrigins(), log)
	go func() {
		if err := hub.Run(ctx); err != nil {
			log.WithError(err).Error("realtime relay stopped")
		}
	}()

	// Outbound channels
	var pusher services.Pusher
	if cfg.FirebaseCredPath != "" {
		fcm, err := services.NewFCMPusher(ctx, cfg.FirebaseCredPath)
		if err != nil {
			log.WithError(err).Warn("firebase unavailable, push notifications disabled")
		} else {
			pusher = fcm
		}
	}
	mailer := newMailer(ctx, cfg, log)

	// Domain
	events := services.NewDispatcher(log, cfg.AsyncNotifications)
	users := services.NewUserService(db)
	trips := services.NewTripService(db, events, log, cfg.InvitationTTL)
	expenses := services.NewExpenseService(db, events, log)
	catalog := services.NewCatalogService(db, events)
	chat := services.NewChatService(db, hub, log)
	notify := services.NewNotificationService(db, hub, pusher, mailer, log)
	activity := services.NewActivityService(db)
	services.NewEventConsumers(chat, notify, activity, cfg.AppName, cfg.AppURL).Register(events)

	scheduler := jobs.NewScheduler(trips, expenses, events, log)
	if err := scheduler.Schedule(cfg.InvitationSweepSpec, cfg.PaymentReminderSpec); err != nil {
		log.WithError(err).Fatal("schedule jobs")
	}
	scheduler.Start()

	// HTTP
	gin.SetMode(gin.ReleaseMode)
	if err := utils.RegisterValidators(); err != nil {
		log.WithError(err).Fatal("register validators")
	}
	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, log)
	limiter.StartCleanup(ctx, 5*time.Minute)

	h := handlers.New(handlers.Deps{
		DB:       db,
		Users:    users,
		Trips:    trips,
		Expenses: expenses,
		Catalog:  catalog,
		Chat:     chat,
		Notify:   notify,
		Activity: activity,
		Hub:      hub,
		Tokens:   utils.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL, cfg.AppName),
		Log:      log,
		AppName:  cfg.AppName,
	})
	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: handlers.NewRouter(h, handlers.RouterConfig{
			CORSOrigins: cfg.AllowedOrigins(),
			RateLimiter: limiter,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Infof("%s listening", cfg.AppName)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	hub.Close()
	scheduler.Stop(shutdownCtx)
	events.Wait()
}

func newMailer(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) services.Mailer {
	switch cfg.EmailProvider {
	case "sendgrid":
		return services.NewSendGridMailer(cfg.SendGridAPIKey, cfg.EmailFrom, cfg.AppName)
	case "ses":
		ses, err := services.NewSESMailer(ctx, cfg.AWSRegion, cfg.EmailFrom, cfg.AppName)
		if err != nil {
			log.WithError(err).Warn("ses unavailable, email disabled")
			return nil
		}
		return ses
	}
	log.Info("email provider not configured, email disabled")
	return nil
}

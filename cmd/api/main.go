// Divvy is an expense splitting and settlement tracking service.
//
// @title Divvy API
// @version 1.0
// @description Expense splitting and settlement tracking API
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/hazemk/divvy/docs"
	"github.com/hazemk/divvy/internal/balance"
	"github.com/hazemk/divvy/internal/config"
	"github.com/hazemk/divvy/internal/database"
	"github.com/hazemk/divvy/internal/expense"
	"github.com/hazemk/divvy/internal/expense/split"
	"github.com/hazemk/divvy/internal/group"
	"github.com/hazemk/divvy/internal/notification"
	"github.com/hazemk/divvy/internal/user"
	"github.com/hazemk/divvy/pkg/middleware"
	"github.com/hazemk/divvy/pkg/response"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	db, err := database.NewPostgres(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	redisClient := database.NewRedis(cfg, log)
	if redisClient != nil {
		defer redisClient.Close()
	}

	validate := validator.New()

	// Notifications.
	notificationRepo := notification.NewRepository(db)
	var mailer *notification.Mailer
	if cfg.SMTPHost != "" {
		mailer = notification.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom, log)
	}
	notificationService := notification.NewService(notificationRepo, mailer, log)
	notificationHandler := notification.NewHandler(notificationService)

	// Expenses.
	expenseRepo := expense.NewRepository(db)
	balanceCache := balance.NewCache(redisClient, log)
	expenseService := expense.NewService(expenseRepo, split.NewFactory(), expense.NewGuard(), notificationService, balanceCache, log)
	expenseHandler := expense.NewHandler(expenseService, validate)

	// Balances.
	balanceRepo := balance.NewRepository(db)
	balanceService := balance.NewService(balanceRepo, expenseRepo, balanceCache, log)
	balanceHandler := balance.NewHandler(balanceService)

	// Groups and users.
	groupService := group.NewService(group.NewRepository(db), log)
	groupHandler := group.NewHandler(groupService, validate)
	userService := user.NewService(user.NewRepository(db))
	userHandler := user.NewHandler(userService, validate)

	reminder := notification.NewReminder(notificationRepo, mailer, log, cfg.ReminderMaxAge)
	if err := reminder.Start(cfg.ReminderSchedule); err != nil {
		log.WithError(err).Fatal("failed to start reminder job")
	}
	defer reminder.Stop()

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLog(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.DevMode {
			r.Use(middleware.DevUser)
		} else {
			r.Use(middleware.Auth([]byte(cfg.JWTSecret)))
		}

		r.Mount("/users", userHandler.Routes())
		r.Mount("/groups", groupHandler.Routes())
		r.Mount("/expenses", expenseHandler.Routes())
		r.Mount("/balances", balanceHandler.Routes())
		r.Mount("/notifications", notificationHandler.Routes())
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}

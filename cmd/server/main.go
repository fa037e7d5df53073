package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/gimmyalex/lending-engine/internal/config"
	"github.com/gimmyalex/lending-engine/internal/handler"
	"github.com/gimmyalex/lending-engine/internal/repository"
	"github.com/gimmyalex/lending-engine/internal/service"
	"github.com/gimmyalex/lending-engine/pkg/logger"
	"github.com/gimmyalex/lending-engine/pkg/response"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	db, err := initDB(cfg)
	if err != nil {
		slog.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient := initRedis(cfg)
	defer redisClient.Close()

	// Repositories and unit of work
	loanRepo := repository.NewLoanRepository(db)
	cardRepo := repository.NewCardRepository(db)
	uow := repository.NewUnitOfWork(db)

	// Services
	loanService := service.NewLoanService(loanRepo, uow, redisClient, cfg)
	cardService := service.NewCardService(cardRepo, cfg)

	// Handlers
	loanHandler := handler.NewLoanHandler(loanService)
	cardHandler := handler.NewCardHandler(cardService)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	router := setupRoutes(loanHandler, cardHandler, healthHandler)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      response.LoggingMiddleware(router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		slog.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited")
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func setupRoutes(loanHandler *handler.LoanHandler, cardHandler *handler.CardHandler, healthHandler *handler.HealthHandler) *mux.Router {
	router := mux.NewRouter()

	// Health check
	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/loans", loanHandler.CreateLoan).Methods("POST")
	api.HandleFunc("/loans", loanHandler.ListLoans).Methods("GET")
	api.HandleFunc("/loans/{loanID}", loanHandler.GetLoan).Methods("GET")
	api.HandleFunc("/loans/{loanID}/schedule", loanHandler.GetSchedule).Methods("GET")
	api.HandleFunc("/loans/{loanID}/outstanding", loanHandler.GetOutstanding).Methods("GET")
	api.HandleFunc("/loans/{loanID}/repayments", loanHandler.ApplyRepayment).Methods("POST")
	api.HandleFunc("/loans/{loanID}/repayments", loanHandler.GetReceivedRepayments).Methods("GET")

	api.HandleFunc("/cards", cardHandler.IssueCard).Methods("POST")
	api.HandleFunc("/cards", cardHandler.ListCards).Methods("GET")
	api.HandleFunc("/cards/{cardID}/activate", cardHandler.ActivateCard).Methods("PATCH")
	api.HandleFunc("/cards/{cardID}/deactivate", cardHandler.DeactivateCard).Methods("PATCH")
	api.HandleFunc("/cards/{cardID}/transactions", cardHandler.CreateTransaction).Methods("POST")
	api.HandleFunc("/cards/{cardID}/transactions", cardHandler.GetTransactions).Methods("GET")

	return router
}

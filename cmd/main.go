package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openbracket/progression-engine/brackets"
	"github.com/openbracket/progression-engine/clients"
	"github.com/openbracket/progression-engine/config"
	"github.com/openbracket/progression-engine/db"
	"github.com/openbracket/progression-engine/handlers"
	"github.com/openbracket/progression-engine/repositories"
	"github.com/openbracket/progression-engine/routes"
	"github.com/openbracket/progression-engine/services"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	wsHub := brackets.NewHub(logger)
	go wsHub.Run()
	logger.Info("websocket hub started")

	txRunner := repositories.NewTxRunner(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	roundTypeRepo := repositories.NewPostgresRoundTypeRepository(dbConn)
	gameTypeRepo := repositories.NewPostgresGameTypeRepository(dbConn)
	swissBracketRepo := repositories.NewPostgresSwissBracketRepository(dbConn)
	standingRepo := repositories.NewPostgresSwissStandingRepository(dbConn)
	eloHistoryRepo := repositories.NewPostgresEloHistoryRepository(dbConn)
	outboxRepo := repositories.NewPostgresOutboxRepository(dbConn)
	logger.Info("repositories initialized")

	rosterClient := clients.NewHTTPRosterClient(cfg.RosterServiceURL, cfg.ExternalCallTimeout)
	ratingClient := clients.NewHTTPRatingClient(cfg.RatingServiceURL, cfg.ExternalCallTimeout)
	leaderboardClient := clients.NewHTTPLeaderboardClient(cfg.LeaderboardServiceURL, cfg.ExternalCallTimeout)
	tournamentClient := clients.NewHTTPTournamentClient(cfg.TournamentServiceURL, cfg.ExternalCallTimeout)
	logger.Info("collaborator clients initialized")

	dispatcher := services.NewOutboxDispatcher(
		txRunner,
		outboxRepo,
		ratingClient,
		leaderboardClient,
		tournamentClient,
		cfg.OutboxInterval,
		logger,
	)

	bracketService := services.NewBracketService(
		txRunner,
		rosterClient,
		matchRepo,
		roundTypeRepo,
		gameTypeRepo,
		swissBracketRepo,
		standingRepo,
		logger,
	)
	ratingService := services.NewRatingService(txRunner, eloHistoryRepo, outboxRepo, ratingClient, logger)
	matchService := services.NewMatchService(
		txRunner,
		matchRepo,
		swissBracketRepo,
		standingRepo,
		outboxRepo,
		bracketService,
		ratingService,
		wsHub,
		dispatcher,
		logger,
	)
	logger.Info("services initialized")

	dispatcherCtx, stopDispatcher := context.WithCancel(context.Background())
	defer stopDispatcher()
	go dispatcher.Run(dispatcherCtx)
	logger.Info("outbox dispatcher started", slog.Duration("interval", cfg.OutboxInterval))

	matchHandler := handlers.NewMatchHandler(matchService, ratingService)
	bracketHandler := handlers.NewBracketHandler(bracketService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, logger)
	router := routes.SetupRoutes(matchHandler, bracketHandler, webSocketHandler)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		stopDispatcher()

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}

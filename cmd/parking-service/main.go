package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"parking-service/internal/auth"
	"parking-service/internal/config"
	"parking-service/internal/db"
	httpapi "parking-service/internal/http"
	"parking-service/internal/logger"
	"parking-service/internal/repository"
	"parking-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	mongo, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongo.Close(ctx); err != nil {
			log.Error().Err(err).Msg("mongodb disconnect")
		}
	}()

	logRepo := repository.NewDetectionLogRepository(mongo)
	eventRepo := repository.NewParkingEventRepository(mongo)
	userRepo := repository.NewUserRepository(mongo)

	tokens := auth.NewManager(cfg.Auth.AccessSecret, cfg.Auth.TokenTTL)

	detectionService := service.NewDetectionService(logRepo, eventRepo, log)
	authService := service.NewAuthService(userRepo, tokens, log)
	userService := service.NewUserService(userRepo, log)

	handler := httpapi.NewHandler(detectionService, authService, userService, log)
	router := httpapi.NewRouter(handler, tokens, cfg.Environment)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	log.Info().Str("addr", addr).Str("env", cfg.Environment).Msg("starting parking service")

	if err := router.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("http server stopped")
	}
}

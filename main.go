package main

import (
	"net/http"

	"tulisbareng/config"
	"tulisbareng/config/database"
	"tulisbareng/internal/auth"
	"tulisbareng/internal/document/repository"
	"tulisbareng/internal/user"
	"tulisbareng/pkg/logger"
	"tulisbareng/router"
	"tulisbareng/socket"
)

func main() {
	logger.Init("info")

	cfg, err := config.Load()
	if err != nil {
		logger.Sugar.Fatalf("Invalid configuration: %v", err)
	}
	logger.Init(cfg.LogLevel)

	db := database.Connect(cfg.DatabaseURL)
	defer db.Close()

	docRepo := repository.NewDocumentRepository(db)
	userRepo := user.NewRepository(db)

	hub := socket.NewHub(docRepo, userRepo)
	go hub.Run()
	go hub.SaveWorker(cfg.AutosaveInterval)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)

	handler := router.Setup(db, hub, tokens, cfg.AllowedOrigin)

	logger.Sugar.Infof("Backend listening on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, handler); err != nil {
		logger.Sugar.Fatalf("Server stopped: %v", err)
	}
}

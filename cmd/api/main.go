package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/bytebank/backend/internal/auth"
	"github.com/bytebank/backend/internal/config"
	"github.com/bytebank/backend/internal/database"
	bankHttp "github.com/bytebank/backend/internal/http"
	authHandler "github.com/bytebank/backend/internal/http/auth"
	importHandler "github.com/bytebank/backend/internal/http/importcsv"
	"github.com/bytebank/backend/internal/http/realtime"
	txHandler "github.com/bytebank/backend/internal/http/transaction"
	"github.com/bytebank/backend/internal/importer"
	"github.com/bytebank/backend/internal/receipt"
	"github.com/bytebank/backend/internal/session"
	"github.com/bytebank/backend/internal/transaction"
	txStore "github.com/bytebank/backend/internal/transaction/store"
	"github.com/bytebank/backend/internal/user"
	userStore "github.com/bytebank/backend/internal/user/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(context.Background(), cfg.ConnectionString(), cfg.DB.MaxConns)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	receipts, err := receipt.NewGCS(context.Background(), cfg.Storage.ReceiptBucket)
	if err != nil {
		slog.Error("failed to initialize receipt storage", "error", err)
		os.Exit(1)
	}
	defer receipts.Close()

	var (
		transactionStore   = txStore.New(db)
		transactionService = transaction.NewService(transactionStore)
		userService        = user.NewService(userStore.New(db))
		importService      = importer.NewService()
		sessions           = session.NewManager(transactionStore)
		tokens             = auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	)
	defer sessions.Shutdown()

	var (
		authH        = authHandler.NewHandler(userService, tokens, sessions)
		transactionH = txHandler.NewHandler(transactionService, sessions, receipts)
		realtimeH    = realtime.NewHandler(sessions)
		importH      = importHandler.NewHandler(importService, transactionService)
	)

	router := bankHttp.New(tokens, authH, transactionH, realtimeH, importH)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	slog.Info("starting server", "app", cfg.App.Name, "port", port)

	if err := http.ListenAndServe(port, router); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

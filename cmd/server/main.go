package main

import (
	"log/slog"
	"net/http"
	"os"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mizutamari/warikan/internal/auth"
	"github.com/mizutamari/warikan/internal/config"
	"github.com/mizutamari/warikan/internal/server"
	"github.com/mizutamari/warikan/internal/service"
	"github.com/mizutamari/warikan/internal/storage/sqlite"
	"github.com/mizutamari/warikan/pkg/logging"
)

func main() {
	logging.Setup()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	store, err := sqlite.New(cfg.SQLiteDBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.SQLiteDBPath)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenDuration)
	settlements := service.NewSettlementService(store)
	srv := server.New(settlements, store, jwtManager, cfg.AdminPasswordHash)

	// h2c serves HTTP/2 without TLS; TLS termination belongs to the proxy.
	handler := h2c.NewHandler(srv.Routes(), &http2.Server{})

	addr := ":" + cfg.Port
	slog.Info("Server starting", "address", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

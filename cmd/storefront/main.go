package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Conversly/storefront/internal/api/storefront"
	"github.com/Conversly/storefront/internal/app"
	"github.com/Conversly/storefront/internal/config"
	"github.com/Conversly/storefront/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found; using system environment")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := utils.InitLogger(cfg.LogLevel, cfg.Debug,
		zap.String("service", cfg.ServiceName),
		zap.String("environment", cfg.Environment)); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer utils.SyncLogger()

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	state, err := app.New(ctx, cfg)
	if err != nil {
		utils.Zlog.Fatal("Failed to build storefront state", zap.Error(err))
	}
	if err := state.Start(ctx); err != nil {
		utils.Zlog.Fatal("Start-up interrupted", zap.Error(err))
	}

	handler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID", storefront.AccessKeyHeader},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
	}).Handler(storefront.NewEngine(state))

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.ServerHost, cfg.ServerPort),
		Handler:           handler,
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	go func() {
		utils.Zlog.Info("Server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Zlog.Fatal("ListenAndServe failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	utils.Zlog.Info("Shutdown signal received, shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		utils.Zlog.Error("Graceful shutdown failed", zap.Error(err))
	}
	if err := state.Close(shutdownCtx); err != nil {
		utils.Zlog.Error("Failed to close storefront state", zap.Error(err))
	}
	utils.Zlog.Info("Server stopped cleanly")
}

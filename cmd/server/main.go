package main

import (
	"alumni-chat/auth"
	"alumni-chat/infrastructure/grpc/server"
	"alumni-chat/infrastructure/notify"
	"alumni-chat/infrastructure/search"
	"alumni-chat/infrastructure/storage"
	"alumni-chat/internal"
	"alumni-chat/repositories"
	"alumni-chat/runtime"
	"alumni-chat/runtime/workers"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"google.golang.org/grpc"

	grpc3 "github.com/mama165/sdk-go/grpc"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

func run(args []string) (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, err
	}
	logger := logs.GetLoggerFromString(config.LogLevel)
	tokens := auth.NewTokenManager(config.JWTSecret, config.AuthTokenDuration)

	if len(args) > 0 && args[0] == "mint-token" {
		return mintToken(tokens, args[1:])
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Database (BadgerDB) and full-text index (Bluge)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		logger.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()

	// 3. Supervision & change propagation
	sup := workers.NewSupervisor(logger, config.RestartInterval)
	orchestrator := runtime.NewOrchestrator(logger, sup, runtime.NewRegistry(),
		config.BufferSize, config.SinkTimeout, config.MetricInterval)
	store := storage.NewDocumentStore(db, logger, nil, orchestrator.Changes(), orchestrator.Registry())

	index := search.NewMessageIndex(logger, blugeWriter, repositories.MessagesCollection)
	orchestrator.Add(index)
	if config.RedisURL != "" {
		redisClient, err := notify.NewRedisClient(ctx, config.RedisURL)
		if err != nil {
			return exitRuntime, err
		}
		defer func() { _ = redisClient.Close() }()
		orchestrator.Add(notify.NewRedisNotifier(logger, redisClient))
		logger.Info("Redis notifications enabled")
	}

	errChan := make(chan error, 2)
	go func() {
		logger.Info("Starting orchestrator...")
		if err := orchestrator.Start(ctx); err != nil {
			errChan <- fmt.Errorf("orchestrator error: %w", err)
		}
	}()

	// 4. Debug server (metrics, health, inspector, images)
	debug := internal.NewDebugServer(logger, db, repositories.NewImageRepository(store), config.DebugPort)
	go func() {
		if err := debug.Run(ctx); err != nil {
			errChan <- fmt.Errorf("debug server error: %w", err)
		}
	}()

	// 5. gRPC server
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			grpc3.UnaryLoggingInterceptor(logger),
			tokens.UnaryInterceptor(),
		),
		grpc.ChainStreamInterceptor(tokens.StreamInterceptor()),
	)
	server.NewDocumentServer(logger, store, index).Register(s)

	go func() {
		logger.Info("Starting gRPC server", "address", address, "at", time.Now().UTC())
		for serviceName := range s.GetServiceInfo() {
			logger.Debug("gRPC exposed services", "name", serviceName)
		}
		if err := s.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	// 6. Wait for Stop or Error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		s.Stop()
		orchestrator.Stop()
		return exitRuntime, err
	}

	logger.Info("Shutting down gracefully...")
	s.GracefulStop()
	orchestrator.Stop()
	logger.Info("Program stopped cleanly")
	return exitOK, nil
}

// mintToken prints a signed token: mint-token <userID> [role,role].
// Accounts live in the external authentication service; this is for operators and tests.
func mintToken(tokens *auth.TokenManager, args []string) (int, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return exitConfig, fmt.Errorf("usage: server mint-token <userID> [roles]")
	}
	var roles []string
	if len(args) > 1 {
		roles = strings.Split(args[1], ",")
	}
	token, err := tokens.GenerateToken(args[0], roles)
	if err != nil {
		return exitRuntime, err
	}
	fmt.Println(token)
	return exitOK, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)
	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG)
	} else {
		options = options.WithLoggingLevel(badger.WARNING)
	}
	return options
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"github.com/javascriptisbest/pbl4-sub001/auth"
	"github.com/javascriptisbest/pbl4-sub001/gateway"
	"github.com/javascriptisbest/pbl4-sub001/repositories"
	"github.com/javascriptisbest/pbl4-sub001/runtime"
	"github.com/javascriptisbest/pbl4-sub001/runtime/workers"
	"github.com/javascriptisbest/pbl4-sub001/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements (like database cleanup) are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns for the HTTP server and background workers.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Repositories, presence core, services
	messageRepository := repositories.NewMessageRepository(db, log, config.LimitMessages)
	userRepository := repositories.NewUserRepository(db)
	groupRepository := repositories.NewGroupRepository(db)

	registry := runtime.NewRegistry()
	router := runtime.NewRouter(log, registry, groupRepository)

	chatService := services.NewChatService(log, messageRepository, router)
	authService := services.NewAuthService(userRepository, config.AuthTokenDuration)
	verifier := auth.NewTokenVerifier()

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Supervised background workers
	sup := workers.NewSupervisor(log)
	sup.Add(workers.NewBadgerGC(log, db, config.BadgerGCInterval))
	go sup.Run(ctx)

	// 6. HTTP surface: the realtime endpoint plus thin account/group routes
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gateway.Handler(log, verifier, registry, chatService))
	mux.HandleFunc("POST /api/register", gateway.RegisterHandler(log, authService))
	mux.HandleFunc("POST /api/login", gateway.LoginHandler(log, authService))
	mux.HandleFunc("POST /api/groups", gateway.CreateGroupHandler(log, verifier, groupRepository))
	mux.HandleFunc("GET /api/history", gateway.HistoryHandler(log, verifier, chatService))

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: mux}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting chat server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 8. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", "error", err)
	}
	sup.Stop()
	log.Info("Program stopped cleanly")

	return nil
}

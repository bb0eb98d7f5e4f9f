package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studyhub-backend/internal/config"
	"studyhub-backend/internal/database"
	"studyhub-backend/internal/handlers"
	"studyhub-backend/internal/middleware"
	"studyhub-backend/internal/router"
	"studyhub-backend/internal/services"
	"studyhub-backend/internal/websocket"
)

func main() {
	log.Println("🚀 Starting StudyHub Backend...")

	// ──── Step 1: Load Configuration ────
	cfg := config.Load()
	log.Println("✓ Configuration loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, database.Migrations()); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Step 5: Initialize Gemini Client ────
	geminiService, err := services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiConcurrentReqs)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer geminiService.Close()
	log.Printf("✓ Gemini client initialized (%s, %d concurrent)", cfg.GeminiModel, cfg.GeminiConcurrentReqs)

	// ──── Initialize Services ────
	store := services.NewPgStore(pool)
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret, cfg.AccessTokenTTL)
	publisher := services.NewRedisPublisher(redisClients.PubSub)
	tokenStore := services.NewRedisTokenStore(redisClients.Tokens)

	authService := services.NewAuthService(store, tokenStore, jwtAuth, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	studySessionService := services.NewStudySessionService(store, publisher)
	taskService := services.NewTaskService(store)
	calendarService := services.NewCalendarService(store)
	conversationService := services.NewConversationService(store, geminiService)

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService)
	studySessionHandler := handlers.NewStudySessionHandler(studySessionService)
	taskHandler := handlers.NewTaskHandler(taskService)
	calendarHandler := handlers.NewCalendarHandler(calendarService)
	assistantHandler := handlers.NewAssistantHandler(conversationService)

	// ──── Step 6: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, jwtAuth, cfg.FrontendURL)
	defer wsHub.Close()
	log.Println("✓ WebSocket hub started")

	// ──── Step 7: Start HTTP Server ────
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	limiters := router.NewLimiters(cfg)
	go limiters.Auth.Cleanup(ctx)
	go limiters.AI.Cleanup(ctx)

	r := router.New(
		cfg,
		jwtAuth,
		limiters,
		authHandler,
		studySessionHandler,
		taskHandler,
		calendarHandler,
		assistantHandler,
		wsHub.HandleWebSocket,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // generation calls can be slow
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("✗ Graceful shutdown failed: %v", err)
		}
	}()

	log.Printf("✓ StudyHub Backend ready on http://localhost:%s (%s)", cfg.Port, cfg.Env)
	log.Printf("  API: http://localhost:%s/api", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"chat-server/internal/auth"
	"chat-server/internal/config"
	"chat-server/internal/database"
	"chat-server/internal/handlers"
	"chat-server/internal/realtime"
	"chat-server/internal/services"
	"chat-server/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresDB(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize services
	authService := auth.NewService(db, cfg)
	channelService := services.NewChannelService(db)

	// Initialize the broadcast gateway and the realtime components around it
	gateway := realtime.NewGateway()
	go gateway.Run()
	roomManager := realtime.NewRoomManager(gateway, db, cfg.Chat.PersistTimeout)
	relay := realtime.NewRelay(gateway, db, db, cfg.Chat.PersistTimeout)
	dispatcher := realtime.NewDispatcher(roomManager, relay)

	// Initialize handlers
	authHandlers := handlers.NewAuthHandlers(authService)
	channelHandlers := handlers.NewChannelHandlers(channelService, authService, cfg.Chat.HistoryLimit)
	wsHandlers := handlers.NewWebSocketHandlers(authService, gateway, dispatcher)

	// Setup routes
	mux := http.NewServeMux()
	setupRoutes(mux, authHandlers, channelHandlers, wsHandlers)

	// Create server
	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      corsMiddleware(mux),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	logger.Info("🚀 Server started on http://localhost%s", cfg.Server.Port)
	logger.Info("📡 WebSocket endpoint: ws://localhost%s/ws", cfg.Server.Port)
	printAPIEndpoints()

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error: %v", err)
	}
	gateway.Close()
}

func setupRoutes(mux *http.ServeMux, authHandlers *handlers.AuthHandlers, channelHandlers *handlers.ChannelHandlers, wsHandlers *handlers.WebSocketHandlers) {
	// Auth routes
	mux.HandleFunc("/login", authHandlers.Login)
	mux.HandleFunc("/register", authHandlers.Register)

	// Channel routes
	mux.HandleFunc("/channels", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/channels" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		switch r.Method {
		case http.MethodGet:
			channelHandlers.ListChannels(w, r)
		case http.MethodPost:
			channelHandlers.CreateChannel(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Channel sub-routes
	mux.HandleFunc("/channels/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.URL.Path, "/")
		if len(parts) < 3 || parts[2] == "" {
			http.Error(w, "invalid path", http.StatusBadRequest)
			return
		}

		// /channels/{id}/join
		if len(parts) == 4 && parts[3] == "join" && r.Method == http.MethodPost {
			channelHandlers.JoinChannel(w, r)
			return
		}

		// /channels/{id}/leave
		if len(parts) == 4 && parts[3] == "leave" && r.Method == http.MethodPost {
			channelHandlers.LeaveChannel(w, r)
			return
		}

		// /channels/{id}/messages
		if len(parts) == 4 && parts[3] == "messages" && r.Method == http.MethodGet {
			channelHandlers.GetMessages(w, r)
			return
		}

		// /channels/{id} PUT
		if len(parts) == 3 && r.Method == http.MethodPut {
			channelHandlers.UpdateChannel(w, r)
			return
		}

		// /channels/{id} DELETE
		if len(parts) == 3 && r.Method == http.MethodDelete {
			channelHandlers.DeleteChannel(w, r)
			return
		}

		http.Error(w, "endpoint not found", http.StatusNotFound)
	})

	// WebSocket route
	mux.HandleFunc("/ws", wsHandlers.HandleWebSocket)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func printAPIEndpoints() {
	logger.Info("🔗 API endpoints:")
	logger.Info("   POST /register")
	logger.Info("   POST /login")
	logger.Info("   GET  /channels")
	logger.Info("   POST /channels")
	logger.Info("   POST /channels/{id}/join")
	logger.Info("   POST /channels/{id}/leave")
	logger.Info("   GET  /channels/{id}/messages")
	logger.Info("   PUT  /channels/{id}")
	logger.Info("   DELETE /channels/{id}")
}

package main

import (
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"life-agent/internal/api/handlers"
	"life-agent/internal/app"
	"life-agent/internal/auth"
	"life-agent/internal/config"
	"life-agent/internal/logger"
	"life-agent/internal/repository/postgres"
	"life-agent/internal/service/chat"
	"life-agent/internal/service/conversation"
	"life-agent/internal/service/llm"
	"life-agent/internal/service/tools"
	"life-agent/internal/service/workout"
)

func main() {
	// Load .env file if present (for local development)
	if err := godotenv.Load(); err != nil {
		logger.Log.Debug("No .env file found, using environment variables")
	}

	appConfig, err := config.LoadConfig()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load configuration")
	}

	database, err := postgres.NewPostgresDB(appConfig.Database)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.Close()

	appCfg := app.NewConfig(database, appConfig)

	// Services
	provider := llm.NewOpenRouterProvider(&appConfig.LLM)
	workoutService := workout.NewWorkoutService(appCfg.DB)

	registry, err := tools.NewRegistry(
		tools.RecordWorkout(workoutService),
		tools.GetWorkouts(workoutService),
	)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to build tool registry")
	}

	chatService := chat.NewChatService(provider, registry, appConfig.LLM.SystemPrompt, appConfig.LLM.MaxToolRounds)
	conversationService := conversation.NewConversationService(appCfg.DB)

	// Handlers
	tokens := auth.NewTokenService(&appConfig.Auth)
	authHandlers := handlers.NewAuthHandlers(appCfg.DB, tokens)
	chatHandlers := handlers.NewChatHandlers(chatService, conversationService)
	conversationHandlers := handlers.NewConversationHandlers(conversationService)

	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("POST /api/auth/signup", authHandlers.SignupHandler)
	mux.HandleFunc("POST /api/auth/login", authHandlers.LoginHandler)
	mux.HandleFunc("GET /api/health", healthHandler)

	// Authenticated routes
	mux.Handle("POST /api/chat", tokens.Middleware(http.HandlerFunc(chatHandlers.ChatHandler)))
	mux.Handle("GET /api/conversations", tokens.Middleware(http.HandlerFunc(conversationHandlers.ListHandler)))
	mux.Handle("POST /api/conversations", tokens.Middleware(http.HandlerFunc(conversationHandlers.CreateHandler)))
	mux.Handle("GET /api/conversations/{id}", tokens.Middleware(http.HandlerFunc(conversationHandlers.GetHandler)))
	mux.Handle("PUT /api/conversations/{id}", tokens.Middleware(http.HandlerFunc(conversationHandlers.UpdateHandler)))
	mux.Handle("DELETE /api/conversations/{id}", tokens.Middleware(http.HandlerFunc(conversationHandlers.DeleteHandler)))

	server := &http.Server{
		Addr:        ":" + appConfig.Server.Port,
		Handler:     enableCORS(mux),
		ReadTimeout: 30 * time.Second,
		// WriteTimeout must cover the full lifetime of a streamed chat
		// response.
		WriteTimeout: appConfig.Server.StreamTimeout,
		IdleTimeout:  120 * time.Second,
	}

	logger.Log.WithField("port", appConfig.Server.Port).Info("Starting server")
	if err := server.ListenAndServe(); err != nil {
		logger.Log.WithError(err).Fatal("Server failed")
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}

// enableCORS adds CORS headers and answers preflight requests
func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

package rest

import (
	"kinship/internal/cache"
	"kinship/internal/transport/rest/handler"
	"kinship/internal/transport/rest/middleware"
	"kinship/internal/transport/ws"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService    middleware.TokenValidator
	TokenIssuer    handler.TokenIssuer
	MessageService handler.MessageSender
	ContactService handler.ContactRanker
	GroupService   handler.GroupScorer
	MatchService   handler.Matcher
	ReportService  handler.Reporter
	Gateway        *cache.Gateway
	WSHandler      *ws.Handler
	AllowedOrigins string
	Logger         *slog.Logger
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(c.TokenIssuer, c.Logger)
	messageHandler := handler.NewMessageHandler(c.MessageService, c.Logger)
	contactHandler := handler.NewContactHandler(c.ContactService, c.Logger)
	groupHandler := handler.NewGroupHandler(c.GroupService, c.Logger)
	matchHandler := handler.NewMatchHandler(c.MatchService, c.Logger)
	reportHandler := handler.NewReportHandler(c.ReportService, c.Logger)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware(c.AllowedOrigins))

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/token", authHandler.IssueToken).Methods("POST", "OPTIONS")

	// WebSocket route (token in query param)
	if c.WSHandler != nil {
		v1.HandleFunc("/ws", c.WSHandler.UserWS).Methods("GET")
	}

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Gateway counters
	r.HandleFunc("/debug/gateway", func(w http.ResponseWriter, r *http.Request) {
		handler.WriteJSON(w, http.StatusOK, c.Gateway.Stats())
	}).Methods("GET")

	// User routes (require user auth)
	userRoutes := v1.NewRoute().Subrouter()
	userRoutes.Use(authMW.RequireUser)

	userRoutes.HandleFunc("/chats/{chatId}/messages", messageHandler.Send).Methods("POST", "OPTIONS")
	userRoutes.HandleFunc("/contacts/ranked", contactHandler.Ranked).Methods("GET", "OPTIONS")
	userRoutes.HandleFunc("/contacts/{contactId}/rank", contactHandler.Position).Methods("GET", "OPTIONS")
	userRoutes.HandleFunc("/groups/{chatId}/health", groupHandler.Health).Methods("GET", "OPTIONS")
	userRoutes.HandleFunc("/matches", matchHandler.Find).Methods("POST", "OPTIONS")
	userRoutes.HandleFunc("/reports", reportHandler.File).Methods("POST", "OPTIONS")
	userRoutes.HandleFunc("/users/{userId}/ban-decision", reportHandler.BanDecision).Methods("GET", "OPTIONS")

	return r
}

func corsMiddleware(allowedOrigins string) mux.MiddlewareFunc {
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

package web

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"franchise-subscription/internal/usecase"
)

// Server is the admin API: code administration and marketplace stats.
// It is the "external admin process" that mints codes; redemption itself
// never goes through here.
type Server struct {
	codeUC  usecase.CodeUseCase
	statsUC usecase.StatsUseCase
	subUC   usecase.SubscriptionUseCase
	apiKey  string
	log     *zerolog.Logger
}

func NewServer(
	codeUC usecase.CodeUseCase,
	statsUC usecase.StatsUseCase,
	subUC usecase.SubscriptionUseCase,
	apiKey string,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		codeUC:  codeUC,
		statsUC: statsUC,
		subUC:   subUC,
		apiKey:  apiKey,
		log:     logger,
	}
}

// RegisterRoutes sets up the routing for the admin API.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// All admin routes are behind the auth middleware
	statsHandler := s.authMiddleware(statsHandler(s.statsUC))
	mux.Handle("/api/v1/stats", statsHandler)

	codesRouter := s.authMiddleware(s.codesRouter())
	mux.Handle("/api/v1/codes", codesRouter)
	mux.Handle("/api/v1/codes/", codesRouter)

	// Manual trigger for the expiry sweep, same work the scheduler does.
	mux.Handle("/api/v1/subscriptions/expire", s.authMiddleware(expireHandler(s.subUC)))
}

// authMiddleware provides simple Bearer token authentication for the admin API.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			s.log.Error().Msg("Admin API key is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" {
			http.Error(w, "Unauthorized: Malformed token", http.StatusUnauthorized)
			return
		}

		if tokenParts[1] != s.apiKey {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// codesRouter acts as a sub-router for /api/v1/codes
func (s *Server) codesRouter() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/v1/codes")
		path = strings.TrimSuffix(path, "/")

		// Route /api/v1/codes (no code string)
		if path == "" {
			switch r.Method {
			case http.MethodGet:
				codesListHandler(s.codeUC)(w, r)
			case http.MethodPost:
				codesCreateHandler(s.codeUC)(w, r)
			default:
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			}
			return
		}

		// Route /api/v1/codes/{code}
		switch r.Method {
		case http.MethodGet:
			codeGetHandler(s.codeUC)(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
}

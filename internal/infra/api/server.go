package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"franchise-subscription/internal/config"
	ports "franchise-subscription/internal/domain/ports/usecase"
	"franchise-subscription/internal/infra/logging"
	red "franchise-subscription/internal/infra/redis"
	"franchise-subscription/internal/infra/web"
	"franchise-subscription/internal/usecase"
)

// Server is the public redemption API consumed by the marketplace frontend.
type Server struct {
	redeemer ports.Redeemer
	subUC    usecase.SubscriptionUseCase
	auth     *web.AuthManager
	limiter  *red.RateLimiter
	cfg      config.APIConfig
	log      *zerolog.Logger
}

func NewServer(
	redeemer ports.Redeemer,
	subUC usecase.SubscriptionUseCase,
	auth *web.AuthManager,
	limiter *red.RateLimiter,
	cfg config.APIConfig,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		redeemer: redeemer,
		subUC:    subUC,
		auth:     auth,
		limiter:  limiter,
		cfg:      cfg,
		log:      logger,
	}
}

// Router builds the chi mux for the public API.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(s.traceMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.sessionMiddleware)
		r.Post("/redeem", s.handleRedeem)
		r.Get("/subscription", s.handleCurrentSubscription)
		r.Get("/subscriptions", s.handleSubscriptionHistory)
	})

	return r
}

// traceMiddleware tags every request with a ULID trace id and logs completion.
func (s *Server) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := ulid.Make().String()
		ctx := logging.WithTraceID(r.Context(), traceID)
		w.Header().Set("X-Trace-Id", traceID)

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		logging.With(ctx, s.log).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// sessionMiddleware resolves the account from the session token. There is
// exactly one accountID resolution path; handlers never derive it themselves.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.auth.ParseFromRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthenticated")
			return
		}
		ctx := logging.WithAccountID(r.Context(), claims.AccountID())
		ctx = withAccountID(ctx, claims.AccountID())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type accountCtxKey struct{}

func withAccountID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, accountCtxKey{}, id)
}

func accountIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(accountCtxKey{}).(string)
	return v
}

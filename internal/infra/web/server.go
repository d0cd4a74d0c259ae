package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"subscription-billing/internal/infra/logging"
	"subscription-billing/internal/usecase"
)

// Server exposes the billing surface: plan catalog, subscription lifecycle,
// payment initiation, gateway return callbacks and the admin bulk
// confirmation.
type Server struct {
	plans    usecase.PlanUseCase
	subs     usecase.SubscriptionUseCase
	payments usecase.PaymentUseCase
	auth     *AuthManager
	loginURL string
	log      *zerolog.Logger
}

func NewServer(
	plans usecase.PlanUseCase,
	subs usecase.SubscriptionUseCase,
	payments usecase.PaymentUseCase,
	auth *AuthManager,
	loginURL string,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "web").Logger()
	return &Server{plans: plans, subs: subs, payments: payments, auth: auth, loginURL: loginURL, log: &l}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/plans", s.handleListPlans)

		// Gateway return redirects carry no session; they authenticate by the
		// opaque transaction reference instead.
		r.Get("/payments/paypal/execute", s.handlePayPalExecute)
		r.Get("/payments/paypal/cancel", s.handlePayPalCancel)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession(false))
			r.Post("/subscriptions/{planID}", s.handleSubscribe)
			r.Post("/subscriptions/{subscriptionID}/renew", s.handleRenew)
			r.Post("/subscriptions/{subscriptionID}/cancel", s.handleCancel)
			r.Post("/payments", s.handleInitiatePayment)
			r.Get("/payments/{subscriptionID}", s.handlePaymentHistory)
		})

		// The manage view is a browser surface: no session redirects to login
		// rather than erroring.
		r.Group(func(r chi.Router) {
			r.Use(s.requireSession(true))
			r.Get("/subscriptions/me", s.handleManage)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Post("/plans", s.handleCreatePlan)
			r.Put("/plans/{planID}", s.handleUpdatePlan)
			r.Delete("/plans/{planID}", s.handleDeletePlan)
			r.Post("/admin/payments/confirm", s.handleBulkConfirm)
			r.Get("/admin/subscriptions/stats", s.handleSubscriptionStats)
		})
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// requireSession authenticates the caller. With redirect set, an
// unauthenticated browser request is sent to the login flow; otherwise the
// API answers 401.
func (s *Server) requireSession(redirect bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := s.auth.ParseFromRequest(r)
			if err != nil {
				if redirect {
					http.Redirect(w, r, s.loginURL, http.StatusSeeOther)
					return
				}
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			ctx := context.WithValue(r.Context(), ctxClaims, claims)
			ctx = logging.WithUserID(ctx, claims.UserID())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.auth.ParseFromRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if claims.Role != RoleAdmin {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		ctx := context.WithValue(r.Context(), ctxClaims, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

package http

import (
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/gsmwallet/server/internal/http/handlers"
	"github.com/gsmwallet/server/internal/middleware"
	"github.com/gsmwallet/server/internal/model"
)

func newBaseRouter(trustedProxies []netip.Prefix) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RealIP(trustedProxies))
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Total-Count"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", handlers.NewHealthHandler().ServeHTTP)
	return r
}

// CustomerRoutes bundles the customer service handlers.
type CustomerRoutes struct {
	Auth           *handlers.AuthHandler
	Customers      *handlers.CustomerHandler
	Directory      *handlers.DirectoryHandler
	InternalAPIKey string
	TrustedProxies []netip.Prefix
}

// NewCustomerRouter wires OTP auth, customer CRUD and the internal directory endpoints.
func NewCustomerRouter(routes CustomerRoutes) *chi.Mux {
	r := newBaseRouter(routes.TrustedProxies)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/request-otp", routes.Auth.HandleRequestOTP)
		r.Post("/verify-otp", routes.Auth.HandleVerifyOTP)
	})

	// Customer records include balances, so CRUD is an operator surface behind the internal key.
	r.Route("/api/customers", func(r chi.Router) {
		r.Use(middleware.InternalAuthMiddleware(routes.InternalAPIKey))
		r.Get("/", routes.Customers.HandleList)
		r.Post("/", routes.Customers.HandleCreate)
		r.Get("/{id}", routes.Customers.HandleGet)
		r.Put("/{id}", routes.Customers.HandleUpdate)
		r.Delete("/{id}", routes.Customers.HandleDelete)
	})

	r.Route("/internal/customers", func(r chi.Router) {
		r.Use(middleware.InternalAuthMiddleware(routes.InternalAPIKey))
		r.Get("/by-gsm/{gsmNumber}", routes.Directory.HandleLookupByGsm)
		r.Get("/{id}", routes.Directory.HandleGet)
		r.Put("/{id}/balance", routes.Directory.HandleUpdateBalance)
	})

	return r
}

// Per-IP ceiling on ledger requests.
const (
	ledgerRateWindow = time.Minute
	ledgerRateLimit  = 60
)

// LedgerRoutes bundles the ledger service handlers.
type LedgerRoutes struct {
	Transactions   *handlers.TransactionHandler
	InternalAPIKey string
	TrustedProxies []netip.Prefix
}

// NewLedgerRouter wires the purchase, refund and top-up endpoints. The listings span every
// customer, so they sit behind the internal key like /api/customers.
func NewLedgerRouter(routes LedgerRoutes) *chi.Mux {
	r := newBaseRouter(routes.TrustedProxies)
	tx := routes.Transactions

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitMiddleware(middleware.NewRateLimiter(ledgerRateWindow, ledgerRateLimit), middleware.GetIPKey))

		r.Post("/purchases/make-purchase", tx.HandlePurchase)
		r.Post("/refunds/make-refund", tx.HandleRefund)
		r.Post("/top-ups/add-funds", tx.HandleTopUp)

		r.Group(func(r chi.Router) {
			r.Use(middleware.InternalAuthMiddleware(routes.InternalAPIKey))
			r.Get("/purchases", tx.ListHandler(model.KindPurchase))
			r.Get("/refunds", tx.ListHandler(model.KindRefund))
			r.Get("/top-ups", tx.ListHandler(model.KindTopUp))
		})
	})

	return r
}

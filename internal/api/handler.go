package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"pharmacy/m/domain"
	"pharmacy/m/internal/auth"
	"pharmacy/m/internal/metrics"
)

// CredentialStore persists users and verifies their passwords.
type CredentialStore interface {
	Authenticate(ctx context.Context, username, password string) (domain.User, error)
	Create(ctx context.Context, username, password string, role domain.Role) (int64, error)
	Delete(ctx context.Context, id, actingID int64) error
	List(ctx context.Context) ([]domain.User, error)
	ResetPassword(ctx context.Context, id int64, newPassword string) error
}

// Catalog persists medicines.
type Catalog interface {
	List(ctx context.Context) ([]domain.Medicine, error)
	Get(ctx context.Context, id int64) (domain.Medicine, error)
	Create(ctx context.Context, f domain.MedicineFields) (int64, error)
	Update(ctx context.Context, id int64, f domain.MedicineFields) error
	Delete(ctx context.Context, id int64) error
}

// Ledger records sales and their stock effects.
type Ledger interface {
	Create(ctx context.Context, medicineID, quantity, salespersonID int64) (domain.SaleReceipt, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]domain.Sale, error)
	Get(ctx context.Context, id int64) (domain.Sale, error)
}

// IdentityResolver maps an authenticated identity to its current role.
type IdentityResolver interface {
	Resolve(ctx context.Context, identity int64) (domain.Role, error)
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps bundles everything the HTTP layer needs. All of it is constructed
// by the caller.
type Deps struct {
	DB          Pinger
	Users       CredentialStore
	Medicines   Catalog
	Sales       Ledger
	Gate        IdentityResolver
	Tokens      *auth.Tokens
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	Logger      zerolog.Logger
	CORSOrigins []string
}

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	db          Pinger
	users       CredentialStore
	medicines   Catalog
	sales       Ledger
	gate        IdentityResolver
	tokens      *auth.Tokens
	metrics     *metrics.Metrics
	gatherer    prometheus.Gatherer
	log         zerolog.Logger
	validate    *validator.Validate
	corsOrigins []string
}

// New constructs a Handler.
func New(d Deps) *Handler {
	return &Handler{
		db:          d.DB,
		users:       d.Users,
		medicines:   d.Medicines,
		sales:       d.Sales,
		gate:        d.Gate,
		tokens:      d.Tokens,
		metrics:     d.Metrics,
		gatherer:    d.Gatherer,
		log:         d.Logger,
		validate:    newValidator(),
		corsOrigins: d.CORSOrigins,
	}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.observe)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.Get("/", h.index)
	r.Get("/health", h.health)
	if h.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", h.login)

		r.Group(func(pr chi.Router) {
			pr.Use(h.authMiddleware)

			pr.Put("/password", h.resetPassword)

			pr.Route("/medicines", func(r chi.Router) {
				r.Get("/", h.listMedicines)
				r.Get("/{id}", h.getMedicine)
				r.Group(func(r chi.Router) {
					r.Use(h.requireRoles(domain.RoleAdmin))
					r.Post("/", h.createMedicine)
					r.Put("/{id}", h.updateMedicine)
					r.Delete("/{id}", h.deleteMedicine)
				})
			})

			pr.Route("/sales", func(r chi.Router) {
				r.Get("/", h.listSales)
				r.Post("/", h.createSale)
				r.Get("/{id}", h.getSale)
				r.With(h.requireRoles(domain.RoleAdmin)).Delete("/{id}", h.deleteSale)
			})

			pr.Route("/users", func(r chi.Router) {
				r.With(h.requireRoles(domain.RoleAdmin, domain.RolePharmacyAdmin)).Get("/", h.listUsers)
				r.Group(func(r chi.Router) {
					r.Use(h.requireRoles(domain.RoleAdmin))
					r.Post("/", h.createUser)
					r.Delete("/{id}", h.deleteUser)
				})
			})
		})
	})

	return r
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "pharmacy management API",
		"version": "1.0.0",
		"status":  "running",
	})
}

package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"tokoku/marketplace/internal/metrics"
)

type Options struct {
	Logger         *zap.Logger
	Metrics        *metrics.Metrics
	AllowedOrigins []string
	RequestTimeout time.Duration
}

type Handler struct {
	router   *chi.Mux
	opts     Options
	orders   *OrderHandler
	profiles *ProfileHandler
	products *ProductHandler
}

func NewHandler(opts Options, orders *OrderHandler, profiles *ProfileHandler, products *ProductHandler) *Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New("marketplace")
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}

	router := chi.NewRouter()

	// Middleware
	router.Use(RequestID)
	router.Use(RequestLogger(opts.Logger))
	router.Use(middleware.Recoverer)
	router.Use(opts.Metrics.Middleware)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	router.Use(newCompressor().Handler)

	h := &Handler{
		router:   router,
		opts:     opts,
		orders:   orders,
		profiles: profiles,
		products: products,
	}

	h.registerRoutes()
	return h
}

func newCompressor() *middleware.Compressor {
	c := middleware.NewCompressor(5, "application/json", "text/plain")
	c.SetEncoder("br", func(w io.Writer, level int) io.Writer {
		return brotli.NewWriterLevel(w, level)
	})
	return c
}

func (h *Handler) registerRoutes() {
	h.router.Get("/health", h.HealthCheck)
	h.router.Method(http.MethodGet, "/metrics", h.opts.Metrics.Handler())

	h.router.Group(func(r chi.Router) {
		r.Use(RequestTimeout(h.opts.RequestTimeout))

		r.Post("/user", h.profiles.RegisterBuyer)
		r.Post("/admin", h.profiles.RegisterSeller)

		r.Route("/order", func(r chi.Router) {
			r.Post("/", h.orders.PlaceOrder)
			r.Get("/", h.orders.ListOpen)
			// {id} is an order id for PATCH and a buyer id for GET.
			r.Patch("/{id}", h.orders.UpdateStatus)
			r.Get("/{id}", h.orders.ListByBuyer)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.products.List)
			r.Post("/", h.products.Create)
			r.Get("/{id}", h.products.Get)
			r.Put("/{id}", h.products.Update)
			r.Delete("/{id}", h.products.Delete)
		})
	})
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

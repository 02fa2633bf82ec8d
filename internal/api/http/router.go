package http

import (
	"context"
	_ "embed"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/yellowcircle-io/shortlink-service/internal/database"
	"github.com/yellowcircle-io/shortlink-service/internal/models"
	"github.com/yellowcircle-io/shortlink-service/internal/service"
)

//go:embed openapi.json
var openAPISpec []byte

// ShortlinkService is the service surface the API consumes.
type ShortlinkService interface {
	CreateShortlink(ctx context.Context, params service.CreateShortlinkParams) (*models.Shortlink, error)
	Resolve(ctx context.Context, shortCode string, click *service.ClickMetadata) (*models.Shortlink, error)
	GetShortlink(ctx context.Context, shortCode string) (*models.Shortlink, error)
	ListShortlinks(ctx context.Context) ([]*models.Shortlink, error)
	ModifyShortlink(ctx context.Context, shortCode string, patch database.ShortlinkPatch) (*models.Shortlink, error)
	ToggleShortlink(ctx context.Context, shortCode string, isActive bool) (*models.Shortlink, error)
	DeleteShortlink(ctx context.Context, shortCode string) error
	Summarize(ctx context.Context, shortCode string, limit int) (*models.ClickSummary, error)
}

func getValidate() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return validate
}

// NewRouter wires the redirect path, the admin API and the docs endpoints.
func NewRouter(logger *httplog.Logger, svc ShortlinkService, defaultRedirect string) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"POST", "GET", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(sessionCookie)

		r.Get("/go/{shortCode}", handleRedirect(svc, defaultRedirect))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.AllowContentType("application/json"))

		validate := getValidate()

		r.Get("/ping", handlePing)

		r.Route("/links", func(r chi.Router) {
			r.Post("/", handleCreateShortlink(svc, validate))
			r.Get("/", handleListShortlinks(svc))

			r.Route("/{shortCode}", func(r chi.Router) {
				r.Get("/", handleGetShortlink(svc))
				r.Put("/", handleModifyShortlink(svc, validate))
				r.Delete("/", handleDeleteShortlink(svc))
				r.Patch("/toggle", handleToggleShortlink(svc, validate))
				r.Get("/analytics", handleGetAnalytics(svc))
			})
		})
	})

	r.Get("/swagger/openapi.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(openAPISpec) //nolint:errcheck
	})
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/openapi.json")))

	return r
}

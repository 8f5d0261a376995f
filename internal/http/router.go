package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/housing-coach-yuushi/ishitomo-linebot/internal/http/handlers"
	"github.com/housing-coach-yuushi/ishitomo-linebot/internal/infra"
	"github.com/housing-coach-yuushi/ishitomo-linebot/internal/middleware"
)

func NewRouter(app *handlers.App, logger infra.Logger, rateLimitPerMin int) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, chimw.RealIP, chimw.Recoverer, middleware.Logger(logger))

	// Health
	r.Get("/v1/healthz", app.Health)

	r.Route("/webhook", func(r chi.Router) {
		if rateLimitPerMin > 0 {
			r.Use(middleware.RateLimit(rateLimitPerMin, time.Minute))
		}
		r.Post("/", app.Webhook)
	})

	return r
}

package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/listini-pricing/api/controllers"
	"github.com/angelmondragon/listini-pricing/api/middleware"
	"github.com/angelmondragon/listini-pricing/pkg/auth"
	"github.com/angelmondragon/listini-pricing/pkg/config"
	"github.com/angelmondragon/listini-pricing/pkg/logger"
	"github.com/angelmondragon/listini-pricing/pkg/metrics"
)

// Dependencies groups what the HTTP surface needs. Redis is optional; leave it
// nil when the shared cache is disabled.
type Dependencies struct {
	DB       controllers.Pinger
	Redis    controllers.Pinger
	Resolver controllers.PriceResolver
	Editor   controllers.TierEditor
	Lists    controllers.ListComposer
	Metrics  *metrics.HTTPMetrics
	Gatherer prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.Metrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, auth.PolicyFromConfig(cfg.Pricing), logg))

		r.Route("/pricing", func(r chi.Router) {
			r.Post("/markup", controllers.PricingMarkup(logg))
			r.Post("/validate", controllers.PricingValidate(logg))
		})

		r.Route("/articles/{articleId}", func(r chi.Router) {
			r.Get("/tiers", controllers.ArticleTiers(deps.Resolver, deps.Editor, logg))
			r.Put("/tiers", controllers.ArticleSaveTiers(deps.Editor, logg))
			r.Post("/tiers/{tier}/preview", controllers.ArticlePreviewTier(deps.Editor, logg))
			r.Get("/price", controllers.ArticlePrice(deps.Resolver, logg))
			r.Post("/price/selection", controllers.ArticleSelectTiers(deps.Resolver, logg))
		})

		r.Route("/lists", func(r chi.Router) {
			r.Post("/", controllers.ListCreate(deps.Lists, logg))
			r.Route("/{listId}", func(r chi.Router) {
				r.Get("/", controllers.ListGet(deps.Lists, logg))
				r.Delete("/", controllers.ListDiscard(deps.Lists, logg))
				r.Put("/customer", controllers.ListSetCustomer(deps.Lists, logg))
				r.Post("/lines", controllers.ListAddLine(deps.Lists, logg))
				r.Route("/lines/{lineId}", func(r chi.Router) {
					r.Patch("/", controllers.ListSetQuantity(deps.Lists, logg))
					r.Delete("/", controllers.ListRemoveLine(deps.Lists, logg))
					r.Post("/tiers", controllers.ListSelectTiers(deps.Lists, logg))
					r.Post("/override", controllers.ListApplyOverride(deps.Lists, logg))
				})
			})
		})
	})

	return r
}

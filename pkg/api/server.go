package api

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/travigo/tyne-and-wear-metro/pkg/api/routes"
	"github.com/travigo/tyne-and-wear-metro/pkg/coordinator"
)

func NewApp(coord *coordinator.Coordinator, gatherer prometheus.Gatherer) *fiber.App {
	webApp := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	webApp.Use(NewLogger())

	webApp.Get("/health", routes.Health(coord))
	webApp.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	group := webApp.Group("/metro")

	group.Get("version", routes.APIVersion)

	routes.MetroRouter(group, coord)

	return webApp
}

// SetupServer serves the app until the context is cancelled.
func SetupServer(ctx context.Context, listen string, webApp *fiber.App) error {
	go func() {
		<-ctx.Done()

		if err := webApp.Shutdown(); err != nil {
			log.Error().Err(err).Msg("Failed to shut down web server")
		}
	}()

	log.Info().Str("listen", listen).Msg("Starting metro web server")

	return webApp.Listen(listen)
}

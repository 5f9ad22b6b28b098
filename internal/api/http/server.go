package httpapi

import (
	"embed"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/i474232898/weather-dashboard/internal/logger"
	"github.com/i474232898/weather-dashboard/internal/metrics"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

//go:embed static
var staticFS embed.FS

// Options configures NewApp.
type Options struct {
	AllowedOrigins string
	AccessLog      bool
}

// NewApp builds the Fiber application with middleware, the weather proxy,
// health and metrics endpoints, and the precached static assets.
func NewApp(service *weather.Service, opts Options) *fiber.App {
	log := logger.GetLogger().Named("http")

	app := fiber.New(fiber.Config{
		AppName:               "weather-dashboard",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		// Every error leaves in the same {error: string} shape.
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			message := "Failed to fetch weather data"
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
				message = fe.Message
			} else {
				log.Errorw("unhandled request error", "path", c.Path(), "error", err)
			}
			return writeError(c, code, message)
		},
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	if opts.AccessLog {
		app.Use(fiberlogger.New(fiberlogger.Config{
			Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
		}))
	}

	origins := opts.AllowedOrigins
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: "GET,HEAD,OPTIONS",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		status := "ok"
		if !service.Configured() {
			status = "degraded"
		}
		return c.JSON(fiber.Map{
			"status":  status,
			"service": "weather-dashboard",
		})
	})

	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	RegisterRoutes(app, service)

	app.Use("/", filesystem.New(filesystem.Config{
		Root:       http.FS(staticFS),
		PathPrefix: "static",
		Index:      "index.html",
		MaxAge:     3600,
	}))

	return app
}

package httpapi

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/i474232898/weather-dashboard/internal/logger"
	"github.com/i474232898/weather-dashboard/internal/metrics"
	"github.com/i474232898/weather-dashboard/internal/weather"
	"github.com/i474232898/weather-dashboard/internal/weather/providers"
)

const (
	// CacheControl lets shared caches serve a forecast for ten minutes and
	// keep serving it for five more while revalidating.
	CacheControl    = "public, s-maxage=600, stale-while-revalidate=300"
	CDNCacheControl = "public, max-age=600"

	msgNotConfigured = "Weather API key is not configured"
	msgInvalidDays   = "days must be an integer between 1 and 14"
	msgUnavailable   = "Weather service is temporarily unavailable"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service) {
	h := &weatherHandler{
		service: service,
		log:     logger.GetLogger().Named("api"),
	}

	api := app.Group("/api")
	api.Get("/weather", h.getWeather)
}

type weatherHandler struct {
	service *weather.Service
	log     *zap.SugaredLogger
}

// forecastQuery holds the query parameters of GET /api/weather.
type forecastQuery struct {
	Query weather.LocationQuery `validate:"required"`
	Days  int                   `validate:"min=1,max=14"`
}

func parseForecastQuery(c *fiber.Ctx) (forecastQuery, error) {
	q := forecastQuery{
		Query: weather.NormalizeQuery(c.Query("query")),
		Days:  weather.DefaultForecastDays,
	}
	if q.Query.IsEmpty() {
		q.Query = weather.DefaultLocation
	}

	if raw := c.Query("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			return q, errors.New(msgInvalidDays)
		}
		q.Days = days
	}

	if err := validate.Struct(q); err != nil {
		return q, errors.New(msgInvalidDays)
	}
	return q, nil
}

func (h *weatherHandler) getWeather(c *fiber.Ctx) error {
	// Fail fast; never forward a request upstream without a credential.
	if !h.service.Configured() {
		h.log.Error("weather api key is not configured")
		return writeError(c, fiber.StatusInternalServerError, msgNotConfigured)
	}

	q, err := parseForecastQuery(c)
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, err.Error())
	}

	body, cached, err := h.service.Forecast(c.UserContext(), weather.ForecastRequest{Query: q.Query, Days: q.Days})
	if err != nil {
		var upErr *weather.UpstreamError
		switch {
		case errors.As(err, &upErr):
			h.log.Warnw("upstream rejected forecast request",
				"query", q.Query, "status", upErr.Status, "message", upErr.Message)
			return writeError(c, upErr.Status, upErr.Message)
		case errors.Is(err, weather.ErrNotConfigured):
			return writeError(c, fiber.StatusInternalServerError, msgNotConfigured)
		case errors.Is(err, weather.ErrUnavailable):
			h.log.Warnw("upstream calls suspended", "query", q.Query, "error", err)
			c.Set("Retry-After", "120")
			return writeError(c, fiber.StatusServiceUnavailable, msgUnavailable)
		default:
			h.log.Errorw("weather api error", "query", q.Query, "error", err)
			return writeError(c, fiber.StatusInternalServerError, providers.GenericFailureMessage)
		}
	}

	c.Set(fiber.HeaderCacheControl, CacheControl)
	c.Set("CDN-Cache-Control", CDNCacheControl)
	if cached {
		c.Set("X-Cache", "HIT")
	} else {
		c.Set("X-Cache", "MISS")
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	metrics.ProxyRequests.WithLabelValues(strconv.Itoa(fiber.StatusOK)).Inc()
	return c.Status(fiber.StatusOK).Send(body)
}

// errorBody is the stable error shape every failure is converted to.
type errorBody struct {
	Error string `json:"error"`
}

func writeError(c *fiber.Ctx, status int, message string) error {
	metrics.ProxyRequests.WithLabelValues(strconv.Itoa(status)).Inc()
	return c.Status(status).JSON(errorBody{Error: message})
}

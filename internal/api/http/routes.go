package httpapi

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/crop-recommendation/internal/common"
	"github.com/i474232898/crop-recommendation/internal/recommend"
	"github.com/i474232898/crop-recommendation/internal/reference"
	"github.com/i474232898/crop-recommendation/internal/store"
	"github.com/i474232898/crop-recommendation/internal/trend"
)

var validate = validator.New()

// StepUnknown is reported when a failure carries no step.
const StepUnknown = "unknown"

// Recommender produces ranked crop recommendations.
type Recommender interface {
	Recommend(ctx context.Context, req recommend.Request) (*recommend.Recommendation, error)
}

// QuoteHistory serves refreshed market quotes over a time range.
type QuoteHistory interface {
	Range(key string, from, to time.Time) ([]trend.Quote, error)
}

// Handlers bundles what the routes need. WeatherTimeout defaults to
// recommend.DefaultWeatherTimeout.
// History is optional; without it the market history route is not registered.
type Handlers struct {
	Recommender    Recommender
	Weather        recommend.WeatherSource
	Market         recommend.TrendEstimator
	Demand         recommend.TrendEstimator
	History        QuoteHistory
	Tables         *reference.Tables
	WeatherTimeout time.Duration
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, h Handlers) {
	if h.WeatherTimeout <= 0 {
		h.WeatherTimeout = recommend.DefaultWeatherTimeout
	}

	v1 := app.Group("/api/v1")

	v1.Post("/predict", func(c *fiber.Ctx) error {
		var req recommend.Request
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		rec, err := h.Recommender.Recommend(c.UserContext(), req)
		if err != nil {
			return recommendError(err)
		}
		return c.JSON(rec)
	})

	v1.Get("/regions", func(c *fiber.Ctx) error {
		return c.JSON(h.Tables.Regions())
	})

	v1.Get("/weather", func(c *fiber.Ctx) error {
		q := cityQuery{City: strings.TrimSpace(c.Query("city"))}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "city query parameter is required")
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), h.WeatherTimeout)
		defer cancel()

		snap, err := h.Weather.Current(ctx, q.City)
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, "weather data unavailable")
		}
		return c.JSON(snap)
	})

	v1.Get("/market-price", func(c *fiber.Ctx) error {
		q := trendQuery{Crop: strings.TrimSpace(c.Query("crop")), City: strings.TrimSpace(c.Query("city"))}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "crop query parameter is required")
		}

		region, substituted := h.Tables.ResolveOrDefault(q.City)
		res := h.Market.Estimate(c.UserContext(), q.Crop, region)
		return c.JSON(trendResponse(q, region, substituted, res, true))
	})

	v1.Get("/demand-trends", func(c *fiber.Ctx) error {
		q := trendQuery{Crop: strings.TrimSpace(c.Query("crop")), City: strings.TrimSpace(c.Query("city"))}
		if q.Crop == "" {
			q.Crop = reference.AggregateDemandKey
		}

		region, substituted := h.Tables.ResolveOrDefault(q.City)
		res := h.Demand.Estimate(c.UserContext(), q.Crop, region)
		return c.JSON(trendResponse(q, region, substituted, res, false))
	})

	if h.History == nil {
		return
	}

	v1.Get("/market-history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		quotes, err := h.History.Range(common.Normalize(req.Crop), req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no market history for requested crop")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch market history")
		}

		return c.JSON(fiber.Map{
			"crop":   req.Crop,
			"from":   req.From,
			"to":     req.To,
			"quotes": quotes,
		})
	})
}

// ErrorHandler renders every error as {"error": true, "message": ...}, plus the
// failed step for recommendation errors.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	body := fiber.Map{
		"error":   true,
		"message": err.Error(),
	}

	var se *stepError
	var fe *fiber.Error
	switch {
	case errors.As(err, &se):
		code = se.code
		body["step"] = se.step
	case errors.As(err, &fe):
		code = fe.Code
	}
	return c.Status(code).JSON(body)
}

// stepError is an HTTP error annotated with the recommendation step that failed.
type stepError struct {
	code int
	step string
	msg  string
}

func (e *stepError) Error() string { return e.msg }

func recommendError(err error) error {
	step := StepUnknown
	var rerr *recommend.Error
	if errors.As(err, &rerr) {
		step = rerr.Step
	}

	switch {
	case errors.Is(err, recommend.ErrInvalidInput):
		return &stepError{code: fiber.StatusBadRequest, step: step, msg: "invalid input: city is required and month must be between 1 and 12"}
	case errors.Is(err, recommend.ErrUpstreamUnavailable):
		return &stepError{code: fiber.StatusBadGateway, step: step, msg: step + " upstream service unavailable"}
	default:
		return &stepError{code: fiber.StatusInternalServerError, step: step, msg: "failed to compute recommendation"}
	}
}

type cityQuery struct {
	City string `validate:"required"`
}

type trendQuery struct {
	Crop string `validate:"required"`
	City string
}

func trendResponse(q trendQuery, region reference.Region, substituted bool, res trend.Result[trend.Estimate], withPrice bool) fiber.Map {
	out := fiber.Map{
		"crop":              q.Crop,
		"city":              q.City,
		"region":            region.Name(),
		"regionSubstituted": substituted,
		"trend":             res.Value.Trend,
		"trendLabel":        trend.Label(res.Value.Trend),
		"degraded":          res.Degraded,
	}
	if withPrice {
		out["price"] = res.Value.Price
	}
	return out
}

// historyQuery holds query parameters for the market history endpoint.
type historyQuery struct {
	Crop string    `validate:"required"`
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	h.Crop = strings.TrimSpace(c.Query("crop"))

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}

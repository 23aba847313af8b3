package analysis

import (
	"strconv"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// HTTPConfig configures the analysis HTTP controller.
type HTTPConfig struct {
	// ErrorHandler renders errors (optional, defaults to propagating them to
	// the router error handler)
	ErrorHandler func(ctx router.Context, err error) error

	Logger Logger
}

// HTTPController exposes the analysis service over HTTP.
type HTTPController struct {
	service      *Service
	errorHandler func(ctx router.Context, err error) error
	logger       Logger
}

// NewHTTPController creates the analysis HTTP controller.
func NewHTTPController(service *Service, cfg HTTPConfig) *HTTPController {
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(_ router.Context, err error) error { return err }
	}
	if cfg.Logger == nil {
		cfg.Logger = noopLogger{}
	}

	return &HTTPController{
		service:      service,
		errorHandler: cfg.ErrorHandler,
		logger:       cfg.Logger,
	}
}

// RegisterRoutes registers analysis routes on the given group, applying the
// given middleware to every route.
func (c *HTTPController) RegisterRoutes(group RouteRegistrar, mw ...router.MiddlewareFunc) {
	group.Get("/range-word-frequency", c.RangeWordFrequency, mw...)
	group.Post("/word-frequency", c.WordFrequency, mw...)
	group.Delete("/cache/journey-week/:id", c.InvalidateJourneyWeek, mw...)
}

// RangeWordFrequency runs the scoped word-frequency analysis.
func (c *HTTPController) RangeWordFrequency(ctx router.Context) error {
	query, err := parseRangeQuery(ctx)
	if err != nil {
		return c.errorHandler(ctx, err)
	}

	result, err := c.service.AnalyzeRange(ctx.Context(), query)
	if err != nil {
		return c.errorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, result)
}

// WordFrequency runs the word-frequency analysis over a posted text.
func (c *HTTPController) WordFrequency(ctx router.Context) error {
	var query TextQuery
	if err := ctx.Bind(&query); err != nil {
		return c.errorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "invalid analysis request body"))
	}

	result, err := c.service.AnalyzeText(ctx.Context(), query)
	if err != nil {
		return c.errorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, result)
}

// InvalidateJourneyWeek drops cached analyses scoped to a journey week.
func (c *HTTPController) InvalidateJourneyWeek(ctx router.Context) error {
	journeyWeekID := ctx.Param("id")

	count, err := c.service.InvalidateJourneyWeek(ctx.Context(), journeyWeekID)
	if err != nil {
		return c.errorHandler(ctx, err)
	}

	c.logger.Info("journey week cache invalidated",
		"journey_week_id", journeyWeekID, "count", count)

	return ctx.JSON(router.StatusOK, map[string]any{
		"journey_week_id": journeyWeekID,
		"invalidated":     count,
	})
}

func parseRangeQuery(ctx router.Context) (RangeQuery, error) {
	query := RangeQuery{
		JourneyID:         ctx.Query("journey_id", ""),
		JourneyWeekID:     ctx.Query("journey_week_id", ""),
		MissionInstanceID: ctx.Query("mission_instance_id", ""),
		UserID:            ctx.Query("user_id", ""),
	}

	var err error
	if query.TopN, err = queryInt(ctx, "top_n"); err != nil {
		return query, err
	}
	if query.MinCount, err = queryInt(ctx, "min_count"); err != nil {
		return query, err
	}
	query.ForceRefresh = ctx.Query("force_refresh", "") == "true"

	return query, nil
}

func queryInt(ctx router.Context, name string) (int, error) {
	raw := ctx.Query(name, "")
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Wrap(err, errors.CategoryValidation, "invalid integer query parameter").
			WithTextCode(ErrBadScopeParameter.TextCode).
			WithMetadata(map[string]any{"parameter": name, "value": raw})
	}
	return value, nil
}

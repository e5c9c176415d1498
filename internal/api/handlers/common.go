package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/carloswilll/dashboard-cartolaFC2025/internal/optimizer"
	"github.com/carloswilll/dashboard-cartolaFC2025/internal/roles"
	"github.com/carloswilll/dashboard-cartolaFC2025/internal/services"
	"github.com/carloswilll/dashboard-cartolaFC2025/pkg/logger"
	"github.com/carloswilll/dashboard-cartolaFC2025/pkg/utils"
)

// respondError maps service errors onto the response envelope.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var cfgErr *optimizer.ConfigurationError
	switch {
	case errors.As(err, &cfgErr):
		utils.SendConfigurationError(c, "Invalid optimization constraints", cfgErr.Error())
	case errors.Is(err, utils.ErrInvalidInput), errors.Is(err, services.ErrMissingColumn):
		utils.SendValidationError(c, "Invalid input", err.Error())
	case errors.Is(err, utils.ErrNotFound):
		utils.SendNotFound(c, err.Error())
	case errors.Is(err, utils.ErrUpstreamDown):
		utils.SendUpstreamError(c, "Cartola API unavailable", err.Error())
	case errors.Is(err, utils.ErrOptimizationFailed):
		logger.WithHTTPContext(c.Request.Method, c.FullPath(), c.Request.UserAgent()).
			WithError(err).Error("Optimization failed")
		utils.SendOptimizationError(c, "Optimization failed")
	default:
		logger.WithHTTPContext(c.Request.Method, c.FullPath(), c.Request.UserAgent()).
			WithError(err).Error("Unhandled request error")
		utils.SendInternalError(c, "Internal server error")
	}
}

// splitValues accepts both repeated and comma separated query values.
func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func buildFilter(roleLabels, clubs []string, statuses []int) (services.Filter, error) {
	filter := services.Filter{Clubs: clubs, Statuses: statuses}
	for _, label := range roleLabels {
		role, err := roles.Parse(label)
		if err != nil {
			return services.Filter{}, errors.Join(utils.ErrInvalidInput, err)
		}
		filter.Roles = append(filter.Roles, role)
	}
	return filter, nil
}

func parseQueryFilter(c *gin.Context) (services.Filter, error) {
	var statuses []int
	for _, raw := range splitValues(c.QueryArray("status")) {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return services.Filter{}, errors.Join(utils.ErrInvalidInput, errors.New("status must be a numeric id"))
		}
		statuses = append(statuses, id)
	}
	return buildFilter(splitValues(c.QueryArray("role")), splitValues(c.QueryArray("club")), statuses)
}

func parseLimit(c *gin.Context, fallback int) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return fallback, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, errors.Join(utils.ErrInvalidInput, errors.New("limit must be a non-negative integer"))
	}
	return limit, nil
}

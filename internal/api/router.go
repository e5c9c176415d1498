package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/carloswilll/dashboard-cartolaFC2025/internal/api/handlers"
	"github.com/carloswilll/dashboard-cartolaFC2025/internal/api/middleware"
	"github.com/carloswilll/dashboard-cartolaFC2025/internal/services"
	"github.com/carloswilll/dashboard-cartolaFC2025/pkg/solver"
)

// Dependencies are the services the HTTP layer serves.
type Dependencies struct {
	Market      *services.MarketService
	Lineups     *services.LineupService
	Store       *services.LineupStore
	Checks      map[string]handlers.Pinger
	Capability  solver.Capability
	Metrics     http.Handler
	CorsOrigins []string
	Logger      *logrus.Logger
}

// NewRouter builds the engine with the middleware stack and all routes.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.CORS(deps.CorsOrigins))

	health := handlers.NewHealthHandler(deps.Checks, deps.Capability)
	router.GET("/health", health.GetHealth)
	router.GET("/ready", health.GetReady)
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	SetupRoutes(router.Group("/api/v1"), deps)
	return router
}

// SetupRoutes configures all API routes on the given router group
func SetupRoutes(group *gin.RouterGroup, deps Dependencies) {
	playerHandler := handlers.NewPlayerHandler(deps.Market)
	optimizerHandler := handlers.NewOptimizerHandler(deps.Lineups)
	lineupHandler := handlers.NewLineupHandler(deps.Store)

	// Market endpoints
	group.GET("/players", playerHandler.GetPlayers)
	group.GET("/players/top-value", playerHandler.GetTopValue)
	group.GET("/players/overview", playerHandler.GetOverview)
	group.GET("/players/export", playerHandler.ExportPlayers)
	group.GET("/market/status", playerHandler.GetMarketStatus)

	// Optimization endpoints
	group.POST("/optimize", optimizerHandler.Optimize)
	group.POST("/optimize/upload", optimizerHandler.OptimizeUpload)
	group.GET("/formations", optimizerHandler.GetFormations)

	// Lineup history
	group.GET("/lineups", lineupHandler.GetLineups)
	group.GET("/lineups/:id", lineupHandler.GetLineup)
	group.GET("/lineups/:id/export", lineupHandler.ExportLineup)
}

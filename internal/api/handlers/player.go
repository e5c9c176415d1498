package handlers

import (
	"bytes"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/carloswilll/dashboard-cartolaFC2025/internal/services"
	"github.com/carloswilll/dashboard-cartolaFC2025/pkg/utils"
)

const defaultTopValue = 10

type PlayerHandler struct {
	market *services.MarketService
}

func NewPlayerHandler(market *services.MarketService) *PlayerHandler {
	return &PlayerHandler{market: market}
}

// GetPlayers returns the scored market ranked by expected value
func (h *PlayerHandler) GetPlayers(c *gin.Context) {
	filter, err := parseQueryFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}
	limit, err := parseLimit(c, 0)
	if err != nil {
		respondError(c, err)
		return
	}

	players, err := h.market.Scored(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	total := len(players)
	if limit > 0 && len(players) > limit {
		players = players[:limit]
	}
	utils.SendSuccessWithMeta(c, players, &utils.Meta{Total: int64(total), Limit: limit})
}

func (h *PlayerHandler) GetTopValue(c *gin.Context) {
	filter, err := parseQueryFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}
	limit, err := parseLimit(c, defaultTopValue)
	if err != nil {
		respondError(c, err)
		return
	}

	players, err := h.market.TopValue(c.Request.Context(), filter, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccessWithMeta(c, players, &utils.Meta{Total: int64(len(players)), Limit: limit})
}

func (h *PlayerHandler) GetOverview(c *gin.Context) {
	filter, err := parseQueryFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}

	overview, err := h.market.Overview(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccess(c, overview)
}

// ExportPlayers streams the filtered scored market as CSV
func (h *PlayerHandler) ExportPlayers(c *gin.Context) {
	filter, err := parseQueryFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}

	players, err := h.market.Scored(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := services.WritePlayersCSV(&buf, players); err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("cartola_dados_%s.csv", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(200, "text/csv; charset=utf-8", buf.Bytes())
}

func (h *PlayerHandler) GetMarketStatus(c *gin.Context) {
	status, err := h.market.Status(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccess(c, status)
}

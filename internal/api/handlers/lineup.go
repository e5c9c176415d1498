package handlers

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/carloswilll/dashboard-cartolaFC2025/internal/services"
	"github.com/carloswilll/dashboard-cartolaFC2025/pkg/utils"
)

type LineupHandler struct {
	store *services.LineupStore
}

func NewLineupHandler(store *services.LineupStore) *LineupHandler {
	return &LineupHandler{store: store}
}

// GetLineups returns saved lineups, newest first
func (h *LineupHandler) GetLineups(c *gin.Context) {
	limit, err := parseLimit(c, 20)
	if err != nil {
		respondError(c, err)
		return
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}

	records, total, err := h.store.List(c.Request.Context(), c.Query("strategy"), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccessWithMeta(c, records, &utils.Meta{Total: total, Limit: limit})
}

func (h *LineupHandler) GetLineup(c *gin.Context) {
	record, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SendSuccess(c, record)
}

// ExportLineup downloads a saved lineup as CSV
func (h *LineupHandler) ExportLineup(c *gin.Context) {
	record, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	players, err := services.DecodePlayers(record)
	if err != nil {
		respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := services.WriteLineupCSV(&buf, players, record.CaptainID); err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("escalacao_%s.csv", record.CreatedAt.Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(200, "text/csv; charset=utf-8", buf.Bytes())
}

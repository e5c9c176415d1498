package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/carloswilll/dashboard-cartolaFC2025/internal/optimizer"
	"github.com/carloswilll/dashboard-cartolaFC2025/internal/services"
	"github.com/carloswilll/dashboard-cartolaFC2025/pkg/logger"
	"github.com/carloswilll/dashboard-cartolaFC2025/pkg/utils"
)

// maxUploadBytes bounds CSV uploads.
const maxUploadBytes = 8 << 20

type OptimizerHandler struct {
	lineups *services.LineupService
}

func NewOptimizerHandler(lineups *services.LineupService) *OptimizerHandler {
	return &OptimizerHandler{lineups: lineups}
}

type optimizeRequest struct {
	Budget          *float64       `json:"budget"`
	Formation       map[string]int `json:"formation"`
	FormationPreset string         `json:"formation_preset"`
	MaxPerClub      *int           `json:"max_per_club"`
	Roles           []string       `json:"roles"`
	Clubs           []string       `json:"clubs"`
	Statuses        []int          `json:"statuses"`
	Save            bool           `json:"save"`
}

func (r optimizeRequest) toService() (services.OptimizeRequest, error) {
	filter, err := buildFilter(r.Roles, r.Clubs, r.Statuses)
	if err != nil {
		return services.OptimizeRequest{}, err
	}
	return services.OptimizeRequest{
		Budget:          r.Budget,
		Formation:       r.Formation,
		FormationPreset: r.FormationPreset,
		MaxPerClub:      r.MaxPerClub,
		Filter:          filter,
		Save:            r.Save,
	}, nil
}

// Optimize builds a lineup from the current market
func (h *OptimizerHandler) Optimize(c *gin.Context) {
	var req optimizeRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.SendValidationError(c, "Invalid request body", err.Error())
			return
		}
	}

	serviceReq, err := req.toService()
	if err != nil {
		respondError(c, err)
		return
	}

	outcome, err := h.lineups.Optimize(c.Request.Context(), serviceReq)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOutcome(c, outcome)
}

// OptimizeUpload builds a lineup from a CSV file sent as multipart field
// "file". Constraint fields are sent as form values; "formation" is a JSON
// object.
func (h *OptimizerHandler) OptimizeUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		utils.SendValidationError(c, "Missing CSV file", err.Error())
		return
	}

	req, err := uploadRequest(c)
	if err != nil {
		respondError(c, err)
		return
	}
	serviceReq, err := req.toService()
	if err != nil {
		respondError(c, err)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		utils.SendValidationError(c, "Unreadable CSV file", err.Error())
		return
	}
	defer file.Close()

	records, rejected, err := services.ParseCSV(file)
	if err != nil {
		utils.SendValidationError(c, "Invalid CSV file", err.Error())
		return
	}
	report := services.Ingest(records)
	report.Rejected = append(rejected, report.Rejected...)

	outcome, err := h.lineups.OptimizePlayers(c.Request.Context(), report, serviceReq)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOutcome(c, outcome)
}

func respondOutcome(c *gin.Context, outcome *services.OptimizeOutcome) {
	logger.WithRequestContext(c.GetString("request_id"), outcome.OptimizationID).WithFields(logrus.Fields{
		"strategy":   outcome.Strategy,
		"selected":   len(outcome.Selected),
		"infeasible": outcome.Infeasible,
		"lineup_id":  outcome.LineupID,
	}).Debug("Optimization response")
	utils.SendSuccessWithMeta(c, outcome, &utils.Meta{Strategy: string(outcome.Strategy)})
}

func uploadRequest(c *gin.Context) (optimizeRequest, error) {
	var req optimizeRequest
	invalid := func(field string, err error) error {
		return errors.Join(utils.ErrInvalidInput, fmt.Errorf("%s: %w", field, err))
	}

	if raw := c.PostForm("budget"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return req, invalid("budget", err)
		}
		req.Budget = &v
	}
	if raw := c.PostForm("max_per_club"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return req, invalid("max_per_club", err)
		}
		req.MaxPerClub = &v
	}
	if raw := c.PostForm("formation"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Formation); err != nil {
			return req, invalid("formation", err)
		}
	}
	req.FormationPreset = c.PostForm("formation_preset")
	req.Roles = splitValues(c.PostFormArray("roles"))
	req.Clubs = splitValues(c.PostFormArray("clubs"))
	for _, raw := range splitValues(c.PostFormArray("statuses")) {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return req, invalid("statuses", err)
		}
		req.Statuses = append(req.Statuses, v)
	}
	if raw := c.PostForm("save"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return req, invalid("save", err)
		}
		req.Save = v
	}
	return req, nil
}

type formationView struct {
	Name      string         `json:"name"`
	Formation map[string]int `json:"formation"`
}

func (h *OptimizerHandler) GetFormations(c *gin.Context) {
	names := optimizer.FormationPresetNames()
	views := make([]formationView, 0, len(names))
	for _, name := range names {
		formation, _ := optimizer.FormationPreset(name)
		views = append(views, formationView{Name: name, Formation: formation})
	}
	utils.SendSuccess(c, views)
}

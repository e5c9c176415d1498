package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/carloswilll/dashboard-cartolaFC2025/internal/models"
	"github.com/carloswilll/dashboard-cartolaFC2025/internal/providers"
	"github.com/carloswilll/dashboard-cartolaFC2025/internal/roles"
)

const unknownLabel = "Desconhecido"

var ErrMissingColumn = errors.New("missing required csv column")

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// RawRecord is an athlete as received from the market API or a CSV upload,
// before its role label is resolved.
type RawRecord struct {
	ID       int64   `validate:"gt=0"`
	Name     string  `validate:"required"`
	Club     string  `validate:"required"`
	Role     string  `validate:"required"`
	Price    float64 `validate:"gte=0"`
	Average  float64 `validate:"gte=0"`
	Games    int     `validate:"gte=0"`
	StatusID int
	Scouts   map[string]float64
}

type RejectedRecord struct {
	Index  int    `json:"index"`
	ID     int64  `json:"id"`
	Reason string `json:"reason"`
}

type IngestReport struct {
	Players  []models.Player  `json:"players"`
	Rejected []RejectedRecord `json:"rejected,omitempty"`
}

// Ingest validates records and resolves their roles. Bad records are
// reported individually and never abort the batch. The first record with a
// given id wins.
func Ingest(records []RawRecord) IngestReport {
	report := IngestReport{Players: make([]models.Player, 0, len(records))}
	seen := make(map[int64]bool, len(records))

	reject := func(i int, id int64, reason string) {
		report.Rejected = append(report.Rejected, RejectedRecord{Index: i, ID: id, Reason: reason})
	}

	for i, rec := range records {
		if err := checkFinite(rec); err != nil {
			reject(i, rec.ID, err.Error())
			continue
		}
		if err := validate.Struct(rec); err != nil {
			reject(i, rec.ID, fmt.Sprintf("validation failed: %v", err))
			continue
		}
		role, err := roles.Parse(rec.Role)
		if err != nil {
			reject(i, rec.ID, err.Error())
			continue
		}
		if seen[rec.ID] {
			reject(i, rec.ID, "duplicate player id")
			continue
		}
		seen[rec.ID] = true

		var scouts map[string]float64
		for k, v := range rec.Scouts {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			if scouts == nil {
				scouts = make(map[string]float64, len(rec.Scouts))
			}
			scouts[strings.ToUpper(strings.TrimSpace(k))] = v
		}

		report.Players = append(report.Players, models.Player{
			ID:        rec.ID,
			Name:      rec.Name,
			Club:      rec.Club,
			RoleLabel: rec.Role,
			Role:      role,
			Price:     rec.Price,
			Average:   rec.Average,
			Games:     rec.Games,
			StatusID:  rec.StatusID,
			Status:    models.StatusName(rec.StatusID),
			Scouts:    scouts,
		})
	}

	return report
}

func checkFinite(rec RawRecord) error {
	for name, v := range map[string]float64{"price": rec.Price, "average": rec.Average} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s is not a finite number", name)
		}
	}
	return nil
}

// RecordsFromMarket flattens a market payload, resolving club and position
// ids against the lookup tables shipped with it.
func RecordsFromMarket(market *providers.Market) []RawRecord {
	if market == nil {
		return nil
	}

	records := make([]RawRecord, 0, len(market.Athletes))
	for _, a := range market.Athletes {
		rec := RawRecord{
			ID:       a.AtletaID,
			Name:     a.Apelido,
			Club:     unknownLabel,
			Role:     unknownLabel,
			Price:    a.PrecoNum,
			Average:  a.MediaNum,
			Games:    a.JogosNum,
			StatusID: a.StatusID,
			Scouts:   a.Scout,
		}
		if rec.ID == 0 {
			if id, err := strconv.ParseInt(a.Key, 10, 64); err == nil {
				rec.ID = id
			}
		}
		if rec.Name == "" {
			rec.Name = a.ApelidoAbreviado
		}
		if rec.Name == "" {
			rec.Name = "Jogador_" + a.Key
		}
		if club, ok := market.Clubs[strconv.Itoa(a.ClubeID)]; ok && club.Name != "" {
			rec.Club = club.Name
		}
		if pos, ok := market.Positions[strconv.Itoa(a.PosicaoID)]; ok && pos.Name != "" {
			rec.Role = pos.Name
		}
		records = append(records, rec)
	}
	return records
}

var csvColumns = map[string]string{
	"player_id": "id",
	"id":        "id",
	"atleta_id": "id",
	"nome":      "name",
	"name":      "name",
	"clube":     "club",
	"club":      "club",
	"posicao":   "role",
	"role":      "role",
	"position":  "role",
	"preco":     "price",
	"price":     "price",
	"media":     "average",
	"average":   "average",
	"jogos":     "games",
	"games":     "games",
	"status":    "status",
	"status_id": "status",
}

// ParseCSV reads athlete rows from a header-led CSV file. Short upper-case
// columns such as G or DS are read as scout counters. Rows with unreadable
// numbers are rejected and reported by their data row index.
func ParseCSV(r io.Reader) ([]RawRecord, []RejectedRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	fields := make(map[string]int)
	scouts := make(map[string]int)
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
		if field, ok := csvColumns[strings.ToLower(h)]; ok {
			if _, dup := fields[field]; !dup {
				fields[field] = i
			}
			continue
		}
		if isScoutColumn(h) {
			scouts[h] = i
		}
	}
	for _, required := range []string{"id", "club", "role"} {
		if _, ok := fields[required]; !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	var records []RawRecord
	var rejected []RejectedRecord
	for row := 0; ; row++ {
		cols, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read csv row %d: %w", row, err)
		}

		rec, err := recordFromRow(cols, fields, scouts)
		if err != nil {
			rejected = append(rejected, RejectedRecord{Index: row, ID: rec.ID, Reason: err.Error()})
			continue
		}
		records = append(records, rec)
	}

	return records, rejected, nil
}

func isScoutColumn(h string) bool {
	if len(h) == 0 || len(h) > 3 {
		return false
	}
	for _, r := range h {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func recordFromRow(cols []string, fields, scouts map[string]int) (RawRecord, error) {
	cell := func(idx int) string {
		if idx < len(cols) {
			return strings.TrimSpace(cols[idx])
		}
		return ""
	}
	text := func(field string) string {
		if idx, ok := fields[field]; ok {
			return cell(idx)
		}
		return ""
	}
	number := func(field string) (float64, error) {
		raw := text(field)
		if raw == "" {
			return 0, nil
		}
		v, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s %q", field, raw)
		}
		return v, nil
	}

	var rec RawRecord
	if raw := text("id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return rec, fmt.Errorf("invalid id %q", raw)
		}
		rec.ID = id
	}
	rec.Name = text("name")
	if rec.Name == "" {
		rec.Name = "Jogador_" + text("id")
	}
	rec.Club = text("club")
	rec.Role = text("role")

	var err error
	if rec.Price, err = number("price"); err != nil {
		return rec, err
	}
	if rec.Average, err = number("average"); err != nil {
		return rec, err
	}
	games, err := number("games")
	if err != nil {
		return rec, err
	}
	rec.Games = int(games)
	if status, err := number("status"); err == nil {
		rec.StatusID = int(status)
	}

	for key, idx := range scouts {
		raw := cell(idx)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return rec, fmt.Errorf("invalid scout %s %q", key, raw)
		}
		if rec.Scouts == nil {
			rec.Scouts = make(map[string]float64, len(scouts))
		}
		rec.Scouts[key] = v
	}

	return rec, nil
}

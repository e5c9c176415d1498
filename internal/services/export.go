package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/carloswilll/dashboard-cartolaFC2025/internal/models"
)

var exportHeader = append(append([]string{
	"player_id", "nome", "clube", "posicao", "preco", "media", "jogos", "status",
}, models.CanonicalScouts...),
	"indice_ofensivo", "indice_defensivo", "volatilidade", "score_base", "score_expect", "custo_beneficio",
)

// WritePlayersCSV writes scored players in a layout ParseCSV reads back.
func WritePlayersCSV(w io.Writer, players []models.ScoredPlayer) error {
	return writeCSV(w, players, 0, false)
}

// WriteLineupCSV writes a lineup with a captain flag column.
func WriteLineupCSV(w io.Writer, players []models.ScoredPlayer, captainID int64) error {
	return writeCSV(w, players, captainID, true)
}

func writeCSV(w io.Writer, players []models.ScoredPlayer, captainID int64, withCaptain bool) error {
	writer := csv.NewWriter(w)

	header := exportHeader
	if withCaptain {
		header = append(append([]string(nil), exportHeader...), "capitao")
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, p := range players {
		role := p.RoleLabel
		if role == "" {
			role = p.Role.String()
		}
		row := []string{
			strconv.FormatInt(p.ID, 10),
			p.Name,
			p.Club,
			role,
			formatFloat(p.Price),
			formatFloat(p.Average),
			strconv.Itoa(p.Games),
			strconv.Itoa(p.StatusID),
		}
		for _, key := range models.CanonicalScouts {
			row = append(row, formatFloat(p.Scout(key)))
		}
		row = append(row,
			formatFloat(p.OffensiveIndex),
			formatFloat(p.DefensiveIndex),
			formatFloat(p.Volatility),
			formatFloat(p.BaseScore),
			formatFloat(p.ExpectedValue),
			formatFloat(p.CostBenefit),
		)
		if withCaptain {
			row = append(row, strconv.FormatBool(p.ID == captainID))
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

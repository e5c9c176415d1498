package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/carloswilll/dashboard-cartolaFC2025/internal/optimizer"
	"github.com/carloswilll/dashboard-cartolaFC2025/internal/scoring"
	"github.com/carloswilll/dashboard-cartolaFC2025/internal/services"
)

// PlayersCmd creates the players command
func PlayersCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "players",
		Short: "List players ranked by expected value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			csvPath, _ := cmd.Flags().GetString("csv")
			top, _ := cmd.Flags().GetInt("top")

			report, err := app.loadPlayers(csvPath)
			if err != nil {
				return err
			}

			ranked := scoring.RankByExpectedValue(scoring.Score(report.Players))
			overview := services.Overview(ranked)
			if top > 0 && len(ranked) > top {
				ranked = ranked[:top]
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d players, mean price %.2f, mean average %.2f, mean EV %.2f\n\n",
				overview.Count, overview.MeanPrice, overview.MeanAverage, overview.MeanExpectedValue)

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCLUB\tROLE\tPRICE\tAVG\tEV\tVALUE\t")
			for _, p := range ranked {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.2f\t%.2f\t%.2f\t%.3f\t\n",
					p.ID, p.Name, p.Club, p.Role.Key(), p.Price, p.Average, p.ExpectedValue, p.CostBenefit)
			}
			tw.Flush()

			for _, r := range report.Rejected {
				fmt.Fprintf(cmd.ErrOrStderr(), "rejected row %d (id %d): %s\n", r.Index, r.ID, r.Reason)
			}
			return nil
		},
	}

	cmd.Flags().String("csv", "", "Read players from a CSV file instead of the Cartola API")
	cmd.Flags().Int("top", 20, "Number of players to show (0 for all)")

	return cmd
}

// FormationsCmd creates the formations command
func FormationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formations",
		Short: "List the formation presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, name := range optimizer.FormationPresetNames() {
				formation, _ := optimizer.FormationPreset(name)
				fmt.Fprintf(out, "%s  GOL %d  DEF %d  MEI %d  ATA %d\n",
					name, formation["GOL"], formation["DEF"], formation["MEI"], formation["ATA"])
			}
			return nil
		},
	}
}

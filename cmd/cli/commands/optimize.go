package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/carloswilll/dashboard-cartolaFC2025/internal/optimizer"
	"github.com/carloswilll/dashboard-cartolaFC2025/internal/services"
	"github.com/carloswilll/dashboard-cartolaFC2025/pkg/solver"
)

// OptimizeCmd creates the optimize command
func OptimizeCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Build the best lineup for a formation, budget and club cap",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			csvPath, _ := cmd.Flags().GetString("csv")
			formation, _ := cmd.Flags().GetString("formation")
			budget, _ := cmd.Flags().GetFloat64("budget")
			maxPerClub, _ := cmd.Flags().GetInt("max-per-club")
			heuristicOnly, _ := cmd.Flags().GetBool("heuristic-only")
			outPath, _ := cmd.Flags().GetString("out")
			asJSON, _ := cmd.Flags().GetBool("json")

			report, err := app.loadPlayers(csvPath)
			if err != nil {
				return err
			}

			capability := solver.Unavailable("disabled by --heuristic-only")
			if !heuristicOnly && app.Cfg.SolverEnabled {
				capability = solver.Probe(app.Ctx, solver.NewBranchAndBound(
					solver.WithNodeLimit(app.Cfg.SolverNodeLimit),
					solver.WithTimeLimit(app.Cfg.SolverTimeLimit),
					solver.WithLogger(app.Logger.WithField("component", "solver")),
				))
			}
			facade := optimizer.NewFacade(capability,
				optimizer.WithExactOptions(optimizer.WithTimeLimit(app.Cfg.SolverTimeLimit)))

			svc := services.NewLineupService(nil, facade, nil, services.LineupDefaults{
				Budget:     app.Cfg.DefaultBudget,
				MaxPerClub: app.Cfg.MaxPerClubDefault,
				Formation:  app.Cfg.DefaultFormation,
			}, app.Logger)

			req := services.OptimizeRequest{FormationPreset: formation}
			if cmd.Flags().Changed("budget") {
				req.Budget = &budget
			}
			if cmd.Flags().Changed("max-per-club") {
				req.MaxPerClub = &maxPerClub
			}

			outcome, err := svc.OptimizePlayers(app.Ctx, report, req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(outcome); err != nil {
					return err
				}
			} else {
				printOutcome(out, outcome)
			}

			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", outPath, err)
				}
				defer f.Close()

				var captainID int64
				if outcome.Captain != nil {
					captainID = outcome.Captain.ID
				}
				if err := services.WriteLineupCSV(f, outcome.Selected, captainID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Lineup written to %s\n", outPath)
			}
			return nil
		},
	}

	cmd.Flags().String("csv", "", "Read players from a CSV file instead of the Cartola API")
	cmd.Flags().String("formation", "", "Formation preset (4-4-2, 3-5-2, 4-3-3)")
	cmd.Flags().Float64("budget", 0, "Budget in cartoletas")
	cmd.Flags().Int("max-per-club", 0, "Maximum players from one club")
	cmd.Flags().Bool("heuristic-only", false, "Skip the exact solver")
	cmd.Flags().String("out", "", "Write the lineup to a CSV file")
	cmd.Flags().Bool("json", false, "Print the result as JSON")

	return cmd
}

func printOutcome(w io.Writer, outcome *services.OptimizeOutcome) {
	fmt.Fprintf(w, "\nFormation %s, strategy %s\n", outcome.Formation, outcome.Strategy)
	if outcome.Strategy == optimizer.StrategyExact && !outcome.Optimal && len(outcome.Selected) > 0 {
		fmt.Fprintln(w, "Search stopped at its limits; the lineup is not proven optimal.")
	}
	if outcome.Infeasible {
		fmt.Fprintln(w, "No lineup satisfies the constraints.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCLUB\tROLE\tPRICE\tEV\t")
	for _, p := range outcome.Selected {
		name := p.Name
		if outcome.Captain != nil && outcome.Captain.ID == p.ID {
			name += " (C)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.2f\t%.2f\t\n", p.ID, name, p.Club, p.Role.Key(), p.Price, p.ExpectedValue)
	}
	tw.Flush()

	fmt.Fprintf(w, "\nTotal price %.2f, expected points %.2f (captain doubled)\n", outcome.TotalPrice, outcome.TotalExpectedValue)
	if len(outcome.Rejected) > 0 {
		fmt.Fprintf(w, "%d input rows were rejected\n", len(outcome.Rejected))
	}
}

package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/carloswilll/dashboard-cartolaFC2025/internal/providers"
	"github.com/carloswilll/dashboard-cartolaFC2025/internal/services"
	"github.com/carloswilll/dashboard-cartolaFC2025/pkg/config"
)

// AppContext holds the dependencies shared by all commands
type AppContext struct {
	Ctx    context.Context
	Cfg    *config.Config
	Logger *logrus.Logger
}

// loadPlayers reads the market from a CSV file when one is given and from
// the Cartola API otherwise.
func (app *AppContext) loadPlayers(csvPath string) (services.IngestReport, error) {
	if csvPath != "" {
		f, err := os.Open(csvPath)
		if err != nil {
			return services.IngestReport{}, fmt.Errorf("failed to open csv: %w", err)
		}
		defer f.Close()
		return readCSV(f)
	}

	client := providers.NewCartolaClient(providers.ClientConfig{
		MarketURL:        app.Cfg.CartolaMarketURL,
		StatusURL:        app.Cfg.CartolaStatusURL,
		Timeout:          app.Cfg.RequestTimeout,
		MaxRetries:       app.Cfg.MaxRetries,
		RetryBackoff:     app.Cfg.RetryBackoff,
		RequestsPerSec:   app.Cfg.ProviderRateLimit,
		BreakerThreshold: app.Cfg.CircuitBreakerThreshold,
	}, app.Logger)

	market, err := client.FetchMarket(app.Ctx)
	if err != nil {
		return services.IngestReport{}, err
	}
	return services.Ingest(services.RecordsFromMarket(market)), nil
}

func readCSV(r io.Reader) (services.IngestReport, error) {
	records, rejected, err := services.ParseCSV(r)
	if err != nil {
		return services.IngestReport{}, err
	}
	report := services.Ingest(records)
	report.Rejected = append(rejected, report.Rejected...)
	return report, nil
}

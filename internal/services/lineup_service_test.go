package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/carloswilll/dashboard-cartolaFC2025/internal/optimizer"
	"github.com/carloswilll/dashboard-cartolaFC2025/internal/roles"
	"github.com/carloswilll/dashboard-cartolaFC2025/pkg/solver"
)

var testDefaults = LineupDefaults{Budget: 100, MaxPerClub: 3, Formation: "4-3-3"}

func TestLineupService_Resolve(t *testing.T) {
	svc := NewLineupService(nil, nil, nil, testDefaults, testLogger())

	c, name, err := svc.Resolve(OptimizeRequest{})
	require.NoError(t, err)
	assert.Equal(t, "4-3-3", name)
	assert.Equal(t, 100.0, c.Budget())
	assert.Equal(t, 11, c.RosterSize())

	budget, maxPerClub := 50.0, 2
	c, name, err = svc.Resolve(OptimizeRequest{Budget: &budget, MaxPerClub: &maxPerClub, FormationPreset: "3-5-2"})
	require.NoError(t, err)
	assert.Equal(t, "3-5-2", name)
	assert.Equal(t, 5, c.Quota(roles.Midfielder))
	assert.Equal(t, 2, c.MaxPerGroup())

	c, name, err = svc.Resolve(OptimizeRequest{Formation: map[string]int{"goleiro": 1}, FormationPreset: "4-4-2"})
	require.NoError(t, err)
	assert.Equal(t, customFormation, name)
	assert.Equal(t, 1, c.RosterSize())

	_, _, err = svc.Resolve(OptimizeRequest{FormationPreset: "5-5-0"})
	var cfgErr *optimizer.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "formation", cfgErr.Field)

	zero := 0.0
	_, _, err = svc.Resolve(OptimizeRequest{Budget: &zero})
	assert.ErrorIs(t, err, optimizer.ErrConfiguration)
}

func TestLineupService_OptimizeAndSave(t *testing.T) {
	source := new(mockSource)
	source.On("FetchMarket", mock.Anything).Return(sampleMarket(), nil)
	market := NewMarketService(source, NewMemoryCache(), time.Minute, testLogger())
	store := newTestStore(t)

	facade := optimizer.NewFacade(solver.Probe(context.Background(), solver.NewBranchAndBound()))
	svc := NewLineupService(market, facade, store, testDefaults, testLogger())

	outcome, err := svc.Optimize(context.Background(), OptimizeRequest{
		Formation: map[string]int{"GOL": 1, "ATA": 1},
		Save:      true,
	})
	require.NoError(t, err)

	assert.Equal(t, optimizer.StrategyExact, outcome.Strategy)
	require.Len(t, outcome.Selected, 2)
	require.NotNil(t, outcome.Captain)
	assert.Equal(t, 3, outcome.Candidates)
	assert.Equal(t, outcome.OptimizationID, outcome.LineupID)

	record, err := store.Get(context.Background(), outcome.LineupID)
	require.NoError(t, err)
	assert.Equal(t, customFormation, record.Formation)
	assert.Equal(t, outcome.Captain.ID, record.CaptainID)
}

func TestLineupService_OptimizePlayersCarriesRejections(t *testing.T) {
	facade := optimizer.NewFacade(solver.Unavailable("disabled"))
	svc := NewLineupService(nil, facade, nil, testDefaults, testLogger())

	report := Ingest([]RawRecord{
		{ID: 1, Name: "Keeper", Club: "A", Role: "Goleiro", Price: 5, Average: 4},
		{ID: 2, Name: "Nobody", Club: "A", Role: "Desconhecido", Price: 5, Average: 4},
	})
	outcome, err := svc.OptimizePlayers(context.Background(), report, OptimizeRequest{Formation: map[string]int{"GOL": 1}})
	require.NoError(t, err)

	assert.Equal(t, optimizer.StrategyHeuristic, outcome.Strategy)
	assert.Len(t, outcome.Selected, 1)
	require.Len(t, outcome.Rejected, 1)
	assert.Equal(t, int64(2), outcome.Rejected[0].ID)

	_, err = svc.OptimizePlayers(context.Background(), report, OptimizeRequest{Formation: map[string]int{"GOL": 1}, Save: true})
	assert.Error(t, err)

	_, err = svc.Optimize(context.Background(), OptimizeRequest{})
	assert.Error(t, err)
}

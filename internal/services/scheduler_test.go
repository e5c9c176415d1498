package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/carloswilll/dashboard-cartolaFC2025/internal/providers"
)

func TestScheduler_StartRunsInitialRefresh(t *testing.T) {
	source := new(mockSource)
	source.On("FetchMarket", mock.Anything).Return(sampleMarket(), nil)

	cache := NewMemoryCache()
	require.NoError(t, cache.Set(context.Background(), MarketStatusCacheKey(), providers.MarketStatus{RodadaAtual: 1}, 0))

	market := NewMarketService(source, cache, time.Minute, testLogger())
	scheduler := NewScheduler(market, cache, "@every 1h", testLogger())
	require.NoError(t, scheduler.Start())
	defer scheduler.Stop()

	assert.Error(t, scheduler.Start(), "second start is rejected")

	assert.Eventually(t, func() bool {
		job := scheduler.Jobs()["market_refresh"]
		return job.Status == "completed" && job.RunCount == 1
	}, 2*time.Second, 10*time.Millisecond)

	var snapshot MarketSnapshot
	require.NoError(t, cache.Get(context.Background(), MarketCacheKey(), &snapshot))
	assert.Len(t, snapshot.Players, 3)

	var status providers.MarketStatus
	assert.ErrorIs(t, cache.Get(context.Background(), MarketStatusCacheKey(), &status), ErrCacheMiss)
}

func TestScheduler_RecordsFailuresAndPanics(t *testing.T) {
	scheduler := NewScheduler(nil, NewMemoryCache(), "@every 1h", testLogger())

	scheduler.mu.Lock()
	require.NoError(t, scheduler.addJob("fails", "@every 1h", "Fails", func(context.Context) error {
		return errors.New("upstream down")
	}))
	require.NoError(t, scheduler.addJob("panics", "@every 1h", "Panics", func(context.Context) error {
		panic("boom")
	}))
	scheduler.mu.Unlock()

	scheduler.RunNow("fails")
	scheduler.RunNow("panics")
	scheduler.RunNow("missing")

	jobs := scheduler.Jobs()
	assert.Equal(t, "failed", jobs["fails"].Status)
	assert.Equal(t, 1, jobs["fails"].ErrorCount)
	assert.Equal(t, "upstream down", jobs["fails"].LastError)
	assert.Equal(t, "failed", jobs["panics"].Status)
	assert.Contains(t, jobs["panics"].LastError, "panic: boom")
	assert.NotContains(t, jobs, "missing")
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	scheduler := NewScheduler(nil, NewMemoryCache(), "not a schedule", testLogger())
	assert.Error(t, scheduler.Start())
}

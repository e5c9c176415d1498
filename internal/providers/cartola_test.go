package providers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const marketListPayload = `{
  "atletas": [
    {"atleta_id": 10, "apelido": "Hulk", "clube_id": 282, "posicao_id": 5, "status_id": 7,
     "preco_num": 18.5, "media_num": 7.2, "jogos_num": 20, "scout": {"G": 9, "a": 4, "FD": 12}},
    {"atleta_id": 11, "apelido_abreviado": "Everson", "clube_id": 282, "posicao_id": 1, "status_id": 7,
     "preco_num": 9.1, "media_num": 5.0, "scout": null}
  ],
  "clubes": {"282": {"id": 282, "nome": "Atlético-MG", "abreviacao": "CAM"}},
  "posicoes": {"1": {"id": 1, "nome": "Goleiro", "abreviacao": "gol"}, "5": {"id": 5, "nome": "Atacante", "abreviacao": "ata"}}
}`

const marketMapPayload = `{
  "atletas": {"b": {"atleta_id": 2, "apelido": "B"}, "a": {"atleta_id": 1, "apelido": "A"}},
  "clubes": {},
  "posicoes": {}
}`

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testConfig(url string) ClientConfig {
	return ClientConfig{
		MarketURL:      url + "/atletas/mercado",
		StatusURL:      url + "/mercado/status",
		Timeout:        time.Second,
		MaxRetries:     3,
		RetryBackoff:   time.Millisecond,
		RequestsPerSec: 1000,
	}
}

func TestParseMarket_List(t *testing.T) {
	market, err := ParseMarket([]byte(marketListPayload))
	require.NoError(t, err)

	require.Len(t, market.Athletes, 2)
	assert.Equal(t, int64(10), market.Athletes[0].AtletaID)
	assert.Equal(t, "Hulk", market.Athletes[0].Apelido)
	assert.Equal(t, 9.0, market.Athletes[0].Scout["G"])
	assert.Equal(t, "0", market.Athletes[0].Key)
	assert.Nil(t, market.Athletes[1].Scout)
	assert.Equal(t, "Atlético-MG", market.Clubs["282"].Name)
	assert.Equal(t, "Goleiro", market.Positions["1"].Name)
}

func TestParseMarket_Map(t *testing.T) {
	market, err := ParseMarket([]byte(marketMapPayload))
	require.NoError(t, err)

	require.Len(t, market.Athletes, 2)
	assert.Equal(t, "a", market.Athletes[0].Key)
	assert.Equal(t, int64(1), market.Athletes[0].AtletaID)
}

func TestParseMarket_Invalid(t *testing.T) {
	_, err := ParseMarket([]byte(`{"atletas": 3}`))
	assert.Error(t, err)

	_, err = ParseMarket([]byte(`not json`))
	assert.Error(t, err)

	market, err := ParseMarket([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, market.Athletes)
}

func TestFetchMarket_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(marketListPayload))
	}))
	defer server.Close()

	client := NewCartolaClient(testConfig(server.URL), quietLogger())
	market, err := client.FetchMarket(context.Background())
	require.NoError(t, err)

	assert.Len(t, market.Athletes, 2)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchMarket_GivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewCartolaClient(testConfig(server.URL), quietLogger())
	_, err := client.FetchMarket(context.Background())

	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchMarket_BreakerOpens(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.MaxRetries = 1
	cfg.BreakerThreshold = 3
	var transitions []gobreaker.State
	cfg.OnBreakerChange = func(to gobreaker.State) {
		transitions = append(transitions, to)
	}
	client := NewCartolaClient(cfg, quietLogger())

	for i := 0; i < 3; i++ {
		_, err := client.FetchMarket(context.Background())
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, client.BreakerState())
	assert.Equal(t, []gobreaker.State{gobreaker.StateOpen}, transitions)

	_, err := client.FetchMarket(context.Background())
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls), "open breaker short-circuits")
}

func TestFetchStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mercado/status", r.URL.Path)
		_, _ = w.Write([]byte(`{"rodada_atual": 12, "status_mercado": 1, "temporada": 2025}`))
	}))
	defer server.Close()

	client := NewCartolaClient(testConfig(server.URL), quietLogger())
	status, err := client.FetchStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, status.RodadaAtual)
	assert.Equal(t, 1, status.StatusMercado)
	assert.Equal(t, 2025, status.Temporada)
}

func TestFetchMarket_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewCartolaClient(testConfig(server.URL), quietLogger())
	_, err := client.FetchMarket(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

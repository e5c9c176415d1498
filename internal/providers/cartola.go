package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/carloswilll/dashboard-cartolaFC2025/pkg/utils"
)

const (
	DefaultMarketURL = "https://api.cartola.globo.com/atletas/mercado"
	DefaultStatusURL = "https://api.cartola.globo.com/mercado/status"
)

// ErrUpstream marks failures of the Cartola API. It wraps
// utils.ErrUpstreamDown so callers outside this package need not know the
// provider.
var ErrUpstream = fmt.Errorf("cartola api: %w", utils.ErrUpstreamDown)

type ClientConfig struct {
	MarketURL        string
	StatusURL        string
	Timeout          time.Duration
	MaxRetries       int
	RetryBackoff     time.Duration
	RequestsPerSec   int
	BreakerThreshold int
	BreakerTimeout   time.Duration

	// OnBreakerChange is called after every circuit breaker transition.
	OnBreakerChange func(to gobreaker.State)
}

// CartolaClient reads the public market endpoints.
type CartolaClient struct {
	httpClient  *http.Client
	marketURL   string
	statusURL   string
	maxRetries  int
	backoff     time.Duration
	rateLimiter *rate.Limiter
	breaker     *gobreaker.CircuitBreaker
	logger      *logrus.Logger
}

func NewCartolaClient(cfg ClientConfig, logger *logrus.Logger) *CartolaClient {
	if cfg.MarketURL == "" {
		cfg.MarketURL = DefaultMarketURL
	}
	if cfg.StatusURL == "" {
		cfg.StatusURL = DefaultStatusURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff < 0 {
		cfg.RetryBackoff = 0
	}
	if cfg.RequestsPerSec <= 0 {
		cfg.RequestsPerSec = 5
	}
	if cfg.BreakerThreshold <= 0 {
		cfg.BreakerThreshold = 3
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        "cartola-api",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= uint32(cfg.BreakerThreshold) && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"component": "circuit_breaker",
				"service":   name,
				"from":      from.String(),
				"to":        to.String(),
			}).Info("Circuit breaker state changed")
			if cfg.OnBreakerChange != nil {
				cfg.OnBreakerChange(to)
			}
		},
	}

	return &CartolaClient{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		marketURL:   cfg.MarketURL,
		statusURL:   cfg.StatusURL,
		maxRetries:  cfg.MaxRetries,
		backoff:     cfg.RetryBackoff,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 1),
		breaker:     gobreaker.NewCircuitBreaker(settings),
		logger:      logger,
	}
}

// Cartola API response structures
type Club struct {
	ID           int    `json:"id"`
	Name         string `json:"nome"`
	Abbreviation string `json:"abreviacao"`
}

type Position struct {
	ID           int    `json:"id"`
	Name         string `json:"nome"`
	Abbreviation string `json:"abreviacao"`
}

type Athlete struct {
	AtletaID         int64              `json:"atleta_id"`
	Apelido          string             `json:"apelido"`
	ApelidoAbreviado string             `json:"apelido_abreviado"`
	ClubeID          int                `json:"clube_id"`
	PosicaoID        int                `json:"posicao_id"`
	StatusID         int                `json:"status_id"`
	PrecoNum         float64            `json:"preco_num"`
	MediaNum         float64            `json:"media_num"`
	JogosNum         int                `json:"jogos_num"`
	Scout            map[string]float64 `json:"scout"`

	// Key is the position or map key the athlete was listed under.
	Key string `json:"-"`
}

type Market struct {
	Athletes  []Athlete
	Clubs     map[string]Club
	Positions map[string]Position
	FetchedAt time.Time
}

type MarketStatus struct {
	RodadaAtual    int `json:"rodada_atual"`
	StatusMercado  int `json:"status_mercado"`
	Temporada      int `json:"temporada"`
	TimesEscalados int `json:"times_escalados"`
	Fechamento     *struct {
		Timestamp int64 `json:"timestamp"`
	} `json:"fechamento,omitempty"`
}

type marketResponse struct {
	Atletas  json.RawMessage     `json:"atletas"`
	Clubes   map[string]Club     `json:"clubes"`
	Posicoes map[string]Position `json:"posicoes"`
}

// ParseMarket decodes a market payload. The athlete collection may be a
// list or an object keyed by id.
func ParseMarket(data []byte) (*Market, error) {
	var raw marketResponse
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode market: %w", err)
	}

	market := &Market{
		Clubs:     raw.Clubes,
		Positions: raw.Posicoes,
		FetchedAt: time.Now().UTC(),
	}
	if market.Clubs == nil {
		market.Clubs = map[string]Club{}
	}
	if market.Positions == nil {
		market.Positions = map[string]Position{}
	}

	trimmed := bytes.TrimSpace(raw.Atletas)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
	case trimmed[0] == '[':
		var list []Athlete
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("failed to decode athletes: %w", err)
		}
		for i := range list {
			list[i].Key = strconv.Itoa(i)
		}
		market.Athletes = list
	case trimmed[0] == '{':
		var byKey map[string]Athlete
		if err := json.Unmarshal(trimmed, &byKey); err != nil {
			return nil, fmt.Errorf("failed to decode athletes: %w", err)
		}
		keys := make([]string, 0, len(byKey))
		for k := range byKey {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			a := byKey[k]
			a.Key = k
			market.Athletes = append(market.Athletes, a)
		}
	default:
		return nil, fmt.Errorf("unexpected athletes payload")
	}

	return market, nil
}

// FetchMarket downloads and decodes the current market.
func (c *CartolaClient) FetchMarket(ctx context.Context) (*Market, error) {
	body, err := c.get(ctx, c.marketURL)
	if err != nil {
		return nil, err
	}
	market, err := ParseMarket(body)
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"athletes": len(market.Athletes),
		"clubs":    len(market.Clubs),
	}).Info("Fetched Cartola market")
	return market, nil
}

func (c *CartolaClient) FetchStatus(ctx context.Context) (*MarketStatus, error) {
	body, err := c.get(ctx, c.statusURL)
	if err != nil {
		return nil, err
	}
	var status MarketStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("failed to decode market status: %w", err)
	}
	return &status, nil
}

func (c *CartolaClient) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// get retries with a linear backoff inside one circuit breaker call, so a
// request that exhausts its retries counts as a single failure.
func (c *CartolaClient) get(ctx context.Context, url string) ([]byte, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		var lastErr error
		for attempt := 1; attempt <= c.maxRetries; attempt++ {
			if err := c.rateLimiter.Wait(ctx); err != nil {
				return nil, err
			}

			body, err := c.do(ctx, url)
			if err == nil {
				return body, nil
			}
			lastErr = err

			c.logger.WithFields(logrus.Fields{
				"url":     url,
				"attempt": attempt,
				"retries": c.maxRetries,
			}).WithError(err).Warn("Cartola request failed")

			if attempt < c.maxRetries {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(c.backoff * time.Duration(attempt)):
				}
			}
		}
		return nil, lastErr
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return result.([]byte), nil
}

func (c *CartolaClient) do(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

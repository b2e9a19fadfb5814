package classifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/LeonardoBeccarini/agrisoil/internal/model/entities"
	"github.com/LeonardoBeccarini/agrisoil/pkg/logging"
)

var (
	ErrBreakerOpen = errors.New("classifier: circuit breaker open")
	ErrBadResponse = errors.New("classifier: bad response")
)

// HTTPConfig configures the model server client.
type HTTPConfig struct {
	BaseURL         string        `koanf:"base_url" validate:"required,url"`
	Timeout         time.Duration `koanf:"timeout" validate:"gt=0"`
	MaxRetries      uint64        `koanf:"max_retries"`
	RatePerSecond   float64       `koanf:"rate_per_second" validate:"gte=0"`
	Burst           int           `koanf:"burst" validate:"gte=0"`
	BreakerFailures uint32        `koanf:"breaker_failures" validate:"gte=1"`
	BreakerOpen     time.Duration `koanf:"breaker_open"`
	BreakerInterval time.Duration `koanf:"breaker_interval"`
}

func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		BaseURL:         "http://localhost:8000/predict",
		Timeout:         3 * time.Second,
		MaxRetries:      2,
		RatePerSecond:   20,
		Burst:           5,
		BreakerFailures: 5,
		BreakerOpen:     10 * time.Second,
		BreakerInterval: time.Minute,
	}
}

// statusError is a non-2xx reply. 4xx replies are not retried and do not
// trip the breaker.
type statusError struct {
	endpoint string
	code     int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s upstream status %d", e.endpoint, e.code)
}

func (e *statusError) Unwrap() error { return ErrBadResponse }

func (e *statusError) client() bool { return e.code >= 400 && e.code < 500 }

// HTTPClient calls a model server over JSON/HTTP. It implements both
// hybrid.SoilClassifier and hybrid.CropClassifier.
type HTTPClient struct {
	cfg     HTTPConfig
	client  *http.Client
	limiter *rate.Limiter
	soil    *endpoint
	crop    *endpoint
}

type endpoint struct {
	name    string
	port    string
	url     string
	breaker *gobreaker.CircuitBreaker
}

// NewHTTPClient builds a client; hc may be nil.
func NewHTTPClient(cfg HTTPConfig, hc *http.Client) *HTTPClient {
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	return &HTTPClient{
		cfg:     cfg,
		client:  hc,
		limiter: rate.NewLimiter(limit, burst),
		soil:    newEndpoint("soil-classifier", "soil", base+"/soil", cfg),
		crop:    newEndpoint("crop-classifier", "crop", base+"/crop", cfg),
	}
}

func newEndpoint(name, port, url string, cfg HTTPConfig) *endpoint {
	fails := cfg.BreakerFailures
	if fails < 1 {
		fails = 1
	}
	return &endpoint{
		name: name,
		port: port,
		url:  url,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:     name,
			Interval: cfg.BreakerInterval,
			Timeout:  cfg.BreakerOpen,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= fails
			},
			IsSuccessful: func(err error) bool {
				var se *statusError
				return err == nil || (errors.As(err, &se) && se.client()) || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				breakerState.WithLabelValues(name).Set(float64(to))
				logging.Component("classifier").Warn().
					Str("endpoint", name).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("breaker state change")
			},
		}),
	}
}

func (c *HTTPClient) Classify(ctx context.Context, in entities.EnvironmentalInput) (entities.SoilPrediction, error) {
	var out soilPayload
	if err := c.call(ctx, c.soil, in, &out); err != nil {
		return entities.SoilPrediction{}, err
	}
	if out.Label == "" {
		return entities.SoilPrediction{}, fmt.Errorf("%s: missing soil label: %w", c.soil.name, ErrBadResponse)
	}
	return out.SoilPrediction, nil
}

func (c *HTTPClient) Recommend(ctx context.Context, in entities.EnvironmentalInput) (entities.CropPrediction, error) {
	var out cropPayload
	if err := c.call(ctx, c.crop, in, &out); err != nil {
		return entities.CropPrediction{}, err
	}
	return out.CropPrediction, nil
}

// BreakerStates reports the state of each endpoint breaker.
func (c *HTTPClient) BreakerStates() map[string]string {
	return map[string]string{
		c.soil.name: c.soil.breaker.State().String(),
		c.crop.name: c.crop.breaker.State().String(),
	}
}

func (c *HTTPClient) call(ctx context.Context, ep *endpoint, in entities.EnvironmentalInput, out any) error {
	start := time.Now()
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}

	attempt := 0
	op := func() error {
		if attempt > 0 {
			retriesTotal.WithLabelValues(ep.port).Inc()
		}
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		_, err := ep.breaker.Execute(func() (any, error) {
			return nil, c.post(ctx, ep, body, out)
		})
		switch {
		case err == nil:
			return nil
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return backoff.Permanent(fmt.Errorf("%s: %w", ep.name, ErrBreakerOpen))
		}
		var se *statusError
		if (errors.As(err, &se) && se.client()) || errors.Is(err, errDecode) || ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = time.Second
	err = backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, c.cfg.MaxRetries), ctx))

	callsTotal.WithLabelValues("http", ep.port, outcome(err)).Inc()
	callDuration.WithLabelValues("http", ep.port).Observe(time.Since(start).Seconds())
	if err != nil {
		logging.Component("classifier").Debug().
			Err(err).
			Str("endpoint", ep.name).
			Int("attempts", attempt).
			Msg("classifier call failed")
	}
	return err
}

var errDecode = fmt.Errorf("decode: %w", ErrBadResponse)

func (c *HTTPClient) post(ctx context.Context, ep *endpoint, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request error: %w", ep.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &statusError{endpoint: ep.name, code: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %w: %v", ep.name, errDecode, err)
	}
	return nil
}

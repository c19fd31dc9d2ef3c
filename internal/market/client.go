package market

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"trade-journal-go/internal/config"
)

// tickerSymbols maps journal asset names to exchange ticker symbols.
var tickerSymbols = map[string]string{
	"BTC/USD": "BTCUSDT",
	"XAU/USD": "PAXGUSDT",
	"EUR/USD": "EURUSDT",
}

// fallbackIDs maps assets to the fallback provider's coin ids.
var fallbackIDs = map[string]string{
	"BTC/USD": "bitcoin",
	"XAU/USD": "pax-gold",
}

// Client fetches display-only market data: an FX rate for the balance
// readout and spot prices for the watched assets. Rates are cached with a
// TTL and the last known value is served when the upstream is down; the
// journal itself has no dependency on this data.
type Client struct {
	fx       *resty.Client
	ticker   *resty.Client
	fallback *resty.Client
	logger   *zap.Logger
	limiter  *rate.Limiter
	cache    *cache.Cache
	ttl      time.Duration
}

// NewClient creates a new market data client.
func NewClient(cfg *config.Market, logger *zap.Logger) *Client {
	ttl := time.Duration(cfg.CacheMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Client{
		fx:       resty.New().SetBaseURL(cfg.FxURL),
		ticker:   resty.New().SetBaseURL(cfg.TickerURL),
		fallback: resty.New().SetBaseURL(cfg.FallbackURL),
		logger:   logger,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
		cache:    cache.New(ttl, 10*time.Minute),
		ttl:      ttl,
	}
}

// Rate returns the from→to FX rate. Fresh values are cached for the TTL;
// when the upstream fails, the last successfully fetched value is returned
// even if stale.
func (c *Client) Rate(ctx context.Context, from, to string) (float64, error) {
	key := from + "_" + to
	if v, ok := c.cache.Get(key); ok {
		return v.(float64), nil
	}

	type fxResponse struct {
		Rates map[string]float64 `json:"rates"`
	}
	req := c.fx.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"from": from, "to": to}).
		SetResult(&fxResponse{})

	resp, err := c.doRequest(ctx, http.MethodGet, "/latest", req)
	if err == nil {
		if r, ok := resp.Result().(*fxResponse).Rates[to]; ok {
			c.cache.Set(key, r, c.ttl)
			c.cache.Set("stale:"+key, r, cache.NoExpiration)
			return r, nil
		}
		err = fmt.Errorf("rate %s/%s missing from response", from, to)
	}

	if stale, ok := c.cache.Get("stale:" + key); ok {
		c.logger.Warn("FX fetch failed, serving stale rate",
			zap.String("pair", key), zap.Error(err))
		return stale.(float64), nil
	}
	return 0, fmt.Errorf("failed to fetch rate %s/%s: %w", from, to, err)
}

// Price returns the spot price of a watched asset, trying the exchange
// ticker first and the fallback provider second.
func (c *Client) Price(ctx context.Context, asset string) (float64, error) {
	symbol, ok := tickerSymbols[asset]
	if !ok {
		return 0, fmt.Errorf("unknown asset %q", asset)
	}

	type tickerResponse struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	req := c.ticker.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		SetResult(&tickerResponse{})
	if resp, err := c.doRequest(ctx, http.MethodGet, "/ticker/price", req); err == nil {
		if p, perr := strconv.ParseFloat(resp.Result().(*tickerResponse).Price, 64); perr == nil && p > 0 {
			return p, nil
		}
	} else {
		c.logger.Debug("Ticker price failed, trying fallback",
			zap.String("asset", asset), zap.Error(err))
	}

	id, ok := fallbackIDs[asset]
	if !ok {
		return 0, fmt.Errorf("no price source available for %q", asset)
	}
	var quote map[string]map[string]float64
	req = c.fallback.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"ids": id, "vs_currencies": "usd"}).
		SetResult(&quote)
	if _, err := c.doRequest(ctx, http.MethodGet, "/simple/price", req); err != nil {
		return 0, fmt.Errorf("failed to fetch price for %s: %w", asset, err)
	}
	if p, ok := quote[id]["usd"]; ok && p > 0 {
		return p, nil
	}
	return 0, fmt.Errorf("no usd quote for %s in fallback response", asset)
}

// doRequest executes a request with rate limiting and retry on throttling
// or server errors.
func (c *Client) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		resp, err = req.Execute(method, url)
		if err == nil && !resp.IsError() {
			return resp, nil
		}

		shouldRetry := false
		var retryAfter time.Duration

		if resp != nil && err == nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests {
				shouldRetry = true
				if seconds, aerr := strconv.Atoi(resp.Header().Get("Retry-After")); aerr == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 {
				shouldRetry = true
			}
			if !shouldRetry {
				return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
			}
		} else {
			shouldRetry = true // network or client-side error
		}

		if retryAfter == 0 {
			// Exponential backoff: 1s, 2s, 4s
			retryAfter = time.Duration(math.Pow(2, float64(i))) * time.Second
		}

		c.logger.Warn("Market request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}

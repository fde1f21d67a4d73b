package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultCLOBBase = "https://clob.polymarket.com"

	// Rate limit al 60% del límite documentado de GET /book: 1500/10s → 900/10s → 90/s
	bookRatePerSec = 90
	bookBurst      = 10

	maxRetries    = 3
	baseRetryWait = 200 * time.Millisecond
)

// Client es el HTTP client del CLOB de Polymarket con rate limiting y retries.
type Client struct {
	http        *http.Client
	clobBase    string
	bookLimiter *rate.Limiter
	retryWait   time.Duration
}

// NewClient crea un Client. clobBase vacío usa el URL de producción.
func NewClient(clobBase string, timeout time.Duration) *Client {
	if clobBase == "" {
		clobBase = defaultCLOBBase
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http:        &http.Client{Timeout: timeout},
		clobBase:    clobBase,
		bookLimiter: rate.NewLimiter(bookRatePerSec, bookBurst),
		retryWait:   baseRetryWait,
	}
}

// FetchBook obtiene el orderbook de un token.
func (c *Client) FetchBook(ctx context.Context, tokenID string) (bookResponse, error) {
	u := c.clobBase + "/book?token_id=" + url.QueryEscape(tokenID)
	var resp bookResponse
	if err := c.get(ctx, c.bookLimiter, u, &resp); err != nil {
		return bookResponse{}, fmt.Errorf("polymarket.FetchBook %s: %w", tokenID, err)
	}
	return resp, nil
}

// get hace un GET con rate limiting y retries.
func (c *Client) get(ctx context.Context, limiter *rate.Limiter, url string, out any) error {
	return c.doWithRetry(ctx, limiter, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return c.http.Do(req)
	}, out)
}

// doWithRetry ejecuta la función con backoff exponencial.
// 429 y 5xx se reintentan; el resto de 4xx falla inmediatamente.
func (c *Client) doWithRetry(ctx context.Context, limiter *rate.Limiter, fn func() (*http.Response, error), out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			if ctx.Err() != nil || attempt == maxRetries {
				return fmt.Errorf("request failed after %d attempts: %w", attempt+1, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			slog.Warn("rate limited by API", "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("server error %d after %d retries", resp.StatusCode, maxRetries)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * c.retryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}

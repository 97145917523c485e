// Package source is the HTTP adapter for the upstream system. It implements
// the catalog.SourceClient capability contract: username/password login with
// a cached token, paginated collection fetches, the variation delta filter,
// the full stock snapshot and bounded-concurrency image metadata fan-out.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/catalogsync/backend/internal/domain/catalog"
	syncdomain "github.com/catalogsync/backend/internal/domain/sync"
)

// maxResponseSize is the maximum allowed response size from the source (10MB)
const maxResponseSize = 10 * 1024 * 1024

// ErrInvalidConfig indicates an invalid adapter configuration
var ErrInvalidConfig = errors.New("source: invalid configuration")

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

// Config holds the request discipline of the adapter. One Client is built per
// job from the payload credentials, so the config carries no connection data.
type Config struct {
	// Timeout is the per-request HTTP timeout
	Timeout time.Duration
	// Retries is how many times a transient failure is retried
	Retries int
	// RetryDelay is the base delay between transient retries
	RetryDelay time.Duration
	// RateLimitRetryAfter is the wait on a 429 without a Retry-After header
	RateLimitRetryAfter time.Duration
	// PageSize is the page size for paginated collection fetches
	PageSize int
	// ImageFanout bounds the concurrent item-image requests
	ImageFanout int
	// ImageBatchDelay is the pause between image fan-out batches
	ImageBatchDelay time.Duration
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		Timeout:             30 * time.Second,
		Retries:             3,
		RetryDelay:          2 * time.Second,
		RateLimitRetryAfter: 10 * time.Second,
		PageSize:            100,
		ImageFanout:         5,
		ImageBatchDelay:     500 * time.Millisecond,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return ErrInvalidConfig
	}
	if c.Retries < 0 {
		return ErrInvalidConfig
	}
	if c.PageSize <= 0 {
		return ErrInvalidConfig
	}
	if c.ImageFanout <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// ---------------------------------------------------------------------------
// Client
// ---------------------------------------------------------------------------

// Client talks to one tenant's source system.
type Client struct {
	config     Config
	creds      syncdomain.Credentials
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a source client from a job payload's credentials.
func NewClient(creds syncdomain.Credentials, config Config, logger *zap.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if creds.BaseURL == "" {
		return nil, syncdomain.ErrMissingCredentials
	}

	return &Client{
		config:     config,
		creds:      creds,
		baseURL:    strings.TrimRight(creds.BaseURL, "/"),
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}, nil
}

var _ catalog.SourceClient = (*Client)(nil)

// ---------------------------------------------------------------------------
// Authentication
// ---------------------------------------------------------------------------

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"`
}

// Authenticate logs in with username/password and caches the bearer token.
func (c *Client) Authenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshTokenLocked(ctx)
}

// refreshTokenLocked performs the login call. Caller holds c.mu.
func (c *Client) refreshTokenLocked(ctx context.Context) error {
	body, err := json.Marshal(loginRequest{
		Username: c.creds.Username,
		Password: c.creds.Password,
	})
	if err != nil {
		return fmt.Errorf("source: failed to encode login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rest/login", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("source: failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &syncdomain.TransientError{Op: "source login", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &syncdomain.AuthError{System: "source", Err: fmt.Errorf("login rejected with HTTP %d", resp.StatusCode)}
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: login returned HTTP %d", catalog.ErrSourceUnavailable, resp.StatusCode)
	}

	var login loginResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&login); err != nil {
		return fmt.Errorf("%w: %v", catalog.ErrSourceInvalidResponse, err)
	}
	if login.Token == "" {
		return fmt.Errorf("%w: login response carried no token", catalog.ErrSourceInvalidResponse)
	}

	c.token = login.Token
	if login.ExpiresIn > 0 {
		// Renew a minute early so an in-flight page never races expiry.
		c.tokenExpiry = time.Now().Add(time.Duration(login.ExpiresIn)*time.Second - time.Minute)
	} else {
		c.tokenExpiry = time.Now().Add(30 * time.Minute)
	}
	return nil
}

// currentToken returns a valid token, logging in if needed.
func (c *Client) currentToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}
	if err := c.refreshTokenLocked(ctx); err != nil {
		return "", err
	}
	return c.token, nil
}

// invalidateToken drops the cached token after a 401 so the next attempt
// logs in again.
func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// ---------------------------------------------------------------------------
// Request Discipline
// ---------------------------------------------------------------------------

// doGet performs an authenticated GET with the adapter's retry discipline:
// transient failures (network errors, 5xx) retry up to the budget, a 429
// waits for Retry-After without spending a retry, a 401 triggers exactly
// one re-login.
func (c *Client) doGet(ctx context.Context, path string, query url.Values) ([]byte, error) {
	var lastErr error
	refreshed := false
	rateLimited := false

	for attempt := 0; attempt <= c.config.Retries; attempt++ {
		if attempt > 0 && !rateLimited {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.config.RetryDelay):
			}
		}
		rateLimited = false

		token, err := c.currentToken(ctx)
		if err != nil {
			return nil, err
		}

		requestURL := c.baseURL + path
		if len(query) > 0 {
			requestURL += "?" + query.Encode()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return nil, fmt.Errorf("source: failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			if refreshed {
				return nil, &syncdomain.AuthError{System: "source", Err: fmt.Errorf("still unauthorized after token refresh on %s", path)}
			}
			refreshed = true
			c.invalidateToken()
			// Re-login does not consume a retry.
			attempt--
			continue

		case resp.StatusCode == http.StatusTooManyRequests:
			wait := c.config.RateLimitRetryAfter
			if after := resp.Header.Get("Retry-After"); after != "" {
				if secs, err := strconv.Atoi(after); err == nil && secs > 0 {
					wait = time.Duration(secs) * time.Second
				}
			}
			c.logger.Warn("Source rate limited, backing off",
				zap.String("path", path),
				zap.Duration("wait", wait),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
			// Waiting out the rate limit consumes no retry and needs no
			// extra backoff.
			lastErr = fmt.Errorf("HTTP 429 on %s", path)
			rateLimited = true
			attempt--
			continue

		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("HTTP %d on %s", resp.StatusCode, path)
			continue

		case resp.StatusCode >= 400:
			return nil, fmt.Errorf("%w: HTTP %d on %s", catalog.ErrSourceInvalidResponse, resp.StatusCode, path)
		}

		if readErr != nil {
			lastErr = readErr
			continue
		}
		return body, nil
	}

	return nil, &syncdomain.TransientError{
		Op:  "source GET " + path,
		Err: fmt.Errorf("%w: %v", catalog.ErrSourceUnavailable, lastErr),
	}
}

// page is the source's paging envelope.
type page[T any] struct {
	Page       int  `json:"page"`
	IsLastPage bool `json:"isLastPage"`
	Entries    []T  `json:"entries"`
}

// getAllPages drives a paginated endpoint until the last page.
func getAllPages[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	var all []T
	for pageNum := 1; ; pageNum++ {
		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		q.Set("page", strconv.Itoa(pageNum))
		q.Set("itemsPerPage", strconv.Itoa(c.config.PageSize))

		body, err := c.doGet(ctx, path, q)
		if err != nil {
			return nil, err
		}

		var p page[T]
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("%w: %s page %d: %v", catalog.ErrSourceInvalidResponse, path, pageNum, err)
		}

		all = append(all, p.Entries...)
		if p.IsLastPage || len(p.Entries) == 0 {
			return all, nil
		}
	}
}

// ---------------------------------------------------------------------------
// Config Collections
// ---------------------------------------------------------------------------

// GetCategories fetches all categories.
func (c *Client) GetCategories(ctx context.Context) ([]catalog.Category, error) {
	return getAllPages[catalog.Category](ctx, c, "/rest/categories", nil)
}

// GetAttributes fetches all attributes with their values.
func (c *Client) GetAttributes(ctx context.Context) ([]catalog.Attribute, error) {
	query := url.Values{}
	query.Set("with", "values")
	return getAllPages[catalog.Attribute](ctx, c, "/rest/attributes", query)
}

// GetManufacturers fetches all manufacturers.
func (c *Client) GetManufacturers(ctx context.Context) ([]catalog.Manufacturer, error) {
	return getAllPages[catalog.Manufacturer](ctx, c, "/rest/manufacturers", nil)
}

// GetUnits fetches all units.
func (c *Client) GetUnits(ctx context.Context) ([]catalog.Unit, error) {
	return getAllPages[catalog.Unit](ctx, c, "/rest/units", nil)
}

// GetSalesPrices fetches all sales price definitions.
func (c *Client) GetSalesPrices(ctx context.Context) ([]catalog.SalesPrice, error) {
	return getAllPages[catalog.SalesPrice](ctx, c, "/rest/salesPrices", nil)
}

// ---------------------------------------------------------------------------
// Variations
// ---------------------------------------------------------------------------

// relationsParam renders the relation flags as the source's comma list.
func relationsParam(r catalog.VariationRelations) string {
	var with []string
	if r.SalesPrices {
		with = append(with, "salesPrices")
	}
	if r.AttributeValues {
		with = append(with, "attributeValues")
	}
	if r.Properties {
		with = append(with, "properties")
	}
	if r.Images {
		with = append(with, "images")
	}
	if r.Texts {
		with = append(with, "texts")
	}
	return strings.Join(with, ",")
}

// GetVariationPage fetches one page of variations.
func (c *Client) GetVariationPage(ctx context.Context, query catalog.VariationQuery) (*catalog.VariationPage, error) {
	q := url.Values{}
	if with := relationsParam(query.With); with != "" {
		q.Set("with", with)
	}
	if query.UpdatedSince != nil {
		q.Set("updatedBetween", strconv.FormatInt(query.UpdatedSince.Unix(), 10)+",")
	}

	pageNum := query.Page
	if pageNum < 1 {
		pageNum = 1
	}
	perPage := query.PerPage
	if perPage <= 0 {
		perPage = c.config.PageSize
	}
	q.Set("page", strconv.Itoa(pageNum))
	q.Set("itemsPerPage", strconv.Itoa(perPage))

	body, err := c.doGet(ctx, "/rest/variations", q)
	if err != nil {
		return nil, err
	}

	var p page[catalog.Variation]
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: variations page %d: %v", catalog.ErrSourceInvalidResponse, pageNum, err)
	}

	return &catalog.VariationPage{
		Entries:    p.Entries,
		Page:       p.Page,
		IsLastPage: p.IsLastPage,
	}, nil
}

// GetAllVariations drives GetVariationPage until the last page.
func (c *Client) GetAllVariations(ctx context.Context, query catalog.VariationQuery) ([]catalog.Variation, error) {
	var all []catalog.Variation
	query.Page = 1
	for {
		p, err := c.GetVariationPage(ctx, query)
		if err != nil {
			return nil, err
		}
		all = append(all, p.Entries...)
		if p.IsLastPage || len(p.Entries) == 0 {
			return all, nil
		}
		query.Page++
	}
}

// ---------------------------------------------------------------------------
// Images
// ---------------------------------------------------------------------------

// GetItemImages fetches image metadata for the given item ids in batches of
// ImageFanout concurrent requests, pausing ImageBatchDelay between batches so
// a large catalog does not trip the source's rate limiter.
func (c *Client) GetItemImages(ctx context.Context, itemIDs []string) (map[string][]catalog.ItemImage, error) {
	result := make(map[string][]catalog.ItemImage, len(itemIDs))
	var resultMu sync.Mutex

	for start := 0; start < len(itemIDs); start += c.config.ImageFanout {
		end := start + c.config.ImageFanout
		if end > len(itemIDs) {
			end = len(itemIDs)
		}
		batch := itemIDs[start:end]

		var wg sync.WaitGroup
		errs := make([]error, len(batch))
		for i, itemID := range batch {
			wg.Add(1)
			go func(i int, itemID string) {
				defer wg.Done()

				body, err := c.doGet(ctx, "/rest/items/"+url.PathEscape(itemID)+"/images", nil)
				if err != nil {
					errs[i] = err
					return
				}

				var images []catalog.ItemImage
				if err := json.Unmarshal(body, &images); err != nil {
					errs[i] = fmt.Errorf("%w: item %s images: %v", catalog.ErrSourceInvalidResponse, itemID, err)
					return
				}
				if len(images) == 0 {
					return
				}

				resultMu.Lock()
				result[itemID] = images
				resultMu.Unlock()
			}(i, itemID)
		}
		wg.Wait()

		for _, err := range errs {
			if err != nil {
				return nil, err
			}
		}

		if end < len(itemIDs) && c.config.ImageBatchDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.config.ImageBatchDelay):
			}
		}
	}

	return result, nil
}

// ---------------------------------------------------------------------------
// Stock
// ---------------------------------------------------------------------------

// GetStock fetches the full per-warehouse stock snapshot.
func (c *Client) GetStock(ctx context.Context) ([]catalog.WarehouseStock, error) {
	return getAllPages[catalog.WarehouseStock](ctx, c, "/rest/stock", nil)
}

// Package sink is the HTTP adapter for the storefront system. It implements
// the catalog.SinkClient capability contract: client-credentials auth with an
// expiry-cached token, per-entity bulk upserts with per-item results,
// reference-key lookups and media folder/upload handling.
package sink

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

// maxResponseSize is the maximum allowed response size from the sink (10MB)
const maxResponseSize = 10 * 1024 * 1024

// ErrInvalidConfig indicates an invalid adapter configuration
var ErrInvalidConfig = errors.New("sink: invalid configuration")

// ErrUnknownEntityKind indicates a bulk upsert for a kind the sink has no
// endpoint for
var ErrUnknownEntityKind = errors.New("sink: unknown entity kind")

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

// Config holds the request discipline of the adapter.
type Config struct {
	// Timeout is the per-request HTTP timeout
	Timeout time.Duration
	// Retries is how many times a transient failure is retried
	Retries int
	// RetryDelay is the base delay between transient retries
	RetryDelay time.Duration
	// RateLimitRetryAfter is the wait on a 429 without a Retry-After header
	RateLimitRetryAfter time.Duration
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		Timeout:             60 * time.Second,
		Retries:             3,
		RetryDelay:          2 * time.Second,
		RateLimitRetryAfter: 10 * time.Second,
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
	return nil
}

// ---------------------------------------------------------------------------
// Client
// ---------------------------------------------------------------------------

// Client talks to one tenant's sink system.
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

// NewClient creates a sink client from a job payload's credentials.
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

var _ catalog.SinkClient = (*Client)(nil)

// ---------------------------------------------------------------------------
// Authentication
// ---------------------------------------------------------------------------

type tokenRequest struct {
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Authenticate performs the client-credentials flow and caches the token.
func (c *Client) Authenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshTokenLocked(ctx)
}

// refreshTokenLocked performs the token call. Caller holds c.mu.
func (c *Client) refreshTokenLocked(ctx context.Context) error {
	body, err := json.Marshal(tokenRequest{
		GrantType:    "client_credentials",
		ClientID:     c.creds.ClientID,
		ClientSecret: c.creds.ClientSecret,
	})
	if err != nil {
		return fmt.Errorf("sink: failed to encode token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/oauth/token", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("sink: failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &syncdomain.TransientError{Op: "sink token", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &syncdomain.AuthError{System: "sink", Err: fmt.Errorf("token request rejected with HTTP %d", resp.StatusCode)}
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: token request returned HTTP %d", catalog.ErrSinkUnavailable, resp.StatusCode)
	}

	var token tokenResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&token); err != nil {
		return fmt.Errorf("%w: %v", catalog.ErrSinkInvalidResponse, err)
	}
	if token.AccessToken == "" {
		return fmt.Errorf("%w: token response carried no access token", catalog.ErrSinkInvalidResponse)
	}

	c.token = token.AccessToken
	if token.ExpiresIn > 0 {
		// Renew a minute early so a long bulk write never races expiry.
		c.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn)*time.Second - time.Minute)
	} else {
		c.tokenExpiry = time.Now().Add(10 * time.Minute)
	}
	return nil
}

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

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// ---------------------------------------------------------------------------
// Request Discipline
// ---------------------------------------------------------------------------

// statusError carries a non-retryable HTTP status out of doRequest so callers
// can map 404s to domain lookups.
type statusError struct {
	status int
	path   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("sink: HTTP %d on %s", e.status, e.path)
}

// doRequest performs an authenticated request with the adapter's retry
// discipline: transient failures (network errors, 5xx) retry up to the
// budget, a 429 waits for Retry-After without spending a retry, a 401
// triggers exactly one token refresh. Other 4xx statuses return a
// statusError without retrying.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	var encoded []byte
	if payload != nil {
		var err error
		encoded, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("sink: failed to encode request body: %w", err)
		}
	}

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

		var body io.Reader
		if encoded != nil {
			body = bytes.NewReader(encoded)
		}
		req, err := http.NewRequestWithContext(ctx, method, requestURL, body)
		if err != nil {
			return nil, fmt.Errorf("sink: failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		if encoded != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			if refreshed {
				return nil, &syncdomain.AuthError{System: "sink", Err: fmt.Errorf("still unauthorized after token refresh on %s", path)}
			}
			refreshed = true
			c.invalidateToken()
			attempt--
			continue

		case resp.StatusCode == http.StatusTooManyRequests:
			wait := c.config.RateLimitRetryAfter
			if after := resp.Header.Get("Retry-After"); after != "" {
				if secs, err := strconv.Atoi(after); err == nil && secs > 0 {
					wait = time.Duration(secs) * time.Second
				}
			}
			c.logger.Warn("Sink rate limited, backing off",
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
			return nil, &statusError{status: resp.StatusCode, path: path}
		}

		if readErr != nil {
			lastErr = readErr
			continue
		}
		return respBody, nil
	}

	return nil, &syncdomain.TransientError{
		Op:  "sink " + method + " " + path,
		Err: fmt.Errorf("%w: %v", catalog.ErrSinkUnavailable, lastErr),
	}
}

// ---------------------------------------------------------------------------
// Bulk Upserts
// ---------------------------------------------------------------------------

// bulkEndpoints maps entity kinds to the sink's bulk upsert endpoints.
var bulkEndpoints = map[catalog.EntityKind]string{
	catalog.EntityKindCategory:       "/api/bulk/category",
	catalog.EntityKindPropertyGroup:  "/api/bulk/property-group",
	catalog.EntityKindPropertyOption: "/api/bulk/property-option",
	catalog.EntityKindManufacturer:   "/api/bulk/manufacturer",
	catalog.EntityKindUnit:           "/api/bulk/unit",
	catalog.EntityKindProduct:        "/api/bulk/product",
}

type bulkRequest struct {
	Items []json.RawMessage `json:"items"`
}

type bulkItemResult struct {
	ReferenceKey string `json:"referenceKey"`
	ID           string `json:"id"`
	Action       string `json:"action"`
	Success      bool   `json:"success"`
	Error        string `json:"error,omitempty"`
}

type bulkResponse struct {
	Results []bulkItemResult `json:"results"`
}

// BulkUpsert writes one batch of one entity kind. Results come back in input
// order; an item the sink's response does not mention is reported as failed.
func (c *Client) BulkUpsert(ctx context.Context, kind catalog.EntityKind, items []catalog.BulkPayload) ([]catalog.BulkResult, error) {
	endpoint, ok := bulkEndpoints[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntityKind, kind)
	}
	if len(items) == 0 {
		return nil, nil
	}

	req := bulkRequest{Items: make([]json.RawMessage, 0, len(items))}
	references := make([]string, 0, len(items))
	for _, item := range items {
		encoded, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("sink: failed to encode %s payload %s: %w", kind, item.Reference(), err)
		}
		req.Items = append(req.Items, encoded)
		references = append(references, item.Reference())
	}

	body, err := c.doRequest(ctx, http.MethodPost, endpoint, nil, req)
	if err != nil {
		return nil, err
	}

	var resp bulkResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: bulk %s: %v", catalog.ErrSinkInvalidResponse, kind, err)
	}

	return orderResults(references, resp.Results), nil
}

// UpdateStock writes a batch of stock values addressed by sink id.
func (c *Client) UpdateStock(ctx context.Context, updates []catalog.StockUpdate) ([]catalog.BulkResult, error) {
	if len(updates) == 0 {
		return nil, nil
	}

	references := make([]string, 0, len(updates))
	for _, u := range updates {
		references = append(references, u.SinkProductID)
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/api/bulk/stock", nil, map[string]any{"items": updates})
	if err != nil {
		return nil, err
	}

	var resp bulkResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: bulk stock: %v", catalog.ErrSinkInvalidResponse, err)
	}

	return orderResults(references, resp.Results), nil
}

// orderResults reorders the sink's keyed results into input order, filling
// anything the sink left out as a failure.
func orderResults(references []string, results []bulkItemResult) []catalog.BulkResult {
	byReference := make(map[string]bulkItemResult, len(results))
	for _, r := range results {
		byReference[r.ReferenceKey] = r
	}

	ordered := make([]catalog.BulkResult, 0, len(references))
	for _, ref := range references {
		r, ok := byReference[ref]
		if !ok {
			ordered = append(ordered, catalog.BulkResult{
				ReferenceKey: ref,
				Success:      false,
				ErrorMessage: "missing from bulk response",
			})
			continue
		}
		action := catalog.BulkActionUpdate
		if r.Action == string(catalog.BulkActionCreate) {
			action = catalog.BulkActionCreate
		}
		ordered = append(ordered, catalog.BulkResult{
			ReferenceKey: r.ReferenceKey,
			SinkID:       r.ID,
			Action:       action,
			Success:      r.Success,
			ErrorMessage: r.Error,
		})
	}
	return ordered
}

// ---------------------------------------------------------------------------
// Lookups
// ---------------------------------------------------------------------------

// lookupEndpoints maps entity kinds to the sink's reference lookup endpoints.
var lookupEndpoints = map[catalog.EntityKind]string{
	catalog.EntityKindCategory:       "/api/category",
	catalog.EntityKindPropertyGroup:  "/api/property-group",
	catalog.EntityKindPropertyOption: "/api/property-option",
	catalog.EntityKindManufacturer:   "/api/manufacturer",
	catalog.EntityKindUnit:           "/api/unit",
	catalog.EntityKindProduct:        "/api/product",
}

// GetIDByReference returns the sink id for a reference key.
func (c *Client) GetIDByReference(ctx context.Context, kind catalog.EntityKind, referenceKey string) (string, error) {
	endpoint, ok := lookupEndpoints[kind]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownEntityKind, kind)
	}

	body, err := c.doRequest(ctx, http.MethodGet, endpoint+"/by-reference/"+url.PathEscape(referenceKey), nil, nil)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.status == http.StatusNotFound {
			return "", catalog.ErrEntityNotFound
		}
		return "", err
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: by-reference %s: %v", catalog.ErrSinkInvalidResponse, kind, err)
	}
	if resp.ID == "" {
		return "", catalog.ErrEntityNotFound
	}
	return resp.ID, nil
}

// ExistsByReference reports whether an entity with the reference key exists.
func (c *Client) ExistsByReference(ctx context.Context, kind catalog.EntityKind, referenceKey string) (bool, error) {
	_, err := c.GetIDByReference(ctx, kind, referenceKey)
	if errors.Is(err, catalog.ErrEntityNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ---------------------------------------------------------------------------
// Media
// ---------------------------------------------------------------------------

// GetOrCreateMediaFolder resolves a media folder by name, creating it on
// first use.
func (c *Client) GetOrCreateMediaFolder(ctx context.Context, name string) (string, error) {
	query := url.Values{}
	query.Set("name", name)

	body, err := c.doRequest(ctx, http.MethodGet, "/api/media-folder", query, nil)
	if err == nil {
		var resp struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("%w: media folder lookup: %v", catalog.ErrSinkInvalidResponse, err)
		}
		if resp.ID != "" {
			return resp.ID, nil
		}
	} else {
		var se *statusError
		if !errors.As(err, &se) || se.status != http.StatusNotFound {
			return "", err
		}
	}

	body, err = c.doRequest(ctx, http.MethodPost, "/api/media-folder", nil, map[string]string{"name": name})
	if err != nil {
		return "", err
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return "", fmt.Errorf("%w: media folder create: %v", catalog.ErrSinkInvalidResponse, err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("%w: media folder create returned no id", catalog.ErrSinkInvalidResponse)
	}
	return created.ID, nil
}

// UploadMediaFromURL makes the sink download and register a file. A filename
// conflict means the file is already there; the existing media id is looked
// up and reused instead of failing the sync.
func (c *Client) UploadMediaFromURL(ctx context.Context, upload catalog.MediaUpload) (string, error) {
	payload := map[string]string{
		"url":      upload.URL,
		"fileName": upload.FileName,
		"folderId": upload.FolderID,
	}
	if upload.MediaID != "" {
		payload["id"] = upload.MediaID
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/api/media/upload", nil, payload)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.status == http.StatusConflict {
			return c.findMediaByFileName(ctx, upload.FolderID, upload.FileName)
		}
		return "", err
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: media upload: %v", catalog.ErrSinkInvalidResponse, err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("%w: media upload returned no id", catalog.ErrSinkInvalidResponse)
	}
	return resp.ID, nil
}

// findMediaByFileName resolves the existing media id after a duplicate
// filename conflict.
func (c *Client) findMediaByFileName(ctx context.Context, folderID, fileName string) (string, error) {
	query := url.Values{}
	query.Set("folderId", folderID)
	query.Set("fileName", fileName)

	body, err := c.doRequest(ctx, http.MethodGet, "/api/media", query, nil)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.status == http.StatusNotFound {
			return "", catalog.ErrEntityNotFound
		}
		return "", err
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: media lookup: %v", catalog.ErrSinkInvalidResponse, err)
	}
	if resp.ID == "" {
		return "", catalog.ErrEntityNotFound
	}
	return resp.ID, nil
}

// ListProductMedia returns the media associations attached to a product.
func (c *Client) ListProductMedia(ctx context.Context, sinkProductID string) ([]catalog.MediaAssociationPayload, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/api/product/"+url.PathEscape(sinkProductID)+"/media", nil, nil)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.status == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}

	var associations []catalog.MediaAssociationPayload
	if err := json.Unmarshal(body, &associations); err != nil {
		return nil, fmt.Errorf("%w: product media list: %v", catalog.ErrSinkInvalidResponse, err)
	}
	return associations, nil
}

// RemoveProductMedia detaches the given associations from a product.
func (c *Client) RemoveProductMedia(ctx context.Context, sinkProductID string, associationIDs []string) error {
	if len(associationIDs) == 0 {
		return nil
	}
	_, err := c.doRequest(ctx, http.MethodPost, "/api/product/"+url.PathEscape(sinkProductID)+"/media/delete", nil, map[string][]string{"ids": associationIDs})
	return err
}

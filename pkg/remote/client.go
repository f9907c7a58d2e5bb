package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"ehgrab/pkg/config"
	"ehgrab/pkg/errors"
	"ehgrab/pkg/logger"
	"ehgrab/pkg/retry"
)

// Image page markup changes rarely; these cover the current layout.
var (
	pageLinkRe = regexp.MustCompile(`/s/([0-9a-f]{10})/(\d+)-(\d+)`)
	imageSrcRe = regexp.MustCompile(`<img[^>]+id="img"[^>]+src="([^"]+)"`)
)

// Client represents a gallery service API client
type Client struct {
	httpClient   *http.Client
	headers      map[string]string
	baseURL      string
	maxRetries    int
	retrySchedule *retry.Schedule
	logger        logger.Logger
}

// NewClient creates a new gallery service client with default settings
func NewClient(timeout time.Duration, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		headers: map[string]string{
			"User-Agent":      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
			"Cache-Control":   "no-cache",
			"Pragma":          "no-cache",
		},
		baseURL:       DefaultBaseURL,
		maxRetries:    3,
		retrySchedule: retry.DefaultSchedule(),
		logger:        log,
	}
}

// NewClientWithConfig creates a client configured from application settings:
// base URL, timeout, user agent, credentials, and retry budget.
func NewClientWithConfig(cfg *config.Config, log logger.Logger) *Client {
	c := NewClient(cfg.Remote.Timeout, log)

	if cfg.Remote.BaseURL != "" {
		c.baseURL = cfg.Remote.BaseURL
	}
	if cfg.Remote.UserAgent != "" {
		c.headers["User-Agent"] = cfg.Remote.UserAgent
	}
	if cfg.Remote.MemberID != "" && cfg.Remote.PassHash != "" {
		c.SetCredentials(cfg.Remote.MemberID, cfg.Remote.PassHash)
	}
	if cfg.RateLimit.MaxRetries > 0 {
		c.maxRetries = cfg.RateLimit.MaxRetries
	}
	if cfg.RateLimit.RetryDelay > 0 {
		// The configured delay seeds the ordinary curves; the rate-limit
		// curve keeps its long defaults so a 429 still backs off hard.
		curve := &retry.ExponentialBackoff{
			BaseDelay:    cfg.RateLimit.RetryDelay,
			MaxDelay:     60 * time.Second,
			Multiplier:   2.0,
			JitterFactor: 0.1,
		}
		c.retrySchedule.Network = curve
		c.retrySchedule.Fallback = curve
	}

	return c
}

// BaseURL returns the base URL the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetBaseURL overrides the service base URL (useful for mirrors and tests).
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// SetCredentials attaches the member session cookies to every request.
func (c *Client) SetCredentials(memberID, passHash string) {
	c.headers["Cookie"] = fmt.Sprintf("ipb_member_id=%s; ipb_pass_hash=%s", memberID, passHash)
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetHeaders sets multiple headers at once
func (c *Client) SetHeaders(headers map[string]string) {
	for key, value := range headers {
		c.headers[key] = value
	}
}

// doRequest performs an HTTP request with the configured headers
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, &errors.Error{
			Type:    errors.ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
			Code:    0,
		}
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// Get performs a GET request to the specified URL
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
			Code:    0,
		}
	}

	return c.doRequest(req)
}

// GetJSON performs a GET request and decodes the JSON response
func (c *Client) GetJSON(ctx context.Context, url string, target interface{}) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}

	return c.decodeJSON(resp, url, target)
}

// postJSON performs a POST request with a JSON body and decodes the response
func (c *Client) postJSON(ctx context.Context, url string, payload, target interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &errors.Error{
			Type:    errors.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to encode request: %v", err),
			Code:    0,
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &errors.Error{
			Type:    errors.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
			Code:    0,
		}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.doRequest(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}

	return c.decodeJSON(resp, url, target)
}

func (c *Client) decodeJSON(resp *http.Response, url string, target interface{}) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &errors.Error{
			Type:    errors.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
		}
	}

	if err := json.Unmarshal(body, target); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}

		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          url,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return &errors.Error{
			Type:    errors.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse JSON: %v", err),
			Code:    resp.StatusCode,
		}
	}

	return nil
}

// checkResponseStatus checks the HTTP response status and returns appropriate errors
func (c *Client) checkResponseStatus(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		c.logger.WarnWithFields("authentication error", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return &errors.Error{
			Type:    errors.ErrorTypeAuth,
			Message: "authentication required",
			Code:    resp.StatusCode,
		}
	case http.StatusNotFound:
		c.logger.WarnWithFields("resource not found", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return &errors.Error{
			Type:    errors.ErrorTypeNotFound,
			Message: "resource not found",
			Code:    resp.StatusCode,
		}
	case http.StatusTooManyRequests:
		c.logger.WarnWithFields("rate limit exceeded", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return &errors.Error{
			Type:    errors.ErrorTypeRateLimit,
			Message: "rate limit exceeded",
			Code:    resp.StatusCode,
		}
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		c.logger.ErrorWithFields("server error", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return &errors.Error{
			Type:    errors.ErrorTypeServerError,
			Message: "server error",
			Code:    resp.StatusCode,
		}
	default:
		if resp.StatusCode >= 400 {
			c.logger.ErrorWithFields("unexpected API error", map[string]interface{}{
				"status": resp.StatusCode,
				"url":    resp.Request.URL.String(),
			})
			return &errors.Error{
				Type:    errors.ErrorTypeUnknown,
				Message: fmt.Sprintf("unexpected status code: %d", resp.StatusCode),
				Code:    resp.StatusCode,
			}
		}
		return nil
	}
}

// FetchGalleryMetadata fetches the metadata record for a single gallery
func (c *Client) FetchGalleryMetadata(ctx context.Context, gid int64, token string) (*GalleryMetadata, error) {
	records, err := c.FetchGalleryMetadataBatch(ctx, []GalleryRef{{GID: gid, Token: token}})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeNotFound,
			Message: fmt.Sprintf("gallery %d not found", gid),
			Code:    http.StatusNotFound,
		}
	}
	return &records[0], nil
}

// FetchGalleryMetadataBatch fetches metadata records for up to MaxMetadataBatch
// galleries in a single API call
func (c *Client) FetchGalleryMetadataBatch(ctx context.Context, refs []GalleryRef) ([]GalleryMetadata, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	if len(refs) > MaxMetadataBatch {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeUnknown,
			Message: fmt.Sprintf("metadata batch too large: %d galleries (limit %d)", len(refs), MaxMetadataBatch),
			Code:    0,
		}
	}

	gidList := make([][]interface{}, len(refs))
	for i, ref := range refs {
		gidList[i] = []interface{}{ref.GID, ref.Token}
	}

	c.logger.DebugWithFields("fetching gallery metadata", map[string]interface{}{
		"galleries": len(refs),
	})

	var response metadataResponse
	err := c.postJSON(ctx, c.baseURL+APIEndpoint, &metadataRequest{
		Method:    "gdata",
		GIDList:   gidList,
		Namespace: 1,
	}, &response)
	if err != nil {
		c.logger.ErrorWithFields("failed to fetch gallery metadata", map[string]interface{}{
			"galleries": len(refs),
			"error":     err.Error(),
		})
		return nil, err
	}

	// Per-gallery failures come back inline rather than as HTTP errors.
	for i := range response.GMetadata {
		if response.GMetadata[i].Error != "" {
			return nil, &errors.Error{
				Type:    errors.ErrorTypeNotFound,
				Message: response.GMetadata[i].Error,
				Code:    http.StatusNotFound,
			}
		}
	}

	c.logger.DebugWithFields("successfully fetched gallery metadata", map[string]interface{}{
		"galleries": len(response.GMetadata),
	})

	return response.GMetadata, nil
}

// FetchPageKeys fetches one thumbnail page of a gallery listing and returns
// the image keys found on it, indexed by page number
func (c *Client) FetchPageKeys(ctx context.Context, gid int64, token string, listPage int) (map[int]string, error) {
	url := GalleryPageURL(c.baseURL, gid, token, listPage)

	resp, err := c.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read gallery page: %v", err),
			Code:    resp.StatusCode,
		}
	}

	keys := make(map[int]string)
	for _, m := range pageLinkRe.FindAllStringSubmatch(string(body), -1) {
		var page int
		if _, err := fmt.Sscanf(m[3], "%d", &page); err != nil {
			continue
		}
		keys[page] = m[1]
	}

	if len(keys) == 0 {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeParsing,
			Message: "no image pages found in gallery listing",
			Code:    resp.StatusCode,
		}
	}

	return keys, nil
}

// FetchImageURL fetches an image page and returns the full-size image URL
func (c *Client) FetchImageURL(ctx context.Context, pageURL string) (string, error) {
	resp, err := c.Get(ctx, pageURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return "", err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &errors.Error{
			Type:    errors.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read image page: %v", err),
			Code:    resp.StatusCode,
		}
	}

	m := imageSrcRe.FindStringSubmatch(string(body))
	if m == nil {
		return "", &errors.Error{
			Type:    errors.ErrorTypeParsing,
			Message: "no image found on page",
			Code:    resp.StatusCode,
		}
	}

	return m[1], nil
}

// DownloadImage downloads an image from the given URL with retries
func (c *Client) DownloadImage(ctx context.Context, imageURL string) ([]byte, error) {
	c.logger.DebugWithFields("downloading image", map[string]interface{}{
		"url": imageURL,
	})

	var data []byte
	err := retry.Do(func() error {
		resp, err := c.Get(ctx, imageURL)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if err := c.checkResponseStatus(resp); err != nil {
			return err
		}

		data, err = io.ReadAll(resp.Body)
		if err != nil {
			return &errors.Error{
				Type:    errors.ErrorTypeNetwork,
				Message: fmt.Sprintf("failed to download image: %v", err),
				Code:    0,
			}
		}
		return nil
	}, &retry.Config{
		MaxAttempts: c.maxRetries,
		Schedule:    c.retrySchedule,
		RetryIf:     retry.DefaultRetryIf,
		Context:     ctx,
		Logger:      c.logger,
	})
	if err != nil {
		c.logger.ErrorWithFields("failed to download image", map[string]interface{}{
			"url":   imageURL,
			"error": err.Error(),
		})
		return nil, err
	}

	c.logger.DebugWithFields("successfully downloaded image", map[string]interface{}{
		"url":  imageURL,
		"size": len(data),
	})

	return data, nil
}

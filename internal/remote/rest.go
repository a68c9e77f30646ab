package remote

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
	"sync"
	"time"

	"github.com/margin-app/margin/internal/models"
)

const (
	restPath = "/rest/v1/"
	authPath = "/auth/v1/"
)

// Client talks to the backend's PostgREST-style row API. It implements both
// Store and Auth. Safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client

	mu          sync.RWMutex
	accessToken string
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// SetSession installs an access token obtained elsewhere, e.g. from a saved
// session. An empty token clears the session.
func (c *Client) SetSession(accessToken string) {
	c.mu.Lock()
	c.accessToken = accessToken
	c.mu.Unlock()
}

func (c *Client) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// apiErrorBody is the backend's JSON error envelope.
type apiErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var body apiErrorBody
		_ = json.Unmarshal(data, &body)
		if body.Code == "23505" {
			return ErrUniqueViolation
		}
		return &APIError{StatusCode: resp.StatusCode, Code: body.Code, Message: body.Message}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) SelectSince(ctx context.Context, table, userID string, since *time.Time, limit int) ([]Row, error) {
	q := url.Values{}
	q.Set("user_id", "eq."+userID)
	if since != nil {
		q.Set("updated_at", "gt."+models.FormatTime(*since))
	}
	q.Set("order", "updated_at.asc")
	q.Set("limit", strconv.Itoa(limit))

	req, err := c.newRequest(ctx, http.MethodGet, restPath+table, q, nil)
	if err != nil {
		return nil, err
	}

	var rows []Row
	if err := c.do(req, &rows); err != nil {
		return nil, fmt.Errorf("select from %s: %w", table, err)
	}
	return rows, nil
}

func (c *Client) SelectAll(ctx context.Context, table, userID, orderBy string, limit int) ([]Row, error) {
	q := url.Values{}
	q.Set("user_id", "eq."+userID)
	q.Set("order", orderBy+".asc")
	q.Set("limit", strconv.Itoa(limit))

	req, err := c.newRequest(ctx, http.MethodGet, restPath+table, q, nil)
	if err != nil {
		return nil, err
	}

	var rows []Row
	if err := c.do(req, &rows); err != nil {
		return nil, fmt.Errorf("select from %s: %w", table, err)
	}
	return rows, nil
}

func (c *Client) Upsert(ctx context.Context, table string, row Row) error {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to encode row: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, restPath+table, nil, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Prefer", "resolution=merge-duplicates")

	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("upsert into %s: %w", table, err)
	}
	return nil
}

func (c *Client) Insert(ctx context.Context, table string, row Row) error {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to encode row: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, restPath+table, nil, bytes.NewReader(data))
	if err != nil {
		return err
	}

	if err := c.do(req, nil); err != nil {
		if errors.Is(err, ErrUniqueViolation) {
			return err
		}
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

func (c *Client) GetUpdatedAt(ctx context.Context, table, userID, id string) (*time.Time, error) {
	q := url.Values{}
	q.Set("select", "updated_at")
	q.Set("user_id", "eq."+userID)
	q.Set("id", "eq."+id)
	q.Set("limit", "1")

	req, err := c.newRequest(ctx, http.MethodGet, restPath+table, q, nil)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		UpdatedAt string `json:"updated_at"`
	}
	if err := c.do(req, &rows); err != nil {
		return nil, fmt.Errorf("get updated_at from %s: %w", table, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	t, err := models.ParseTime(rows[0].UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("bad updated_at for %s/%s: %w", table, id, err)
	}
	return &t, nil
}

// SelectCatalogue fetches the enabled fragments catalogue. The catalogue is
// global, not per-user, so it bypasses the user_id filter.
func (c *Client) SelectCatalogue(ctx context.Context) ([]Row, error) {
	q := url.Values{}
	q.Set("enabled", "eq.true")
	q.Set("order", "id.asc")

	req, err := c.newRequest(ctx, http.MethodGet, restPath+"fragments_catalog", q, nil)
	if err != nil {
		return nil, err
	}

	var rows []Row
	if err := c.do(req, &rows); err != nil {
		return nil, fmt.Errorf("select catalogue: %w", err)
	}
	return rows, nil
}

// String pulls a string field out of a row, empty when absent or not a string.
func (r Row) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Time parses an RFC3339 timestamp field, nil when absent or malformed.
func (r Row) Time(key string) *time.Time {
	s, ok := r[key].(string)
	if !ok || s == "" {
		return nil
	}
	t, err := models.ParseTime(s)
	if err != nil {
		return nil
	}
	return &t
}

// Bool reads a boolean field, false when absent.
func (r Row) Bool(key string) bool {
	b, _ := r[key].(bool)
	return b
}

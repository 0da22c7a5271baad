package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RESTConfig holds configuration for a PostgREST-compatible backend such as
// a hosted Supabase project.
type RESTConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// RESTClient implements Client over the PostgREST HTTP dialect.
type RESTClient struct {
	config RESTConfig
	client *http.Client
}

// NewRESTClient creates a Client that talks to config.URL.
func NewRESTClient(config RESTConfig) *RESTClient {
	return &RESTClient{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

// Select runs q and decodes the JSON array into dest.
func (c *RESTClient) Select(ctx context.Context, q Query, dest interface{}) error {
	if err := q.Validate(); err != nil {
		return err
	}
	body, err := c.do(ctx, http.MethodGet, q.Table, selectParams(q), nil, "")
	if err != nil {
		return fmt.Errorf("failed to select from %s: %w", q.Table, err)
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("failed to decode %s rows: %w", q.Table, err)
	}
	return nil
}

// Single runs q and decodes exactly one row into dest.
func (c *RESTClient) Single(ctx context.Context, q Query, dest interface{}) error {
	if err := q.Validate(); err != nil {
		return err
	}
	params := selectParams(q)
	params.Set("limit", "2")

	body, err := c.do(ctx, http.MethodGet, q.Table, params, nil, "")
	if err != nil {
		return fmt.Errorf("failed to select from %s: %w", q.Table, err)
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return fmt.Errorf("failed to decode %s rows: %w", q.Table, err)
	}
	switch len(rows) {
	case 0:
		return ErrNoRows
	case 1:
		if err := json.Unmarshal(rows[0], dest); err != nil {
			return fmt.Errorf("failed to decode %s row: %w", q.Table, err)
		}
		return nil
	default:
		return ErrMultipleRows
	}
}

// Insert posts rows as a JSON array.
func (c *RESTClient) Insert(ctx context.Context, table string, rows ...Values) error {
	if len(rows) == 0 {
		return nil
	}
	if err := checkName(table); err != nil {
		return err
	}
	for _, row := range rows {
		if err := checkValues(row); err != nil {
			return err
		}
	}
	payload, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to marshal %s rows: %w", table, err)
	}
	if _, err := c.do(ctx, http.MethodPost, table, nil, payload, "return=minimal"); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return nil
}

// Update patches every row matching filters and reports how many changed.
func (c *RESTClient) Update(ctx context.Context, table string, values Values, filters ...Filter) (int64, error) {
	if len(filters) == 0 {
		return 0, ErrMissingFilter
	}
	if err := checkName(table); err != nil {
		return 0, err
	}
	if err := checkValues(values); err != nil {
		return 0, err
	}
	if err := checkFilters(filters); err != nil {
		return 0, err
	}
	payload, err := json.Marshal(values)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal %s values: %w", table, err)
	}
	body, err := c.do(ctx, http.MethodPatch, table, filterParams(filters), payload, "return=representation")
	if err != nil {
		return 0, fmt.Errorf("failed to update %s: %w", table, err)
	}
	return countRows(body)
}

// Delete removes every row matching filters and reports how many went.
func (c *RESTClient) Delete(ctx context.Context, table string, filters ...Filter) (int64, error) {
	if len(filters) == 0 {
		return 0, ErrMissingFilter
	}
	if err := checkName(table); err != nil {
		return 0, err
	}
	if err := checkFilters(filters); err != nil {
		return 0, err
	}
	body, err := c.do(ctx, http.MethodDelete, table, filterParams(filters), nil, "return=representation")
	if err != nil {
		return 0, fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return countRows(body)
}

// Ping checks that the REST root answers below 500.
func (c *RESTClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, strings.TrimRight(c.config.URL, "/")+"/", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return &Error{Status: resp.StatusCode}
	}
	return nil
}

func (c *RESTClient) do(ctx context.Context, method, table string, params url.Values, payload []byte, prefer string) ([]byte, error) {
	endpoint := strings.TrimRight(c.config.URL, "/") + "/" + table
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		backendErr := &Error{Status: resp.StatusCode}
		if len(body) > 0 {
			_ = json.Unmarshal(body, backendErr)
		}
		return nil, backendErr
	}
	return body, nil
}

func (c *RESTClient) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "lab-manager/1.0")
	if c.config.APIKey != "" {
		req.Header.Set("apikey", c.config.APIKey)
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}
}

func selectParams(q Query) url.Values {
	params := filterParams(q.Filters)
	if len(q.Columns) > 0 {
		params.Set("select", strings.Join(q.Columns, ","))
	} else {
		params.Set("select", "*")
	}
	if q.Order != nil {
		direction := "desc"
		if q.Order.Ascending {
			direction = "asc"
		}
		params.Set("order", q.Order.Column+"."+direction)
	}
	return params
}

func filterParams(filters []Filter) url.Values {
	params := url.Values{}
	for _, f := range filters {
		params.Add(f.Column, "eq."+fmt.Sprint(f.Value))
	}
	return params
}

func countRows(body []byte) (int64, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return 0, nil
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return 0, fmt.Errorf("failed to decode affected rows: %w", err)
	}
	return int64(len(rows)), nil
}

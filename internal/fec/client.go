package fec

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
	"time"
)

const (
	defaultBaseURL     = "https://api.open.fec.gov/v1"
	defaultPerPage     = 100
	defaultHTTPTimeout = 30 * time.Second
	scheduleAPath      = "schedules/schedule_a/"
)

// ErrQuota reports that the API rejected a call because the key's rate limit
// is exhausted.
var ErrQuota = errors.New("fec: rate limit exceeded")

// Query selects the contributions to download.
type Query struct {
	APIKey        string
	Cycle         string
	CommitteeType string
	PerPage       int
}

// Cursor is the keyset position after a page. The zero Cursor is the first page.
type Cursor struct {
	LastIndex string
	LastDate  string
}

// IsZero reports whether c points at the first page.
func (c Cursor) IsZero() bool {
	return c.LastIndex == "" && c.LastDate == ""
}

// Contribution is one individual receipt reduced to the cleaned columns.
type Contribution struct {
	Occupation string
	Employer   string
	City       string
	State      string
	Zip        string
	Party      string
}

// Page is one schedule_a response.
type Page struct {
	Contributions []Contribution
	Next          Cursor
	Pages         int
	Count         int
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithBaseURL points the client at a different API root.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		c.base = strings.TrimSpace(base)
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// Client wraps the OpenFEC schedule_a endpoint.
type Client struct {
	query   Query
	base    string
	baseURL *url.URL
	http    *http.Client
}

// New creates a Client for query.
func New(query Query, opts ...Option) (*Client, error) {
	c := &Client{
		query: query,
		base:  defaultBaseURL,
		http:  &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if strings.TrimSpace(c.query.APIKey) == "" {
		return nil, errors.New("fec: api key is required")
	}
	if c.query.PerPage <= 0 {
		c.query.PerPage = defaultPerPage
	}
	if c.base == "" {
		c.base = defaultBaseURL
	}
	baseURL, err := url.Parse(c.base)
	if err != nil {
		return nil, fmt.Errorf("fec: parse base url: %w", err)
	}
	c.baseURL = baseURL
	return c, nil
}

// Query returns the query the client was built for.
func (c *Client) Query() Query {
	return c.query
}

// Page fetches the page that follows cursor.
func (c *Client) Page(ctx context.Context, cursor Cursor) (*Page, error) {
	if c == nil {
		return nil, errors.New("fec: client is nil")
	}
	payload, err := c.get(ctx, cursor)
	if err != nil {
		return nil, err
	}
	page := &Page{
		Contributions: make([]Contribution, 0, len(payload.Results)),
		Next: Cursor{
			LastIndex: string(payload.Pagination.LastIndexes.LastIndex),
			LastDate:  string(payload.Pagination.LastIndexes.LastDate),
		},
		Pages: payload.Pagination.Pages,
		Count: payload.Pagination.Count,
	}
	for _, item := range payload.Results {
		page.Contributions = append(page.Contributions, Contribution{
			Occupation: string(item.Occupation),
			Employer:   string(item.Employer),
			City:       string(item.City),
			State:      string(item.State),
			Zip:        NormalizeZip(string(item.Zip)),
			Party:      string(item.Committee.Party),
		})
	}
	return page, nil
}

// TotalPages reports how many pages the query spans at the configured page size.
func (c *Client) TotalPages(ctx context.Context) (int, error) {
	page, err := c.Page(ctx, Cursor{})
	if err != nil {
		return 0, err
	}
	return page.Pages, nil
}

func (c *Client) endpoint(cursor Cursor) *url.URL {
	endpoint := c.baseURL.JoinPath(scheduleAPath)
	params := url.Values{}
	params.Set("api_key", c.query.APIKey)
	params.Set("two_year_transaction_period", c.query.Cycle)
	params.Set("recipient_committee_type", c.query.CommitteeType)
	params.Set("sort", "-contribution_receipt_date")
	params.Set("sort_hide_null", "true")
	params.Set("sort_null_only", "false")
	params.Set("is_individual", "true")
	params.Set("contributor_type", "individual")
	params.Set("per_page", strconv.Itoa(c.query.PerPage))
	if cursor.LastIndex != "" {
		params.Set("last_index", cursor.LastIndex)
	}
	if cursor.LastDate != "" {
		params.Set("last_contribution_receipt_date", cursor.LastDate)
	}
	endpoint.RawQuery = params.Encode()
	return endpoint
}

func (c *Client) get(ctx context.Context, cursor Cursor) (*scheduleAResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(cursor).String(), nil)
	if err != nil {
		return nil, fmt.Errorf("fec: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fec: schedule_a request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w (%s)", ErrQuota, resp.Status)
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("fec: schedule_a failed (%s): %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var payload scheduleAResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("fec: decode schedule_a response: %w", err)
	}
	return &payload, nil
}

type scheduleAResponse struct {
	Results []struct {
		Occupation text `json:"contributor_occupation"`
		Employer   text `json:"contributor_employer"`
		City       text `json:"contributor_city"`
		State      text `json:"contributor_state"`
		Zip        text `json:"contributor_zip"`
		Committee  struct {
			Party text `json:"party"`
		} `json:"committee"`
	} `json:"results"`
	Pagination struct {
		Count       int `json:"count"`
		Pages       int `json:"pages"`
		PerPage     int `json:"per_page"`
		LastIndexes struct {
			LastIndex text `json:"last_index"`
			LastDate  text `json:"last_contribution_receipt_date"`
		} `json:"last_indexes"`
	} `json:"pagination"`
}

// text accepts a JSON string, number, or null.
type text string

func (t *text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("fec: unexpected value %s", data)
	}
	*t = text(n.String())
	return nil
}

// Package catalog is the client for the external comic catalog (ComicVine).
//
// The catalog is an opaque collaborator: this package fetches and shapes
// its responses but stores nothing. Two things make it a careful client:
//
//   - RATE LIMITING: the catalog aggressively throttles API keys. All
//     requests pass through a rate.Limiter, so a burst of issue-detail
//     fetches spreads out instead of tripping the upstream limit.
//   - TIMEOUTS: every call is bounded by the HTTP client timeout and the
//     request context. A slow catalog degrades into a dependency-unavailable
//     response, never a hung request.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// ErrNoResults means the catalog answered but had nothing matching.
// Handlers map it to 404.
var ErrNoResults = errors.New("catalog: no results")

// Config carries the catalog connection settings.
type Config struct {
	BaseURL string
	APIKey  string
	// Timeout bounds each upstream request. Zero means DefaultTimeout.
	Timeout time.Duration
	// RequestInterval is the minimum spacing between upstream requests.
	// Zero means DefaultRequestInterval.
	RequestInterval time.Duration
}

const (
	DefaultTimeout         = 10 * time.Second
	DefaultRequestInterval = 1500 * time.Millisecond
)

// Client talks to the catalog API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New creates a catalog client.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestInterval <= 0 {
		cfg.RequestInterval = DefaultRequestInterval
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Every(cfg.RequestInterval), 1),
		logger:  logger,
	}
}

// IssueRef is a catalog's lightweight pointer to an issue inside a volume
// listing. The full record lives behind APIDetailURL.
type IssueRef struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	IssueNumber  string `json:"issue_number"`
	APIDetailURL string `json:"api_detail_url"`
}

// VolumeIssuesPage is one page of fully-resolved issues from a volume.
type VolumeIssuesPage struct {
	Offset  int               `json:"offset"`
	Limit   int               `json:"limit"`
	Total   int               `json:"total"`
	Results []json.RawMessage `json:"results"`
}

// SearchPage is one page of volume search results.
type SearchPage struct {
	Offset        int             `json:"offset"`
	Total         int             `json:"total"`
	Count         int             `json:"count"`
	MoreAvailable bool            `json:"moreAvailable"`
	Results       json.RawMessage `json:"results"`
}

type volumeEnvelope struct {
	Results struct {
		Issues []IssueRef `json:"issues"`
	} `json:"results"`
}

type issueEnvelope struct {
	Results json.RawMessage `json:"results"`
}

type searchEnvelope struct {
	NumberOfTotalResults int             `json:"number_of_total_results"`
	NumberOfPageResults  int             `json:"number_of_page_results"`
	Results              json.RawMessage `json:"results"`
}

// VolumeIssues fetches the issue list of a volume, then resolves the
// requested page of issue details one by one through the rate limiter.
// Returns ErrNoResults when the volume has no issues.
func (c *Client) VolumeIssues(ctx context.Context, volumeID string, offset, limit int) (*VolumeIssuesPage, error) {
	var env volumeEnvelope
	err := c.get(ctx, c.baseURL+"/volume/"+url.PathEscape(volumeID)+"/", url.Values{
		"field_list": {"issues"},
	}, &env)
	if err != nil {
		return nil, err
	}

	issues := env.Results.Issues
	if len(issues) == 0 {
		return nil, ErrNoResults
	}

	if offset > len(issues) {
		offset = len(issues)
	}
	end := offset + limit
	if end > len(issues) {
		end = len(issues)
	}

	page := &VolumeIssuesPage{
		Offset:  offset,
		Limit:   limit,
		Total:   len(issues),
		Results: make([]json.RawMessage, 0, end-offset),
	}
	for _, ref := range issues[offset:end] {
		var detail issueEnvelope
		err := c.get(ctx, ref.APIDetailURL, url.Values{
			"field_list": {"cover_date,id,image,name,volume,api_detail_url,issue_number,person_credits,first_appearance_characters"},
		}, &detail)
		if err != nil {
			return nil, err
		}
		page.Results = append(page.Results, detail.Results)
	}

	return page, nil
}

// SearchVolumes queries volumes by name, newest first.
// Returns ErrNoResults when nothing matches.
func (c *Client) SearchVolumes(ctx context.Context, name string, offset int) (*SearchPage, error) {
	var env searchEnvelope
	err := c.get(ctx, c.baseURL+"/volumes", url.Values{
		"offset": {fmt.Sprint(offset)},
		"filter": {"name:" + name},
		"sort":   {"start_date:desc"},
	}, &env)
	if err != nil {
		return nil, err
	}

	if env.NumberOfPageResults == 0 {
		return nil, ErrNoResults
	}

	return &SearchPage{
		Offset:        offset,
		Total:         env.NumberOfTotalResults,
		Count:         env.NumberOfPageResults,
		MoreAvailable: offset+env.NumberOfPageResults < env.NumberOfTotalResults,
		Results:       env.Results,
	}, nil
}

// get performs one rate-limited catalog request and decodes the JSON body
// into out. The API key and format parameters are added here so callers
// never handle credentials.
func (c *Client) get(ctx context.Context, rawURL string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("catalog: waiting for rate limiter: %w", err)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("catalog: parsing URL: %w", err)
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Set(k, v)
		}
	}
	q.Set("api_key", c.apiKey)
	q.Set("format", "json")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("catalog: building request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("catalog request failed",
			slog.String("url", u.Path),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("catalog: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("catalog returned non-200",
			slog.String("url", u.Path),
			slog.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("catalog: unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("catalog: decoding response: %w", err)
	}
	return nil
}

// Package catalog fetches project listings and details from the ecosystem
// catalog API. Catalog data enriches the research prompt; the pipeline
// degrades to a minimal context block when the catalog is unavailable.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Config holds catalog API connection settings.
type Config struct {
	BaseURL string // e.g. https://api.nearcatalog.org
	Timeout time.Duration
}

// Client is a catalog API client.
type Client struct {
	HTTPClient *http.Client
	Config     Config
}

// NewClient returns a client with the given config.
func NewClient(cfg Config) *Client {
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		Config:     cfg,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Profile is the basic listing entry for a project.
type Profile struct {
	Name    string            `json:"name"`
	Tagline string            `json:"tagline"`
	Tags    map[string]string `json:"tags"`
	Phase   string            `json:"phase"`
}

// Detail is the full catalog record for one project.
type Detail struct {
	Slug    string  `json:"slug"`
	Profile Profile `json:"profile"`

	Description        string            `json:"description"`
	Category           string            `json:"category"`
	Stage              string            `json:"stage"`
	TechStack          string            `json:"tech_stack"`
	Website            string            `json:"website"`
	GitHub             string            `json:"github"`
	Documentation      string            `json:"documentation"`
	Tags               map[string]string `json:"tags"`
	TeamSize           string            `json:"team_size"`
	Founded            string            `json:"founded"`
	Location           string            `json:"location"`
	BlockchainNetworks string            `json:"blockchain_networks"`
	Twitter            string            `json:"twitter"`
	Discord            string            `json:"discord"`
	Telegram           string            `json:"telegram"`
}

// Name returns the display name, falling back to the slug.
func (d *Detail) Name() string {
	if d != nil && d.Profile.Name != "" {
		return d.Profile.Name
	}
	if d != nil {
		return d.Slug
	}
	return ""
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.Config.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("catalog GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("catalog GET %s: read body: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("catalog GET %s: status %d", path, resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("catalog GET %s: decode: %w", path, err)
	}
	return nil
}

// ListSlugs fetches the project listing and returns its slugs sorted. A
// non-positive limit returns everything.
func (c *Client) ListSlugs(ctx context.Context, limit int) ([]string, error) {
	var listing map[string]struct {
		Profile Profile `json:"profile"`
	}
	if err := c.get(ctx, "/projects", nil, &listing); err != nil {
		return nil, err
	}
	slugs := make([]string, 0, len(listing))
	for slug := range listing {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	if limit > 0 && limit < len(slugs) {
		slugs = slugs[:limit]
	}
	return slugs, nil
}

// GetProject fetches the full catalog record for slug.
func (c *Client) GetProject(ctx context.Context, slug string) (*Detail, error) {
	var d Detail
	if err := c.get(ctx, "/project", url.Values{"pid": {slug}}, &d); err != nil {
		return nil, err
	}
	if d.Slug == "" {
		d.Slug = slug
	}
	return &d, nil
}

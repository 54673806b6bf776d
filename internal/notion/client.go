// Package notion is a client for the Notion API, covering the database
// queries and page writes the pipeline needs: track records, duplicate-group
// merges, and issue filing.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cratekeeper/internal/constants"
	"cratekeeper/internal/httpclient"
)

// Client talks to the Notion API on behalf of one integration token.
type Client struct {
	baseURL string
	token   string
	http    *httpclient.Client
}

// NewClient creates a Notion API client. baseURL is overridable for tests.
func NewClient(baseURL, token string, hc *httpclient.Client) *Client {
	if baseURL == "" {
		baseURL = constants.DefaultNotionBaseURL
	}
	if hc == nil {
		hc = httpclient.NewClient(nil, constants.NotionMinInterval)
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		http:    hc,
	}
}

// Page is one database record.
type Page struct {
	ID             string              `json:"id"`
	CreatedTime    time.Time           `json:"created_time"`
	LastEditedTime time.Time           `json:"last_edited_time"`
	Archived       bool                `json:"archived"`
	URL            string              `json:"url"`
	Properties     map[string]Property `json:"properties"`
}

// QueryOptions shape one database query.
type QueryOptions struct {
	Filter Filter
	// RecentFirst sorts by last edited time descending, which together with
	// MaxResults gives the bounded recent-records window the duplicate scan
	// works over.
	RecentFirst bool
	// MaxResults caps how many pages are collected across pagination.
	// Zero means no cap.
	MaxResults int
}

type queryRequest struct {
	Filter      map[string]any   `json:"filter,omitempty"`
	Sorts       []map[string]any `json:"sorts,omitempty"`
	StartCursor string           `json:"start_cursor,omitempty"`
	PageSize    int              `json:"page_size"`
}

type queryResponse struct {
	Results    []Page `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor"`
}

// QueryDatabase runs a filtered database query, following pagination until
// the result set is exhausted or MaxResults is reached.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, opts QueryOptions) ([]Page, error) {
	var pages []Page
	cursor := ""
	for {
		req := queryRequest{
			StartCursor: cursor,
			PageSize:    constants.NotionPageSize,
		}
		if !opts.Filter.isZero() {
			req.Filter = opts.Filter.toWire()
		}
		if opts.RecentFirst {
			req.Sorts = []map[string]any{
				{"timestamp": "last_edited_time", "direction": "descending"},
			}
		}
		if opts.MaxResults > 0 {
			if remaining := opts.MaxResults - len(pages); remaining < req.PageSize {
				req.PageSize = remaining
			}
		}

		var out queryResponse
		if err := c.do(ctx, http.MethodPost, "/databases/"+databaseID+"/query", req, &out); err != nil {
			return nil, err
		}
		pages = append(pages, out.Results...)

		if opts.MaxResults > 0 && len(pages) >= opts.MaxResults {
			return pages[:opts.MaxResults], nil
		}
		if !out.HasMore || out.NextCursor == "" {
			return pages, nil
		}
		cursor = out.NextCursor
	}
}

type createPageRequest struct {
	Parent     map[string]string   `json:"parent"`
	Properties map[string]Property `json:"properties"`
}

// CreatePage adds a record to a database and returns the new page id.
func (c *Client) CreatePage(ctx context.Context, databaseID string, props map[string]Property) (string, error) {
	req := createPageRequest{
		Parent:     map[string]string{"database_id": databaseID},
		Properties: props,
	}
	var out Page
	if err := c.do(ctx, http.MethodPost, "/pages", req, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

type patchPageRequest struct {
	Properties map[string]Property `json:"properties,omitempty"`
	Archived   *bool               `json:"archived,omitempty"`
}

// UpdatePage patches the given properties on an existing page; properties
// not named are left untouched.
func (c *Client) UpdatePage(ctx context.Context, pageID string, props map[string]Property) error {
	return c.do(ctx, http.MethodPatch, "/pages/"+pageID, patchPageRequest{Properties: props}, &Page{})
}

// ArchivePage soft-deletes a page. Archived pages drop out of database
// queries but remain restorable from the workspace trash.
func (c *Client) ArchivePage(ctx context.Context, pageID string) error {
	archived := true
	return c.do(ctx, http.MethodPatch, "/pages/"+pageID, patchPageRequest{Archived: &archived}, &Page{})
}

// CreateIssue files a task-style page in the issues database.
func (c *Client) CreateIssue(ctx context.Context, issuesDatabaseID, title, details string) (string, error) {
	return c.CreatePage(ctx, issuesDatabaseID, map[string]Property{
		"Name":     Title(title),
		"Details":  RichText(details),
		"Status":   Select("Open"),
		"Reported": Date(time.Now()),
	})
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", constants.NotionVersion)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &httpclient.PermanentError{StatusCode: resp.StatusCode, Body: string(b)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

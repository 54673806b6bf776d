// Package eagle is a client for the Eagle desktop cataloging tool's local
// REST API. Only the handful of endpoints the pipeline needs are covered.
package eagle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"cratekeeper/internal/constants"
	"cratekeeper/internal/httpclient"
)

// Client talks to a local Eagle application instance.
type Client struct {
	baseURL string
	http    *httpclient.Client
	token   string
}

// NewClient creates an Eagle API client. token may be empty when the Eagle
// API has no token configured.
func NewClient(baseURL, token string, hc *httpclient.Client) *Client {
	if hc == nil {
		hc = httpclient.NewClient(nil, constants.EagleMinInterval)
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    hc,
		token:   token,
	}
}

// ListItems fetches up to limit items from the Eagle library.
func (c *Client) ListItems(ctx context.Context, limit int) ([]Item, error) {
	if limit <= 0 {
		limit = constants.EagleListLimit
	}
	u := fmt.Sprintf("%s/api/item/list?limit=%d", c.baseURL, limit)
	if c.token != "" {
		u += "&token=" + url.QueryEscape(c.token)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var out listResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// AddFromPath imports a local file into the Eagle library and returns the
// new item's id when the API reports one.
func (c *Client) AddFromPath(ctx context.Context, add AddItemRequest) (string, error) {
	body, err := json.Marshal(add)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/item/addFromPath", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out addResponse
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	return out.itemID(), nil
}

// UpdateTags replaces the tag set of an existing item.
func (c *Client) UpdateTags(ctx context.Context, id string, tags []string) error {
	body, err := json.Marshal(updateRequest{ID: id, Tags: tags})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/item/update", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, &statusResponse{})
}

// MoveToTrash soft-deletes items. Eagle keeps them in its trash; nothing is
// ever hard-deleted from here.
func (c *Client) MoveToTrash(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	body, err := json.Marshal(trashRequest{ItemIDs: ids})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/item/moveToTrash", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, &statusResponse{})
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req.Context(), req)
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

	if s, ok := out.(statuser); ok && s.status() != "success" {
		return fmt.Errorf("eagle returned status %q", s.status())
	}
	return nil
}

// Item is one entry in the Eagle library as returned by /api/item/list.
type Item struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Ext              string   `json:"ext"`
	Tags             []string `json:"tags"`
	Folders          []string `json:"folders"`
	Annotation       string   `json:"annotation"`
	URL              string   `json:"url"`
	FilePath         string   `json:"filePath,omitempty"`
	Size             int64    `json:"size"`
	ModificationTime int64    `json:"modificationTime"`
}

// AddItemRequest is the payload for /api/item/addFromPath.
type AddItemRequest struct {
	Path       string   `json:"path"`
	Name       string   `json:"name"`
	Website    string   `json:"website,omitempty"`
	Annotation string   `json:"annotation,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	FolderID   string   `json:"folderId,omitempty"`
}

type updateRequest struct {
	ID   string   `json:"id"`
	Tags []string `json:"tags"`
}

type trashRequest struct {
	ItemIDs []string `json:"itemIds"`
}

type statuser interface {
	status() string
}

type statusResponse struct {
	Status string `json:"status"`
}

func (r *statusResponse) status() string { return r.Status }

type listResponse struct {
	Status string `json:"status"`
	Data   []Item `json:"data"`
}

func (r *listResponse) status() string { return r.Status }

type addResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func (r *addResponse) status() string { return r.Status }

// itemID digs the new item id out of the addFromPath response, which the API
// reports either as a bare string or as an object with an id field.
func (r *addResponse) itemID() string {
	var s string
	if err := json.Unmarshal(r.Data, &s); err == nil {
		return s
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(r.Data, &obj); err == nil {
		return obj.ID
	}
	return ""
}

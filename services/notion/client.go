// Copyright (C) 2025 imoremu
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	apiVersion     = "2022-06-28"
	defaultBaseURL = "https://api.notion.com/v1"
)

// HTTPClient allows injecting a mock transport for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the Notion API. Query and create calls go through the
// fixed-wait retry policy; the schema fetch does not (its caller degrades
// to an empty schema instead).
type Client struct {
	httpClient HTTPClient
	apiKey     string
	baseURL    string
	retry      RetryConfig

	// sleep overrides the retry delay; nil means real waits.
	sleep func(time.Duration)
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API root (tests).
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient replaces the transport (tests).
func WithHTTPClient(hc HTTPClient) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithSleep replaces the retry delay function (tests).
func WithSleep(sleep func(time.Duration)) Option {
	return func(c *Client) { c.sleep = sleep }
}

// NewClient builds a Client with the given credential and retry policy.
func NewClient(apiKey string, retry RetryConfig, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		retry:      retry,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// QueryDatabase returns every page of the database matching the filter,
// following pagination cursors. A nil filter returns all pages.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, filter *Filter) ([]Page, error) {
	var rawFilter json.RawMessage
	if filter != nil {
		encoded, err := json.Marshal(filter)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal filter: %w", err)
		}
		rawFilter = encoded
	}

	var pages []Page
	cursor := ""
	for {
		body := queryRequest{Filter: rawFilter, StartCursor: cursor}

		var resp queryResponse
		err := retry(ctx, c.retry, c.sleep, func(ctx context.Context) error {
			return c.post(ctx, fmt.Sprintf("/databases/%s/query", databaseID), body, &resp)
		})
		if err != nil {
			return nil, fmt.Errorf("query database %s: %w", databaseID, err)
		}

		pages = append(pages, resp.Results...)
		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}

	slog.Debug("Database query complete", "database_id", databaseID, "results", len(pages))
	return pages, nil
}

// CreatePage creates a page in the database with the given properties.
func (c *Client) CreatePage(ctx context.Context, databaseID string, properties map[string]Property) error {
	body := createPageRequest{
		Parent:     pageParent{DatabaseID: databaseID},
		Properties: properties,
	}

	err := retry(ctx, c.retry, c.sleep, func(ctx context.Context) error {
		return c.post(ctx, "/pages", body, nil)
	})
	if err != nil {
		return fmt.Errorf("create page in %s: %w", databaseID, err)
	}

	slog.Debug("Page created", "database_id", databaseID)
	return nil
}

// DatabaseProperties returns the set of property names the database
// accepts. Not retried: the planner treats a failure here as a degraded
// mode, not a fatal error.
func (c *Client) DatabaseProperties(ctx context.Context, databaseID string) (map[string]struct{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/databases/"+databaseID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("retrieve database %s: %w", databaseID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("retrieve database %s: %w", databaseID, responseError(resp))
	}

	var db databaseResponse
	if err := json.NewDecoder(resp.Body).Decode(&db); err != nil {
		return nil, fmt.Errorf("failed to decode database %s: %w", databaseID, err)
	}

	names := make(map[string]struct{}, len(db.Properties))
	for name := range db.Properties {
		names[name] = struct{}{}
	}
	slog.Info("Fetched database schema", "database_id", databaseID, "properties", len(names))
	return names, nil
}

// post sends one JSON request and decodes the response into out when out is
// non-nil. Transport failures, 429s and 5xx responses come back tagged as
// transient so the retry loop tries again.
func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return markTransient(fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := responseError(resp)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			slog.Warn("Transient API failure", "path", path, "status", resp.StatusCode)
			return markTransient(err)
		}
		return err
	}

	if out == nil {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Notion-Version", apiVersion)
}

// responseError reads the API error envelope from a non-2xx response.
func responseError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr apiError
	if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Message != "" {
		return fmt.Errorf("api error %d (%s): %s", resp.StatusCode, apiErr.Code, apiErr.Message)
	}
	return fmt.Errorf("api error %d: %s", resp.StatusCode, string(raw))
}

// Package api is the HTTP client for the dashboard API. Every request is
// reported to an activity.Reporter so the UI can show a sync indicator.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/perch/internal/activity"
	"github.com/mmcdole/perch/internal/domain"
)

const (
	defaultTimeout = 15 * time.Second
	userAgent      = "perch/1.0"
)

// Client implements domain.EntryRepository against the dashboard API.
type Client struct {
	baseURL    *url.URL
	token      string
	httpClient *http.Client
	reporter   activity.Reporter
	logger     *slog.Logger
}

var _ domain.EntryRepository = (*Client)(nil)

type nopReporter struct{}

func (nopReporter) MarkSyncing() {}
func (nopReporter) MarkSuccess() {}
func (nopReporter) MarkError()   {}

// NewClient creates a new dashboard API client. A nil reporter discards
// activity events.
func NewClient(baseURL, token string, reporter activity.Reporter, logger *slog.Logger) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	if reporter == nil {
		reporter = nopReporter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: base,
		token:   token,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		reporter: reporter,
		logger:   logger,
	}, nil
}

// BaseURL returns the normalised API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Health checks that the API is reachable and the token is accepted.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil)
}

// GetBoard returns the board header.
func (c *Client) GetBoard(ctx context.Context) (domain.Board, error) {
	var payload BoardResponse
	if err := c.do(ctx, http.MethodGet, "/api/board", nil, &payload); err != nil {
		return domain.Board{}, err
	}
	return domain.Board{Name: payload.Name, UpdatedAt: payload.UpdatedAt}, nil
}

// ListEntries returns every entry on the board.
func (c *Client) ListEntries(ctx context.Context) ([]domain.Entry, error) {
	var payload EntryListResponse
	if err := c.do(ctx, http.MethodGet, "/api/entries", nil, &payload); err != nil {
		return nil, err
	}
	return MapEntries(payload.Items), nil
}

// PutEntry creates or replaces an entry.
func (c *Client) PutEntry(ctx context.Context, entry domain.Entry) (domain.Entry, error) {
	if strings.TrimSpace(entry.ID) == "" {
		return domain.Entry{}, fmt.Errorf("entry id required")
	}
	var payload EntryDTO
	if err := c.do(ctx, http.MethodPut, entryPath(entry.ID), ToDTO(entry), &payload); err != nil {
		return domain.Entry{}, err
	}
	return MapEntry(payload), nil
}

// DeleteEntry removes an entry. A 404 is treated as already deleted.
func (c *Client) DeleteEntry(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("entry id required")
	}
	err := c.do(ctx, http.MethodDelete, entryPath(id), nil, nil)
	if errors.Is(err, domain.ErrEntryNotFound) {
		return nil
	}
	return err
}

func entryPath(id string) string {
	return "/api/entries/" + url.PathEscape(id)
}

// do performs an authenticated JSON request and reports its outcome.
// A 404 on DELETE still counts as success for the indicator.
func (c *Client) do(ctx context.Context, method, path string, body, dest any) (err error) {
	c.reporter.MarkSyncing()
	defer func() {
		if err == nil || (method == http.MethodDelete && errors.Is(err, domain.ErrEntryNotFound)) {
			c.reporter.MarkSuccess()
		} else {
			c.reporter.MarkError()
		}
	}()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	ref, err := url.Parse(path)
	if err != nil {
		return fmt.Errorf("build request path: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.ResolveReference(ref).String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("api request", "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.logger.Warn("api request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("%w: %v", domain.ErrServerOffline, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.ErrAuthFailed
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrEntryNotFound
	case resp.StatusCode >= 400:
		msg := readErrorMessage(resp.Body)
		c.logger.Error("api request error", "method", method, "path", path, "status", resp.StatusCode, "message", msg)
		if msg != "" {
			return fmt.Errorf("api %s %s returned status %d: %s", method, path, resp.StatusCode, msg)
		}
		return fmt.Errorf("api %s %s returned status %d", method, path, resp.StatusCode)
	}

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func readErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}
	var payload ErrorResponse
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(data))
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, domain.ErrNotConfigured
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse server url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse server url %q: missing host", raw)
	}
	u.Path = ""
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/attacca/attacca/internal/domain"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "Attacca/1.0"
)

// Client talks to the remote content repository over HTTP JSON. It
// implements domain.ContentRepository and domain.FileFetcher.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new content repository client
func NewClient(baseURL, token string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger,
	}
}

// doRequest performs an authenticated GET and returns the response body
func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	reqURL := c.baseURL + path
	if query != nil {
		reqURL = fmt.Sprintf("%s?%s", reqURL, query.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", userAgent)

	c.logger.Debug("repository request", "url", reqURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("repository request failed", "error", err)
		return nil, domain.ErrServerOffline
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, domain.ErrAuthFailed
	case http.StatusNotFound:
		return nil, domain.ErrItemNotFound
	default:
		c.logger.Error("repository request error", "status", resp.StatusCode)
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
}

// GetSongs returns all content items in the library
func (c *Client) GetSongs(ctx context.Context) ([]*domain.ContentItem, error) {
	body, err := c.doRequest(ctx, "/api/songs", nil)
	if err != nil {
		return nil, err
	}

	var resp songsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse songs response: %w", err)
	}

	return mapSongs(resp.Songs, c.baseURL), nil
}

// GetSong returns a single content item by ID
func (c *Client) GetSong(ctx context.Context, id string) (*domain.ContentItem, error) {
	body, err := c.doRequest(ctx, "/api/songs/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var dto songDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return nil, fmt.Errorf("failed to parse song response: %w", err)
	}

	item := mapSong(dto, c.baseURL)
	return &item, nil
}

// GetSetlists returns all setlists
func (c *Client) GetSetlists(ctx context.Context) ([]*domain.Setlist, error) {
	body, err := c.doRequest(ctx, "/api/setlists", nil)
	if err != nil {
		return nil, err
	}

	var resp setlistsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse setlists response: %w", err)
	}

	return mapSetlists(resp.Setlists), nil
}

// GetSetlistItems returns the ordered content items of a setlist
func (c *Client) GetSetlistItems(ctx context.Context, setlistID string) ([]*domain.ContentItem, error) {
	body, err := c.doRequest(ctx, "/api/setlists/"+url.PathEscape(setlistID)+"/songs", nil)
	if err != nil {
		return nil, err
	}

	var resp songsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse setlist items response: %w", err)
	}

	return mapSongs(resp.Songs, c.baseURL), nil
}

// ServerUpdatedAt returns the library's last-modified timestamp
func (c *Client) ServerUpdatedAt(ctx context.Context) (int64, error) {
	body, err := c.doRequest(ctx, "/api/library", nil)
	if err != nil {
		return 0, err
	}

	var resp libraryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("failed to parse library response: %w", err)
	}

	return resp.UpdatedAt, nil
}

// FetchFile downloads a content item's remote file. The caller owns the
// returned body; mediaType is the server-declared Content-Type without
// parameters ("" if the server sent none).
func (c *Client) FetchFile(ctx context.Context, fileURL string) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	// Only send credentials to our own server
	if strings.HasPrefix(fileURL, c.baseURL) {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch file: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		if resp.StatusCode == http.StatusUnauthorized {
			return nil, "", domain.ErrAuthFailed
		}
		return nil, "", fmt.Errorf("fetch file: unexpected status code: %d", resp.StatusCode)
	}

	mediaType := resp.Header.Get("Content-Type")
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = strings.TrimSpace(mediaType[:i])
	}

	return resp.Body, mediaType, nil
}

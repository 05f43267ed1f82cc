// Package catalog talks to the upstream subtitle catalog this service
// proxies: search by title/IMDb id/hash, and download a specific
// subtitle file. The wire protocol beyond search/download is explicitly
// out of scope (spec) — this package exposes just those two operations
// plus the opaque bearer-token lifecycle they require.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/odedia/translation-layer/internal/apperr"
)

// SearchFilters narrows a catalog search. Zero values are omitted from
// the upstream query, except Page: a zero or negative Page is sent as
// page 1.
type SearchFilters struct {
	Query      string
	IMDbID     string
	MovieHash  string
	Season     int
	Episode    int
	Page       int
}

// SearchResult is one hit in a search response. Language is filled in from
// the raw catalog response as-is, and this client leaves AITranslated and
// MachineTranslated false; the subtitle orchestrator's ProxySearch relabels
// Language and sets both flags to reflect that every served subtitle is
// translated on the way through this proxy.
type SearchResult struct {
	FileID            string
	Release           string
	Language          string
	DownloadURL       string
	AITranslated      bool
	MachineTranslated bool
}

// SearchPage is one page of search results plus whether more pages exist.
type SearchPage struct {
	Results    []SearchResult
	Page       int
	TotalPages int
}

// Catalog is the subtitle catalog this service proxies.
type Catalog interface {
	Search(ctx context.Context, filters SearchFilters) (SearchPage, error)
	Download(ctx context.Context, fileID string) (data []byte, suggestedName string, err error)
}

// Client is the OpenSubtitles-compatible HTTP catalog client. It holds a
// bearer token obtained at login and re-authenticates lazily: rather than
// refresh on a timer, it retries once with a fresh login whenever the
// upstream responds 401, which is both simpler and immune to clock skew
// between this process and the token's real expiry.
type Client struct {
	baseURL    string
	apiKey     string
	username   string
	password   string
	httpClient *http.Client

	mu    sync.Mutex
	token string
}

// NewClient returns a Catalog client. baseURL is the catalog API's root
// (e.g. "https://api.opensubtitles.com/api/v1").
func NewClient(baseURL, apiKey, username, password string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) login(ctx context.Context) error {
	if c.apiKey == "" {
		return apperr.NewNotConfigured("catalog api key is not configured", nil)
	}

	body, _ := json.Marshal(map[string]string{
		"username": c.username,
		"password": c.password,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", strings.NewReader(string(body)))
	if err != nil {
		return apperr.NewInternal("cannot build login request", err)
	}
	c.setCommonHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.NewUpstreamUnavailable("catalog login request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperr.NewUpstreamUnavailable(fmt.Sprintf("catalog login returned status %d", resp.StatusCode), nil)
	}

	var parsed struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return apperr.NewUpstreamUnavailable("cannot decode catalog login response", err)
	}

	c.mu.Lock()
	c.token = parsed.Token
	c.mu.Unlock()
	return nil
}

func (c *Client) setCommonHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", c.apiKey)
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// doWithReauth performs build(), and on a 401 response logs in again and
// retries build() exactly once.
func (c *Client) doWithReauth(ctx context.Context, build func() (*http.Request, error)) (*http.Response, error) {
	req, err := build()
	if err != nil {
		return nil, apperr.NewInternal("cannot build catalog request", err)
	}
	c.setCommonHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.NewUpstreamUnavailable("catalog request failed", err)
	}

	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	resp.Body.Close()

	if err := c.login(ctx); err != nil {
		return nil, err
	}

	req2, err := build()
	if err != nil {
		return nil, apperr.NewInternal("cannot rebuild catalog request", err)
	}
	c.setCommonHeaders(req2)
	resp2, err := c.httpClient.Do(req2)
	if err != nil {
		return nil, apperr.NewUpstreamUnavailable("catalog request failed after re-login", err)
	}
	return resp2, nil
}

// Search queries the catalog for subtitles matching filters.
func (c *Client) Search(ctx context.Context, filters SearchFilters) (SearchPage, error) {
	q := make([]string, 0, 5)
	if filters.Query != "" {
		q = append(q, "query="+filters.Query)
	}
	if filters.IMDbID != "" {
		q = append(q, "imdb_id="+filters.IMDbID)
	}
	if filters.MovieHash != "" {
		q = append(q, "moviehash="+filters.MovieHash)
	}
	if filters.Season > 0 {
		q = append(q, "season_number="+strconv.Itoa(filters.Season))
	}
	if filters.Episode > 0 {
		q = append(q, "episode_number="+strconv.Itoa(filters.Episode))
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	q = append(q, "page="+strconv.Itoa(page))

	url := c.baseURL + "/subtitles?" + strings.Join(q, "&")

	resp, err := c.doWithReauth(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	})
	if err != nil {
		return SearchPage{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return SearchPage{}, apperr.NewUpstreamUnavailable(fmt.Sprintf("catalog search returned status %d", resp.StatusCode), nil)
	}

	var parsed struct {
		Data []struct {
			Attributes struct {
				Release   string `json:"release"`
				Language  string `json:"language"`
				Files     []struct {
					FileID int `json:"file_id"`
				} `json:"files"`
				URL string `json:"url"`
			} `json:"attributes"`
		} `json:"data"`
		TotalPages int `json:"total_pages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return SearchPage{}, apperr.NewUpstreamUnavailable("cannot decode catalog search response", err)
	}

	var results []SearchResult
	for _, d := range parsed.Data {
		fileID := ""
		if len(d.Attributes.Files) > 0 {
			fileID = strconv.Itoa(d.Attributes.Files[0].FileID)
		}
		results = append(results, SearchResult{
			FileID:      fileID,
			Release:     d.Attributes.Release,
			Language:    d.Attributes.Language,
			DownloadURL: d.Attributes.URL,
		})
	}

	if len(results) == 0 {
		return SearchPage{Page: page, TotalPages: parsed.TotalPages}, apperr.NewEmpty("catalog search returned no results", nil)
	}

	return SearchPage{Results: results, Page: page, TotalPages: parsed.TotalPages}, nil
}

// Download resolves fileID to an actual subtitle download link and fetches
// its contents.
func (c *Client) Download(ctx context.Context, fileID string) ([]byte, string, error) {
	body, _ := json.Marshal(map[string]string{"file_id": fileID})

	resp, err := c.doWithReauth(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/download", strings.NewReader(string(body)))
	})
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", apperr.NewUpstreamUnavailable(fmt.Sprintf("catalog download returned status %d", resp.StatusCode), nil)
	}

	var parsed struct {
		Link     string `json:"link"`
		FileName string `json:"file_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, "", apperr.NewUpstreamUnavailable("cannot decode catalog download response", err)
	}
	if parsed.Link == "" {
		return nil, "", apperr.NewUpstreamUnavailable("catalog download response had no link", nil)
	}

	fileReq, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.Link, nil)
	if err != nil {
		return nil, "", apperr.NewInternal("cannot build subtitle file request", err)
	}
	fileResp, err := c.httpClient.Do(fileReq)
	if err != nil {
		return nil, "", apperr.NewUpstreamUnavailable("subtitle file download failed", err)
	}
	defer fileResp.Body.Close()

	data, err := io.ReadAll(fileResp.Body)
	if err != nil {
		return nil, "", apperr.NewUpstreamUnavailable("cannot read subtitle file body", err)
	}

	name := parsed.FileName
	if name == "" {
		name = fileID + ".srt"
	}
	return data, name, nil
}

package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/odedia/translation-layer/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchReturnsResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/login":
			json.NewEncoder(w).Encode(map[string]string{"token": "tok123"})
		case r.URL.Path == "/subtitles":
			json.NewEncoder(w).Encode(map[string]any{
				"total_pages": 1,
				"data": []map[string]any{
					{"attributes": map[string]any{
						"release":  "Movie.2020",
						"language": "en",
						"files":    []map[string]any{{"file_id": 42}},
						"url":      "http://example.com/42",
					}},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", "user", "pass")
	page, err := c.Search(context.Background(), SearchFilters{Query: "movie"})
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "42", page.Results[0].FileID)
	assert.Equal(t, "Movie.2020", page.Results[0].Release)
}

func TestSearchEmptyReturnsEmptyKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": []map[string]any{}, "total_pages": 0})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", "user", "pass")
	_, err := c.Search(context.Background(), SearchFilters{Query: "nothing"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Empty))
}

func TestSearchWithoutAPIKeyIsNotConfigured(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "", "")
	_, err := c.Search(context.Background(), SearchFilters{Query: "x"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.NotConfigured))
	assert.True(t, called, "first request is attempted before the 401 triggers re-login")
}

func TestDownloadReauthenticatesOn401(t *testing.T) {
	loginCount := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			loginCount++
			json.NewEncoder(w).Encode(map[string]string{"token": "tok-" + string(rune('0'+loginCount))})
		case "/download":
			auth := r.Header.Get("Authorization")
			if auth == "" || auth == "Bearer " {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode(map[string]string{"link": "http://" + r.Host + "/file", "file_name": "movie.srt"})
		case "/file":
			w.Write([]byte("1\n00:00:00,000 --> 00:00:01,000\nhi\n"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", "user", "pass")
	data, name, err := c.Download(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "movie.srt", name)
	assert.Contains(t, string(data), "hi")
	assert.Equal(t, 1, loginCount)
}

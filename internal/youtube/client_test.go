package youtube

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commentThreadJSON(id, author, text, publishedAt string) string {
	return fmt.Sprintf(`{
		"snippet": {
			"topLevelComment": {
				"id": %q,
				"snippet": {
					"authorDisplayName": %q,
					"textDisplay": %q,
					"publishedAt": %q
				}
			}
		}
	}`, id, author, text, publishedAt)
}

func TestCommentsSinceFiltersByWatermark(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/commentThreads", r.URL.Path)
		assert.Equal(t, "AbCdEfGhIjK", r.URL.Query().Get("videoId"))
		fmt.Fprintf(w, `{"items": [%s, %s, %s]}`,
			commentThreadJSON("c1", "alice", "great video", "2024-06-02T00:00:00Z"),
			commentThreadJSON("c2", "bob", "on the boundary", "2024-06-01T00:00:00Z"),
			commentThreadJSON("c3", "carol", "too old", "2024-05-31T23:59:59Z"),
		)
	}))
	defer srv.Close()

	c := NewClient("key").WithBaseURL(srv.URL)
	since := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	comments, err := c.CommentsSince(context.Background(), "AbCdEfGhIjK", since)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "c1", comments[0].ID)
	// The watermark boundary is inclusive.
	assert.Equal(t, "c2", comments[1].ID)
}

func TestCommentsSinceFollowsPagination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("pageToken") == "" {
			fmt.Fprintf(w, `{"nextPageToken": "page2", "items": [%s]}`,
				commentThreadJSON("c1", "alice", "first page", "2024-06-02T00:00:00Z"))
			return
		}
		require.Equal(t, "page2", r.URL.Query().Get("pageToken"))
		fmt.Fprintf(w, `{"items": [%s]}`,
			commentThreadJSON("c2", "bob", "second page", "2024-06-02T01:00:00Z"))
	}))
	defer srv.Close()

	c := NewClient("key").WithBaseURL(srv.URL)
	comments, err := c.CommentsSince(context.Background(), "AbCdEfGhIjK", time.Time{})
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "c1", comments[0].ID)
	assert.Equal(t, "c2", comments[1].ID)
}

func TestCommentsSinceTruncatesOnPageError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			fmt.Fprintf(w, `{"nextPageToken": "page2", "items": [%s]}`,
				commentThreadJSON("c1", "alice", "first page", "2024-06-02T00:00:00Z"))
			return
		}
		http.Error(w, "quota exceeded", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient("key").WithBaseURL(srv.URL)
	comments, err := c.CommentsSince(context.Background(), "AbCdEfGhIjK", time.Time{})

	// A failed page keeps what was already collected and is not an error.
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "c1", comments[0].ID)
}

func TestVideoTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/videos", r.URL.Path)
		assert.Equal(t, "AbCdEfGhIjK", r.URL.Query().Get("id"))
		fmt.Fprint(w, `{"items": [{"snippet": {"title": "My Great Video"}}]}`)
	}))
	defer srv.Close()

	c := NewClient("key").WithBaseURL(srv.URL)
	title, err := c.VideoTitle(context.Background(), "AbCdEfGhIjK")
	require.NoError(t, err)
	assert.Equal(t, "My Great Video", title)
}

func TestVideoTitleNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items": []}`)
	}))
	defer srv.Close()

	c := NewClient("key").WithBaseURL(srv.URL)
	_, err := c.VideoTitle(context.Background(), "AbCdEfGhIjK")
	assert.Error(t, err)
}

// Package youtube is a minimal client for the YouTube Data API v3, covering
// exactly what ingestion needs: top-level comments for a video since a
// watermark, and the video title.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://www.googleapis.com/youtube/v3"

// Comment is one top-level comment on a video. Replies are ignored.
type Comment struct {
	ID          string
	Author      string
	Text        string
	PublishedAt time.Time
}

// Client calls the YouTube Data API.
type Client struct {
	apiKey  string
	baseURL string
	httpc   *http.Client
}

// NewClient creates a client with the given API key.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
}

// WithBaseURL overrides the API base URL. Used in tests.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

// commentThreadsResponse mirrors the fields we use of the commentThreads
// list response.
type commentThreadsResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		Snippet struct {
			TopLevelComment struct {
				ID      string `json:"id"`
				Snippet struct {
					AuthorDisplayName string `json:"authorDisplayName"`
					TextDisplay       string `json:"textDisplay"`
					PublishedAt       string `json:"publishedAt"`
				} `json:"snippet"`
			} `json:"topLevelComment"`
		} `json:"snippet"`
	} `json:"items"`
}

// CommentsSince pages through all top-level comments on a video published
// at or after since (boundary inclusive). A failed page fetch truncates the
// result to what was already collected instead of failing the whole call.
func (c *Client) CommentsSince(ctx context.Context, videoID string, since time.Time) ([]Comment, error) {
	var collected []Comment
	pageToken := ""

	for {
		page, err := c.fetchCommentPage(ctx, videoID, pageToken)
		if err != nil {
			log.Printf("[YouTube] Error fetching comments for %s, keeping %d collected: %v", videoID, len(collected), err)
			return collected, nil
		}

		for _, item := range page.Items {
			snippet := item.Snippet.TopLevelComment.Snippet
			published, err := time.Parse(time.RFC3339, snippet.PublishedAt)
			if err != nil {
				log.Printf("[YouTube] Skipping comment with bad publishedAt %q: %v", snippet.PublishedAt, err)
				continue
			}
			if published.Before(since) {
				continue
			}
			collected = append(collected, Comment{
				ID:          item.Snippet.TopLevelComment.ID,
				Author:      snippet.AuthorDisplayName,
				Text:        snippet.TextDisplay,
				PublishedAt: published,
			})
		}

		if page.NextPageToken == "" {
			return collected, nil
		}
		pageToken = page.NextPageToken
	}
}

func (c *Client) fetchCommentPage(ctx context.Context, videoID, pageToken string) (*commentThreadsResponse, error) {
	q := url.Values{}
	q.Set("part", "snippet")
	q.Set("videoId", videoID)
	q.Set("maxResults", "100")
	q.Set("order", "time")
	q.Set("textFormat", "plainText")
	q.Set("key", c.apiKey)
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}

	var page commentThreadsResponse
	if err := c.getJSON(ctx, c.baseURL+"/commentThreads?"+q.Encode(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// videosResponse mirrors the fields we use of the videos list response.
type videosResponse struct {
	Items []struct {
		Snippet struct {
			Title string `json:"title"`
		} `json:"snippet"`
	} `json:"items"`
}

// VideoTitle looks up the title of a video.
func (c *Client) VideoTitle(ctx context.Context, videoID string) (string, error) {
	q := url.Values{}
	q.Set("part", "snippet")
	q.Set("id", videoID)
	q.Set("key", c.apiKey)

	var resp videosResponse
	if err := c.getJSON(ctx, c.baseURL+"/videos?"+q.Encode(), &resp); err != nil {
		return "", err
	}
	if len(resp.Items) == 0 {
		return "", fmt.Errorf("video %s not found", videoID)
	}
	return resp.Items[0].Snippet.Title, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("call youtube API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("youtube API returned %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode youtube response: %w", err)
	}
	return nil
}

package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"carousel/pkg/httputil"
)

const (
	baseURL         = "https://www.reddit.com"
	defaultTimeout  = 30 * time.Second
	userAgent       = "carousel/1.0"
	maxContextRunes = 600
)

var ErrNoPosts = errors.New("no usable posts")

// Client reads public subreddit listings to seed carousel topics.
type Client struct {
	httpClient httputil.Doer
	baseURL    string
}

type Post struct {
	Title     string
	Selftext  string
	Score     int
	Permalink string
	Stickied  bool
	Over18    bool
}

// Topic is a post reduced to what the planner needs.
type Topic struct {
	Title   string
	Context string
}

type listingResponse struct {
	Data struct {
		Children []struct {
			Data postData `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type postData struct {
	Title     string `json:"title"`
	Selftext  string `json:"selftext"`
	Score     int    `json:"score"`
	Permalink string `json:"permalink"`
	Stickied  bool   `json:"stickied"`
	Over18    bool   `json:"over_18"`
}

func NewClient() *Client {
	return &Client{
		httpClient: httputil.NewRetryClient(&http.Client{Timeout: defaultTimeout}, httputil.DefaultRetryConfig()),
		baseURL:    baseURL,
	}
}

func (c *Client) GetSubredditPosts(ctx context.Context, subreddit, sort string, limit int) ([]Post, error) {
	if sort == "" {
		sort = "hot"
	}
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	endpoint := fmt.Sprintf("%s/r/%s/%s.json?limit=%d", c.baseURL, url.PathEscape(subreddit), sort, limit)

	body, err := c.doRequest(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var resp listingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	posts := make([]Post, 0, len(resp.Data.Children))
	for _, child := range resp.Data.Children {
		posts = append(posts, Post(child.Data))
	}

	return posts, nil
}

// PickTopic returns the highest scored hot post that is not pinned or marked NSFW.
func (c *Client) PickTopic(ctx context.Context, subreddit string) (Topic, error) {
	posts, err := c.GetSubredditPosts(ctx, subreddit, "hot", 25)
	if err != nil {
		return Topic{}, err
	}

	var best *Post
	for i := range posts {
		p := &posts[i]
		if p.Stickied || p.Over18 || strings.TrimSpace(p.Title) == "" {
			continue
		}
		if best == nil || p.Score > best.Score {
			best = p
		}
	}
	if best == nil {
		return Topic{}, fmt.Errorf("r/%s: %w", subreddit, ErrNoPosts)
	}

	return topicFromPost(*best), nil
}

func topicFromPost(p Post) Topic {
	parts := []string{}
	if p.Permalink != "" {
		parts = append(parts, baseURL+p.Permalink)
	}
	if text := truncate(strings.TrimSpace(p.Selftext), maxContextRunes); text != "" {
		parts = append(parts, text)
	}
	return Topic{
		Title:   strings.TrimSpace(p.Title),
		Context: strings.Join(parts, " "),
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

func (c *Client) doRequest(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reddit api error: %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return body, nil
}

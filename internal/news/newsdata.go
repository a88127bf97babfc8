package news

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ashureev/replycraft/internal/httpkit"
)

const (
	newsDataFetchSize = 5
	newsDataKeep      = 3
)

// NewsData searches the NewsData.io latest-news endpoint.
type NewsData struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewNewsData creates a NewsData source. An empty apiKey disables it.
func NewNewsData(apiKey, baseURL string, client *http.Client, logger *slog.Logger) *NewsData {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = httpkit.NewClient(httpkit.WithTimeout(10 * time.Second))
	}
	return &NewsData{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger.With("source", "newsdata"),
	}
}

// Name implements Source.
func (n *NewsData) Name() string { return "newsdata" }

type newsDataResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		PubDate     string `json:"pubDate"`
		SourceID    string `json:"source_id"`
	} `json:"results"`
}

// Search returns at most three articles for query.
func (n *NewsData) Search(ctx context.Context, query string) ([]Article, error) {
	if n.apiKey == "" {
		n.logger.Warn("NewsData API key not configured")
		return nil, nil
	}

	params := url.Values{}
	params.Set("apikey", n.apiKey)
	params.Set("q", query)
	params.Set("language", "en")
	params.Set("size", fmt.Sprint(newsDataFetchSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/api/1/news?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build newsdata request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("newsdata request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body := httpkit.ReadErrorBody(resp.Body, 512)
		return nil, fmt.Errorf("newsdata returned %d: %s", resp.StatusCode, body)
	}
	defer httpkit.DrainAndClose(resp.Body, 64<<10)

	var payload newsDataResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode newsdata response: %w", err)
	}

	results := payload.Results
	if len(results) > newsDataKeep {
		results = results[:newsDataKeep]
	}

	articles := make([]Article, 0, len(results))
	for _, r := range results {
		source := r.SourceID
		if source == "" {
			source = "NewsData"
		}
		articles = append(articles, Article{
			Title:       r.Title,
			Description: r.Description,
			Date:        formatDate(parsePubDate(r.PubDate)),
			Source:      source,
		})
	}
	return articles, nil
}

func parsePubDate(s string) *time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

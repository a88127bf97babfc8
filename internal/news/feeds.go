package news

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/sourcegraph/conc/iter"

	"github.com/ashureev/replycraft/internal/httpkit"
	"github.com/ashureev/replycraft/internal/shared"
)

const (
	perFeedLimit      = 2
	feedTotalLimit    = 3
	descriptionLength = 200
)

// Feeds polls a fixed list of RSS/Atom feeds and keeps items that mention
// any significant query word.
type Feeds struct {
	urls   []string
	client *http.Client
	logger *slog.Logger
}

// NewFeeds creates a feed source over urls.
func NewFeeds(urls []string, client *http.Client, logger *slog.Logger) *Feeds {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = httpkit.NewClient(httpkit.WithTimeout(10 * time.Second))
	}
	return &Feeds{
		urls:   append([]string(nil), urls...),
		client: client,
		logger: logger.With("source", "feeds"),
	}
}

// Name implements Source.
func (f *Feeds) Name() string { return "feeds" }

// Search polls every feed concurrently and returns at most three matches,
// in feed-list order. A failing feed is logged and skipped.
func (f *Feeds) Search(ctx context.Context, query string) ([]Article, error) {
	words := queryWords(query)
	if len(words) == 0 || len(f.urls) == 0 {
		return nil, nil
	}

	perFeed := iter.Map(f.urls, func(feedURL *string) []Article {
		articles, err := f.poll(ctx, *feedURL, words)
		if err != nil {
			f.logger.Warn("feed fetch failed", "url", *feedURL, "error", err)
			return nil
		}
		return articles
	})

	var all []Article
	for _, articles := range perFeed {
		all = append(all, articles...)
	}
	if len(all) > feedTotalLimit {
		all = all[:feedTotalLimit]
	}
	return all, nil
}

func (f *Feeds) poll(ctx context.Context, feedURL string, words []string) ([]Article, error) {
	parser := gofeed.NewParser()
	parser.Client = f.client

	feed, err := parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, err
	}

	source := strings.TrimSpace(feed.Title)
	if source == "" {
		source = "RSS Feed"
	}

	var articles []Article
	for _, item := range feed.Items {
		if len(articles) == perFeedLimit {
			break
		}
		snippet := plainText(item.Description)
		if snippet == "" {
			snippet = plainText(item.Content)
		}
		haystack := strings.ToLower(item.Title + " " + snippet)
		if !containsAny(haystack, words) {
			continue
		}
		articles = append(articles, Article{
			Title:       item.Title,
			Description: shared.Truncate(snippet, descriptionLength),
			Date:        formatDate(item.PublishedParsed),
			Source:      source,
		})
	}
	return articles, nil
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// plainText strips markup from a feed summary and collapses whitespace.
func plainText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.Join(strings.Fields(html), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

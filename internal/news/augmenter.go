package news

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sourcegraph/conc"
)

// Augmenter builds the freshness block appended to the model instructions.
type Augmenter struct {
	structured Source
	feeds      Source
	timeout    time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// AugmenterOption configures an Augmenter.
type AugmenterOption func(*Augmenter)

// WithClock overrides the time source used for the trigger years and the
// block header date.
func WithClock(now func() time.Time) AugmenterOption {
	return func(a *Augmenter) { a.now = now }
}

// WithTimeout bounds the combined lookup. Zero means no extra bound.
func WithTimeout(d time.Duration) AugmenterOption {
	return func(a *Augmenter) { a.timeout = d }
}

// NewAugmenter creates an Augmenter. Either source may be nil.
func NewAugmenter(structured, feeds Source, logger *slog.Logger, opts ...AugmenterOption) *Augmenter {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Augmenter{
		structured: structured,
		feeds:      feeds,
		now:        time.Now,
		logger:     logger.With("component", "freshness"),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Augment returns the rendered freshness block for message, or "" when the
// message is not time sensitive or nothing relevant was found. It never
// fails: source errors and panics degrade to an empty result.
func (a *Augmenter) Augment(ctx context.Context, message string) string {
	now := a.now()
	if !NeedsCurrentInfo(message, now) {
		return ""
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	a.logger.Info("fetching freshness context", "query_len", len(message))

	var structured, feeds []Article
	var wg conc.WaitGroup
	wg.Go(func() { structured = a.search(ctx, a.structured, message) })
	wg.Go(func() { feeds = a.search(ctx, a.feeds, message) })
	if r := wg.WaitAndRecover(); r != nil {
		a.logger.Error("freshness source panicked", "panic", r.Value)
	}

	all := make([]Article, 0, len(structured)+len(feeds))
	all = append(all, structured...)
	all = append(all, feeds...)
	return Render(all, now)
}

func (a *Augmenter) search(ctx context.Context, src Source, query string) []Article {
	if src == nil {
		return nil
	}
	articles, err := src.Search(ctx, query)
	if err != nil {
		a.logger.Warn("freshness source failed", "source", src.Name(), "error", err)
		return nil
	}
	if len(articles) > feedTotalLimit {
		articles = articles[:feedTotalLimit]
	}
	return articles
}

// Render formats articles as the freshness block. No articles renders "".
func Render(articles []Article, now time.Time) string {
	if len(articles) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n\n--- CURRENT INFORMATION (%s) ---\n", now.Format("Monday, January 2, 2006"))
	b.WriteString("Latest news relevant to the query:\n\n")
	for i, art := range articles {
		fmt.Fprintf(&b, "%d. %s\n", i+1, art.Title)
		fmt.Fprintf(&b, "   Source: %s | Date: %s\n", art.Source, art.Date)
		if art.Description != "" {
			fmt.Fprintf(&b, "   %s\n", art.Description)
		}
		b.WriteString("\n")
	}
	b.WriteString("--- END CURRENT INFORMATION ---\n\n")
	return b.String()
}

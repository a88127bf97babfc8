// Package news gathers current-events context for messages that ask about
// recent information.
package news

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"
)

// dateLayout is the per-article date format.
const dateLayout = "Jan 2, 2006"

// Article is one piece of freshness context.
type Article struct {
	Title       string
	Description string
	Date        string
	Source      string
}

// Source looks up articles relevant to a query.
type Source interface {
	Name() string
	Search(ctx context.Context, query string) ([]Article, error)
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "Recent"
	}
	return t.Format(dateLayout)
}

// queryWords splits a query on whitespace and keeps lowercase words longer
// than three characters.
func queryWords(query string) []string {
	var words []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if utf8.RuneCountInString(w) > 3 {
			words = append(words, w)
		}
	}
	return words
}

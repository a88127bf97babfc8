package news

import (
	"strconv"
	"strings"
	"time"
)

var triggerKeywords = []string{
	"today", "now", "current", "latest", "recent", "news",
	"happening", "update", "what is", "who is", "where is",
	"when", "this week", "this month",
	"stock", "price", "weather", "score", "result",
}

// NeedsCurrentInfo reports whether message asks about something time
// sensitive. Matching is a case-insensitive substring test against a fixed
// keyword list plus the current and previous calendar year.
func NeedsCurrentInfo(message string, now time.Time) bool {
	lower := strings.ToLower(message)
	for _, kw := range triggerKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	year := now.Year()
	for _, y := range []int{year, year - 1} {
		if strings.Contains(lower, strconv.Itoa(y)) {
			return true
		}
	}
	return false
}

package rewrite

import (
	"strings"

	"NewsPress/internal/domain"
)

const (
	maxTitleLen  = 160
	maxTickerLen = 45
	maxTagCount  = 3

	// Cuts closer to the start than this keep the hard character cut
	// instead of backtracking to a word boundary.
	minWordCut = 20
)

// Enforce repairs a rewrite result to the field-length and field-count
// contracts. The model output is advisory; this is the guarantee. Pure and
// total: it never fails, it only trims.
func Enforce(r domain.RewriteResult) domain.RewriteResult {
	r.Title = Truncate(r.Title, maxTitleLen)
	r.Excerpt = Truncate(r.Excerpt, maxTitleLen)
	r.TickerTitle = Truncate(r.TickerTitle, maxTickerLen)
	r.Tags = trimTags(r.Tags)
	r.ImageKeyword = firstToken(r.ImageKeyword)
	return r
}

// Truncate shortens s to at most max runes, cutting at the last interior
// space when that space is more than minWordCut runes in, and appending a
// single ellipsis mark.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}

	cut := runes[:max-1]
	if i := lastSpace(cut); i > minWordCut {
		cut = cut[:i]
	}
	return strings.TrimRight(string(cut), " ") + "…"
}

func lastSpace(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == ' ' {
			return i
		}
	}
	return -1
}

func trimTags(tags []string) []string {
	kept := make([]string, 0, maxTagCount)
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		kept = append(kept, trimmed)
		if len(kept) == maxTagCount {
			break
		}
	}
	return kept
}

func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

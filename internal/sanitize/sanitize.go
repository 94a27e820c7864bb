package sanitize

import (
	"regexp"
	"strings"
	"unicode"
)

// Rules holds the pattern tables driving body cleanup. They are tuned
// empirically against observed wire-service spam, so they live as data and
// can be swapped per deployment.
type Rules struct {
	// Cutoff marks the start of a trailing junk section; everything from a
	// matching line onward is dropped.
	Cutoff []*regexp.Regexp
	// Junk lines are dropped individually.
	Junk []*regexp.Regexp
	// NarrativeOpeners are lowercase first words that mark a line as prose
	// rather than an appended headline.
	NarrativeOpeners []string
	// MaxHeadlineLen bounds the appended-headline heuristic.
	MaxHeadlineLen int
}

// DefaultRules returns the production pattern tables.
func DefaultRules() Rules {
	return Rules{
		Cutoff: []*regexp.Regexp{
			regexp.MustCompile(`(?i)^related:`),
			regexp.MustCompile(`(?i)^related (articles|stories|coverage)\b`),
			regexp.MustCompile(`(?i)^(read|see) (more|also)\b`),
			regexp.MustCompile(`(?i)^more (from|on|stories)\b`),
			regexp.MustCompile(`(?i)^you (may|might) also like\b`),
			regexp.MustCompile(`(?i)^recommended for you\b`),
			regexp.MustCompile(`(?i)^trending now\b`),
		},
		Junk: []*regexp.Regexp{
			regexp.MustCompile(`(?i)^by [A-Z][\w.'-]+( [A-Z][\w.'-]+)*$`),
			regexp.MustCompile(`(?i)^(written|reporting|edited) by\b`),
			regexp.MustCompile(`(?i)/ ?[A-Z][\w ]* News$`),
			regexp.MustCompile(`(?i)^(ap|afp|reuters|upi|dpa|pti|ians|ani)$`),
			regexp.MustCompile(`(?i)^\(?(associated press|agence france-presse|reuters)\)?$`),
			regexp.MustCompile(`(?i)^(follow|subscribe to|sign up for) (us|our)\b`),
			regexp.MustCompile(`(?i)^(copyright|©|all rights reserved)\b`),
			regexp.MustCompile(`(?i)^(advertisement|sponsored content)$`),
			regexp.MustCompile(`(?i)^(click|tap) here\b`),
			regexp.MustCompile(`(?i)^(download|get) (the|our) app\b`),
			regexp.MustCompile(`(?i)^(watch|listen):`),
			regexp.MustCompile(`(?i)^this story (has been|was) (updated|corrected)\b`),
		},
		NarrativeOpeners: []string{
			"in", "on", "at", "after", "before", "while", "when", "as",
			"although", "though", "despite", "during", "since", "because",
			"if", "but", "and", "with", "under", "over", "amid", "following",
			"the", "a", "an", "it", "he", "she", "they", "we", "this", "that",
			"according", "meanwhile", "however", "earlier", "later",
		},
		MaxHeadlineLen: 120,
	}
}

// Sanitizer strips promotional junk and appended headline spam from raw
// article bodies. Deliberately conservative: retained spam beats dropped
// content.
type Sanitizer struct {
	rules Rules
}

// Option tweaks the sanitizer rules.
type Option func(*Rules)

// WithRules replaces the whole rule set.
func WithRules(r Rules) Option {
	return func(dst *Rules) { *dst = r }
}

// New builds a Sanitizer with default rules and applies options.
func New(opts ...Option) *Sanitizer {
	rules := DefaultRules()
	for _, opt := range opts {
		opt(&rules)
	}
	return &Sanitizer{rules: rules}
}

// Clean removes junk lines and trailing related-content sections from body.
// ok is false when cleaning reduces the body to nothing.
func (s *Sanitizer) Clean(body string) (string, bool) {
	if strings.TrimSpace(body) == "" {
		return "", false
	}

	var (
		kept      []string
		lastBlank bool
	)

	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			if !lastBlank && len(kept) > 0 {
				kept = append(kept, "")
				lastBlank = true
			}
			continue
		}

		if s.matchesAny(trimmed, s.rules.Cutoff) {
			break
		}
		if s.matchesAny(trimmed, s.rules.Junk) {
			continue
		}
		if s.looksLikeAppendedHeadline(trimmed) {
			continue
		}

		kept = append(kept, trimmed)
		lastBlank = false
	}

	for len(kept) > 0 && kept[len(kept)-1] == "" {
		kept = kept[:len(kept)-1]
	}

	cleaned := strings.Join(kept, "\n")
	if strings.TrimSpace(cleaned) == "" {
		return "", false
	}
	return cleaned, true
}

func (s *Sanitizer) matchesAny(line string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

var numericLine = regexp.MustCompile(`^[\d.,]+%?$`)

// looksLikeAppendedHeadline flags short, title-shaped lines that scrapers
// pick up from "more news" widgets appended below the article.
func (s *Sanitizer) looksLikeAppendedHeadline(line string) bool {
	if len([]rune(line)) > s.rules.MaxHeadlineLen {
		return false
	}
	if strings.HasSuffix(line, ".") || strings.HasSuffix(line, "!") ||
		strings.HasSuffix(line, "?") || strings.HasSuffix(line, "\"") {
		return false
	}
	if numericLine.MatchString(line) {
		return false
	}

	firstWord := strings.ToLower(strings.TrimFunc(strings.Fields(line)[0], func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}))
	for _, opener := range s.rules.NarrativeOpeners {
		if firstWord == opener {
			return false
		}
	}

	first := []rune(line)[0]
	if !unicode.IsUpper(first) {
		return false
	}
	if strings.Count(line, ",") > 1 {
		return false
	}
	if strings.Contains(line, ":") {
		return false
	}
	return true
}

package commons

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"NewsPress/internal/domain"
)

// Options tunes the candidate selection pipeline.
type Options struct {
	// MinWidth is the hard resolution floor in pixels (default 900).
	MinWidth int
	// MinScore is the acceptance threshold; a winner below it is declined
	// so the cascade can fall through (default 55).
	MinScore int
	// StrictEntity forces entity-safety mode on or off. Nil infers it from
	// the keyword shape.
	StrictEntity *bool
}

func (o Options) withDefaults() Options {
	if o.MinWidth <= 0 {
		o.MinWidth = 900
	}
	if o.MinScore <= 0 {
		o.MinScore = 55
	}
	return o
}

// nonPhotoTerms is vocabulary that marks a file as obviously not a
// photograph. Tuned empirically; kept as data so deployments can retune.
var nonPhotoTerms = []string{
	"map", "flag", "logo", "seal", "diagram", "chart",
	"infographic", "icon", "coat of arms", "emblem",
}

// allowedLicensePrefixes is the permissive/public-domain allow-list applied
// to normalized license short names.
var allowedLicensePrefixes = []string{
	"cc0", "cc by", "cc-by", "pd", "public domain", "no restrictions",
}

var (
	parenCounter = regexp.MustCompile(`\s*\(\d+\)\s*$`)
	nonAlnum     = regexp.MustCompile(`[^a-z0-9]+`)
)

// normalize lowercases and collapses all non-alphanumeric runs to single
// spaces, giving a stable shape for token comparisons.
func normalize(s string) string {
	return strings.TrimSpace(nonAlnum.ReplaceAllString(strings.ToLower(s), " "))
}

func tokenize(s string) []string {
	norm := normalize(s)
	if norm == "" {
		return nil
	}
	return strings.Fields(norm)
}

// strictEntityKeyword reports whether the keyword looks like a proper noun:
// multi-word, hyphenated/dotted, or carrying an uppercase letter. Stories
// about named people and places must not get a lookalike's photo.
func strictEntityKeyword(keyword string) bool {
	trimmed := strings.TrimSpace(keyword)
	if strings.ContainsAny(trimmed, " -.") {
		return true
	}
	for _, r := range trimmed {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

// baseName reduces a file title to a dedup key: strip the File: prefix,
// the extension, trailing parenthetical counters and all punctuation.
func baseName(title string) string {
	name := strings.TrimPrefix(title, "File:")
	if dot := strings.LastIndex(name, "."); dot > 0 {
		name = name[:dot]
	}
	name = parenCounter.ReplaceAllString(name, "")
	return nonAlnum.ReplaceAllString(strings.ToLower(name), "")
}

// deduplicate groups candidates by content hash (falling back to the
// normalized base filename) and keeps the widest of each group.
func deduplicate(candidates []domain.ImageCandidate) []domain.ImageCandidate {
	type group struct {
		index int
		width int
	}
	groups := map[string]group{}
	order := make([]string, 0, len(candidates))

	for i, cand := range candidates {
		key := cand.SHA1
		if key == "" {
			key = baseName(cand.Title)
		}
		if key == "" {
			key = cand.URL
		}

		existing, ok := groups[key]
		if !ok {
			groups[key] = group{index: i, width: cand.Width}
			order = append(order, key)
			continue
		}
		if cand.Width > existing.width {
			groups[key] = group{index: i, width: cand.Width}
		}
	}

	kept := make([]domain.ImageCandidate, 0, len(order))
	for _, key := range order {
		kept = append(kept, candidates[groups[key].index])
	}
	return kept
}

// hardFilter removes unusable candidates outright, before scoring.
func hardFilter(keyword string, candidates []domain.ImageCandidate, opts Options, strict bool) []domain.ImageCandidate {
	keywordNorm := normalize(keyword)

	survivors := make([]domain.ImageCandidate, 0, len(candidates))
	for _, cand := range candidates {
		if !usableURL(cand.URL) {
			continue
		}
		if cand.Width < opts.MinWidth {
			continue
		}
		if !allowedLicense(cand.License) {
			continue
		}
		if nonPhotoTerm(cand, keywordNorm) != "" {
			continue
		}
		if strict && !mentionsKeyword(cand, keywordNorm) {
			continue
		}
		survivors = append(survivors, cand)
	}
	return survivors
}

func usableURL(raw string) bool {
	if raw == "" {
		return false
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

func allowedLicense(license string) bool {
	norm := strings.TrimSpace(strings.ToLower(license))
	if norm == "" {
		return false
	}
	// NC/ND variants are not permissive no matter how they are prefixed.
	if strings.Contains(norm, "-nc") || strings.Contains(norm, "-nd") {
		return false
	}
	for _, prefix := range allowedLicensePrefixes {
		if strings.HasPrefix(norm, prefix) {
			return true
		}
	}
	return false
}

// nonPhotoTerm returns the first non-photo term found in the candidate's
// text fields, unless the keyword itself implies that term (a story about a
// map may legitimately get a map).
func nonPhotoTerm(cand domain.ImageCandidate, keywordNorm string) string {
	text := normalize(cand.Title + " " + cand.Description + " " + strings.Join(cand.Categories, " "))
	for _, term := range nonPhotoTerms {
		if strings.Contains(keywordNorm, term) {
			continue
		}
		if containsWord(text, term) {
			return term
		}
	}
	return ""
}

// containsWord matches term against normalized text at word granularity so
// "map" does not fire on "mapping errors in Maputo".
func containsWord(text, term string) bool {
	padded := " " + text + " "
	return strings.Contains(padded, " "+term+" ")
}

func mentionsKeyword(cand domain.ImageCandidate, keywordNorm string) bool {
	if keywordNorm == "" {
		return true
	}
	fields := []string{cand.Title, cand.Description, strings.Join(cand.Categories, " ")}
	fields = append(fields, cand.Depicts...)
	for _, field := range fields {
		if strings.Contains(normalize(field), keywordNorm) {
			return true
		}
	}
	return false
}

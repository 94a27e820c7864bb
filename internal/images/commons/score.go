package commons

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"NewsPress/internal/domain"
)

const (
	scoreFloor   = -100
	scoreCeiling = 200
)

var (
	cameraDumpName = regexp.MustCompile(`(?i)\b(img|dsc|dscn|dscf|pict)[ _-]?\d{3,}\b`)
	galleryTerms   = []string{"gallery", "collage", "collection", "montage"}
	photoHints     = []string{"photograph", "photos of", "photos by", "taken with", "images by"}
)

// scored pairs a surviving candidate with its score and audit reasons.
type scored struct {
	cand    domain.ImageCandidate
	score   int
	reasons []string
}

// SelectBest runs the full pipeline over raw candidates: dedup, hard
// filter, scoring and threshold selection. Returns nil when no candidate
// clears the acceptance threshold, signalling the cascade to fall through.
func SelectBest(keyword string, candidates []domain.ImageCandidate, opts Options) *domain.SelectedImage {
	opts = opts.withDefaults()

	strict := strictEntityKeyword(keyword)
	if opts.StrictEntity != nil {
		strict = *opts.StrictEntity
	}

	unique := deduplicate(candidates)
	survivors := hardFilter(keyword, unique, opts, strict)
	if len(survivors) == 0 {
		return nil
	}

	ranked := make([]scored, 0, len(survivors))
	for _, cand := range survivors {
		s, reasons := score(keyword, cand, strict)
		ranked = append(ranked, scored{cand: cand, score: s, reasons: reasons})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		if ranked[i].cand.Width != ranked[j].cand.Width {
			return ranked[i].cand.Width > ranked[j].cand.Width
		}
		return mimeRank(ranked[i].cand.Mime) < mimeRank(ranked[j].cand.Mime)
	})

	winner := ranked[0]
	if winner.score < opts.MinScore {
		return nil
	}

	return toSelected(winner)
}

// score applies the weighted evidence schedule to one candidate. Reasons
// are kept human-readable for the audit trail.
func score(keyword string, cand domain.ImageCandidate, strict bool) (int, []string) {
	var (
		total   int
		reasons []string
	)
	add := func(points int, reason string) {
		total += points
		reasons = append(reasons, fmt.Sprintf("%+d %s", points, reason))
	}

	keywordNorm := normalize(keyword)
	keywordTokens := tokenize(keyword)

	titleNorm := normalize(cand.Title)
	descNorm := normalize(cand.Description)
	catNorm := normalize(strings.Join(cand.Categories, " "))

	// Structured depicts is the strongest evidence a provider offers.
	depictsExact := false
	depictsPartial := 0
	for _, depict := range cand.Depicts {
		depictNorm := normalize(depict)
		if depictNorm == "" {
			continue
		}
		if depictNorm == keywordNorm {
			depictsExact = true
			break
		}
		hits := tokenHits(keywordTokens, tokenize(depict))
		if hits > depictsPartial {
			depictsPartial = hits
		}
	}
	switch {
	case depictsExact:
		add(60, "depicts matches keyword exactly")
	case depictsPartial > 0:
		add(minInt(30, depictsPartial*10), "depicts overlaps keyword tokens")
	}

	if keywordNorm != "" && (strings.Contains(titleNorm, keywordNorm) ||
		strings.Contains(descNorm, keywordNorm) || strings.Contains(catNorm, keywordNorm)) {
		add(35, "exact keyword phrase present")
	}

	titleHits := tokenHits(keywordTokens, strings.Fields(titleNorm))
	descHits := tokenHits(keywordTokens, strings.Fields(descNorm))
	catHits := tokenHits(keywordTokens, strings.Fields(catNorm))
	if titleHits > 0 {
		add(minInt(24, titleHits*8), "keyword tokens in title")
	}
	if descHits > 0 {
		add(minInt(16, descHits*8), "keyword tokens in description")
	}
	if catHits > 0 {
		add(minInt(12, catHits*6), "keyword tokens in categories")
	}

	if strict && !depictsExact && depictsPartial == 0 && titleHits+descHits+catHits <= 1 {
		add(-15, "weak evidence for entity keyword")
	}

	switch cand.Mime {
	case "image/jpeg", "image/png", "image/tiff", "image/webp":
		add(2, "standard raster format")
	}
	for _, hint := range photoHints {
		if strings.Contains(catNorm, hint) {
			add(8, "photo category hint")
			break
		}
	}
	if cand.CameraMake != "" || cand.CameraModel != "" || cand.DateOriginal != "" {
		add(8, "camera metadata present")
	}

	switch {
	case cand.Width >= 3600:
		add(18, "very high resolution")
	case cand.Width >= 2800:
		add(16, "high resolution")
	case cand.Width >= 2000:
		add(12, "good resolution")
	case cand.Width >= 1400:
		add(6, "adequate resolution")
	case cand.Width >= 900:
		add(2, "minimum resolution")
	}

	if cand.Height > 0 {
		ratio := float64(cand.Width) / float64(cand.Height)
		switch {
		case ratio >= 1.3 && ratio <= 1.9:
			add(12, "ideal hero aspect ratio")
		case (ratio >= 1.1 && ratio < 1.3) || (ratio > 1.9 && ratio <= 2.2):
			add(6, "acceptable aspect ratio")
		case ratio >= 0.9 && ratio < 1.1:
			add(2, "square-ish aspect ratio")
		default:
			add(-10, "awkward aspect ratio")
		}
	}

	if strings.Contains(catNorm, "featured pictures") {
		add(25, "featured picture")
	}
	if strings.Contains(catNorm, "quality images") {
		add(18, "quality image")
	}

	if cameraDumpName.MatchString(cand.Title) {
		add(-6, "camera-dump filename")
	}
	for _, term := range galleryTerms {
		if containsWord(titleNorm, term) || containsWord(descNorm, term) {
			add(-12, "gallery/collage wording")
			break
		}
	}
	if term := residualNonPhotoTerm(cand, keywordNorm); term != "" {
		add(-20, "non-photo vocabulary: "+term)
	}

	if cand.Artist != "" {
		add(3, "artist metadata present")
	}
	switch cand.Mime {
	case "image/jpeg":
		add(2, "jpeg preferred")
	case "image/png":
		add(1, "png acceptable")
	}

	if total < scoreFloor {
		total = scoreFloor
	}
	if total > scoreCeiling {
		total = scoreCeiling
	}
	return total, reasons
}

// residualNonPhotoTerm is the post-filter safety net: it also scans depicts
// labels, which the hard filter leaves alone.
func residualNonPhotoTerm(cand domain.ImageCandidate, keywordNorm string) string {
	text := normalize(strings.Join(cand.Depicts, " "))
	for _, term := range nonPhotoTerms {
		if strings.Contains(keywordNorm, term) {
			continue
		}
		if containsWord(text, term) {
			return term
		}
	}
	return nonPhotoTerm(cand, keywordNorm)
}

func tokenHits(keywordTokens, fieldTokens []string) int {
	if len(keywordTokens) == 0 || len(fieldTokens) == 0 {
		return 0
	}
	set := make(map[string]bool, len(fieldTokens))
	for _, tok := range fieldTokens {
		set[tok] = true
	}
	hits := 0
	for _, tok := range keywordTokens {
		if set[tok] {
			hits++
		}
	}
	return hits
}

func mimeRank(mime string) int {
	switch mime {
	case "image/jpeg":
		return 0
	case "image/png":
		return 1
	default:
		return 2
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

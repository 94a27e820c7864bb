package commons

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"NewsPress/internal/domain"
)

const providerName = "Wikimedia Commons"

// toSelected assembles the winning candidate into the published image shape
// with resolved credit fields.
func toSelected(winner scored) *domain.SelectedImage {
	author := stripMarkup(winner.cand.Artist)
	license := strings.TrimSpace(winner.cand.License)

	return &domain.SelectedImage{
		URL:        winner.cand.URL,
		Width:      winner.cand.Width,
		Height:     winner.cand.Height,
		Mime:       winner.cand.Mime,
		Score:      winner.score,
		Reasons:    winner.reasons,
		Provider:   providerName,
		Author:     author,
		License:    license,
		LicenseURL: winner.cand.LicenseURL,
		PageURL:    winner.cand.PageURL,
		Credit:     CreditLine(author, license),
	}
}

// CreditLine renders "Photo by <author> via Wikimedia Commons (<license>)",
// omitting segments that are absent.
func CreditLine(author, license string) string {
	var b strings.Builder
	b.WriteString("Photo")
	if author != "" {
		b.WriteString(" by ")
		b.WriteString(author)
	}
	b.WriteString(" via ")
	b.WriteString(providerName)
	if license != "" {
		b.WriteString(" (")
		b.WriteString(license)
		b.WriteString(")")
	}
	return b.String()
}

// stripMarkup flattens the HTML fragments Commons ships in extmetadata
// fields (artist is routinely a link) down to plain text.
func stripMarkup(fragment string) string {
	trimmed := strings.TrimSpace(fragment)
	if trimmed == "" || !strings.Contains(trimmed, "<") {
		return trimmed
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(trimmed))
	if err != nil {
		return trimmed
	}
	return strings.TrimSpace(doc.Text())
}

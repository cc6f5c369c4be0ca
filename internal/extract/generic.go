package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"probatescout-engine/internal/config"
	"probatescout-engine/internal/domain"
)

// navLabels is the closed exclusion list for anchor text that is site
// chrome, not a record.
var navLabels = map[string]bool{
	"home": true, "search": true, "about": true, "about us": true,
	"contact": true, "contact us": true, "next": true, "previous": true,
	"prev": true, "more": true, "read more": true, "see all": true,
	"log in": true, "login": true, "sign up": true, "sign in": true,
	"subscribe": true, "privacy policy": true, "terms": true,
	"obituaries": true, "notices": true, "archives": true,
}

var reDate = regexp.MustCompile(`(?:\d{1,2}/\d{1,2}/\d{2,4})|(?:(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s+\d{1,2},?\s+\d{4})`)

// extractGenericDOM is the last-resort strategy: walk the document's
// tabular/structural elements inside the main content region and pair
// anchors with nearby dates.
func extractGenericDOM(doc *goquery.Document, src config.Source) []domain.ScrapedRecord {
	region := doc.Find("main, #content, #main, .content, article").First()
	if region.Length() == 0 {
		region = doc.Find("body").First()
	}

	var out []domain.ScrapedRecord
	region.Find("tr, li, .row, .result, .entry").Each(func(_ int, row *goquery.Selection) {
		a := row.Find("a[href]").First()
		if a.Length() == 0 {
			return
		}
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		name := cleanText(a.Text())
		if name == "" || href == "" {
			return
		}
		if navLabels[strings.ToLower(name)] {
			return
		}
		if strings.HasPrefix(strings.ToLower(href), "javascript:") || strings.HasPrefix(href, "#") {
			return
		}

		rowText := cleanText(row.Text())
		rec := domain.ScrapedRecord{
			Name:      name,
			DetailURL: absoluteURL(href, src.BaseURL),
			DateRange: reDate.FindString(rowText),
		}
		// any text beyond the anchor itself is worth keeping as a snippet
		if snippet := strings.TrimSpace(strings.TrimPrefix(rowText, name)); snippet != "" && snippet != rowText {
			rec.Snippet = snippet
		}
		if img, ok := row.Find("img[src]").First().Attr("src"); ok {
			rec.ImageURL = absoluteURL(img, src.BaseURL)
		}
		if pdf, ok := row.Find(`a[href$=".pdf"]`).First().Attr("href"); ok {
			rec.PDFURL = absoluteURL(pdf, src.BaseURL)
		}
		out = append(out, rec)
	})

	return out
}

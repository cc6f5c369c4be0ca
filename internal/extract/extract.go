// Package extract turns one heterogeneous notice document into a
// deduplicated list of records. Strategies run most-structured first; the
// first one yielding anything wins, the rest are fallbacks for documents
// that don't match earlier structural assumptions.
package extract

import (
	"log"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"probatescout-engine/internal/config"
	"probatescout-engine/internal/domain"
)

type Extractor struct {
	counties []string
}

func New(counties []string) *Extractor {
	return &Extractor{counties: counties}
}

// Extract parses the document and returns records in discovery order,
// deduplicated by detail URL (or identity when no URL exists). Deterministic
// for a given document.
func (e *Extractor) Extract(htmlBody string, src config.Source) ([]domain.ScrapedRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return nil, err
	}

	records := extractStructuredList(doc, src)

	// The embedded blob enriches structured records by full-name match, or
	// becomes the primary source when the structured pass found nothing.
	blob := extractEmbeddedEntries(htmlBody)
	if len(records) > 0 {
		enrichByName(records, blob, src)
	} else {
		records = recordsFromEntries(blob, src)
	}

	if len(records) == 0 {
		records = extractGenericDOM(doc, src)
	}

	for i := range records {
		e.applyHeuristics(&records[i])
		records[i].SourceName = src.Name
	}

	out := dedupe(records)
	log.Printf("[extract:%s] records=%d (pre-dedupe=%d)", src.Name, len(out), len(records))
	return out, nil
}

func (e *Extractor) applyHeuristics(r *domain.ScrapedRecord) {
	text := r.Snippet
	if text == "" {
		text = r.Locality
	}
	if r.NoticeType == "" {
		r.NoticeType = ClassifyNoticeType(r.Name + " " + text)
	}
	if r.County == "" {
		r.County = ResolveCounty(text+" "+r.Locality, e.counties)
	}
	if r.FuneralHome == "" {
		r.FuneralHome = FuneralHomeFrom(text)
	}
	if r.SurvivedBy == "" {
		r.SurvivedBy = SurvivedByFrom(text)
	}
}

// dedupe keeps the first occurrence per key, preserving discovery order.
func dedupe(in []domain.ScrapedRecord) []domain.ScrapedRecord {
	seen := map[string]bool{}
	out := make([]domain.ScrapedRecord, 0, len(in))
	for _, r := range in {
		key := r.DedupeKey()
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

func enrichByName(records []domain.ScrapedRecord, entries []embeddedEntry, src config.Source) {
	if len(entries) == 0 {
		return
	}
	byName := make(map[string]embeddedEntry, len(entries))
	for _, en := range entries {
		k := nameKey(en.FullName)
		if k == "" {
			continue
		}
		if _, ok := byName[k]; !ok {
			byName[k] = en
		}
	}
	for i := range records {
		en, ok := byName[nameKey(records[i].Name)]
		if !ok {
			continue
		}
		records[i].FillFrom(domain.ScrapedRecord{
			Snippet:   en.Snippet,
			Locality:  en.Locality,
			DateRange: en.DateRange,
			ImageURL:  absoluteURL(en.PhotoURL, src.BaseURL),
			DetailURL: absoluteURL(en.URL, src.BaseURL),
		})
	}
}

func recordsFromEntries(entries []embeddedEntry, src config.Source) []domain.ScrapedRecord {
	var out []domain.ScrapedRecord
	for _, en := range entries {
		name := cleanText(en.FullName)
		if name == "" {
			continue
		}
		out = append(out, domain.ScrapedRecord{
			Name:      name,
			Snippet:   cleanText(en.Snippet),
			Locality:  cleanText(en.Locality),
			DateRange: cleanText(en.DateRange),
			ImageURL:  absoluteURL(en.PhotoURL, src.BaseURL),
			DetailURL: absoluteURL(en.URL, src.BaseURL),
		})
	}
	return out
}

func nameKey(name string) string {
	return strings.ToUpper(strings.Join(strings.Fields(name), " "))
}

func cleanText(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(s)
}

func absoluteURL(href, base string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return href
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return base + href
}

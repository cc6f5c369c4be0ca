package domain

import "strings"

// CandidateRecord is one row returned by a remote source, considered as a
// possible match for a target parcel or case.
type CandidateRecord struct {
	Attributes map[string]string `json:"attributes"`
	MatchScore int               `json:"matchScore"` // 0-100, 100 = exact identifier match
	SourceName string            `json:"sourceName"`
}

// Attr returns the raw attribute value for a field name, trimmed.
func (c CandidateRecord) Attr(field string) string {
	if field == "" || c.Attributes == nil {
		return ""
	}
	return strings.TrimSpace(c.Attributes[field])
}

// ScrapedRecord is one entity extracted from a notice document. Fields left
// empty by the initial extraction pass may be filled later by enrichment;
// populated fields are never overwritten.
type ScrapedRecord struct {
	Name        string `json:"name"`
	CaseNumber  string `json:"caseNumber,omitempty"`
	Snippet     string `json:"snippet,omitempty"`
	Locality    string `json:"locality,omitempty"`
	County      string `json:"county,omitempty"`
	DateRange   string `json:"dateRange,omitempty"`
	NoticeType  string `json:"noticeType,omitempty"`
	FuneralHome string `json:"funeralHome,omitempty"`
	SurvivedBy  string `json:"survivedBy,omitempty"`
	DetailURL   string `json:"detailUrl,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	PDFURL      string `json:"pdfUrl,omitempty"`
	SourceName  string `json:"sourceName,omitempty"`
}

// DedupeKey is stable across repeated extraction of the same document:
// detail URL when present, otherwise the normalized identity.
func (r ScrapedRecord) DedupeKey() string {
	if u := strings.TrimSpace(r.DetailURL); u != "" {
		return u
	}
	key := strings.ToUpper(strings.Join(strings.Fields(r.Name), " "))
	if r.CaseNumber != "" {
		key += "|" + strings.ToUpper(strings.TrimSpace(r.CaseNumber))
	}
	return key
}

// NeedsDetail reports whether the record still carries placeholder values
// that a detail-page fetch could fill.
func (r ScrapedRecord) NeedsDetail() bool {
	if strings.TrimSpace(r.DetailURL) == "" {
		return false
	}
	return isPlaceholder(r.Snippet) || isPlaceholder(r.Locality) || isPlaceholder(r.DateRange)
}

// FillFrom copies fields from other into r, but only where r's field is
// empty or a placeholder. Populated fields from an earlier pass always win.
func (r *ScrapedRecord) FillFrom(other ScrapedRecord) {
	fill := func(dst *string, src string) {
		if isPlaceholder(*dst) && strings.TrimSpace(src) != "" {
			*dst = strings.TrimSpace(src)
		}
	}
	fill(&r.Name, other.Name)
	fill(&r.CaseNumber, other.CaseNumber)
	fill(&r.Snippet, other.Snippet)
	fill(&r.Locality, other.Locality)
	fill(&r.County, other.County)
	fill(&r.DateRange, other.DateRange)
	fill(&r.NoticeType, other.NoticeType)
	fill(&r.FuneralHome, other.FuneralHome)
	fill(&r.SurvivedBy, other.SurvivedBy)
	fill(&r.DetailURL, other.DetailURL)
	fill(&r.ImageURL, other.ImageURL)
	fill(&r.PDFURL, other.PDFURL)
}

var placeholders = []string{"", "see details", "see notice", "details", "n/a"}

func isPlaceholder(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, p := range placeholders {
		if v == p {
			return true
		}
	}
	return false
}

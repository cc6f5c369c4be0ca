package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

// embeddedEntry is one object lifted from a script data blob. Sites name
// these fields inconsistently, so common aliases share a slot.
type embeddedEntry struct {
	FullName  string
	Snippet   string
	Locality  string
	DateRange string
	PhotoURL  string
	URL       string
}

type rawEntry struct {
	FullName string `json:"fullName"`

	Snippet     string `json:"snippet"`
	Description string `json:"description"`
	Body        string `json:"body"`

	Locality string `json:"locality"`
	Location string `json:"location"`
	City     string `json:"city"`

	DateRange string `json:"dateRange"`
	Dates     string `json:"dates"`

	PhotoURL string `json:"photoUrl"`
	Image    string `json:"image"`

	URL  string `json:"url"`
	Link string `json:"link"`
}

// reEntryObject matches flat JSON objects that carry a full-name key. Blobs
// are frequently malformed as a whole (trailing junk, JS assignment
// wrappers), so individual objects are fished out instead of parsing the
// whole script.
var reEntryObject = regexp.MustCompile(`\{[^{}]*"fullName"\s*:\s*"[^"]+"[^{}]*\}`)

// extractEmbeddedEntries scans the raw document for embedded JSON objects
// keyed by entity full name. Order of appearance is preserved.
func extractEmbeddedEntries(htmlBody string) []embeddedEntry {
	// Only look inside script bodies; matching the whole document would pick
	// up microdata attributes and escaped markup.
	var out []embeddedEntry
	for _, script := range scriptBodies(htmlBody) {
		if !strings.Contains(script, `"fullName"`) {
			continue
		}
		for _, m := range reEntryObject.FindAllString(script, -1) {
			var r rawEntry
			if err := json.Unmarshal([]byte(m), &r); err != nil {
				continue
			}
			en := embeddedEntry{
				FullName:  r.FullName,
				Snippet:   firstNonEmpty(r.Snippet, r.Description, r.Body),
				Locality:  firstNonEmpty(r.Locality, r.Location, r.City),
				DateRange: firstNonEmpty(r.DateRange, r.Dates),
				PhotoURL:  firstNonEmpty(r.PhotoURL, r.Image),
				URL:       firstNonEmpty(r.URL, r.Link),
			}
			if en.FullName == "" {
				continue
			}
			// name-only objects are markup noise (nav items, org schema)
			if en.Snippet == "" && en.Locality == "" && en.DateRange == "" && en.URL == "" && en.PhotoURL == "" {
				continue
			}
			out = append(out, en)
		}
	}
	return out
}

var reScript = regexp.MustCompile(`(?is)<script([^>]*)>(.*?)</script>`)

func scriptBodies(htmlBody string) []string {
	matches := reScript.FindAllStringSubmatch(htmlBody, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		// ld+json blocks belong to the structured strategy
		if strings.Contains(strings.ToLower(m[1]), "ld+json") {
			continue
		}
		out = append(out, m[2])
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

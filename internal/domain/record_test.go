package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeKeyPrefersDetailURL(t *testing.T) {
	a := ScrapedRecord{Name: "Jane Doe", DetailURL: "https://n.example.com/1"}
	b := ScrapedRecord{Name: "Completely Different", DetailURL: "https://n.example.com/1"}
	assert.Equal(t, a.DedupeKey(), b.DedupeKey())

	c := ScrapedRecord{Name: "jane   doe", CaseNumber: "pb2024-001"}
	d := ScrapedRecord{Name: "JANE DOE", CaseNumber: "PB2024-001"}
	assert.Equal(t, c.DedupeKey(), d.DedupeKey(), "identity key is case and whitespace insensitive")
}

func TestNeedsDetail(t *testing.T) {
	assert.False(t, ScrapedRecord{Name: "No Link"}.NeedsDetail(), "nothing to fetch without a detail URL")
	assert.True(t, ScrapedRecord{Name: "X", DetailURL: "https://n.example.com/1"}.NeedsDetail())
	assert.True(t, ScrapedRecord{
		Name: "X", DetailURL: "https://n.example.com/1",
		Snippet: "See details", Locality: "Phoenix", DateRange: "1950 - 2024",
	}.NeedsDetail(), "placeholder snippet counts as missing")
	assert.False(t, ScrapedRecord{
		Name: "X", DetailURL: "https://n.example.com/1",
		Snippet: "real text", Locality: "Phoenix", DateRange: "1950 - 2024",
	}.NeedsDetail())
}

func TestFillFromKeepsPopulatedFields(t *testing.T) {
	r := ScrapedRecord{
		Name:     "Jane Doe",
		Snippet:  "original",
		Locality: "n/a", // placeholder, eligible
	}
	r.FillFrom(ScrapedRecord{
		Name:      "Jane A. Doe",
		Snippet:   "replacement",
		Locality:  "Phoenix",
		DateRange: "1950 - 2024",
	})

	assert.Equal(t, "Jane Doe", r.Name)
	assert.Equal(t, "original", r.Snippet)
	assert.Equal(t, "Phoenix", r.Locality)
	assert.Equal(t, "1950 - 2024", r.DateRange)
}

func TestCandidateAttr(t *testing.T) {
	c := CandidateRecord{Attributes: map[string]string{"OWNER": "  ESTATE OF DOE  "}}
	assert.Equal(t, "ESTATE OF DOE", c.Attr("OWNER"))
	assert.Empty(t, c.Attr(""))
	assert.Empty(t, CandidateRecord{}.Attr("OWNER"))
}

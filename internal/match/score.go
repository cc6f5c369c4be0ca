package match

import (
	"github.com/agnivade/levenshtein"
	"github.com/xrash/smetrics"
)

// Blend weights for the two string metrics. Jaro-Winkler is forgiving about
// transposed/abbreviated suffix tokens; the Levenshtein ratio keeps wholesale
// different street names from scoring high.
const (
	jaroWeight = 0.7
	levWeight  = 0.3
)

// Score returns a 0-100 similarity between two raw address strings. Both
// sides are normalized first; empty input on either side scores 0.
func Score(a, b string) int {
	na := Normalize(a).FullNormalized
	nb := Normalize(b).FullNormalized
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 100
	}

	jw := smetrics.JaroWinkler(na, nb, 0.7, 4)

	dist := levenshtein.ComputeDistance(na, nb)
	den := len(na)
	if len(nb) > den {
		den = len(nb)
	}
	lev := 1.0 - float64(dist)/float64(den)
	if lev < 0 {
		lev = 0
	}

	s := int((jaroWeight*jw + levWeight*lev) * 100)
	if s > 100 {
		s = 100
	}
	if s < 0 {
		s = 0
	}
	return s
}

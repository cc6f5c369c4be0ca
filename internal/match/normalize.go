package match

import "strings"

// NormalizedAddress is a derived, immutable view of a raw address string.
type NormalizedAddress struct {
	HouseNumber    string // leading digit run, "" if absent
	StreetToken    string // first non-directional token after the house number
	FullNormalized string // uppercased, punctuation-stripped, suffix-canonicalized
}

// suffixSynonyms canonicalizes the final street-suffix token. Closed table;
// matches the assessor conventions the situs fields use.
var suffixSynonyms = map[string]string{
	"AVENUE":    "AVE",
	"BOULEVARD": "BLVD",
	"CIRCLE":    "CIR",
	"COURT":     "CT",
	"DRIVE":     "DR",
	"HIGHWAY":   "HWY",
	"LANE":      "LN",
	"PARKWAY":   "PKWY",
	"PLACE":     "PL",
	"ROAD":      "RD",
	"SQUARE":    "SQ",
	"STREET":    "ST",
	"TERRACE":   "TER",
	"TRAIL":     "TRL",
	"WAY":       "WAY",
}

var directionals = map[string]bool{
	"N": true, "S": true, "E": true, "W": true,
	"NE": true, "NW": true, "SE": true, "SW": true,
	"NORTH": true, "SOUTH": true, "EAST": true, "WEST": true,
	"NORTHEAST": true, "NORTHWEST": true, "SOUTHEAST": true, "SOUTHWEST": true,
}

// Normalize canonicalizes a free-text postal address. Pure; malformed input
// degrades to empty-token output rather than an error.
func Normalize(raw string) NormalizedAddress {
	full := cleanAddress(raw)
	return NormalizedAddress{
		HouseNumber:    extractHouseNumber(full),
		StreetToken:    extractStreetToken(full),
		FullNormalized: full,
	}
}

func cleanAddress(raw string) string {
	s := strings.ToUpper(raw)
	s = strings.ReplaceAll(s, ",", " ")
	s = strings.ReplaceAll(s, ".", " ")
	s = strings.ReplaceAll(s, " ", " ")

	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	if canon, ok := suffixSynonyms[fields[len(fields)-1]]; ok {
		fields[len(fields)-1] = canon
	}
	return strings.Join(fields, " ")
}

// extractHouseNumber returns the leading digit run anchored at string start.
// Empty means the address cannot seed a structural query.
func extractHouseNumber(normalized string) string {
	i := 0
	for i < len(normalized) && normalized[i] >= '0' && normalized[i] <= '9' {
		i++
	}
	return normalized[:i]
}

// extractStreetToken returns the token after the house number, skipping a
// single directional prefix if present.
func extractStreetToken(normalized string) string {
	fields := strings.Fields(normalized)
	if len(fields) < 2 {
		return ""
	}
	rest := fields
	if extractHouseNumber(fields[0]) == fields[0] && fields[0] != "" {
		rest = fields[1:]
	}
	if len(rest) == 0 {
		return ""
	}
	if directionals[rest[0]] && len(rest) > 1 {
		rest = rest[1:]
	}
	return rest[0]
}

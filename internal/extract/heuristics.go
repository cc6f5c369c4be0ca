package extract

import (
	"regexp"
	"strings"
)

// noticeRule maps keyword sets to a category. Ordered; first match wins, so
// the more specific legal categories sit above the generic ones.
type noticeRule struct {
	label string
	any   []string
}

var noticeRules = []noticeRule{
	{"Probate Notice", []string{"probate", "estate of", "personal representative", "letters testamentary", "letters of administration"}},
	{"Foreclosure Notice", []string{"foreclosure", "trustee's sale", "trustee sale", "sheriff's sale", "notice of sale"}},
	{"Name Change", []string{"change of name", "name change"}},
	{"Death Notice", []string{"death notice", "passed away", "died on"}},
	{"Obituary", []string{"obituary", "funeral", "memorial service", "celebration of life", "interment", "visitation"}},
	{"Public Notice", []string{"public notice", "legal notice", "notice is hereby given"}},
}

// ClassifyNoticeType returns a category label for free text, or "" when
// nothing matches.
func ClassifyNoticeType(text string) string {
	t := strings.ToLower(text)
	for _, rule := range noticeRules {
		for _, needle := range rule.any {
			if strings.Contains(t, needle) {
				return rule.label
			}
		}
	}
	return ""
}

// ResolveCounty tests each configured county name against the text. An
// exact "<County> County" phrase beats a bare substring hit anywhere.
func ResolveCounty(text string, counties []string) string {
	t := strings.ToLower(text)

	for _, c := range counties {
		if strings.Contains(t, strings.ToLower(c)+" county") {
			return c
		}
	}
	for _, c := range counties {
		if strings.Contains(t, strings.ToLower(c)) {
			return c
		}
	}
	return ""
}

var reFuneralHome = regexp.MustCompile(`((?:[A-Z][A-Za-z'&.-]+\s+){1,4}(?:Funeral Home|Funeral Chapel|Mortuary|Cremation(?:\s+Services?)?|Memorial Chapel))`)

// FuneralHomeFrom pulls the handling funeral home name out of a snippet.
func FuneralHomeFrom(text string) string {
	m := reFuneralHome.FindString(text)
	return cleanText(m)
}

var reSurvivedBy = regexp.MustCompile(`(?i)survived by\s+([^.;]{3,200})`)

// SurvivedByFrom captures the clause following "survived by", up to the
// first sentence break.
func SurvivedByFrom(text string) string {
	m := reSurvivedBy.FindStringSubmatch(text)
	if len(m) != 2 {
		return ""
	}
	return cleanText(m[1])
}

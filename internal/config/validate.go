package config

import (
	"fmt"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate returns a normalized copy plus everything wrong with
// it. Field-mapping problems surface here, at load time, instead of deep
// inside a query cascade.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	trimList := func(xs []string) []string {
		seen := map[string]bool{}
		var ys []string
		for _, x := range xs {
			x = strings.TrimSpace(x)
			if x == "" {
				continue
			}
			key := strings.ToLower(x)
			if seen[key] {
				continue
			}
			seen[key] = true
			ys = append(ys, x)
		}
		return ys
	}

	out.Counties = trimList(out.Counties)

	// ---- App / outbound sanity ----

	if out.App.Port <= 0 || out.App.Port > 65535 {
		res.addErr("app.port must be 1..65535")
	}
	if out.Outbound.ReqPerSec <= 0 {
		out.Outbound.ReqPerSec = 1.0
	}
	if out.Outbound.Burst <= 0 {
		out.Outbound.Burst = 2
	}
	if out.Outbound.FetchTimeoutSeconds <= 0 {
		out.Outbound.FetchTimeoutSeconds = 20
	} else if out.Outbound.FetchTimeoutSeconds > 120 {
		res.addWarn("outbound.fetch_timeout_seconds is very high (%d); slow sources will stall enrichment batches.", out.Outbound.FetchTimeoutSeconds)
	}

	// ---- Sources ----

	if len(out.Sources) == 0 {
		res.addWarn("no sources configured; every resolution will return no match.")
	}

	seenNames := map[string]bool{}
	for i, s := range out.Sources {
		name := strings.TrimSpace(s.Name)
		out.Sources[i].Name = name
		if name == "" {
			res.addErr("sources[%d].name is required", i)
			continue
		}
		if seenNames[strings.ToLower(name)] {
			res.addErr("duplicate source name %q", name)
		}
		seenNames[strings.ToLower(name)] = true

		switch s.Kind {
		case "parcel", "case":
			if strings.TrimSpace(s.Endpoint) == "" {
				res.addErr("sources[%s].endpoint is required for kind=%s", name, s.Kind)
			}
			if s.Kind == "parcel" && s.Fields.Parcel == "" {
				res.addWarn("source %q has no parcel field; identifier resolution against it will be unavailable.", name)
			}
			if s.Kind == "case" && s.Fields.CaseNum == "" {
				res.addWarn("source %q has no case_num field; identifier resolution against it will be unavailable.", name)
			}
			if !s.HasSitus() {
				res.addWarn("source %q has no situs field and no composed fallback; address resolution against it will be unavailable.", name)
			}
			if s.Fields.SitusNumber != "" && s.Fields.SitusStreet == "" {
				res.addErr("source %q sets situs_number without situs_street; composed situs needs both", name)
			}
		case "notices":
			if strings.TrimSpace(s.SearchURL) == "" {
				res.addErr("sources[%s].search_url is required for kind=notices", name)
			} else if !strings.Contains(s.SearchURL, "%s") {
				res.addErr("sources[%s].search_url must contain %%s for the search term", name)
			}
		default:
			res.addErr("sources[%s].kind must be parcel, case, or notices (got %q)", name, s.Kind)
		}
	}

	if len(out.Counties) == 0 {
		res.addWarn("counties list is empty; county resolution on scraped notices is disabled.")
	}

	return out, res
}

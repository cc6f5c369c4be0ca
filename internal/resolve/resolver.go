// Package resolve finds at most one confident match for a parcel or case
// against a configured remote source, trying increasingly broad queries.
package resolve

import (
	"context"
	"fmt"
	"log"
	"strings"

	"probatescout-engine/internal/config"
	"probatescout-engine/internal/domain"
	"probatescout-engine/internal/gis"
	"probatescout-engine/internal/match"
)

const maxRows = 50

type Resolver struct {
	q     gis.Querier
	score func(a, b string) int
}

func New(q gis.Querier) *Resolver {
	return &Resolver{q: q, score: match.Score}
}

// ResolveByIdentifier finds a row whose identifier field equals id, trying
// punctuation-tolerant rewrites before a trailing substring match. The first
// variant returning rows wins; its first row comes back with score 100.
func (r *Resolver) ResolveByIdentifier(ctx context.Context, id string, src config.Source) (*domain.CandidateRecord, error) {
	idField := src.Fields.Parcel
	if src.Kind == "case" {
		idField = src.Fields.CaseNum
	}
	if idField == "" {
		return nil, &ConfigError{Source: src.Name, Reason: "no identifier field mapped for kind=" + src.Kind}
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	stripped := stripSeparators(id)

	var attempts []Attempt
	add := func(label, where string) {
		attempts = append(attempts, Attempt{
			Label: label,
			Run: func(ctx context.Context) ([]map[string]string, error) {
				return r.q.Query(ctx, src.Endpoint, where, src.OutFields, maxRows)
			},
		})
	}

	add("exact", fmt.Sprintf("%s = '%s'", idField, escape(id)))
	if stripped != id {
		add("exact-stripped", fmt.Sprintf("%s = '%s'", idField, escape(stripped)))
	}
	add("upper-exact", fmt.Sprintf("UPPER(%s) = '%s'", idField, escape(strings.ToUpper(id))))
	if stripped != id {
		add("upper-exact-stripped", fmt.Sprintf("UPPER(%s) = '%s'", idField, escape(strings.ToUpper(stripped))))
	}
	// substring last: it can return false positives
	add("contains", fmt.Sprintf("UPPER(%s) LIKE '%%%s%%'", idField, escape(strings.ToUpper(stripped))))

	rows, winner, outcomes, allTransport, sawTimeout := runFirstRows(ctx, src.Name, attempts)
	if len(rows) == 0 {
		if allTransport {
			return nil, &ExhaustedError{Source: src.Name, Timeout: sawTimeout, Outcomes: outcomes}
		}
		return nil, nil
	}

	log.Printf("[resolve:%s] identifier matched variant=%s rows=%d", src.Name, winner, len(rows))
	return &domain.CandidateRecord{
		Attributes: rows[0],
		MatchScore: 100,
		SourceName: src.Name,
	}, nil
}

// ResolveByAddress runs the structural query cascade for a free-text
// address. The first query returning rows ends the cascade; its rows are
// scored against the normalized target and the best one is returned if it
// clears the acceptance threshold.
func (r *Resolver) ResolveByAddress(ctx context.Context, address, city, zip string, src config.Source) (*domain.CandidateRecord, error) {
	if !src.HasSitus() {
		return nil, &ConfigError{Source: src.Name, Reason: "no situs field mapped and no composed fallback"}
	}

	target := match.Normalize(address)
	if target.HouseNumber == "" {
		return nil, ErrNoHouseNumber
	}

	city = strings.ToUpper(strings.TrimSpace(city))
	zip = strings.TrimSpace(zip)

	attempts := r.addressAttempts(src, target, city)
	rows, winner, outcomes, allTransport, sawTimeout := runFirstRows(ctx, src.Name, attempts)
	if len(rows) == 0 {
		if allTransport {
			return nil, &ExhaustedError{Source: src.Name, Timeout: sawTimeout, Outcomes: outcomes}
		}
		return nil, nil
	}

	best := -1
	var bestRow map[string]string
	for _, row := range rows {
		if zip != "" {
			if rowZip := rowField(row, src.Fields.Zip); rowZip != "" && !zipAgrees(zip, rowZip) {
				continue // hard filter, not a score penalty
			}
		}
		comparable := situsOf(row, src)
		if comparable == "" {
			continue
		}
		s := r.score(target.FullNormalized, comparable)
		if s > best { // strict: ties keep the first-seen row
			best = s
			bestRow = row
		}
	}

	if bestRow == nil || best < config.AcceptScore {
		log.Printf("[resolve:%s] address cascade variant=%s rows=%d best=%d (below threshold)", src.Name, winner, len(rows), best)
		return nil, nil
	}

	log.Printf("[resolve:%s] address matched variant=%s rows=%d score=%d", src.Name, winner, len(rows), best)
	return &domain.CandidateRecord{
		Attributes: bestRow,
		MatchScore: best,
		SourceName: src.Name,
	}, nil
}

// Many tries sources in order; a failure for one source means "try the
// next". An error surfaces only when every source failed — a single clean
// "no match" answer downgrades the whole run to a quiet no-match.
func Many(ctx context.Context, resolveOne func(config.Source) (*domain.CandidateRecord, error), sources []config.Source) (*domain.CandidateRecord, error) {
	var lastErr error
	sawClean := false

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := resolveOne(src)
		if err != nil {
			lastErr = err
			log.Printf("[resolve] source=%s err=%v (trying next source)", src.Name, err)
			continue
		}
		sawClean = true
		if rec != nil {
			return rec, nil
		}
	}

	if !sawClean && lastErr != nil {
		return nil, lastErr
	}
	return nil, nil
}

func (r *Resolver) addressAttempts(src config.Source, target match.NormalizedAddress, city string) []Attempt {
	cityClause := ""
	if city != "" && src.Fields.City != "" {
		cityClause = fmt.Sprintf(" AND UPPER(%s) LIKE '%s%%'", src.Fields.City, escape(city))
	}

	var variants []struct{ label, where string }
	hn := escape(target.HouseNumber)
	street := escape(target.StreetToken)

	if src.Fields.Situs != "" {
		s := src.Fields.Situs
		numStreet := fmt.Sprintf("UPPER(%s) LIKE '%s %%%s%%'", s, hn, street)
		numOnly := fmt.Sprintf("UPPER(%s) LIKE '%s %%'", s, hn)
		if cityClause != "" {
			variants = append(variants, struct{ label, where string }{"num-street-city", numStreet + cityClause})
		}
		variants = append(variants, struct{ label, where string }{"num-street", numStreet})
		if cityClause != "" {
			variants = append(variants, struct{ label, where string }{"num-city", numOnly + cityClause})
		}
		variants = append(variants, struct{ label, where string }{"num-only", numOnly})
	} else {
		// composed situs: separate number/street columns
		numStreet := fmt.Sprintf("%s = '%s' AND UPPER(%s) LIKE '%s%%'", src.Fields.SitusNumber, hn, src.Fields.SitusStreet, street)
		numOnly := fmt.Sprintf("%s = '%s'", src.Fields.SitusNumber, hn)
		if cityClause != "" {
			variants = append(variants, struct{ label, where string }{"num-street-city", numStreet + cityClause})
		}
		variants = append(variants, struct{ label, where string }{"num-street", numStreet})
		if cityClause != "" {
			variants = append(variants, struct{ label, where string }{"num-city", numOnly + cityClause})
		}
		variants = append(variants, struct{ label, where string }{"num-only", numOnly})
	}

	attempts := make([]Attempt, 0, len(variants))
	for _, v := range variants {
		where := v.where
		attempts = append(attempts, Attempt{
			Label: v.label,
			Run: func(ctx context.Context) ([]map[string]string, error) {
				return r.q.Query(ctx, src.Endpoint, where, src.OutFields, maxRows)
			},
		})
	}
	return attempts
}

// situsOf reconstructs a comparable address string from the source's
// configured fields, or the jurisdiction fallback composition.
func situsOf(row map[string]string, src config.Source) string {
	var parts []string
	if src.Fields.Situs != "" {
		situs := rowField(row, src.Fields.Situs)
		if situs == "" {
			return ""
		}
		parts = append(parts, situs)
	} else {
		num := rowField(row, src.Fields.SitusNumber)
		street := rowField(row, src.Fields.SitusStreet)
		if num == "" && street == "" {
			return ""
		}
		for _, p := range []string{num, rowField(row, src.Fields.SitusDir), street, rowField(row, src.Fields.SitusSuffix)} {
			if p != "" {
				parts = append(parts, p)
			}
		}
	}
	if c := rowField(row, src.Fields.City); c != "" {
		parts = append(parts, c)
	}
	if st := rowField(row, src.Fields.State); st != "" {
		parts = append(parts, st)
	}
	return strings.Join(parts, " ")
}

func rowField(row map[string]string, field string) string {
	if field == "" {
		return ""
	}
	return strings.TrimSpace(row[field])
}

func zipAgrees(want, got string) bool {
	w, g := want, got
	if len(w) > 5 {
		w = w[:5]
	}
	if len(g) > 5 {
		g = g[:5]
	}
	return w == g
}

func stripSeparators(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '-', ' ', '.', '/', '_':
			return -1
		}
		return r
	}, s)
}

func escape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

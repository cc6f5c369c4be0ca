package httpapi

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync/atomic"

	"probatescout-engine/internal/config"
	"probatescout-engine/internal/domain"
	"probatescout-engine/internal/events"
	"probatescout-engine/internal/resolve"
	"probatescout-engine/internal/store"
)

type ResolveHandler struct {
	DB       *sql.DB
	CfgVal   *atomic.Value // config.Config
	Hub      *events.Hub
	Resolver *resolve.Resolver
}

type resolveReq struct {
	Kind   string `json:"kind"` // identifier | address
	Query  string `json:"query"`
	City   string `json:"city,omitempty"`
	Zip    string `json:"zip,omitempty"`
	Source string `json:"source,omitempty"` // restrict to one configured source
}

type resolveResp struct {
	Matched   bool                    `json:"matched"`
	Candidate *domain.CandidateRecord `json:"candidate,omitempty"`
}

// Resolve runs one parcel/case resolution synchronously. Sources are tried
// in configured order until one yields a confident match.
func (h ResolveHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req resolveReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		WriteError(w, r, http.StatusBadRequest, "missing_query", "query is required")
		return
	}
	if req.Kind != "identifier" && req.Kind != "address" {
		WriteError(w, r, http.StatusBadRequest, "invalid_kind", `kind must be "identifier" or "address"`)
		return
	}

	cfg := h.CfgVal.Load().(config.Config)
	sources, ok := pickSources(cfg, req.Source)
	if !ok {
		WriteError(w, r, http.StatusBadRequest, "unknown_source", "no such source: "+req.Source)
		return
	}
	if len(sources) == 0 {
		WriteError(w, r, http.StatusInternalServerError, "source_misconfigured", "no parcel or case sources configured")
		return
	}

	ctx := r.Context()
	resolveOne := func(src config.Source) (*domain.CandidateRecord, error) {
		if req.Kind == "address" {
			return h.Resolver.ResolveByAddress(ctx, req.Query, req.City, req.Zip, src)
		}
		return h.Resolver.ResolveByIdentifier(ctx, req.Query, src)
	}

	cand, err := resolve.Many(ctx, resolveOne, sources)
	if err != nil {
		writeResolveError(w, r, err)
		return
	}

	h.recordLookup(r, req, cand)
	writeJSON(w, resolveResp{Matched: cand != nil, Candidate: cand})
}

func (h ResolveHandler) recordLookup(r *http.Request, req resolveReq, cand *domain.CandidateRecord) {
	done := events.LookupDone{Kind: req.Kind, Query: req.Query, Matched: cand != nil}
	lookup := store.Lookup{Kind: req.Kind, Query: req.Query, Matched: cand != nil}
	if cand != nil {
		done.Source = cand.SourceName
		done.Score = cand.MatchScore
		lookup.Source = cand.SourceName
		lookup.Score = cand.MatchScore
		if b, err := json.Marshal(cand); err == nil {
			lookup.Result = b
		}
	}
	if h.DB != nil {
		if _, err := store.InsertLookup(r.Context(), h.DB, lookup); err != nil {
			log.Printf("[httpapi] lookup history insert failed: %v", err)
		}
	}
	h.Hub.PublishTyped(RequestIDFrom(r.Context()), events.TypeLookupDone, done)
}

// pickSources returns the resolution-capable sources to try, narrowed to a
// single named source when requested. ok=false means the name is unknown.
func pickSources(cfg config.Config, name string) ([]config.Source, bool) {
	if name != "" {
		src, found := cfg.SourceByName(name)
		if !found || src.Kind == "notices" {
			return nil, false
		}
		return []config.Source{src}, true
	}
	var out []config.Source
	for _, s := range cfg.Sources {
		if s.Kind == "parcel" || s.Kind == "case" {
			out = append(out, s)
		}
	}
	return out, true
}

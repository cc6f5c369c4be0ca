// Package search runs one notice search end to end: fan out over the
// configured notice sources, extract records from each page, then enrich
// from detail pages, streaming progress to subscribers the whole way.
package search

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"probatescout-engine/internal/config"
	"probatescout-engine/internal/domain"
	"probatescout-engine/internal/enrich"
	"probatescout-engine/internal/events"
	"probatescout-engine/internal/extract"
	"probatescout-engine/internal/fetch"
	"probatescout-engine/internal/store"
)

// ErrAlreadyRunning is returned when a search is started while another one
// is still in flight. One search at a time keeps outbound traffic bounded.
var ErrAlreadyRunning = errors.New("a search is already running")

// Status is a snapshot of the current or most recent search run.
type Status struct {
	Running   bool            `json:"running"`
	Term      string          `json:"term,omitempty"`
	StartedAt time.Time       `json:"startedAt,omitzero"`
	DoneAt    time.Time       `json:"doneAt,omitzero"`
	Found     int             `json:"found"`
	Progress  enrich.Progress `json:"progress"`
	LastError string          `json:"lastError,omitempty"`
}

// Runner owns search execution and the last run's results.
type Runner struct {
	cfg     func() config.Config
	fetcher *fetch.Client
	hub     *events.Hub
	db      *sql.DB // nil disables caching and history

	running atomic.Bool
	status  atomic.Value // Status

	mu      sync.Mutex
	results []domain.ScrapedRecord
}

func NewRunner(cfg func() config.Config, fetcher *fetch.Client, hub *events.Hub, db *sql.DB) *Runner {
	r := &Runner{cfg: cfg, fetcher: fetcher, hub: hub, db: db}
	r.status.Store(Status{})
	return r
}

// Status returns the latest snapshot.
func (r *Runner) Status() Status {
	return r.status.Load().(Status)
}

// Results returns a copy of the most recent run's records. While a run is
// in flight this is the partial set as of the last settled batch.
func (r *Runner) Results() []domain.ScrapedRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.ScrapedRecord, len(r.results))
	copy(out, r.results)
	return out
}

// storeResults publishes a snapshot of records. The enricher keeps mutating
// the slice it was handed, so the snapshot is a copy, never an alias.
func (r *Runner) storeResults(records []domain.ScrapedRecord) {
	snap := make([]domain.ScrapedRecord, len(records))
	copy(snap, records)
	r.mu.Lock()
	r.results = snap
	r.mu.Unlock()
}

// Run executes one search for term and returns the enriched records.
// Returns ErrAlreadyRunning if a run is in flight.
func (r *Runner) Run(ctx context.Context, reqID, term string) ([]domain.ScrapedRecord, error) {
	term = strings.TrimSpace(term)
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer r.running.Store(false)

	cfg := r.cfg()
	st := Status{Running: true, Term: term, StartedAt: time.Now().UTC()}
	r.status.Store(st)
	r.hub.PublishTyped(reqID, events.TypeSearchStarted, events.SearchProgress{Term: term, Stage: "started"})

	records, err := r.collect(ctx, reqID, cfg, term)
	if err != nil {
		st.Running = false
		st.DoneAt = time.Now().UTC()
		st.LastError = err.Error()
		r.status.Store(st)
		r.hub.PublishTyped(reqID, events.TypeSearchError, events.SearchProgress{Term: term, Stage: "error", Error: err.Error()})
		return nil, err
	}

	st.Found = len(records)
	r.status.Store(st)
	r.storeResults(records)

	enricher := enrich.New(r.detailFetch(cfg), r.detailParse(cfg))
	progress := enricher.Run(ctx, records, func(p enrich.Progress) {
		// each settled batch has already been merged into records, so the
		// partial set is published alongside the counts
		r.storeResults(records)
		st.Progress = p
		r.status.Store(st)
		r.hub.PublishTyped(reqID, events.TypeEnrichProgress, events.SearchProgress{
			Term: term, Stage: "enriching", Found: len(records), Fetched: p.Fetched, Total: p.Total,
		})
	})
	r.storeResults(records)

	st.Running = false
	st.DoneAt = time.Now().UTC()
	st.Progress = progress
	r.status.Store(st)

	r.recordHistory(ctx, term, records)
	r.hub.PublishTyped(reqID, events.TypeSearchDone, events.SearchProgress{
		Term: term, Stage: "done", Found: len(records), Fetched: progress.Fetched, Total: progress.Total,
	})
	return records, nil
}

// collect fetches every notices source concurrently and merges the
// extracted records, first occurrence winning across sources.
func (r *Runner) collect(ctx context.Context, reqID string, cfg config.Config, term string) ([]domain.ScrapedRecord, error) {
	var sources []config.Source
	for _, s := range cfg.Sources {
		if s.Kind == "notices" {
			sources = append(sources, s)
		}
	}
	if len(sources) == 0 {
		return nil, errors.New("no notices sources configured")
	}

	ex := extract.New(cfg.Counties)
	timeout := time.Duration(cfg.Outbound.FetchTimeoutSeconds) * time.Second

	var mu sync.Mutex
	perSource := make(map[string][]domain.ScrapedRecord, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(3)
	for _, src := range sources {
		src := src
		g.Go(func() error {
			pageURL := strings.Replace(src.SearchURL, "%s", url.QueryEscape(term), 1)

			body, cached := r.cachedBody(gctx, pageURL)
			if !cached {
				var err error
				body, err = r.fetcher.Document(gctx, pageURL, fetch.Options{Timeout: timeout})
				if err != nil {
					// one dead source never sinks the run
					log.Printf("[search:%s] fetch failed: %v (continuing)", src.Name, err)
					return nil
				}
				r.cacheBody(gctx, pageURL, body)
			}

			recs, err := ex.Extract(body, src)
			if err != nil {
				log.Printf("[search:%s] extract failed: %v (continuing)", src.Name, err)
				return nil
			}
			mu.Lock()
			perSource[src.Name] = recs
			mu.Unlock()
			r.hub.PublishTyped(reqID, events.TypeSourceFetched, events.SearchProgress{
				Term: term, Source: src.Name, Stage: "fetched", Found: len(recs),
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// merge in configured source order so output is deterministic
	seen := map[string]bool{}
	var out []domain.ScrapedRecord
	for _, src := range sources {
		for _, rec := range perSource[src.Name] {
			key := rec.DedupeKey()
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, rec)
		}
	}
	log.Printf("[search] term=%q sources=%d records=%d", term, len(sources), len(out))
	return out, nil
}

func (r *Runner) detailFetch(cfg config.Config) enrich.FetchFunc {
	timeout := time.Duration(cfg.Outbound.FetchTimeoutSeconds) * time.Second
	return func(ctx context.Context, u string) (string, error) {
		if body, ok := r.cachedBody(ctx, u); ok {
			return body, nil
		}
		body, err := r.fetcher.Document(ctx, u, fetch.Options{Timeout: timeout})
		if err != nil {
			return "", err
		}
		r.cacheBody(ctx, u, body)
		return body, nil
	}
}

func (r *Runner) detailParse(cfg config.Config) enrich.ParseFunc {
	ex := extract.New(cfg.Counties)
	return func(body, sourceURL string) (domain.ScrapedRecord, error) {
		return ex.ExtractDetail(body, baseOf(sourceURL))
	}
}

func (r *Runner) recordHistory(ctx context.Context, term string, records []domain.ScrapedRecord) {
	if r.db == nil {
		return
	}
	summary, _ := json.Marshal(map[string]any{"count": len(records)})
	if _, err := store.InsertLookup(ctx, r.db, store.Lookup{
		Kind:    "search",
		Query:   term,
		Matched: len(records) > 0,
		Result:  summary,
	}); err != nil {
		log.Printf("[search] history insert failed: %v", err)
	}
}

func (r *Runner) cachedBody(ctx context.Context, u string) (string, bool) {
	if r.db == nil {
		return "", false
	}
	body, ok, err := store.CachedDocument(ctx, r.db, u)
	if err != nil {
		log.Printf("[search] doc cache read failed: %v", err)
		return "", false
	}
	return body, ok
}

func (r *Runner) cacheBody(ctx context.Context, u, body string) {
	if r.db == nil {
		return
	}
	if err := store.CacheDocument(ctx, r.db, u, body); err != nil {
		log.Printf("[search] doc cache write failed: %v", err)
	}
}

func baseOf(raw string) string {
	pu, err := url.Parse(raw)
	if err != nil || pu.Scheme == "" || pu.Host == "" {
		return ""
	}
	return pu.Scheme + "://" + pu.Host
}

// Package enrich fills in listing records whose detail pages carry the
// real content. Detail fetches run in small concurrent batches with a
// fixed pause between batches so a single search never hammers a county
// site, and a hard per-run ceiling bounds total outbound traffic.
package enrich

import (
	"context"
	"log"
	"sync"
	"time"

	"probatescout-engine/internal/config"
	"probatescout-engine/internal/domain"
)

// FetchFunc retrieves the raw detail document for a URL.
type FetchFunc func(ctx context.Context, url string) (string, error)

// ParseFunc turns a detail document into a partial record.
type ParseFunc func(htmlBody, sourceURL string) (domain.ScrapedRecord, error)

// Progress is the cumulative state reported after each settled batch.
type Progress struct {
	Fetched int `json:"fetched"` // detail fetches issued so far
	Merged  int `json:"merged"`  // records successfully enriched
	Failed  int `json:"failed"`
	Total   int `json:"total"` // records selected for enrichment this run
}

// Scheduler runs detail enrichment over a slice of scraped records.
type Scheduler struct {
	fetch FetchFunc
	parse ParseFunc

	batchSize int
	delay     time.Duration
	maxPerRun int
}

func New(fetch FetchFunc, parse ParseFunc) *Scheduler {
	return &Scheduler{
		fetch:     fetch,
		parse:     parse,
		batchSize: config.EnrichBatchSize,
		delay:     config.EnrichBatchDelayMs * time.Millisecond,
		maxPerRun: config.EnrichCap,
	}
}

// Run enriches records in place and returns the final cumulative progress.
// Records that already carry real content are skipped; a failed fetch or
// parse leaves its record untouched and never affects the rest of the
// batch. When onProgress is non-nil it is invoked once per settled batch.
func (s *Scheduler) Run(ctx context.Context, records []domain.ScrapedRecord, onProgress func(Progress)) Progress {
	var idxs []int
	for i := range records {
		if records[i].NeedsDetail() {
			idxs = append(idxs, i)
		}
	}
	if len(idxs) > s.maxPerRun {
		log.Printf("[enrich] %d records need detail, capping at %d", len(idxs), s.maxPerRun)
		idxs = idxs[:s.maxPerRun]
	}

	p := Progress{Total: len(idxs)}
	for start := 0; start < len(idxs); start += s.batchSize {
		if start > 0 {
			select {
			case <-ctx.Done():
				log.Printf("[enrich] cancelled after %d/%d fetches", p.Fetched, p.Total)
				return p
			case <-time.After(s.delay):
			}
		}

		end := start + s.batchSize
		if end > len(idxs) {
			end = len(idxs)
		}
		batch := idxs[start:end]

		details := make([]domain.ScrapedRecord, len(batch))
		errs := make([]error, len(batch))
		var wg sync.WaitGroup
		for j, idx := range batch {
			wg.Add(1)
			go func(j, idx int) {
				defer wg.Done()
				url := records[idx].DetailURL
				body, err := s.fetch(ctx, url)
				if err != nil {
					errs[j] = err
					return
				}
				details[j], errs[j] = s.parse(body, url)
			}(j, idx)
		}
		wg.Wait()

		// merge sequentially once the batch has settled
		for j, idx := range batch {
			p.Fetched++
			if errs[j] != nil {
				p.Failed++
				log.Printf("[enrich] detail fetch failed url=%s: %v (continuing)", records[idx].DetailURL, errs[j])
				continue
			}
			records[idx].FillFrom(details[j])
			p.Merged++
		}
		if onProgress != nil {
			onProgress(p)
		}
	}

	log.Printf("[enrich] done fetched=%d merged=%d failed=%d total=%d", p.Fetched, p.Merged, p.Failed, p.Total)
	return p
}

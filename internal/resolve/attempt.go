package resolve

import (
	"context"
	"log"

	"probatescout-engine/internal/fetch"
)

// Attempt is one query variant in a cascade, most specific first.
type Attempt struct {
	Label string
	Run   func(ctx context.Context) ([]map[string]string, error)
}

// Outcome records what a single variant did, for logging and tests.
type Outcome struct {
	Label string `json:"label"`
	Rows  int    `json:"rows"`
	Err   string `json:"err,omitempty"`
}

// runFirstRows executes attempts in order and stops at the first one that
// returns any rows. A variant error is downgraded to "zero rows" so the
// cascade keeps going; broader variants are never tried once rows exist.
func runFirstRows(ctx context.Context, source string, attempts []Attempt) (rows []map[string]string, winner string, outcomes []Outcome, allTransport bool, sawTimeout bool) {
	allTransport = len(attempts) > 0

	for _, a := range attempts {
		got, err := a.Run(ctx)
		oc := Outcome{Label: a.Label, Rows: len(got)}
		if err != nil {
			oc.Err = err.Error()
			outcomes = append(outcomes, oc)
			if !fetch.IsTransport(err) {
				allTransport = false
			}
			if fetch.IsTimeout(err) {
				sawTimeout = true
			}
			log.Printf("[resolve:%s] variant=%s err=%v (continuing)", source, a.Label, err)
			continue
		}

		outcomes = append(outcomes, oc)
		if len(got) > 0 {
			return got, a.Label, outcomes, false, sawTimeout
		}
		// a clean empty answer is a real answer, not an outage
		allTransport = false
	}
	return nil, "", outcomes, allTransport, sawTimeout
}

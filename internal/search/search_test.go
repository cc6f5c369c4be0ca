package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"probatescout-engine/internal/config"
	"probatescout-engine/internal/domain"
	"probatescout-engine/internal/events"
	"probatescout-engine/internal/fetch"
)

const listingPage = `<!doctype html><html><body>
<script>
var noticeData = [
 {"fullName":"Harold Greer","url":"/notice/1"}
];
</script>
</body></html>`

const detailPage = `<!doctype html><html><body><div id="content">
<h1>Harold Greer</h1>
<p>Harold Greer, 82, of Phoenix, passed away Jan 3, 2025. He is survived by
his wife Ruth. Services at Desert Rose Funeral Home. Probate of the estate
will follow in Maricopa County.</p>
</div></body></html>`

func testConfig(base string) config.Config {
	var cfg config.Config
	cfg.Counties = []string{"Maricopa", "Pima"}
	cfg.Outbound.FetchTimeoutSeconds = 5
	cfg.Sources = []config.Source{{
		Name:      "county-notices",
		Kind:      "notices",
		SearchURL: base + "/search?q=%s",
		BaseURL:   base,
	}}
	return cfg
}

func newTestRunner(cfg config.Config) *Runner {
	return NewRunner(func() config.Config { return cfg }, fetch.NewClient(nil), events.NewHub(), nil)
}

func TestRunFetchesExtractsAndEnriches(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/search"):
			_, _ = w.Write([]byte(listingPage))
		case r.URL.Path == "/notice/1":
			_, _ = w.Write([]byte(detailPage))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	r := newTestRunner(testConfig(ts.URL))
	records, err := r.Run(context.Background(), "req-1", "greer")
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "Harold Greer", rec.Name)
	assert.Equal(t, ts.URL+"/notice/1", rec.DetailURL)
	assert.Contains(t, rec.Snippet, "passed away")
	assert.Equal(t, "Probate Notice", rec.NoticeType)
	assert.Equal(t, "Maricopa", rec.County)
	assert.Equal(t, "Desert Rose Funeral Home", rec.FuneralHome)
	assert.Contains(t, rec.SurvivedBy, "his wife Ruth")

	st := r.Status()
	assert.False(t, st.Running)
	assert.Equal(t, 1, st.Found)
	assert.Equal(t, 1, st.Progress.Fetched)
	assert.Equal(t, records, r.Results())
}

func TestRunMergesSourcesFirstSeenWins(t *testing.T) {
	var detail string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := `<script>var noticeData = [{"fullName":"Alma Diaz","snippet":"from ` + r.URL.Path +
			`","locality":"Phoenix","dateRange":"1941 - 2025","url":"` + detail + `"}];</script>`
		_, _ = w.Write([]byte(page))
	}))
	defer ts.Close()
	detail = ts.URL + "/notice/alma"

	cfg := testConfig(ts.URL)
	cfg.Sources = []config.Source{
		{Name: "alpha", Kind: "notices", SearchURL: ts.URL + "/alpha?q=%s", BaseURL: ts.URL},
		{Name: "beta", Kind: "notices", SearchURL: ts.URL + "/beta?q=%s", BaseURL: ts.URL},
	}

	records, err := newTestRunner(cfg).Run(context.Background(), "", "diaz")
	require.NoError(t, err)
	require.Len(t, records, 1, "same detail URL across sources collapses to one record")
	assert.Equal(t, "from /alpha", records[0].Snippet)
	assert.Equal(t, "alpha", records[0].SourceName)
}

func TestRunContinuesPastDeadSource(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/dead") {
			http.Error(w, "upstream offline", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`<script>var noticeData = [{"fullName":"Omar Reyes","snippet":"s","locality":"Tempe","dateRange":"1950 - 2025","url":"/notice/omar"}];</script>`))
	}))
	defer ts.Close()

	cfg := testConfig(ts.URL)
	cfg.Sources = []config.Source{
		{Name: "dead", Kind: "notices", SearchURL: ts.URL + "/dead?q=%s", BaseURL: ts.URL},
		{Name: "live", Kind: "notices", SearchURL: ts.URL + "/live?q=%s", BaseURL: ts.URL},
	}

	records, err := newTestRunner(cfg).Run(context.Background(), "", "reyes")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Omar Reyes", records[0].Name)
}

func TestRunRequiresNoticesSources(t *testing.T) {
	cfg := testConfig("http://unused.invalid")
	cfg.Sources = []config.Source{{Name: "parcels", Kind: "parcel", Endpoint: "http://unused.invalid/arcgis"}}

	_, err := newTestRunner(cfg).Run(context.Background(), "", "greer")
	require.Error(t, err)

	st := newTestRunner(cfg).Status()
	assert.False(t, st.Running)
}

func TestResultsObservableDuringEnrichment(t *testing.T) {
	// four records needing detail span two batches, so there is a window
	// between the first settled batch and the end of the run
	listing := `<script>var noticeData = [
 {"fullName":"A Ward","url":"/notice/1"},
 {"fullName":"B Ward","url":"/notice/2"},
 {"fullName":"C Ward","url":"/notice/3"},
 {"fullName":"D Ward","url":"/notice/4"}];</script>`
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/search") {
			_, _ = w.Write([]byte(listing))
			return
		}
		fmt.Fprintf(w, `<div id="content"><h1>Ward</h1><p>Notice text for %s.</p></div>`, r.URL.Path)
	}))
	defer ts.Close()

	hub := events.NewHub()
	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	cfg := testConfig(ts.URL)
	r := NewRunner(func() config.Config { return cfg }, fetch.NewClient(nil), hub, nil)

	done := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background(), "req-4", "ward")
		done <- err
	}()

	deadline := time.After(10 * time.Second)
	var partial []domain.ScrapedRecord
wait:
	for {
		select {
		case evt := <-sub:
			if strings.Contains(evt, `"type":"`+events.TypeEnrichProgress+`"`) {
				partial = r.Results()
				break wait
			}
		case <-deadline:
			t.Fatal("no enrich_progress event arrived")
		}
	}

	require.Len(t, partial, 4, "the full record set is visible before the run ends")
	enriched := 0
	for _, rec := range partial {
		if rec.Snippet != "" {
			enriched++
		}
	}
	assert.Equal(t, 3, enriched, "the first settled batch is merged into the visible set")

	require.NoError(t, <-done)
	assert.Len(t, r.Results(), 4)
}

func TestRunPublishesLifecycleEvents(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<script>var noticeData = [{"fullName":"Lena Holt","snippet":"s","locality":"Mesa","dateRange":"1939 - 2025","url":"/notice/lena"}];</script>`))
	}))
	defer ts.Close()

	hub := events.NewHub()
	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	cfg := testConfig(ts.URL)
	r := NewRunner(func() config.Config { return cfg }, fetch.NewClient(nil), hub, nil)
	_, err := r.Run(context.Background(), "req-9", "holt")
	require.NoError(t, err)

	var types []string
drain:
	for {
		select {
		case evt := <-sub:
			for _, typ := range []string{events.TypeSearchStarted, events.TypeSourceFetched, events.TypeSearchDone} {
				if strings.Contains(evt, `"type":"`+typ+`"`) {
					types = append(types, typ)
				}
			}
		default:
			break drain
		}
	}
	assert.Equal(t, []string{events.TypeSearchStarted, events.TypeSourceFetched, events.TypeSearchDone}, types)
}

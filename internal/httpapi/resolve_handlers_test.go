package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"probatescout-engine/internal/config"
	"probatescout-engine/internal/events"
	"probatescout-engine/internal/fetch"
	"probatescout-engine/internal/resolve"
)

type stubQuerier struct {
	rows []map[string]string
	err  error
}

func (s stubQuerier) Query(_ context.Context, _ string, _ string, _ []string, _ int) ([]map[string]string, error) {
	return s.rows, s.err
}

func newResolveMux(q stubQuerier, cfg config.Config) *http.ServeMux {
	var cfgVal atomic.Value
	cfgVal.Store(cfg)
	return NewMux(Deps{
		Hub:      events.NewHub(),
		CfgVal:   &cfgVal,
		Resolver: resolve.New(q),
	})
}

func parcelConfig() config.Config {
	var cfg config.Config
	cfg.Sources = []config.Source{{
		Name:     "county-parcels",
		Kind:     "parcel",
		Endpoint: "https://gis.example.com/arcgis/rest/services/Parcels/MapServer/0",
		Fields:   config.FieldMap{Parcel: "APN", Owner: "OWNER", Situs: "SITUS", Zip: "ZIP"},
	}}
	return cfg
}

func postResolve(t *testing.T, mux *http.ServeMux, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/resolve", strings.NewReader(body))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func TestResolveIdentifierMatch(t *testing.T) {
	q := stubQuerier{rows: []map[string]string{{"APN": "123-45-678", "OWNER": "ESTATE OF DOE"}}}
	rr := postResolve(t, newResolveMux(q, parcelConfig()), `{"kind":"identifier","query":"123-45-678"}`)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"matched":true`)
	assert.Contains(t, rr.Body.String(), `"matchScore":100`)
}

func TestResolveNoMatchIsNotAnError(t *testing.T) {
	rr := postResolve(t, newResolveMux(stubQuerier{}, parcelConfig()), `{"kind":"identifier","query":"999-99-999"}`)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"matched":false`)
}

func TestResolveUnreachableSourceMapsToBadGateway(t *testing.T) {
	q := stubQuerier{err: &fetch.TransportError{URL: "https://gis.example.com", Status: 503}}
	rr := postResolve(t, newResolveMux(q, parcelConfig()), `{"kind":"identifier","query":"123-45-678"}`)

	require.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Contains(t, rr.Body.String(), "source_unreachable")
}

func TestResolveTimeoutMapsToGatewayTimeout(t *testing.T) {
	q := stubQuerier{err: &fetch.TransportError{URL: "https://gis.example.com", Timeout: true}}
	rr := postResolve(t, newResolveMux(q, parcelConfig()), `{"kind":"identifier","query":"123-45-678"}`)

	require.Equal(t, http.StatusGatewayTimeout, rr.Code)
	assert.Contains(t, rr.Body.String(), "source_timeout")
}

func TestResolveAddressWithoutHouseNumberIsUnprocessable(t *testing.T) {
	rr := postResolve(t, newResolveMux(stubQuerier{}, parcelConfig()), `{"kind":"address","query":"Main Street"}`)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "unresolvable_address")
}

func TestResolveRejectsBadRequests(t *testing.T) {
	mux := newResolveMux(stubQuerier{}, parcelConfig())

	assert.Equal(t, http.StatusBadRequest, postResolve(t, mux, `{"kind":"parcel","query":"x"}`).Code)
	assert.Equal(t, http.StatusBadRequest, postResolve(t, mux, `{"kind":"identifier"}`).Code)
	assert.Equal(t, http.StatusBadRequest, postResolve(t, mux, `{"kind":"identifier","query":"x","source":"nope"}`).Code)

	req := httptest.NewRequest(http.MethodGet, "/resolve", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

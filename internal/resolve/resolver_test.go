package resolve

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"probatescout-engine/internal/config"
	"probatescout-engine/internal/domain"
	"probatescout-engine/internal/fetch"
)

// fakeQuerier answers queries from an ordered script keyed by a substring of
// the WHERE clause, and records every call for short-circuit assertions.
type fakeQuerier struct {
	calls   []string
	answers []fakeAnswer
}

type fakeAnswer struct {
	whereContains string
	rows          []map[string]string
	err           error
}

func (f *fakeQuerier) Query(_ context.Context, _, where string, _ []string, _ int) ([]map[string]string, error) {
	f.calls = append(f.calls, where)
	for _, a := range f.answers {
		if strings.Contains(where, a.whereContains) {
			return a.rows, a.err
		}
	}
	return nil, nil
}

func parcelSource() config.Source {
	return config.Source{
		Name:     "test-parcels",
		Kind:     "parcel",
		Endpoint: "https://gis.example.gov/FeatureServer/0",
		Fields: config.FieldMap{
			Parcel: "APN",
			Situs:  "SITUS",
			City:   "CITY",
			Zip:    "ZIP",
		},
	}
}

func TestResolveByIdentifierExactFirst(t *testing.T) {
	q := &fakeQuerier{answers: []fakeAnswer{
		{whereContains: "APN = '123-45-678'", rows: []map[string]string{{"APN": "123-45-678"}}},
	}}
	r := New(q)

	rec, err := r.ResolveByIdentifier(context.Background(), "123-45-678", parcelSource())
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 100, rec.MatchScore)
	assert.Len(t, q.calls, 1, "exact hit must not trigger broader variants")
}

func TestResolveByIdentifierFallsBackToStripped(t *testing.T) {
	q := &fakeQuerier{answers: []fakeAnswer{
		{whereContains: "APN = '12345678'", rows: []map[string]string{{"APN": "12345678"}}},
	}}
	r := New(q)

	rec, err := r.ResolveByIdentifier(context.Background(), "123-45-678", parcelSource())
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "12345678", rec.Attributes["APN"])
	assert.Equal(t, 2, len(q.calls), "verbatim first, stripped second")
}

func TestResolveByIdentifierContainsIsLast(t *testing.T) {
	q := &fakeQuerier{answers: []fakeAnswer{
		{whereContains: "LIKE '%12345678%'", rows: []map[string]string{{"APN": "R12345678X"}}},
	}}
	r := New(q)

	rec, err := r.ResolveByIdentifier(context.Background(), "123-45-678", parcelSource())
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 5, len(q.calls), "contains runs only after every exact rewrite")
}

func TestResolveByIdentifierMissingFieldMapping(t *testing.T) {
	src := parcelSource()
	src.Fields.Parcel = ""
	r := New(&fakeQuerier{})

	_, err := r.ResolveByIdentifier(context.Background(), "123", src)
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
}

func TestResolveByAddressShortCircuits(t *testing.T) {
	q := &fakeQuerier{answers: []fakeAnswer{
		{whereContains: "CITY", rows: []map[string]string{{"SITUS": "100 N 31ST AVE", "ZIP": "85003"}}},
	}}
	r := New(q)

	rec, err := r.ResolveByAddress(context.Background(), "100 N 31ST AV", "Phoenix", "", parcelSource())
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Len(t, q.calls, 1, "rows from the most specific query stop the cascade")
	assert.GreaterOrEqual(t, rec.MatchScore, 90)
}

func TestResolveByAddressNoHouseNumber(t *testing.T) {
	q := &fakeQuerier{}
	r := New(q)

	_, err := r.ResolveByAddress(context.Background(), "Elm Street", "", "", parcelSource())
	require.ErrorIs(t, err, ErrNoHouseNumber)
	assert.Empty(t, q.calls, "structural failure must not reach the network")
}

func TestResolveByAddressThreshold(t *testing.T) {
	// wholly different street: scores far below 70
	q := &fakeQuerier{answers: []fakeAnswer{
		{whereContains: "LIKE '100 %'", rows: []map[string]string{{"SITUS": "100 E DESERT COVE CIR"}}},
	}}
	r := New(q)

	rec, err := r.ResolveByAddress(context.Background(), "100 N 31ST AV", "", "", parcelSource())
	require.NoError(t, err)
	assert.Nil(t, rec, "below-threshold candidates are never returned")
}

func TestResolveByAddressThresholdBoundary(t *testing.T) {
	// pin the acceptance comparison itself: exactly AcceptScore is in,
	// one point under is out
	for _, tc := range []struct {
		name  string
		score int
		want  bool
	}{
		{"at-threshold", config.AcceptScore, true},
		{"one-under", config.AcceptScore - 1, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			q := &fakeQuerier{answers: []fakeAnswer{
				{whereContains: "LIKE '100 %'", rows: []map[string]string{{"SITUS": "100 N 31ST AVE"}}},
			}}
			r := New(q)
			r.score = func(string, string) int { return tc.score }

			rec, err := r.ResolveByAddress(context.Background(), "100 N 31ST AV", "", "", parcelSource())
			require.NoError(t, err)
			if tc.want {
				require.NotNil(t, rec, "a best candidate at exactly the threshold is accepted")
				assert.Equal(t, config.AcceptScore, rec.MatchScore)
			} else {
				assert.Nil(t, rec, "one point under the threshold is rejected")
			}
		})
	}
}

func TestResolveByAddressZipHardFilter(t *testing.T) {
	// The closer-scoring row has a disagreeing zip and must be excluded
	// outright, not merely penalized.
	q := &fakeQuerier{answers: []fakeAnswer{
		{whereContains: "LIKE '100 %", rows: []map[string]string{
			{"SITUS": "100 N 31ST AVE", "ZIP": "86004"},
			{"SITUS": "100 N 31ST AVENUE", "ZIP": "85003"},
		}},
	}}
	r := New(q)

	rec, err := r.ResolveByAddress(context.Background(), "100 N 31ST AV", "", "85003", parcelSource())
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "85003", rec.Attributes["ZIP"])
}

func TestResolveByAddressEndToEnd(t *testing.T) {
	q := &fakeQuerier{answers: []fakeAnswer{
		{whereContains: "LIKE '100 %", rows: []map[string]string{
			{"SITUS": "100 N 31ST AVE", "ZIP": "85003"},
			{"SITUS": "102 N 31ST AVE", "ZIP": "85003"},
		}},
	}}
	r := New(q)

	rec, err := r.ResolveByAddress(context.Background(), "100 N 31ST AV", "", "85003", parcelSource())
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "100 N 31ST AVE", rec.Attributes["SITUS"])
	assert.GreaterOrEqual(t, rec.MatchScore, 90)
}

func TestResolveByAddressTransportExhaustion(t *testing.T) {
	boom := &fetch.TransportError{URL: "https://gis.example.gov", Err: errors.New("connection refused")}
	q := &fakeQuerier{answers: []fakeAnswer{
		{whereContains: "", err: boom}, // every variant fails
	}}
	r := New(q)

	_, err := r.ResolveByAddress(context.Background(), "100 N 31ST AV", "", "", parcelSource())
	var ee *ExhaustedError
	require.ErrorAs(t, err, &ee)
	assert.True(t, IsRetryable(err))
}

func TestResolveByAddressOneVariantErrorContinues(t *testing.T) {
	boom := &fetch.TransportError{URL: "https://gis.example.gov", Err: errors.New("reset")}
	q := &fakeQuerier{answers: []fakeAnswer{
		{whereContains: "31ST", err: boom}, // num-street variant fails
		{whereContains: "LIKE '100 %'", rows: []map[string]string{{"SITUS": "100 N 31ST AVE"}}},
	}}
	r := New(q)

	rec, err := r.ResolveByAddress(context.Background(), "100 N 31ST AV", "", "", parcelSource())
	require.NoError(t, err)
	require.NotNil(t, rec, "a single failed variant must not kill the cascade")
}

func TestManyTriesNextSource(t *testing.T) {
	a := parcelSource()
	a.Name = "down"
	b := parcelSource()
	b.Name = "up"

	rec, err := Many(context.Background(), func(src config.Source) (*domain.CandidateRecord, error) {
		if src.Name == "down" {
			return nil, &ExhaustedError{Source: src.Name}
		}
		return &domain.CandidateRecord{SourceName: src.Name, MatchScore: 100}, nil
	}, []config.Source{a, b})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "up", rec.SourceName)
}

func TestManySurfacesErrorWhenAllSourcesFail(t *testing.T) {
	rec, err := Many(context.Background(), func(config.Source) (*domain.CandidateRecord, error) {
		return nil, ErrNoHouseNumber
	}, []config.Source{parcelSource(), parcelSource()})
	require.ErrorIs(t, err, ErrNoHouseNumber)
	assert.Nil(t, rec)
}

func TestManyCleanNoMatchBeatsEarlierError(t *testing.T) {
	a := parcelSource()
	a.Name = "down"
	b := parcelSource()
	b.Name = "up"

	rec, err := Many(context.Background(), func(src config.Source) (*domain.CandidateRecord, error) {
		if src.Name == "down" {
			return nil, &ExhaustedError{Source: src.Name}
		}
		return nil, nil
	}, []config.Source{a, b})
	require.NoError(t, err, "one source answering cleanly settles the question")
	assert.Nil(t, rec)
}

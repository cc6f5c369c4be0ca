// Package gis talks to ArcGIS-style feature query endpoints: an SQL-ish
// WHERE fragment in, attribute rows out.
package gis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"probatescout-engine/internal/fetch"
)

// Querier is the remote tabular query primitive the resolver depends on.
type Querier interface {
	Query(ctx context.Context, endpoint, where string, outFields []string, maxRows int) ([]map[string]string, error)
}

type Client struct {
	hc      *http.Client
	limiter *fetch.HostLimiter
}

func NewClient(limiter *fetch.HostLimiter) *Client {
	return &Client{
		hc:      &http.Client{Timeout: 20 * time.Second},
		limiter: limiter,
	}
}

type featureResponse struct {
	Features []struct {
		Attributes map[string]any `json:"attributes"`
	} `json:"features"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Query runs one WHERE-fragment query. Any failure comes back as a
// *fetch.TransportError so the cascade treats it as an empty attempt.
func (c *Client) Query(ctx context.Context, endpoint, where string, outFields []string, maxRows int) ([]map[string]string, error) {
	fields := "*"
	if len(outFields) > 0 {
		fields = strings.Join(outFields, ",")
	}

	params := url.Values{}
	params.Set("where", where)
	params.Set("outFields", fields)
	params.Set("returnGeometry", "false")
	params.Set("f", "json")
	if maxRows > 0 {
		params.Set("resultRecordCount", strconv.Itoa(maxRows))
	}

	qurl := strings.TrimRight(endpoint, "/") + "/query?" + params.Encode()

	if c.limiter != nil {
		if err := c.limiter.WaitURL(ctx, qurl); err != nil {
			return nil, transportErr(qurl, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, qurl, nil)
	if err != nil {
		return nil, transportErr(qurl, err)
	}
	req.Header.Set("User-Agent", "ProbateScout/1.0 (+local)")
	req.Header.Set("Accept", "application/json")

	res, err := c.hc.Do(req)
	if err != nil {
		return nil, transportErr(qurl, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		return nil, &fetch.TransportError{URL: qurl, Status: res.StatusCode}
	}

	var fr featureResponse
	if err := json.NewDecoder(res.Body).Decode(&fr); err != nil {
		return nil, transportErr(qurl, fmt.Errorf("decode feature response: %w", err))
	}
	// Feature services report query errors inside a 200 body.
	if fr.Error != nil {
		return nil, &fetch.TransportError{
			URL: qurl,
			Err: fmt.Errorf("feature service error %d: %s", fr.Error.Code, fr.Error.Message),
		}
	}

	rows := make([]map[string]string, 0, len(fr.Features))
	for _, f := range fr.Features {
		row := make(map[string]string, len(f.Attributes))
		for k, v := range f.Attributes {
			row[k] = attrString(v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func attrString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

func transportErr(url string, err error) error {
	timeout := errors.Is(err, context.DeadlineExceeded)
	if !timeout {
		var ne interface{ Timeout() bool }
		if errors.As(err, &ne) && ne.Timeout() {
			timeout = true
		}
	}
	return &fetch.TransportError{URL: url, Timeout: timeout, Err: err}
}

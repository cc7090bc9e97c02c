package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/realmlist/metarboard/internal/metrics"
	"github.com/realmlist/metarboard/internal/models"
)

// SourceAviationWeather labels ingest runs and archived payloads.
const SourceAviationWeather = "aviationweather"

// maxPayloadBytes caps a single provider response.
const maxPayloadBytes = 4 << 20

// FetchResult describes the HTTP side of a fetch for the audit log.
type FetchResult struct {
	URL          string
	HTTPStatus   int
	ResponseSize int
	Attempts     int
}

// AviationWeather fetches METAR and TAF payloads from the aviationweather.gov
// data API. The body is returned unparsed.
type AviationWeather struct {
	baseURL    string
	format     string
	client     *http.Client
	maxElapsed time.Duration
	initial    time.Duration
	maxBytes   int64
}

func NewAviationWeather(baseURL, format string, client *http.Client, maxElapsed time.Duration) *AviationWeather {
	if format == "" {
		format = "json"
	}
	return &AviationWeather{
		baseURL:    strings.TrimRight(baseURL, "/"),
		format:     format,
		client:     client,
		maxElapsed: maxElapsed,
		initial:    backoff.DefaultInitialInterval,
		maxBytes:   maxPayloadBytes,
	}
}

// URL returns the request URL for one station and report kind.
func (a *AviationWeather) URL(kind models.ReportKind, station string) string {
	q := url.Values{}
	q.Set("ids", station)
	q.Set("format", a.format)
	return fmt.Sprintf("%s/%s?%s", a.baseURL, kind, q.Encode())
}

// Fetch downloads the latest reports for station. A 204 response yields an
// empty body, which the parser treats as "no reports".
func (a *AviationWeather) Fetch(ctx context.Context, kind models.ReportKind, station string) ([]byte, *FetchResult, error) {
	result := &FetchResult{URL: a.URL(kind, station)}
	start := time.Now()
	defer func() {
		metrics.ProviderLatency.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	}()

	var body []byte
	operation := func() error {
		result.Attempts++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, result.URL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		req.Header.Set("Accept", "application/json, text/plain")

		resp, err := a.client.Do(req)
		if err != nil {
			metrics.ProviderCallsTotal.WithLabelValues(station, string(kind), "error").Inc()
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("fetch %s: %w", kind, err)
		}
		defer resp.Body.Close()

		result.HTTPStatus = resp.StatusCode
		metrics.ProviderCallsTotal.WithLabelValues(station, string(kind), strconv.Itoa(resp.StatusCode)).Inc()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("fetch %s: status %d", kind, resp.StatusCode)
		}
		if resp.StatusCode == http.StatusNoContent {
			body = nil
			return nil
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return backoff.Permanent(fmt.Errorf("fetch %s: status %d: %s", kind, resp.StatusCode, strings.TrimSpace(string(b))))
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, a.maxBytes+1))
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		if int64(len(body)) > a.maxBytes {
			body = nil
			return backoff.Permanent(fmt.Errorf("fetch %s: payload too large (over %d bytes)", kind, a.maxBytes))
		}
		return nil
	}

	var bo backoff.BackOff = &backoff.StopBackOff{}
	if a.maxElapsed > 0 {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = a.initial
		exp.MaxElapsedTime = a.maxElapsed
		bo = exp
	}
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, result, err
	}

	result.ResponseSize = len(body)
	return body, result, nil
}

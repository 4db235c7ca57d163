package edt

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// queryDateLayout is the MM/DD/YYYY form the fetch endpoint expects.
const queryDateLayout = "01/02/2006"

// errorPageMarkers identify the portal's transient error page, which
// it serves with a 200 status.
var errorPageMarkers = []string{
	"<title>Error 500</title>",
	"<h1>500</h1>",
	"Unexpected Error",
}

// IsErrorPage reports whether a body is the portal's error page rather
// than a rendered timetable.
func IsErrorPage(body string) bool {
	for _, marker := range errorPageMarkers {
		if strings.Contains(body, marker) {
			return true
		}
	}
	return false
}

// FetchWeek retrieves the rendered timetable page for the week holding
// date. The portal intermittently serves its error page under load, so
// the fetch retries on a fixed cadence before giving up with
// ErrRetryExhausted.
func (c *Client) FetchWeek(ctx context.Context, date time.Time) (*goquery.Document, error) {
	ctx, span := tracer.Start(ctx, "FetchWeek", trace.WithAttributes(
		attribute.String("week.date", date.Format(queryDateLayout)),
	))
	defer span.End()

	var lastErr error
	for attempt := 1; attempt <= c.opts.Retries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.opts.RetryWait):
			}
		}

		res, err := c.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"action":   "posEDTLMS",
				"serverID": c.opts.ServerID,
				"hashURL":  c.opts.Hash,
				"Tel":      c.username,
				"date":     date.Format(queryDateLayout),
			}).
			Get(c.opts.FetchURL)
		if err != nil {
			span.SetStatus(codes.Error, "week fetch failed")
			span.RecordError(err)
			return nil, fmt.Errorf("fetch week %s: %w", date.Format(queryDateLayout), err)
		}
		if res.StatusCode() != http.StatusOK {
			err := fmt.Errorf("fetch week %s: status %d", date.Format(queryDateLayout), res.StatusCode())
			span.SetStatus(codes.Error, "week fetch failed")
			span.RecordError(err)
			return nil, err
		}

		body := res.String()
		if IsErrorPage(body) {
			lastErr = fmt.Errorf("attempt %d served the error page", attempt)
			continue
		}

		span.SetAttributes(attribute.Int("week.attempts", attempt))
		return goquery.NewDocumentFromReader(strings.NewReader(body))
	}

	err := fmt.Errorf("%w after %d attempts: %v", ErrRetryExhausted, c.opts.Retries, lastErr)
	span.SetStatus(codes.Error, "retries exhausted")
	span.RecordError(err)
	return nil, err
}

// ScrapeWeek fetches and parses one week. The client must be logged in.
func (c *Client) ScrapeWeek(ctx context.Context, date time.Time) ([]Event, error) {
	ctx, span := tracer.Start(ctx, "ScrapeWeek")
	defer span.End()

	doc, err := c.FetchWeek(ctx, date)
	if err != nil {
		return nil, err
	}
	events, err := ParseWeek(doc, date, c.opts.Parse)
	if err != nil {
		span.SetStatus(codes.Error, "week discarded")
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("week.events", len(events)))
	return events, nil
}

// Package detect classifies the queries captured during one HTTP request
// into issue reports. Classification is synchronous and request-scoped:
// the caller hands over the full record list at response time and gets the
// reports back, with no state kept between calls.
package detect

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yevheniidehtiar/sqlsmell/domain/issue"
	"github.com/yevheniidehtiar/sqlsmell/signature"
)

// DefaultSummaryLen bounds the SQL summary placed in headers and log lines.
const DefaultSummaryLen = 120

type Config struct {
	// SlowThreshold flags any single query running strictly longer than
	// this. Zero or negative disables slow-query detection.
	SlowThreshold time.Duration

	// DuplicateThreshold is the minimum number of same-signature queries
	// that makes an n_plus_one report. Values below 2 are clamped to 2.
	DuplicateThreshold int

	// NPlusOneLimit and SlowLimit cap how many reports of each kind a
	// single response may carry, in discovery order. Zero means uncapped.
	NPlusOneLimit int
	SlowLimit     int

	// SummaryLen bounds the rendered SQL summary. Zero means
	// DefaultSummaryLen.
	SummaryLen int
}

type sigGroup struct {
	signature string
	records   []issue.QueryRecord
}

type Detector struct {
	config Config
}

func NewDetector(config Config) *Detector {
	if config.DuplicateThreshold < 2 {
		config.DuplicateThreshold = 2
	}
	if config.SummaryLen <= 0 {
		config.SummaryLen = DefaultSummaryLen
	}
	return &Detector{config: config}
}

// Classify turns one request's query records into issue reports. Groups
// are formed by normalized signature in first-seen order; ordinals start
// at 1 per kind and follow that order. A record above the slow threshold
// produces a slow_query report regardless of whether its group was also
// reported as n_plus_one.
func (d *Detector) Classify(records []issue.QueryRecord) []issue.IssueReport {
	if len(records) == 0 {
		return nil
	}

	groups := make(map[string]*sigGroup, len(records))
	order := make([]*sigGroup, 0, len(records))
	for i := range records {
		rec := &records[i]
		if rec.Signature == "" {
			rec.Signature = signature.Normalize(rec.SQL)
			if rec.Signature == "" {
				rec.Signature = strings.TrimSpace(rec.SQL)
			}
		}
		g, ok := groups[rec.Signature]
		if !ok {
			g = &sigGroup{signature: rec.Signature}
			groups[rec.Signature] = g
			order = append(order, g)
		}
		g.records = append(g.records, *rec)
	}

	var reports []issue.IssueReport

	nPlusOne := 0
	for _, g := range order {
		if len(g.records) < d.config.DuplicateThreshold {
			continue
		}
		if d.config.NPlusOneLimit > 0 && nPlusOne >= d.config.NPlusOneLimit {
			break
		}
		nPlusOne++
		first := g.records[0]
		var total time.Duration
		for _, r := range g.records {
			total += r.Duration
		}
		reports = append(reports, issue.IssueReport{
			Kind:      issue.KindNPlusOne,
			UUID:      uuid.NewString(),
			Ordinal:   nPlusOne,
			Signature: g.signature,
			Digest:    signature.Digest(g.signature),
			SQL:       first.SQL,
			Summary:   issue.SummarizeSQL(first.SQL, d.config.SummaryLen),
			Count:     len(g.records),
			Duration:  total,
			Stack:     first.Stack,
		})
	}

	if d.config.SlowThreshold <= 0 {
		return reports
	}

	slow := 0
	for _, rec := range records {
		if rec.Duration <= d.config.SlowThreshold {
			continue
		}
		if d.config.SlowLimit > 0 && slow >= d.config.SlowLimit {
			break
		}
		slow++
		reports = append(reports, issue.IssueReport{
			Kind:      issue.KindSlowQuery,
			UUID:      uuid.NewString(),
			Ordinal:   slow,
			Signature: rec.Signature,
			Digest:    signature.Digest(rec.Signature),
			SQL:       rec.SQL,
			Summary:   issue.SummarizeSQL(rec.SQL, d.config.SummaryLen),
			Count:     1,
			Duration:  rec.Duration,
			Stack:     rec.Stack,
		})
	}

	return reports
}

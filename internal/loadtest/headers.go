package loadtest

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/yevheniidehtiar/sqlsmell/domain/issue"
)

const (
	nPlusOnePrefix = "DJ_TB_SQL_NPLUS1_"
	slowPrefix     = "DJ_TB_SQL_SLOW_"
)

// IssueHeader is one issue announcement parsed from a response.
type IssueHeader struct {
	Kind    issue.Kind
	Ordinal int
	Value   string
}

// StatName keys the issue into the stats registry. The uuid prefix and the
// count suffix vary per response, so only the stable portion is used.
func (h IssueHeader) StatName() string {
	switch h.Kind {
	case issue.KindNPlusOne:
		if sig := headerField(h.Value, "signature"); sig != "" {
			return "N+1 Query - " + sig
		}
	case issue.KindSlowQuery:
		if sql := headerField(h.Value, "sql"); sql != "" {
			return "Slow Query - " + sql
		}
	}
	return string(h.Kind) + " - " + h.Value
}

// ParseIssueHeaders extracts issue announcements from response headers.
// Matching is case-insensitive: the Go HTTP client canonicalizes received
// keys, so DJ_TB_SQL_NPLUS1_1 arrives as Dj_tb_sql_nplus1_1. Results are
// ordered by kind then ordinal.
func ParseIssueHeaders(h http.Header) []IssueHeader {
	var parsed []IssueHeader
	for name, vals := range h {
		if len(vals) == 0 {
			continue
		}
		upper := strings.ToUpper(name)

		var (
			kind issue.Kind
			rest string
		)
		switch {
		case strings.HasPrefix(upper, nPlusOnePrefix):
			kind = issue.KindNPlusOne
			rest = upper[len(nPlusOnePrefix):]
		case strings.HasPrefix(upper, slowPrefix):
			kind = issue.KindSlowQuery
			rest = upper[len(slowPrefix):]
		default:
			continue
		}

		ordinal, err := strconv.Atoi(rest)
		if err != nil {
			continue
		}
		parsed = append(parsed, IssueHeader{Kind: kind, Ordinal: ordinal, Value: vals[0]})
	}

	sort.Slice(parsed, func(i, j int) bool {
		if parsed[i].Kind != parsed[j].Kind {
			return parsed[i].Kind < parsed[j].Kind
		}
		return parsed[i].Ordinal < parsed[j].Ordinal
	})
	return parsed
}

// headerField pulls one "key=value" segment out of a "; " separated header
// value.
func headerField(value, key string) string {
	for _, seg := range strings.Split(value, "; ") {
		if strings.HasPrefix(seg, key+"=") {
			return seg[len(key)+1:]
		}
	}
	return ""
}

package loadtest

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yevheniidehtiar/sqlsmell/domain/issue"
)

func TestParseIssueHeadersCanonicalizedKeys(t *testing.T) {
	// Keys as the Go client delivers them after canonicalization.
	h := http.Header{
		"Dj_tb_sql_nplus1_1": {"aaa; signature=select * from book where author_id = ?; count=3"},
		"Dj_tb_sql_nplus1_2": {"bbb; signature=select name from authors where id = ?; count=2"},
		"Dj_tb_sql_slow_1":   {"ccc; duration_ms=612; sql=SELECT COUNT(*) FROM burn"},
		"Content-Type":       {"application/json"},
	}

	parsed := ParseIssueHeaders(h)
	require.Len(t, parsed, 3)

	assert.Equal(t, issue.KindNPlusOne, parsed[0].Kind)
	assert.Equal(t, 1, parsed[0].Ordinal)
	assert.Equal(t, issue.KindNPlusOne, parsed[1].Kind)
	assert.Equal(t, 2, parsed[1].Ordinal)
	assert.Equal(t, issue.KindSlowQuery, parsed[2].Kind)
	assert.Equal(t, 1, parsed[2].Ordinal)
}

func TestParseIssueHeadersExactKeys(t *testing.T) {
	// Keys as set server-side, bypassing canonicalization.
	h := http.Header{
		"DJ_TB_SQL_SLOW_1": {"ddd; duration_ms=700; sql=SELECT 1"},
	}

	parsed := ParseIssueHeaders(h)
	require.Len(t, parsed, 1)
	assert.Equal(t, issue.KindSlowQuery, parsed[0].Kind)
}

func TestParseIssueHeadersSkipsMalformedOrdinals(t *testing.T) {
	h := http.Header{
		"Dj_tb_sql_nplus1_x":     {"not an ordinal"},
		"Dj_tb_sql_nplus1_1_foo": {"trailing junk"},
		"Dj_tb_sql_nplus1_3":     {"eee; signature=select 1; count=2"},
	}

	parsed := ParseIssueHeaders(h)
	require.Len(t, parsed, 1)
	assert.Equal(t, 3, parsed[0].Ordinal)
}

func TestParseIssueHeadersEmpty(t *testing.T) {
	assert.Empty(t, ParseIssueHeaders(http.Header{}))
	assert.Empty(t, ParseIssueHeaders(http.Header{"X-Other": {"v"}}))
}

func TestStatNameUsesStablePortion(t *testing.T) {
	n := IssueHeader{
		Kind:  issue.KindNPlusOne,
		Value: "9f0d; signature=select * from book where author_id = ?; count=7",
	}
	assert.Equal(t, "N+1 Query - select * from book where author_id = ?", n.StatName())

	s := IssueHeader{
		Kind:  issue.KindSlowQuery,
		Value: "a1b2; duration_ms=612; sql=SELECT COUNT(*) FROM burn",
	}
	assert.Equal(t, "Slow Query - SELECT COUNT(*) FROM burn", s.StatName())
}

func TestStatNameFallsBackToRawValue(t *testing.T) {
	h := IssueHeader{Kind: issue.KindNPlusOne, Value: "bare-uuid-only"}
	assert.Equal(t, "n_plus_one - bare-uuid-only", h.StatName())
}

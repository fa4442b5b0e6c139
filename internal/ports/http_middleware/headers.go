package http_middleware

import (
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/yevheniidehtiar/sqlsmell/domain/issue"
)

// HeaderPrefix is the fixed prefix of every issue header this middleware
// emits, e.g. DJ_TB_SQL_NPLUS1_1 and DJ_TB_SQL_SLOW_1.
const HeaderPrefix = "DJ_TB_SQL"

var headerValueSanitizer = strings.NewReplacer("\r", " ", "\n", " ")

func headerName(rep issue.IssueReport) string {
	return fmt.Sprintf("%s_%s_%d", HeaderPrefix, rep.Kind.HeaderToken(), rep.Ordinal)
}

func headerValue(rep issue.IssueReport, maxLen int) string {
	var v string
	switch rep.Kind {
	case issue.KindNPlusOne:
		v = fmt.Sprintf("%s; signature=%s; count=%d", rep.UUID, rep.Signature, rep.Count)
	case issue.KindSlowQuery:
		v = fmt.Sprintf("%s; duration_ms=%d; sql=%s", rep.UUID, rep.Duration.Milliseconds(), rep.Summary)
	default:
		v = rep.UUID
	}
	return truncateHeaderValue(v, maxLen)
}

// truncateHeaderValue strips CR/LF and enforces the configured byte cap.
// Oversized values are cut, never dropped, so every issue keeps a header.
func truncateHeaderValue(v string, maxLen int) string {
	v = headerValueSanitizer.Replace(v)
	if maxLen <= 0 || len(v) <= maxLen {
		return v
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(v[cut]) {
		cut--
	}
	return v[:cut]
}

// setIssueHeaders writes one header per report. Names are assigned
// directly into the header map: Header.Set would canonicalize
// DJ_TB_SQL_NPLUS1_1 into Dj_tb_sql_nplus1_1 and break the contract.
func setIssueHeaders(h http.Header, reports []issue.IssueReport, maxLen int) {
	for _, rep := range reports {
		h[headerName(rep)] = []string{headerValue(rep, maxLen)}
	}
}

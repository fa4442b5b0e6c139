// Package signature derives stable identities for SQL statements. Two
// statements that differ only in literal values share one signature, which
// is what duplicate detection groups by.
package signature

import (
	"github.com/pingcap/tidb/pkg/parser"
)

// Normalize strips literal values from a statement and canonicalizes
// whitespace and keyword case, so `SELECT * FROM book WHERE author_id = 7`
// and `select * from book where author_id=9` come out identical.
func Normalize(sql string) string {
	return parser.Normalize(sql)
}

// Digest returns the hex digest of a normalized statement, a compact key
// for cross-request correlation of the same query shape.
func Digest(normalized string) string {
	return parser.DigestNormalized(normalized).String()
}

// Of normalizes a statement and returns both forms.
func Of(sql string) (normalized, digest string) {
	normalized = parser.Normalize(sql)
	digest = parser.DigestNormalized(normalized).String()
	return normalized, digest
}

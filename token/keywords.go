package token

import "strings"

// Keywords is the canonical upper-case keyword set from spec §6. The
// tokenizer looks up an upper-cased identifier run against this set;
// hits are re-emitted as Keyword tokens. Grounded on the exhaustive
// keyword table in freeeve/machparse/token/keywords.go, narrowed to the
// Cypher-flavoured surface this grammar actually uses.
var Keywords = buildSet(
	"WITH", "DISTINCT", "UNWIND", "MATCH", "OPTIONAL", "WHERE", "AS",
	"RETURN", "CREATE", "VIRTUAL", "DELETE", "MERGE", "SET", "REMOVE",
	"CALL", "YIELD", "LOAD", "JSON", "CSV", "TEXT", "FROM", "POST",
	"HEADERS", "CASE", "WHEN", "THEN", "ELSE", "END", "NULL", "IN",
	"LIMIT", "ORDER", "BY", "ASC", "DESC", "UNION", "ALL", "AND", "OR",
	"NOT", "IS", "CONTAINS", "STARTS", "ENDS", "TRUE", "FALSE",
)

// WordOperators are keyword-spelled operators; the tokenizer emits them
// as Operator tokens (not Keyword) since they participate directly in
// the Shunting-Yard precedence table (spec §3).
var WordOperators = buildSet("AND", "OR", "NOT", "IS", "IN", "CONTAINS", "STARTS", "ENDS", "WITH")

// KeywordsNotReusableAsIdentifier lists the keywords the parser never
// lets stand in for a plain identifier (bare variable/alias/property
// name), because doing so would make a one-token-lookahead production
// ambiguous. Every other keyword may be reused (spec §4.1's
// "can-be-identifier" flag).
var KeywordsNotReusableAsIdentifier = buildSet(
	"AND", "OR", "NOT", "IN", "IS", "AS", "RETURN", "MATCH", "WHERE",
	"WITH", "UNWIND", "UNION",
)

func buildSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// CanBeIdentifier reports whether a keyword-spelled token may be
// re-classified by the parser as a plain identifier.
func CanBeIdentifier(upper string) bool {
	return !KeywordsNotReusableAsIdentifier[upper]
}

// operators, longest first so the lexer's greedy match tries multi-char
// spellings before falling back to single characters. Grounded on the
// multi-char operator trie idea in freeeve/machparse/lexer/lexer.go.
var multiCharOperators = []string{
	"<=", ">=", "<>", "->", "<-", "..",
}

var singleCharOperators = "+-*/%^=<>|"

// LookupOperator attempts to match the longest operator spelling at the
// start of s, returning it and its length, or ("", 0) if none matches.
func LookupOperator(s string) (string, int) {
	for _, op := range multiCharOperators {
		if strings.HasPrefix(s, op) {
			return op, len(op)
		}
	}
	if len(s) > 0 && strings.IndexByte(singleCharOperators, s[0]) >= 0 {
		return s[:1], 1
	}
	return "", 0
}

// Symbols are single-character structural tokens with no operator
// meaning.
var Symbols = "(),.:{}[]"

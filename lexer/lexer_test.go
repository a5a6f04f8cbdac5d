package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowquery-go/flowquery/token"
)

func scanAll(t *testing.T, input string) []token.Token {
	t.Helper()
	l := New(input)
	var toks []token.Token
	for {
		tok, err := l.Next()
		require.NoError(t, err)
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks
		}
	}
}

func TestLexerKeywordsAndIdentifiers(t *testing.T) {
	toks := scanAll(t, "MATCH (a:Person) return a.name")
	require.Len(t, toks, 11)
	assert.Equal(t, token.Keyword, toks[0].Kind)
	assert.Equal(t, "MATCH", toks[0].Value)
	assert.Equal(t, token.Identifier, toks[2].Kind)
	assert.Equal(t, "a", toks[2].Value)
	assert.Equal(t, token.Keyword, toks[6].Kind)
	assert.Equal(t, "RETURN", toks[6].Value)
}

func TestLexerBacktickPreservesCase(t *testing.T) {
	toks := scanAll(t, "`MixedCase`")
	require.True(t, len(toks) >= 1)
	assert.Equal(t, token.BacktickString, toks[0].Kind)
	assert.Equal(t, "MixedCase", toks[0].CaseSensitiveValue)
}

func TestLexerNumbers(t *testing.T) {
	toks := scanAll(t, "1 2.5 100")
	assert.Equal(t, "1", toks[0].Value)
	assert.Equal(t, "2.5", toks[1].Value)
	assert.Equal(t, "100", toks[2].Value)
}

func TestLexerOperators(t *testing.T) {
	toks := scanAll(t, "<= >= <> -> <- ..")
	for i, want := range []string{"<=", ">=", "<>", "->", "<-", ".."} {
		assert.Equal(t, token.Operator, toks[i].Kind)
		assert.Equal(t, want, toks[i].Value)
	}
}

func TestLexerFString(t *testing.T) {
	toks := scanAll(t, `f"hello {name}!"`)
	require.Equal(t, token.FString, toks[0].Kind)
	require.Len(t, toks[0].FStringParts, 3)
	assert.Equal(t, "hello ", toks[0].FStringParts[0].Literal)
	assert.True(t, toks[0].FStringParts[1].IsExpr)
	assert.Equal(t, "name", toks[0].FStringParts[1].Expr)
	assert.Equal(t, "!", toks[0].FStringParts[2].Literal)
}

func TestLexerComment(t *testing.T) {
	toks := scanAll(t, "1 /* skip me */ 2")
	assert.Equal(t, "1", toks[0].Value)
	assert.Equal(t, "2", toks[1].Value)
}

func TestLexerUnterminatedStringIsLexicalError(t *testing.T) {
	l := New(`"unterminated`)
	_, err := l.Next()
	assert.Error(t, err)
}

func TestLexerPoolRoundTrip(t *testing.T) {
	l := Get("RETURN 1")
	tok, err := l.Next()
	require.NoError(t, err)
	assert.Equal(t, token.Keyword, tok.Kind)
	Put(l)
}

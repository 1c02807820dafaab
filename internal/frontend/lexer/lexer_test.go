package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenTypes(tokens []Token) []TokenType {
	out := make([]TokenType, len(tokens))
	for i, t := range tokens {
		out[i] = t.Type
	}
	return out
}

func TestTokenizeDeclaration(t *testing.T) {
	tokens, err := Tokenize(`let x = 5`)
	require.NoError(t, err)
	assert.Equal(t, []TokenType{Let, Identifier, Equals, Number, EOF}, tokenTypes(tokens))
	assert.Equal(t, "5", tokens[3].Value)
}

func TestTokenizeKeywords(t *testing.T) {
	tokens, err := Tokenize(`if else for while in true false null import as func return try catch break continue`)
	require.NoError(t, err)
	want := []TokenType{If, Else, For, While, In, True, False, Null, Import, As, Func, Return, Try, Catch, Break, Continue, EOF}
	assert.Equal(t, want, tokenTypes(tokens))
}

func TestTokenizeOperators(t *testing.T) {
	tokens, err := Tokenize(`+ - * / % ^ == != <= >= && || ++ --`)
	require.NoError(t, err)
	want := []TokenType{
		BinaryOperator, BinaryOperator, BinaryOperator, BinaryOperator, BinaryOperator,
		Caret, ComparisonOperator, ComparisonOperator, ComparisonOperator, ComparisonOperator,
		LogicalOperator, LogicalOperator, Increment, Decrement, EOF,
	}
	assert.Equal(t, want, tokenTypes(tokens))
}

func TestTokenizeString(t *testing.T) {
	tokens, err := Tokenize(`"hello world"`)
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, String, tokens[0].Type)
	assert.Equal(t, "hello world", tokens[0].Value)
}

func TestTokenizeUnterminatedString(t *testing.T) {
	_, err := Tokenize(`"oops`)
	assert.Error(t, err)
}

func TestTokenizeComment(t *testing.T) {
	tokens, err := Tokenize("let x = 1 // trailing comment\nlet y = 2")
	require.NoError(t, err)
	assert.Equal(t, []TokenType{Let, Identifier, Equals, Number, Let, Identifier, Equals, Number, EOF}, tokenTypes(tokens))
}

func TestTokenizeLineTracking(t *testing.T) {
	tokens, err := Tokenize("let x = 1\nlet y = 2")
	require.NoError(t, err)
	assert.Equal(t, 1, tokens[0].Line)
	// "y" on the second physical line.
	for _, tok := range tokens {
		if tok.Value == "y" {
			assert.Equal(t, 2, tok.Line)
		}
	}
}

func TestTokenizeUnrecognizedCharacter(t *testing.T) {
	_, err := Tokenize("let x = @")
	assert.Error(t, err)
}

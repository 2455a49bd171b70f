package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func scanAll(src string) []Token {
	s := New(src)
	var toks []Token
	for {
		tok := s.Next()
		toks = append(toks, tok)
		if tok.Type == EOF {
			return toks
		}
	}
}

func TestScanOperatorsAndKeywords(t *testing.T) {
	s := New("var x = 1 + 2;")
	require.Equal(t, Var, s.Next().Type)
	require.Equal(t, Identifier, s.Next().Type)
	require.Equal(t, Equal, s.Next().Type)
	require.Equal(t, Number, s.Next().Type)
	require.Equal(t, Plus, s.Next().Type)
	require.Equal(t, Number, s.Next().Type)
	require.Equal(t, Semicolon, s.Next().Type)
	require.Equal(t, EOF, s.Next().Type)
}

func TestScanTwoCharOperators(t *testing.T) {
	s := New("!= == <= >=")
	require.Equal(t, BangEqual, s.Next().Type)
	require.Equal(t, EqualEqual, s.Next().Type)
	require.Equal(t, LessEqual, s.Next().Type)
	require.Equal(t, GreaterEqual, s.Next().Type)
}

func TestScanLexemeRecoversSourceText(t *testing.T) {
	s := New(`"hello" 3.5 foo`)
	str := s.Next()
	require.Equal(t, `"hello"`, s.Lexeme(str))
	num := s.Next()
	require.Equal(t, "3.5", s.Lexeme(num))
	ident := s.Next()
	require.Equal(t, "foo", s.Lexeme(ident))
}

func TestScanUnterminatedStringIsErrorToken(t *testing.T) {
	s := New(`"oops`)
	tok := s.Next()
	require.Equal(t, Error, tok.Type)
	require.Equal(t, -1, tok.Offset)
	require.Contains(t, tok.Message, "unterminated")
}

func TestLineCountsNewlines(t *testing.T) {
	s := New("var a = 1;\nvar b = 2;\nvar c = 3;")
	require.Equal(t, 1, s.Line(0))
	secondLineOffset := 11 // just past the first '\n'
	require.Equal(t, 2, s.Line(secondLineOffset))
}

func TestSkipsCommentsAsWhitespace(t *testing.T) {
	toks := scanAll("// a comment\nvar a;")
	require.Equal(t, Var, toks[0].Type)
}

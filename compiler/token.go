// Package compiler turns an infix equation source string into a
// validated equation.Builder program: a tokenizer, an order validator,
// a precedence-driven tree simplifier, a constant folder and an
// emitter, grounded throughout on
// original_source/lib/config/equation_compiler.py.
package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// TokenType classifies a single lexical token. Values and the prev-set
// adjacency rule (used by validateOrder) are grounded on
// DAQEquationTokenType/DAQEquationTokenTypeDC in the original source.
type TokenType int

const (
	TokenUnknown TokenType = iota
	TokenChannel
	TokenOperator
	TokenFunction
	TokenFloat
	TokenOpenBracket
	TokenCloseBracket
	TokenUnaryOperator
	tokenBegin // pseudo-token bracketing the start of the stream
	tokenEnd   // pseudo-token bracketing the end of the stream
)

// prevSets lists, for each token type, the set of token types allowed
// to immediately precede it.
var prevSets = map[TokenType]map[TokenType]bool{
	TokenChannel:       set(tokenBegin, TokenOperator, TokenOpenBracket, TokenUnaryOperator),
	TokenOperator:      set(TokenChannel, TokenFloat, TokenCloseBracket),
	TokenFunction:      set(tokenBegin, TokenOperator, TokenOpenBracket, TokenUnaryOperator),
	TokenFloat:         set(tokenBegin, TokenOperator, TokenOpenBracket, TokenUnaryOperator),
	TokenOpenBracket:   set(tokenBegin, TokenOperator, TokenFunction, TokenOpenBracket, TokenUnaryOperator),
	TokenCloseBracket:  set(TokenChannel, TokenFloat, TokenCloseBracket),
	TokenUnaryOperator: set(tokenBegin, TokenChannel, TokenOperator, TokenFloat, TokenCloseBracket, TokenUnaryOperator),
	tokenEnd:           set(TokenChannel, TokenFloat, TokenCloseBracket),
}

func set(types ...TokenType) map[TokenType]bool {
	m := make(map[TokenType]bool, len(types))
	for _, t := range types {
		m[t] = true
	}
	return m
}

var (
	unaryOperators = map[string]bool{"+": true, "-": true}
	operators      = map[string]bool{"*": true, "^": true, "**": true, "/": true}
	functions      = map[string]bool{"exp": true, "ln": true, "log": true, "abs": true, "int": true, "sqrt": true}
)

// operatorPrecedence assigns each binary operator a base precedence,
// kept 1000 apart so the simplifier can nudge them by 1 per adjacent
// float literal without crossing tiers.
var operatorPrecedence = map[string]int{
	"+": 1000, "-": 1000,
	"*": 2000, "/": 2000,
	"^": 3000, "**": 3000,
}

// Token is one lexical unit of an equation source string.
type Token struct {
	Text                 string
	Type                 TokenType
	Begin, End           int
	BeginsWithWhitespace bool
}

func (t Token) String() string {
	return fmt.Sprintf("%q@%d-%d", t.Text, t.Begin, t.End)
}

func bareText(text string) (stripped string, negated bool) {
	if strings.HasPrefix(text, "-") {
		return text[1:], true
	}
	return text, false
}

func (t Token) validate() error {
	switch t.Type {
	case TokenUnknown:
		return &TokenError{Msg: "unknown token type", Token: t}
	case TokenChannel:
		text, _ := bareText(t.Text)
		if !strings.HasPrefix(text, "c") {
			return &TokenError{Msg: "channel token does not begin with c", Token: t}
		}
		n, err := strconv.Atoi(text[1:])
		if err != nil {
			return &TokenError{Msg: "invalid channel token", Token: t}
		}
		if n <= 0 {
			return &TokenError{Msg: "channel number must be greater than 0", Token: t}
		}
	case TokenFloat:
		if _, err := strconv.ParseFloat(t.Text, 64); err != nil {
			return &TokenError{Msg: "invalid float token", Token: t}
		}
	case TokenOperator:
		if !operators[t.Text] {
			return &TokenError{Msg: "invalid operator token", Token: t}
		}
	case TokenUnaryOperator:
		if !unaryOperators[t.Text] {
			return &TokenError{Msg: "invalid unary operator token", Token: t}
		}
	case TokenFunction:
		text, _ := bareText(t.Text)
		if !functions[text] {
			return &TokenError{Msg: "invalid function token", Token: t}
		}
	}
	return nil
}

// TokenError reports a problem with a single token.
type TokenError struct {
	Msg   string
	Token Token
}

func (e *TokenError) Error() string { return fmt.Sprintf("%s: %s", e.Msg, e.Token) }

// MultiTokenError reports a problem spanning more than one token, e.g.
// an invalid adjacency between two consecutive tokens.
type MultiTokenError struct {
	Msg    string
	Tokens []Token
}

func (e *MultiTokenError) Error() string {
	parts := make([]string, len(e.Tokens))
	for i, t := range e.Tokens {
		parts[i] = t.String()
	}
	return fmt.Sprintf("%s: %s", e.Msg, strings.Join(parts, ", "))
}

// TreeError reports a structural problem discovered while building or
// simplifying the token tree.
type TreeError struct {
	Msg string
}

func (e *TreeError) Error() string { return e.Msg }

// MissingTokenError reports an internal expectation of a token that
// was not present (an operator node with no value, typically).
type MissingTokenError struct {
	Msg string
}

func (e *MissingTokenError) Error() string { return e.Msg + " (missing token)" }

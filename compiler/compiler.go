package compiler

import (
	"math"
	"strconv"
	"strings"

	"github.com/netdaq-go/netdaq/equation"
)

// Compiler turns an equation source string into a validated
// equation.Builder program.
type Compiler struct{}

// New returns a Compiler. Compiler holds no state and is safe to reuse
// and share across goroutines.
func New() *Compiler {
	return &Compiler{}
}

// Compile tokenizes, validates, simplifies and emits src, returning a
// terminated and validated equation.Builder, or the first error
// encountered at any stage.
func (c *Compiler) Compile(src string) (*equation.Builder, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	tokens, err = foldUnary(tokens)
	if err != nil {
		return nil, err
	}
	if err := validateOrder(tokens); err != nil {
		return nil, err
	}
	tree, err := buildTree(tokens)
	if err != nil {
		return nil, err
	}
	simplify(tree)
	if err := foldConstants(tree); err != nil {
		return nil, err
	}

	b := equation.NewBuilder()
	if err := emit(tree, b); err != nil {
		return nil, err
	}
	b.End()
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// --- tokenizer -------------------------------------------------------

type lexer struct {
	tokens      []Token
	cur         strings.Builder
	curBegin    int
	curMatch    int // 0 = none, 1 = numeric/channel run, 2 = function-name run
	curType     TokenType
	curWS       bool
	pendingWS   bool
	err         error
}

func tokenize(src string) ([]Token, error) {
	l := &lexer{curType: TokenUnknown}
	runes := []rune(strings.ToLower(src))
	for i, c := range runes {
		switch {
		case c == '*':
			if l.cur.String() != "*" && l.cur.Len() > 0 {
				l.pushCurrent(i, "", TokenOperator)
			}
			l.curType = TokenOperator
			l.cur.WriteRune(c)
			if l.cur.String() == "**" {
				l.pushCurrent(i, "", TokenUnknown)
			}
		case c == '+' || c == '-':
			if l.curMatch == 1 && lastByte(l.cur.String()) == 'e' {
				l.cur.WriteRune(c)
				continue
			}
			l.pushCurrent(i, string(c), TokenUnaryOperator)
		case c == '^' || c == '/':
			l.pushCurrent(i, string(c), TokenOperator)
		case c == '(':
			l.pushCurrent(i, string(c), TokenOpenBracket)
		case c == ')':
			l.pushCurrent(i, string(c), TokenCloseBracket)
		case isDigit(c):
			ttype := TokenFloat
			if l.cur.Len() > 0 && l.cur.String()[0] == 'c' {
				ttype = TokenChannel
				if l.cur.Len() == 1 {
					l.curMatch = 1
				}
			}
			l.pushIfNotType(1, i, ttype)
			l.cur.WriteRune(c)
		case c == ' ':
			l.pushCurrent(i, "", TokenUnknown)
			l.pendingWS = true
		default:
			if c == 'e' && l.curMatch == 1 {
				l.cur.WriteRune(c)
				continue
			}
			l.pushIfNotType(2, i, TokenFunction)
			l.cur.WriteRune(c)
		}
		if l.err != nil {
			return nil, l.err
		}
	}
	l.pushCurrent(len(runes), "", TokenUnknown)
	if l.err != nil {
		return nil, l.err
	}
	return l.tokens, nil
}

func isDigit(c rune) bool {
	return (c >= '0' && c <= '9') || c == '.'
}

func lastByte(s string) byte {
	if s == "" {
		return 0
	}
	return s[len(s)-1]
}

func (l *lexer) pushCurrent(pos int, pushAlso string, nextType TokenType) {
	if l.cur.Len() > 0 {
		l.pushValidated(Token{
			Text: l.cur.String(), Type: l.curType,
			Begin: l.curBegin, End: pos - 1,
			BeginsWithWhitespace: l.curWS,
		})
		l.cur.Reset()
		l.curType = nextType
		l.curMatch = 0
		l.curWS = false
	}
	if l.pendingWS {
		l.curWS = true
		l.pendingWS = false
	}
	l.curBegin = pos
	if pushAlso != "" {
		l.pushValidated(Token{
			Text: pushAlso, Type: nextType,
			Begin: pos, End: pos,
			BeginsWithWhitespace: l.curWS,
		})
		l.curWS = false
	}
}

func (l *lexer) pushIfNotType(matchType int, pos int, tokenType TokenType) {
	if l.curMatch != matchType {
		l.pushCurrent(pos, "", tokenType)
	}
	if l.pendingWS {
		l.curWS = true
		l.pendingWS = false
	}
	l.curType = tokenType
	l.curMatch = matchType
}

func (l *lexer) pushValidated(t Token) {
	if l.err != nil {
		return
	}
	if err := t.validate(); err != nil {
		l.err = err
		return
	}
	l.tokens = append(l.tokens, t)
}

// --- unary folding ----------------------------------------------------

// foldUnary folds a run of +/- tokens at the program start, after an
// operator, or after "(" into the following atom by counting the
// minuses: an odd count prefixes the atom's text with "-". A run with
// internal whitespace is rejected; a whitespace-prefixed atom is never
// folded. Grounded on integrate_unary_minusplus.
func foldUnary(tokens []Token) ([]Token, error) {
	var out []Token
	firstUnary := -1

	for i, t := range tokens {
		if t.Type == TokenUnaryOperator {
			if firstUnary < 0 {
				var prev *Token
				if i > 0 {
					prev = &tokens[i-1]
				}
				if prev != nil && prev.Type != TokenOperator && prev.Type != TokenUnaryOperator && prev.Type != TokenOpenBracket {
					out = append(out, t)
					continue
				}
				firstUnary = i
				continue
			}
			if t.BeginsWithWhitespace {
				return nil, &MultiTokenError{Msg: "unary operator chain cannot contain whitespace", Tokens: tokens[firstUnary : i+1]}
			}
			continue
		}

		if t.BeginsWithWhitespace {
			out = append(out, t)
			firstUnary = -1
			continue
		}

		if firstUnary < 0 {
			out = append(out, t)
			continue
		}

		minusCount := 0
		for _, u := range tokens[firstUnary:i] {
			if u.Text == "-" {
				minusCount++
			}
		}
		text := t.Text
		if minusCount%2 == 1 {
			if strings.HasPrefix(text, "-") {
				text = text[1:]
			} else {
				text = "-" + text
			}
		}
		folded := Token{
			Text: text, Type: t.Type,
			Begin: tokens[firstUnary].Begin, End: t.End,
			BeginsWithWhitespace: false,
		}
		if err := folded.validate(); err != nil {
			return nil, err
		}
		out = append(out, folded)
		firstUnary = -1
	}
	return out, nil
}

// --- order validation ---------------------------------------------------

// validateOrder checks bracket balance and the adjacency rule declared
// by each token type's prev-set, bracketing the stream with pseudo
// BEGIN/END tokens.
func validateOrder(tokens []Token) error {
	if len(tokens) == 0 {
		return nil
	}
	brackets := 0
	for i := 0; i <= len(tokens); i++ {
		var cur Token
		if i == len(tokens) {
			cur = Token{Type: tokenEnd, Begin: tokens[len(tokens)-1].End, End: tokens[len(tokens)-1].End}
		} else {
			cur = tokens[i]
		}

		var prev Token
		if i == 0 {
			prev = Token{Type: tokenBegin}
		} else {
			prev = tokens[i-1]
		}

		switch cur.Type {
		case TokenOpenBracket:
			brackets++
		case TokenCloseBracket:
			brackets--
			if brackets < 0 {
				return &TokenError{Msg: "closing bracket without matching opening bracket", Token: cur}
			}
		}

		if allowed := prevSets[cur.Type]; !allowed[prev.Type] {
			return &MultiTokenError{Msg: "invalid token order", Tokens: []Token{prev, cur}}
		}
	}
	if brackets != 0 {
		return &MultiTokenError{Msg: "unclosed brackets", Tokens: tokens}
	}
	return nil
}

// --- tree building ---------------------------------------------------

// buildTree walks tokens left to right into a node tree: a function
// token consumes the following "(" and recurses into its argument; a
// bare "(" recurses into a bracketed subtree; ")" ends the current
// level. Grounded on build_token_tree.
func buildTree(tokens []Token) (*node, error) {
	n, _, err := buildTreeLevel(tokens, 0, nil)
	return n, err
}

func buildTreeLevel(tokens []Token, pos int, anchor *Token) (*node, int, error) {
	n := &node{value: anchor}

	for pos < len(tokens) {
		t := tokens[pos]
		pos++

		switch t.Type {
		case TokenFunction:
			if pos >= len(tokens) || tokens[pos].Type != TokenOpenBracket {
				var bad Token
				if pos < len(tokens) {
					bad = tokens[pos]
				}
				return nil, pos, &MultiTokenError{Msg: "function must be followed by an opening bracket", Tokens: []Token{t, bad}}
			}
			pos++ // consume "("
			child, next, err := buildTreeLevel(tokens, pos, &t)
			if err != nil {
				return nil, next, err
			}
			n.children = append(n.children, child)
			pos = next
		case TokenOpenBracket:
			child, next, err := buildTreeLevel(tokens, pos, nil)
			if err != nil {
				return nil, next, err
			}
			n.children = append(n.children, child)
			pos = next
		case TokenCloseBracket:
			return finishLevel(n, anchor, pos)
		default:
			tt := t
			n.children = append(n.children, leaf(tt))
		}
	}
	return finishLevel(n, anchor, pos)
}

func finishLevel(n *node, anchor *Token, pos int) (*node, int, error) {
	if len(n.children) == 0 {
		return nil, pos, &TreeError{Msg: "empty expression"}
	}
	if len(n.children) == 1 && anchor == nil {
		return n.children[0], pos, nil
	}
	return n, pos, nil
}

// --- precedence simplification ---------------------------------------

// simplify recursively splits any node with 4+ children into a
// 3-child (left, operator, right) shape, picking the pivot operator
// with the lowest adjusted precedence (ties go leftmost), nudged down
// by 1 per adjacent float literal so constant pairs bind first.
// Grounded on simplify_token_tree/_simplify_token_tree_shallow.
func simplify(n *node) {
	for _, c := range n.children {
		simplify(c)
	}
	simplifyShallow(n)
}

func simplifyShallow(n *node) {
	if len(n.children) == 1 && n.value == nil {
		child := n.children[0]
		n.value = child.value
		n.children = child.children
		return
	}
	if len(n.children) < 4 {
		return
	}

	best := -1
	bestPrecedence := 0
	for i, c := range n.children {
		if c.value == nil || (c.value.Type != TokenOperator && c.value.Type != TokenUnaryOperator) {
			continue
		}
		prec := operatorPrecedence[c.value.Text]
		if i > 0 && n.children[i-1].value != nil && n.children[i-1].value.Type == TokenFloat {
			prec--
		}
		if i+1 < len(n.children) && n.children[i+1].value != nil && n.children[i+1].value.Type == TokenFloat {
			prec--
		}
		// Strict "<" only: the pivot is the lowest adjusted precedence
		// seen so far, and an equal-precedence later candidate never
		// displaces it, so ties resolve to the leftmost operator.
		if best < 0 || prec < bestPrecedence {
			best = i
			bestPrecedence = prec
		}
	}
	if best < 0 {
		return
	}

	left := &node{children: append([]*node{}, n.children[:best]...)}
	op := &node{value: n.children[best].value}
	right := &node{children: append([]*node{}, n.children[best+1:]...)}

	simplifyShallow(left)
	simplifyShallow(right)

	n.children = []*node{left, op, right}
}

// --- constant folding ---------------------------------------------------

// foldConstants recursively collapses function calls over a float
// literal, and binary nodes whose outer children are both float
// literals, into a single float leaf. Grounded on
// resolve_constant_expression.
func foldConstants(n *node) error {
	for _, c := range n.children {
		if err := foldConstants(c); err != nil {
			return err
		}
	}

	if len(n.children) == 1 {
		sub := n.children[0]
		if n.value == nil {
			n.value = sub.value
			n.children = sub.children
			return nil
		}
		if sub.value == nil || sub.value.Type != TokenFloat {
			return nil
		}
		if n.value.Type != TokenFunction {
			return &TokenError{Msg: "invalid constant expression", Token: *n.value}
		}
		funcName, negate := bareText(n.value.Text)
		v, _ := strconv.ParseFloat(sub.value.Text, 64)
		result, err := applyFunction(funcName, v)
		if err != nil {
			return err
		}
		if negate {
			result = -result
		}
		n.value = &Token{Text: formatFloat(result), Type: TokenFloat, Begin: n.value.Begin, End: sub.value.End}
		n.children = nil
		return nil
	}

	if len(n.children) != 3 {
		return nil
	}
	left, right := n.children[0], n.children[2]
	if left.value == nil || left.value.Type != TokenFloat || right.value == nil || right.value.Type != TokenFloat {
		return nil
	}
	op := n.children[1].value
	if op == nil {
		return &MissingTokenError{Msg: "operator token for constant expression"}
	}
	if op.Type != TokenOperator && op.Type != TokenUnaryOperator {
		return &TokenError{Msg: "invalid operator token for constant expression", Token: *op}
	}
	lv, _ := strconv.ParseFloat(left.value.Text, 64)
	rv, _ := strconv.ParseFloat(right.value.Text, 64)
	result, err := applyOperator(op.Text, lv, rv)
	if err != nil {
		return err
	}
	n.value = &Token{Text: formatFloat(result), Type: TokenFloat, Begin: left.value.Begin, End: right.value.End}
	n.children = nil
	return nil
}

func applyFunction(name string, v float64) (float64, error) {
	switch name {
	case "exp":
		return math.Exp(v), nil
	case "ln":
		return math.Log(v), nil
	case "log":
		return math.Log10(v), nil
	case "abs":
		return math.Abs(v), nil
	case "int":
		return math.Trunc(v), nil
	case "sqrt":
		return math.Sqrt(v), nil
	default:
		return 0, &TokenError{Msg: "unhandled function in constant expression"}
	}
}

func applyOperator(op string, l, r float64) (float64, error) {
	switch op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		return l / r, nil
	case "^", "**":
		return math.Pow(l, r), nil
	default:
		return 0, &TokenError{Msg: "unhandled operator in constant expression"}
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// --- emission ---------------------------------------------------------

// emit walks the simplified tree post-order, pushing operands before
// operators/functions. For a 3-child node whose operator is
// commutative, the right-then-left operand order is tried in a scratch
// builder and kept if it uses strictly less peak stack than
// left-then-right, using equation.Builder.MaxStackDepth/Append exactly
// as the builder's own stack-minimizing composition is designed for
// (§4.5, "the builder's append comparison of max-depths").
func emit(n *node, b *equation.Builder) error {
	switch len(n.children) {
	case 0:
		// leaf
	case 1:
		if err := emit(n.children[0], b); err != nil {
			return err
		}
	case 2:
		if n.children[0].value == nil {
			return &TreeError{Msg: "missing unary operator node value"}
		}
		if err := emit(n.children[1], b); err != nil {
			return err
		}
		emitToken(*n.children[0].value, b)
	case 3:
		if n.children[1].value == nil {
			return &TreeError{Msg: "missing binary operator node value"}
		}
		op := n.children[1].value
		// The tokenizer types every "+" as TokenUnaryOperator (binary use
		// included), so both operator types are accepted here.
		if (op.Type == TokenOperator || op.Type == TokenUnaryOperator) && (op.Text == "+" || op.Text == "*") {
			leftFirst := equation.NewSubtreeBuilder(0)
			if err := emit(n.children[0], leftFirst); err != nil {
				return err
			}
			if err := emit(n.children[2], leftFirst); err != nil {
				return err
			}

			rightFirst := equation.NewSubtreeBuilder(0)
			if err := emit(n.children[2], rightFirst); err != nil {
				return err
			}
			if err := emit(n.children[0], rightFirst); err != nil {
				return err
			}

			if rightFirst.MaxStackDepth() < leftFirst.MaxStackDepth() {
				b.Append(rightFirst)
			} else {
				b.Append(leftFirst)
			}
		} else {
			if err := emit(n.children[0], b); err != nil {
				return err
			}
			if err := emit(n.children[2], b); err != nil {
				return err
			}
		}
		emitToken(*op, b)
	}

	if n.value != nil {
		emitToken(*n.value, b)
	}
	return nil
}

func emitToken(t Token, b *equation.Builder) {
	switch t.Type {
	case TokenChannel:
		text, negate := bareText(t.Text)
		n, _ := strconv.Atoi(text[1:])
		b.PushChannel(uint16(n))
		if negate {
			b.UnaryMinus()
		}
	case TokenFloat:
		v, _ := strconv.ParseFloat(t.Text, 64)
		b.PushFloat(float32(v))
	case TokenOperator, TokenUnaryOperator:
		switch t.Text {
		case "+":
			b.Add()
		case "-":
			b.Subtract()
		case "*":
			b.Multiply()
		case "/":
			b.Divide()
		case "^", "**":
			b.Power()
		}
	case TokenFunction:
		name, negate := bareText(t.Text)
		switch name {
		case "exp":
			b.Exp()
		case "ln":
			b.Ln()
		case "log":
			b.Log()
		case "abs":
			b.Abs()
		case "int":
			b.Int()
		case "sqrt":
			b.Sqrt()
		}
		if negate {
			b.UnaryMinus()
		}
	}
}

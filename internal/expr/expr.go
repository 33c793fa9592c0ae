// Package expr compiles the value expressions of a node schema.
//
// The language is deliberately tiny: number literals, the four arithmetic
// operators, parentheses and access to the single bound input x, either
// positionally (x[0], x[-1]) for decoded payloads or by name (x['hours'],
// x.hours) for command arguments. A comma-separated or bracketed list yields
// several values, which is how command expressions produce packed arguments.
//
// Expressions are parsed once by Compile into a tree of closures; evaluation
// never re-parses and cannot reach anything but its Input.
package expr

import (
	"fmt"
	"math"
)

// BoundName is the only identifier an expression may use.
const BoundName = "x"

// Input is the value an expression is evaluated against: Values in decode
// mode, Args in encode mode.
type Input interface {
	input()
}

// Values is the positional input produced by decoding a payload.
type Values []float64

// Args is the named input taken from a command request.
type Args map[string]float64

func (Values) input() {}
func (Args) input()   {}

type evalFn func(in Input) (float64, error)

// Program is a compiled expression. It is immutable and safe for concurrent
// use.
type Program struct {
	src   string
	items []evalFn
	list  bool
}

// Compile parses src. Any identifier other than x is rejected with a
// *ForbiddenReferenceError.
func Compile(src string) (*Program, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &compiler{src: src, toks: toks}
	items, list, err := p.top()
	if err != nil {
		return nil, err
	}
	return &Program{src: src, items: items, list: list}, nil
}

// MustCompile is Compile for static expressions; it panics on error.
func MustCompile(src string) *Program {
	p, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return p
}

// Source returns the expression text.
func (p *Program) Source() string { return p.src }

// Arity is the number of values the program yields.
func (p *Program) Arity() int { return len(p.items) }

// Eval evaluates a single-valued program.
func (p *Program) Eval(in Input) (float64, error) {
	if len(p.items) != 1 || p.list {
		return 0, &EvalError{Expr: p.src, Msg: fmt.Sprintf("expression yields %d values, want 1", len(p.items))}
	}
	return p.items[0](in)
}

// EvalList evaluates every item of the program in order.
func (p *Program) EvalList(in Input) ([]float64, error) {
	out := make([]float64, 0, len(p.items))
	for _, fn := range p.items {
		v, err := fn(in)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (p *Program) String() string { return p.src }

// operand is an intermediate compile result: a single value, a list of
// values, or the bare bound input waiting for an accessor.
type operand struct {
	fn    evalFn
	items []evalFn
	input bool
	pos   int
}

type compiler struct {
	src  string
	toks []token
	i    int
}

func (c *compiler) peek() token { return c.toks[c.i] }

func (c *compiler) next() token {
	t := c.toks[c.i]
	if t.kind != tokEOF {
		c.i++
	}
	return t
}

func (c *compiler) is(text string) bool {
	t := c.peek()
	return t.kind == tokPunct && t.text == text
}

func (c *compiler) expect(text string) error {
	if !c.is(text) {
		return c.errorf(c.peek().pos, "expected %q", text)
	}
	c.next()
	return nil
}

func (c *compiler) errorf(pos int, format string, args ...any) error {
	return &SyntaxError{Expr: c.src, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// top := elem (',' elem)* [','] EOF
func (c *compiler) top() ([]evalFn, bool, error) {
	if c.peek().kind == tokEOF {
		return nil, false, c.errorf(0, "empty expression")
	}
	var ops []operand
	trailing := false
	for {
		op, err := c.expr()
		if err != nil {
			return nil, false, err
		}
		ops = append(ops, op)
		if !c.is(",") {
			break
		}
		c.next()
		trailing = true
		if c.peek().kind == tokEOF {
			break
		}
		trailing = false
	}
	if t := c.peek(); t.kind != tokEOF {
		return nil, false, c.errorf(t.pos, "unexpected %q", t.text)
	}

	if len(ops) == 1 && !trailing {
		op := ops[0]
		if op.items != nil {
			return op.items, true, nil
		}
		fn, err := c.scalar(op)
		return []evalFn{fn}, false, err
	}
	items := make([]evalFn, 0, len(ops))
	for _, op := range ops {
		fn, err := c.scalar(op)
		if err != nil {
			return nil, false, err
		}
		items = append(items, fn)
	}
	return items, true, nil
}

// scalar rejects operands that are not a single value.
func (c *compiler) scalar(op operand) (evalFn, error) {
	switch {
	case op.input:
		return nil, c.errorf(op.pos, "%s must be indexed", BoundName)
	case op.items != nil:
		return nil, c.errorf(op.pos, "a list cannot be used as a number")
	}
	return op.fn, nil
}

// expr := term (('+' | '-') term)*
func (c *compiler) expr() (operand, error) {
	left, err := c.term()
	if err != nil {
		return operand{}, err
	}
	for c.is("+") || c.is("-") {
		op := c.next()
		right, err := c.term()
		if err != nil {
			return operand{}, err
		}
		left, err = c.binary(op, left, right)
		if err != nil {
			return operand{}, err
		}
	}
	return left, nil
}

// term := unary (('*' | '/') unary)*
func (c *compiler) term() (operand, error) {
	left, err := c.unary()
	if err != nil {
		return operand{}, err
	}
	for c.is("*") || c.is("/") {
		op := c.next()
		right, err := c.unary()
		if err != nil {
			return operand{}, err
		}
		left, err = c.binary(op, left, right)
		if err != nil {
			return operand{}, err
		}
	}
	return left, nil
}

func (c *compiler) binary(op token, left, right operand) (operand, error) {
	l, err := c.scalar(left)
	if err != nil {
		return operand{}, err
	}
	r, err := c.scalar(right)
	if err != nil {
		return operand{}, err
	}
	src := c.src
	var fn evalFn
	switch op.text {
	case "+":
		fn = func(in Input) (float64, error) {
			a, b, err := both(l, r, in)
			return a + b, err
		}
	case "-":
		fn = func(in Input) (float64, error) {
			a, b, err := both(l, r, in)
			return a - b, err
		}
	case "*":
		fn = func(in Input) (float64, error) {
			a, b, err := both(l, r, in)
			return a * b, err
		}
	case "/":
		fn = func(in Input) (float64, error) {
			a, b, err := both(l, r, in)
			if err != nil {
				return 0, err
			}
			if b == 0 {
				return 0, &EvalError{Expr: src, Msg: "division by zero"}
			}
			return a / b, nil
		}
	}
	return operand{fn: fn, pos: left.pos}, nil
}

func both(l, r evalFn, in Input) (float64, float64, error) {
	a, err := l(in)
	if err != nil {
		return 0, 0, err
	}
	b, err := r(in)
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

// unary := ('+' | '-') unary | postfix
func (c *compiler) unary() (operand, error) {
	if c.is("-") || c.is("+") {
		op := c.next()
		inner, err := c.unary()
		if err != nil {
			return operand{}, err
		}
		fn, err := c.scalar(inner)
		if err != nil {
			return operand{}, err
		}
		if op.text == "+" {
			return operand{fn: fn, pos: op.pos}, nil
		}
		return operand{fn: func(in Input) (float64, error) {
			v, err := fn(in)
			return -v, err
		}, pos: op.pos}, nil
	}
	return c.postfix()
}

// postfix := primary ('[' index ']' | '.' ident)?
func (c *compiler) postfix() (operand, error) {
	op, err := c.primary()
	if err != nil {
		return operand{}, err
	}
	if !op.input {
		if c.is("[") || c.is(".") {
			return operand{}, c.errorf(c.peek().pos, "only %s can be indexed", BoundName)
		}
		return op, nil
	}

	switch {
	case c.is("["):
		c.next()
		if t := c.peek(); t.kind == tokString {
			c.next()
			if err := c.expect("]"); err != nil {
				return operand{}, err
			}
			op = operand{fn: c.field(t.text), pos: op.pos}
			break
		}
		idx, err := c.expr()
		if err != nil {
			return operand{}, err
		}
		fn, err := c.scalar(idx)
		if err != nil {
			return operand{}, err
		}
		if err := c.expect("]"); err != nil {
			return operand{}, err
		}
		op = operand{fn: c.index(fn), pos: op.pos}
	case c.is("."):
		c.next()
		t := c.next()
		if t.kind != tokIdent {
			return operand{}, c.errorf(t.pos, "expected field name after '.'")
		}
		op = operand{fn: c.field(t.text), pos: op.pos}
	default:
		return op, nil
	}

	if c.is("[") || c.is(".") {
		return operand{}, c.errorf(c.peek().pos, "a number cannot be indexed")
	}
	return op, nil
}

// primary := number | 'x' | '(' elems ')' | '[' elems ']'
func (c *compiler) primary() (operand, error) {
	t := c.next()
	switch t.kind {
	case tokNumber:
		v := t.num
		return operand{fn: func(Input) (float64, error) { return v, nil }, pos: t.pos}, nil
	case tokIdent:
		if t.text != BoundName {
			return operand{}, &ForbiddenReferenceError{Expr: c.src, Name: t.text}
		}
		return operand{input: true, pos: t.pos}, nil
	case tokPunct:
		switch t.text {
		case "(":
			return c.group(t, ")")
		case "[":
			return c.group(t, "]")
		}
	case tokString:
		return operand{}, c.errorf(t.pos, "strings are only allowed as %s['name']", BoundName)
	case tokEOF:
		return operand{}, c.errorf(t.pos, "unexpected end of expression")
	}
	return operand{}, c.errorf(t.pos, "unexpected %q", t.text)
}

// group parses a parenthesised expression, a tuple or a bracketed list.
func (c *compiler) group(open token, closing string) (operand, error) {
	var items []evalFn
	tuple := open.text == "["
	for !c.is(closing) {
		op, err := c.expr()
		if err != nil {
			return operand{}, err
		}
		fn, err := c.scalar(op)
		if err != nil {
			return operand{}, err
		}
		items = append(items, fn)
		if !c.is(",") {
			break
		}
		c.next()
		tuple = true
	}
	if err := c.expect(closing); err != nil {
		return operand{}, err
	}
	if !tuple {
		if len(items) == 0 {
			return operand{}, c.errorf(open.pos, "empty parentheses")
		}
		return operand{fn: items[0], pos: open.pos}, nil
	}
	if items == nil {
		items = []evalFn{}
	}
	return operand{items: items, pos: open.pos}, nil
}

func (c *compiler) index(idx evalFn) evalFn {
	src := c.src
	return func(in Input) (float64, error) {
		values, ok := in.(Values)
		if !ok {
			return 0, &EvalError{Expr: src, Msg: "positional access on named arguments"}
		}
		f, err := idx(in)
		if err != nil {
			return 0, err
		}
		if f != math.Trunc(f) || math.IsInf(f, 0) {
			return 0, &EvalError{Expr: src, Msg: fmt.Sprintf("index %g is not an integer", f)}
		}
		i := int(f)
		if i < 0 {
			i += len(values)
		}
		if i < 0 || i >= len(values) {
			return 0, &InsufficientValuesError{Expr: src, Index: int(f), Len: len(values)}
		}
		return values[i], nil
	}
}

func (c *compiler) field(name string) evalFn {
	src := c.src
	return func(in Input) (float64, error) {
		args, ok := in.(Args)
		if !ok {
			return 0, &EvalError{Expr: src, Msg: fmt.Sprintf("named access %q on positional values", name)}
		}
		v, ok := args[name]
		if !ok {
			return 0, &MissingArgumentError{Expr: src, Name: name}
		}
		return v, nil
	}
}

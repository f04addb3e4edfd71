package dref

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Vars is the variable namespace for one evaluation. Lookup is
// case-insensitive; Set stores keys lower-cased.
type Vars map[string]float64

func (v Vars) Set(name string, val float64) {
	v[strings.ToLower(name)] = val
}

func (v Vars) lookup(name string) (float64, bool) {
	val, ok := v[strings.ToLower(name)]
	return val, ok
}

// Program is a compiled channel expression. Expressions are compiled once
// per definition and evaluated once per track point. The grammar is a fixed
// allow-list (arithmetic, round/abs/min/max, named variables); there is no
// way to reach code, strings, or state from an expression.
type Program struct {
	root node
	src  string
}

// Compile parses an expression. Unknown functions and arity mistakes are
// reported here rather than at evaluation time.
func Compile(expr string) (*Program, error) {
	p := &parser{src: expr}
	root, err := p.parseExpr()
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", expr, err)
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return nil, fmt.Errorf("parse %q: unexpected %q at offset %d", expr, p.src[p.pos], p.pos)
	}
	return &Program{root: root, src: expr}, nil
}

// Eval computes the expression against vars. Unknown variables and division
// by zero are evaluation errors; the caller decides how to default.
func (p *Program) Eval(vars Vars) (float64, error) {
	v, err := p.root.eval(vars)
	if err != nil {
		return 0, fmt.Errorf("eval %q: %w", p.src, err)
	}
	return v, nil
}

func (p *Program) Source() string { return p.src }

type node interface {
	eval(vars Vars) (float64, error)
}

type numberNode float64

func (n numberNode) eval(Vars) (float64, error) { return float64(n), nil }

type varNode string

func (n varNode) eval(vars Vars) (float64, error) {
	val, ok := vars.lookup(string(n))
	if !ok {
		return 0, fmt.Errorf("unknown variable %q", string(n))
	}
	return val, nil
}

type negateNode struct {
	operand node
}

func (n negateNode) eval(vars Vars) (float64, error) {
	v, err := n.operand.eval(vars)
	if err != nil {
		return 0, err
	}
	return -v, nil
}

type binaryNode struct {
	op          byte
	left, right node
}

func (n binaryNode) eval(vars Vars) (float64, error) {
	l, err := n.left.eval(vars)
	if err != nil {
		return 0, err
	}
	r, err := n.right.eval(vars)
	if err != nil {
		return 0, err
	}
	switch n.op {
	case '+':
		return l + r, nil
	case '-':
		return l - r, nil
	case '*':
		return l * r, nil
	default:
		if r == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return l / r, nil
	}
}

type callNode struct {
	fn   string
	args []node
}

func (n callNode) eval(vars Vars) (float64, error) {
	args := make([]float64, len(n.args))
	for i, a := range n.args {
		v, err := a.eval(vars)
		if err != nil {
			return 0, err
		}
		args[i] = v
	}
	switch n.fn {
	case "round":
		if len(args) == 1 {
			return math.Round(args[0]), nil
		}
		scale := math.Pow(10, args[1])
		return math.Round(args[0]*scale) / scale, nil
	case "abs":
		return math.Abs(args[0]), nil
	case "min":
		m := args[0]
		for _, v := range args[1:] {
			m = math.Min(m, v)
		}
		return m, nil
	default: // max
		m := args[0]
		for _, v := range args[1:] {
			m = math.Max(m, v)
		}
		return m, nil
	}
}

type parser struct {
	src string
	pos int
}

func (p *parser) parseExpr() (node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) || (p.src[p.pos] != '+' && p.src[p.pos] != '-') {
			return left, nil
		}
		op := p.src[p.pos]
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, left: left, right: right}
	}
}

func (p *parser) parseTerm() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) || (p.src[p.pos] != '*' && p.src[p.pos] != '/') {
			return left, nil
		}
		op := p.src[p.pos]
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, left: left, right: right}
	}
}

func (p *parser) parseUnary() (node, error) {
	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == '-' {
		p.pos++
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return negateNode{operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return nil, fmt.Errorf("unexpected end of expression")
	}
	c := p.src[p.pos]
	switch {
	case c == '(':
		p.pos++
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return inner, nil
	case c == '{':
		p.pos++
		end := strings.IndexByte(p.src[p.pos:], '}')
		if end < 0 {
			return nil, fmt.Errorf("unterminated variable reference")
		}
		name := strings.TrimSpace(p.src[p.pos : p.pos+end])
		p.pos += end + 1
		if name == "" {
			return nil, fmt.Errorf("empty variable reference")
		}
		return varNode(name), nil
	case c >= '0' && c <= '9' || c == '.':
		start := p.pos
		for p.pos < len(p.src) && (p.src[p.pos] >= '0' && p.src[p.pos] <= '9' || p.src[p.pos] == '.') {
			p.pos++
		}
		v, err := strconv.ParseFloat(p.src[start:p.pos], 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", p.src[start:p.pos])
		}
		return numberNode(v), nil
	case isIdentStart(c):
		start := p.pos
		for p.pos < len(p.src) && isIdentPart(p.src[p.pos]) {
			p.pos++
		}
		name := p.src[start:p.pos]
		p.skipSpace()
		if p.pos < len(p.src) && p.src[p.pos] == '(' {
			p.pos++
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			return makeCall(name, args)
		}
		return varNode(name), nil
	}
	return nil, fmt.Errorf("unexpected %q at offset %d", c, p.pos)
}

// parseArgs consumes a comma-separated argument list up to and including the
// closing paren. The opening paren has already been consumed.
func (p *parser) parseArgs() ([]node, error) {
	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == ')' {
		p.pos++
		return nil, nil
	}
	var args []node
	for {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		p.skipSpace()
		if p.pos < len(p.src) && p.src[p.pos] == ',' {
			p.pos++
			continue
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return args, nil
	}
}

func makeCall(name string, args []node) (node, error) {
	fn := strings.ToLower(name)
	switch fn {
	case "round":
		if len(args) != 1 && len(args) != 2 {
			return nil, fmt.Errorf("round takes 1 or 2 arguments, got %d", len(args))
		}
	case "abs":
		if len(args) != 1 {
			return nil, fmt.Errorf("abs takes 1 argument, got %d", len(args))
		}
	case "min", "max":
		if len(args) < 1 {
			return nil, fmt.Errorf("%s takes at least 1 argument", fn)
		}
	default:
		return nil, fmt.Errorf("unknown function %q", name)
	}
	return callNode{fn: fn, args: args}, nil
}

func (p *parser) expect(c byte) error {
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != c {
		return fmt.Errorf("expected %q at offset %d", c, p.pos)
	}
	p.pos++
	return nil
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}

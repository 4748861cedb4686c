package abacus

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// InvalidExpression is what a learner sees when a question has no computable answer.
const InvalidExpression = "Invalid Expression"

var (
	ErrEmptyExpression = errors.New("empty expression")
	ErrNotFinite       = errors.New("result is not a finite number")
)

// Result is the outcome of evaluating an expression.
type Result struct {
	Value float64
	Err   error
}

func (r Result) Ok() bool { return r.Err == nil }

// String returns the answer as displayed: the shortest form of the value, or InvalidExpression.
// Values from 1e21 up and below 1e-6 use an exponent: "1e+21", "2.5e-7".
func (r Result) String() string {
	if r.Err != nil {
		return InvalidExpression
	}
	if abs := math.Abs(r.Value); abs != 0 && (abs >= 1e21 || abs < 1e-6) {
		mant, exp, _ := strings.Cut(strconv.FormatFloat(r.Value, 'e', -1, 64), "e")
		return mant + "e" + exp[:1] + strings.TrimLeft(exp[1:], "0")
	}
	return strconv.FormatFloat(r.Value, 'f', -1, 64)
}

var glyphReplacer = strings.NewReplacer(TimesGlyph, "*", "x", "*", "X", "*", DivideGlyph, "/")

// Sanitize maps display glyphs back to operators and drops anything outside [0-9+\-*/().].
func Sanitize(expr string) string {
	expr = glyphReplacer.Replace(expr)
	var sb strings.Builder
	sb.Grow(len(expr))
	for _, r := range expr {
		if (r >= '0' && r <= '9') || strings.ContainsRune("+-*/().", r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// Evaluate computes an arithmetic expression supporting + - * / and parentheses.
// Failures (syntax errors, division by zero, non finite results) are reported in Result.Err.
func Evaluate(expr string) Result {
	src := Sanitize(expr)
	if src == "" {
		return Result{Err: ErrEmptyExpression}
	}

	p := &parser{src: src}
	val, err := p.parseExpr()
	if err != nil {
		return Result{Err: err}
	}
	if p.pos < len(p.src) {
		return Result{Err: p.errorf("unexpected %q", p.src[p.pos])}
	}
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return Result{Err: ErrNotFinite}
	}
	if val == 0 {
		val = 0 // no "-0"
	}
	return Result{Value: val}
}

// EvaluateTokens evaluates the expression rebuilt from `tokens`.
func EvaluateTokens(tokens []string) Result {
	return Evaluate(Join(tokens))
}

// parser is a recursive descent parser over the grammar:
//
//	expr    = term { ("+" | "-") term }
//	term    = unary { ("*" | "/") unary }
//	unary   = ("+" | "-") unary | primary
//	primary = number | "(" expr ")"
type parser struct {
	src string
	pos int
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return errors.Wrapf(errors.Errorf(format, args...), "at offset %d", p.pos)
}

func (p *parser) peek() byte {
	if p.pos < len(p.src) {
		return p.src[p.pos]
	}
	return 0
}

func (p *parser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		op := p.peek()
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if op == '+' {
			left += right
		} else {
			left -= right
		}
	}
}

func (p *parser) parseTerm() (float64, error) {
	left, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		op := p.peek()
		if op != '*' && op != '/' {
			return left, nil
		}
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		if op == '*' {
			left *= right
		} else {
			left /= right
		}
	}
}

func (p *parser) parseUnary() (float64, error) {
	switch p.peek() {
	case '+':
		p.pos++
		return p.parseUnary()
	case '-':
		p.pos++
		val, err := p.parseUnary()
		return -val, err
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (float64, error) {
	switch c := p.peek(); {
	case c == '(':
		p.pos++
		val, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if p.peek() != ')' {
			return 0, p.errorf("missing closing parenthesis")
		}
		p.pos++
		return val, nil
	case (c >= '0' && c <= '9') || c == '.':
		return p.parseNumber()
	case c == 0:
		return 0, p.errorf("unexpected end of expression")
	default:
		return 0, p.errorf("unexpected %q", c)
	}
}

func (p *parser) parseNumber() (float64, error) {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if (c < '0' || c > '9') && c != '.' {
			break
		}
		p.pos++
	}
	val, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		return 0, p.errorf("invalid number %q", p.src[start:p.pos])
	}
	return val, nil
}

package assistant

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Sandboxed arithmetic. A whitelist regex selects the candidate substring,
// then a recursive-descent parser evaluates it. Only + - * / % ( ) numbers
// and the tokens pi, e, abs, round exist; there is no name resolution and
// nothing to inject into.

var (
	exprCandidateRe = regexp.MustCompile(`(?i)(?:abs|round|pi|e|[\d\s().+*/%-])+`)
	// a lone constant the scanner glued onto the front ("e 2+2") is noise,
	// but "pi * 2" is real: only strip when a value follows directly
	strayLeadConstRe = regexp.MustCompile(`(?i)^(?:e|pi)\s+((?:\d|\(|\.|pi\b|e\b).*)$`)
)

// ExtractExpression pulls the longest arithmetic-looking substring out of
// free text. Empty result means nothing evaluable was found.
func ExtractExpression(text string) string {
	best := ""
	for _, cand := range exprCandidateRe.FindAllString(text, -1) {
		c := strings.TrimSpace(cand)
		if !strings.ContainsAny(c, "0123456789") &&
			!strings.Contains(strings.ToLower(c), "pi") {
			continue
		}
		if len(c) > len(best) {
			best = c
		}
	}
	best = strings.Trim(best, " .")
	for {
		m := strayLeadConstRe.FindStringSubmatch(best)
		if m == nil {
			break
		}
		best = m[1]
	}
	return best
}

// EvalExpression evaluates a whitelisted arithmetic expression.
// Any malformed input, unknown token, or division by zero returns an error.
func EvalExpression(expr string) (float64, error) {
	p := &exprParser{input: strings.ToLower(strings.TrimSpace(expr))}
	if p.input == "" {
		return 0, errors.New("empty expression")
	}
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return 0, fmt.Errorf("unexpected %q", p.input[p.pos:])
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("result out of range")
	}
	return v, nil
}

// FormatNumber renders a result without a trailing ".0" for whole values.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

// expr := term (('+'|'-') term)*
func (p *exprParser) parseExpr() (float64, error) {
	v, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '+':
			p.pos++
			r, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			v += r
		case '-':
			p.pos++
			r, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			v -= r
		default:
			return v, nil
		}
	}
}

// term := unary (('*'|'/'|'%') unary)*
func (p *exprParser) parseTerm() (float64, error) {
	v, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '*':
			p.pos++
			r, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			v *= r
		case '/':
			p.pos++
			r, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			if r == 0 {
				return 0, errors.New("division by zero")
			}
			v /= r
		case '%':
			p.pos++
			r, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			if r == 0 {
				return 0, errors.New("division by zero")
			}
			v = math.Mod(v, r)
		default:
			return v, nil
		}
	}
}

// unary := ('-'|'+') unary | primary
func (p *exprParser) parseUnary() (float64, error) {
	switch p.peek() {
	case '-':
		p.pos++
		v, err := p.parseUnary()
		return -v, err
	case '+':
		p.pos++
		return p.parseUnary()
	}
	return p.parsePrimary()
}

// primary := number | 'pi' | 'e' | ('abs'|'round') '(' expr ')' | '(' expr ')'
func (p *exprParser) parsePrimary() (float64, error) {
	c := p.peek()
	switch {
	case c == '(':
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if p.peek() != ')' {
			return 0, errors.New("missing closing parenthesis")
		}
		p.pos++
		return v, nil

	case c >= '0' && c <= '9' || c == '.':
		return p.parseNumber()

	case c >= 'a' && c <= 'z':
		word := p.parseWord()
		switch word {
		case "pi":
			return math.Pi, nil
		case "e":
			return math.E, nil
		case "abs", "round":
			if p.peek() != '(' {
				return 0, fmt.Errorf("%s needs parentheses", word)
			}
			p.pos++
			v, err := p.parseExpr()
			if err != nil {
				return 0, err
			}
			if p.peek() != ')' {
				return 0, errors.New("missing closing parenthesis")
			}
			p.pos++
			if word == "abs" {
				return math.Abs(v), nil
			}
			return math.Round(v), nil
		default:
			return 0, fmt.Errorf("unknown token %q", word)
		}
	}
	return 0, errors.New("malformed expression")
}

func (p *exprParser) parseNumber() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c >= '0' && c <= '9' || c == '.' {
			p.pos++
			continue
		}
		break
	}
	v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("bad number %q", p.input[start:p.pos])
	}
	return v, nil
}

func (p *exprParser) parseWord() string {
	start := p.pos
	for p.pos < len(p.input) && p.input[p.pos] >= 'a' && p.input[p.pos] <= 'z' {
		p.pos++
	}
	return p.input[start:p.pos]
}

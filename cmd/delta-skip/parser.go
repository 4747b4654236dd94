// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package main

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	delta "github.com/delta-go/delta-go"
)

// parsePredicate parses a SQL-ish predicate such as
//
//	a > 15 AND (b = 'x' OR c != 3.5)
//
// into an expression tree. Quoted values become string literals, numbers
// become long or double literals, and true/false become booleans.
func parsePredicate(input string) (delta.Expression, error) {
	p := &parser{input: input}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}

	p.skipSpace()
	if p.pos != len(p.input) {
		return nil, fmt.Errorf("unexpected trailing input at %q", p.input[p.pos:])
	}

	return expr, nil
}

type parser struct {
	input string
	pos   int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) && unicode.IsSpace(rune(p.input[p.pos])) {
		p.pos++
	}
}

// keyword consumes kw case-insensitively if it is the next word.
func (p *parser) keyword(kw string) bool {
	p.skipSpace()
	end := p.pos + len(kw)
	if end > len(p.input) || !strings.EqualFold(p.input[p.pos:end], kw) {
		return false
	}
	if end < len(p.input) {
		if c := rune(p.input[end]); unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' {
			return false
		}
	}
	p.pos = end

	return true
}

func (p *parser) parseOr() (delta.Expression, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	operands := []delta.Expression{left}
	for p.keyword("OR") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		operands = append(operands, right)
	}
	if len(operands) == 1 {
		return left, nil
	}

	return delta.NewOr(operands...), nil
}

func (p *parser) parseAnd() (delta.Expression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	operands := []delta.Expression{left}
	for p.keyword("AND") {
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		operands = append(operands, right)
	}
	if len(operands) == 1 {
		return left, nil
	}

	return delta.NewAnd(operands...), nil
}

func (p *parser) parseUnary() (delta.Expression, error) {
	if p.keyword("NOT") {
		child, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		return delta.NewNot(child), nil
	}

	p.skipSpace()
	if p.pos < len(p.input) && p.input[p.pos] == '(' {
		p.pos++
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.pos >= len(p.input) || p.input[p.pos] != ')' {
			return nil, fmt.Errorf("missing ')' at offset %d", p.pos)
		}
		p.pos++

		return expr, nil
	}

	return p.parseComparison()
}

var comparisonOps = []struct {
	token string
	op    delta.Operation
}{
	// longest first so '<=' wins over '<'
	{"<=", delta.OpLTEQ},
	{">=", delta.OpGTEQ},
	{"!=", delta.OpNEQ},
	{"<>", delta.OpNEQ},
	{"==", delta.OpEQ},
	{"<", delta.OpLT},
	{">", delta.OpGT},
	{"=", delta.OpEQ},
}

func (p *parser) parseComparison() (delta.Expression, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	p.skipSpace()
	for _, c := range comparisonOps {
		if strings.HasPrefix(p.input[p.pos:], c.token) {
			p.pos += len(c.token)
			right, err := p.parseOperand()
			if err != nil {
				return nil, err
			}

			return delta.NewBinary(c.op, left, right), nil
		}
	}

	return nil, fmt.Errorf("expected comparison operator at offset %d", p.pos)
}

func (p *parser) parseOperand() (delta.Expression, error) {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return nil, fmt.Errorf("unexpected end of predicate")
	}

	switch c := p.input[p.pos]; {
	case c == '\'':
		return p.parseString()
	case c == '-' || unicode.IsDigit(rune(c)):
		return p.parseNumber()
	case unicode.IsLetter(rune(c)) || c == '_':
		word := p.parseWord()
		switch strings.ToLower(word) {
		case "true":
			return delta.Lit(true), nil
		case "false":
			return delta.Lit(false), nil
		}

		return delta.Col(word), nil
	}

	return nil, fmt.Errorf("unexpected character %q at offset %d", p.input[p.pos], p.pos)
}

func (p *parser) parseWord() string {
	start := p.pos
	for p.pos < len(p.input) {
		c := rune(p.input[p.pos])
		if !unicode.IsLetter(c) && !unicode.IsDigit(c) && c != '_' && c != '.' {
			break
		}
		p.pos++
	}

	return p.input[start:p.pos]
}

func (p *parser) parseString() (delta.Expression, error) {
	start := p.pos
	p.pos++ // opening quote
	var b strings.Builder
	for p.pos < len(p.input) {
		if p.input[p.pos] == '\'' {
			// doubled quote is an escaped quote
			if p.pos+1 < len(p.input) && p.input[p.pos+1] == '\'' {
				b.WriteByte('\'')
				p.pos += 2

				continue
			}
			p.pos++

			return delta.Lit(b.String()), nil
		}
		b.WriteByte(p.input[p.pos])
		p.pos++
	}

	return nil, fmt.Errorf("unterminated string starting at offset %d", start)
}

func (p *parser) parseNumber() (delta.Expression, error) {
	start := p.pos
	if p.input[p.pos] == '-' {
		p.pos++
	}
	float := false
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c == '.' || c == 'e' || c == 'E' {
			float = true
		} else if !unicode.IsDigit(rune(c)) && !(float && (c == '+' || c == '-')) {
			break
		}
		p.pos++
	}

	text := p.input[start:p.pos]
	if float {
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q: %w", text, err)
		}

		return delta.Lit(v), nil
	}

	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad number %q: %w", text, err)
	}

	return delta.Lit(v), nil
}

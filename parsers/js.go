/*
 * Copyright (C) 2026 Simone Pezzano
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as
 * published by the Free Software Foundation, either version 3 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package parsers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// The literal grammar covers what a translation module normally is: an optional `export default` or
// `module.exports =` header followed by one object literal made of strings, template literals without
// interpolation, numbers, booleans, null, arrays and nested objects. Anything smarter than that (constants,
// interpolation, spread, function calls) is left to the script engine.

var jsLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\n]*|/\*([^*]|\*+[^*/])*\*+/`},
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "String", Pattern: `"(\\.|[^"\\\n])*"|'(\\.|[^'\\\n])*'`},
	{Name: "Template", Pattern: "`(\\\\.|[^`\\\\])*`"},
	{Name: "Number", Pattern: `[-+]?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?`},
	{Name: "Ident", Pattern: `[a-zA-Z_$][a-zA-Z0-9_$]*`},
	{Name: "Punct", Pattern: `[{}\[\](),:;=.]`},
})

type jsModule struct {
	Header string   `@( "export" "default" | "module" "." "exports" "=" )?`
	Value  *jsValue `( "(" @@ ")" | @@ ) ";"?`
}

type jsValue struct {
	Object *jsObject `  @@`
	Array  *jsArray  `| @@`
	String *string   `| @( String | Template )`
	Number *float64  `| @Number`
	Bool   *string   `| @( "true" | "false" )`
	Null   bool      `| @"null"`
}

type jsObject struct {
	Entries []*jsEntry `"{" ( @@ ","? )* "}"`
}

type jsEntry struct {
	Name   *string     `( @( Ident | String )`
	Number jsNumberKey `| @Number ) ":"`
	Value  *jsValue    `@@`
}

func (e *jsEntry) key() string {
	if e.Name != nil {
		return *e.Name
	}
	return string(e.Number)
}

// jsNumberKey is a numeric property name, stored the way JavaScript turns it into a string.
type jsNumberKey string

func (k *jsNumberKey) Capture(values []string) error {
	raw := strings.Join(values, "")
	if strings.HasPrefix(raw, "-") || strings.HasPrefix(raw, "+") {
		return fmt.Errorf("signed property name %s", raw)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil && !math.IsInf(f, 0) {
		return err
	}
	*k = jsNumberKey(jsNumberString(f))
	return nil
}

// jsNumberString formats a number like JavaScript's Number.prototype.toString.
func jsNumberString(f float64) string {
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if abs := math.Abs(f); abs == 0 || (abs >= 1e-6 && abs < 1e21) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	mantissa, exp, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, 64), "e")
	return mantissa + "e" + exp[:1] + strings.TrimLeft(exp[1:], "0")
}

type jsArray struct {
	Items []*jsValue `"[" ( @@ ","? )* "]"`
}

var errInterpolation = errors.New("template literal interpolation is not a literal")

var jsLiteralParser = participle.MustBuild[jsModule](
	participle.Lexer(jsLexer),
	participle.Elide("Comment", "Whitespace"),
	participle.Map(unquoteToken, "String", "Template"),
	participle.UseLookahead(2),
)

func unquoteToken(token lexer.Token) (lexer.Token, error) {
	value, err := unquoteJS(token.Value)
	if err != nil {
		return token, participle.Errorf(token.Pos, "%s", err.Error())
	}
	token.Value = value
	return token, nil
}

// unquoteJS strips the quotes off a JS string or template literal and resolves its escape sequences.
func unquoteJS(s string) (string, error) {
	if len(s) < 2 {
		return "", fmt.Errorf("invalid string literal %s", s)
	}
	quote := s[0]
	body := s[1 : len(s)-1]
	if quote == '`' && strings.Contains(body, "${") {
		return "", errInterpolation
	}
	var sb strings.Builder
	for i := 0; i < len(body); {
		c := body[i]
		if c != '\\' {
			r, size := utf8.DecodeRuneInString(body[i:])
			sb.WriteRune(r)
			i += size
			continue
		}
		if i+1 >= len(body) {
			return "", fmt.Errorf("dangling escape in %s", s)
		}
		next := body[i+1]
		i += 2
		switch next {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'v':
			sb.WriteByte('\v')
		case '0':
			sb.WriteByte(0)
		case 'x':
			if i+2 > len(body) {
				return "", fmt.Errorf("invalid \\x escape in %s", s)
			}
			n, err := strconv.ParseUint(body[i:i+2], 16, 8)
			if err != nil {
				return "", fmt.Errorf("invalid \\x escape in %s", s)
			}
			sb.WriteRune(rune(n))
			i += 2
		case 'u':
			r, consumed, err := readUnicodeEscape(body[i:])
			if err != nil {
				return "", fmt.Errorf("%w in %s", err, s)
			}
			i += consumed
			// surrogate pairs come as two consecutive escapes
			if utf16High(r) && strings.HasPrefix(body[i:], `\u`) {
				low, lowConsumed, err := readUnicodeEscape(body[i+2:])
				if err == nil && utf16Low(low) {
					r = (r-0xD800)<<10 + (low - 0xDC00) + 0x10000
					i += 2 + lowConsumed
				}
			}
			sb.WriteRune(r)
		default:
			// \' \" \` \\ and any other escaped character stand for themselves
			r, size := utf8.DecodeRuneInString(body[i-1:])
			sb.WriteRune(r)
			i += size - 1
		}
	}
	return sb.String(), nil
}

// readUnicodeEscape reads the part after `\u`: either four hex digits or a {codepoint}.
func readUnicodeEscape(s string) (rune, int, error) {
	if strings.HasPrefix(s, "{") {
		end := strings.IndexByte(s, '}')
		if end < 0 {
			return 0, 0, errors.New("unterminated \\u{} escape")
		}
		n, err := strconv.ParseUint(s[1:end], 16, 32)
		if err != nil {
			return 0, 0, errors.New("invalid \\u{} escape")
		}
		if n > utf8.MaxRune {
			return 0, 0, errors.New("\\u{} escape out of range")
		}
		return rune(n), end + 1, nil
	}
	if len(s) < 4 {
		return 0, 0, errors.New("invalid \\u escape")
	}
	n, err := strconv.ParseUint(s[:4], 16, 32)
	if err != nil {
		return 0, 0, errors.New("invalid \\u escape")
	}
	return rune(n), 4, nil
}

func utf16High(r rune) bool { return r >= 0xD800 && r < 0xDC00 }
func utf16Low(r rune) bool  { return r >= 0xDC00 && r < 0xE000 }

func (v *jsValue) toAny() any {
	switch {
	case v.Object != nil:
		out := make(map[string]any, len(v.Object.Entries))
		for _, e := range v.Object.Entries {
			out[e.key()] = e.Value.toAny()
		}
		return out
	case v.Array != nil:
		out := make([]any, len(v.Array.Items))
		for i, item := range v.Array.Items {
			out[i] = item.toAny()
		}
		return out
	case v.String != nil:
		return *v.String
	case v.Number != nil:
		return *v.Number
	case v.Bool != nil:
		return *v.Bool == "true"
	default:
		return nil
	}
}

// ScriptEvaluator runs a whole module and returns its exports.
type ScriptEvaluator interface {
	Evaluate(ctx context.Context, name string, code string) (any, error)
}

// JSParser parses JavaScript localization modules. The literal grammar is tried first; if the module is not a plain
// literal and an evaluator is configured, the module is evaluated instead.
type JSParser struct {
	evaluator ScriptEvaluator
}

// NewJSParser creates a JSParser. A nil evaluator restricts the parser to plain literals.
func NewJSParser(evaluator ScriptEvaluator) *JSParser {
	return &JSParser{evaluator: evaluator}
}

func (p *JSParser) Parse(ctx context.Context, name string, data []byte) (map[string]any, error) {
	literal, literalErr := ParseJSLiteral(name, data)
	if literalErr == nil {
		return literal, nil
	}
	if errors.Is(literalErr, ErrTopLevelNotMapping) || p.evaluator == nil {
		return nil, literalErr
	}
	doc, err := p.evaluator.Evaluate(ctx, name, string(data))
	if err != nil {
		return nil, fmt.Errorf("not a plain literal (%v) and evaluation failed: %w", literalErr, err)
	}
	return toMapping(doc)
}

// ParseJSLiteral parses a module made of a single literal, without evaluating anything.
func ParseJSLiteral(name string, data []byte) (map[string]any, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return map[string]any{}, nil
	}
	module, err := jsLiteralParser.ParseBytes(name, data)
	if err != nil {
		return nil, err
	}
	return toMapping(module.Value.toAny())
}

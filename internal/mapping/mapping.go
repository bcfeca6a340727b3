// Package mapping interprets the declarative field mappings that turn a
// directory entry into local user and group columns.
//
// A mapping is written one rule per line:
//
//	pid       = 12
//	dn        = <dn>
//	name      = <givenName> <sn>
//	tstamp    = {DATE}
//	nickname  = {hookName|join;separator|, }<mail>
//
// Expressions are literals, the constants {DATE} and {RAND}, templates with
// <attribute> markers, or hook invocations resolved through a Registry.
package mapping

import (
	"bufio"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cast"
)

// Reserved fields.
const (
	// FieldParentID holds the container id new records are created in.
	FieldParentID = "pid"
	// FieldUserGroup names the membership attribute of users and is never merged.
	FieldUserGroup = "usergroup"
	// FieldDN tracks the directory DN of a record.
	FieldDN = "dn"
)

// Kind tags the variant of an Expression.
type Kind int

// Expression kinds.
const (
	Literal Kind = iota
	Constant
	Attribute
	Hook
)

func (k Kind) String() string {
	switch k {
	case Constant:
		return "constant"
	case Attribute:
		return "attribute"
	case Hook:
		return "hook"
	default:
		return "literal"
	}
}

// Constant tags.
const (
	ConstantDate   = "DATE"
	ConstantRandom = "RAND"
)

// HookNameParam is the hook parameter naming the processor.
const HookNameParam = "hookName"

// ErrInvalidRule is returned for lines that are not "field = expression".
var ErrInvalidRule = errors.New("invalid mapping rule")

var (
	markerRe = regexp.MustCompile(`<(.+?)>`)
	hookRe   = regexp.MustCompile(`\{(.*)\}`)
)

// Expression is a parsed mapping expression.
type Expression struct {
	Kind Kind
	// Raw is the expression text as configured.
	Raw string
	// Constant is DATE or RAND for Constant expressions.
	Constant string
	// Attributes lists the marker attribute names in order of appearance, lower-cased.
	Attributes []string
	// Params are the hook parameters, including hookName.
	Params map[string]string
}

// HookName returns the processor name of a Hook expression.
func (e Expression) HookName() string {
	return e.Params[HookNameParam]
}

// ParseExpression classifies raw.
func ParseExpression(raw string) Expression {
	e := Expression{Kind: Literal, Raw: raw, Attributes: markerAttributes(raw)}

	if m := hookRe.FindStringSubmatch(raw); m != nil {
		switch raw {
		case "{" + ConstantDate + "}":
			e.Kind, e.Constant = Constant, ConstantDate
		case "{" + ConstantRandom + "}":
			e.Kind, e.Constant = Constant, ConstantRandom
		default:
			e.Kind, e.Params = Hook, hookParams(m[1])
		}

		return e
	}

	if len(e.Attributes) > 0 {
		e.Kind = Attribute
	}

	return e
}

// hookParams splits "key|value;key|value". A key without value maps to "".
func hookParams(s string) map[string]string {
	params := map[string]string{}

	for _, pair := range strings.Split(s, ";") {
		if pair == "" {
			continue
		}

		key, value, _ := strings.Cut(pair, "|")
		params[key] = value
	}

	return params
}

func markerAttributes(s string) []string {
	var names []string

	for _, m := range markerRe.FindAllStringSubmatch(s, -1) {
		name := strings.ToLower(m[1])
		if !contains(names, name) {
			names = append(names, name)
		}
	}

	return names
}

// Rule maps one local field.
type Rule struct {
	Field string
	Expr  Expression
}

// Mapping is an ordered rule list. Later rules for the same field win.
type Mapping []Rule

// Parse reads one "field = expression" rule per line. Blank lines and lines
// starting with # are skipped. Whitespace around field and expression is trimmed.
func Parse(text string) (Mapping, error) {
	var (
		m       Mapping
		scanner = bufio.NewScanner(strings.NewReader(text))
		line    int
	)

	for scanner.Scan() {
		line++

		s := strings.TrimSpace(scanner.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}

		field, expr, ok := strings.Cut(s, "=")
		field = strings.TrimSpace(field)

		if !ok || field == "" || strings.ContainsAny(field, " \t<>{}") {
			return nil, fmt.Errorf("%w on line %d: %q", ErrInvalidRule, line, s)
		}

		m = append(m, Rule{Field: field, Expr: ParseExpression(strings.TrimSpace(expr))})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read mapping: %w", err)
	}

	return m, nil
}

// MustParse is Parse for mappings known at compile time.
func MustParse(text string) Mapping {
	m, err := Parse(text)
	if err != nil {
		panic(err)
	}

	return m
}

// Lookup returns the last rule for field.
func (m Mapping) Lookup(field string) (Rule, bool) {
	for i := len(m) - 1; i >= 0; i-- {
		if m[i].Field == field {
			return m[i], true
		}
	}

	return Rule{}, false
}

// Attributes returns every marker attribute the mapping reads, in order of appearance.
func (m Mapping) Attributes() []string {
	var names []string

	for _, r := range m {
		for _, name := range r.Expr.Attributes {
			if !contains(names, name) {
				names = append(names, name)
			}
		}
	}

	return names
}

// ParentID returns the container id configured with the pid rule, 0 without one.
func (m Mapping) ParentID() uint64 {
	r, ok := m.Lookup(FieldParentID)
	if !ok || r.Expr.Kind != Literal {
		return 0
	}

	return cast.ToUint64(r.Expr.Raw)
}

// MembershipAttribute returns the attribute named by the usergroup rule, "" without one.
func (m Mapping) MembershipAttribute() string {
	r, ok := m.Lookup(FieldUserGroup)
	if !ok || len(r.Expr.Attributes) == 0 {
		return ""
	}

	return r.Expr.Attributes[0]
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}

	return false
}

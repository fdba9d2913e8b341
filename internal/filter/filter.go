// Package filter builds boolean filter expressions for index queries.
//
// Expressions render to OData syntax (filename eq 'a.docx') for logging and
// for services that speak it, and can be evaluated in-process against a
// document's fields. Every literal is escaped when rendered; collection
// tokens are validated when the expression is built.
package filter

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidLiteral is returned when a value cannot be placed safely in a filter.
	ErrInvalidLiteral = errors.New("invalid filter literal")
	// ErrInvalidField is returned for field names that are not plain identifiers.
	ErrInvalidField = errors.New("invalid filter field")
)

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Expr is a filter expression.
type Expr interface {
	// String renders the expression in OData syntax.
	String() string
	// Match reports whether a document with the given fields satisfies the expression.
	Match(doc map[string]any) bool
}

// Comparison is an equality test of a single field against a literal.
// Value holds one of string, int64, bool or time.Time.
type Comparison struct {
	Field string
	Value any
}

// Eq returns field eq value. Integers of any width are widened to int64 and
// unsupported types are compared by their string form.
func Eq(field string, value any) Comparison {
	return Comparison{Field: field, Value: normalize(value)}
}

func (c Comparison) String() string {
	return c.Field + " eq " + literal(c.Value)
}

func (c Comparison) Match(doc map[string]any) bool {
	v, ok := doc[c.Field]
	if !ok || v == nil {
		return false
	}
	return equal(normalize(v), c.Value)
}

// Membership is true when any element of a collection field is in Values.
type Membership struct {
	Field  string
	Values []string
}

// AnyIn returns field/any(t: search.in(t, 'v1,v2', ',')). Tokens must be
// non-empty and free of the list delimiter and control characters. An empty
// value list is valid and matches nothing.
func AnyIn(field string, values []string) (Membership, error) {
	if !fieldPattern.MatchString(field) {
		return Membership{}, fmt.Errorf("%w: %q", ErrInvalidField, field)
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			return Membership{}, fmt.Errorf("%w: empty token", ErrInvalidLiteral)
		}
		if strings.Contains(v, ",") {
			return Membership{}, fmt.Errorf("%w: token %q contains a comma", ErrInvalidLiteral, v)
		}
		for _, r := range v {
			if r < 0x20 || r == 0x7f {
				return Membership{}, fmt.Errorf("%w: token %q contains a control character", ErrInvalidLiteral, v)
			}
		}
		out = append(out, v)
	}
	return Membership{Field: field, Values: out}, nil
}

func (m Membership) String() string {
	return fmt.Sprintf("%s/any(t: search.in(t, %s, ','))", m.Field, quote(strings.Join(m.Values, ",")))
}

func (m Membership) Match(doc map[string]any) bool {
	if len(m.Values) == 0 {
		return false
	}
	want := make(map[string]struct{}, len(m.Values))
	for _, v := range m.Values {
		want[v] = struct{}{}
	}
	for _, have := range stringsOf(doc[m.Field]) {
		if _, ok := want[have]; ok {
			return true
		}
	}
	return false
}

// Op joins the children of a Group.
type Op string

const (
	OpAnd Op = "and"
	OpOr  Op = "or"
)

// Group combines expressions with a single boolean operator.
type Group struct {
	Op    Op
	Exprs []Expr
}

// And joins the non-nil expressions. It returns nil when none remain and the
// expression itself when only one does.
func And(exprs ...Expr) Expr { return join(OpAnd, exprs) }

// Or joins the non-nil expressions like And.
func Or(exprs ...Expr) Expr { return join(OpOr, exprs) }

func join(op Op, exprs []Expr) Expr {
	kept := make([]Expr, 0, len(exprs))
	for _, e := range exprs {
		if e != nil {
			kept = append(kept, e)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return Group{Op: op, Exprs: kept}
}

func (g Group) String() string {
	parts := make([]string, len(g.Exprs))
	for i, e := range g.Exprs {
		parts[i] = "(" + e.String() + ")"
	}
	return strings.Join(parts, " "+string(g.Op)+" ")
}

func (g Group) Match(doc map[string]any) bool {
	if g.Op == OpOr {
		for _, e := range g.Exprs {
			if e.Match(doc) {
				return true
			}
		}
		return false
	}
	for _, e := range g.Exprs {
		if !e.Match(doc) {
			return false
		}
	}
	return true
}

// Matches evaluates expr against doc; a nil expression matches everything.
func Matches(expr Expr, doc map[string]any) bool {
	if expr == nil {
		return true
	}
	return expr.Match(doc)
}

// Render returns the OData form of expr, or "" for nil.
func Render(expr Expr) string {
	if expr == nil {
		return ""
	}
	return expr.String()
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func literal(v any) string {
	switch x := v.(type) {
	case string:
		return quote(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	}
	return quote(fmt.Sprint(v))
}

func normalize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case time.Time:
		return x.UTC()
	case float64:
		if x == float64(int64(x)) {
			return int64(x)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return int64(rv.Uint())
	}
	return fmt.Sprint(v)
}

func equal(have, want any) bool {
	if wt, ok := want.(time.Time); ok {
		switch h := have.(type) {
		case time.Time:
			return h.Equal(wt)
		case string:
			parsed, err := time.Parse(time.RFC3339Nano, h)
			return err == nil && parsed.Equal(wt)
		}
		return false
	}
	return have == want
}

func stringsOf(v any) []string {
	switch x := v.(type) {
	case []string:
		return x
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{x}
	}
	return nil
}

// Package condition evaluates the trigger rule condition language: an
// OR-of-AND list of "field operator value" clauses checked against a payload.
//
//	status = 1 and amount > 100 or tier Contains 'gold'
//
// Keywords are case-insensitive and "and" binds tighter than "or".
// An empty expression is always true; a clause without a recognized operator
// is false.
package condition

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/payload"
)

// Operator is a clause comparison operator.
type Operator string

const (
	OpEqual        Operator = "="
	OpNotEqual     Operator = "!="
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
	OpContains     Operator = "Contains"
	OpStartsWith   Operator = "StartsWith"
	OpEndsWith     Operator = "EndsWith"
)

// symbolOperators is ordered longest-first so ">=" is never split as ">".
var symbolOperators = []Operator{OpGreaterEqual, OpLessEqual, OpNotEqual, OpEqual, OpGreater, OpLess}

var (
	orSeparator   = regexp.MustCompile(`(?i)\s+or\s+`)
	andSeparator  = regexp.MustCompile(`(?i)\s+and\s+`)
	wordOperators = regexp.MustCompile(`(?i)\s+(startswith|endswith|contains)\s+`)
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006",
}

// FieldGetter is implemented by payload types that expose their fields
// directly instead of going through JSON normalization.
type FieldGetter interface {
	Field(name string) (any, bool)
}

// FieldAccessor resolves one case-insensitive field name on a payload.
type FieldAccessor func(p any, name string) (any, bool)

// DefaultAccessor uses FieldGetter when available and otherwise looks the
// field up on the normalized payload object. Only one level is resolved.
func DefaultAccessor(p any, name string) (any, bool) {
	if g, ok := p.(FieldGetter); ok {
		return g.Field(name)
	}
	obj, ok := p.(map[string]any)
	if !ok {
		obj, ok = payload.Object(p)
		if !ok {
			return nil, false
		}
	}
	return payload.Lookup(obj, name)
}

// Evaluator evaluates condition expressions with a configurable accessor.
type Evaluator struct {
	access FieldAccessor
}

// NewEvaluator creates an evaluator. A nil accessor selects DefaultAccessor.
func NewEvaluator(access FieldAccessor) *Evaluator {
	if access == nil {
		access = DefaultAccessor
	}
	return &Evaluator{access: access}
}

var defaultEvaluator = NewEvaluator(nil)

// Evaluate checks expr against p using the default accessor.
func Evaluate(expr string, p any) bool {
	return defaultEvaluator.Evaluate(expr, p)
}

// Evaluate reports whether any OR-group of expr holds for p.
func (e *Evaluator) Evaluate(expr string, p any) bool {
	if strings.TrimSpace(expr) == "" {
		return true
	}
	if _, ok := p.(FieldGetter); !ok {
		p = payload.Normalize(p)
	}

	for _, group := range orSeparator.Split(strings.TrimSpace(expr), -1) {
		if e.evaluateGroup(group, p) {
			return true
		}
	}
	return false
}

func (e *Evaluator) evaluateGroup(group string, p any) bool {
	for _, clause := range andSeparator.Split(group, -1) {
		if !e.evaluateClause(clause, p) {
			return false
		}
	}
	return true
}

func (e *Evaluator) evaluateClause(clause string, p any) bool {
	c, ok := ParseClause(clause)
	if !ok {
		return false
	}
	value, found := e.access(p, c.Field)
	if !found {
		value = nil
	}
	return Compare(value, c.Op, c.Value)
}

// Clause is one parsed "field operator value" comparison.
type Clause struct {
	Field string
	Op    Operator
	Value string
}

// ParseClause splits a clause on its operator. Word operators must be
// surrounded by whitespace; symbol operators are scanned longest-first.
func ParseClause(clause string) (Clause, bool) {
	clause = strings.TrimSpace(clause)
	if clause == "" {
		return Clause{}, false
	}

	if loc := wordOperators.FindStringSubmatchIndex(clause); loc != nil {
		word := clause[loc[2]:loc[3]]
		return newClause(clause[:loc[0]], wordOperator(word), clause[loc[1]:])
	}

	for _, op := range symbolOperators {
		if idx := strings.Index(clause, string(op)); idx > 0 {
			return newClause(clause[:idx], op, clause[idx+len(op):])
		}
	}
	return Clause{}, false
}

func newClause(field string, op Operator, value string) (Clause, bool) {
	field = strings.TrimSpace(field)
	if field == "" {
		return Clause{}, false
	}
	value = strings.Trim(strings.TrimSpace(value), "'")
	return Clause{Field: field, Op: op, Value: value}, true
}

func wordOperator(word string) Operator {
	switch strings.ToLower(word) {
	case "startswith":
		return OpStartsWith
	case "endswith":
		return OpEndsWith
	default:
		return OpContains
	}
}

// Compare applies op between a resolved field value and a literal.
func Compare(field any, op Operator, literal string) bool {
	if field == nil {
		return op == OpNotEqual
	}

	switch op {
	case OpContains, OpStartsWith, OpEndsWith:
		s, ok := field.(string)
		if !ok {
			return false
		}
		return compareText(strings.ToLower(s), op, strings.ToLower(literal))
	}

	if lit, ok := parseDate(literal); ok {
		if ft, ok := fieldDate(field); ok {
			return compareDates(ft, op, lit)
		}
	}

	fieldText := payload.Stringify(field)
	if a, ok := parseDecimal(fieldText); ok {
		if b, ok := parseDecimal(literal); ok {
			return compareNumbers(a, op, b)
		}
	}

	switch op {
	case OpEqual:
		return strings.EqualFold(fieldText, literal)
	case OpNotEqual:
		return !strings.EqualFold(fieldText, literal)
	default:
		return false
	}
}

func compareText(s string, op Operator, lit string) bool {
	switch op {
	case OpStartsWith:
		return strings.HasPrefix(s, lit)
	case OpEndsWith:
		return strings.HasSuffix(s, lit)
	default:
		return strings.Contains(s, lit)
	}
}

func compareNumbers(a float64, op Operator, b float64) bool {
	switch op {
	case OpEqual:
		return a == b
	case OpNotEqual:
		return a != b
	case OpGreater:
		return a > b
	case OpLess:
		return a < b
	case OpGreaterEqual:
		return a >= b
	case OpLessEqual:
		return a <= b
	default:
		return false
	}
}

// compareDates truncates to the calendar day for equality and uses full
// precision for ordering.
func compareDates(a time.Time, op Operator, b time.Time) bool {
	switch op {
	case OpEqual, OpNotEqual:
		ay, am, ad := a.Date()
		by, bm, bd := b.Date()
		same := ay == by && am == bm && ad == bd
		if op == OpEqual {
			return same
		}
		return !same
	case OpGreater:
		return a.After(b)
	case OpLess:
		return a.Before(b)
	case OpGreaterEqual:
		return !a.Before(b)
	case OpLessEqual:
		return !a.After(b)
	default:
		return false
	}
}

func parseDecimal(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func fieldDate(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case string:
		return parseDate(t)
	default:
		return time.Time{}, false
	}
}

// Package pipeline runs the short post-processing function list a trigger
// rule declares over its resolved parameter map.
//
// A pipeline spec is a JSON array of steps:
//
//	[{"function":"concat","args":["firstName"," ","lastName"],"output":"fullName"},
//	 {"function":"formatNumeric","args":["amount"],"output":"amountText"}]
//
// Steps run in order and each writes its declared output field. Unknown
// functions are skipped. Any failing step discards the whole run and the
// caller gets its original map back.
package pipeline

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/payload"
)

// Step is one function invocation.
type Step struct {
	Function string `json:"function"`
	Args     []any  `json:"args"`
	Output   string `json:"output"`
}

// Func computes a step's output from the current data and its arguments.
type Func func(data map[string]string, args []string) (string, error)

var registry = map[string]Func{}

func init() {
	Register("concat", concat)
	Register("split", split)
	Register("formatNumeric", formatNumeric)
}

// Register adds a function to the registry. Names are case-insensitive.
// Call it during startup, before any pipeline runs.
func Register(name string, fn Func) {
	registry[strings.ToLower(name)] = fn
}

func lookup(name string) (Func, bool) {
	fn, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	return fn, ok
}

// Parse decodes a pipeline spec. An empty spec yields no steps.
func Parse(spec string) ([]Step, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, nil
	}
	var steps []Step
	if err := json.Unmarshal([]byte(spec), &steps); err != nil {
		return nil, fmt.Errorf("failed to parse pipeline spec: %w", err)
	}
	return steps, nil
}

// Apply parses spec and runs it over data. A malformed spec is a no-op.
func Apply(spec string, data map[string]string) map[string]string {
	steps, err := Parse(spec)
	if err != nil {
		slog.Warn("Ignoring malformed pipeline spec", "error", err)
		return data
	}
	return Run(steps, data)
}

// Run executes steps over a copy of data. On any error or panic the copy is
// discarded and data is returned untouched.
func Run(steps []Step, data map[string]string) (out map[string]string) {
	if len(steps) == 0 {
		return data
	}

	out = make(map[string]string, len(data)+len(steps))
	for k, v := range data {
		out[k] = v
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Warn("Pipeline aborted", "panic", r)
			out = data
		}
	}()

	for i, step := range steps {
		fn, ok := lookup(step.Function)
		if !ok {
			slog.Debug("Skipping unknown pipeline function", "function", step.Function, "step", i)
			continue
		}
		if step.Output == "" {
			slog.Warn("Pipeline aborted", "step", i, "function", step.Function, "error", "missing output field")
			return data
		}

		value, err := fn(out, stringArgs(step.Args))
		if err != nil {
			slog.Warn("Pipeline aborted", "step", i, "function", step.Function, "error", err)
			return data
		}
		out[step.Output] = value
	}

	return out
}

func stringArgs(args []any) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = payload.Stringify(a)
	}
	return out
}

// concat joins its parts with no separator. A part naming a key in data is
// replaced by that key's value; anything else is a literal.
func concat(data map[string]string, args []string) (string, error) {
	var sb strings.Builder
	for _, part := range args {
		if v, ok := data[part]; ok {
			sb.WriteString(v)
		} else {
			sb.WriteString(part)
		}
	}
	return sb.String(), nil
}

// split returns one segment of data[field]. An out-of-range index yields the
// JSON array of every segment.
func split(data map[string]string, args []string) (string, error) {
	if len(args) != 3 {
		return "", fmt.Errorf("split expects 3 arguments, got %d", len(args))
	}
	index, err := strconv.Atoi(strings.TrimSpace(args[2]))
	if err != nil {
		return "", fmt.Errorf("split index %q is not an integer", args[2])
	}

	parts := strings.Split(data[args[0]], args[1])
	if index >= 0 && index < len(parts) {
		return parts[index], nil
	}
	return payload.ToJSON(parts), nil
}

// formatNumeric renders a decimal as a thousands-grouped integer. Values
// that do not parse are passed through unchanged.
func formatNumeric(data map[string]string, args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("formatNumeric expects 1 argument, got %d", len(args))
	}
	raw := data[args[0]]

	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) >= math.MaxInt64 {
		return raw, nil
	}

	p := message.NewPrinter(language.English)
	return p.Sprintf("%d", int64(math.Round(f))), nil
}

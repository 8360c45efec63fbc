package env

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"regexp"
	"slices"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

// ErrUnresolved is matched by *UnresolvedError.
var ErrUnresolved = errors.New("unresolved placeholder")

// UnresolvedError lists the placeholders that had no value.
type UnresolvedError struct {
	Names []string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("unresolved placeholders: %s", strings.Join(e.Names, ", "))
}

func (e *UnresolvedError) Is(target error) bool {
	return target == ErrUnresolved
}

// Expander replaces placeholders with variables, environment values and
// built-in function results. It is not safe for concurrent mutation.
type Expander struct {
	vars      map[string]string
	funcs     map[string]Func
	lookupEnv func(string) (string, bool)
}

func NewExpander(vars map[string]string) *Expander {
	e := &Expander{
		vars:      make(map[string]string, len(vars)),
		funcs:     builtins(),
		lookupEnv: os.LookupEnv,
	}
	maps.Copy(e.vars, vars)
	return e
}

// Set defines or replaces a variable.
func (e *Expander) Set(name, value string) {
	e.vars[name] = value
}

// Register adds or replaces a function.
func (e *Expander) Register(name string, fn Func) {
	e.funcs[name] = fn
}

// Expand replaces every placeholder in s. Replacement text is not expanded
// again. All unresolved placeholders are reported together; a failing
// function call is reported on its own.
func (e *Expander) Expand(s string) (string, error) {
	if !strings.Contains(s, "{{") {
		return s, nil
	}

	var (
		unresolved []string
		callErr    error
	)
	out := placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		expr := strings.TrimSpace(match[2 : len(match)-2])
		value, ok, err := e.resolve(expr)
		switch {
		case err != nil:
			if callErr == nil {
				callErr = fmt.Errorf("%s: %w", expr, err)
			}
		case !ok:
			if !slices.Contains(unresolved, expr) {
				unresolved = append(unresolved, expr)
			}
		default:
			return value
		}
		return match
	})

	if callErr != nil {
		return "", callErr
	}
	if len(unresolved) > 0 {
		return "", &UnresolvedError{Names: unresolved}
	}
	return out, nil
}

func (e *Expander) resolve(expr string) (string, bool, error) {
	if name, ok := strings.CutPrefix(expr, "$"); ok {
		value, found := e.lookupEnv(name)
		return value, found, nil
	}

	if m := callPattern.FindStringSubmatch(expr); m != nil {
		fn, ok := e.funcs[m[1]]
		if !ok {
			return "", false, nil
		}
		value, err := fn(splitArgs(m[2]))
		return value, err == nil, err
	}

	value, ok := e.vars[expr]
	return value, ok, nil
}

// ExpandAll expands each item, stopping at the first error.
func (e *Expander) ExpandAll(items []string) ([]string, error) {
	if len(items) == 0 {
		return items, nil
	}
	out := make([]string, len(items))
	for i, item := range items {
		expanded, err := e.Expand(item)
		if err != nil {
			return nil, err
		}
		out[i] = expanded
	}
	return out, nil
}

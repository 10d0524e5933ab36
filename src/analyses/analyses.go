// Package analyses holds the built-in analyses shipped with hookstat.
package analyses

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"hookstat/src/dispatch"
)

// ErrMissingPayload is returned by classifiers that need a payload the engine did not capture.
var ErrMissingPayload = errors.New("event has no payload")

// Builtin describes a built-in analysis.
type Builtin struct {
	Name        string
	Description string
	New         func() dispatch.Analysis
}

var builtins = []Builtin{
	{
		Name:        AddEnumerablePropertyName,
		Description: "Writes of enumerable properties to Object.prototype",
		New:         AddEnumerablePropertyToObject,
	},
	{
		Name:        AccessUndefArrayElemName,
		Description: "Loads of undeclared or deleted array elements",
		New:         AccessUndefArrayElem,
	},
	{
		Name:        ExeStatName,
		Description: "Per-site execution counts grouped by file",
		New:         ExeStat,
	},
}

// List returns the built-in analyses in registration order.
func List() []Builtin {
	return slices.Clone(builtins)
}

// Names returns the names of the built-in analyses.
func Names() []string {
	names := make([]string, len(builtins))
	for i, b := range builtins {
		names[i] = b.Name
	}
	return names
}

// Lookup returns a fresh instance of the named analysis. Names match case-insensitively.
func Lookup(name string) (dispatch.Analysis, error) {
	for _, b := range builtins {
		if strings.EqualFold(b.Name, name) {
			return b.New(), nil
		}
	}
	return dispatch.Analysis{}, fmt.Errorf("unknown analysis: %q (available: %s)", name, strings.Join(Names(), ", "))
}

// Select returns the named analyses, or all of them when names is empty.
func Select(names []string) ([]dispatch.Analysis, error) {
	if len(names) == 0 {
		names = Names()
	}

	out := make([]dispatch.Analysis, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		a, err := Lookup(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		if seen[a.Name] {
			continue
		}
		seen[a.Name] = true
		out = append(out, a)
	}
	return out, nil
}

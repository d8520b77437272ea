// Package matrix implements build-matrix resolution: the cross-product of
// declared dimensions, filtered by exclude rules and augmented by include
// rules. All types here are plain value records; resolution is two filter
// and merge passes over them.
package matrix

import (
	"fmt"
	"sort"
	"strings"
)

// Dimension is a named axis of variation with an ordered value set,
// immutable after declaration. Values within one dimension must be unique.
type Dimension struct {
	Name   string
	Values []string
}

// Rule is a partial assignment of dimension names to values. A rule matches
// a combination when every dimension it names carries the same value there;
// dimensions the rule does not name are wildcards.
type Rule map[string]string

// IncludeRule is a partial assignment plus extra key/value fields. When its
// assignment matches surviving combinations, the extra fields are merged into
// each of them; when it matches none, it is synthesized as a new standalone
// job carrying exactly the fields it specifies.
type IncludeRule struct {
	Match Rule
	Extra map[string]string
}

// Job is one resolved combination: a full assignment across all dimensions,
// or a partial one if synthesized by a non-matching include rule, plus any
// merged extra fields. Jobs are immutable once resolved and share no state.
type Job struct {
	// Name is a stable human-readable identity, e.g. "os=linux,ver=3.12".
	Name string
	// Values maps dimension name to the job's value for it. Synthesized jobs
	// may leave dimensions absent.
	Values map[string]string
	// Extra holds fields merged from include rules.
	Extra map[string]string
	// Synthesized marks jobs added by an include rule that matched no
	// surviving combination.
	Synthesized bool
}

// matches reports whether every dimension named by the rule carries the same
// value on the job. A rule naming a dimension the job does not have never
// matches.
func (r Rule) matches(job *Job) bool {
	for name, want := range r {
		got, ok := job.Values[name]
		if !ok || got != want {
			return false
		}
	}
	return true
}

// jobName renders the job identity from its values in dimension declaration
// order, followed by any keys outside the declared dimensions.
func jobName(values map[string]string, dims []Dimension) string {
	var parts []string
	seen := make(map[string]bool, len(values))
	for _, d := range dims {
		if v, ok := values[d.Name]; ok {
			parts = append(parts, d.Name+"="+v)
			seen[d.Name] = true
		}
	}
	// Synthesized jobs may name axes that were never declared.
	var rest []string
	for k := range values {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		parts = append(parts, k+"="+values[k])
	}
	if len(parts) == 0 {
		return "job"
	}
	return strings.Join(parts, ",")
}

// validate enforces the declaration invariants: unique dimension names and
// unique values within each dimension. Rules referencing unknown dimensions
// or values are deliberately not validated; they degrade silently to
// wildcard misses during resolution.
func validate(dims []Dimension) error {
	names := make(map[string]bool, len(dims))
	for _, d := range dims {
		if names[d.Name] {
			return fmt.Errorf("dimension %q declared more than once", d.Name)
		}
		names[d.Name] = true
		values := make(map[string]bool, len(d.Values))
		for _, v := range d.Values {
			if values[v] {
				return fmt.Errorf("dimension %q declares duplicate value %q", d.Name, v)
			}
			values[v] = true
		}
	}
	return nil
}

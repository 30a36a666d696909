package api

import "slices"

// Match reports whether a step with this filter applies to def under the
// given invocation options. Targets and options are combined with AND.
// A nil filter always matches.
func (f *StepFilter) Match(def BuildDef, options []string) bool {
	if f == nil {
		return true
	}
	return f.matchTarget(def.Target) && f.matchOptions(options)
}

func (f *StepFilter) matchTarget(target Target) bool {
	if f.Targets == nil {
		return true
	}
	return slices.Contains(f.Targets, target)
}

func (f *StepFilter) matchOptions(options []string) bool {
	if f.Options == nil {
		return true
	}
	for _, opt := range f.Options {
		if slices.Contains(options, opt) {
			return true
		}
	}
	return false
}

package api

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/systemstart/torii/pkg/storage"
)

var validTargets = map[Target]bool{
	TargetStandaloneOSX:       true,
	TargetStandaloneWindows:   true,
	TargetIOS:                 true,
	TargetAndroid:             true,
	TargetStandaloneWindows64: true,
	TargetWebGL:               true,
	TargetWSAPlayer:           true,
	TargetStandaloneLinux64:   true,
	TargetPS4:                 true,
	TargetXboxOne:             true,
	TargetTVOS:                true,
	TargetSwitch:              true,
}

var validStepKinds = map[StepKind]bool{
	StepImport:   true,
	StepExport:   true,
	StepCompress: true,
	StepUpload:   true,
}

// ValidTarget reports whether t is a supported build target.
func ValidTarget(t Target) bool {
	return validTargets[t]
}

// Validate checks the whole configuration and reports every problem found,
// not just the first one.
func (c *Config) Validate() error {
	var errs []error

	if len(c.BuildDefs) == 0 {
		errs = append(errs, fmt.Errorf("build_defs: at least one build definition is required"))
	}

	seen := make(map[Target]int)
	for i, def := range c.BuildDefs {
		errs = append(errs, validateBuildDef(i, def)...)
		if prev, exists := seen[def.Target]; exists && def.Target != "" {
			errs = append(errs, fmt.Errorf("build_defs[%d]: duplicate target %q (first defined at build_defs[%d])", i, def.Target, prev))
			continue
		}
		seen[def.Target] = i
	}

	for i, step := range c.PostSteps {
		for _, err := range step.validate() {
			errs = append(errs, fmt.Errorf("build_post_steps[%d]: %w", i, err))
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

func validateBuildDef(i int, def BuildDef) []error {
	var errs []error
	if def.Target == "" {
		errs = append(errs, fmt.Errorf("build_defs[%d]: target is required", i))
	} else if !ValidTarget(def.Target) {
		errs = append(errs, fmt.Errorf("build_defs[%d]: unknown target %q", i, def.Target))
	}
	if def.ExecutableName == "" {
		errs = append(errs, fmt.Errorf("build_defs[%d]: executable_name is required", i))
	}
	return errs
}

func (s StepConfig) validate() []error {
	if !validStepKinds[s.Kind] {
		if s.Kind == "" {
			return []error{fmt.Errorf("step is required")}
		}
		return []error{fmt.Errorf("unknown step %q", s.Kind)}
	}

	var errs []error
	if s.Filter != nil {
		for _, t := range s.Filter.Targets {
			if !ValidTarget(t) {
				errs = append(errs, fmt.Errorf("filter.targets: unknown target %q", t))
			}
		}
	}

	if keep := s.KeepPattern(); !doublestar.ValidatePattern(keep) {
		errs = append(errs, fmt.Errorf("using.keep: invalid glob %q", keep))
	}

	for _, key := range s.unknownKeys {
		errs = append(errs, fmt.Errorf("using: unknown key %q for %s", key, s.Kind))
	}

	switch s.Kind {
	case StepImport:
		var backend string
		if s.Import != nil {
			backend = s.Import.Backend
		}
		errs = append(errs, validateBackend(s.Kind, backend)...)
	case StepExport:
		var backend string
		if s.Export != nil {
			backend = s.Export.Backend
		}
		errs = append(errs, validateBackend(s.Kind, backend)...)
	case StepCompress:
		if s.Compress == nil || s.Compress.ArchiveName == "" {
			errs = append(errs, fmt.Errorf("using.archive_name is required for %s", s.Kind))
		}
	case StepUpload:
		if s.Upload == nil || s.Upload.Endpoint == "" {
			errs = append(errs, fmt.Errorf("using.endpoint is required for %s", s.Kind))
		}
	}
	return errs
}

func validateBackend(kind StepKind, backend string) []error {
	if backend == "" {
		return []error{fmt.Errorf("using.backend is required for %s", kind)}
	}
	if backends := storage.Backends(); !slices.Contains(backends, backend) {
		return []error{fmt.Errorf("using.backend: unknown backend %q for %s (available: %s)", backend, kind, strings.Join(backends, ", "))}
	}
	return nil
}

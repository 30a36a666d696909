package api

import (
	"errors"
	"slices"

	"gopkg.in/yaml.v3"
)

const (
	ConfigFilename           = "torii.yml"
	DefaultKeep              = "**"
	DefaultBuildOutputFolder = "Builds"
)

// ErrInvalidConfig is wrapped by every configuration error.
var ErrInvalidConfig = errors.New("invalid configuration")

// Target names a platform a build is produced for.
type Target string

const (
	TargetStandaloneOSX       Target = "StandaloneOSX"
	TargetStandaloneWindows   Target = "StandaloneWindows"
	TargetIOS                 Target = "iOS"
	TargetAndroid             Target = "Android"
	TargetStandaloneWindows64 Target = "StandaloneWindows64"
	TargetWebGL               Target = "WebGL"
	TargetWSAPlayer           Target = "WSAPlayer"
	TargetStandaloneLinux64   Target = "StandaloneLinux64"
	TargetPS4                 Target = "PS4"
	TargetXboxOne             Target = "XboxOne"
	TargetTVOS                Target = "tvOS"
	TargetSwitch              Target = "Switch"
)

// StepKind identifies the implementation behind a post-build step.
type StepKind string

const (
	StepImport   StepKind = "import"
	StepExport   StepKind = "export"
	StepCompress StepKind = "compress"
	StepUpload   StepKind = "upload"
)

// Config is the torii.yml configuration format.
type Config struct {
	Context           map[string]any `yaml:"context"`
	BuildOutputFolder string         `yaml:"build_output_folder"`
	BuildDefs         []BuildDef     `yaml:"build_defs"`
	PostSteps         []StepConfig   `yaml:"build_post_steps"`

	// Set by the loader, not from YAML.
	Dir      string `yaml:"-"`
	FilePath string `yaml:"-"`
}

// BuildDef identifies a build target and the executable it produces.
type BuildDef struct {
	Target         Target `yaml:"target"`
	ExecutableName string `yaml:"executable_name"`
}

// StepFilter restricts a step to some targets and invocation options.
// A nil slice is unset and matches anything; an empty slice matches nothing.
type StepFilter struct {
	Targets []Target `yaml:"targets"`
	Options []string `yaml:"options"`
}

// StepConfig declares one post-build step. Exactly one of the parameter
// structs is set, the one belonging to Kind.
type StepConfig struct {
	Kind     StepKind
	Filter   *StepFilter
	Import   *ImportConfig
	Export   *ExportConfig
	Compress *CompressConfig
	Upload   *UploadConfig

	// using keys the declared kind does not accept; reported by Validate.
	unknownKeys []string
}

// ImportConfig configures an import step. Params holds the backend
// specific keys of the using section.
type ImportConfig struct {
	Keep    string         `yaml:"keep"`
	Backend string         `yaml:"backend"`
	Params  map[string]any `yaml:",inline"`
}

// ExportConfig configures an export step.
type ExportConfig struct {
	Keep    string         `yaml:"keep"`
	Backend string         `yaml:"backend"`
	Params  map[string]any `yaml:",inline"`
}

// CompressConfig configures a compress step.
type CompressConfig struct {
	Keep         string `yaml:"keep"`
	ArchiveName  string `yaml:"archive_name"`
	KeepExisting bool   `yaml:"keep_existing"`
}

// UploadConfig configures an upload step.
type UploadConfig struct {
	Keep     string            `yaml:"keep"`
	Endpoint string            `yaml:"endpoint"`
	Method   string            `yaml:"method"`
	Headers  map[string]string `yaml:"headers"`
}

type rawStepConfig struct {
	Step   StepKind    `yaml:"step"`
	Filter *StepFilter `yaml:"filter"`
	Using  yaml.Node   `yaml:"using"`
}

// UnmarshalYAML decodes the using section into the parameter struct of the
// declared kind. Unknown kinds are left for Validate to report.
func (s *StepConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw rawStepConfig
	if err := value.Decode(&raw); err != nil {
		return err
	}

	*s = StepConfig{Kind: raw.Step, Filter: raw.Filter}

	var using *yaml.Node
	if raw.Using.Kind != 0 {
		using = &raw.Using
	}

	switch s.Kind {
	case StepImport:
		s.Import = &ImportConfig{}
		return decodeUsing(using, s.Import)
	case StepExport:
		s.Export = &ExportConfig{}
		return decodeUsing(using, s.Export)
	case StepCompress:
		s.Compress = &CompressConfig{}
		s.unknownKeys = unknownKeys(using, compressKeys)
		return decodeUsing(using, s.Compress)
	case StepUpload:
		s.Upload = &UploadConfig{}
		s.unknownKeys = unknownKeys(using, uploadKeys)
		return decodeUsing(using, s.Upload)
	}
	return nil
}

// Import and export pass any other key on to the storage backend, which
// rejects the ones it does not know.
var (
	compressKeys = []string{"keep", "archive_name", "keep_existing"}
	uploadKeys   = []string{"keep", "endpoint", "method", "headers"}
)

func unknownKeys(node *yaml.Node, known []string) []string {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	var unknown []string
	for i := 0; i+1 < len(node.Content); i += 2 {
		if key := node.Content[i].Value; !slices.Contains(known, key) {
			unknown = append(unknown, key)
		}
	}
	return unknown
}

func decodeUsing(node *yaml.Node, out any) error {
	if node == nil {
		return nil
	}
	return node.Decode(out)
}

// KeepPattern returns the keep glob of the step, DefaultKeep when unset.
func (s StepConfig) KeepPattern() string {
	var keep string
	switch s.Kind {
	case StepImport:
		if s.Import != nil {
			keep = s.Import.Keep
		}
	case StepExport:
		if s.Export != nil {
			keep = s.Export.Keep
		}
	case StepCompress:
		if s.Compress != nil {
			keep = s.Compress.Keep
		}
	case StepUpload:
		if s.Upload != nil {
			keep = s.Upload.Keep
		}
	}
	if keep == "" {
		return DefaultKeep
	}
	return keep
}

// OutputFolder returns the build output folder, DefaultBuildOutputFolder
// when unset.
func (c *Config) OutputFolder() string {
	if c.BuildOutputFolder == "" {
		return DefaultBuildOutputFolder
	}
	return c.BuildOutputFolder
}

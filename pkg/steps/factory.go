package steps

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/systemstart/torii/pkg/api"
	"github.com/systemstart/torii/pkg/storage"
)

// ConfigError reports a step that could not be constructed from its
// configuration.
type ConfigError struct {
	Kind api.StepKind
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuring %s step: %v", e.Kind, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewStep creates a running step from its declaration. Template parameters
// are resolved against data here and never again.
func NewStep(cfg api.StepConfig, data map[string]any) (Step, error) {
	keep, err := Resolve(cfg.KeepPattern(), data)
	if err != nil {
		return nil, &ConfigError{Kind: cfg.Kind, Err: fmt.Errorf("keep: %w", err)}
	}

	var act action
	switch cfg.Kind {
	case api.StepImport:
		act, err = newImportAction(cfg.Import, keep, data)
	case api.StepExport:
		act, err = newExportAction(cfg.Export, data)
	case api.StepCompress:
		act, err = newCompressAction(cfg.Compress, data)
	case api.StepUpload:
		act, err = newUploadAction(cfg.Upload, data)
	default:
		err = fmt.Errorf("%w: unknown step kind %q", api.ErrInvalidConfig, cfg.Kind)
	}
	if err != nil {
		return nil, &ConfigError{Kind: cfg.Kind, Err: err}
	}

	return newStep(cfg.Kind, keep, act), nil
}

// NewImplicitImport creates the import step that starts every pipeline by
// pulling all files of the finished build into a workspace.
func NewImplicitImport(buildPath string) (Step, error) {
	provider, err := storage.New(storage.BackendLocal, map[string]any{"container": buildPath})
	if err != nil {
		return nil, &ConfigError{Kind: api.StepImport, Err: err}
	}
	return newStep(api.StepImport, api.DefaultKeep, &importAction{provider: provider, keep: api.DefaultKeep}), nil
}

func newProvider(backend string, params, data map[string]any) (storage.Provider, error) {
	resolved, err := ResolveParams(params, data)
	if err != nil {
		return nil, fmt.Errorf("resolving parameters: %w", err)
	}
	return storage.New(backend, resolved)
}

func newImportAction(cfg *api.ImportConfig, keep string, data map[string]any) (action, error) {
	if cfg == nil || cfg.Backend == "" {
		return nil, fmt.Errorf("%w: using.backend is required", api.ErrInvalidConfig)
	}
	provider, err := newProvider(cfg.Backend, cfg.Params, data)
	if err != nil {
		return nil, err
	}
	return &importAction{provider: provider, keep: keep}, nil
}

func newExportAction(cfg *api.ExportConfig, data map[string]any) (action, error) {
	if cfg == nil || cfg.Backend == "" {
		return nil, fmt.Errorf("%w: using.backend is required", api.ErrInvalidConfig)
	}
	provider, err := newProvider(cfg.Backend, cfg.Params, data)
	if err != nil {
		return nil, err
	}
	return &exportAction{provider: provider}, nil
}

func newCompressAction(cfg *api.CompressConfig, data map[string]any) (action, error) {
	if cfg == nil || cfg.ArchiveName == "" {
		return nil, fmt.Errorf("%w: using.archive_name is required", api.ErrInvalidConfig)
	}
	name, err := Resolve(cfg.ArchiveName, data)
	if err != nil {
		return nil, fmt.Errorf("archive_name: %w", err)
	}
	format, err := FormatFor(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", api.ErrInvalidConfig, err)
	}
	return &compressAction{archiveName: name, format: format, keepExisting: cfg.KeepExisting}, nil
}

func newUploadAction(cfg *api.UploadConfig, data map[string]any) (action, error) {
	if cfg == nil || cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: using.endpoint is required", api.ErrInvalidConfig)
	}
	endpoint, err := Resolve(cfg.Endpoint, data)
	if err != nil {
		return nil, fmt.Errorf("endpoint: %w", err)
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return nil, fmt.Errorf("%w: endpoint %q must be an http(s) URL", api.ErrInvalidConfig, endpoint)
	}

	headers := make(map[string]string, len(cfg.Headers))
	for k, v := range cfg.Headers {
		resolved, err := Resolve(v, data)
		if err != nil {
			return nil, fmt.Errorf("headers.%s: %w", k, err)
		}
		headers[k] = resolved
	}

	method := strings.ToUpper(cfg.Method)
	if method == "" {
		method = defaultUploadMethod
	}

	return &uploadAction{
		endpoint: endpoint,
		method:   method,
		headers:  headers,
		client:   http.DefaultClient,
	}, nil
}

package storage

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

const (
	BackendLocal = "local"
	BackendS3    = "s3"
)

type constructor func(params map[string]any) (Provider, error)

var registry = map[string]constructor{
	BackendLocal: construct(NewLocal),
	BackendS3:    construct(NewS3),
}

// Backends returns the names of the compiled-in backends.
func Backends() []string {
	return slices.Sorted(maps.Keys(registry))
}

// New resolves backend to a provider built from params. Either a usable
// provider or an error is returned, never both.
func New(backend string, params map[string]any) (Provider, error) {
	build, ok := registry[backend]
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownBackend, backend, strings.Join(Backends(), ", "))
	}

	p, err := build(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, backend, err)
	}
	return p, nil
}

func construct[C any, P Provider](newProvider func(C) (P, error)) constructor {
	return func(params map[string]any) (Provider, error) {
		var cfg C
		if err := decodeParams(params, &cfg); err != nil {
			return nil, err
		}
		p, err := newProvider(cfg)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

func decodeParams(params map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(params); err != nil {
		return fmt.Errorf("decoding parameters: %w", err)
	}
	return nil
}

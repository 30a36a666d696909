// Package storage defines the provider contract that import and export
// steps use to move artifacts, and the built-in providers.
package storage

import (
	"context"
	"errors"
	"io"
	"iter"
	"os"
	"path/filepath"
)

var (
	ErrNotFound       = errors.New("object not found")
	ErrUnknownBackend = errors.New("unknown storage backend")
	ErrInvalidConfig  = errors.New("invalid storage configuration")
)

// Provider stores and retrieves objects under slash-separated keys that are
// relative to the provider's root.
type Provider interface {
	// Store writes r under key, replacing existing content.
	Store(ctx context.Context, r io.Reader, key string) error
	// Retrieve writes the object at key to dest, creating parent
	// directories. Missing keys yield ErrNotFound.
	Retrieve(ctx context.Context, key, dest string) error
	// List yields every stored key. The sequence is finite and is consumed
	// once; a listing error is yielded last.
	List(ctx context.Context) iter.Seq2[string, error]
}

// Keys drains a listing into a slice.
func Keys(ctx context.Context, p Provider) ([]string, error) {
	var keys []string
	for key, err := range p.List(ctx) {
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func writeFile(dest string, r io.Reader) (err error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return err
	}
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	_, err = io.Copy(out, r)
	return err
}

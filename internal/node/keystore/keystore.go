// Package keystore extracts the node's validator key.
package keystore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"bioauth/internal/signer"
)

var (
	// ErrKeyNotFound means no validator key is configured.
	ErrKeyNotFound = errors.New("validator key not found")
	// ErrMultipleKeys means the keystore holds more than one candidate key.
	ErrMultipleKeys = errors.New("keystore holds more than one key")
)

// Extractor returns the signer of the local validator key.
type Extractor interface {
	Extract(ctx context.Context) (signer.Signer, error)
}

// Dir reads hex-encoded Ed25519 seeds from files in a directory. Hidden files
// and subdirectories are ignored; exactly one key file is expected.
type Dir struct {
	path string
}

func NewDir(path string) *Dir {
	return &Dir{path: path}
}

func (d *Dir) Extract(ctx context.Context) (signer.Signer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(d.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s does not exist", ErrKeyNotFound, d.path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading keystore: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		files = append(files, e.Name())
	}
	switch len(files) {
	case 0:
		return nil, fmt.Errorf("%w: %s is empty", ErrKeyNotFound, d.path)
	case 1:
	default:
		return nil, fmt.Errorf("%w: %s", ErrMultipleKeys, strings.Join(files, ", "))
	}

	raw, err := os.ReadFile(filepath.Join(d.path, files[0]))
	if err != nil {
		return nil, fmt.Errorf("reading key file: %w", err)
	}
	s, err := signer.NewEd25519FromHex(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing key file %s: %w", files[0], err)
	}
	return s, nil
}

// Static always returns the same signer. A nil signer reports ErrKeyNotFound.
type Static struct {
	Signer signer.Signer
}

func (s Static) Extract(context.Context) (signer.Signer, error) {
	if s.Signer == nil {
		return nil, ErrKeyNotFound
	}
	return s.Signer, nil
}

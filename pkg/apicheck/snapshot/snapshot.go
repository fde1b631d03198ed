// Package snapshot stores resolved libtls symbol values as YAML and replays
// them as an apicheck.Resolver.
//
// A snapshot records what one build environment's header declared, so the
// check can be re-run on a machine without that header, attached to a bug
// report, or fed synthetic values in CI:
//
//	source: /usr/local/include/tls.h
//	symbols:
//	  TLS_API: 20141031
//	  TLS_WANT_POLLIN: -2
//	  TLS_WANT_POLLOUT: null
//
// null and a missing key both mean the macro is undefined.
package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/telos-tls/apicheck/pkg/apicheck"
)

// ErrInvalidValue reports a snapshot entry that is not an integer or null.
var ErrInvalidValue = errors.New("snapshot: symbol value must be an integer or null")

// Snapshot is the decoded file.
type Snapshot struct {
	Source  string
	Symbols apicheck.Symbols
}

type document struct {
	Source  string               `yaml:"source,omitempty"`
	Symbols map[string]yaml.Node `yaml:"symbols"`
}

type encoded struct {
	Source  string            `yaml:"source,omitempty"`
	Symbols map[string]*int64 `yaml:"symbols"`
}

// Decode reads a snapshot from r. Unknown top-level keys are rejected.
func Decode(r io.Reader) (Snapshot, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return Snapshot{Symbols: apicheck.Symbols{}}, nil
		}
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}

	snap := Snapshot{Source: doc.Source, Symbols: make(apicheck.Symbols, len(doc.Symbols))}
	for name, node := range doc.Symbols {
		v, err := decodeValue(&node)
		if err != nil {
			return Snapshot{}, fmt.Errorf("%w: %s at line %d", ErrInvalidValue, name, node.Line)
		}
		snap.Symbols[name] = v
	}
	return snap, nil
}

func decodeValue(node *yaml.Node) (apicheck.Value, error) {
	if node.Kind != yaml.ScalarNode {
		return apicheck.Value{}, ErrInvalidValue
	}
	switch node.ShortTag() {
	case "!!null":
		return apicheck.Absent, nil
	case "!!int":
		var n int64
		if err := node.Decode(&n); err != nil {
			return apicheck.Value{}, err
		}
		return apicheck.Defined(n), nil
	default:
		return apicheck.Value{}, ErrInvalidValue
	}
}

// Load reads the snapshot at path.
func Load(path string) (Snapshot, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	snap, err := Decode(bytes.NewReader(data))
	if err != nil {
		return Snapshot{}, fmt.Errorf("%s: %w", path, err)
	}
	return snap, nil
}

// Encode writes snap to w. Undefined symbols are written as null.
func Encode(w io.Writer, snap Snapshot) error {
	doc := encoded{Source: snap.Source, Symbols: make(map[string]*int64, len(snap.Symbols))}
	for name, v := range snap.Symbols {
		if !v.Defined {
			doc.Symbols[name] = nil
			continue
		}
		n := v.Int
		doc.Symbols[name] = &n
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return enc.Close()
}

// Resolver replays a snapshot.
type Resolver struct {
	snap Snapshot
}

// NewResolver returns a Resolver over snap.
func NewResolver(snap Snapshot) *Resolver {
	return &Resolver{snap: snap}
}

// Resolve returns the recorded value of each name, Absent when unrecorded.
func (r *Resolver) Resolve(ctx context.Context, names []string) (apicheck.Symbols, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	syms := make(apicheck.Symbols, len(names))
	for _, name := range names {
		syms[name] = r.snap.Symbols.Lookup(name)
	}
	return syms, nil
}

// Package operations reads the GraphQL operations document that client
// functions are generated from, and parses it into a query document.
package operations

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PlaceholderName is the operation name of the placeholder document.
const PlaceholderName = "PlaceholderQuery"

// Placeholder is substituted for an empty operations document so that later
// stages always see at least one operation.
const Placeholder = `query PlaceholderQuery {
  __typename
}`

// ErrNoOperations is returned by Load when the document is empty and the
// policy does not allow a placeholder.
var ErrNoOperations = errors.New("operations document is empty")

// EmptyPolicy decides what happens when the operations document is empty.
type EmptyPolicy string

const (
	EmptyPlaceholder EmptyPolicy = "placeholder"
	EmptyWarn        EmptyPolicy = "warn"
	EmptyFail        EmptyPolicy = "fail"
)

var ValidEmptyPolicies = []EmptyPolicy{EmptyPlaceholder, EmptyWarn, EmptyFail}

func ParseEmptyPolicy(s string) (EmptyPolicy, error) {
	switch strings.ToLower(s) {
	case "", "placeholder":
		return EmptyPlaceholder, nil
	case "warn":
		return EmptyWarn, nil
	case "fail":
		return EmptyFail, nil
	default:
		return "", fmt.Errorf("invalid empty operations policy: %s (valid: placeholder, warn, fail)", s)
	}
}

// Document is an operations document as read from disk.
type Document struct {
	// Name is the base name of the source file, used in error locations.
	Name string
	// Raw is the file content exactly as read.
	Raw string
	// Source is the text that gets parsed and embedded. It differs from Raw
	// only when the placeholder was substituted.
	Source string
	// Placeholder reports whether Source is the placeholder document.
	Placeholder bool
}

// Store reads an operations document from a fixed path.
type Store struct {
	Path string
}

// Read returns the content of the operations file. A missing file is not an
// error and reads as an empty document.
func (s Store) Read() (string, error) {
	bytes, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read operations file: %w", err)
	}
	return string(bytes), nil
}

// Load reads the operations file and applies the empty-document policy. The
// placeholder only ever lives in memory; the file is never written.
func (s Store) Load(policy EmptyPolicy) (*Document, error) {
	raw, err := s.Read()
	if err != nil {
		return nil, err
	}
	return NewDocument(filepath.Base(s.Path), raw, policy)
}

// NewDocument builds a Document from text that did not come from a Store,
// such as stdin.
func NewDocument(name, raw string, policy EmptyPolicy) (*Document, error) {
	doc := &Document{Name: name, Raw: raw, Source: raw}
	if strings.TrimSpace(raw) != "" {
		return doc, nil
	}
	if policy == EmptyFail {
		return nil, ErrNoOperations
	}
	doc.Source = Placeholder
	doc.Placeholder = true
	return doc, nil
}

// Package render formats command results as JSON, plain text or pretty tables.
package render

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Format string

const (
	FormatJSON   Format = "json"
	FormatText   Format = "text"
	FormatPretty Format = "pretty"
)

var ValidFormats = []Format{FormatJSON, FormatText, FormatPretty}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "text":
		return FormatText, nil
	case "pretty":
		return FormatPretty, nil
	default:
		return "", fmt.Errorf("invalid format: %s (valid: json, text, pretty)", s)
	}
}

// Renderer renders a list, one line per item in text format.
type Renderer[T any] struct {
	Data         []T
	TextFormat   func(T) string
	PrettyFormat func([]T) string
}

func (r Renderer[T]) Render(format Format) (string, error) {
	switch format {
	case FormatJSON:
		data := r.Data
		if data == nil {
			data = []T{}
		}
		return marshal(data)
	case FormatPretty:
		if r.PrettyFormat == nil {
			return "", fmt.Errorf("pretty format not defined for this type")
		}
		return r.PrettyFormat(r.Data), nil
	case FormatText:
		if r.TextFormat == nil {
			return "", fmt.Errorf("text format not defined for this type")
		}
		lines := make([]string, 0, len(r.Data))
		for _, item := range r.Data {
			lines = append(lines, r.TextFormat(item))
		}
		return strings.Join(lines, "\n"), nil
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// Value renders a single result such as a command summary. Pretty falls back
// to text when PrettyFormat is nil.
type Value[T any] struct {
	Data         T
	TextFormat   func(T) string
	PrettyFormat func(T) string
}

func (v Value[T]) Render(format Format) (string, error) {
	switch format {
	case FormatJSON:
		return marshal(v.Data)
	case FormatPretty:
		if v.PrettyFormat != nil {
			return v.PrettyFormat(v.Data), nil
		}
		fallthrough
	case FormatText:
		if v.TextFormat == nil {
			return "", fmt.Errorf("text format not defined for this type")
		}
		return v.TextFormat(v.Data), nil
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

func marshal(data any) (string, error) {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

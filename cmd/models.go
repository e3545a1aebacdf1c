package cmd

import "github.com/samwightt/gqlfunc/pkg/codegen"

type ParamInfo struct {
	Function     string `json:"function,omitempty"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	Required     bool   `json:"required"`
	DefaultValue string `json:"defaultValue,omitempty"`
}

type FunctionInfo struct {
	Name       string      `json:"name"`
	Operation  string      `json:"operation"`
	Kind       string      `json:"kind"`
	Parameters []ParamInfo `json:"parameters"`
}

type GenerateInfo struct {
	Path        string            `json:"path"`
	Placeholder bool              `json:"placeholder,omitempty"`
	Functions   []FunctionInfo    `json:"functions"`
	Warnings    []codegen.Warning `json:"warnings,omitempty"`
}

type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type ValidationError struct {
	Message   string     `json:"message"`
	Rule      string     `json:"rule,omitempty"`
	Locations []Location `json:"locations,omitempty"`
}

type ValidationResult struct {
	Valid     bool              `json:"valid"`
	Functions []string          `json:"functions,omitempty"`
	Errors    []ValidationError `json:"errors,omitempty"`
}

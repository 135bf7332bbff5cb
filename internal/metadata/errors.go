package metadata

import (
	"fmt"
)

// DescriptorNotFoundError occurs when a descriptor file cannot be read.
type DescriptorNotFoundError struct {
	Path string
	Err  error
}

func (e *DescriptorNotFoundError) Error() string {
	return fmt.Sprintf("cannot read metadata descriptor '%s': %v", e.Path, e.Err)
}

func (e *DescriptorNotFoundError) Unwrap() error {
	return e.Err
}

// DescriptorParseError occurs when a descriptor does not decode in the format
// its extension names.
type DescriptorParseError struct {
	Path   string
	Format string
	Err    error
}

func (e *DescriptorParseError) Error() string {
	return fmt.Sprintf("metadata descriptor '%s' is not valid %s: %v", e.Path, e.Format, e.Err)
}

func (e *DescriptorParseError) Unwrap() error {
	return e.Err
}

// DescriptorValidationError occurs when a descriptor decodes but declares a
// property incorrectly. Property is empty when the entry has no name.
type DescriptorValidationError struct {
	Path     string
	Property string
	Field    string
	Message  string
}

func (e *DescriptorValidationError) Error() string {
	if e.Property != "" {
		return fmt.Sprintf("metadata descriptor '%s': property '%s' at %s: %s",
			e.Path, e.Property, e.Field, e.Message)
	}
	return fmt.Sprintf("metadata descriptor '%s': entry at %s: %s", e.Path, e.Field, e.Message)
}

// UnsupportedFormatError occurs when a descriptor file has an unknown extension.
type UnsupportedFormatError struct {
	Path string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported descriptor format '%s' (must be .json, .yaml, .yml or .toml)", e.Path)
}

// NoDescriptorsFoundError occurs when no descriptors are found in the configured paths.
type NoDescriptorsFoundError struct {
	Paths []string
}

func (e *NoDescriptorsFoundError) Error() string {
	return fmt.Sprintf("no metadata descriptors found in paths: %v", e.Paths)
}

// Package metadata loads property descriptor files, turns them into index
// snapshots and publishes those snapshots to interested parties.
package metadata

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/woxQAQ/config-props-lsp/internal/index"
	"github.com/woxQAQ/config-props-lsp/internal/types"
)

// Digest is the SHA-256 of a descriptor file's content.
type Digest [32]byte

// Descriptor is the parsed content of one metadata file.
type Descriptor struct {
	Properties []PropertyDescriptor `yaml:"properties" toml:"properties" msgpack:"properties"`

	Path   string `yaml:"-" toml:"-" msgpack:"path"`
	Digest Digest `yaml:"-" toml:"-" msgpack:"digest"`
}

// PropertyDescriptor describes one configuration key.
type PropertyDescriptor struct {
	Name         string                 `yaml:"name" toml:"name" msgpack:"name"`
	Type         string                 `yaml:"type" toml:"type" msgpack:"type"`
	DefaultValue any                    `yaml:"defaultValue" toml:"defaultValue" msgpack:"defaultValue"`
	Description  string                 `yaml:"description" toml:"description" msgpack:"description"`
	Deprecated   bool                   `yaml:"deprecated" toml:"deprecated" msgpack:"deprecated"`
	Deprecation  *DeprecationDescriptor `yaml:"deprecation" toml:"deprecation" msgpack:"deprecation"`
	// Values lists the legal values of a string typed property, or the legal
	// keys of a map typed one.
	Values []string          `yaml:"values" toml:"values" msgpack:"values"`
	Fields []FieldDescriptor `yaml:"fields" toml:"fields" msgpack:"fields"`
}

// DeprecationDescriptor holds deprecation details.
type DeprecationDescriptor struct {
	Replacement string `yaml:"replacement" toml:"replacement" msgpack:"replacement"`
	Reason      string `yaml:"reason" toml:"reason" msgpack:"reason"`
}

// FieldDescriptor is a member of an object typed property.
type FieldDescriptor struct {
	Name        string `yaml:"name" toml:"name" msgpack:"name"`
	Type        string `yaml:"type" toml:"type" msgpack:"type"`
	Description string `yaml:"description" toml:"description" msgpack:"description"`
}

// IsDescriptorFile reports whether path has a supported descriptor extension.
func IsDescriptorFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml", ".toml":
		return true
	}
	return false
}

// ParseDescriptor reads, parses and validates a descriptor file.
func ParseDescriptor(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &DescriptorNotFoundError{
			Path: path,
			Err:  err,
		}
	}
	return ParseDescriptorData(path, data)
}

// ParseDescriptorData parses descriptor content. The format is chosen by the
// extension of path: JSON and YAML share the YAML decoder.
func ParseDescriptorData(path string, data []byte) (*Descriptor, error) {
	var d Descriptor
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json", ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &d); err != nil {
			format := "YAML"
			if ext == ".json" {
				format = "JSON"
			}
			return nil, &DescriptorParseError{Path: path, Format: format, Err: err}
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &d); err != nil {
			return nil, &DescriptorParseError{Path: path, Format: "TOML", Err: err}
		}
	default:
		return nil, &UnsupportedFormatError{Path: path}
	}

	d.Path = path
	d.Digest = sha256.Sum256(data)

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate checks required fields and id uniqueness within the file.
func (d *Descriptor) Validate() error {
	seen := make(map[string]bool, len(d.Properties))
	for i, p := range d.Properties {
		field := fmt.Sprintf("properties[%d]", i)
		invalid := func(at, msg string) error {
			return &DescriptorValidationError{Path: d.Path, Property: p.Name, Field: at, Message: msg}
		}
		if strings.TrimSpace(p.Name) == "" {
			return invalid(field+".name", "name is required")
		}
		if strings.ContainsAny(p.Name, " \t=:") {
			return invalid(field+".name", "name must not contain whitespace, '=' or ':'")
		}
		if seen[p.Name] {
			return invalid(field+".name", "declared more than once")
		}
		seen[p.Name] = true

		for j, f := range p.Fields {
			if strings.TrimSpace(f.Name) == "" {
				return invalid(fmt.Sprintf("%s.fields[%d].name", field, j), "field name is required")
			}
		}
	}
	return nil
}

// PropertyInfo converts the descriptor entry to its index form.
func (p *PropertyDescriptor) PropertyInfo() *index.PropertyInfo {
	hints := types.Hints{Values: p.Values}
	for _, f := range p.Fields {
		hints.Fields = append(hints.Fields, types.Field{
			Name:        f.Name,
			Type:        types.ParseTypeName(f.Type, types.Hints{}),
			Description: f.Description,
		})
	}

	info := &index.PropertyInfo{
		ID:          p.Name,
		Type:        types.ParseTypeName(p.Type, hints),
		TypeName:    p.Type,
		Description: p.Description,
		Deprecated:  p.Deprecated || p.Deprecation != nil,
	}
	if p.Deprecation != nil {
		info.Deprecation = index.Deprecation{
			Replacement: p.Deprecation.Replacement,
			Reason:      p.Deprecation.Reason,
		}
	}
	info.DefaultValue, info.HasDefault = formatDefault(p.DefaultValue)
	return info
}

// formatDefault renders a default value the way it would be written in a
// properties file. Lists become comma separated; maps have no literal form.
func formatDefault(v any) (string, bool) {
	switch vv := v.(type) {
	case nil:
		return "", false
	case string:
		return vv, true
	case []any:
		parts := make([]string, 0, len(vv))
		for _, e := range vv {
			s, ok := formatDefault(e)
			if !ok {
				return "", false
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, ","), true
	case map[string]any, map[any]any:
		return "", false
	default:
		return fmt.Sprint(vv), true
	}
}

// Package config loads field-definition files for the query input. Files are
// YAML or TOML; the format is picked by file extension with a content-sniffing
// fallback so piped configs work without one.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/queryline/internal/token"
)

// File is the on-disk shape of a field configuration.
type File struct {
	Fields        []token.FieldDefinition `yaml:"fields" toml:"fields"`
	UnknownFields token.UnknownFields     `yaml:"unknownFields" toml:"unknownFields"`
}

// FieldSet indexes the file's definitions.
func (f File) FieldSet() *token.FieldSet {
	return token.NewFieldSet(f.Fields, f.UnknownFields)
}

// Load reads and parses a field configuration file. The extension selects the
// format (.toml vs .yaml/.yml or anything else); parse errors report the path.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read field config: %w", err)
	}
	var f File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &f)
	default:
		err = yaml.Unmarshal(data, &f)
	}
	if err != nil {
		return File{}, fmt.Errorf("parse field config %s: %w", path, err)
	}
	if err := validateFile(f); err != nil {
		return File{}, fmt.Errorf("invalid field config %s: %w", path, err)
	}
	return f, nil
}

// Parse parses a field configuration from bytes, trying YAML first and TOML
// second. YAML is tried first because every JSON document is also YAML.
func Parse(data []byte) (File, error) {
	var f File
	yamlErr := yaml.Unmarshal(data, &f)
	if yamlErr == nil && len(f.Fields) > 0 {
		if err := validateFile(f); err != nil {
			return File{}, err
		}
		return f, nil
	}
	f = File{}
	if tomlErr := toml.Unmarshal(data, &f); tomlErr == nil {
		if err := validateFile(f); err != nil {
			return File{}, err
		}
		return f, nil
	}
	if yamlErr != nil {
		return File{}, fmt.Errorf("parse field config: %w", yamlErr)
	}
	return File{}, fmt.Errorf("field config declares no fields")
}

var knownFieldTypes = map[token.FieldType]bool{
	"":                      true, // defaults to text
	token.FieldTypeText:     true,
	token.FieldTypeEnum:     true,
	token.FieldTypeNumber:   true,
	token.FieldTypeDate:     true,
	token.FieldTypeDateTime: true,
}

func validateFile(f File) error {
	seen := make(map[string]bool, len(f.Fields))
	for i, d := range f.Fields {
		if d.Key == "" {
			return fmt.Errorf("field %d has no key", i)
		}
		if seen[d.Key] {
			return fmt.Errorf("field %q declared twice", d.Key)
		}
		seen[d.Key] = true
		if !knownFieldTypes[d.Type] {
			return fmt.Errorf("field %q has unknown type %q", d.Key, d.Type)
		}
	}
	return nil
}

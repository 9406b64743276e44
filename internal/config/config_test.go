package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/queryline/internal/token"
)

const yamlConfig = `
fields:
  - key: status
    label: Status
    type: enum
    operators: [is, is-not]
    values: [open, closed]
    validation:
      unique: false
  - key: due
    label: Due date
    type: date
unknownFields:
  allow: true
  operators: [is]
  hideSingleOperator: true
`

const tomlConfig = `
[unknownFields]
allow = true
operators = ["is"]
hideSingleOperator = true

[[fields]]
key = "status"
label = "Status"
type = "enum"
operators = ["is", "is-not"]
values = ["open", "closed"]

[fields.validation]
unique = false

[[fields]]
key = "due"
label = "Due date"
type = "date"
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func assertParsed(t *testing.T, f File) {
	t.Helper()
	require.Len(t, f.Fields, 2)
	assert.Equal(t, "status", f.Fields[0].Key)
	assert.Equal(t, token.FieldTypeEnum, f.Fields[0].Type)
	assert.Equal(t, []string{"open", "closed"}, f.Fields[0].Values)
	assert.Equal(t, token.FieldTypeDate, f.Fields[1].Type)
	assert.True(t, f.UnknownFields.Allow)
	assert.True(t, f.UnknownFields.HideSingleOperator)

	fs := f.FieldSet()
	assert.False(t, fs.RuleEnabled("status", "unique"))
	assert.True(t, fs.RuleEnabled("due", "unique"))
	assert.Equal(t, []string{"is"}, fs.OperatorsFor("made-up"))
}

func TestLoadYAMLAndTOMLParity(t *testing.T) {
	yamlFile, err := Load(writeTemp(t, "fields.yaml", yamlConfig))
	require.NoError(t, err)
	tomlFile, err := Load(writeTemp(t, "fields.toml", tomlConfig))
	require.NoError(t, err)

	assertParsed(t, yamlFile)
	assertParsed(t, tomlFile)
	assert.Equal(t, yamlFile.Fields, tomlFile.Fields)
	assert.Equal(t, yamlFile.UnknownFields, tomlFile.UnknownFields)
}

func TestParseSniffsFormat(t *testing.T) {
	fromYAML, err := Parse([]byte(yamlConfig))
	require.NoError(t, err)
	fromTOML, err := Parse([]byte(tomlConfig))
	require.NoError(t, err)
	assert.Equal(t, fromYAML.Fields, fromTOML.Fields)
}

func TestLoadRejectsBadConfigs(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "missing key", content: "fields:\n  - label: Oops\n", wantErr: "has no key"},
		{name: "duplicate key", content: "fields:\n  - key: a\n  - key: a\n", wantErr: "declared twice"},
		{name: "unknown type", content: "fields:\n  - key: a\n    type: blob\n", wantErr: "unknown type"},
		{name: "malformed yaml", content: "fields: [\n", wantErr: "parse field config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeTemp(t, "fields.yaml", tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read field config")
}

package token

// FieldType describes the value domain of a field, which in turn selects the
// suggestion kind shown while editing its value.
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeEnum     FieldType = "enum"
	FieldTypeNumber   FieldType = "number"
	FieldTypeDate     FieldType = "date"
	FieldTypeDateTime FieldType = "datetime"
)

// FieldDefinition declares one known filter field.
type FieldDefinition struct {
	Key       string    `yaml:"key" toml:"key"`
	Label     string    `yaml:"label" toml:"label"`
	Type      FieldType `yaml:"type" toml:"type"`
	Operators []string  `yaml:"operators" toml:"operators"`
	Icon      string    `yaml:"icon" toml:"icon"`
	// Values seeds enum value suggestions.
	Values []string `yaml:"values" toml:"values"`
	// Validation opts this field out of named rules: a false entry disables
	// that rule for tokens of this field.
	Validation map[string]bool `yaml:"validation" toml:"validation"`
	// Expression is an optional CEL predicate a token of this field must
	// satisfy (variables: field, operator, value).
	Expression string `yaml:"expression" toml:"expression"`
}

// UnknownFields controls how fields without a definition are treated.
type UnknownFields struct {
	// Allow permits filter tokens whose field has no definition.
	Allow bool `yaml:"allow" toml:"allow"`
	// Operators lists the operators offered for unknown fields.
	Operators []string `yaml:"operators" toml:"operators"`
	// HideSingleOperator hides the operator block when only one is allowed.
	HideSingleOperator bool `yaml:"hideSingleOperator" toml:"hideSingleOperator"`
}

// DefaultOperators is the operator set used when a definition names none.
var DefaultOperators = []string{"is", "is-not"}

// FieldSet indexes definitions by key.
type FieldSet struct {
	defs    map[string]FieldDefinition
	ordered []string
	unknown UnknownFields
}

// NewFieldSet builds an index over defs. Later duplicates of a key replace
// earlier ones.
func NewFieldSet(defs []FieldDefinition, unknown UnknownFields) *FieldSet {
	fs := &FieldSet{defs: make(map[string]FieldDefinition, len(defs)), unknown: unknown}
	for _, d := range defs {
		if _, seen := fs.defs[d.Key]; !seen {
			fs.ordered = append(fs.ordered, d.Key)
		}
		if len(d.Operators) == 0 {
			d.Operators = DefaultOperators
		}
		fs.defs[d.Key] = d
	}
	return fs
}

// Lookup returns the definition for key.
func (fs *FieldSet) Lookup(key string) (FieldDefinition, bool) {
	d, ok := fs.defs[key]
	return d, ok
}

// Keys returns the field keys in declaration order.
func (fs *FieldSet) Keys() []string {
	out := make([]string, len(fs.ordered))
	copy(out, fs.ordered)
	return out
}

// Unknown returns the unknown-field policy.
func (fs *FieldSet) Unknown() UnknownFields { return fs.unknown }

// OperatorsFor returns the operators allowed for a field key, falling back to
// the unknown-field operator set, then to DefaultOperators.
func (fs *FieldSet) OperatorsFor(key string) []string {
	if d, ok := fs.defs[key]; ok {
		return d.Operators
	}
	if len(fs.unknown.Operators) > 0 {
		return fs.unknown.Operators
	}
	return DefaultOperators
}

// HideOperator reports whether the operator segment of a token for key
// should be hidden when rendered: set for unknown fields with exactly one
// allowed operator under a HideSingleOperator policy.
func (fs *FieldSet) HideOperator(key string) bool {
	if _, ok := fs.defs[key]; ok {
		return false
	}
	return fs.unknown.HideSingleOperator && len(fs.OperatorsFor(key)) == 1
}

// RuleEnabled reports whether ruleID applies to tokens of field key. Only an
// explicit false override disables a rule.
func (fs *FieldSet) RuleEnabled(key, ruleID string) bool {
	d, ok := fs.defs[key]
	if !ok || d.Validation == nil {
		return true
	}
	if enabled, present := d.Validation[ruleID]; present {
		return enabled
	}
	return true
}

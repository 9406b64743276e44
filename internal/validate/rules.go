package validate

import (
	"fmt"

	"github.com/oakwood-commons/queryline/internal/token"
)

// Match selects what Unique compares.
type Match string

const (
	// MatchExact treats tokens as duplicates when field, operator and value
	// all agree (free text compares on its text).
	MatchExact Match = "exact"
	// MatchField treats two filter tokens on the same field as duplicates.
	MatchField Match = "field"
)

// Unique flags duplicate tokens for deletion. The first occurrence of a group
// is always kept. When an editing set is present, only duplicates in it are
// flagged: the just-added duplicate is removed, pre-existing tokens are left
// alone.
func Unique(match Match) Rule {
	return FuncRule{
		RuleID: "unique",
		Fn: func(ctx Context) []Violation {
			seen := make(map[string]bool)
			var targets []Target
			for i, t := range ctx.Tokens {
				key := uniqueKey(t, match)
				if key == "" {
					continue
				}
				if !seen[key] {
					seen[key] = true
					continue
				}
				if len(ctx.Editing) > 0 && !ctx.IsEditing(t.ID) {
					continue
				}
				targets = append(targets, Target{TokenID: t.ID, Position: i})
			}
			if len(targets) == 0 {
				return nil
			}
			return []Violation{{
				RuleID:  "unique",
				Reason:  "duplicate",
				Message: "duplicate filter",
				Action:  ActionDelete,
				Targets: targets,
			}}
		},
	}
}

func uniqueKey(t token.Token, match Match) string {
	if match == MatchField {
		if t.Type != token.TypeFilter {
			return ""
		}
		return t.Field
	}
	return t.Key()
}

// MaxTokenCount flags tokens beyond max with a mark violation. field selects
// which tokens count: a field key counts filter tokens of that field, "*"
// counts every token.
func MaxTokenCount(field string, max int) Rule {
	return FuncRule{
		RuleID: "max-count",
		Fn: func(ctx Context) []Violation {
			count := 0
			var targets []Target
			for i, t := range ctx.Tokens {
				if field != "*" && (t.Type != token.TypeFilter || t.Field != field) {
					continue
				}
				count++
				if count > max {
					targets = append(targets, Target{TokenID: t.ID, Position: i})
				}
			}
			if len(targets) == 0 {
				return nil
			}
			return []Violation{{
				RuleID:  "max-count",
				Reason:  "count-overflow",
				Message: fmt.Sprintf("at most %d filters allowed", max),
				Action:  ActionMark,
				Targets: targets,
			}}
		},
	}
}

// KnownField marks filter tokens whose field has no definition, unless the
// unknown-field policy allows them.
func KnownField() Rule {
	return FuncRule{
		RuleID: "known-field",
		Fn: func(ctx Context) []Violation {
			if ctx.Fields == nil || ctx.Fields.Unknown().Allow {
				return nil
			}
			var out []Violation
			for i, t := range ctx.Tokens {
				if t.Type != token.TypeFilter {
					continue
				}
				if _, ok := ctx.Fields.Lookup(t.Field); ok {
					continue
				}
				out = append(out, Violation{
					RuleID:  "known-field",
					Reason:  "unknown-field",
					Message: fmt.Sprintf("unknown field %q", t.Field),
					Action:  ActionMark,
					Targets: []Target{{TokenID: t.ID, Position: i}},
				})
			}
			return out
		},
	}
}

// OperatorAllowed marks filter tokens whose operator is not in the field's
// allowed set.
func OperatorAllowed() Rule {
	return FuncRule{
		RuleID: "operator-allowed",
		Fn: func(ctx Context) []Violation {
			if ctx.Fields == nil {
				return nil
			}
			var out []Violation
			for i, t := range ctx.Tokens {
				if t.Type != token.TypeFilter {
					continue
				}
				if containsString(ctx.Fields.OperatorsFor(t.Field), t.Operator) {
					continue
				}
				out = append(out, Violation{
					RuleID:  "operator-allowed",
					Reason:  "operator-not-allowed",
					Message: fmt.Sprintf("operator %q not allowed for %q", t.Operator, t.Field),
					Action:  ActionMark,
					Targets: []Target{{TokenID: t.ID, Position: i}},
				})
			}
			return out
		},
	}
}

// ValueNotEmpty marks committed filter tokens with an empty value. Tokens in
// the editing set are skipped; an empty value is the normal state mid-edit.
func ValueNotEmpty() Rule {
	return FuncRule{
		RuleID: "value-not-empty",
		Fn: func(ctx Context) []Violation {
			var out []Violation
			for i, t := range ctx.Tokens {
				if t.Type != token.TypeFilter || t.Value != "" || ctx.IsEditing(t.ID) {
					continue
				}
				out = append(out, Violation{
					RuleID:  "value-not-empty",
					Reason:  "empty-value",
					Message: fmt.Sprintf("%s needs a value", t.Field),
					Action:  ActionMark,
					Targets: []Target{{TokenID: t.ID, Position: i}},
				})
			}
			return out
		},
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Package validate turns a token list into violations and corrective actions.
// The engine is a pure, synchronous pipeline: rules run in priority order over
// the current token list and their results are concatenated, never
// deduplicated. Applying the resulting actions is the caller's job.
package validate

import (
	"sort"

	"github.com/oakwood-commons/queryline/internal/token"
)

// Action is the corrective action a violation requests.
type Action string

const (
	// ActionMark keeps the token but flags it invalid.
	ActionMark Action = "mark"
	// ActionDelete removes the token. Delete wins over mark for the same token.
	ActionDelete Action = "delete"
)

// Target names one token a violation applies to.
type Target struct {
	TokenID  string
	Position int
}

// Violation is the output of one rule run.
type Violation struct {
	RuleID  string
	Reason  string
	Message string
	Action  Action
	Targets []Target
}

// Context is what every rule sees. Editing holds the ids of tokens currently
// being edited (newly created, just modified, or in a focus transition) so
// rules can suppress noisy mid-edit flagging.
type Context struct {
	Tokens  []token.Token
	Fields  *token.FieldSet
	Editing map[string]bool
}

// IsEditing reports whether the token id is currently being edited.
func (c Context) IsEditing(id string) bool { return c.Editing[id] }

// Rule is one validation rule. Higher priority runs first; the default
// priority is 0.
type Rule interface {
	ID() string
	Priority() int
	Validate(Context) []Violation
}

// FuncRule adapts a function to the Rule interface.
type FuncRule struct {
	RuleID       string
	RulePriority int
	Fn           func(Context) []Violation
}

func (r FuncRule) ID() string                    { return r.RuleID }
func (r FuncRule) Priority() int                 { return r.RulePriority }
func (r FuncRule) Validate(ctx Context) []Violation { return r.Fn(ctx) }

// Evaluate runs rules against ctx in descending priority order (stable for
// ties) and concatenates their violations. A token may accumulate violations
// from several rules. Field-level overrides are honored here: a violation
// target whose token's field opted out of the rule is dropped before the
// result is returned, and a violation with no remaining targets is dropped
// entirely. Evaluate never mutates ctx.Tokens.
func Evaluate(ctx Context, rules []Rule) []Violation {
	ordered := make([]Rule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority() > ordered[j].Priority()
	})

	fieldByID := make(map[string]string, len(ctx.Tokens))
	for _, t := range ctx.Tokens {
		if t.Type == token.TypeFilter {
			fieldByID[t.ID] = t.Field
		}
	}

	var out []Violation
	for _, rule := range ordered {
		for _, v := range rule.Validate(ctx) {
			v.Targets = filterOverridden(v.Targets, rule.ID(), fieldByID, ctx.Fields)
			if len(v.Targets) == 0 {
				continue
			}
			out = append(out, v)
		}
	}
	return out
}

func filterOverridden(targets []Target, ruleID string, fieldByID map[string]string, fields *token.FieldSet) []Target {
	if fields == nil {
		return targets
	}
	kept := targets[:0:0]
	for _, tg := range targets {
		field, isFilter := fieldByID[tg.TokenID]
		if isFilter && !fields.RuleEnabled(field, ruleID) {
			continue
		}
		kept = append(kept, tg)
	}
	return kept
}

// ApplyActions resolves violations into a new token list: tokens targeted by
// a delete violation are removed; tokens targeted only by mark violations are
// kept and flagged invalid (the first mark's message wins). The input slice
// is not modified.
func ApplyActions(tokens []token.Token, violations []Violation) []token.Token {
	deletes := make(map[string]bool)
	marks := make(map[string]string)
	for _, v := range violations {
		for _, tg := range v.Targets {
			switch v.Action {
			case ActionDelete:
				deletes[tg.TokenID] = true
			case ActionMark:
				if _, seen := marks[tg.TokenID]; !seen {
					marks[tg.TokenID] = v.Message
				}
			}
		}
	}

	out := make([]token.Token, 0, len(tokens))
	for _, t := range tokens {
		if deletes[t.ID] {
			continue
		}
		if msg, marked := marks[t.ID]; marked {
			t.Invalid = true
			t.InvalidMessage = msg
		}
		out = append(out, t)
	}
	return out
}

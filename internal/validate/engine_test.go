package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/queryline/internal/token"
)

func filterToken(id, field, op, value string) token.Token {
	return token.Token{ID: id, Type: token.TypeFilter, Field: field, Operator: op, Value: value}
}

func TestEvaluatePriorityOrder(t *testing.T) {
	var order []string
	mk := func(id string, prio int) Rule {
		return FuncRule{RuleID: id, RulePriority: prio, Fn: func(Context) []Violation {
			order = append(order, id)
			return nil
		}}
	}

	Evaluate(Context{}, []Rule{mk("low", 0), mk("high", 10), mk("mid", 5), mk("mid2", 5)})
	assert.Equal(t, []string{"high", "mid", "mid2", "low"}, order, "descending priority, stable for ties")
}

func TestEvaluateConcatenatesWithoutDedup(t *testing.T) {
	tok := filterToken("t1", "status", "is", "open")
	flag := func(ruleID string) Rule {
		return FuncRule{RuleID: ruleID, Fn: func(ctx Context) []Violation {
			return []Violation{{RuleID: ruleID, Action: ActionMark, Targets: []Target{{TokenID: "t1", Position: 0}}}}
		}}
	}

	got := Evaluate(Context{Tokens: []token.Token{tok}}, []Rule{flag("a"), flag("b")})
	require.Len(t, got, 2, "a token may be named by multiple violations")
}

func TestEvaluateFieldOverrideDropsTargets(t *testing.T) {
	fields := token.NewFieldSet([]token.FieldDefinition{
		{Key: "status", Validation: map[string]bool{"noisy": false}},
		{Key: "priority"},
	}, token.UnknownFields{})

	tokens := []token.Token{
		filterToken("t1", "status", "is", "open"),
		filterToken("t2", "priority", "is", "high"),
	}
	noisy := FuncRule{RuleID: "noisy", Fn: func(ctx Context) []Violation {
		return []Violation{{RuleID: "noisy", Action: ActionMark, Targets: []Target{
			{TokenID: "t1", Position: 0},
			{TokenID: "t2", Position: 1},
		}}}
	}}

	got := Evaluate(Context{Tokens: tokens, Fields: fields}, []Rule{noisy})
	require.Len(t, got, 1)
	require.Len(t, got[0].Targets, 1, "status opted out of the rule")
	assert.Equal(t, "t2", got[0].Targets[0].TokenID)
}

func TestEvaluateDoesNotMutateTokens(t *testing.T) {
	tokens := []token.Token{filterToken("t1", "status", "is", "open")}
	rule := FuncRule{RuleID: "r", Fn: func(ctx Context) []Violation {
		ctx.Tokens[0].Value = "mutated-in-rule-copy"
		return nil
	}}
	// Rules receive the same backing array; the engine itself must not write
	// to it, and ApplyActions must copy.
	_ = Evaluate(Context{Tokens: tokens}, []Rule{rule})
	out := ApplyActions(tokens, []Violation{{Action: ActionMark, Targets: []Target{{TokenID: "t1"}}}})
	assert.False(t, tokens[0].Invalid, "input slice untouched by ApplyActions")
	assert.True(t, out[0].Invalid)
}

func TestApplyActionsDeleteWinsOverMark(t *testing.T) {
	tokens := []token.Token{
		filterToken("t1", "status", "is", "open"),
		filterToken("t2", "status", "is", "open"),
	}
	violations := []Violation{
		{Action: ActionMark, Message: "too many", Targets: []Target{{TokenID: "t2", Position: 1}}},
		{Action: ActionDelete, Targets: []Target{{TokenID: "t2", Position: 1}}},
	}

	out := ApplyActions(tokens, violations)
	require.Len(t, out, 1)
	assert.Equal(t, "t1", out[0].ID)
	assert.False(t, out[0].Invalid)
}

// TestUniquePlusMaxCountHandTrace is the combined-rule scenario: four
// identical tokens, the fourth just added. Unique wants the just-added
// duplicate deleted, MaxTokenCount marks the count overflow; delete wins for
// the shared target, leaving exactly three tokens with no marks.
func TestUniquePlusMaxCountHandTrace(t *testing.T) {
	tokens := []token.Token{
		filterToken("t1", "label", "is", "bug"),
		filterToken("t2", "label", "is", "bug"),
		filterToken("t3", "label", "is", "bug"),
		filterToken("t4", "label", "is", "bug"),
	}
	ctx := Context{Tokens: tokens, Editing: map[string]bool{"t4": true}}
	rules := []Rule{Unique(MatchExact), MaxTokenCount("*", 3)}

	violations := Evaluate(ctx, rules)
	require.Len(t, violations, 2)

	byRule := map[string]Violation{}
	for _, v := range violations {
		byRule[v.RuleID] = v
	}
	unique := byRule["unique"]
	require.Len(t, unique.Targets, 1, "only the just-added duplicate is flagged")
	assert.Equal(t, "t4", unique.Targets[0].TokenID)
	assert.Equal(t, ActionDelete, unique.Action)

	overflow := byRule["max-count"]
	require.Len(t, overflow.Targets, 1)
	assert.Equal(t, "t4", overflow.Targets[0].TokenID)
	assert.Equal(t, ActionMark, overflow.Action)

	out := ApplyActions(tokens, violations)
	require.Len(t, out, 3)
	for _, tok := range out {
		assert.False(t, tok.Invalid, "no invalid marks remain after delete wins")
	}
}

func TestUniqueWithoutEditingSetFlagsAllDuplicates(t *testing.T) {
	tokens := []token.Token{
		filterToken("t1", "status", "is", "open"),
		filterToken("t2", "status", "is", "open"),
		filterToken("t3", "priority", "is", "high"),
		filterToken("t4", "status", "is", "open"),
	}
	got := Unique(MatchExact).Validate(Context{Tokens: tokens})
	require.Len(t, got, 1)
	require.Len(t, got[0].Targets, 2)
	assert.Equal(t, "t2", got[0].Targets[0].TokenID)
	assert.Equal(t, "t4", got[0].Targets[1].TokenID)
}

func TestUniqueMatchField(t *testing.T) {
	tokens := []token.Token{
		filterToken("t1", "status", "is", "open"),
		filterToken("t2", "status", "is-not", "closed"),
		{ID: "t3", Type: token.TypeFreeText, Value: "status"},
	}
	got := Unique(MatchField).Validate(Context{Tokens: tokens})
	require.Len(t, got, 1)
	require.Len(t, got[0].Targets, 1, "free text never participates in field matching")
	assert.Equal(t, "t2", got[0].Targets[0].TokenID)
}

func TestMaxTokenCountPerField(t *testing.T) {
	tokens := []token.Token{
		filterToken("t1", "label", "is", "bug"),
		filterToken("t2", "status", "is", "open"),
		filterToken("t3", "label", "is", "ui"),
		filterToken("t4", "label", "is", "infra"),
	}
	got := MaxTokenCount("label", 2).Validate(Context{Tokens: tokens})
	require.Len(t, got, 1)
	require.Len(t, got[0].Targets, 1)
	assert.Equal(t, "t4", got[0].Targets[0].TokenID)
	assert.Equal(t, 3, got[0].Targets[0].Position)
}

func TestKnownFieldRespectsUnknownPolicy(t *testing.T) {
	defs := []token.FieldDefinition{{Key: "status"}}
	tokens := []token.Token{filterToken("t1", "mystery", "is", "x")}

	strict := token.NewFieldSet(defs, token.UnknownFields{Allow: false})
	got := KnownField().Validate(Context{Tokens: tokens, Fields: strict})
	require.Len(t, got, 1)
	assert.Equal(t, "unknown-field", got[0].Reason)

	lax := token.NewFieldSet(defs, token.UnknownFields{Allow: true})
	assert.Empty(t, KnownField().Validate(Context{Tokens: tokens, Fields: lax}))
}

func TestOperatorAllowed(t *testing.T) {
	fields := token.NewFieldSet([]token.FieldDefinition{
		{Key: "status", Operators: []string{"is", "is-not"}},
	}, token.UnknownFields{Operators: []string{"is"}})

	tokens := []token.Token{
		filterToken("t1", "status", "is", "open"),
		filterToken("t2", "status", "contains", "open"),
		filterToken("t3", "mystery", "is", "x"),
	}
	got := OperatorAllowed().Validate(Context{Tokens: tokens, Fields: fields})
	require.Len(t, got, 1)
	assert.Equal(t, "t2", got[0].Targets[0].TokenID)
}

func TestValueNotEmptySkipsEditing(t *testing.T) {
	tokens := []token.Token{
		filterToken("t1", "status", "is", ""),
		filterToken("t2", "status", "is", ""),
	}
	ctx := Context{Tokens: tokens, Editing: map[string]bool{"t2": true}}
	got := ValueNotEmpty().Validate(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, "t1", got[0].Targets[0].TokenID)
}

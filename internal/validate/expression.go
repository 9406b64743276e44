package validate

import (
	"fmt"

	"github.com/google/cel-go/cel"
	celext "github.com/google/cel-go/ext"

	"github.com/oakwood-commons/queryline/internal/token"
)

// newFieldExprEnv builds the CEL environment field expressions compile
// against. Expressions see the token under test as three string variables.
func newFieldExprEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("field", cel.StringType),
		cel.Variable("operator", cel.StringType),
		cel.Variable("value", cel.StringType),
		celext.Strings(),
		celext.Math(),
	)
}

// Expression validates filter tokens against the CEL predicate declared in
// their field definition. A token whose predicate evaluates to false is
// marked; a predicate that fails to compile or evaluate also marks the token,
// carrying the error text so the author can see what broke. Programs are
// compiled once per distinct expression and cached for the rule's lifetime.
func Expression() Rule {
	var env *cel.Env
	var envErr error
	programs := make(map[string]cel.Program)
	errors := make(map[string]error)

	compile := func(expr string) (cel.Program, error) {
		if prg, ok := programs[expr]; ok {
			return prg, nil
		}
		if err, ok := errors[expr]; ok {
			return nil, err
		}
		if env == nil && envErr == nil {
			env, envErr = newFieldExprEnv()
		}
		if envErr != nil {
			return nil, envErr
		}
		ast, issues := env.Compile(expr)
		if issues != nil && issues.Err() != nil {
			err := fmt.Errorf("compilation error: %w", issues.Err())
			errors[expr] = err
			return nil, err
		}
		prg, err := env.Program(ast)
		if err != nil {
			err = fmt.Errorf("program error: %w", err)
			errors[expr] = err
			return nil, err
		}
		programs[expr] = prg
		return prg, nil
	}

	return FuncRule{
		RuleID: "expression",
		Fn: func(ctx Context) []Violation {
			if ctx.Fields == nil {
				return nil
			}
			var out []Violation
			for i, t := range ctx.Tokens {
				if t.Type != token.TypeFilter || ctx.IsEditing(t.ID) {
					continue
				}
				def, ok := ctx.Fields.Lookup(t.Field)
				if !ok || def.Expression == "" {
					continue
				}
				msg, violated := evalFieldExpr(compile, def.Expression, t)
				if !violated {
					continue
				}
				out = append(out, Violation{
					RuleID:  "expression",
					Reason:  "expression-failed",
					Message: msg,
					Action:  ActionMark,
					Targets: []Target{{TokenID: t.ID, Position: i}},
				})
			}
			return out
		},
	}
}

func evalFieldExpr(compile func(string) (cel.Program, error), expr string, t token.Token) (string, bool) {
	prg, err := compile(expr)
	if err != nil {
		return err.Error(), true
	}
	result, _, err := prg.Eval(map[string]any{
		"field":    t.Field,
		"operator": t.Operator,
		"value":    t.Value,
	})
	if err != nil {
		return fmt.Sprintf("eval error: %v", err), true
	}
	ok, isBool := result.Value().(bool)
	if !isBool {
		return fmt.Sprintf("expression %q is not a boolean predicate", expr), true
	}
	if !ok {
		return fmt.Sprintf("value %q not accepted for %s", t.Value, t.Field), true
	}
	return "", false
}

package ui

import (
	"fmt"

	tea "charm.land/bubbletea/v2"
	"github.com/go-logr/logr"

	"github.com/oakwood-commons/queryline/internal/config"
	"github.com/oakwood-commons/queryline/internal/suggest"
	"github.com/oakwood-commons/queryline/internal/token"
	"github.com/oakwood-commons/queryline/internal/validate"
	"github.com/oakwood-commons/queryline/pkg/session"
	"github.com/oakwood-commons/queryline/pkg/settings"
)

// DefaultRules is the validation rule set the demo runs with.
func DefaultRules() []validate.Rule {
	return []validate.Rule{
		validate.Unique(validate.MatchExact),
		validate.KnownField(),
		validate.OperatorAllowed(),
		validate.ValueNotEmpty(),
		validate.Expression(),
	}
}

// DemoFields is the built-in field configuration used when no --fields file
// is given.
func DemoFields() config.File {
	return config.File{
		Fields: []token.FieldDefinition{
			{
				Key: "status", Label: "Status", Type: token.FieldTypeEnum,
				Operators: []string{"is", "is-not"},
				Values:    []string{"open", "in-progress", "blocked", "closed"},
			},
			{
				Key: "assignee", Label: "Assignee", Type: token.FieldTypeText,
				Operators: []string{"is", "is-not"},
			},
			{
				Key: "estimate", Label: "Estimate", Type: token.FieldTypeNumber,
				Operators:  []string{"is", "gt", "lt"},
				Expression: `value.matches('^[0-9]+$')`,
			},
			{
				Key: "due", Label: "Due date", Type: token.FieldTypeDate,
				Operators: []string{"is", "before", "after"},
			},
			{
				Key: "label", Label: "Label", Type: token.FieldTypeEnum,
				Operators:  []string{"is"},
				Values:     []string{"bug", "feature", "chore", "docs"},
				Validation: map[string]bool{"unique": false},
			},
		},
		UnknownFields: token.UnknownFields{
			Allow:     false,
			Operators: token.DefaultOperators,
		},
	}
}

// loadFields resolves the field configuration: params.FieldsPath when set,
// the built-in demo fields otherwise.
func loadFields(params *settings.Run) (config.File, error) {
	if params.FieldsPath == "" {
		return DemoFields(), nil
	}
	return config.Load(params.FieldsPath)
}

// Run starts the interactive demo.
func Run(params *settings.Run, lgr *logr.Logger, opts ...tea.ProgramOption) error {
	fields, err := loadFields(params)
	if err != nil {
		return err
	}

	log := logr.Discard()
	if lgr != nil {
		log = *lgr
	}

	cfg := session.Config{
		Fields:        fields.Fields,
		UnknownFields: fields.UnknownFields,
		Rules:         DefaultRules(),
		Suggest: suggest.Options{
			DisplayMode: suggest.DisplayAppend,
			Logger:      log,
		},
	}

	theme := DefaultTheme()
	if params.NoColor {
		theme = PlainTheme()
	}

	m := NewModel(cfg, theme, session.WithLogger(log))
	m.NoColor = params.NoColor
	if params.InitialQuery != "" {
		m.Sess.SetValue(params.InitialQuery)
		m.syncElements()
	}

	prog := tea.NewProgram(m, opts...)
	_, err = prog.Run()
	return err
}

// Snapshot renders a single frame without starting the event loop, for the
// --snapshot flag and golden-output scripting.
func Snapshot(params *settings.Run, width, height int) (string, error) {
	fields, err := loadFields(params)
	if err != nil {
		return "", err
	}

	theme := DefaultTheme()
	if params.NoColor {
		theme = PlainTheme()
	}

	cfg := session.Config{
		Fields:        fields.Fields,
		UnknownFields: fields.UnknownFields,
		Rules:         DefaultRules(),
	}
	m := NewModel(cfg, theme)
	m.NoColor = params.NoColor
	m.Update(tea.WindowSizeMsg{Width: width, Height: height})
	if params.InitialQuery != "" {
		m.Sess.SetValue(params.InitialQuery)
		m.syncElements()
	}
	return fmt.Sprint(m.View().Content) + "\n", nil
}

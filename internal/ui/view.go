package ui

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	runewidth "github.com/mattn/go-runewidth"

	"github.com/oakwood-commons/queryline/internal/suggest"
	"github.com/oakwood-commons/queryline/internal/token"
)

// View renders the token line, the suggestion dropdown when open, and the
// status bar.
func (m *Model) View() tea.View {
	var b strings.Builder
	b.WriteString(m.renderTokenLine())
	if dropdown := m.renderSuggestions(); dropdown != "" {
		b.WriteString("\n")
		b.WriteString(dropdown)
	}
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	return tea.NewView(b.String())
}

func (m *Model) renderTokenLine() string {
	parts := make([]string, 0, len(m.Sess.Tokens())+1)
	for _, t := range m.Sess.Tokens() {
		if m.editingID == t.ID {
			// The token is mirrored in the input while being rewritten.
			continue
		}
		parts = append(parts, m.renderToken(t))
	}
	parts = append(parts, m.Input.View())
	return strings.Join(parts, " ")
}

func (m *Model) renderToken(t token.Token) string {
	focused := m.focusedID == tokenElementPrefix+t.ID
	switch {
	case focused:
		return m.Theme.TokenFocused.Render(" " + t.String() + " ")
	case t.Invalid:
		return m.Theme.TokenInvalid.Render(t.String())
	case t.Type == token.TypeFreeText:
		return m.Theme.FreeText.Render(" " + t.String() + " ")
	default:
		if m.Sess.Fields().HideOperator(t.Field) {
			return m.Theme.Field.Render(" "+t.Field) +
				m.Theme.Operator.Render(":") +
				m.Theme.Value.Render(t.Value+" ")
		}
		return m.Theme.Field.Render(" "+t.Field) +
			m.Theme.Operator.Render(":"+t.Operator+":") +
			m.Theme.Value.Render(t.Value+" ")
	}
}

func (m *Model) renderSuggestions() string {
	st := m.Suggest
	if !st.IsOpen() {
		return ""
	}
	if st.Kind == suggest.KindDate || st.Kind == suggest.KindDateTime {
		layout := "YYYY-MM-DD"
		if st.Kind == suggest.KindDateTime {
			layout = "YYYY-MM-DDTHH:MM"
		}
		hint := fmt.Sprintf("  %s (%s) · enter to confirm, esc to keep editing", layout, st.DateValue)
		return m.Theme.Hint.Render(hint)
	}

	mode := m.Sess.Suggestions().DisplayMode()
	merged := st.Merged(mode)
	if len(merged) == 0 {
		return m.Theme.Hint.Render("  no suggestions")
	}
	lines := make([]string, 0, len(merged)+1)
	for i, it := range merged {
		label := it.DisplayLabel()
		if it.Icon != "" {
			label = it.Icon + " " + label
		}
		line := "  " + label
		if it.Detail != "" {
			line += "  " + m.Theme.SuggestionDetail.Render(it.Detail)
		}
		if i == st.ActiveIndex {
			line = m.Theme.SuggestionActive.Render("> " + label)
			if it.Detail != "" {
				line += "  " + m.Theme.SuggestionDetail.Render(it.Detail)
			}
		}
		lines = append(lines, line)
	}
	if st.Primary.HasMore || st.Custom.HasMore {
		lines = append(lines, m.Theme.Hint.Render("  … ctrl+n for more"))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderStatus() string {
	if m.StatusMsg != "" {
		if m.StatusType == "error" {
			return m.Theme.StatusError.Render(m.StatusMsg)
		}
		return m.Theme.Status.Render(m.StatusMsg)
	}
	count := len(m.Sess.Tokens())
	left := fmt.Sprintf("%d token(s)", count)
	hints := "←/→ move · enter edit/commit · backspace delete · ctrl+u clear · ctrl+c quit"
	line := left + "  " + hints
	if m.WinWidth > 0 && runewidth.StringWidth(line) > m.WinWidth {
		line = runewidth.Truncate(line, m.WinWidth-1, "…")
	}
	return m.Theme.Status.Render(line)
}

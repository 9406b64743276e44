// Package ui is the Bubble Tea front-end of the query input: a token line,
// a free-text input, a suggestion dropdown, and a status bar. All keyboard
// handling flows through the keymap dispatcher and all focus movement through
// the focus registry, so the engine packages are exercised exactly as an
// embedding editor would.
package ui

import (
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"

	"github.com/oakwood-commons/queryline/internal/focus"
	"github.com/oakwood-commons/queryline/internal/keymap"
	"github.com/oakwood-commons/queryline/internal/suggest"
	"github.com/oakwood-commons/queryline/internal/token"
	"github.com/oakwood-commons/queryline/pkg/session"
)

// inputElementID is the focus-registry id of the trailing free input.
const inputElementID = "free-input"

// tokenElementPrefix namespaces token block ids in the focus registry.
const tokenElementPrefix = "tok:"

// suggestMsg carries an orchestrator state snapshot into the update loop.
type suggestMsg struct {
	state suggest.State
}

// Model is the Bubble Tea UI model for the query input.
type Model struct {
	Sess    *session.Session
	Theme   Theme
	NoColor bool
	Input   textinput.Model

	WinWidth  int
	WinHeight int

	registry   *focus.Registry
	machine    focus.State
	keys       *keymap.Registry
	dispatcher *keymap.Dispatcher
	unregister map[string]func()

	suggestCh chan suggest.State
	Suggest   suggest.State

	// focusedID is the focus-registry element currently holding focus.
	focusedID string
	// editingID is the token being rewritten through the input; empty while
	// composing a new token.
	editingID string

	StatusMsg  string
	StatusType string
	LastKey    string
	Quitting   bool
}

// viewHandle adapts closures to the focus registry's ViewHandle.
type viewHandle struct {
	order    func() int
	attached func() bool
}

func (h viewHandle) Order() int     { return h.order() }
func (h viewHandle) Attached() bool { return h.attached() }

// NewModel builds the UI model and its session. The suggestion orchestrator's
// updates are rerouted through a channel so async deliveries arrive as Bubble
// Tea messages.
func NewModel(cfg session.Config, theme Theme, sessOpts ...session.Option) *Model {
	m := &Model{
		Theme:      theme,
		registry:   focus.NewRegistry(),
		machine:    focus.Inactive(),
		keys:       keymap.NewRegistry(),
		unregister: make(map[string]func()),
		suggestCh:  make(chan suggest.State, 16),
	}
	m.dispatcher = keymap.NewDispatcher(m.keys)

	prevUpdate := cfg.Suggest.OnUpdate
	cfg.Suggest.OnUpdate = func(st suggest.State) {
		if prevUpdate != nil {
			prevUpdate(st)
		}
		select {
		case m.suggestCh <- st:
		default:
		}
	}
	m.Sess = session.New(cfg, sessOpts...)

	ti := textinput.New()
	ti.Placeholder = "field:operator:value or free text"
	ti.CharLimit = 500
	ti.SetWidth(60)
	ti.Prompt = "> "
	m.Input = ti

	m.registry.OnExitLeft = func() {
		m.setStatus("at first filter", "hint")
	}
	m.registry.OnExitRight = func() {
		m.registry.FocusByID(inputElementID, focus.PositionEnd)
	}
	m.unregister[inputElementID] = m.registry.Register(focus.Element{
		ID: inputElementID,
		View: viewHandle{
			order:    func() int { return len(m.Sess.Tokens()) },
			attached: func() bool { return true },
		},
		Focus:          m.focusInput,
		EntryFocusable: true,
	})

	m.bindKeys()
	m.syncElements()
	m.enterEditor(focus.Entry{Pointer: true})
	return m
}

// Init starts the cursor blink and the suggestion pump.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitSuggest())
}

func (m *Model) waitSuggest() tea.Cmd {
	return func() tea.Msg {
		return suggestMsg{state: <-m.suggestCh}
	}
}

// Update routes messages: keys go through the dispatcher first, and only
// unclaimed keys reach the text input.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case suggestMsg:
		m.Suggest = msg.state
		return m, m.waitSuggest()

	case tea.WindowSizeMsg:
		m.WinWidth = msg.Width
		m.WinHeight = msg.Height
		if w := msg.Width - 4; w > 10 {
			m.Input.SetWidth(w)
		}
		return m, nil

	case tea.KeyMsg:
		keyStr := msg.String()
		m.LastKey = keyStr

		handled := m.dispatcher.Dispatch(keymap.Event{Key: keyStr})
		if m.Quitting {
			m.Sess.Blur()
			return m, tea.Quit
		}
		if handled {
			m.syncElements()
			return m, nil
		}
		if m.focusedID == inputElementID {
			before := m.Input.Value()
			var cmd tea.Cmd
			m.Input, cmd = m.Input.Update(msg)
			if m.Input.Value() != before {
				m.onQueryEdited()
			}
			return m, cmd
		}
		return m, nil
	}
	return m, nil
}

// bindKeys installs the three priority bands: suggestion-list navigation at
// view priority, token-local editing at block priority, and editor-wide keys
// at default priority.
func (m *Model) bindKeys() {
	m.keys.Register("suggestions", []keymap.Entry{
		{Key: "down", Priority: keymap.PriorityView, Handler: m.suggestMove(1)},
		{Key: "up", Priority: keymap.PriorityView, Handler: m.suggestMove(-1)},
		{Key: "tab", Priority: keymap.PriorityView, Handler: m.acceptSuggestion},
		{Key: "enter", Priority: keymap.PriorityView, Handler: m.acceptSuggestion},
		{Key: "esc", Priority: keymap.PriorityView, Handler: m.dismissSuggestions},
		{Key: "ctrl+n", Priority: keymap.PriorityView, Handler: m.loadMoreSuggestions},
	})
	m.keys.Register("token", []keymap.Entry{
		{Key: "backspace", Priority: keymap.PriorityBlock, Handler: m.deleteFocusedToken},
		{Key: "delete", Priority: keymap.PriorityBlock, Handler: m.deleteFocusedToken},
		{Key: "enter", Priority: keymap.PriorityBlock, Handler: m.editFocusedToken},
	})
	m.keys.Register("editor", []keymap.Entry{
		{Key: "left", Priority: keymap.PriorityDefault, Handler: m.moveLeft},
		{Key: "right", Priority: keymap.PriorityDefault, Handler: m.moveRight},
		{Key: "home", Priority: keymap.PriorityDefault, Handler: m.moveHome},
		{Key: "end", Priority: keymap.PriorityDefault, Handler: m.moveEnd},
		{Key: "backspace", Priority: keymap.PriorityDefault, Handler: m.backspaceAtEdge},
		{Key: "enter", Priority: keymap.PriorityDefault, Handler: m.commitOrSubmit},
		{Key: "esc", Priority: keymap.PriorityDefault, Handler: m.cancelEdit},
		{Key: "ctrl+u", Priority: keymap.PriorityDefault, Handler: m.clearAll},
		{Key: "ctrl+c", Priority: keymap.PriorityDefault, Handler: m.quit},
		{Key: "f10", Priority: keymap.PriorityDefault, Handler: m.quit},
	})
}

// enterEditor walks the token focus lifecycle: gained -> pending entry ->
// realized against the registry -> active.
func (m *Model) enterEditor(entry focus.Entry) {
	m.machine = focus.Reduce(m.machine, focus.PluginFocusGained{Entry: entry})
	focus.ExecutePendingFocus(m.machine, m.registry)
	if m.focusedID != "" {
		m.machine = focus.Reduce(m.machine, focus.PendingFocusExecuted{FocusID: m.focusedID})
	}
	m.Sess.Focus()
}

func (m *Model) focusInput(pos focus.Position) {
	m.focusedID = inputElementID
	m.Input.Focus()
	if pos == focus.PositionStart {
		m.Input.SetCursor(0)
	} else {
		m.Input.CursorEnd()
	}
	m.machine = focus.Reduce(m.machine, focus.ChildFocused{ID: inputElementID})
}

func (m *Model) focusToken(elID string) func(focus.Position) {
	return func(focus.Position) {
		m.focusedID = elID
		m.Input.Blur()
		m.machine = focus.Reduce(m.machine, focus.ChildFocused{ID: elID})
	}
}

// syncElements reconciles the focus registry with the current token list.
// Elements are keyed by token ID, so reordering only changes view order and
// re-registration keeps its original position.
func (m *Model) syncElements() {
	present := map[string]bool{inputElementID: true}
	for _, t := range m.Sess.Tokens() {
		elID := tokenElementPrefix + t.ID
		present[elID] = true
		if _, ok := m.unregister[elID]; ok {
			continue
		}
		tokID := t.ID
		m.unregister[elID] = m.registry.Register(focus.Element{
			ID: elID,
			View: viewHandle{
				order:    func() int { return m.tokenIndex(tokID) },
				attached: func() bool { return m.tokenIndex(tokID) >= 0 },
			},
			Focus:          m.focusToken(elID),
			EntryFocusable: true,
		})
	}
	for elID, unreg := range m.unregister {
		if !present[elID] {
			unreg()
			delete(m.unregister, elID)
		}
	}
}

func (m *Model) tokenIndex(id string) int {
	for i, t := range m.Sess.Tokens() {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (m *Model) focusedTokenID() (string, bool) {
	if !strings.HasPrefix(m.focusedID, tokenElementPrefix) {
		return "", false
	}
	return strings.TrimPrefix(m.focusedID, tokenElementPrefix), true
}

// ---- key handlers ----

func (m *Model) suggestMove(delta int) keymap.Handler {
	return func(keymap.Event) bool {
		orch := m.Sess.Suggestions()
		st := orch.State()
		if !st.IsOpen() || len(st.Merged(orch.DisplayMode())) == 0 {
			return false
		}
		orch.MoveActive(delta)
		m.Suggest = orch.State()
		return true
	}
}

func (m *Model) acceptSuggestion(keymap.Event) bool {
	orch := m.Sess.Suggestions()
	st := orch.State()
	if !st.IsOpen() {
		return false
	}

	if st.Kind == suggest.KindDate || st.Kind == suggest.KindDateTime {
		v, ok := orch.Confirm()
		m.Suggest = orch.State()
		if !ok || v == "" {
			return true
		}
		field, op, _, _ := splitPartial(m.Input.Value())
		m.commitFilter(field, m.pickOperator(field, op), v)
		return true
	}

	it, ok := orch.ActiveItem()
	if !ok {
		return false
	}
	switch st.Kind {
	case suggest.KindField, suggest.KindFieldWithCustom:
		op := m.pickOperator(it.Text, "")
		m.Input.SetValue(it.Text + ":" + op + ":")
		m.Input.CursorEnd()
		m.onQueryEdited()
	default:
		field, op, _, _ := splitPartial(m.Input.Value())
		m.commitFilter(field, m.pickOperator(field, op), it.Text)
	}
	return true
}

func (m *Model) dismissSuggestions(keymap.Event) bool {
	orch := m.Sess.Suggestions()
	if !orch.State().IsOpen() {
		return false
	}
	orch.Dismiss(suggest.GestureEscape, false)
	m.Suggest = orch.State()
	return true
}

func (m *Model) loadMoreSuggestions(keymap.Event) bool {
	orch := m.Sess.Suggestions()
	st := orch.State()
	switch {
	case st.Primary.HasMore:
		orch.LoadMore(suggest.ListPrimary)
	case st.Custom.HasMore:
		orch.LoadMore(suggest.ListCustom)
	default:
		return false
	}
	return true
}

func (m *Model) deleteFocusedToken(keymap.Event) bool {
	id, ok := m.focusedTokenID()
	if !ok {
		return false
	}
	m.Sess.DeleteToken(id)
	m.syncElements()
	m.registry.FocusByID(inputElementID, focus.PositionEnd)
	m.refreshValidation()
	return true
}

func (m *Model) editFocusedToken(keymap.Event) bool {
	id, ok := m.focusedTokenID()
	if !ok {
		return false
	}
	idx := m.tokenIndex(id)
	if idx < 0 {
		return false
	}
	t := m.Sess.Tokens()[idx]
	m.Sess.BeginEdit(id)
	m.editingID = id
	m.Input.SetValue(t.String())
	m.registry.FocusByID(inputElementID, focus.PositionEnd)
	m.onQueryEdited()
	return true
}

func (m *Model) moveLeft(keymap.Event) bool {
	if m.focusedID == inputElementID {
		if m.Input.Position() > 0 {
			return false
		}
		m.registry.NavigateRelative(inputElementID, focus.DirectionPrev, focus.Options{})
		return true
	}
	m.registry.NavigateRelative(m.focusedID, focus.DirectionPrev, focus.Options{})
	return true
}

func (m *Model) moveRight(keymap.Event) bool {
	if m.focusedID == inputElementID {
		return false
	}
	m.registry.NavigateRelative(m.focusedID, focus.DirectionNext, focus.Options{})
	return true
}

func (m *Model) moveHome(keymap.Event) bool {
	if m.focusedID == inputElementID && m.Input.Position() > 0 {
		return false
	}
	m.registry.NavigateAbsolute(focus.TargetFirst, focus.Options{})
	return true
}

func (m *Model) moveEnd(keymap.Event) bool {
	if m.focusedID == inputElementID {
		return false
	}
	m.registry.NavigateAbsolute(focus.TargetLast, focus.Options{})
	return true
}

// backspaceAtEdge enters the previous token when backspace is pressed in an
// empty input. Entry filtering keeps focus off non-entry blocks.
func (m *Model) backspaceAtEdge(keymap.Event) bool {
	if m.focusedID != inputElementID || m.Input.Value() != "" {
		return false
	}
	m.registry.NavigateRelative(inputElementID, focus.DirectionPrev, focus.Options{Filter: focus.FilterEntry})
	return true
}

func (m *Model) commitOrSubmit(keymap.Event) bool {
	if m.focusedID != inputElementID {
		return false
	}
	text := strings.TrimSpace(m.Input.Value())
	if text == "" {
		m.Sess.Submit()
		m.setStatus("submitted: "+m.Sess.GetValue(), "success")
		return true
	}
	m.commitInput(text)
	return true
}

func (m *Model) cancelEdit(keymap.Event) bool {
	if m.editingID == "" && m.Input.Value() == "" {
		return false
	}
	if m.editingID != "" {
		m.Sess.EndEdit(m.editingID)
		m.editingID = ""
	}
	m.Input.SetValue("")
	m.Sess.Suggestions().Close()
	m.Suggest = m.Sess.Suggestions().State()
	return true
}

func (m *Model) clearAll(keymap.Event) bool {
	m.Sess.Clear()
	m.Input.SetValue("")
	m.editingID = ""
	m.Sess.Suggestions().Close()
	m.Suggest = m.Sess.Suggestions().State()
	m.syncElements()
	m.registry.FocusByID(inputElementID, focus.PositionEnd)
	m.setStatus("cleared", "hint")
	return true
}

func (m *Model) quit(keymap.Event) bool {
	m.Quitting = true
	return true
}

// ---- editing flow ----

// onQueryEdited opens or updates the suggestion session to match the partial
// input. The stage of the partial token picks the kind: field names before
// the first colon, values (or a date picker) after the second.
func (m *Model) onQueryEdited() {
	orch := m.Sess.Suggestions()
	text := m.Input.Value()
	if strings.TrimSpace(text) == "" {
		orch.Close()
		m.Suggest = orch.State()
		return
	}
	field, _, value, st := splitPartial(text)
	switch st {
	case stageField:
		if m.Suggest.Kind != suggest.KindField {
			orch.Open(suggest.KindField, "", text)
		} else {
			orch.QueryChanged(text)
		}
	case stageOperator:
		orch.Close()
	case stageValue:
		kind := suggest.KindValue
		if def, ok := m.Sess.Fields().Lookup(field); ok {
			kind = session.SuggestKindFor(def.Type)
		}
		if m.Suggest.Kind != kind || m.Suggest.FieldKey != field {
			orch.Open(kind, field, value)
		}
		if kind == suggest.KindDate || kind == suggest.KindDateTime {
			orch.SetDateValue(value)
		} else {
			orch.QueryChanged(value)
		}
	}
	m.Suggest = orch.State()
}

// commitInput turns the input text into tokens. While editing an existing
// token the first parsed token replaces it in place; otherwise every parsed
// token is appended.
func (m *Model) commitInput(text string) {
	parsed := token.Parse(text)
	if len(parsed) == 0 {
		return
	}
	if m.editingID != "" {
		t := parsed[0]
		t.ID = m.editingID
		m.Sess.UpdateToken(t)
		m.Sess.EndEdit(m.editingID)
		m.editingID = ""
	} else {
		for _, t := range parsed {
			m.Sess.AddToken(t)
		}
	}
	m.finishCommit()
}

func (m *Model) commitFilter(field, operator, value string) {
	t := token.NewFilter(field, operator, value)
	if m.editingID != "" {
		t.ID = m.editingID
		m.Sess.UpdateToken(t)
		m.Sess.EndEdit(m.editingID)
		m.editingID = ""
	} else {
		m.Sess.AddToken(t)
	}
	m.finishCommit()
}

func (m *Model) finishCommit() {
	m.Input.SetValue("")
	m.Sess.Suggestions().Close()
	m.Suggest = m.Sess.Suggestions().State()
	m.syncElements()
	m.registry.FocusByID(inputElementID, focus.PositionEnd)
	m.refreshValidation()
}

func (m *Model) pickOperator(field, current string) string {
	if current != "" {
		return current
	}
	ops := m.Sess.Fields().OperatorsFor(field)
	if len(ops) == 0 {
		return token.DefaultOperators[0]
	}
	return ops[0]
}

func (m *Model) refreshValidation() {
	violations := m.Sess.Validate()
	if len(violations) == 0 {
		m.setStatus("", "")
		return
	}
	m.setStatus(violations[0].Message, "error")
}

func (m *Model) setStatus(msg, kind string) {
	m.StatusMsg = msg
	m.StatusType = kind
}

// ---- partial token parsing ----

type partialStage int

const (
	stageField partialStage = iota
	stageOperator
	stageValue
)

// splitPartial splits an in-progress chunk into its typed-so-far pieces.
// Unlike token.Parse it accepts incomplete chunks; the stage says which piece
// the cursor is in.
func splitPartial(text string) (field, op, value string, st partialStage) {
	first := strings.IndexByte(text, ':')
	if first < 0 {
		return text, "", "", stageField
	}
	field = text[:first]
	rest := text[first+1:]
	second := strings.IndexByte(rest, ':')
	if second < 0 {
		return field, rest, "", stageOperator
	}
	return field, rest[:second], rest[second+1:], stageValue
}

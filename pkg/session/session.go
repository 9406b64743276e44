// Package session is the embeddable entry point of the query input engine.
// A Session ties a host Document to the validation engine and the suggestion
// orchestrator and exposes the imperative accessors and callbacks an
// embedding application programs against.
package session

import (
	"github.com/go-logr/logr"

	"github.com/oakwood-commons/queryline/internal/suggest"
	"github.com/oakwood-commons/queryline/internal/token"
	"github.com/oakwood-commons/queryline/internal/validate"
)

// Config declares the fields, rules, and suggestion sources of a session.
type Config struct {
	Fields        []token.FieldDefinition
	UnknownFields token.UnknownFields
	// Rules run on Validate and Submit. Expression rules come from the field
	// definitions; list the engine-provided rules (or custom ones) here.
	Rules []validate.Rule
	// Sources override the field-set-backed defaults.
	Sources suggest.Sources
	// Suggest tunes debounce, page size, timeout, and display mode.
	Suggest suggest.Options
}

// Callbacks notify the host about session activity. All fields are optional.
type Callbacks struct {
	// OnChange fires after every document change with a fresh snapshot.
	OnChange func(token.Snapshot)
	// OnTokensChange fires with the confirmed token list, after OnChange.
	// Changes to a token currently being edited are held back until the edit
	// ends, so hosts only observe settled states.
	OnTokensChange func([]token.Token)
	// OnSubmit fires with the snapshot when the user submits the input.
	OnSubmit func(token.Snapshot)
	OnFocus  func()
	OnBlur   func()
	OnClear  func()
}

// Option configures a Session.
type Option func(*Session)

// WithDocument sets the host document. The default is an empty MemoryDocument.
func WithDocument(doc Document) Option {
	return func(s *Session) { s.doc = doc }
}

// WithCallbacks sets the host callbacks.
func WithCallbacks(cb Callbacks) Option {
	return func(s *Session) { s.cb = cb }
}

// WithLogger sets the session logger. The default discards.
func WithLogger(lgr logr.Logger) Option {
	return func(s *Session) { s.log = lgr }
}

// Session is one query input instance.
type Session struct {
	doc     Document
	fields  *token.FieldSet
	rules   []validate.Rule
	orch    *suggest.Orchestrator
	cb      Callbacks
	log     logr.Logger
	focused bool
	editing map[string]bool
	// lastConfirmed is the token list OnTokensChange last reported.
	lastConfirmed []token.Token
}

// New creates a Session. Sources default to the field-set-backed field and
// value sources when the config names none.
func New(cfg Config, opts ...Option) *Session {
	s := &Session{
		fields:  token.NewFieldSet(cfg.Fields, cfg.UnknownFields),
		rules:   cfg.Rules,
		log:     logr.Discard(),
		editing: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.doc == nil {
		s.doc = NewMemoryDocument()
	}
	sources := cfg.Sources
	if sources.Primary == nil {
		sources.Primary = FieldSource(s.fields)
	}
	suggestOpts := cfg.Suggest
	if suggestOpts.Logger.GetSink() == nil {
		suggestOpts.Logger = s.log
	}
	s.orch = suggest.New(sources, suggestOpts)
	s.lastConfirmed = s.doc.Tokens()
	return s
}

// GetValue serializes the current token list to its text form.
func (s *Session) GetValue() string {
	return token.Serialize(s.doc.Tokens())
}

// SetValue replaces the document content by parsing text. Parsing never
// fails; malformed chunks become free-text tokens. SetValue stores the parsed
// tokens verbatim; validation runs on Validate and Submit, never here, so a
// GetValue/SetValue round trip preserves every token.
func (s *Session) SetValue(text string) {
	s.doc.Dispatch(Transaction{Ops: []Op{ReplaceAll{Tokens: token.Parse(text)}}})
	s.notifyChange()
}

// Tokens returns the current token list.
func (s *Session) Tokens() []token.Token {
	return s.doc.Tokens()
}

// Snapshot returns the segment view of the input.
func (s *Session) Snapshot() token.Snapshot {
	tokens := s.doc.Tokens()
	segments := make([]token.Segment, 0, len(tokens))
	for i := range tokens {
		kind := token.SegmentFilter
		if tokens[i].Type == token.TypeFreeText {
			kind = token.SegmentFreeText
		}
		segments = append(segments, token.Segment{Kind: kind, Token: &tokens[i]})
	}
	return token.Snapshot{Segments: segments, Text: token.Serialize(tokens)}
}

// Fields returns the session's field set.
func (s *Session) Fields() *token.FieldSet { return s.fields }

// Suggestions exposes the suggestion orchestrator for the editing surface.
func (s *Session) Suggestions() *suggest.Orchestrator { return s.orch }

// Focus marks the input focused and notifies the host.
func (s *Session) Focus() {
	if s.focused {
		return
	}
	s.focused = true
	if s.cb.OnFocus != nil {
		s.cb.OnFocus()
	}
}

// Blur unfocuses the input, ends every in-progress edit, and flushes any held
// OnTokensChange notification.
func (s *Session) Blur() {
	if !s.focused {
		return
	}
	s.focused = false
	for id := range s.editing {
		delete(s.editing, id)
	}
	if s.cb.OnBlur != nil {
		s.cb.OnBlur()
	}
	s.notifyConfirmed()
}

// Focused reports whether the input has focus.
func (s *Session) Focused() bool { return s.focused }

// Clear empties the document.
func (s *Session) Clear() {
	s.doc.Dispatch(Transaction{Ops: []Op{ReplaceAll{}}})
	if s.cb.OnClear != nil {
		s.cb.OnClear()
	}
	s.notifyChange()
}

// Submit validates, applies the resulting actions, and hands the snapshot to
// the host. Invalid tokens are marked (or deleted) before OnSubmit sees them.
func (s *Session) Submit() {
	violations := s.Validate()
	if len(violations) > 0 {
		resolved := validate.ApplyActions(s.doc.Tokens(), violations)
		s.doc.Dispatch(Transaction{Ops: []Op{ReplaceAll{Tokens: resolved}}})
		s.notifyChange()
	}
	if s.cb.OnSubmit != nil {
		s.cb.OnSubmit(s.Snapshot())
	}
}

// Validate runs the configured rules over the current tokens. The editing set
// is forwarded so rules can suppress mid-edit noise.
func (s *Session) Validate() []validate.Violation {
	ctx := validate.Context{
		Tokens:  s.doc.Tokens(),
		Fields:  s.fields,
		Editing: s.editing,
	}
	return validate.Evaluate(ctx, s.rules)
}

// AddToken appends a token to the document.
func (s *Session) AddToken(t token.Token) {
	s.doc.Dispatch(Transaction{Ops: []Op{Insert{Index: len(s.doc.Tokens()), Token: t}}})
	s.notifyChange()
}

// UpdateToken replaces the token with the same ID. Stale IDs are silent no-ops.
func (s *Session) UpdateToken(t token.Token) {
	if s.doc.Dispatch(Transaction{Ops: []Op{Update{Token: t}}}) {
		s.notifyChange()
	}
}

// DeleteToken removes a token by ID. Stale IDs are silent no-ops.
func (s *Session) DeleteToken(id string) {
	delete(s.editing, id)
	if s.doc.Dispatch(Transaction{Ops: []Op{Delete{TokenID: id}}}) {
		s.notifyChange()
	}
}

// BeginEdit marks a token as being edited; OnTokensChange holds back changes
// that touch it until EndEdit.
func (s *Session) BeginEdit(tokenID string) {
	s.editing[tokenID] = true
}

// EndEdit settles an edit and flushes any held OnTokensChange notification.
func (s *Session) EndEdit(tokenID string) {
	delete(s.editing, tokenID)
	s.notifyConfirmed()
}

// Editing reports whether the token is currently being edited.
func (s *Session) Editing(tokenID string) bool { return s.editing[tokenID] }

// notifyChange fires OnChange, then OnTokensChange unless the change touches
// a token still being edited.
func (s *Session) notifyChange() {
	if s.cb.OnChange != nil {
		s.cb.OnChange(s.Snapshot())
	}
	s.notifyConfirmed()
}

func (s *Session) notifyConfirmed() {
	cur := s.doc.Tokens()
	if tokenListsEqual(cur, s.lastConfirmed) {
		return
	}
	if s.changeTouchesEditing(cur) {
		return
	}
	s.lastConfirmed = cur
	if s.cb.OnTokensChange != nil {
		s.cb.OnTokensChange(append([]token.Token{}, cur...))
	}
}

// changeTouchesEditing reports whether any token that differs from the last
// confirmed list is currently being edited.
func (s *Session) changeTouchesEditing(cur []token.Token) bool {
	if len(s.editing) == 0 {
		return false
	}
	prev := make(map[string]token.Token, len(s.lastConfirmed))
	for _, t := range s.lastConfirmed {
		prev[t.ID] = t
	}
	for _, t := range cur {
		if !s.editing[t.ID] {
			continue
		}
		p, known := prev[t.ID]
		if !known || !p.Equivalent(t) {
			return true
		}
	}
	return false
}

func tokenListsEqual(a, b []token.Token) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || !a[i].Equivalent(b[i]) {
			return false
		}
	}
	return true
}

// SuggestKindFor maps a field's type to the suggestion kind its value editor
// opens.
func SuggestKindFor(ft token.FieldType) suggest.Kind {
	switch ft {
	case token.FieldTypeDate:
		return suggest.KindDate
	case token.FieldTypeDateTime:
		return suggest.KindDateTime
	default:
		return suggest.KindValue
	}
}

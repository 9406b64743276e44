package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/queryline/internal/token"
	"github.com/oakwood-commons/queryline/internal/validate"
)

func testFields() []token.FieldDefinition {
	return []token.FieldDefinition{
		{Key: "status", Label: "Status", Type: token.FieldTypeEnum, Values: []string{"open", "closed", "blocked"}},
		{Key: "assignee", Label: "Assignee", Type: token.FieldTypeText},
		{Key: "due", Label: "Due date", Type: token.FieldTypeDate},
	}
}

func TestSetValueGetValueRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "single filter", input: "status:is:open"},
		{name: "filters and free text", input: `status:is:open urgent assignee:is-not:alex`},
		{name: "quoted value", input: `title:is:"hello world"`},
		{name: "value with colon", input: `updated:is:"2026-08-23T10:00:00"`},
		{name: "duplicates preserved", input: "status:is:open status:is:open"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(Config{Fields: testFields()})
			s.SetValue(tt.input)
			first := s.Tokens()

			s.SetValue(s.GetValue())
			second := s.Tokens()
			require.Len(t, second, len(first))
			for i := range first {
				assert.True(t, first[i].Equivalent(second[i]),
					"token %d changed: %v vs %v", i, first[i], second[i])
			}
		})
	}
}

func TestCallbackOrderingChangeBeforeTokensChange(t *testing.T) {
	var order []string
	s := New(Config{Fields: testFields()}, WithCallbacks(Callbacks{
		OnChange:       func(token.Snapshot) { order = append(order, "change") },
		OnTokensChange: func([]token.Token) { order = append(order, "tokens") },
	}))

	s.SetValue("status:is:open")
	assert.Equal(t, []string{"change", "tokens"}, order)
}

func TestTokensChangeHeldWhileEditing(t *testing.T) {
	var confirmed [][]token.Token
	s := New(Config{Fields: testFields()}, WithCallbacks(Callbacks{
		OnTokensChange: func(ts []token.Token) { confirmed = append(confirmed, ts) },
	}))

	tok := token.NewFilter("status", "is", "op")
	s.BeginEdit(tok.ID)
	s.AddToken(tok)
	assert.Empty(t, confirmed, "mid-edit changes stay private")

	tok.Value = "open"
	s.UpdateToken(tok)
	assert.Empty(t, confirmed)

	s.EndEdit(tok.ID)
	require.Len(t, confirmed, 1)
	assert.Equal(t, "open", confirmed[0][0].Value, "only the settled state surfaces")
}

func TestBlurFlushesHeldNotification(t *testing.T) {
	notified := 0
	s := New(Config{Fields: testFields()}, WithCallbacks(Callbacks{
		OnTokensChange: func([]token.Token) { notified++ },
	}))
	s.Focus()

	tok := token.NewFilter("status", "is", "open")
	s.BeginEdit(tok.ID)
	s.AddToken(tok)
	require.Zero(t, notified)

	s.Blur()
	assert.Equal(t, 1, notified)
	assert.False(t, s.Focused())
}

func TestFocusAndBlurAreIdempotent(t *testing.T) {
	focuses, blurs := 0, 0
	s := New(Config{}, WithCallbacks(Callbacks{
		OnFocus: func() { focuses++ },
		OnBlur:  func() { blurs++ },
	}))

	s.Focus()
	s.Focus()
	s.Blur()
	s.Blur()
	assert.Equal(t, 1, focuses)
	assert.Equal(t, 1, blurs)
}

func TestClearEmptiesAndNotifies(t *testing.T) {
	cleared := false
	s := New(Config{Fields: testFields()}, WithCallbacks(Callbacks{
		OnClear: func() { cleared = true },
	}))
	s.SetValue("status:is:open urgent")
	require.Len(t, s.Tokens(), 2)

	s.Clear()
	assert.True(t, cleared)
	assert.Empty(t, s.Tokens())
	assert.Empty(t, s.GetValue())
}

func TestSubmitAppliesValidationActions(t *testing.T) {
	var submitted *token.Snapshot
	s := New(Config{
		Fields: testFields(),
		Rules:  []validate.Rule{validate.KnownField(), validate.Unique(validate.MatchExact)},
	}, WithCallbacks(Callbacks{
		OnSubmit: func(snap token.Snapshot) { submitted = &snap },
	}))
	s.SetValue("status:is:open status:is:open bogus:is:x")

	s.Submit()
	require.NotNil(t, submitted)
	tokens := s.Tokens()
	require.Len(t, tokens, 2, "duplicate deleted")
	assert.False(t, tokens[0].Invalid)
	assert.True(t, tokens[1].Invalid, "unknown field marked, not deleted")
}

func TestStaleTokenOpsAreSilentNoOps(t *testing.T) {
	changes := 0
	s := New(Config{Fields: testFields()}, WithCallbacks(Callbacks{
		OnChange: func(token.Snapshot) { changes++ },
	}))
	s.SetValue("status:is:open")
	require.Equal(t, 1, changes)

	s.DeleteToken("tok-never-existed")
	s.UpdateToken(token.Token{ID: "tok-never-existed", Type: token.TypeFilter})
	assert.Equal(t, 1, changes, "stale ops must not fire callbacks")
}

func TestSnapshotSegmentsCarryStableIDs(t *testing.T) {
	s := New(Config{Fields: testFields()})
	s.SetValue(`status:is:open urgent`)

	snap := s.Snapshot()
	require.Len(t, snap.Segments, 2)
	assert.Equal(t, token.SegmentFilter, snap.Segments[0].Kind)
	assert.Equal(t, token.SegmentFreeText, snap.Segments[1].Kind)
	require.NotNil(t, snap.Segments[0].Token)
	assert.NotEmpty(t, snap.Segments[0].Token.ID)
	assert.Equal(t, "status:is:open urgent", snap.Text)
}

func TestSuggestKindForFieldTypes(t *testing.T) {
	assert.Equal(t, "date", string(SuggestKindFor(token.FieldTypeDate)))
	assert.Equal(t, "datetime", string(SuggestKindFor(token.FieldTypeDateTime)))
	assert.Equal(t, "value", string(SuggestKindFor(token.FieldTypeEnum)))
	assert.Equal(t, "value", string(SuggestKindFor(token.FieldTypeText)))
}

func TestMemoryDocumentTransactions(t *testing.T) {
	a := token.NewFilter("status", "is", "open")
	b := token.NewFreeText("urgent")
	doc := NewMemoryDocument(a)

	require.True(t, doc.Dispatch(Transaction{Ops: []Op{Insert{Index: 99, Token: b}}}),
		"out-of-range insert clamps to the end")
	require.Len(t, doc.Tokens(), 2)
	assert.Equal(t, b.ID, doc.Tokens()[1].ID)

	pos, ok := doc.Resolve(a.ID)
	require.True(t, ok)
	assert.Zero(t, pos)
	_, ok = doc.Resolve("gone")
	assert.False(t, ok)

	assert.False(t, doc.Dispatch(Transaction{Ops: []Op{Delete{TokenID: "gone"}}}))
	assert.True(t, doc.Dispatch(Transaction{Ops: []Op{Delete{TokenID: a.ID}}}))
	require.Len(t, doc.Tokens(), 1)
}

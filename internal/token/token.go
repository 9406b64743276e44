// Package token defines the shared data model for the query input: filter
// and free-text tokens, serialized segments, and field definitions.
package token

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Type discriminates the two token shapes stored in the document.
type Type string

const (
	// TypeFilter is a structured field:operator:value token.
	TypeFilter Type = "filter"
	// TypeFreeText is an unstructured search term treated as one token.
	TypeFreeText Type = "freetext"
)

// Token is one structured filter or free-text unit in the input.
// ID is stable for the lifetime of the token (persisted across undo/redo by
// the host document); it is not preserved across SetValue round trips.
type Token struct {
	ID       string
	Type     Type
	Field    string
	Operator string
	Value    string

	// Invalid and InvalidMessage are set by applying mark violations.
	Invalid        bool
	InvalidMessage string
}

// idCounter feeds NewID. Atomic so tests that build tokens from helper
// goroutines stay race-free; the engine itself allocates on one goroutine.
var idCounter atomic.Uint64

// NewID returns a process-unique token identifier.
func NewID() string {
	return fmt.Sprintf("tok-%d", idCounter.Add(1))
}

// NewFilter builds a filter token with a fresh ID.
func NewFilter(field, operator, value string) Token {
	return Token{ID: NewID(), Type: TypeFilter, Field: field, Operator: operator, Value: value}
}

// NewFreeText builds a free-text token with a fresh ID.
func NewFreeText(text string) Token {
	return Token{ID: NewID(), Type: TypeFreeText, Value: text}
}

// Key returns the deduplication key for the token: field+operator+value for
// filters, the raw text for free text.
func (t Token) Key() string {
	if t.Type == TypeFilter {
		return t.Field + ":" + t.Operator + ":" + t.Value
	}
	return t.Value
}

// Equivalent reports whether two tokens carry the same content, ignoring IDs
// and validity marks.
func (t Token) Equivalent(o Token) bool {
	return t.Type == o.Type && t.Field == o.Field && t.Operator == o.Operator && t.Value == o.Value
}

// String serializes the token to its text form.
func (t Token) String() string {
	if t.Type == TypeFreeText {
		return quoteIfNeeded(t.Value)
	}
	return t.Field + ":" + t.Operator + ":" + quoteIfNeeded(t.Value)
}

// SegmentKind discriminates snapshot segments.
type SegmentKind string

const (
	SegmentFilter   SegmentKind = "filter"
	SegmentFreeText SegmentKind = "freetext"
	// SegmentPlain is loose text not stored as a discrete node; it carries no ID.
	SegmentPlain SegmentKind = "plain"
)

// Segment is one entry in a Snapshot.
type Segment struct {
	Kind  SegmentKind
	Token *Token // set for filter and freetext segments
	Text  string // set for plain segments
}

// Snapshot is the externally visible view of the input: ordered segments plus
// the full serialized text.
type Snapshot struct {
	Segments []Segment
	Text     string
}

// Serialize renders a token list to its canonical single-line text form.
func Serialize(tokens []Token) string {
	parts := make([]string, 0, len(tokens))
	for _, t := range tokens {
		parts = append(parts, t.String())
	}
	return strings.Join(parts, " ")
}

// Parse splits text into tokens. Chunks of the form field:operator:value
// (two or more colons, non-empty field and operator) become filter tokens;
// everything else becomes free text. Values may be double-quoted to include
// spaces or colons. Parse never fails; malformed chunks degrade to free text.
func Parse(text string) []Token {
	var tokens []Token
	for _, chunk := range splitChunks(text) {
		if field, op, value, ok := splitFilter(chunk); ok {
			tokens = append(tokens, NewFilter(field, op, value))
			continue
		}
		tokens = append(tokens, NewFreeText(unquote(chunk)))
	}
	return tokens
}

// splitChunks splits on whitespace, keeping double-quoted runs intact.
func splitChunks(text string) []string {
	var chunks []string
	var b strings.Builder
	inQuote := false
	flush := func() {
		if b.Len() > 0 {
			chunks = append(chunks, b.String())
			b.Reset()
		}
	}
	for _, r := range text {
		switch {
		case r == '"':
			inQuote = !inQuote
			b.WriteRune(r)
		case !inQuote && (r == ' ' || r == '\t' || r == '\n'):
			flush()
		default:
			b.WriteRune(r)
		}
	}
	flush()
	return chunks
}

// splitFilter parses field:operator:value. The value keeps any further
// colons verbatim (timestamps, URLs).
func splitFilter(chunk string) (field, op, value string, ok bool) {
	if strings.HasPrefix(chunk, "\"") {
		return "", "", "", false
	}
	first := strings.IndexByte(chunk, ':')
	if first <= 0 {
		return "", "", "", false
	}
	rest := chunk[first+1:]
	second := strings.IndexByte(rest, ':')
	if second <= 0 {
		return "", "", "", false
	}
	return chunk[:first], rest[:second], unquote(rest[second+1:]), true
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsAny(s, " \t:\"") {
		return "\"" + strings.ReplaceAll(s, "\"", "\\\"") + "\""
	}
	return s
}

func unquote(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, "\"") && strings.HasSuffix(s, "\"") {
		s = s[1 : len(s)-1]
	}
	return strings.ReplaceAll(s, "\\\"", "\"")
}

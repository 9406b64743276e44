package session

import (
	"github.com/oakwood-commons/queryline/internal/token"
)

// Document is the host surface the session drives. Implementations wrap
// whatever the embedding editor stores tokens in; the session never assumes a
// position it resolved earlier is still valid.
type Document interface {
	// Tokens returns the current token list in document order.
	Tokens() []token.Token
	// Resolve returns the current position of a token. ok is false when the
	// token no longer exists; callers must treat that as a silent no-op.
	Resolve(tokenID string) (pos int, ok bool)
	// Dispatch applies a transaction atomically. It reports whether the
	// document changed; ops naming stale tokens are skipped, not errors.
	Dispatch(tx Transaction) bool
}

// Transaction groups ops applied in order as one document change.
type Transaction struct {
	Ops []Op
}

// Op is one document mutation.
type Op interface {
	isOp()
}

// ReplaceAll swaps the entire token list.
type ReplaceAll struct {
	Tokens []token.Token
}

// Insert places a token at an index; out-of-range indexes clamp to the ends.
type Insert struct {
	Index int
	Token token.Token
}

// Update replaces the token with the same ID.
type Update struct {
	Token token.Token
}

// Delete removes a token by ID.
type Delete struct {
	TokenID string
}

func (ReplaceAll) isOp() {}
func (Insert) isOp()     {}
func (Update) isOp()     {}
func (Delete) isOp()     {}

// MemoryDocument is the default in-memory Document. It is the reference
// implementation of the transaction semantics and backs the demo UI.
type MemoryDocument struct {
	tokens []token.Token
}

// NewMemoryDocument builds a document seeded with tokens.
func NewMemoryDocument(tokens ...token.Token) *MemoryDocument {
	return &MemoryDocument{tokens: append([]token.Token{}, tokens...)}
}

// Tokens returns a copy of the current token list.
func (d *MemoryDocument) Tokens() []token.Token {
	return append([]token.Token{}, d.tokens...)
}

// Resolve returns the index of the token with the given ID.
func (d *MemoryDocument) Resolve(tokenID string) (int, bool) {
	for i, t := range d.tokens {
		if t.ID == tokenID {
			return i, true
		}
	}
	return 0, false
}

// Dispatch applies the transaction's ops in order. Ops that reference a token
// no longer present are skipped.
func (d *MemoryDocument) Dispatch(tx Transaction) bool {
	changed := false
	for _, op := range tx.Ops {
		switch o := op.(type) {
		case ReplaceAll:
			d.tokens = append([]token.Token{}, o.Tokens...)
			changed = true
		case Insert:
			idx := o.Index
			if idx < 0 {
				idx = 0
			}
			if idx > len(d.tokens) {
				idx = len(d.tokens)
			}
			d.tokens = append(d.tokens[:idx], append([]token.Token{o.Token}, d.tokens[idx:]...)...)
			changed = true
		case Update:
			if i, ok := d.Resolve(o.Token.ID); ok {
				d.tokens[i] = o.Token
				changed = true
			}
		case Delete:
			if i, ok := d.Resolve(o.TokenID); ok {
				d.tokens = append(d.tokens[:i], d.tokens[i+1:]...)
				changed = true
			}
		}
	}
	return changed
}

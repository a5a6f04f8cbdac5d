// Package fqerrors defines the error kinds used across FlowQuery's
// pipeline. All failures surface as one of these kinds so callers can
// type-switch on cause without string matching.
package fqerrors

import (
	"fmt"

	"gopkg.in/src-d/go-errors.v1"

	"github.com/flowquery-go/flowquery/token"
)

var (
	// Lexical reports an unterminated literal or unknown character.
	Lexical = errors.NewKind("lexical error: %s")
	// Parse reports unexpected tokens, arity mismatches and the other
	// structural rules enforced in the parser.
	Parse = errors.NewKind("parse error: %s")
	// Binding reports a reference to an identifier with no introducing
	// operation.
	Binding = errors.NewKind("undefined identifier: %s")
	// Evaluation reports a type error, division by zero, or a missing
	// property on a relationship constraint match.
	Evaluation = errors.NewKind("evaluation error: %s")
	// Circular reports a fixed-length traversal that would revisit a
	// node already on the match stack.
	Circular = errors.NewKind("circular relationship detected")
	// External reports a loader failure, surfaced verbatim.
	External = errors.NewKind("%s")
)

// Positioned wraps an underlying *errors.Error with a token position so
// callers can report "line %d, column %d: %s" without every call site
// re-deriving it.
type Positioned struct {
	Err error
	Pos token.Pos
}

func (p *Positioned) Error() string {
	if !p.Pos.IsValid() {
		return p.Err.Error()
	}
	return fmt.Sprintf("line %d, column %d: %s", p.Pos.Line, p.Pos.Column, p.Err.Error())
}

func (p *Positioned) Unwrap() error { return p.Err }

// At attaches a position to err, which should be the result of one of
// the Kind.New(...) calls above. Positions are best-effort per spec §7
// ("where possible"); At(tok, err) is a no-op wrapper when pos is zero.
func At(pos token.Pos, err error) error {
	if err == nil {
		return nil
	}
	return &Positioned{Err: err, Pos: pos}
}

// Is reports whether err (or anything it wraps) was created by kind.
func Is(kind *errors.Kind, err error) bool {
	return kind.Is(err)
}

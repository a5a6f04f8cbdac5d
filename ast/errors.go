package ast

import (
	"gopkg.in/src-d/go-errors.v1"

	"github.com/flowquery-go/flowquery/internal/fqerrors"
	"github.com/flowquery-go/flowquery/token"
)

type errKind int

const (
	bindingKind errKind = iota
	evaluationKind
)

func kindOf(k errKind) *errors.Kind {
	switch k {
	case bindingKind:
		return fqerrors.Binding
	default:
		return fqerrors.Evaluation
	}
}

func posErr(pos token.Pos, k errKind, msg string) error {
	return fqerrors.At(pos, kindOf(k).New(msg))
}

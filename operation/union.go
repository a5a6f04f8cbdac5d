package operation

import (
	"sort"

	"github.com/flowquery-go/flowquery/internal/fqerrors"
	"github.com/flowquery-go/flowquery/value"
)

// Union drives a left and right sub-pipeline to completion and merges
// their result rows, deduplicating (spec §4.4.3), grounded on union.py.
// All is true for UNION ALL, which keeps duplicates (union_all.py).
type Union struct {
	Base
	Left, Right Operation
	All         bool

	results []value.Record
}

func NewUnion(left, right Operation, all bool) *Union {
	return &Union{Left: left, Right: right, All: all}
}

// NewUnionAll is NewUnion with All forced true (union_all.py's
// _combine override, expressed here as a constructor flag instead of
// a subclass since Go favours composition over inheritance).
func NewUnionAll(left, right Operation) *Union {
	return NewUnion(left, right, true)
}

func lastInChain(o Operation) Operation {
	for o.Next() != nil {
		o = o.Next()
	}
	return o
}

func (u *Union) Initialize(ctx *Context) error {
	u.results = nil
	return nil
}

func (u *Union) Run(ctx *Context) error {
	if err := InitializeChain(ctx, u.Left); err != nil {
		return err
	}
	if err := u.Left.Run(ctx); err != nil {
		return err
	}
	if err := FinishChain(ctx, u.Left); err != nil {
		return err
	}
	leftResults := lastInChain(u.Left).Results()

	if err := InitializeChain(ctx, u.Right); err != nil {
		return err
	}
	if err := u.Right.Run(ctx); err != nil {
		return err
	}
	if err := FinishChain(ctx, u.Right); err != nil {
		return err
	}
	rightResults := lastInChain(u.Right).Results()

	if len(leftResults) > 0 && len(rightResults) > 0 {
		if !sameColumns(leftResults[0], rightResults[0]) {
			return fqerrors.Evaluation.New("All sub queries in a UNION must have the same return column names")
		}
	}

	if u.All {
		u.results = append(append([]value.Record{}, leftResults...), rightResults...)
	} else {
		u.results = dedup(leftResults, rightResults)
	}
	return nil
}

func sameColumns(a, b value.Record) bool {
	ak, bk := append([]string{}, a.Keys()...), append([]string{}, b.Keys()...)
	sort.Strings(ak)
	sort.Strings(bk)
	if len(ak) != len(bk) {
		return false
	}
	for i := range ak {
		if ak[i] != bk[i] {
			return false
		}
	}
	return true
}

func dedup(left, right []value.Record) []value.Record {
	combined := append([]value.Record{}, left...)
	seen := make(map[string]bool, len(combined))
	for _, r := range combined {
		seen[value.CanonicalJSON(value.NewMap(r))] = true
	}
	for _, r := range right {
		key := value.CanonicalJSON(value.NewMap(r))
		if seen[key] {
			continue
		}
		seen[key] = true
		combined = append(combined, r)
	}
	return combined
}

func (u *Union) Finish(ctx *Context) error {
	if u.Next() == nil {
		return nil
	}
	return u.Next().Finish(ctx)
}

func (u *Union) Results() []value.Record { return u.results }

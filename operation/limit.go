package operation

import "github.com/flowquery-go/flowquery/value"

// Limit bounds how many rows reach Next() (spec §4.4.2), grounded on
// limit.py. A LIMIT attached to an ordered or aggregating RETURN is
// applied by Return as a post-sort slice in its own Results() instead of
// through Increment/IsLimitReached -- see return.go.
type Limit struct {
	Base
	count int
	Value int
}

func NewLimit(n int) *Limit { return &Limit{Value: n} }

func (l *Limit) IsLimitReached() bool { return l.count >= l.Value }

func (l *Limit) Increment() { l.count++ }

func (l *Limit) Reset() { l.count = 0 }

func (l *Limit) Initialize(ctx *Context) error { l.count = 0; return nil }

func (l *Limit) Run(ctx *Context) error {
	if l.count >= l.Value {
		return nil
	}
	l.count++
	return runNext(ctx, l)
}

func (l *Limit) Finish(ctx *Context) error { return nil }
func (l *Limit) Results() []value.Record   { return nil }

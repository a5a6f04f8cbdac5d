// Package functions implements FlowQuery's built-in function registry:
// the scalar dispatch table, the aggregate/predicate reducer state
// machine, and the concrete functions themselves (spec §4.2's CALL/
// function contract; out-of-scope per spec.md is plugin *registration*,
// not the built-ins named throughout the testable-property examples).
//
// Grounded on original_source/flowquery-py/src/parsing/functions/*.py:
// one file per function there, one dispatch case per function here.
// Temporal/coercion helpers lean on github.com/spf13/cast for the loose
// value coercions Cypher-style toFloat/toInteger expect.
package functions

import (
	"fmt"
	"sync"

	"github.com/flowquery-go/flowquery/ast"
	"github.com/flowquery-go/flowquery/internal/fqerrors"
	"github.com/flowquery-go/flowquery/value"
)

type scalarFunc func(args []value.Value) (value.Value, error)

// aggregateSpec is one aggregate/predicate-reducer's state machine,
// grounded on aggregate_function.py + reducer_element.py: a zero
// element, a step (reduce.py equivalent), and a finish step producing
// the group's final value.
type aggregateSpec struct {
	zero   func() interface{}
	step   func(acc interface{}, arg value.Value) (interface{}, error)
	finish func(acc interface{}) value.Value
}

// groupState is the live accumulator for one (groupKey, funcName) pair,
// plus the distinct-dedup set count()/collect() need when DISTINCT is
// set (spec §4.3's DISTINCT aggregate modifier).
type groupState struct {
	acc  interface{}
	seen map[string]bool
}

// Registry implements ast.FuncResolver. One Registry is shared by every
// query evaluated against a session (spec §9's explicit-session note),
// but group state is scoped by groupKey so concurrent RETURN/WITH
// aggregations in the same query never collide.
type Registry struct {
	mu         sync.Mutex
	scalars    map[string]scalarFunc
	aggregates map[string]aggregateSpec
	groups     map[string]map[string]*groupState
}

func NewRegistry() *Registry {
	r := &Registry{
		scalars:    make(map[string]scalarFunc),
		aggregates: make(map[string]aggregateSpec),
		groups:     make(map[string]map[string]*groupState),
	}
	registerScalars(r)
	registerAggregates(r)
	return r
}

func (r *Registry) registerScalar(name string, fn scalarFunc) {
	r.scalars[name] = fn
}

func (r *Registry) registerAggregate(name string, spec aggregateSpec) {
	r.aggregates[name] = spec
}

// Call dispatches a function invocation appearing directly in an
// expression tree. A plain name dispatches to its scalar implementation;
// an aggregate name (e.g. `RETURN sum(n)`, as opposed to the inline
// predicate-reducer form `sum(n IN arr | n)`) instead reads back the
// current group's already-accumulated value -- the owning RETURN/WITH
// operation is responsible for having fed every row's argument into
// Reduce(ctx.GroupKey, ...) before this is evaluated during group
// emission (spec §4.4.1).
func (r *Registry) Call(ctx *ast.EvalContext, name string, args []value.Value, _ bool) (value.Value, error) {
	if _, isAgg := r.aggregates[name]; isAgg {
		return r.ReduceResult(ctx.GroupKey, name)
	}
	fn, ok := r.scalars[name]
	if !ok {
		return value.Value{}, fqerrors.Evaluation.New(fmt.Sprintf("unknown function %q", name))
	}
	return fn(args)
}

// Reduce feeds one row's argument(s) into the named aggregate's
// accumulator for groupKey, creating the group and the DISTINCT seen-set
// on first use (spec §4.4.1 grouped aggregation).
func (r *Registry) Reduce(_ *ast.EvalContext, groupKey, name string, args []value.Value, distinct bool) error {
	spec, ok := r.aggregates[name]
	if !ok {
		return fqerrors.Evaluation.New(fmt.Sprintf("unknown aggregate function %q", name))
	}
	if len(args) != 1 {
		return fqerrors.Evaluation.New(fmt.Sprintf("%s() takes exactly one argument", name))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	byName, ok := r.groups[groupKey]
	if !ok {
		byName = make(map[string]*groupState)
		r.groups[groupKey] = byName
	}
	st, ok := byName[name]
	if !ok {
		st = &groupState{acc: spec.zero()}
		if distinct {
			st.seen = make(map[string]bool)
		}
		byName[name] = st
	}

	arg := args[0]
	if distinct {
		key := value.CanonicalJSON(arg)
		if st.seen[key] {
			return nil
		}
		st.seen[key] = true
	}

	acc, err := spec.step(st.acc, arg)
	if err != nil {
		return err
	}
	st.acc = acc
	return nil
}

// ReduceResult returns the named aggregate's current value for
// groupKey. Called once per group when the owning RETURN/WITH finishes
// emitting that group's row (spec §4.4.1).
func (r *Registry) ReduceResult(groupKey, name string) (value.Value, error) {
	spec, ok := r.aggregates[name]
	if !ok {
		return value.Value{}, fqerrors.Evaluation.New(fmt.Sprintf("unknown aggregate function %q", name))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	byName := r.groups[groupKey]
	var acc interface{}
	if byName != nil {
		if st, ok := byName[name]; ok {
			acc = st.acc
		}
	}
	if acc == nil {
		acc = spec.zero()
	}
	return spec.finish(acc), nil
}

// ResetGroup discards groupKey's accumulator state for every aggregate
// function, used once a group's row has been emitted (or, for a
// scratch/inline reduction, immediately after its result is read).
func (r *Registry) ResetGroup(groupKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.groups, groupKey)
}

func (r *Registry) IsAggregate(name string) bool {
	_, ok := r.aggregates[name]
	return ok
}

// Arity reports a function's expected argument count where fixed;
// ok=false means the count is not fixed (coalesce, or join/range with
// their optional arguments, which check their own argument counts) or
// the name is unknown to this registry. The parser skips its arity
// check for ok=false; an unknown name fails only when Call runs.
func (r *Registry) Arity(name string) (int, bool) {
	n, ok := fixedArity[name]
	return n, ok
}

var fixedArity = map[string]int{
	"head": 1, "tail": 1, "last": 1, "keys": 1, "properties": 1,
	"id": 1, "elementid": 1, "nodes": 1, "relationships": 1,
	"size": 1, "round": 1, "trim": 1, "tolower": 1, "tostring": 1,
	"tofloat": 1, "tointeger": 1, "tojson": 1, "stringify": 1, "type": 1,
	"split": 2, "replace": 3, "stringdistance": 2,
	"rand": 0, "timestamp": 0, "duration": 1,
	"sum": 1, "avg": 1, "min": 1, "max": 1, "count": 1, "collect": 1,
}

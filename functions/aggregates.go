package functions

import "github.com/flowquery-go/flowquery/value"

// registerAggregates wires the grouped reducers (spec §4.4.1). Each
// spec's zero/step/finish triple mirrors one *_.py aggregate's
// ReducerElement: a mutable accumulator fed one value per contributing
// row, read back once per group.
func registerAggregates(r *Registry) {
	r.registerAggregate("count", aggregateSpec{
		zero: func() interface{} { return int64(0) },
		step: func(acc interface{}, _ value.Value) (interface{}, error) {
			return acc.(int64) + 1, nil
		},
		finish: func(acc interface{}) value.Value { return value.NewInt(acc.(int64)) },
	})

	r.registerAggregate("sum", aggregateSpec{
		zero: func() interface{} { return sumAcc{} },
		step: func(acc interface{}, v value.Value) (interface{}, error) {
			a := acc.(sumAcc)
			if !v.IsNumeric() {
				return a, argErr("sum", "expects numeric arguments")
			}
			if v.Kind == value.Float {
				a.isFloat = true
			}
			a.i += intOf(v)
			a.f += v.AsFloat()
			return a, nil
		},
		finish: func(acc interface{}) value.Value {
			a := acc.(sumAcc)
			if a.isFloat {
				return value.NewFloat(a.f)
			}
			return value.NewInt(a.i)
		},
	})

	r.registerAggregate("avg", aggregateSpec{
		zero: func() interface{} { return avgAcc{} },
		step: func(acc interface{}, v value.Value) (interface{}, error) {
			a := acc.(avgAcc)
			if !v.IsNumeric() {
				return a, argErr("avg", "expects numeric arguments")
			}
			a.sum += v.AsFloat()
			a.count++
			return a, nil
		},
		finish: func(acc interface{}) value.Value {
			a := acc.(avgAcc)
			if a.count == 0 {
				return value.NewNull()
			}
			return value.NewFloat(a.sum / float64(a.count))
		},
	})

	r.registerAggregate("min", aggregateSpec{
		zero: func() interface{} { return (*value.Value)(nil) },
		step: func(acc interface{}, v value.Value) (interface{}, error) {
			cur := acc.(*value.Value)
			if cur == nil || value.Compare(v, *cur) < 0 {
				vv := v
				return &vv, nil
			}
			return cur, nil
		},
		finish: func(acc interface{}) value.Value {
			cur := acc.(*value.Value)
			if cur == nil {
				return value.NewNull()
			}
			return *cur
		},
	})

	r.registerAggregate("max", aggregateSpec{
		zero: func() interface{} { return (*value.Value)(nil) },
		step: func(acc interface{}, v value.Value) (interface{}, error) {
			cur := acc.(*value.Value)
			if cur == nil || value.Compare(v, *cur) > 0 {
				vv := v
				return &vv, nil
			}
			return cur, nil
		},
		finish: func(acc interface{}) value.Value {
			cur := acc.(*value.Value)
			if cur == nil {
				return value.NewNull()
			}
			return *cur
		},
	})

	r.registerAggregate("collect", aggregateSpec{
		zero: func() interface{} { return []value.Value(nil) },
		step: func(acc interface{}, v value.Value) (interface{}, error) {
			return append(acc.([]value.Value), v), nil
		},
		finish: func(acc interface{}) value.Value {
			return value.NewList(acc.([]value.Value))
		},
	})
}

type sumAcc struct {
	i       int64
	f       float64
	isFloat bool
}

type avgAcc struct {
	sum   float64
	count int64
}

func intOf(v value.Value) int64 {
	if v.Kind == value.Int {
		return v.Int()
	}
	return 0
}

// Package value implements FlowQuery's tagged dynamic value: the sum
// type spec §9 Design Notes calls for (null/bool/int/float/string/list/
// map/node-record/rel-record), plus the arithmetic and comparison
// coercion rules of spec §4.3.
package value

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/flowquery-go/flowquery/internal/fqerrors"
)

// Kind discriminates the tagged union.
type Kind int

const (
	Null Kind = iota
	Bool
	Int
	Float
	String
	List
	Map
	// Path is a supplemented kind (SPEC_FULL.md §12): an ordered list of
	// alternating node/relationship record maps produced by `p = (...)`
	// path capture. It is represented identically to List on the wire;
	// the tag exists only so producers can distinguish it internally.
	Path
)

// Value is FlowQuery's dynamically typed runtime value. The zero value
// is Null.
type Value struct {
	Kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	list []Value
	m    *OrderedMap
}

func NewNull() Value           { return Value{Kind: Null} }
func NewBool(b bool) Value     { return Value{Kind: Bool, b: b} }
func NewInt(i int64) Value     { return Value{Kind: Int, i: i} }
func NewFloat(f float64) Value { return Value{Kind: Float, f: f} }
func NewString(s string) Value { return Value{Kind: String, s: s} }
func NewList(items []Value) Value { return Value{Kind: List, list: items} }
func NewPath(items []Value) Value { return Value{Kind: Path, list: items} }
func NewMap(m *OrderedMap) Value   { return Value{Kind: Map, m: m} }

func (v Value) IsNull() bool { return v.Kind == Null }

func (v Value) Bool() bool          { return v.b }
func (v Value) Int() int64          { return v.i }
func (v Value) Float() float64      { return v.f }
func (v Value) Str() string         { return v.s }
func (v Value) List() []Value       { return v.list }
func (v Value) Map() *OrderedMap    { return v.m }

// Truthy implements FlowQuery's WHERE-clause truth test: null and false
// are falsy, everything else (including 0 and "") is truthy -- matching
// Cypher's three-valued-ish boolean semantics rather than C-style
// zero-is-false.
func (v Value) Truthy() bool {
	switch v.Kind {
	case Null:
		return false
	case Bool:
		return v.b
	default:
		return true
	}
}

func (v Value) IsNumeric() bool { return v.Kind == Int || v.Kind == Float }

func (v Value) AsFloat() float64 {
	if v.Kind == Int {
		return float64(v.i)
	}
	return v.f
}

// OrderedMap is an insertion-ordered string-keyed map, used for node/
// relationship property bags and projected records so that keys(),
// UNION column comparison, and aggregate group emission are
// deterministic (spec §9).
type OrderedMap struct {
	keys []string
	idx  map[string]int
	vals []Value
}

func NewOrderedMap() *OrderedMap {
	return &OrderedMap{idx: make(map[string]int)}
}

func (m *OrderedMap) Set(key string, v Value) {
	if i, ok := m.idx[key]; ok {
		m.vals[i] = v
		return
	}
	m.idx[key] = len(m.keys)
	m.keys = append(m.keys, key)
	m.vals = append(m.vals, v)
}

func (m *OrderedMap) Get(key string) (Value, bool) {
	if i, ok := m.idx[key]; ok {
		return m.vals[i], true
	}
	return Value{}, false
}

func (m *OrderedMap) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

func (m *OrderedMap) Len() int { return len(m.keys) }

func (m *OrderedMap) Clone() *OrderedMap {
	c := &OrderedMap{
		keys: append([]string(nil), m.keys...),
		vals: append([]Value(nil), m.vals...),
		idx:  make(map[string]int, len(m.idx)),
	}
	for k, v := range m.idx {
		c.idx[k] = v
	}
	return c
}

// Arithmetic, per spec §4.3: `+` promotes number+number -> number,
// string+string -> concat, list+list -> concat; string+other or
// other+string is an evaluation error. `- * / %` and `^` are numeric
// only.

func Add(a, b Value) (Value, error) {
	switch {
	case a.IsNumeric() && b.IsNumeric():
		return numericOp(a, b, func(x, y int64) int64 { return x + y }, func(x, y float64) float64 { return x + y })
	case a.Kind == String && b.Kind == String:
		return NewString(a.s + b.s), nil
	case a.Kind == List && b.Kind == List:
		out := make([]Value, 0, len(a.list)+len(b.list))
		out = append(out, a.list...)
		out = append(out, b.list...)
		return NewList(out), nil
	default:
		return Value{}, fqerrors.Evaluation.New(fmt.Sprintf("cannot add %s and %s", a.Kind, b.Kind))
	}
}

func Sub(a, b Value) (Value, error) { return arith(a, b, "subtract", func(x, y int64) int64 { return x - y }, func(x, y float64) float64 { return x - y }) }
func Mul(a, b Value) (Value, error) { return arith(a, b, "multiply", func(x, y int64) int64 { return x * y }, func(x, y float64) float64 { return x * y }) }

func Div(a, b Value) (Value, error) {
	if !a.IsNumeric() || !b.IsNumeric() {
		return Value{}, fqerrors.Evaluation.New(fmt.Sprintf("cannot divide %s by %s", a.Kind, b.Kind))
	}
	if b.AsFloat() == 0 {
		return Value{}, fqerrors.Evaluation.New("division by zero")
	}
	if a.Kind == Int && b.Kind == Int && a.i%b.i == 0 {
		return NewInt(a.i / b.i), nil
	}
	return NewFloat(a.AsFloat() / b.AsFloat()), nil
}

func Mod(a, b Value) (Value, error) {
	if a.Kind != Int || b.Kind != Int {
		return Value{}, fqerrors.Evaluation.New("modulo requires integer operands")
	}
	if b.i == 0 {
		return Value{}, fqerrors.Evaluation.New("division by zero")
	}
	return NewInt(a.i % b.i), nil
}

func Pow(a, b Value) (Value, error) {
	if !a.IsNumeric() || !b.IsNumeric() {
		return Value{}, fqerrors.Evaluation.New(fmt.Sprintf("cannot exponentiate %s by %s", a.Kind, b.Kind))
	}
	result := 1.0
	base := a.AsFloat()
	for i := 0; i < int(b.AsFloat()); i++ {
		result *= base
	}
	if a.Kind == Int && b.Kind == Int && b.i >= 0 {
		return NewInt(int64(result)), nil
	}
	return NewFloat(result), nil
}

func Neg(a Value) (Value, error) {
	switch a.Kind {
	case Int:
		return NewInt(-a.i), nil
	case Float:
		return NewFloat(-a.f), nil
	default:
		return Value{}, fqerrors.Evaluation.New(fmt.Sprintf("cannot negate %s", a.Kind))
	}
}

func arith(a, b Value, verb string, fi func(int64, int64) int64, ff func(float64, float64) float64) (Value, error) {
	if !a.IsNumeric() || !b.IsNumeric() {
		return Value{}, fqerrors.Evaluation.New(fmt.Sprintf("cannot %s %s and %s", verb, a.Kind, b.Kind))
	}
	return numericOp(a, b, fi, ff)
}

func numericOp(a, b Value, fi func(int64, int64) int64, ff func(float64, float64) float64) (Value, error) {
	if a.Kind == Int && b.Kind == Int {
		return NewInt(fi(a.i, b.i)), nil
	}
	return NewFloat(ff(a.AsFloat(), b.AsFloat())), nil
}

// Compare implements spec §4.3's ordering: null < non-null, numbers
// compare numerically, strings lexically, booleans false < true; lists
// and maps compare by structural hash as a last resort (only equality
// is well-defined for them, not ordering, but ORDER BY must still be
// total, so ties are broken by their canonical JSON form).
func Compare(a, b Value) int {
	if a.IsNull() && b.IsNull() {
		return 0
	}
	if a.IsNull() {
		return -1
	}
	if b.IsNull() {
		return 1
	}
	if a.IsNumeric() && b.IsNumeric() {
		af, bf := a.AsFloat(), b.AsFloat()
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	if a.Kind == String && b.Kind == String {
		return strings.Compare(a.s, b.s)
	}
	if a.Kind == Bool && b.Kind == Bool {
		if a.b == b.b {
			return 0
		}
		if !a.b {
			return -1
		}
		return 1
	}
	return strings.Compare(CanonicalJSON(a), CanonicalJSON(b))
}

// Equal is structural (deep) equality, used by IN and `=`.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		if a.IsNumeric() && b.IsNumeric() {
			return a.AsFloat() == b.AsFloat()
		}
		return false
	}
	switch a.Kind {
	case Null:
		return true
	case Bool:
		return a.b == b.b
	case Int:
		return a.i == b.i
	case Float:
		return a.f == b.f
	case String:
		return a.s == b.s
	case List, Path:
		if len(a.list) != len(b.list) {
			return false
		}
		for i := range a.list {
			if !Equal(a.list[i], b.list[i]) {
				return false
			}
		}
		return true
	case Map:
		if a.m.Len() != b.m.Len() {
			return false
		}
		for _, k := range a.m.Keys() {
			av, _ := a.m.Get(k)
			bv, ok := b.m.Get(k)
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	}
	return false
}

// ToString renders v the way `toString`/f-strings/CONCAT need: no
// 0/1 boolean normalisation here (that happens only at the record
// boundary, spec §9 open question 3).
func ToString(v Value) string {
	switch v.Kind {
	case Null:
		return ""
	case Bool:
		if v.b {
			return "true"
		}
		return "false"
	case Int:
		return strconv.FormatInt(v.i, 10)
	case Float:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case String:
		return v.s
	default:
		return CanonicalJSON(v)
	}
}

// CanonicalJSON renders v as JSON with map keys sorted, used for
// UNION's structural-hash row deduplication (spec §4.4.3).
func CanonicalJSON(v Value) string {
	b, _ := json.Marshal(toJSONable(v))
	return string(b)
}

func toJSONable(v Value) interface{} {
	switch v.Kind {
	case Null:
		return nil
	case Bool:
		return v.b
	case Int:
		return v.i
	case Float:
		return v.f
	case String:
		return v.s
	case List, Path:
		out := make([]interface{}, len(v.list))
		for i, e := range v.list {
			out[i] = toJSONable(e)
		}
		return out
	case Map:
		out := make(map[string]interface{}, v.m.Len())
		for _, k := range v.m.Keys() {
			mv, _ := v.m.Get(k)
			out[k] = toJSONable(mv)
		}
		return sortedMap(out)
	}
	return nil
}

// sortedMap exists purely so json.Marshal's natural key-sort (Go maps
// marshal with sorted keys already) is explicit in intent here, since
// UNION dedup depends on this being stable.
func sortedMap(m map[string]interface{}) map[string]interface{} {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return m
}

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "boolean"
	case Int:
		return "integer"
	case Float:
		return "float"
	case String:
		return "string"
	case List:
		return "list"
	case Map:
		return "map"
	case Path:
		return "path"
	}
	return "unknown"
}

// Record is an ordered column-name -> scalar mapping, the unit spec §6
// says Runner.results is a sequence of.
type Record = *OrderedMap

// ToRecord normalises v for the record boundary: booleans become 0/1
// scalars (spec §9 open question 3), everything else passes through.
func ToRecord(v Value) interface{} {
	switch v.Kind {
	case Bool:
		if v.b {
			return 1
		}
		return 0
	case Null:
		return nil
	case Int:
		return v.i
	case Float:
		return v.f
	case String:
		return v.s
	case List, Path:
		out := make([]interface{}, len(v.list))
		for i, e := range v.list {
			out[i] = ToRecord(e)
		}
		return out
	case Map:
		out := make(map[string]interface{}, v.m.Len())
		for _, k := range v.m.Keys() {
			mv, _ := v.m.Get(k)
			out[k] = ToRecord(mv)
		}
		return out
	}
	return nil
}

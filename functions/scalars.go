package functions

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/spf13/cast"

	uuid "github.com/satori/go.uuid"

	"github.com/flowquery-go/flowquery/internal/fqerrors"
	"github.com/flowquery-go/flowquery/value"
)

func registerScalars(r *Registry) {
	r.registerScalar("coalesce", fnCoalesce)
	r.registerScalar("head", fnHead)
	r.registerScalar("last", fnLast)
	r.registerScalar("tail", fnTail)
	r.registerScalar("keys", fnKeys)
	r.registerScalar("properties", fnProperties)
	r.registerScalar("id", fnID)
	r.registerScalar("elementid", fnElementID)
	r.registerScalar("nodes", fnNodes)
	r.registerScalar("relationships", fnRelationships)
	r.registerScalar("range", fnRange)
	r.registerScalar("size", fnSize)
	r.registerScalar("rand", fnRand)
	r.registerScalar("round", fnRound)
	r.registerScalar("split", fnSplit)
	r.registerScalar("replace", fnReplace)
	r.registerScalar("trim", fnTrim)
	r.registerScalar("substring", fnSubstring)
	r.registerScalar("stringify", fnToJSON)
	r.registerScalar("tojson", fnToJSON)
	r.registerScalar("tostring", fnToString)
	r.registerScalar("tolower", fnToLower)
	r.registerScalar("tofloat", fnToFloat)
	r.registerScalar("tointeger", fnToInteger)
	r.registerScalar("join", fnJoin)
	r.registerScalar("type", fnType)
	r.registerScalar("stringdistance", fnStringDistance)
	registerTemporal(r)
}

func argErr(name, msg string) error {
	return fqerrors.Evaluation.New(fmt.Sprintf("%s(): %s", name, msg))
}

// fnCoalesce returns the first non-null argument, grounded on
// coalesce.py.
func fnCoalesce(args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.Value{}, argErr("coalesce", "requires at least one argument")
	}
	for _, a := range args {
		if !a.IsNull() {
			return a, nil
		}
	}
	return value.NewNull(), nil
}

func fnHead(args []value.Value) (value.Value, error) {
	v := args[0]
	if v.IsNull() {
		return value.NewNull(), nil
	}
	if v.Kind != value.List && v.Kind != value.Path {
		return value.Value{}, argErr("head", "expects a list")
	}
	l := v.List()
	if len(l) == 0 {
		return value.NewNull(), nil
	}
	return l[0], nil
}

func fnLast(args []value.Value) (value.Value, error) {
	v := args[0]
	if v.IsNull() {
		return value.NewNull(), nil
	}
	if v.Kind != value.List && v.Kind != value.Path {
		return value.Value{}, argErr("last", "expects a list")
	}
	l := v.List()
	if len(l) == 0 {
		return value.NewNull(), nil
	}
	return l[len(l)-1], nil
}

func fnTail(args []value.Value) (value.Value, error) {
	v := args[0]
	if v.IsNull() {
		return value.NewNull(), nil
	}
	if v.Kind != value.List && v.Kind != value.Path {
		return value.Value{}, argErr("tail", "expects a list")
	}
	l := v.List()
	if len(l) == 0 {
		return value.NewList(nil), nil
	}
	out := make([]value.Value, len(l)-1)
	copy(out, l[1:])
	return value.NewList(out), nil
}

func fnKeys(args []value.Value) (value.Value, error) {
	v := args[0]
	if v.IsNull() {
		return value.NewNull(), nil
	}
	if v.Kind != value.Map {
		return value.Value{}, argErr("keys", "expects a map, node, or relationship")
	}
	ks := v.Map().Keys()
	out := make([]value.Value, 0, len(ks))
	for _, k := range ks {
		if k == "__label" || k == "id" || k == "left_id" || k == "right_id" {
			continue
		}
		out = append(out, value.NewString(k))
	}
	return value.NewList(out), nil
}

// isRelationshipRecord mirrors properties.py's structural duck-typing
// check: a relationship's bound record carries type/startNode/endNode/
// properties keys, a node's just carries id plus user columns.
func isRelationshipRecord(m *value.OrderedMap) bool {
	for _, k := range []string{"type", "startNode", "endNode", "properties"} {
		if _, ok := m.Get(k); !ok {
			return false
		}
	}
	return true
}

// fnProperties returns the property map of a node/relationship/map,
// excluding bookkeeping columns (grounded on properties.py).
func fnProperties(args []value.Value) (value.Value, error) {
	v := args[0]
	if v.IsNull() {
		return value.NewNull(), nil
	}
	if v.Kind != value.Map {
		return value.Value{}, argErr("properties", "expects a node, relationship, or map")
	}
	m := v.Map()
	if isRelationshipRecord(m) {
		props, _ := m.Get("properties")
		return props, nil
	}
	out := value.NewOrderedMap()
	for _, k := range m.Keys() {
		if k == "__label" || k == "id" {
			continue
		}
		mv, _ := m.Get(k)
		out.Set(k, mv)
	}
	return value.NewMap(out), nil
}

// fnID returns a node's id or a relationship's type, grounded on id_.py.
func fnID(args []value.Value) (value.Value, error) {
	v := args[0]
	if v.IsNull() {
		return value.NewNull(), nil
	}
	if v.Kind != value.Map {
		return value.Value{}, argErr("id", "expects a node or relationship")
	}
	m := v.Map()
	if isRelationshipRecord(m) {
		t, _ := m.Get("type")
		return t, nil
	}
	if id, ok := m.Get("id"); ok {
		return id, nil
	}
	return value.Value{}, argErr("id", "expects a node or relationship")
}

// elementIDNamespace roots the UUIDv5 derivation used below; any fixed
// namespace works since what matters is that the same record always
// hashes to the same id, not what the namespace itself is.
var elementIDNamespace = uuid.NewV5(uuid.NamespaceOID, "flowquery.elementid")

// fnElementID returns a stable string identifier for a node or
// relationship: its real id/type when the record has one, otherwise a
// UUIDv5 synthesized from the record's own properties so the same
// id-less row always yields the same element id (SPEC_FULL.md §10/§11).
func fnElementID(args []value.Value) (value.Value, error) {
	v := args[0]
	if v.IsNull() {
		return value.NewNull(), nil
	}
	if v.Kind != value.Map {
		return value.Value{}, argErr("elementid", "expects a node or relationship")
	}
	m := v.Map()
	if isRelationshipRecord(m) {
		t, _ := m.Get("type")
		return value.NewString(value.ToString(t)), nil
	}
	if id, ok := m.Get("id"); ok {
		return value.NewString(value.ToString(id)), nil
	}
	return value.NewString(syntheticElementID(m)), nil
}

func syntheticElementID(m *value.OrderedMap) string {
	var sb strings.Builder
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		sb.WriteString(k)
		sb.WriteByte(0)
		sb.WriteString(value.ToString(v))
		sb.WriteByte(0)
	}
	return uuid.NewV5(elementIDNamespace, sb.String()).String()
}

func isPathRelationshipElement(v value.Value) bool {
	return v.Kind == value.Map && isRelationshipRecord(v.Map())
}

// fnNodes filters a path value down to its node elements, grounded on
// nodes.py.
func fnNodes(args []value.Value) (value.Value, error) {
	v := args[0]
	if v.IsNull() {
		return value.NewList(nil), nil
	}
	if v.Kind != value.List && v.Kind != value.Path {
		return value.Value{}, argErr("nodes", "expects a path")
	}
	var out []value.Value
	for _, e := range v.List() {
		if e.Kind == value.Map && !isPathRelationshipElement(e) {
			out = append(out, e)
		}
	}
	return value.NewList(out), nil
}

// fnRelationships filters a path value down to its relationship
// elements, grounded on relationships.py.
func fnRelationships(args []value.Value) (value.Value, error) {
	v := args[0]
	if v.IsNull() {
		return value.NewList(nil), nil
	}
	if v.Kind != value.List && v.Kind != value.Path {
		return value.Value{}, argErr("relationships", "expects a path")
	}
	var out []value.Value
	for _, e := range v.List() {
		if isPathRelationshipElement(e) {
			out = append(out, e)
		}
	}
	return value.NewList(out), nil
}

func fnRange(args []value.Value) (value.Value, error) {
	if len(args) < 2 || len(args) > 3 {
		return value.Value{}, argErr("range", "expects 2 or 3 arguments")
	}
	start, err := cast.ToInt64E(value.ToRecord(args[0]))
	if err != nil {
		return value.Value{}, argErr("range", "expects numeric bounds")
	}
	end, err := cast.ToInt64E(value.ToRecord(args[1]))
	if err != nil {
		return value.Value{}, argErr("range", "expects numeric bounds")
	}
	step := int64(1)
	if len(args) == 3 {
		step, err = cast.ToInt64E(value.ToRecord(args[2]))
		if err != nil || step == 0 {
			return value.Value{}, argErr("range", "step must be a non-zero integer")
		}
	}
	var out []value.Value
	if step > 0 {
		for i := start; i <= end; i += step {
			out = append(out, value.NewInt(i))
		}
	} else {
		for i := start; i >= end; i += step {
			out = append(out, value.NewInt(i))
		}
	}
	return value.NewList(out), nil
}

func fnSize(args []value.Value) (value.Value, error) {
	v := args[0]
	switch v.Kind {
	case value.Null:
		return value.NewNull(), nil
	case value.String:
		return value.NewInt(int64(len([]rune(v.Str())))), nil
	case value.List, value.Path:
		return value.NewInt(int64(len(v.List()))), nil
	case value.Map:
		return value.NewInt(int64(v.Map().Len())), nil
	default:
		return value.Value{}, argErr("size", "expects a string, list, or map")
	}
}

func fnRand(_ []value.Value) (value.Value, error) {
	return value.NewFloat(rand.Float64()), nil
}

func fnRound(args []value.Value) (value.Value, error) {
	v := args[0]
	if !v.IsNumeric() {
		return value.Value{}, argErr("round", "expects a number")
	}
	f := v.AsFloat()
	r := float64(int64(f))
	if f-r >= 0.5 {
		r++
	} else if f-r <= -0.5 {
		r--
	}
	return value.NewInt(int64(r)), nil
}

func fnSplit(args []value.Value) (value.Value, error) {
	if args[0].Kind != value.String || args[1].Kind != value.String {
		return value.Value{}, argErr("split", "expects two strings")
	}
	parts := strings.Split(args[0].Str(), args[1].Str())
	out := make([]value.Value, len(parts))
	for i, p := range parts {
		out[i] = value.NewString(p)
	}
	return value.NewList(out), nil
}

func fnReplace(args []value.Value) (value.Value, error) {
	if len(args) != 3 {
		return value.Value{}, argErr("replace", "expects three string arguments")
	}
	for _, a := range args {
		if a.Kind != value.String {
			return value.Value{}, argErr("replace", "expects three string arguments")
		}
	}
	return value.NewString(strings.ReplaceAll(args[0].Str(), args[1].Str(), args[2].Str())), nil
}

// fnTrim grounds on trim.py.
func fnTrim(args []value.Value) (value.Value, error) {
	v := args[0]
	if v.Kind != value.String {
		return value.Value{}, argErr("trim", "expects a string")
	}
	return value.NewString(strings.TrimSpace(v.Str())), nil
}

// fnSubstring implements 0-based start with an optional length,
// grounded on substring.py (2 or 3 arguments).
func fnSubstring(args []value.Value) (value.Value, error) {
	if len(args) < 2 || len(args) > 3 {
		return value.Value{}, argErr("substring", "expects 2 or 3 arguments")
	}
	if args[0].Kind != value.String {
		return value.Value{}, argErr("substring", "expects a string as the first argument")
	}
	s := []rune(args[0].Str())
	start, err := cast.ToIntE(value.ToRecord(args[1]))
	if err != nil || start < 0 {
		return value.Value{}, argErr("substring", "expects a non-negative integer start index")
	}
	if start > len(s) {
		start = len(s)
	}
	end := len(s)
	if len(args) == 3 {
		length, err := cast.ToIntE(value.ToRecord(args[2]))
		if err != nil || length < 0 {
			return value.Value{}, argErr("substring", "expects a non-negative integer length")
		}
		end = start + length
		if end > len(s) {
			end = len(s)
		}
	}
	return value.NewString(string(s[start:end])), nil
}

func fnToJSON(args []value.Value) (value.Value, error) {
	return value.NewString(value.CanonicalJSON(args[0])), nil
}

// fnToString grounds on to_string.py: booleans lowercase, lists/maps
// become JSON, everything else its natural string form.
func fnToString(args []value.Value) (value.Value, error) {
	v := args[0]
	switch v.Kind {
	case value.Null:
		return value.NewString("null"), nil
	case value.List, value.Map, value.Path:
		return value.NewString(value.CanonicalJSON(v)), nil
	default:
		return value.NewString(value.ToString(v)), nil
	}
}

func fnToLower(args []value.Value) (value.Value, error) {
	v := args[0]
	if v.IsNull() {
		return value.NewNull(), nil
	}
	if v.Kind != value.String {
		return value.Value{}, argErr("tolower", "expects a string")
	}
	return value.NewString(strings.ToLower(v.Str())), nil
}

// fnToFloat uses cast for the lenient string/bool/number coercion
// to_float.py performs.
func fnToFloat(args []value.Value) (value.Value, error) {
	v := args[0]
	if v.IsNull() {
		return value.NewNull(), nil
	}
	f, err := cast.ToFloat64E(value.ToRecord(v))
	if err != nil {
		return value.Value{}, argErr("tofloat", fmt.Sprintf("cannot convert %s to float", v.Kind))
	}
	return value.NewFloat(f), nil
}

func fnToInteger(args []value.Value) (value.Value, error) {
	v := args[0]
	if v.IsNull() {
		return value.NewNull(), nil
	}
	if v.Kind == value.String {
		f, err := cast.ToFloat64E(strings.TrimSpace(v.Str()))
		if err != nil {
			return value.Value{}, argErr("tointeger", fmt.Sprintf("cannot convert string %q to integer", v.Str()))
		}
		return value.NewInt(int64(f)), nil
	}
	i, err := cast.ToInt64E(value.ToRecord(v))
	if err != nil {
		return value.Value{}, argErr("tointeger", fmt.Sprintf("cannot convert %s to integer", v.Kind))
	}
	return value.NewInt(i), nil
}

// fnJoin concatenates a list of strings with an optional separator
// (default ""), grounded on join.py's API in the __init__ export list.
func fnJoin(args []value.Value) (value.Value, error) {
	if len(args) < 1 || len(args) > 2 {
		return value.Value{}, argErr("join", "expects a list and an optional separator")
	}
	if args[0].Kind != value.List {
		return value.Value{}, argErr("join", "expects a list of strings")
	}
	sep := ""
	if len(args) == 2 {
		if args[1].Kind != value.String {
			return value.Value{}, argErr("join", "separator must be a string")
		}
		sep = args[1].Str()
	}
	parts := make([]string, len(args[0].List()))
	for i, e := range args[0].List() {
		parts[i] = value.ToString(e)
	}
	return value.NewString(strings.Join(parts, sep)), nil
}

// fnType returns a relationship record's `type` value, "node" for any
// other map carrying an `id` key, or FlowQuery's type name otherwise.
func fnType(args []value.Value) (value.Value, error) {
	v := args[0]
	if v.Kind == value.Map {
		if isRelationshipRecord(v.Map()) {
			t, _ := v.Map().Get("type")
			return t, nil
		}
		if _, ok := v.Map().Get("id"); ok {
			return value.NewString("node"), nil
		}
	}
	return value.NewString(v.Kind.String()), nil
}

// fnStringDistance is the normalised Levenshtein distance of
// string_distance.py.
func fnStringDistance(args []value.Value) (value.Value, error) {
	if args[0].Kind != value.String || args[1].Kind != value.String {
		return value.Value{}, argErr("stringdistance", "expects two strings")
	}
	return value.NewFloat(levenshtein(args[0].Str(), args[1].Str())), nil
}

func levenshtein(a, b string) float64 {
	ar, br := []rune(a), []rune(b)
	m, n := len(ar), len(br)
	if m == 0 && n == 0 {
		return 0
	}
	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
		dp[i][0] = i
	}
	for j := 0; j <= n; j++ {
		dp[0][j] = j
	}
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			cost := 1
			if ar[i-1] == br[j-1] {
				cost = 0
			}
			del := dp[i-1][j] + 1
			ins := dp[i][j-1] + 1
			sub := dp[i-1][j-1] + cost
			best := del
			if ins < best {
				best = ins
			}
			if sub < best {
				best = sub
			}
			dp[i][j] = best
		}
	}
	denom := m
	if n > denom {
		denom = n
	}
	return float64(dp[m][n]) / float64(denom)
}

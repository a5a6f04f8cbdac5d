package graph

import (
	"fmt"

	"github.com/flowquery-go/flowquery/ast"
	"github.com/flowquery-go/flowquery/internal/fqerrors"
	"github.com/flowquery-go/flowquery/value"
)

// Matcher is the graph pattern traversal engine of spec §4.5, the
// hardest subsystem. It implements ast.PatternMatcher for WHERE/RETURN
// existence tests and exposes TraverseAll for the MATCH operation to
// drive its `next.run()` once per legal binding.
type Matcher struct {
	db *Database
}

func NewMatcher(db *Database) *Matcher { return &Matcher{db: db} }

// stopTraversal is the sentinel Exists uses to abandon enumeration
// after the first match; it is never returned to a TraverseAll caller.
type stopTraversal struct{}

func (stopTraversal) Error() string { return "stop" }

// Exists implements ast.PatternMatcher: whether at least one binding of
// p exists, without propagating bindings into the outer pipeline (spec
// §4.5, SPEC_FULL.md §12 PatternExpression).
func (m *Matcher) Exists(ctx *ast.EvalContext, p *ast.Pattern) (bool, error) {
	found := false
	err := m.TraverseAll(ctx, []*ast.Pattern{p}, func(*ast.EvalContext) error {
		found = true
		return stopTraversal{}
	})
	if err != nil {
		if _, ok := err.(stopTraversal); ok {
			return true, nil
		}
		return false, err
	}
	return found, nil
}

// TraverseAll implements multi-pattern MATCH (`MATCH (a), (b)`) as
// nested enumeration in pattern-list order (spec §4.5).
func (m *Matcher) TraverseAll(ctx *ast.EvalContext, patterns []*ast.Pattern, emit func(*ast.EvalContext) error) error {
	if len(patterns) == 0 {
		return emit(ctx)
	}
	first, rest := patterns[0], patterns[1:]
	return m.traversePattern(ctx, first, func(innerCtx *ast.EvalContext) error {
		return m.TraverseAll(innerCtx, rest, emit)
	})
}

// nodeRecordValue builds the scope value bound to a matched node: its
// property map plus internal `__label`/`id` bookkeeping keys so a later
// reference to the same variable (without repeating the label) can
// still resolve its physical data source.
func nodeRecordValue(label string, rec value.Record) value.Value {
	om := value.NewOrderedMap()
	if rec != nil {
		for _, k := range rec.Keys() {
			v, _ := rec.Get(k)
			om.Set(k, v)
		}
	}
	om.Set("__label", value.NewString(label))
	return value.NewMap(om)
}

func idOf(rec value.Record) string {
	if rec == nil {
		return ""
	}
	if v, ok := rec.Get("id"); ok {
		return value.ToString(v)
	}
	return ""
}

func labelOfBoundValue(v value.Value) string {
	if v.Kind != value.Map {
		return ""
	}
	if lv, ok := v.Map().Get("__label"); ok {
		return lv.Str()
	}
	return ""
}

// traversePattern enumerates every binding of a single pattern chain
// and calls cont for each.
func (m *Matcher) traversePattern(ctx *ast.EvalContext, p *ast.Pattern, cont func(*ast.EvalContext) error) error {
	if len(p.Nodes) == 0 {
		return cont(ctx)
	}
	return m.walkNode(ctx, p, 0, nil, cont)
}

// walkNode handles pattern.Nodes[idx]: either enumerating its
// candidates from physical data (when not yet bound) or checking the
// single incoming candidate supplied by the preceding relationship hop.
func (m *Matcher) walkNode(ctx *ast.EvalContext, p *ast.Pattern, idx int, incoming *incomingBinding, cont func(*ast.EvalContext) error) error {
	node := p.Nodes[idx]
	isLast := idx == len(p.Nodes)-1

	advance := func(innerCtx *ast.EvalContext, label string, id string) error {
		if isLast {
			return cont(innerCtx)
		}
		rel := p.Relationships[idx]
		collector := NewMatchCollector(id)
		return m.walkRelationship(innerCtx, p, idx, rel, collector, label, id, 0, cont)
	}

	if incoming != nil {
		rec, label, err := m.fetchNodeRecord(node, incoming.label, incoming.id)
		if err != nil {
			return err
		}
		if rec == nil && label == "" {
			return nil // no physical data for this label; dead end
		}
		matched, err := propertiesMatch(ctx, node.Properties, rec)
		if err != nil {
			return err
		}
		if !matched {
			return nil
		}
		inner := ast.NewScope(ctx.Scope)
		if node.Identifier != "" {
			inner.Declare(node.Identifier, nodeRecordValue(label, rec))
		}
		return advance(ctx.WithScope(inner), label, incoming.id)
	}

	// First node of the pattern (or a mid-pattern node with no incoming
	// binding, e.g. the `(b)` in a standalone `MATCH (b)`).
	if node.IsReference && node.Identifier != "" {
		if bound, ok := ctx.Scope.Get(node.Identifier); ok {
			label := labelOfBoundValue(bound)
			id := idOf(mapToRecord(bound))
			matched, err := propertiesMatch(ctx, node.Properties, mapToRecord(bound))
			if err != nil {
				return err
			}
			if !matched {
				return nil
			}
			return advance(ctx, label, id)
		}
	}

	if node.Label == "" {
		return fqerrors.At(node.Pos(), fqerrors.Evaluation.New("node pattern requires a label to enumerate candidates"))
	}
	pn, ok := m.db.Node(node.Label)
	if !ok {
		return fqerrors.At(node.Pos(), fqerrors.Evaluation.New(fmt.Sprintf("unknown label %q", node.Label)))
	}
	data, err := pn.Data()
	if err != nil {
		return err
	}
	data.ResetLevel(0)
	for {
		rec, _, ok := data.Next(0)
		if !ok {
			return nil
		}
		matched, err := propertiesMatch(ctx, node.Properties, rec)
		if err != nil {
			return err
		}
		if !matched {
			continue
		}
		inner := ast.NewScope(ctx.Scope)
		if node.Identifier != "" {
			inner.Declare(node.Identifier, nodeRecordValue(node.Label, rec))
		}
		if err := advance(ctx.WithScope(inner), node.Label, idOf(rec)); err != nil {
			return err
		}
	}
}

type incomingBinding struct {
	label string
	id    string
}

func mapToRecord(v value.Value) value.Record {
	if v.Kind != value.Map {
		return nil
	}
	return v.Map()
}

func (m *Matcher) fetchNodeRecord(node *ast.Node, fallbackLabel, id string) (value.Record, string, error) {
	label := node.Label
	if label == "" {
		label = fallbackLabel
	}
	if label == "" {
		return nil, "", nil
	}
	pn, ok := m.db.Node(label)
	if !ok {
		return nil, "", fqerrors.At(node.Pos(), fqerrors.Evaluation.New(fmt.Sprintf("unknown label %q", label)))
	}
	data, err := pn.Data()
	if err != nil {
		return nil, "", err
	}
	// Point lookups use their own cursor level so they never move the
	// level-0 cursor a pattern's first node enumerates with.
	const lookupLevel = -1
	data.ResetLevel(lookupLevel)
	rec, _, ok := data.Find(id, lookupLevel, "id")
	if !ok {
		return nil, label, nil
	}
	return rec, label, nil
}

// propertiesMatch checks a node property constraint against a candidate
// record. Per node.py's _matches_properties (mirrored by the
// relationship-side relationshipConstraintsMatch below): a constrained
// key absent from the record is a schema error (raised), but a present
// key whose value differs from the constraint just fails the match.
func propertiesMatch(ctx *ast.EvalContext, constraints []ast.PropertyConstraint, rec value.Record) (bool, error) {
	if len(constraints) == 0 {
		return true, nil
	}
	if rec == nil {
		return false, nil
	}
	for _, c := range constraints {
		got, ok := rec.Get(c.Key)
		if !ok {
			return false, fqerrors.Evaluation.New("Node does not have property")
		}
		want, err := c.Value.Value(ctx)
		if err != nil {
			return false, err
		}
		if !value.Equal(want, got) {
			return false, nil
		}
	}
	return true, nil
}

// walkRelationship implements Relationship.find(id, hop) of spec §4.5.
func (m *Matcher) walkRelationship(
	ctx *ast.EvalContext,
	p *ast.Pattern,
	nodeIdx int,
	rel *ast.Relationship,
	collector *MatchCollector,
	sourceLabel, sourceID string,
	hop int,
	cont func(*ast.EvalContext) error,
) error {
	targetLabel := ""
	if nodeIdx+1 < len(p.Nodes) {
		targetLabel = p.Nodes[nodeIdx+1].Label
	}

	datas, err := m.relationshipData(rel)
	if err != nil {
		return err
	}

	// Zero-hop special case (spec §4.5): `*` / `*0..k` at hop 0 binds
	// the target to the source id itself, no edge consumed.
	if rel.Hops.Multi() && rel.Hops.Min == 0 && hop == 0 {
		if err := m.bindTargetAndContinue(ctx, p, nodeIdx, collector, sourceLabel, sourceID, targetLabel, cont); err != nil {
			return err
		}
	}

	indexCol, followCol := followColumns(rel.Direction)
	// "tried as right then as left" for direction both: walk twice.
	dirs := []string{indexCol}
	followCols := []string{followCol}
	if rel.Direction == ast.DirBoth {
		dirs = []string{"left_id", "right_id"}
		followCols = []string{"right_id", "left_id"}
	}

	// OR-type patterns (`[:A|B]`) query every declared type's data and
	// union the candidate edges rather than only the first.
	for _, data := range datas {
		for d := range dirs {
			data.ResetLevel(hop)
			for {
				rec, _, ok := data.Find(sourceID, hop, dirs[d])
				if !ok {
					break
				}
				matched, err := relationshipConstraintsMatch(ctx, rel, rec)
				if err != nil {
					return err
				}
				if !matched {
					continue
				}
				followVal, ok := rec.Get(followCols[d])
				if !ok {
					continue
				}
				followID := value.ToString(followVal)

				if hop+1 >= rel.Hops.Min {
					if rel.Hops.Multi() {
						if collector.IsCircular(followID) {
							// variable-length: skip this edge, do not raise.
						} else {
							collector.Push(rec, followID)
							if rel.Identifier != "" {
								bindRelationshipPath(ctx, rel, collector)
							}
							if err := m.bindTargetAndContinue(ctx, p, nodeIdx, collector, sourceLabel, sourceID, targetLabel, cont); err != nil {
								collector.Pop()
								return err
							}
							collector.Pop()
						}
					} else {
						if collector.IsCircular(followID) {
							return fqerrors.At(rel.Pos(), fqerrors.Circular.New())
						}
						collector.Push(rec, followID)
						if err := m.bindTargetAndContinue(ctx, p, nodeIdx, collector, sourceLabel, sourceID, targetLabel, cont); err != nil {
							collector.Pop()
							return err
						}
						collector.Pop()
					}
				}

				if hop+1 < rel.Hops.Max {
					if err := m.walkRelationship(ctx, p, nodeIdx, rel, collector, sourceLabel, followID, hop+1, cont); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// bindTargetAndContinue fetches the record for the node this hop
// landed on, checks its property constraints, binds it into the scope,
// and either recurses into the next relationship or fires the pattern
// continuation.
func (m *Matcher) bindTargetAndContinue(ctx *ast.EvalContext, p *ast.Pattern, nodeIdx int, collector *MatchCollector, sourceLabel, sourceID, targetLabel string, cont func(*ast.EvalContext) error) error {
	targetID := collector.EndNode()
	return m.walkNode(ctx, p, nodeIdx+1, &incomingBinding{label: targetLabel, id: targetID}, cont)
}

func bindRelationshipPath(ctx *ast.EvalContext, rel *ast.Relationship, collector *MatchCollector) {
	recs := collector.Matches()
	items := make([]value.Value, len(recs))
	for i, m := range recs {
		om := value.NewOrderedMap()
		for _, k := range m.Record.Keys() {
			v, _ := m.Record.Get(k)
			om.Set(k, v)
		}
		items[i] = value.NewMap(om)
	}
	ctx.Scope.Declare(rel.Identifier, value.NewList(items))
}

// relationshipData resolves every type named in an OR-type pattern
// (`[:A|B]`) to its backing Data, so the caller can union candidate
// edges across all of them rather than just the first alternative.
func (m *Matcher) relationshipData(rel *ast.Relationship) ([]*Data, error) {
	types := rel.Types
	if len(types) == 0 {
		types = []string{""}
	}
	datas := make([]*Data, 0, len(types))
	for _, typ := range types {
		pr, ok := m.db.Relationship(typ)
		if !ok {
			return nil, fqerrors.At(rel.Pos(), fqerrors.Evaluation.New(fmt.Sprintf("unknown relationship type %q", typ)))
		}
		d, err := pr.Data()
		if err != nil {
			return nil, err
		}
		datas = append(datas, d)
	}
	return datas, nil
}

func followColumns(dir ast.Direction) (indexCol, followCol string) {
	switch dir {
	case ast.DirLeft:
		return "right_id", "left_id"
	default: // DirRight and DirBoth's primary pass
		return "left_id", "right_id"
	}
}

// relationshipConstraintsMatch checks a relationship's property
// constraints against a candidate edge record. Per
// relationship.py's _matches_properties: a constrained key absent from
// the record is a schema error (raised), but a present key whose value
// differs from the constraint just fails the match silently so the
// traversal tries the next candidate edge.
func relationshipConstraintsMatch(ctx *ast.EvalContext, rel *ast.Relationship, rec value.Record) (bool, error) {
	for _, c := range rel.Properties {
		got, ok := rec.Get(c.Key)
		if !ok {
			return false, fqerrors.At(rel.Pos(), fqerrors.Evaluation.New("Relationship does not have property"))
		}
		want, err := c.Value.Value(ctx)
		if err != nil {
			return false, err
		}
		if !value.Equal(want, got) {
			return false, nil
		}
	}
	return true, nil
}

package ast

import "github.com/flowquery-go/flowquery/token"

// Direction is a relationship's traversal direction (spec §3).
type Direction int

const (
	DirRight Direction = iota
	DirLeft
	DirBoth
)

// Hops is a relationship's hop-count bound. Variable is true when the
// pattern used `*` (possibly `*min..max`); a plain `[:T]` relationship
// has Hops{Min: 1, Max: 1, Variable: false}.
type Hops struct {
	Min, Max int
	Variable bool
}

// Multi reports whether this relationship is variable-length (spec
// §4.5's `hops.multi()`).
func (h Hops) Multi() bool { return h.Variable }

// Unbounded is a sentinel for "no upper bound given" (`*1..`, `*n..`).
const Unbounded = 1 << 30

// PropertyConstraint is one `key: expr` entry of a node/relationship
// pattern's inline property map, e.g. `(a:Label {key: expr})`.
type PropertyConstraint struct {
	Key   string
	Value Expr
}

// Node is a pattern chain's node element (spec §3's "Node (graph)").
// It is pure pattern structure; the live traversal value and data
// cursor are held externally by the graph matcher, keyed by this
// node's identity, rather than mutated here — see DESIGN.md's note on
// keeping the shared AST immutable across concurrent/recursive
// physical-handle evaluation.
type Node struct {
	base
	Identifier  string // "" when anonymous
	Label       string // "" when unconstrained
	Properties  []PropertyConstraint
	IsReference bool // true when this reuses a variable bound earlier (NodeReference)
}

func NewNode(pos token.Pos, identifier, label string) *Node {
	return &Node{base: base{pos}, Identifier: identifier, Label: label}
}

// Relationship is a pattern chain's edge element (spec §3's
// "Relationship (graph)"). Types holds OR-alternatives (`[:A|B]`); Type
// is the single-type convenience accessor when len(Types) == 1.
type Relationship struct {
	base
	Identifier  string
	Types       []string
	Hops        Hops
	Direction   Direction
	Properties  []PropertyConstraint
	IsReference bool
}

func NewRelationship(pos token.Pos, identifier string, types []string, dir Direction, hops Hops) *Relationship {
	return &Relationship{base: base{pos}, Identifier: identifier, Types: types, Direction: dir, Hops: hops}
}

func (r *Relationship) Type() string {
	if len(r.Types) == 1 {
		return r.Types[0]
	}
	return ""
}

// Pattern is an alternating Node-Relationship-Node-... chain, length
// 2k+1, always starting and ending with a Node (spec §3).
type Pattern struct {
	base
	Nodes         []*Node
	Relationships []*Relationship // len(Relationships) == len(Nodes)-1
	PathAlias     string          // "" unless `p = (...)` path capture is requested
}

func NewPattern(pos token.Pos) *Pattern {
	return &Pattern{base: base{pos}}
}

func (p *Pattern) AddNode(n *Node) { p.Nodes = append(p.Nodes, n) }
func (p *Pattern) AddRelationship(r *Relationship) {
	p.Relationships = append(p.Relationships, r)
}

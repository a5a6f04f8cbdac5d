package graph

import "github.com/flowquery-go/flowquery/value"

// Runner executes a physical handle's defining sub-pipeline to
// completion and returns its result records. Defined here (rather than
// importing the operation package) to avoid a dependency cycle: the
// operation package must import graph (for Database/Matcher), so graph
// cannot import operation back. The operation package's PipelineRunner
// is the concrete Runner CreateVirtualNode registers for `CREATE VIRTUAL`.
type Runner interface {
	Run() ([]value.Record, error)
}

// PhysicalNode is a Database-registered lazy node source for a label
// (spec §4.6 / §3's "Lifecycle").
type PhysicalNode struct {
	Label  string
	runner Runner

	fetched bool
	data    *Data
	err     error
}

// Data runs the handle's sub-pipeline the first time and memoises the
// result; subsequent calls return the cached Data. Memoised data is
// never invalidated except by redefining the handle (spec §4.6, §5).
func (p *PhysicalNode) Data() (*Data, error) {
	if !p.fetched {
		records, err := p.runner.Run()
		p.data = NewData(records)
		p.err = err
		p.fetched = true
	}
	return p.data, p.err
}

// PhysicalRelationship is a Database-registered lazy relationship
// source for a type, with its endpoint labels recorded (spec §4.6).
type PhysicalRelationship struct {
	Type       string
	LeftLabel  string
	RightLabel string
	runner     Runner

	fetched bool
	data    *Data
	err     error
}

func (p *PhysicalRelationship) Data() (*Data, error) {
	if !p.fetched {
		records, err := p.runner.Run()
		p.data = NewData(records)
		p.err = err
		p.fetched = true
	}
	return p.data, p.err
}

// Database is FlowQuery's registry of labels -> PhysicalNode and types
// -> PhysicalRelationship handles (spec §4.6). Per spec §9's explicit-
// session design note, this is no longer a process-wide singleton: a
// Database instance lives on the session.Session and is threaded
// through every operation and physical-handle re-entry explicitly.
type Database struct {
	nodes map[string]*PhysicalNode
	rels  map[string]*PhysicalRelationship
}

func NewDatabase() *Database {
	return &Database{nodes: make(map[string]*PhysicalNode), rels: make(map[string]*PhysicalRelationship)}
}

// RegisterNode registers (or, per spec §4.4.4, replaces) the handle for
// label.
func (db *Database) RegisterNode(label string, r Runner) *PhysicalNode {
	pn := &PhysicalNode{Label: label, runner: r}
	db.nodes[label] = pn
	return pn
}

func (db *Database) RegisterRelationship(typ, leftLabel, rightLabel string, r Runner) *PhysicalRelationship {
	pr := &PhysicalRelationship{Type: typ, LeftLabel: leftLabel, RightLabel: rightLabel, runner: r}
	db.rels[typ] = pr
	return pr
}

func (db *Database) Node(label string) (*PhysicalNode, bool) {
	pn, ok := db.nodes[label]
	return pn, ok
}

func (db *Database) Relationship(typ string) (*PhysicalRelationship, bool) {
	pr, ok := db.rels[typ]
	return pr, ok
}

func (db *Database) RemoveNode(label string) { delete(db.nodes, label) }
func (db *Database) RemoveRelationship(typ string) { delete(db.rels, typ) }

// SchemaEntry is one Database.Schema() row (spec §4.6).
type SchemaEntry struct {
	Kind       string // "Node" or "Relationship"
	Label      string
	LeftLabel  string
	RightLabel string
	Columns    []string
	Sample     value.Record
}

// Schema samples the first record of every registered handle (spec
// §4.6).
func (db *Database) Schema() ([]SchemaEntry, error) {
	var entries []SchemaEntry
	for label, pn := range db.nodes {
		d, err := pn.Data()
		if err != nil {
			return nil, err
		}
		entries = append(entries, sampleEntry("Node", label, "", "", d, []string{"id"}))
	}
	for typ, pr := range db.rels {
		d, err := pr.Data()
		if err != nil {
			return nil, err
		}
		entries = append(entries, sampleEntry("Relationship", typ, pr.LeftLabel, pr.RightLabel, d, []string{"left_id", "right_id"}))
	}
	return entries, nil
}

func sampleEntry(kind, label, left, right string, d *Data, strip []string) SchemaEntry {
	e := SchemaEntry{Kind: kind, Label: label, LeftLabel: left, RightLabel: right}
	if d.Len() == 0 {
		return e
	}
	rec := d.Record(0)
	stripSet := make(map[string]bool, len(strip))
	for _, s := range strip {
		stripSet[s] = true
	}
	sample := value.NewOrderedMap()
	for _, k := range rec.Keys() {
		if stripSet[k] {
			continue
		}
		v, _ := rec.Get(k)
		sample.Set(k, v)
		e.Columns = append(e.Columns, k)
	}
	e.Sample = sample
	return e
}

// Package graph implements FlowQuery's virtual graph runtime: the
// record/index storage (spec §3 "Data/NodeData/RelationshipData"), the
// Database registry of physical handles (spec §4.6), and the pattern
// matcher (spec §4.5, the hardest subsystem).
//
// Grounded on original_source/flowquery-py/src/graph/{data.py,
// database.py, relationship.py, relationship_data.py,
// relationship_match_collector.py, pattern_expression.py}.
package graph

import (
	"fmt"

	"github.com/flowquery-go/flowquery/value"
)

// Layer is the per-hop-level cursor state of spec §3: a position plus
// lazily-built per-column inverted indexes, one Layer per traversal
// depth so nested hops of a variable-length relationship do not
// collide.
type Layer struct {
	pos     int
	indexes map[string]map[string][]int // column -> value's canonical string -> ascending record positions
}

func newLayer() *Layer {
	return &Layer{pos: 0, indexes: make(map[string]map[string][]int)}
}

func (l *Layer) reset() { l.pos = 0 }

// Data is an immutable record list with per-level cursors (spec §3).
// One Data is built once per physical handle fetch (or per pattern
// entry for in-line literal node/relationship lists) and shared read-
// only across every concurrent traversal level.
type Data struct {
	records []value.Record
	layers  map[int]*Layer
}

// NewData wraps an ordered record list. Records are column-name ->
// scalar maps (spec §3); node records carry `id`, relationship records
// carry `left_id`/`right_id` plus user columns.
func NewData(records []value.Record) *Data {
	return &Data{records: records, layers: make(map[int]*Layer)}
}

func (d *Data) Len() int { return len(d.records) }

func (d *Data) Record(pos int) value.Record { return d.records[pos] }

// Layer returns (creating if needed) the cursor for the given hop
// level. Each level gets its own independent position.
func (d *Data) Layer(level int) *Layer {
	l, ok := d.layers[level]
	if !ok {
		l = newLayer()
		d.layers[level] = l
	}
	return l
}

// ResetLevel rewinds a level's cursor to the start, used when a
// pattern re-enters (e.g. MATCH inside a loop driven by an outer
// UNWIND) per spec §4.5 "Non-deterministic reset".
func (d *Data) ResetLevel(level int) { d.Layer(level).reset() }

func columnString(col string, r value.Record) (string, bool) {
	v, ok := r.Get(col)
	if !ok || v.IsNull() {
		return "", false
	}
	return value.ToString(v), true
}

func (d *Data) ensureIndex(level *Layer, column string) map[string][]int {
	idx, ok := level.indexes[column]
	if ok {
		return idx
	}
	idx = make(map[string][]int)
	for pos, rec := range d.records {
		if s, ok := columnString(column, rec); ok {
			idx[s] = append(idx[s], pos)
		}
	}
	level.indexes[column] = idx
	return idx
}

// Find advances the level's cursor to the next record (at or after the
// cursor) whose indexName column equals key, per spec §3:
// "find(key, level, index-name): advances to the next record whose
// indexed column equals key". Returns the record, its position, and
// whether a match was found; the cursor is left just past the match so
// a subsequent Find continues the scan (used when a node binds more
// than one candidate across repeated pattern entry).
func (d *Data) Find(key string, level int, indexName string) (value.Record, int, bool) {
	l := d.Layer(level)
	idx := d.ensureIndex(l, indexName)
	positions := idx[key]
	for _, pos := range positions {
		if pos >= l.pos {
			l.pos = pos + 1
			return d.records[pos], pos, true
		}
	}
	return value.Record(nil), -1, false
}

// Next advances the level's cursor across the full unindexed record
// list in storage order, used to enumerate every candidate of a
// pattern's first node.
func (d *Data) Next(level int) (value.Record, int, bool) {
	l := d.Layer(level)
	if l.pos >= len(d.records) {
		return value.Record(nil), -1, false
	}
	pos := l.pos
	l.pos++
	return d.records[pos], pos, true
}

// String is used by error messages that report a missing property.
func (d *Data) String() string { return fmt.Sprintf("Data(%d records)", len(d.records)) }

package graph

import "github.com/flowquery-go/flowquery/value"

// MatchRecord is one relationship hop pushed onto a traversal's match
// stack: the relationship record traversed plus the id of the node it
// led to. Grounded on
// relationship_match_collector.py's RelationshipMatchRecord.
type MatchRecord struct {
	Record value.Record
	EndID  string
}

// MatchCollector is the push-down stack spec §3 calls `matches`: it
// records the current path for cycle detection and for `p = (...)`
// path projection (SPEC_FULL.md §12).
type MatchCollector struct {
	startID string
	stack   []MatchRecord
}

func NewMatchCollector(startID string) *MatchCollector {
	return &MatchCollector{startID: startID}
}

func (c *MatchCollector) Push(rec value.Record, endID string) {
	c.stack = append(c.stack, MatchRecord{Record: rec, EndID: endID})
}

func (c *MatchCollector) Pop() {
	c.stack = c.stack[:len(c.stack)-1]
}

// EndNode is the id the traversal currently sits at: the start id if
// nothing has been pushed yet, otherwise the last hop's end id.
func (c *MatchCollector) EndNode() string {
	if len(c.stack) == 0 {
		return c.startID
	}
	return c.stack[len(c.stack)-1].EndID
}

// IsCircular reports whether id already appears on the path (start id
// or any hop's end id), per spec §4.5's cycle-avoidance rule.
func (c *MatchCollector) IsCircular(id string) bool {
	if id == c.startID {
		return true
	}
	for _, m := range c.stack {
		if m.EndID == id {
			return true
		}
	}
	return false
}

func (c *MatchCollector) Matches() []MatchRecord {
	return c.stack
}

func (c *MatchCollector) Len() int { return len(c.stack) }

package operation

import "github.com/flowquery-go/flowquery/value"

// DeleteNode removes a registered physical-node handle (spec §4.4.4),
// grounded on delete_node.py.
type DeleteNode struct {
	Base
	Label string
}

func NewDeleteNode(label string) *DeleteNode { return &DeleteNode{Label: label} }

func (d *DeleteNode) Initialize(ctx *Context) error { return nil }

func (d *DeleteNode) Run(ctx *Context) error {
	ctx.DB.RemoveNode(d.Label)
	return runNext(ctx, d)
}

func (d *DeleteNode) Finish(ctx *Context) error { return nil }
func (d *DeleteNode) Results() []value.Record   { return nil }

// DeleteRelationship removes a registered physical-relationship handle
// (spec §4.4.4), grounded on delete_relationship.py.
type DeleteRelationship struct {
	Base
	Type string
}

func NewDeleteRelationship(typ string) *DeleteRelationship { return &DeleteRelationship{Type: typ} }

func (d *DeleteRelationship) Initialize(ctx *Context) error { return nil }

func (d *DeleteRelationship) Run(ctx *Context) error {
	ctx.DB.RemoveRelationship(d.Type)
	return runNext(ctx, d)
}

func (d *DeleteRelationship) Finish(ctx *Context) error { return nil }
func (d *DeleteRelationship) Results() []value.Record   { return nil }

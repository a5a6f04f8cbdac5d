package operation

import "github.com/flowquery-go/flowquery/value"

// PipelineRunner adapts an operation chain into graph.Runner so a
// CREATE VIRTUAL handle's sub-pipeline can be driven lazily by
// Database.Node/Relationship.Data() the first time it's queried (spec
// §4.4.4/§4.6).
type PipelineRunner struct {
	Ctx  *Context
	Head Operation
}

func (r *PipelineRunner) Run() ([]value.Record, error) {
	if err := InitializeChain(r.Ctx, r.Head); err != nil {
		return nil, err
	}
	if err := r.Head.Run(r.Ctx); err != nil {
		return nil, err
	}
	if err := FinishChain(r.Ctx, r.Head); err != nil {
		return nil, err
	}
	return Results(r.Head), nil
}

// CreateVirtualNode registers a physical-node handle under Label,
// memoising Sub's result the first time it's traversed (spec §4.4.4).
// Redefining an already-registered label replaces its handle.
type CreateVirtualNode struct {
	Base
	Label string
	Sub   Operation
}

func NewCreateVirtualNode(label string, sub Operation) *CreateVirtualNode {
	return &CreateVirtualNode{Label: label, Sub: sub}
}

func (c *CreateVirtualNode) Initialize(ctx *Context) error { return nil }

func (c *CreateVirtualNode) Run(ctx *Context) error {
	ctx.DB.RegisterNode(c.Label, &PipelineRunner{Ctx: ctx, Head: c.Sub})
	return runNext(ctx, c)
}

func (c *CreateVirtualNode) Finish(ctx *Context) error { return nil }
func (c *CreateVirtualNode) Results() []value.Record   { return nil }

// CreateVirtualRelationship registers a physical-relationship handle
// under Type with its endpoint labels recorded (spec §4.4.4).
type CreateVirtualRelationship struct {
	Base
	Type                  string
	LeftLabel, RightLabel string
	Sub                   Operation
}

func NewCreateVirtualRelationship(typ, left, right string, sub Operation) *CreateVirtualRelationship {
	return &CreateVirtualRelationship{Type: typ, LeftLabel: left, RightLabel: right, Sub: sub}
}

func (c *CreateVirtualRelationship) Initialize(ctx *Context) error { return nil }

func (c *CreateVirtualRelationship) Run(ctx *Context) error {
	ctx.DB.RegisterRelationship(c.Type, c.LeftLabel, c.RightLabel, &PipelineRunner{Ctx: ctx, Head: c.Sub})
	return runNext(ctx, c)
}

func (c *CreateVirtualRelationship) Finish(ctx *Context) error { return nil }
func (c *CreateVirtualRelationship) Results() []value.Record   { return nil }

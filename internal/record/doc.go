// Package record is the schema-driven runtime dispatcher for user records.
//
// A Schema declares the shape of a record: scalar kinds (num, bool, int),
// fixed vectors (vec2, vec3, vec4, color), repeatable lists, nested records
// and enums. A Control is a schema-typed tree of control values built by the
// compiler from a document; lists hold unitcell.Elements so repeat blocks may
// appear anywhere. A Value is the resolved tree handed to the renderer.
//
// Control implements the capability interfaces the frame loop needs:
//
//	control.ResolvesTo[Value]          Resolve(ctx)
//	unitcell.EvaluableUnitCell[Value]  EvalUnitCell(ctx, idx)
//	lazy conversion                    Lazy() lazy.Lazy[Value]
//
// and Smoother implements boop.BoopFrom[Value] over a boop.Bank keyed by
// the dotted paths Value.Flatten produces.
package record

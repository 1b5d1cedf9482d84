// Package simulator generates the synthetic price series behind the trader
// card charts.
//
// A series is a fixed-length window of timestamped samples produced by a
// bounded random walk with momentum, a personality bias and occasional shock
// events. Each tick is a pure transition over an explicit State value:
//
//	state, _ := simulator.Initialize(ctx, store, id, params, rnd, time.Now())
//	state = simulator.Step(state, params, rnd, time.Now())
//	_ = simulator.Persist(ctx, store, id, state, time.Now())
//
// Persistence is best effort. A stored snapshot that cannot be decoded or does
// not fit the requested window is treated exactly like a missing one and a
// fresh series is generated instead.
//
// The output carries no meaning beyond "stays positive and moves over time".
package simulator

// Package dag holds the dependency structures shared by rules, memories and
// piping.
//
// DAG is the compact child -> parents form every sub-graph is computed in
// and merged through. Graph is the adjacency form used for analysis: it
// records which kind of dependency produced each edge and can detect cycles
// or produce a topological order.
package dag

// Package qlearn implements a tabular Q-learning agent over hashed,
// discretized states. Arbitrary string-keyed contexts are reduced to a
// bounded state index by a stable, order-independent digest; distinct
// contexts may alias to the same table row, an accepted dimensionality
// trade-off. Action selection is epsilon-greedy with multiplicative epsilon
// decay floored at a fixed minimum.
//
// The agent is not safe for concurrent use; the owning engine serializes
// access.
package qlearn

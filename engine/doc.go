// Package engine orchestrates the online learning pipeline. An Engine owns a
// bounded history of experiences, routes each new experience to the active
// optimization strategy and, independently, to a tabular Q-learning agent,
// and maintains append-only performance metric series and rolling analytics.
//
// Engines are explicit instances: construct one with New, hand it to
// whatever serves requests, and let it die with the process. There is no
// package-level singleton. All mutating operations are serialized by an
// internal mutex, implementing the single-writer model the pipeline's
// read-modify-write sequence requires.
//
// Failure semantics: a strategy update failure fails the Process call, but
// history and metric appends committed before the failure are not rolled
// back. A Q-learning or journal failure is isolated: it is logged, surfaced
// as a warning on the result, and never fails the call.
package engine

// Package journal provides an optional append-only record of the experiences
// an engine has processed. The engine holds all learning state in memory for
// the process lifetime; the journal is the caller-side hook for keeping an
// external trace of what was learned from, and for fanning recent entries out
// to observers over pub/sub.
//
// Journal failures never fail the learning pipeline: the engine logs and
// continues, the same isolation contract as its reinforcement-learning feed.
package journal

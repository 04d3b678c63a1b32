// Package experience defines the immutable learning-event record consumed by
// the learning engine, along with the bounded FIFO history that retains the
// most recent records and the rolling summary statistics computed over them.
//
// An Experience is constructed once from caller-supplied Raw input (missing
// fields are defaulted, never rejected) and is not modified afterwards. It is
// owned by the history it is appended to and is simply dropped, oldest first,
// when the history exceeds its capacity.
package experience

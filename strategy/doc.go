// Package strategy implements the competing parameter-adaptation algorithms
// the learning engine dispatches experiences to. The set of strategies is
// closed: Gradient, a momentum optimizer with an adaptive learning rate, and
// Bayes, a bounded-space black-box optimizer that tracks the best observed
// parameters and proposes perturbations around them.
//
// Both satisfy the Strategy interface: Update folds one feedback observation
// into internal state and returns a Report describing the adaptation, and
// Propose suggests the next parameter set to try. Strategies are not safe
// for concurrent use; the owning engine serializes access.
package strategy

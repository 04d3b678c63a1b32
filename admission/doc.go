// Package admission gates which experiences an engine learns from. Rules are
// CEL expressions evaluated over an experience's scalar fields; an experience
// the rule rejects is reported back to the caller without touching any
// learner state.
//
// Example rule expressions:
//
//	"reward > 0.0"
//	"confidence >= 0.5 && action != ''"
//	"performance > -1.0 || reward >= 0.0"
package admission

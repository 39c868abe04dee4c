// Package state persists the merchant's transaction sequence and the set of
// order numbers already charged. Every backend keeps the same contract: the
// sequence starts at 1 and only moves forward by one per Advance, and an
// order number can be recorded once.
package state

import "fmt"

// ErrConflict is returned by Record when the order number is already present.
var ErrConflict = fmt.Errorf("conflict")

// SequenceKey names the single counter row or key used by the db backends.
const SequenceKey = "transaction"

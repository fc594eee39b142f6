package bptree

import (
	"errors"
	"fmt"
)

// --- Error Definitions ---

var (
	ErrInvalidOrder       = errors.New("bptree order must be at least 3")
	ErrNilTree            = errors.New("bptree handle is nil")
	ErrTreeDestroyed      = errors.New("bptree has been destroyed")
	ErrInvariantViolation = errors.New("bptree invariant violated")
	ErrStopWalk           = errors.New("stop walk")
)

// Invariant names one of the structural properties checked by Verify.
type Invariant string

const (
	InvariantKeyOrder     Invariant = "key-order"
	InvariantSeparator    Invariant = "separator"
	InvariantLeafDepth    Invariant = "leaf-depth"
	InvariantCapacity     Invariant = "capacity"
	InvariantLeafChain    Invariant = "leaf-chain"
	InvariantDuplicateKey Invariant = "duplicate-key"
	InvariantStructure    Invariant = "structure"
)

// InvariantError reports the first invariant Verify found broken.
// It matches ErrInvariantViolation under errors.Is.
type InvariantError struct {
	Invariant Invariant
	NodeID    int
	Detail    string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%v: %s at node %d: %s", ErrInvariantViolation, e.Invariant, e.NodeID, e.Detail)
}

func (e *InvariantError) Is(target error) bool {
	return target == ErrInvariantViolation
}

func violation(inv Invariant, id nodeID, format string, args ...any) error {
	return &InvariantError{Invariant: inv, NodeID: int(id), Detail: fmt.Sprintf(format, args...)}
}

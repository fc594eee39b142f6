package bptree

import "go.uber.org/zap"

// EventKind classifies a structural change made while repairing the tree.
type EventKind int

const (
	EventLeafSplit EventKind = iota
	EventInternalSplit
	EventRootSplit
	EventBorrowLeft
	EventBorrowRight
	EventMerge
	EventRootCollapse
)

var eventNames = [...]string{
	EventLeafSplit:     "leaf_split",
	EventInternalSplit: "internal_split",
	EventRootSplit:     "root_split",
	EventBorrowLeft:    "borrow_left",
	EventBorrowRight:   "borrow_right",
	EventMerge:         "merge",
	EventRootCollapse:  "root_collapse",
}

func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventNames) {
		return "unknown"
	}
	return eventNames[k]
}

// Event is delivered to the hook installed with WithEventHook. Node is the
// handle of the node that was split, repaired or collapsed; Leaf reports
// whether it was a leaf.
type Event struct {
	Kind EventKind
	Node int
	Leaf bool
}

// emit logs a structural event at debug level and forwards it to the hook.
func (t *Tree[K, V]) emit(kind EventKind, id nodeID, leaf bool) {
	if ce := t.logger.Check(zap.DebugLevel, "structural change"); ce != nil {
		ce.Write(
			zap.Stringer("event", kind),
			zap.Int("node", int(id)),
			zap.Bool("leaf", leaf),
			zap.Int("height", t.height),
		)
	}
	if t.onEvent != nil {
		t.onEvent(Event{Kind: kind, Node: int(id), Leaf: leaf})
	}
}

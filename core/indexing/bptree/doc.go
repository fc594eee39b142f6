// Package bptree implements an in-memory B+ tree keyed by ordered scalars.
//
// # Overview
//
// A tree of order M keeps between ceil(M/2)-1 and M-1 keys in every node but
// the root. Internal nodes only route: a separator equals the smallest key of
// the subtree to its right, and lookups descend to the first child whose
// separator is greater than the key. Leaves hold the key/value pairs and are
// linked in key order in both directions, so ordered scans never revisit
// internal nodes.
//
// # Node storage
//
// Nodes live in an arena and refer to one another by handle. Splits, merges
// and leaf relinking rewrite handles; released slots are reused by later
// allocations.
//
// # Usage
//
//	tree, err := bptree.New[int64, string](16, bptree.WithLogger(logger))
//
//	// Insert (an existing key has its value replaced)
//	err = tree.Insert(42, "answer")
//
//	// Lookup
//	value, found, err := tree.Search(42)
//
//	// Ordered scan over the leaf chain
//	tree.AscendRange(10, 100, func(k int64, v string) bool {
//	    return true
//	})
//
//	// Structural check, used heavily by tests
//	if err := tree.Verify(); err != nil {
//	    logger.Error("index corrupt", zap.Error(err))
//	}
//
// # Concurrency
//
// A Tree performs no locking. Intermediate states during split or merge
// propagation break the invariants, so concurrent callers must hold one lock
// around each whole operation.
package bptree

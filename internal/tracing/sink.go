// Package tracing instruments the search tree with an optional, pluggable
// sink. The hot path always has a non-nil Sink (NoopSink by default) so
// callers never need a nil check; only BadgerSink does real work.
package tracing

// Sink receives search-tree lifecycle events. Node and tree identifiers are
// sink-assigned opaque integers; callers thread them back in for PushSibling,
// Set, and PopNode.
type Sink interface {
	NewSearch() (searchID uint64)
	NewTree(searchID uint64, rootFEN string) (treeID uint64)
	PushNode(treeID uint64, parent uint64, attrs NodeAttrs) (nodeID uint64)
	PushSibling(treeID uint64, node uint64, attrs NodeAttrs) (nodeID uint64)
	Set(node uint64, name string, value string)
	PopNode(node uint64)
	FinishTree(treeID uint64)
	FinishSearch(searchID uint64)
}

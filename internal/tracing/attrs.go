package tracing

// NodeAttrs is the fixed set of facts recorded at a search-tree node. Every
// Sink implementation receives the same shape regardless of what it keeps.
type NodeAttrs struct {
	Move       string
	Depth      int
	Alpha      int
	Beta       int
	Score      int
	Bound      string // "exact", "lower", "upper"
	StaticEval int
}

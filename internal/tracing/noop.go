package tracing

// NoopSink discards every event. It is the search's default sink so the hot
// path pays nothing for tracing when no sink is attached.
type NoopSink struct{}

var _ Sink = NoopSink{}

func (NoopSink) NewSearch() uint64                                     { return 0 }
func (NoopSink) NewTree(uint64, string) uint64                         { return 0 }
func (NoopSink) PushNode(uint64, uint64, NodeAttrs) uint64             { return 0 }
func (NoopSink) PushSibling(uint64, uint64, NodeAttrs) uint64          { return 0 }
func (NoopSink) Set(uint64, string, string)                           {}
func (NoopSink) PopNode(uint64)                                        {}
func (NoopSink) FinishTree(uint64)                                     {}
func (NoopSink) FinishSearch(uint64)                                   {}

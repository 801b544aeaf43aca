package chat

// Result is one question's answer plus the source set it draws on. A batch
// always yields exactly one Result per input question.
type Result struct {
	Answer  string
	Sources []string
}

// SectionInfo describes one indexed section of a collection, as recorded in
// the structure graph.
type SectionInfo struct {
	Title      string
	Order      int
	ChunkCount int
	HasTable   bool
}

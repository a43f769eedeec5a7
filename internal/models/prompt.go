package models

// CompiledPrompt is the immutable output of one prompt compilation. Text and
// ContentHash depend only on the compiler inputs.
type CompiledPrompt struct {
	Text        string      `json:"text"`
	ContentHash string      `json:"content_hash"`
	Sections    []BlockStat `json:"section_breakdown"`
	WordCount   int         `json:"word_count"`
	ListIDs     []string    `json:"smartlist_ids"`
	Warnings    []string    `json:"warnings,omitempty"`
}

// BlockStat describes one block of a compiled prompt.
type BlockStat struct {
	Name  string `json:"name"`
	Words int    `json:"words"`
	Chars int    `json:"chars"`
}

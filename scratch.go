package zstd

import "github.com/zstdgo/zstd/huff0"

// DecodeScratch bundles the state a frame's blocks share and mutate as they
// decode: the Huffman table carried forward for Treeless literals blocks,
// the three FSE sequence tables carried forward for Repeat-mode blocks, and
// the repeat-offset history. Reusing one scratch across a frame's blocks
// (and, with Reset, across frames) avoids rebuilding tables a Repeat/Treeless
// block doesn't touch, the same allocation-reuse discipline the teacher's
// decoder options apply to its own per-stream buffers.
type DecodeScratch struct {
	Huffman *huff0.Table
	Seq     SequenceTables
	Offsets OffsetHistory
}

// NewDecodeScratch returns a scratch bundle reset to a fresh frame's initial
// state (no prior tables, default offset history).
func NewDecodeScratch() *DecodeScratch {
	return &DecodeScratch{Offsets: NewOffsetHistory()}
}

// Reset clears carried-over tables and offset history for a new frame,
// optionally seeding from a loaded dictionary.
func (s *DecodeScratch) Reset(dict *Dictionary) {
	s.Seq = SequenceTables{}
	s.Huffman = nil
	s.Offsets = NewOffsetHistory()
	if dict != nil {
		s.Huffman = dict.Huffman
		s.Seq.LL, s.Seq.ML, s.Seq.OF = dict.LitLenTable, dict.MatchLenTable, dict.OffsetTable
		s.Offsets = OffsetHistory(dict.OffsetHistory)
	}
}

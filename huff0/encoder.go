package huff0

import (
	"fmt"
	"sort"

	"github.com/zstdgo/zstd/bitio"
)

// EncodeEntry is one symbol's canonical Huffman code, ready for bit-packing.
type EncodeEntry struct {
	Code    uint32
	NumBits uint8
}

// huffNode is a node of the Huffman merge tree; symbol is -1 for internal
// nodes.
type huffNode struct {
	weight      int64
	symbol      int
	left, right *huffNode
}

// buildHuffmanTree runs the textbook greedy merge (repeatedly combine the two
// lightest nodes) over every symbol with a nonzero count. A single-symbol
// alphabet gets a dummy sibling (symbol 0, or 1 when the real symbol is 0)
// so that symbol still receives a 1-bit code instead of a degenerate
// zero-length one; the dummy receives the other 1-bit code.
func buildHuffmanTree(counts []int32) *huffNode {
	var nodes []*huffNode
	for sym, c := range counts {
		if c > 0 {
			nodes = append(nodes, &huffNode{weight: int64(c), symbol: sym})
		}
	}
	if len(nodes) == 0 {
		return nil
	}
	if len(nodes) == 1 {
		dummy := 0
		if nodes[0].symbol == 0 {
			dummy = 1
		}
		return &huffNode{weight: nodes[0].weight, symbol: -1, left: nodes[0], right: &huffNode{symbol: dummy}}
	}
	for len(nodes) > 1 {
		sort.Slice(nodes, func(i, j int) bool { return nodes[i].weight < nodes[j].weight })
		a, b := nodes[0], nodes[1]
		parent := &huffNode{weight: a.weight + b.weight, symbol: -1, left: a, right: b}
		nodes = append(nodes[2:], parent)
	}
	return nodes[0]
}

func assignLengths(n *huffNode, depth uint8, lengths *[256]uint8) {
	if n == nil {
		return
	}
	if n.symbol >= 0 {
		if depth == 0 {
			depth = 1
		}
		lengths[n.symbol] = depth
		return
	}
	assignLengths(n.left, depth+1, lengths)
	assignLengths(n.right, depth+1, lengths)
}

// limitCodeLengths enforces limit as the maximum code length by clamping
// every over-length code down to it, then repeatedly lengthening the
// currently-shortest eligible codes until the Kraft sum (scaled by 1<<limit)
// is at most 1<<limit, and finally shortening the currently-longest codes
// until it is exactly 1<<limit. This is a simplified stand-in for the
// reference's optimal rebalancer: it always terminates (raising every code
// to limit bounds the sum well below target long before that) and always
// leaves a valid, uniquely-decodable canonical code, though not necessarily
// the minimum-redundancy one.
func limitCodeLengths(lengths *[256]uint8, limit uint8) {
	maxLen := uint8(0)
	for _, l := range lengths {
		if l > maxLen {
			maxLen = l
		}
	}
	if maxLen <= limit {
		return
	}
	type sym struct {
		idx int
		len uint8
	}
	var syms []sym
	for i, l := range lengths {
		if l == 0 {
			continue
		}
		if l > limit {
			l = limit
		}
		syms = append(syms, sym{i, l})
	}
	total := int64(0)
	for _, s := range syms {
		total += int64(1) << (limit - s.len)
	}
	target := int64(1) << limit
	for total > target {
		sort.Slice(syms, func(i, j int) bool { return syms[i].len < syms[j].len })
		for i := range syms {
			if syms[i].len < limit {
				total -= int64(1) << (limit - syms[i].len - 1)
				syms[i].len++
				break
			}
		}
	}
	for total < target {
		sort.Slice(syms, func(i, j int) bool { return syms[i].len > syms[j].len })
		total += int64(1) << (limit - syms[0].len)
		syms[0].len--
	}
	for _, s := range syms {
		lengths[s.idx] = s.len
	}
}

// BuildEncoder builds a canonical Huffman table for the given symbol
// frequency counts (indices 0..255), running the greedy merge then
// length-limiting to MaxMaxNumBits.
func BuildEncoder(counts []int32) (*Table, error) {
	root := buildHuffmanTree(counts)
	if root == nil {
		return nil, fmt.Errorf("huff0: no symbols to encode")
	}
	var lengths [256]uint8
	assignLengths(root, 0, &lengths)
	limitCodeLengths(&lengths, MaxMaxNumBits)

	maxLen := uint8(0)
	for _, l := range lengths {
		if l > maxLen {
			maxLen = l
		}
	}
	t := &Table{MaxNumBits: maxLen, CodeLengths: lengths}
	if err := t.buildDecodeEntries(); err != nil {
		return nil, err
	}
	return t, nil
}

// BuildEncodeTable derives each symbol's canonical code value directly from
// t.CodeLengths: codes of the same length are consecutive integers assigned
// in ascending symbol order, and each length's first code is the decode-table
// slot where the longer lengths' ranges end, shifted down to that length,
// mirroring how buildDecodeEntries partitions the decode table in slot-space.
func (t *Table) BuildEncodeTable() [256]EncodeEntry {
	var rankCount [MaxMaxNumBits + 2]int
	for _, l := range t.CodeLengths {
		if l > 0 {
			rankCount[l]++
		}
	}
	var codeBase [MaxMaxNumBits + 2]uint32
	next := uint32(0)
	for l := int(t.MaxNumBits); l >= 1; l-- {
		codeBase[l] = next >> (int(t.MaxNumBits) - l)
		next += uint32(rankCount[l]) << (int(t.MaxNumBits) - l)
	}
	var entries [256]EncodeEntry
	for sym, l := range t.CodeLengths {
		if l == 0 {
			continue
		}
		entries[sym] = EncodeEntry{Code: codeBase[l], NumBits: l}
		codeBase[l]++
	}
	return entries
}

// maxDirectWeights is the largest symbol-count a direct (uncompressed)
// weight header can describe: the header byte is 127+numWeights and must
// stay within a single byte.
const maxDirectWeights = 128

// WeightHeader serializes the table's code lengths as a direct weight list,
// the header format BuildDecoder's header<=127 branch does not use (that one
// is FSE-compressed); weight[sym] = maxBits+1-length, and the last used
// symbol's weight is implicit, mirroring buildTableFromWeights exactly. Only
// handles alphabets small enough for the direct format; callers with a
// larger alphabet should fall back to storing literals raw.
func (t *Table) WeightHeader() ([]byte, error) {
	lastUsed := -1
	for sym := 0; sym < 256; sym++ {
		if t.CodeLengths[sym] > 0 {
			lastUsed = sym
		}
	}
	if lastUsed < 0 {
		return nil, fmt.Errorf("huff0: table has no symbols")
	}
	if lastUsed > maxDirectWeights {
		return nil, fmt.Errorf("huff0: alphabet too large for direct weight header: %d", lastUsed)
	}

	weights := make([]uint8, lastUsed)
	for sym := 0; sym < lastUsed; sym++ {
		if l := t.CodeLengths[sym]; l > 0 {
			weights[sym] = t.MaxNumBits + 1 - l
		}
	}

	out := make([]byte, 1+(len(weights)+1)/2)
	out[0] = byte(127 + len(weights))
	for i, w := range weights {
		if i%2 == 0 {
			out[1+i/2] |= w << 4
		} else {
			out[1+i/2] |= w & 0x0f
		}
	}
	return out, nil
}

// Compress1X packs src's bytes into a single Huffman-coded stream using
// entries, prefixing the padding sentinel. Codes are written in natural
// forward order with no reversal: Decompress1X's sliding-window state
// machine consumes the stream symbol 0, 1, 2, ... in the same order they
// were written, unlike FSE's sequence coder.
func Compress1X(entries [256]EncodeEntry, src []byte) ([]byte, error) {
	dataBits := 0
	for _, b := range src {
		e := entries[b]
		if e.NumBits == 0 {
			return nil, fmt.Errorf("huff0: symbol %#x has no assigned code", b)
		}
		dataBits += int(e.NumBits)
	}
	padBits := (8 - (1+dataBits)%8) % 8

	w := bitio.NewWriter()
	for i := 0; i < padBits; i++ {
		w.WriteBits(0, 1)
	}
	w.WriteBits(1, 1)
	for _, b := range src {
		e := entries[b]
		w.WriteBits(uint64(e.Code), e.NumBits)
	}
	return w.Dump()
}

// Compress4X splits src into 4 roughly-equal parts (the first three are
// ceil(len/4) bytes and the last holds the remainder, so it may be shorter)
// and Huffman-codes each
// independently, returning the four streams in order.
func Compress4X(entries [256]EncodeEntry, src []byte) ([4][]byte, error) {
	var streams [4][]byte
	n := len(src)
	chunk := (n + 3) / 4
	for i := 0; i < 4; i++ {
		start := i * chunk
		if start > n {
			start = n
		}
		end := start + chunk
		if i == 3 || end > n {
			end = n
		}
		s, err := Compress1X(entries, src[start:end])
		if err != nil {
			return streams, err
		}
		streams[i] = s
	}
	return streams, nil
}

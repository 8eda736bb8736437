// Package huff0 implements Zstandard's canonical Huffman coder for literals:
// weight decode (direct nibbles or FSE-compressed), canonical table
// construction, and 1- or 4-stream decode, mirrored by an encoder.
package huff0

import (
	"fmt"

	"github.com/zstdgo/zstd/bitio"
	"github.com/zstdgo/zstd/fse"
)

// MaxMaxNumBits is the maximum canonical code length Zstd allows.
const MaxMaxNumBits = 11

// DTableEntry is one decode-table slot.
type DTableEntry struct {
	Symbol  uint8
	NumBits uint8
}

// Table is a built canonical Huffman decoding table.
type Table struct {
	MaxNumBits uint8
	Entries    []DTableEntry
	// CodeLengths[symbol] is the canonical code length (0 if unused), kept
	// around so the encoder can rebuild a matching canonical table.
	CodeLengths [256]uint8
}

// BuildDecoder parses a Huffman tree description from source (weight header
// plus weights) and builds the canonical decode table, returning the number
// of bytes consumed.
func BuildDecoder(source []byte) (*Table, int, error) {
	if len(source) == 0 {
		return nil, 0, fmt.Errorf("huff0: empty table description")
	}
	header := source[0]
	var weights []uint8
	var consumed int

	if header <= 127 {
		streamLen := int(header)
		if len(source) < 1+streamLen {
			return nil, 0, fmt.Errorf("huff0: need %d bytes of fse weight stream, have %d", streamLen, len(source)-1)
		}
		ws, err := decodeFSEWeights(source[1 : 1+streamLen])
		if err != nil {
			return nil, 0, err
		}
		weights = ws
		consumed = 1 + streamLen
	} else {
		numWeights := int(header) - 127
		nibbleBytes := (numWeights + 1) / 2
		if len(source) < 1+nibbleBytes {
			return nil, 0, fmt.Errorf("huff0: need %d bytes of direct weights, have %d", nibbleBytes, len(source)-1)
		}
		weights = make([]uint8, numWeights)
		for i := 0; i < numWeights; i++ {
			b := source[1+i/2]
			if i%2 == 0 {
				weights[i] = b >> 4
			} else {
				weights[i] = b & 0x0f
			}
		}
		consumed = 1 + nibbleBytes
	}

	table, err := buildTableFromWeights(weights)
	if err != nil {
		return nil, 0, err
	}
	return table, consumed, nil
}

// decodeFSEWeights decodes Huffman weights that were themselves
// FSE-compressed, using two interleaved FSE decoders over a single reverse
// bitstream (the standard Huff0 weight-compression scheme).
func decodeFSEWeights(stream []byte) ([]uint8, error) {
	fwd := bitio.NewReader(stream)
	probs, accLog, err := fse.ReadProbabilities(fwd, 6)
	if err != nil {
		return nil, fmt.Errorf("huff0: weight fse header: %w", err)
	}
	table, err := fse.BuildDecodingTable(probs, accLog)
	if err != nil {
		return nil, fmt.Errorf("huff0: weight fse table: %w", err)
	}

	// The probability header is forward-read; the remainder of the stream,
	// from wherever the forward reader stopped through the end, is the
	// reverse-coded weight payload.
	headerBytes := int((fwd.BitsRead() + 7) / 8)
	if headerBytes > len(stream) {
		return nil, fmt.Errorf("huff0: weight fse header overruns stream")
	}
	payload := stream[headerBytes:]

	rev := bitio.NewReverseReader(payload)
	skipped, err := rev.SkipPaddingSentinel()
	if err != nil {
		return nil, err
	}
	if skipped > 8 {
		return nil, fmt.Errorf("huff0: weight stream padding: %w", fmt.Errorf("more than 8 bits skipped"))
	}

	dec1 := fse.NewDecoder(table)
	dec2 := fse.NewDecoder(table)
	if err := dec1.InitState(rev); err != nil {
		return nil, err
	}
	if err := dec2.InitState(rev); err != nil {
		return nil, err
	}

	var weights []uint8
	for {
		weights = append(weights, dec1.Symbol())
		if err := dec1.UpdateState(rev); err != nil {
			return nil, err
		}
		if rev.BitsRemaining() < 0 {
			weights = append(weights, dec2.Symbol())
			break
		}

		weights = append(weights, dec2.Symbol())
		if err := dec2.UpdateState(rev); err != nil {
			return nil, err
		}
		if rev.BitsRemaining() < 0 {
			weights = append(weights, dec1.Symbol())
			break
		}
		if len(weights) > 255 {
			break
		}
	}

	if len(weights) > 255 {
		return nil, fmt.Errorf("huff0: too many weights: %d", len(weights))
	}
	return weights, nil
}

// buildTableFromWeights derives the implicit last weight, canonical code
// lengths, and the decode table per spec §4.3.
func buildTableFromWeights(weights []uint8) (*Table, error) {
	if len(weights) >= 256 {
		return nil, fmt.Errorf("huff0: too many symbols: %d", len(weights))
	}
	sum := int32(0)
	for _, w := range weights {
		if w > 0 {
			sum += int32(1) << (w - 1)
		}
	}
	if sum <= 0 {
		return nil, fmt.Errorf("huff0: weight sum must be positive")
	}
	maxBits := log2Exact(uint32(sum)) + 1
	leftover := (int32(1) << maxBits) - sum
	if leftover&(leftover-1) != 0 {
		return nil, fmt.Errorf("huff0: leftover %d is not a power of two", leftover)
	}
	lastWeight := uint8(log2Exact(uint32(leftover)) + 1)
	if maxBits > MaxMaxNumBits {
		return nil, fmt.Errorf("huff0: max_bits %d exceeds %d", maxBits, MaxMaxNumBits)
	}

	allWeights := append(append([]uint8{}, weights...), lastWeight)

	t := &Table{MaxNumBits: uint8(maxBits)}
	for sym, w := range allWeights {
		if w == 0 {
			continue
		}
		bits := uint8(maxBits) + 1 - w
		t.CodeLengths[sym] = bits
	}

	if err := t.buildDecodeEntries(); err != nil {
		return nil, err
	}
	return t, nil
}

// buildDecodeEntries constructs the canonical decode table from
// t.CodeLengths: for each descending code length, symbols get a
// rank-indexed base, and each symbol of length L occupies a contiguous run
// of 1<<(maxBits-L) table slots.
func (t *Table) buildDecodeEntries() error {
	size := 1 << t.MaxNumBits
	t.Entries = make([]DTableEntry, size)

	// rankCount[L] = number of symbols with code length L.
	var rankCount [MaxMaxNumBits + 2]int
	for _, l := range t.CodeLengths {
		if l > 0 {
			rankCount[l]++
		}
	}

	// rankStart[L] = first table index assigned to codes of length L,
	// descending from the longest codes (smallest ranges) first, matching
	// the reference's rank_indexes construction.
	var rankStart [MaxMaxNumBits + 2]int
	next := 0
	for l := int(t.MaxNumBits); l >= 1; l-- {
		rankStart[l] = next
		width := 1 << (int(t.MaxNumBits) - l)
		next += rankCount[l] * width
	}

	for sym, l := range t.CodeLengths {
		if l == 0 {
			continue
		}
		width := 1 << (int(t.MaxNumBits) - int(l))
		start := rankStart[l]
		for i := 0; i < width; i++ {
			t.Entries[start+i] = DTableEntry{Symbol: uint8(sym), NumBits: l}
		}
		rankStart[l] += width
	}
	return nil
}

func log2Ceil(v uint32) uint {
	n := uint(0)
	for (uint32(1) << n) < v {
		n++
	}
	return n
}

func log2Exact(v uint32) uint {
	n := uint(0)
	for v > 1 {
		v >>= 1
		n++
	}
	return n
}

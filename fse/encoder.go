package fse

import (
	"sort"

	"github.com/zstdgo/zstd/bitio"
)

// symbolTransform is one symbol's encode-table entry, built the way the
// reference FSE table builder derives it: deltaNbBits packs the "bits to
// output this step" computation into a single add-then-shift, and
// deltaFindState is the stateTable offset (relative to the post-shift value)
// that lands on the correct next state for this symbol.
type symbolTransform struct {
	deltaNbBits    int64
	deltaFindState int32
}

// EncTable is the encode-side mirror of Table. It is built from the same
// normalized distribution and reuses BuildDecodingTable's state spread, so a
// stream written with this table and read back with the matching decode
// Table reproduces the original symbols exactly.
type EncTable struct {
	AccuracyLog uint8
	// stateTable[pos] holds tableSize+u for the u-th raw decode state,
	// indexed by the cumulative per-symbol rank position pos, exactly as
	// the reference FSE_buildCTable lays it out.
	stateTable []uint32
	transforms []symbolTransform
	counts     []int32
}

// BuildEncodingTable constructs the encoder's mirror of the decode table
// from the same probability distribution used to build it, so encode and
// decode stay bit-exact inverses of each other.
func BuildEncodingTable(probs []int32, accuracyLog uint8) (*EncTable, error) {
	dec, err := BuildDecodingTable(probs, accuracyLog)
	if err != nil {
		return nil, err
	}
	tableSize := int32(1) << accuracyLog

	// cumulStart[s] = number of table slots occupied by symbols < s (a -1
	// low-probability symbol occupies exactly one slot, like a count of 1).
	cumulStart := make([]int32, len(probs)+1)
	for s, p := range probs {
		c := p
		if p < 0 {
			c = 1
		}
		cumulStart[s+1] = cumulStart[s] + c
	}

	cursor := append([]int32{}, cumulStart[:len(probs)]...)
	stateTable := make([]uint32, tableSize)
	for u, e := range dec.Entries {
		pos := cursor[e.Symbol]
		cursor[e.Symbol]++
		stateTable[pos] = uint32(tableSize) + uint32(u)
	}

	transforms := make([]symbolTransform, len(probs))
	total := int32(0)
	for s, p := range probs {
		switch {
		case p == 0:
			transforms[s] = symbolTransform{
				deltaNbBits: (int64(accuracyLog)+1)<<16 - int64(tableSize),
			}
		case p == -1 || p == 1:
			transforms[s] = symbolTransform{
				deltaNbBits:    int64(accuracyLog)<<16 - int64(tableSize),
				deltaFindState: total - 1,
			}
			total++
		default:
			maxBitsOut := uint32(accuracyLog) - uint32(log2(uint32(p-1)))
			minStatePlus := int64(p) << maxBitsOut
			transforms[s] = symbolTransform{
				deltaNbBits:    int64(maxBitsOut)<<16 - minStatePlus,
				deltaFindState: total - p,
			}
			total += p
		}
	}

	counts := make([]int32, len(probs))
	copy(counts, probs)
	return &EncTable{AccuracyLog: accuracyLog, stateTable: stateTable, transforms: transforms, counts: counts}, nil
}

// CountSymbols builds a raw frequency histogram over data (indices 0..maxSym).
func CountSymbols(data []byte, maxSym int) []int32 {
	counts := make([]int32, maxSym+1)
	for _, b := range data {
		counts[b]++
	}
	return counts
}

// NormalizeCounts scales raw counts to sum exactly to 1<<accuracyLog: every
// symbol with a nonzero count gets at least 1 slot, then the remainder is
// distributed to the largest counts, largest remainder first, the same
// largest-remainder scheme the reference normalizer uses.
func NormalizeCounts(counts []int32, accuracyLog uint8) []int32 {
	total := int32(0)
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return counts
	}
	tableSize := int32(1) << accuracyLog
	norm := make([]int32, len(counts))
	type rem struct {
		idx int
		r   int64
	}
	var rems []rem
	assigned := int32(0)
	for i, c := range counts {
		if c == 0 {
			continue
		}
		scaled := int64(c) * int64(tableSize) / int64(total)
		if scaled == 0 {
			scaled = 1
		}
		norm[i] = int32(scaled)
		assigned += int32(scaled)
		rems = append(rems, rem{i, int64(c)*int64(tableSize) % int64(total)})
	}
	diff := tableSize - assigned
	sort.Slice(rems, func(i, j int) bool { return rems[i].r > rems[j].r })
	for i := 0; diff != 0 && len(rems) > 0; i = (i + 1) % len(rems) {
		if diff > 0 {
			norm[rems[i].idx]++
			diff--
		} else {
			if norm[rems[i].idx] > 1 {
				norm[rems[i].idx]--
				diff++
			}
		}
	}
	return norm
}

// Encoder drives one FSE-coded stream's running state. Zstd's sequences are
// encoded back to front: Init seeds the state from the logically-last
// symbol without emitting anything, then Encode is called once per
// remaining symbol in descending index order, each call emitting the bits
// for the CURRENT state before advancing to the next one. The resulting
// Writer output, once dumped, is read forward by a ReverseReader walking
// the byte slice from its end, reconstructing the original ascending order.
type Encoder struct {
	table *EncTable
	value uint32
}

// NewEncoder binds an encoder to a built table.
func NewEncoder(t *EncTable) *Encoder {
	return &Encoder{table: t}
}

// Init seeds state from the first symbol encoded (the stream's logically
// last symbol) without writing any bits, choosing the state that costs the
// fewest bits for that symbol, mirroring FSE_initCState2.
func (e *Encoder) Init(symbol uint8) {
	tr := e.table.transforms[symbol]
	nbBitsOut := uint32((tr.deltaNbBits + (1 << 15)) >> 16)
	v := (int64(nbBitsOut) << 16) - tr.deltaNbBits
	idx := int32(v>>int64(nbBitsOut)) + tr.deltaFindState
	e.value = e.table.stateTable[idx]
}

// Encode writes the bits needed to leave the current state for symbol's
// state, then advances, mirroring FSE_encodeSymbol.
func (e *Encoder) Encode(w *bitio.Writer, symbol uint8) {
	value, nbBits := e.EncodeBits(symbol)
	w.WriteBits(value, nbBits)
}

// EncodeBits computes and returns the (value, bit-count) pair Encode would
// write, advancing state the same way, without touching a Writer. Callers
// that must reorder a sequence's encode calls before writing them out (the
// bitstream's final read order runs opposite to the backward order this
// encoder naturally computes in) use this to capture each step's bits first.
func (e *Encoder) EncodeBits(symbol uint8) (value uint64, nbBits uint8) {
	tr := e.table.transforms[symbol]
	nbBitsOut := uint32((int64(e.value) + tr.deltaNbBits) >> 16)
	value = uint64(e.value)
	nbBits = uint8(nbBitsOut)
	idx := int32(e.value>>nbBitsOut) + tr.deltaFindState
	e.value = e.table.stateTable[idx]
	return value, nbBits
}

// Flush writes the final state using AccuracyLog bits, which is what the
// decoder's InitState expects to read first.
func (e *Encoder) Flush(w *bitio.Writer) {
	w.WriteBits(uint64(e.value), e.table.AccuracyLog)
}

// State returns the encoder's current running state value.
func (e *Encoder) State() uint32 { return e.value }

// AccuracyLog returns the bound table's accuracy log.
func (e *Encoder) AccuracyLog() uint8 { return e.table.AccuracyLog }

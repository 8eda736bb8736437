// Package fse implements Zstandard's Finite State Entropy (tANS) coder:
// probability-distribution decode, decoding/encoding table construction, and
// state init/update, mirrored between decoder and encoder.
package fse

import (
	"fmt"

	"github.com/zstdgo/zstd/bitio"
)

// AccuracyLogOffset is added to the 4-bit header value to get accuracy_log.
const AccuracyLogOffset = 5

// MaxSymbolValue bounds the largest symbol this table can hold (256 covers
// literals; sequence code tables use smaller alphabets).
const MaxSymbolValue = 255

// Entry is one decode-table slot.
type Entry struct {
	Symbol   uint8
	BaseLine uint16
	NumBits  uint8
}

// Table is a built FSE decoding table, sized 1<<AccuracyLog.
type Table struct {
	AccuracyLog uint8
	Entries     []Entry
	// SymbolCounts is a copy of the probability array the table was built
	// from, one entry per symbol.
	SymbolCounts []int32
}

// ReadProbabilities decodes the FSE probability header per spec §4.2:
// accuracy_log = 5 + get_bits(4); then a sequence of variable-width signed
// probabilities (with -1 "low probability" sentinels and a 2-bit skip-run
// for runs of zero-probability symbols), until the running sum of positive
// probabilities plus the count of -1 entries equals 1<<accuracy_log.
func ReadProbabilities(r *bitio.Reader, maxLog uint8) (probs []int32, accuracyLog uint8, err error) {
	raw, err := r.GetBits(4)
	if err != nil {
		return nil, 0, fmt.Errorf("fse: reading accuracy log: %w", err)
	}
	accuracyLog = AccuracyLogOffset + uint8(raw)
	if accuracyLog == 0 {
		return nil, 0, fmt.Errorf("fse: accuracy log is zero")
	}
	if accuracyLog > maxLog {
		return nil, 0, fmt.Errorf("fse: accuracy log %d exceeds max %d", accuracyLog, maxLog)
	}

	target := int32(1) << accuracyLog
	remaining := target
	probs = make([]int32, 0, 64)

	for remaining > 0 {
		// width = ceil(log2(remaining+2)) bits, with a low-threshold
		// correction: values below the threshold fit in one fewer bit, and
		// values at or above 1<<(width-1) are stored offset by the threshold.
		bitsNeeded := bitWidth(uint32(remaining + 2))
		threshold := (int32(1) << bitsNeeded) - 2 - remaining

		small, err := r.GetBits(uint8(bitsNeeded - 1))
		if err != nil {
			return nil, 0, fmt.Errorf("fse: reading probability: %w", err)
		}
		var value int32
		if int32(small) < threshold {
			value = int32(small)
		} else {
			extra, err := r.GetBits(1)
			if err != nil {
				return nil, 0, fmt.Errorf("fse: reading probability extra bit: %w", err)
			}
			value = int32(small) + (int32(extra) << (bitsNeeded - 1))
			if extra == 1 {
				value -= threshold
			}
		}

		prob := value - 1
		probs = append(probs, prob)
		if prob > 0 {
			remaining -= prob
		} else if prob == -1 {
			remaining--
		} else {
			// prob == 0: a run of zero-probability symbols follows, encoded
			// as repeated 2-bit "skip count" values; a value < 3 ends the run.
			for {
				repeat, err := r.GetBits(2)
				if err != nil {
					return nil, 0, fmt.Errorf("fse: reading zero-run repeat: %w", err)
				}
				for i := uint64(0); i < repeat; i++ {
					probs = append(probs, 0)
				}
				if repeat < 3 {
					break
				}
			}
		}
	}

	if remaining != 0 {
		return nil, 0, fmt.Errorf("fse: probability sum mismatch, remaining=%d", remaining)
	}
	return probs, accuracyLog, nil
}

// WriteProbabilities serializes probs (one entry per symbol, 0..maxSymbol,
// as produced by NormalizeCounts) into the exact bitstream ReadProbabilities
// parses: accuracy_log as 4 bits, then each symbol's variable-width signed
// probability, with runs of zero-probability symbols collapsed into the
// same 2-bit skip-run encoding.
func WriteProbabilities(probs []int32, accuracyLog uint8) []byte {
	w := bitio.NewForwardWriter()
	w.WriteBits(uint64(accuracyLog-AccuracyLogOffset), 4)

	target := int32(1) << accuracyLog
	remaining := target
	i := 0
	for remaining > 0 && i < len(probs) {
		bitsNeeded := bitWidth(uint32(remaining + 2))
		threshold := (int32(1) << bitsNeeded) - 2 - remaining

		prob := probs[i]
		value := prob + 1
		switch {
		case value < threshold:
			w.WriteBits(uint64(value), uint8(bitsNeeded-1))
		case value < int32(1)<<(bitsNeeded-1):
			w.WriteBits(uint64(value), uint8(bitsNeeded))
		default:
			w.WriteBits(uint64(value+threshold), uint8(bitsNeeded))
		}
		i++

		switch {
		case prob > 0:
			remaining -= prob
		case prob == -1:
			remaining--
		default:
			// prob == 0: count the run of additional consecutive zeros
			// (the symbol just written already accounts for the first one)
			// and emit it as repeated 2-bit codes, the last under 3 to
			// terminate the run, mirroring the decode loop exactly.
			run := 0
			for i < len(probs) && probs[i] == 0 {
				run++
				i++
			}
			full := run / 3
			rem := run % 3
			for j := 0; j < full; j++ {
				w.WriteBits(3, 2)
			}
			w.WriteBits(uint64(rem), 2)
		}
	}
	return w.Bytes()
}

func bitWidth(v uint32) uint {
	n := uint(0)
	for (uint32(1) << n) < v {
		n++
	}
	return n
}

// BuildDecodingTable constructs the decode table from a probability array
// per spec §4.2 steps 1-4.
func BuildDecodingTable(probs []int32, accuracyLog uint8) (*Table, error) {
	tableSize := int32(1) << accuracyLog
	entries := make([]Entry, tableSize)
	taken := make([]bool, tableSize)

	// Step 2: place -1 ("low probability") symbols into descending slots at
	// the end of the table, each with num_bits = accuracyLog, base_line = 0.
	highThreshold := tableSize - 1
	for symbol, prob := range probs {
		if prob == -1 {
			entries[highThreshold] = Entry{Symbol: uint8(symbol), BaseLine: 0, NumBits: accuracyLog}
			taken[highThreshold] = true
			highThreshold--
		}
	}

	// Step 3: spread positive-probability symbols using the step rule.
	mask := tableSize - 1
	step := (tableSize >> 1) + (tableSize >> 3) + 3
	pos := int32(0)
	for symbol, prob := range probs {
		if prob <= 0 {
			continue
		}
		for i := int32(0); i < prob; i++ {
			for taken[pos] {
				pos = (pos + step) & mask
			}
			entries[pos].Symbol = uint8(symbol)
			taken[pos] = true
			pos = (pos + step) & mask
		}
	}

	// symbolSlots[symbol] accumulates the table indices assigned to it, built
	// by a single forward pass over ascending physical table index rather
	// than the order slots happened to be visited during the step-3 scatter:
	// the per-symbol rank used below to split double/single-width buckets is
	// defined by ascending index, not by scatter order.
	symbolSlots := make(map[int][]int32)
	for idx := int32(0); idx < tableSize; idx++ {
		symbol := int(entries[idx].Symbol)
		if probs[symbol] <= 0 {
			continue
		}
		symbolSlots[symbol] = append(symbolSlots[symbol], idx)
	}

	// Step 4: for each symbol, compute (base_line, num_bits) per slot by
	// partitioning its assigned state range into power-of-two buckets.
	for symbol, prob := range probs {
		if prob <= 0 {
			continue
		}
		slots := symbolSlots[symbol]
		ns := nextPow2(uint32(prob))
		double := int32(ns) - prob
		slice := tableSize / int32(ns)
		nb := log2(uint32(slice))

		for i, slot := range slots {
			if int32(i) < double {
				entries[slot].NumBits = uint8(nb + 1)
				entries[slot].BaseLine = uint16(((prob - double + 2*int32(i)) * slice) % tableSize)
			} else {
				entries[slot].NumBits = uint8(nb)
				entries[slot].BaseLine = uint16((int32(i-int(double)) * slice))
			}
		}
	}

	counts := make([]int32, len(probs))
	copy(counts, probs)

	return &Table{AccuracyLog: accuracyLog, Entries: entries, SymbolCounts: counts}, nil
}

func nextPow2(v uint32) uint32 {
	if v == 0 {
		return 1
	}
	p := uint32(1)
	for p < v {
		p <<= 1
	}
	return p
}

func log2(v uint32) uint {
	n := uint(0)
	for v > 1 {
		v >>= 1
		n++
	}
	return n
}

// Decoder holds the running state for decoding one FSE-coded stream.
type Decoder struct {
	table *Table
	state uint32
}

// NewDecoder binds a decoder to a built table.
func NewDecoder(t *Table) *Decoder {
	return &Decoder{table: t}
}

// InitState reads accuracy_log bits to seed the initial state.
func (d *Decoder) InitState(r *bitio.ReverseReader) error {
	v, err := r.GetBits(d.table.AccuracyLog)
	if err != nil {
		return err
	}
	d.state = uint32(v)
	return nil
}

// Symbol returns the symbol for the current state without advancing.
func (d *Decoder) Symbol() uint8 {
	return d.table.Entries[d.state].Symbol
}

// Entry returns the decode-table entry for the current state.
func (d *Decoder) Entry() Entry {
	return d.table.Entries[d.state]
}

// UpdateState advances the state machine by reading the current entry's
// num_bits from r and adding them to its base_line.
func (d *Decoder) UpdateState(r *bitio.ReverseReader) error {
	e := d.table.Entries[d.state]
	v, err := r.GetBits(e.NumBits)
	if err != nil {
		return err
	}
	d.state = uint32(e.BaseLine) + uint32(v)
	return nil
}

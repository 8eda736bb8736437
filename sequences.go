package zstd

import (
	"fmt"

	"github.com/zstdgo/zstd/bitio"
	"github.com/zstdgo/zstd/fse"
)

// SequenceMode selects how one of the three sequence code tables (literal
// length, match length, offset) is obtained for a block.
type SequenceMode byte

const (
	ModePredefined SequenceMode = iota
	ModeRLE
	ModeFSECompressed
	ModeRepeat
)

// CompressionModes is the byte following the num_sequences field, packing
// the literal-length, offset, and match-length modes into 2 bits each.
type CompressionModes byte

func (m CompressionModes) llMode() SequenceMode { return SequenceMode(m >> 6) }
func (m CompressionModes) ofMode() SequenceMode { return SequenceMode((m >> 4) & 0x3) }
func (m CompressionModes) mlMode() SequenceMode { return SequenceMode((m >> 2) & 0x3) }

// SequencesHeader is the parsed sequences-section header.
type SequencesHeader struct {
	NumSequences uint32
	Modes        CompressionModes
}

// Sequence is one decoded (literal_length, match_length, offset) triple,
// with offset already a raw code-derived value (not yet resolved against
// repeat-offset history).
type Sequence struct {
	LL uint32
	ML uint32
	OF uint32
}

// ParseSequencesHeader parses num_sequences (1-3 bytes, variable width) and
// the following compression-modes byte.
func ParseSequencesHeader(src []byte) (*SequencesHeader, int, error) {
	if len(src) == 0 {
		return nil, 0, fmt.Errorf("zstd: %w: sequences header", ErrTruncatedHeader)
	}
	h := &SequencesHeader{}
	switch {
	case src[0] == 0:
		h.NumSequences = 0
		return h, 1, nil
	case src[0] <= 127:
		if len(src) < 2 {
			return nil, 0, fmt.Errorf("zstd: %w: sequences header", ErrTruncatedHeader)
		}
		h.NumSequences = uint32(src[0])
		h.Modes = CompressionModes(src[1])
		return h, 2, nil
	case src[0] <= 254:
		if len(src) < 3 {
			return nil, 0, fmt.Errorf("zstd: %w: sequences header", ErrTruncatedHeader)
		}
		h.NumSequences = (uint32(src[0])-128)<<8 + uint32(src[1])
		h.Modes = CompressionModes(src[2])
		return h, 3, nil
	default:
		if len(src) < 4 {
			return nil, 0, fmt.Errorf("zstd: %w: sequences header", ErrTruncatedHeader)
		}
		h.NumSequences = uint32(src[1]) + uint32(src[2])<<8 + 0x7F00
		h.Modes = CompressionModes(src[3])
		return h, 4, nil
	}
}

// llBaseline/llExtraBits and mlBaseline/mlExtraBits give (baseline, extra_bits) for each literal-
// length / match-length code, per the fixed code tables; codes beyond the
// linear run (16..35 for LL, 32..52 for ML) grow geometrically.
var llBaseline = [36]uint32{
	0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15,
	16, 18, 20, 22, 24, 28, 32, 40, 48, 64, 128, 256, 512, 1024, 2048, 4096,
	8192, 16384, 32768, 65536,
}
var llExtraBits = [36]uint8{
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	1, 1, 1, 1, 2, 2, 3, 3, 4, 6, 7, 8, 9, 10, 11, 12,
	13, 14, 15, 16,
}

var mlBaseline = [53]uint32{
	3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18,
	19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31, 32, 33, 34,
	35, 37, 39, 41, 43, 47, 51, 59, 67, 83, 99, 131, 259, 515, 1027, 2051,
	4099, 8195, 16387, 32771, 65539,
}
var mlExtraBits = [53]uint8{
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	1, 1, 1, 1, 2, 2, 3, 3, 4, 4, 5, 7, 8, 9, 10, 11,
	12, 13, 14, 15, 16,
}

func lookupLL(code uint8) (uint32, uint8, error) {
	if int(code) >= len(llBaseline) {
		return 0, 0, fmt.Errorf("zstd: invalid literal length code %d", code)
	}
	return llBaseline[code], llExtraBits[code], nil
}

func lookupML(code uint8) (uint32, uint8, error) {
	if int(code) >= len(mlBaseline) {
		return 0, 0, fmt.Errorf("zstd: invalid match length code %d", code)
	}
	return mlBaseline[code], mlExtraBits[code], nil
}

// SequenceTables bundles the three FSE decode tables carried across blocks:
// a Repeat-mode block reuses whatever table (predefined, RLE, or
// FSE-compressed) the previous Compressed block in the frame last built.
type SequenceTables struct {
	LL, ML, OF     *fse.Table
	llRLE, mlRLE   *uint8
	ofRLE          *uint8
	llSet, mlSet   bool
	ofSet          bool
}

const (
	llMaxLog = 9
	mlMaxLog = 9
	ofMaxLog = 8
)

// updateTables applies the header's per-table modes, consuming bytes from
// src in LL, OF, ML order (the format's fixed table order), and returns the
// number of bytes consumed.
func (st *SequenceTables) updateTables(modes CompressionModes, src []byte) (int, error) {
	pos := 0

	apply := func(mode SequenceMode, maxLog uint8, slot **fse.Table, rleSlot **uint8, predefined []int32, predefinedLog uint8, name string) error {
		switch mode {
		case ModeFSECompressed:
			fwd := bitio.NewReader(src[pos:])
			probs, accLog, err := fse.ReadProbabilities(fwd, maxLog)
			if err != nil {
				return fmt.Errorf("zstd: %s fse header: %w", name, err)
			}
			t, err := fse.BuildDecodingTable(probs, accLog)
			if err != nil {
				return fmt.Errorf("zstd: %s fse table: %w", name, err)
			}
			*slot = t
			*rleSlot = nil
			pos += int((fwd.BitsRead() + 7) / 8)
		case ModeRLE:
			if pos >= len(src) {
				return fmt.Errorf("zstd: %w: %s rle byte", ErrTruncatedHeader, name)
			}
			b := src[pos]
			*rleSlot = &b
			pos++
		case ModePredefined:
			t, err := fse.BuildDecodingTable(predefined, predefinedLog)
			if err != nil {
				return err
			}
			*slot = t
			*rleSlot = nil
		case ModeRepeat:
			if *slot == nil && *rleSlot == nil {
				return fmt.Errorf("zstd: %s %w", name, ErrNoFSETable)
			}
		}
		return nil
	}

	if err := apply(modes.llMode(), llMaxLog, &st.LL, &st.llRLE, fse.LiteralLengthDefaultDistribution, fse.LiteralLengthDefaultAccuracyLog, "LL"); err != nil {
		return 0, err
	}
	if err := apply(modes.ofMode(), ofMaxLog, &st.OF, &st.ofRLE, fse.OffsetDefaultDistribution, fse.OffsetDefaultAccuracyLog, "OF"); err != nil {
		return 0, err
	}
	if err := apply(modes.mlMode(), mlMaxLog, &st.ML, &st.mlRLE, fse.MatchLengthDefaultDistribution, fse.MatchLengthDefaultAccuracyLog, "ML"); err != nil {
		return 0, err
	}
	return pos, nil
}

// DecodeSequences updates st per header.Modes, then decodes NumSequences
// triples from the reverse bitstream that follows. Per-sequence bit order is
// offset-extra, match-length-extra, literal-length-extra; FSE state updates
// after each sequence run literal-length, match-length, offset, an
// asymmetry carried over unchanged from the reference decoder.
func DecodeSequences(header *SequencesHeader, st *SequenceTables, src []byte) ([]Sequence, error) {
	consumed, err := st.updateTables(header.Modes, src)
	if err != nil {
		return nil, err
	}
	if header.NumSequences == 0 {
		return nil, nil
	}

	r := bitio.NewReverseReader(src[consumed:])
	skipped, err := r.SkipPaddingSentinel()
	if err != nil {
		return nil, err
	}
	if skipped > 8 {
		return nil, ErrExtraPadding
	}

	var llDec, mlDec, ofDec *fse.Decoder
	if st.llRLE == nil {
		llDec = fse.NewDecoder(st.LL)
		if err := llDec.InitState(r); err != nil {
			return nil, err
		}
	}
	if st.ofRLE == nil {
		ofDec = fse.NewDecoder(st.OF)
		if err := ofDec.InitState(r); err != nil {
			return nil, err
		}
	}
	if st.mlRLE == nil {
		mlDec = fse.NewDecoder(st.ML)
		if err := mlDec.InitState(r); err != nil {
			return nil, err
		}
	}

	out := make([]Sequence, 0, header.NumSequences)
	for i := uint32(0); i < header.NumSequences; i++ {
		var llCode, mlCode, ofCode uint8
		if st.llRLE != nil {
			llCode = *st.llRLE
		} else {
			llCode = llDec.Symbol()
		}
		if st.mlRLE != nil {
			mlCode = *st.mlRLE
		} else {
			mlCode = mlDec.Symbol()
		}
		if st.ofRLE != nil {
			ofCode = *st.ofRLE
		} else {
			ofCode = ofDec.Symbol()
		}

		llBase, llBits, err := lookupLL(llCode)
		if err != nil {
			return nil, err
		}
		mlBase, mlBits, err := lookupML(mlCode)
		if err != nil {
			return nil, err
		}
		if ofCode > 32 {
			return nil, ErrOffsetCodeTooLarge
		}

		ofExtra, err := r.GetBits(ofCode)
		if err != nil {
			return nil, err
		}
		offset := uint32(ofExtra) + (uint32(1) << ofCode)

		mlExtra, err := r.GetBits(mlBits)
		if err != nil {
			return nil, err
		}
		llExtra, err := r.GetBits(llBits)
		if err != nil {
			return nil, err
		}

		if offset == 0 {
			return nil, ErrOffsetZero
		}

		out = append(out, Sequence{
			LL: llBase + uint32(llExtra),
			ML: mlBase + uint32(mlExtra),
			OF: offset,
		})

		if i+1 < header.NumSequences {
			if st.llRLE == nil {
				if err := llDec.UpdateState(r); err != nil {
					return nil, err
				}
			}
			if st.mlRLE == nil {
				if err := mlDec.UpdateState(r); err != nil {
					return nil, err
				}
			}
			if st.ofRLE == nil {
				if err := ofDec.UpdateState(r); err != nil {
					return nil, err
				}
			}
		}
	}

	if r.BitsRemaining() > 0 {
		return nil, ErrBitstreamNotExhausted
	}
	return out, nil
}

// ResolveOffset applies the repeat-offset history rules of spec §4.8,
// returning the actual match offset and updating hist in place.
func ResolveOffset(ofValue, litLen uint32, hist *[3]uint32) (uint32, error) {
	var actual uint32
	if litLen > 0 {
		switch ofValue {
		case 1, 2, 3:
			actual = hist[ofValue-1]
		default:
			actual = ofValue - 3
		}
	} else {
		switch ofValue {
		case 1, 2:
			actual = hist[ofValue]
		case 3:
			if hist[0] == 0 {
				return 0, ErrOffsetZero
			}
			actual = hist[0] - 1
		default:
			actual = ofValue - 3
		}
	}

	if actual == 0 {
		return 0, ErrOffsetZero
	}

	if litLen > 0 {
		switch ofValue {
		case 1:
			// history unchanged
		case 2:
			hist[1] = hist[0]
			hist[0] = actual
		default:
			hist[2] = hist[1]
			hist[1] = hist[0]
			hist[0] = actual
		}
	} else {
		switch ofValue {
		case 1:
			hist[1] = hist[0]
			hist[0] = actual
		default:
			hist[2] = hist[1]
			hist[1] = hist[0]
			hist[0] = actual
		}
	}

	return actual, nil
}

// tableTransitions holds one FSE table's encode output, precomputed by
// running Init/EncodeBits backward from the last symbol to the first: init
// is the state (and its fixed AccuracyLog width) that a decoder's InitState
// call reads first, and transitions[i] is the (value, width) pair a
// decoder's UpdateState reads right after decoding symbol i, for every i but
// the last.
type tableTransitions struct {
	initValue          uint64
	initBits           uint8
	transValue         []uint64
	transBits          []uint8
}

// precomputeTransitions runs the backward FSE encode pass described above
// for one code sequence, without writing anything yet; the caller then
// emits the captured chunks in ascending (decode) order.
func precomputeTransitions(table *fse.EncTable, codes []uint8) tableTransitions {
	n := len(codes)
	enc := fse.NewEncoder(table)
	enc.Init(codes[n-1])
	tt := tableTransitions{
		transValue: make([]uint64, n-1),
		transBits:  make([]uint8, n-1),
	}
	for k := n - 2; k >= 0; k-- {
		v, b := enc.EncodeBits(codes[k])
		tt.transValue[k] = v
		tt.transBits[k] = b
	}
	tt.initValue = uint64(enc.State())
	tt.initBits = enc.AccuracyLog()
	return tt
}

// EncodeSequencesPredefined encodes sequences using the three predefined FSE
// tables (the "Fastest" encode level never emits custom distributions),
// writing the variable-length num_sequences prefix, a Predefined-only
// compression-modes byte, then the FSE-coded bitstream.
//
// FSE's state machine runs backward: the classic encode algorithm seeds
// state from the LAST sequence and walks down to the first, so the bit
// chunks it produces come out in the opposite order from how a decoder (or
// a ReverseReader, which reads physical bits in exactly write-call order)
// will consume them. precomputeTransitions captures every chunk first; this
// function then replays them in the decoder's actual read order: LL/OF/ML
// init states, then per sequence ascending from 0, offset/match/literal
// extra bits followed by the LL/ML/OF state transition for that step.
func EncodeSequencesPredefined(seqs []Sequence) ([]byte, error) {
	hdr := encodeNumSequences(uint32(len(seqs)))
	hdr = append(hdr, byte(ModePredefined)<<6|byte(ModePredefined)<<4|byte(ModePredefined)<<2)
	if len(seqs) == 0 {
		return hdr, nil
	}

	llTable, err := fse.BuildEncodingTable(fse.LiteralLengthDefaultDistribution, fse.LiteralLengthDefaultAccuracyLog)
	if err != nil {
		return nil, err
	}
	mlTable, err := fse.BuildEncodingTable(fse.MatchLengthDefaultDistribution, fse.MatchLengthDefaultAccuracyLog)
	if err != nil {
		return nil, err
	}
	ofTable, err := fse.BuildEncodingTable(fse.OffsetDefaultDistribution, fse.OffsetDefaultAccuracyLog)
	if err != nil {
		return nil, err
	}

	n := len(seqs)
	llCodes := make([]uint8, n)
	mlCodes := make([]uint8, n)
	ofCodes := make([]uint8, n)
	llExtraVal := make([]uint64, n)
	mlExtraVal := make([]uint64, n)
	ofExtraVal := make([]uint64, n)
	llExtraBitsN := make([]uint8, n)
	mlExtraBitsN := make([]uint8, n)
	ofExtraBitsN := make([]uint8, n)
	for i, s := range seqs {
		llCode, llBits := llCodeForValue(s.LL)
		mlCode, mlBits := mlCodeForValue(s.ML)
		ofCode, ofBits := ofCodeForValue(s.OF)
		llCodes[i], mlCodes[i], ofCodes[i] = llCode, mlCode, ofCode
		llExtraVal[i] = uint64(s.LL - llBaseline[llCode])
		mlExtraVal[i] = uint64(s.ML - mlBaseline[mlCode])
		ofExtraVal[i] = uint64(s.OF - (uint32(1) << ofCode))
		llExtraBitsN[i], mlExtraBitsN[i], ofExtraBitsN[i] = llBits, mlBits, ofBits
	}

	ll := precomputeTransitions(llTable, llCodes)
	ml := precomputeTransitions(mlTable, mlCodes)
	of := precomputeTransitions(ofTable, ofCodes)

	total := int(ll.initBits) + int(of.initBits) + int(ml.initBits)
	for i := 0; i < n; i++ {
		total += int(ofExtraBitsN[i]) + int(mlExtraBitsN[i]) + int(llExtraBitsN[i])
	}
	for i := 0; i < n-1; i++ {
		total += int(ll.transBits[i]) + int(ml.transBits[i]) + int(of.transBits[i])
	}
	padBits := (8 - (1+total)%8) % 8

	w := bitio.NewWriter()
	for i := 0; i < padBits; i++ {
		w.WriteBits(0, 1)
	}
	w.WriteBits(1, 1)

	w.WriteBits(ll.initValue, ll.initBits)
	w.WriteBits(of.initValue, of.initBits)
	w.WriteBits(ml.initValue, ml.initBits)

	for i := 0; i < n; i++ {
		w.WriteBits(ofExtraVal[i], ofExtraBitsN[i])
		w.WriteBits(mlExtraVal[i], mlExtraBitsN[i])
		w.WriteBits(llExtraVal[i], llExtraBitsN[i])
		if i < n-1 {
			w.WriteBits(ll.transValue[i], ll.transBits[i])
			w.WriteBits(ml.transValue[i], ml.transBits[i])
			w.WriteBits(of.transValue[i], of.transBits[i])
		}
	}

	body, err := w.Dump()
	if err != nil {
		return nil, err
	}
	return append(hdr, body...), nil
}

func encodeNumSequences(n uint32) []byte {
	switch {
	case n == 0:
		return []byte{0}
	case n < 128:
		return []byte{byte(n)}
	case n < 0x7F00:
		return []byte{byte((n >> 8) + 128), byte(n)}
	default:
		rest := n - 0x7F00
		return []byte{255, byte(rest), byte(rest >> 8)}
	}
}

func llCodeForValue(v uint32) (uint8, uint8) {
	for code := len(llBaseline) - 1; code >= 0; code-- {
		if v >= llBaseline[code] {
			return uint8(code), llExtraBits[code]
		}
	}
	return 0, 0
}

func mlCodeForValue(v uint32) (uint8, uint8) {
	for code := len(mlBaseline) - 1; code >= 0; code-- {
		if v >= mlBaseline[code] {
			return uint8(code), mlExtraBits[code]
		}
	}
	return 0, 0
}

func ofCodeForValue(v uint32) (uint8, uint8) {
	code := uint8(0)
	for (uint32(1) << (code + 1)) <= v {
		code++
	}
	return code, code
}

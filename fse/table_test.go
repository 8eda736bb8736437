package fse

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zstdgo/zstd/bitio"
)

func TestWriteReadProbabilitiesRoundTrip(t *testing.T) {
	cases := []struct {
		name        string
		probs       []int32
		accuracyLog uint8
	}{
		{"literal-length", LiteralLengthDefaultDistribution, LiteralLengthDefaultAccuracyLog},
		{"match-length", MatchLengthDefaultDistribution, MatchLengthDefaultAccuracyLog},
		{"offset", OffsetDefaultDistribution, OffsetDefaultAccuracyLog},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			raw := WriteProbabilities(c.probs, c.accuracyLog)
			r := bitio.NewReader(raw)
			probs, accLog, err := ReadProbabilities(r, c.accuracyLog)
			require.NoError(t, err)
			require.Equal(t, c.accuracyLog, accLog)
			require.Equal(t, c.probs, probs[:len(c.probs)])
		})
	}
}

func TestBuildDecodingTableFromPredefined(t *testing.T) {
	table, err := BuildDecodingTable(LiteralLengthDefaultDistribution, LiteralLengthDefaultAccuracyLog)
	require.NoError(t, err)
	require.Equal(t, 1<<LiteralLengthDefaultAccuracyLog, len(table.Entries))
}

func TestEncodeDecodeRoundTripPredefinedLL(t *testing.T) {
	decTable, err := BuildDecodingTable(LiteralLengthDefaultDistribution, LiteralLengthDefaultAccuracyLog)
	require.NoError(t, err)
	encTable, err := BuildEncodingTable(LiteralLengthDefaultDistribution, LiteralLengthDefaultAccuracyLog)
	require.NoError(t, err)

	symbols := []uint8{0, 1, 2, 3, 0, 1}
	n := len(symbols)

	// FSE's state machine runs backward: Init seeds from the last symbol,
	// then EncodeBits walks to the first, capturing each step's bits so they
	// can be emitted in ascending (decode) order afterward.
	enc := NewEncoder(encTable)
	enc.Init(symbols[n-1])
	transValue := make([]uint64, n-1)
	transBits := make([]uint8, n-1)
	for k := n - 2; k >= 0; k-- {
		transValue[k], transBits[k] = enc.EncodeBits(symbols[k])
	}
	initValue := uint64(enc.State())
	initBits := enc.AccuracyLog()

	total := int(initBits)
	for _, b := range transBits {
		total += int(b)
	}
	padBits := (8 - (1+total)%8) % 8

	w := bitio.NewWriter()
	for i := 0; i < padBits; i++ {
		w.WriteBits(0, 1)
	}
	w.WriteBits(1, 1)
	w.WriteBits(initValue, initBits)
	for i := 0; i < n-1; i++ {
		w.WriteBits(transValue[i], transBits[i])
	}
	dumped, err := w.Dump()
	require.NoError(t, err)

	r := bitio.NewReverseReader(dumped)
	_, err = r.SkipPaddingSentinel()
	require.NoError(t, err)

	dec := NewDecoder(decTable)
	require.NoError(t, dec.InitState(r))
	got := make([]uint8, n)
	for i := 0; i < n; i++ {
		got[i] = dec.Symbol()
		if i < n-1 {
			require.NoError(t, dec.UpdateState(r))
		}
	}
	require.Equal(t, symbols, got)
}

package fse

// Predefined distributions for the sequence code tables, used when a
// compression mode byte selects "Predefined" for Literal Length, Match
// Length, or Offset. Values match the reference Zstandard specification.

// LiteralLengthDefaultDistribution is the fixed LL probability table
// (Accuracy_Log = 6, 36 symbols).
var LiteralLengthDefaultDistribution = []int32{
	4, 3, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 1, 1, 1,
	2, 2, 2, 2, 2, 2, 2, 2, 2, 3, 2, 1, 1, 1, 1, 1,
	-1, -1, -1, -1,
}

// LiteralLengthDefaultAccuracyLog is the accuracy log for the above.
const LiteralLengthDefaultAccuracyLog = 6

// MatchLengthDefaultDistribution is the fixed ML probability table
// (Accuracy_Log = 6, 53 symbols).
var MatchLengthDefaultDistribution = []int32{
	1, 4, 3, 2, 2, 2, 2, 2, 2, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, -1, -1,
	-1, -1, -1, -1, -1,
}

// MatchLengthDefaultAccuracyLog is the accuracy log for the above.
const MatchLengthDefaultAccuracyLog = 6

// OffsetDefaultDistribution is the fixed offset-code probability table
// (Accuracy_Log = 5, 29 symbols).
var OffsetDefaultDistribution = []int32{
	1, 1, 1, 1, 1, 1, 2, 2, 2, 1, 1, 1, 1, 1, 1, 1,
	1, 1, 1, 1, 1, 1, 1, 1, -1, -1, -1, -1, -1,
}

// OffsetDefaultAccuracyLog is the accuracy log for the above.
const OffsetDefaultAccuracyLog = 5

// Per-type accuracy log ceilings, per spec §3.
const (
	LiteralLengthMaxAccuracyLog = 9
	MatchLengthMaxAccuracyLog   = 9
	OffsetMaxAccuracyLog        = 8
)

// BuildPredefined builds the decoding table for one of the three predefined
// distributions directly, without going through the bitstream reader.
func BuildPredefined(which string) (*Table, error) {
	switch which {
	case "LL":
		return BuildDecodingTable(LiteralLengthDefaultDistribution, LiteralLengthDefaultAccuracyLog)
	case "ML":
		return BuildDecodingTable(MatchLengthDefaultDistribution, MatchLengthDefaultAccuracyLog)
	case "OF":
		return BuildDecodingTable(OffsetDefaultDistribution, OffsetDefaultAccuracyLog)
	default:
		panic("fse: unknown predefined table " + which)
	}
}

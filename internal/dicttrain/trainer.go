// Package dicttrain builds a raw dictionary content blob from a corpus of
// sample files, implementing the COVER segment-scoring heuristic: split the
// corpus into epochs, repeatedly pick each epoch's highest-scoring segment,
// and concatenate the winners until the target dictionary size is reached.
package dicttrain

import (
	"context"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
)

// kmerSize is the width of the rolling hash window scored against each
// segment. The reference implementation's doc comment recommends 16 but its
// actual Context/frequency code is hardcoded to 2-byte k-mers; this package
// follows the code, not the comment, and exposes the width as a constant
// should that choice need revisiting.
const kmerSize = 2

const prime = 2654435761
const alphabetSize = 256

// minEpochSize is the smallest epoch size considered, below which epochs are
// shrunk instead of multiplied, mirroring COVER_computeEpochs's floor
// (10,000 bytes here).
const minEpochSize = 10_000

type kmer [kmerSize]byte

// Params tunes segment scoring. SegmentSize of 2KiB matches the paper's
// reported sweet spot ("the performance of LMC is insensitive to
// [segment_size]").
type Params struct {
	SegmentSize int
	Concurrency int
}

// DefaultParams returns the paper's recommended defaults.
func DefaultParams() Params {
	return Params{SegmentSize: 2048, Concurrency: 4}
}

// freqCache bounds the rolling k-mer frequency table all epochs share across
// a training run, an idiomatic addition over the reference's unbounded
// per-context HashMap: a multi-gigabyte corpus can otherwise accumulate an
// unbounded number of distinct k-mers across an entire training run.
type freqCache struct {
	cache *lru.Cache[kmer, int]
}

func newFreqCache(size int) (*freqCache, error) {
	c, err := lru.New[kmer, int](size)
	if err != nil {
		return nil, err
	}
	return &freqCache{cache: c}, nil
}

// Train scores segments across corpus (corpus content concatenated end to
// end, a corpus of samples the caller has already joined) and returns
// roughly targetSize bytes of the highest-scoring, non-overlapping segments,
// one per epoch, in epoch order.
func Train(ctx context.Context, corpus []byte, targetSize int, params Params) ([]byte, error) {
	if params.SegmentSize <= 0 {
		params = DefaultParams()
	}
	if len(corpus) < params.SegmentSize {
		return append([]byte(nil), corpus...), nil
	}

	numEpochs, epochSize := computeEpochInfo(params, targetSize, len(corpus))
	if epochSize < params.SegmentSize {
		epochSize = params.SegmentSize
	}

	cache, err := newFreqCache(1 << 20)
	if err != nil {
		return nil, err
	}

	type winner struct {
		idx  int
		data []byte
	}
	winners := make([]winner, numEpochs)

	g, gCtx := errgroup.WithContext(ctx)
	if params.Concurrency > 0 {
		g.SetLimit(params.Concurrency)
	}

	for e := 0; e < numEpochs; e++ {
		e := e
		start := e * epochSize
		end := start + epochSize
		if end > len(corpus) {
			end = len(corpus)
		}
		if end-start < kmerSize+1 {
			continue
		}
		epoch := corpus[start:end]

		g.Go(func() error {
			select {
			case <-gCtx.Done():
				return gCtx.Err()
			default:
			}
			best := pickBestSegment(cache, params, epoch)
			winners[e] = winner{idx: e, data: best}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(winners, func(i, j int) bool { return winners[i].idx < winners[j].idx })

	out := make([]byte, 0, targetSize)
	for _, w := range winners {
		if len(out) >= targetSize {
			break
		}
		out = append(out, w.data...)
	}
	return out, nil
}

// pickBestSegment returns the highest-scoring segment-sized slice of epoch,
// mirroring pick_best_segment/score_segment.
func pickBestSegment(cache *freqCache, params Params, epoch []byte) []byte {
	best := epoch[:min(params.SegmentSize, len(epoch))]
	bestScore := -1

	for off := 0; off+kmerSize < len(epoch); off += params.SegmentSize {
		end := off + params.SegmentSize
		if end > len(epoch) {
			end = len(epoch)
		}
		segment := epoch[off:end]
		score := scoreSegment(cache, epoch, segment)
		if score > bestScore {
			bestScore = score
			best = segment
		}
	}
	return best
}

// scoreSegment sums, for every overlapping k-mer in segment, that k-mer's
// occurrence count: taken from the cache when present, otherwise counted
// within epoch via computeFrequency and cached. The cache is keyed by k-mer
// alone and shared by all epochs, so a cached count may come from another
// epoch.
func scoreSegment(cache *freqCache, epoch []byte, segment []byte) int {
	score := 0
	for i := 0; i+kmerSize <= len(segment); i++ {
		var k kmer
		copy(k[:], segment[i:i+kmerSize])
		if count, ok := cache.cache.Get(k); ok {
			score += count
			continue
		}
		count := computeFrequency(k, epoch)
		cache.cache.Add(k, count)
		score += count
	}
	return score
}

// computeFrequency is a best-effort count of pattern's occurrences in body
// via a rolling Karp-Rabin hash, ported directly from the reference's
// compute_frequency.
func computeFrequency(pattern kmer, body []byte) int {
	if len(body) < len(pattern) {
		return 0
	}
	var inputHash, windowHash, h uint64 = 0, 0, 1
	for i := 1; i < len(pattern); i++ {
		h = (h * alphabetSize) % prime
	}
	for i := 0; i < len(pattern); i++ {
		inputHash = (alphabetSize*inputHash + uint64(pattern[i])) % prime
		windowHash = (alphabetSize*windowHash + uint64(body[i])) % prime
	}

	count := 0
	for i := 0; i <= len(body)-len(pattern); i++ {
		if inputHash == windowHash {
			count++
		}
		if i < len(body)-len(pattern) {
			windowHash = (alphabetSize*(windowHash+prime-(uint64(body[i])*h)%prime) + uint64(body[i+len(pattern)])) % prime
		}
	}
	return count
}

// computeEpochInfo ports COVER_computeEpochs's epoch sizing: prefer enough
// epochs to cover the target dictionary size in segment-sized increments,
// but never shrink an epoch below minEpochSize unless the corpus itself is
// smaller than that.
func computeEpochInfo(params Params, targetSize, corpusSize int) (numEpochs, epochSize int) {
	numEpochs = max(1, targetSize/params.SegmentSize)
	epochSize = corpusSize / numEpochs
	if epochSize >= minEpochSize {
		return numEpochs, epochSize
	}
	epochSize = min(minEpochSize, corpusSize)
	if epochSize == 0 {
		return 1, corpusSize
	}
	numEpochs = corpusSize / epochSize
	if numEpochs == 0 {
		numEpochs = 1
	}
	return numEpochs, epochSize
}

// Package bagindex indexes bag-of-features tokens with roaring bitmaps.
//
// Each phoneme is a bitmap of token ids; each token has a posting list of
// phoneme ids. Similarity is Jaccard over the token bitmaps.
package bagindex

import (
	"errors"
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
)

// ErrUnknownPhoneme is returned when a query names a phoneme not in the index.
var ErrUnknownPhoneme = errors.New("unknown phoneme")

// Match is one similarity result.
type Match struct {
	Phoneme string
	// Score is |A∩B| / |A∪B| over bag tokens.
	Score float64
	// Shared is the number of tokens both bags hold.
	Shared int
}

// Index is an immutable inverted index over bags.
type Index struct {
	keys     []string
	ids      map[string]uint32
	tokens   map[string]uint32
	bags     []*roaring.Bitmap
	postings map[uint32]*roaring.Bitmap
}

// New builds an index. Keys are stored in sorted order so ids and
// results are deterministic.
func New(bags map[string][]string) *Index {
	keys := make([]string, 0, len(bags))
	for k := range bags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	idx := &Index{
		keys:     keys,
		ids:      make(map[string]uint32, len(keys)),
		tokens:   make(map[string]uint32),
		bags:     make([]*roaring.Bitmap, len(keys)),
		postings: make(map[uint32]*roaring.Bitmap),
	}

	for i, k := range keys {
		id := uint32(i)
		idx.ids[k] = id
		bm := roaring.New()
		for _, tok := range bags[k] {
			tid, ok := idx.tokens[tok]
			if !ok {
				tid = uint32(len(idx.tokens))
				idx.tokens[tok] = tid
				idx.postings[tid] = roaring.New()
			}
			bm.Add(tid)
			idx.postings[tid].Add(id)
		}
		bm.RunOptimize()
		idx.bags[i] = bm
	}
	for _, p := range idx.postings {
		p.RunOptimize()
	}
	return idx
}

// Len returns the number of indexed phonemes.
func (idx *Index) Len() int {
	return len(idx.keys)
}

// Tokens returns the number of distinct tokens.
func (idx *Index) Tokens() int {
	return len(idx.tokens)
}

// Similar returns the k phonemes whose bags are most similar to key's,
// excluding key itself. Ties are broken by phoneme. k <= 0 returns all.
func (idx *Index) Similar(key string, k int) ([]Match, error) {
	id, ok := idx.ids[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPhoneme, key)
	}
	target := idx.bags[id]

	matches := make([]Match, 0, len(idx.keys)-1)
	for i, other := range idx.bags {
		if uint32(i) == id {
			continue
		}
		shared := target.AndCardinality(other)
		union := target.OrCardinality(other)
		score := 0.0
		if union > 0 {
			score = float64(shared) / float64(union)
		}
		matches = append(matches, Match{Phoneme: idx.keys[i], Score: score, Shared: int(shared)})
	}

	sort.Slice(matches, func(a, b int) bool {
		if matches[a].Score != matches[b].Score {
			return matches[a].Score > matches[b].Score
		}
		return matches[a].Phoneme < matches[b].Phoneme
	})
	if k > 0 && k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

// WithTokens returns, in sorted order, the phonemes whose bags hold every
// given token. An unknown token matches nothing; no tokens matches nothing.
func (idx *Index) WithTokens(tokens ...string) []string {
	if len(tokens) == 0 {
		return nil
	}
	var acc *roaring.Bitmap
	for _, tok := range tokens {
		tid, ok := idx.tokens[tok]
		if !ok {
			return nil
		}
		if acc == nil {
			acc = idx.postings[tid].Clone()
			continue
		}
		acc.And(idx.postings[tid])
	}

	out := make([]string, 0, acc.GetCardinality())
	it := acc.Iterator()
	for it.HasNext() {
		out = append(out, idx.keys[it.Next()])
	}
	return out
}

package features

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapphon/pkg/core"
)

// ConflictPolicy decides which attestation wins when the same phoneme
// appears in several rows with different feature values.
type ConflictPolicy string

// Conflict policies.
const (
	// PolicyFirst keeps the first attestation in row order.
	PolicyFirst ConflictPolicy = "first"
	// PolicyLast keeps the last attestation in row order.
	PolicyLast ConflictPolicy = "last"
	// PolicyMajority picks the most frequent value per feature; ties go to
	// the value seen first.
	PolicyMajority ConflictPolicy = "majority"
)

// ParseConflictPolicy converts a config string; empty means PolicyFirst.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch p := ConflictPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", PolicyFirst:
		return PolicyFirst, nil
	case PolicyLast, PolicyMajority:
		return p, nil
	default:
		return "", fmt.Errorf("unknown conflict policy %q (want first, last or majority)", s)
	}
}

// tally accumulates attestations of one phoneme for PolicyMajority.
type tally struct {
	counts map[string]map[core.FeatureValue]int
	order  map[string][]core.FeatureValue
}

func newTally() *tally {
	return &tally{
		counts: make(map[string]map[core.FeatureValue]int),
		order:  make(map[string][]core.FeatureValue),
	}
}

func (t *tally) add(v core.FeatureVector) {
	for name, val := range v {
		c, ok := t.counts[name]
		if !ok {
			c = make(map[core.FeatureValue]int)
			t.counts[name] = c
		}
		if c[val] == 0 {
			t.order[name] = append(t.order[name], val)
		}
		c[val]++
	}
}

func (t *tally) vote() core.FeatureVector {
	out := make(core.FeatureVector, len(t.counts))
	for name, vals := range t.order {
		best := vals[0]
		for _, v := range vals[1:] {
			if t.counts[name][v] > t.counts[name][best] {
				best = v
			}
		}
		out[name] = best
	}
	return out
}

/*
 *	Copyright 2023 Jan Pfeifer
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

// Package searchers implements the value-selection policies that drive a
// search-space tree to full resolution.
//
// A Searcher only decides which candidate value each Hyperparameter gets; the
// drive loop (finding the next unresolved hyperparameter, resolving it,
// compiling the tree) lives in the search package and is shared by all
// policies. Policies differ in whether and how they use the history of
// (choice sequence, score) pairs from completed trials.
package searchers

import (
	"fmt"
	"math/rand"

	"github.com/gomlx/deeparchitect/search/space"
)

// Choice records one resolved hyperparameter assignment, in resolution order.
// The sequence of choices of a trial identifies the sampled architecture.
type Choice struct {
	// Hyperparameter name.
	Hyperparameter string

	// Value it was resolved to.
	Value any
}

// String implements fmt.Stringer.
func (c Choice) String() string {
	return fmt.Sprintf("%s=%v", c.Hyperparameter, c.Value)
}

// Searcher is a value-selection policy.
//
// Implementations keep their own accumulated state (e.g. score statistics);
// the module tree holds none of it, so trees stay independent across trials.
type Searcher interface {
	// PickValue selects one of hp's candidate values. It must not resolve hp;
	// the drive loop does that.
	PickValue(hp *space.Hyperparameter) any

	// Observe reports a completed successful trial: the full choice sequence
	// and the evaluator's score. Failed trials are not reported.
	Observe(choices []Choice, score float64)
}

// Random picks uniformly among candidates. The seed is explicit and
// injectable so search trajectories are reproducible; there is no hidden
// global randomness.
type Random struct {
	rng *rand.Rand
}

// NewRandom creates a Random searcher with the given seed.
func NewRandom(seed int64) *Random {
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

// PickValue implements Searcher.
func (s *Random) PickValue(hp *space.Hyperparameter) any {
	values := hp.Values()
	return values[s.rng.Intn(len(values))]
}

// Observe implements Searcher. Random search ignores history.
func (s *Random) Observe([]Choice, float64) {}

// valueKey identifies one (hyperparameter name, candidate value) pair in the
// EpsilonGreedy statistics.
type valueKey struct {
	name  string
	value any
}

type valueStats struct {
	count int
	sum   float64
}

func (v *valueStats) mean() float64 { return v.sum / float64(v.count) }

// EpsilonGreedy is a simple sequential-model-based policy: it keeps the mean
// score observed for each (hyperparameter name, value) pair, and picks the
// best-scoring candidate with probability 1-epsilon, a uniformly random one
// otherwise.
//
// The model is deliberately naive -- per-choice independence -- but it is
// enough to bias search toward promising regions, and it demonstrates how
// history-consulting policies plug into the same drive loop.
type EpsilonGreedy struct {
	rng     *rand.Rand
	epsilon float64
	stats   map[valueKey]*valueStats
}

// NewEpsilonGreedy creates an EpsilonGreedy searcher. epsilon in [0, 1] is
// the exploration probability; seed makes trajectories reproducible.
func NewEpsilonGreedy(epsilon float64, seed int64) *EpsilonGreedy {
	return &EpsilonGreedy{
		rng:     rand.New(rand.NewSource(seed)),
		epsilon: epsilon,
		stats:   make(map[valueKey]*valueStats),
	}
}

// PickValue implements Searcher.
func (s *EpsilonGreedy) PickValue(hp *space.Hyperparameter) any {
	values := hp.Values()
	if s.rng.Float64() < s.epsilon {
		return values[s.rng.Intn(len(values))]
	}
	var best any
	bestMean := 0.0
	for _, value := range values {
		stats, found := s.stats[valueKey{hp.Name(), value}]
		if !found {
			// Unexplored values win over any observed mean.
			return value
		}
		if best == nil || stats.mean() > bestMean {
			best = value
			bestMean = stats.mean()
		}
	}
	return best
}

// Observe implements Searcher.
func (s *EpsilonGreedy) Observe(choices []Choice, score float64) {
	for _, choice := range choices {
		key := valueKey{choice.Hyperparameter, choice.Value}
		stats, found := s.stats[key]
		if !found {
			stats = &valueStats{}
			s.stats[key] = stats
		}
		stats.count++
		stats.sum += score
	}
}

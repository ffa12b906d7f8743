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

// Package search runs architecture-search campaigns: it repeatedly samples a
// candidate architecture from a search space (see the space package), drives
// it to full resolution with a Searcher policy (see the searchers package),
// compiles it and hands it to an Evaluator for scoring.
//
// The Loop in itself doesn't do much beyond that; one can attach functionality
// to it -- progress bars, score plots, early stopping -- through its hooks.
package search

import (
	"fmt"
	"sort"
	"time"

	"github.com/gomlx/deeparchitect/graph"
	"github.com/gomlx/deeparchitect/search/searchers"
	"github.com/gomlx/deeparchitect/search/space"
	"github.com/gomlx/deeparchitect/types/shapes"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// SpaceFactory builds a fresh, fully unresolved search-space tree. The loop
// calls it once per trial so that no resolved state leaks across trials.
type SpaceFactory func() space.Module

// Trial records one search iteration: the sampled candidate's choice
// sequence and either its score or the per-candidate failure.
type Trial struct {
	// Index of the trial within the run, starting from 0.
	Index int

	// Choices made to resolve the candidate, in resolution order.
	Choices []searchers.Choice

	// Score returned by the Evaluator. Only meaningful if Err is nil.
	Score float64

	// Err is the per-candidate failure (shape-incompatible wiring or an
	// evaluator error), nil for successful trials.
	Err error

	// Program is the candidate's resolved structural description.
	Program string

	// Elapsed time compiling and evaluating the candidate.
	Elapsed time.Duration
}

// Failed reports whether the trial was recorded as a failure.
func (t *Trial) Failed() bool { return t.Err != nil }

// Priority for hooks, the lowest values are run first. Defaults to 0, but
// negative values are ok.
type Priority int

// OnTrialStartFn is the type of OnTrialStart hooks.
type OnTrialStartFn func(loop *Loop, trialIdx int) error

// OnTrialEndFn is the type of OnTrialEnd hooks. trial is already recorded in
// loop.Trials.
type OnTrialEndFn func(loop *Loop, trial *Trial) error

// Loop runs a search campaign: NumTrials independent trials, each built from
// a fresh tree and scope.
//
// The public attributes are meant for reading only.
type Loop struct {
	// Searcher policy picking hyperparameter values.
	Searcher searchers.Searcher

	// Evaluator scoring compiled architectures.
	Evaluator Evaluator

	// RunId uniquely identifies this campaign, used in graph names and logs.
	RunId string

	// TrialIdx currently being executed.
	TrialIdx int

	// EndTrial is one-past the last trial of the current run.
	EndTrial int

	// Trials recorded so far, successful and failed.
	Trials []*Trial

	// SharedData allows cross-tools to publish and consume information. Keys
	// and semantics of their values are not specified by the loop.
	SharedData map[string]any

	factory    SpaceFactory
	inputShape shapes.Shape

	// Registered hooks.
	onTrialStart *priorityHooks[*hookWithName[OnTrialStartFn]]
	onTrialEnd   *priorityHooks[*hookWithName[OnTrialEndFn]]
}

// NewLoop creates a search loop. factory builds one fresh tree per trial;
// inputShape is the shape of the architecture input fragment.
func NewLoop(factory SpaceFactory, inputShape shapes.Shape, searcher searchers.Searcher, evaluator Evaluator) *Loop {
	return &Loop{
		Searcher:     searcher,
		Evaluator:    evaluator,
		RunId:        uuid.NewString(),
		factory:      factory,
		inputShape:   inputShape,
		SharedData:   make(map[string]any),
		onTrialStart: newPriorityHooks[*hookWithName[OnTrialStartFn]](),
		onTrialEnd:   newPriorityHooks[*hookWithName[OnTrialEndFn]](),
	}
}

// OnTrialStart adds a hook with the given priority and name (for error
// reporting) to the start of each trial.
func (loop *Loop) OnTrialStart(name string, priority Priority, fn OnTrialStartFn) {
	loop.onTrialStart.Add(priority, &hookWithName[OnTrialStartFn]{name: name, fn: fn})
}

// OnTrialEnd adds a hook with the given priority and name (for error
// reporting) to the end of each trial, after the trial is recorded.
func (loop *Loop) OnTrialEnd(name string, priority Priority, fn OnTrialEndFn) {
	loop.onTrialEnd.Add(priority, &hookWithName[OnTrialEndFn]{name: name, fn: fn})
}

// Drive resolves hyperparameters of root until none remains, using the given
// searcher policy, and returns the choice sequence. It is the two-state
// machine of one trial: it stays "searching" while the tree has unresolved
// hyperparameters and terminates "compiled" when Unresolved returns nil.
//
// Exposed so tests and custom drivers can resolve a tree without a full Loop.
func Drive(root space.Module, searcher searchers.Searcher) ([]searchers.Choice, error) {
	var choices []searchers.Choice
	for hp := root.Unresolved(); hp != nil; hp = root.Unresolved() {
		value := searcher.PickValue(hp)
		if err := hp.Resolve(value); err != nil {
			return nil, errors.WithMessagef(err, "resolving hyperparameter %q", hp.Name())
		}
		choices = append(choices, searchers.Choice{Hyperparameter: hp.Name(), Value: value})
	}
	return choices, nil
}

// Compile builds the graph fragments of a fully resolved tree, returning the
// compiled model. name is used as the Graph name.
func Compile(root space.Module, inputShape shapes.Shape, scope *space.Scope, name string) (*CompiledModel, error) {
	g := graph.New(name)
	input := g.Input(inputShape)
	output, err := root.Compile(input, scope)
	if err != nil {
		return nil, err
	}
	return &CompiledModel{Graph: g, Input: input, Output: output, Scope: scope, Root: root}, nil
}

// Run executes numTrials trials and returns the recorded trials.
//
// Per-candidate failures -- shape-incompatible wiring surfacing as
// *graph.FragmentShapeError, or evaluator errors -- are recorded as failed
// trials and do not interrupt the run. Engine contract violations
// (*space.NotFullyResolvedError and friends) abort it: they indicate a bug,
// not a bad sample.
func (loop *Loop) Run(numTrials int) ([]*Trial, error) {
	loop.EndTrial = len(loop.Trials) + numTrials
	for ii := 0; ii < numTrials; ii++ {
		loop.TrialIdx = len(loop.Trials)
		if err := loop.startTrial(); err != nil {
			return loop.Trials, err
		}
		trial, err := loop.runTrial()
		if err != nil {
			return loop.Trials, err
		}
		loop.Trials = append(loop.Trials, trial)
		if err = loop.endTrial(trial); err != nil {
			return loop.Trials, err
		}
	}
	return loop.Trials, nil
}

// runTrial samples, compiles and evaluates one candidate.
func (loop *Loop) runTrial() (*Trial, error) {
	startTime := time.Now()
	trial := &Trial{Index: loop.TrialIdx}
	defer func() { trial.Elapsed = time.Since(startTime) }()

	root := loop.factory()
	scope := space.NewScope()
	choices, err := Drive(root, loop.Searcher)
	if err != nil {
		return nil, errors.WithMessagef(err, "trial #%d", trial.Index)
	}
	trial.Choices = choices
	trial.Program = root.ReprProgram()

	model, err := Compile(root, loop.inputShape, scope, loop.candidateName(trial.Index))
	if err != nil {
		if !isCandidateFailure(err) {
			return nil, errors.WithMessagef(err, "trial #%d", trial.Index)
		}
		klog.Warningf("search run %s: trial #%d failed to compile: %v", loop.RunId, trial.Index, err)
		trial.Err = err
		return trial, nil
	}

	score, err := loop.Evaluator.EvalModel(model)
	if err != nil {
		klog.Warningf("search run %s: trial #%d failed to evaluate: %v", loop.RunId, trial.Index, err)
		trial.Err = errors.WithMessagef(err, "evaluating trial #%d", trial.Index)
		return trial, nil
	}
	trial.Score = score
	loop.Searcher.Observe(choices, score)
	klog.V(1).Infof("search run %s: trial #%d scored %g (%d choices, %d graph nodes)",
		loop.RunId, trial.Index, score, len(choices), model.Graph.NumNodes())
	return trial, nil
}

func (loop *Loop) candidateName(trialIdx int) string {
	return fmt.Sprintf("%s/candidate-%d", loop.RunId, trialIdx)
}

// isCandidateFailure distinguishes per-candidate failures (recoverable: skip
// the candidate) from engine contract violations (fatal for the run).
func isCandidateFailure(err error) bool {
	var shapeErr *graph.FragmentShapeError
	return errors.As(err, &shapeErr)
}

// BestTrial returns the successful trial with the highest score, or nil if
// every trial so far failed.
func (loop *Loop) BestTrial() *Trial {
	var best *Trial
	for _, trial := range loop.Trials {
		if trial.Failed() {
			continue
		}
		if best == nil || trial.Score > best.Score {
			best = trial
		}
	}
	return best
}

// NumFailed returns how many recorded trials failed.
func (loop *Loop) NumFailed() int {
	count := 0
	for _, trial := range loop.Trials {
		if trial.Failed() {
			count++
		}
	}
	return count
}

// MedianTrialDuration returns the median elapsed time of the recorded trials.
func (loop *Loop) MedianTrialDuration() time.Duration {
	if len(loop.Trials) == 0 {
		// Return something different from 0 to avoid division by 0.
		return time.Millisecond
	}
	durations := make([]time.Duration, 0, len(loop.Trials))
	for _, trial := range loop.Trials {
		durations = append(durations, trial.Elapsed)
	}
	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	return durations[len(durations)/2]
}

// startTrial calls the OnTrialStart hooks.
func (loop *Loop) startTrial() (err error) {
	loop.onTrialStart.Enumerate(func(hook *hookWithName[OnTrialStartFn]) {
		if err != nil {
			// After the first error stop.
			return
		}
		err = hook.fn(loop, loop.TrialIdx)
		if err != nil {
			err = errors.WithMessagef(err, "OnTrialStart(hook %q)", hook.name)
		}
	})
	return
}

// endTrial calls the OnTrialEnd hooks.
func (loop *Loop) endTrial(trial *Trial) (err error) {
	loop.onTrialEnd.Enumerate(func(hook *hookWithName[OnTrialEndFn]) {
		if err != nil {
			// After the first error stop.
			return
		}
		err = hook.fn(loop, trial)
		if err != nil {
			err = errors.WithMessagef(err, "OnTrialEnd(hook %q)", hook.name)
		}
	})
	return
}

// RunSearch is the one-call driver: it runs numTrials trials and returns the
// scores and choice histories of all of them, failed trials included (their
// score is NaN-free 0 and their history possibly partial; check the returned
// trials of a Loop when failures matter).
func RunSearch(factory SpaceFactory, inputShape shapes.Shape, searcher searchers.Searcher,
	evaluator Evaluator, numTrials int) (scores []float64, histories [][]searchers.Choice, err error) {
	loop := NewLoop(factory, inputShape, searcher, evaluator)
	trials, err := loop.Run(numTrials)
	if err != nil {
		return nil, nil, err
	}
	for _, trial := range trials {
		scores = append(scores, trial.Score)
		histories = append(histories, trial.Choices)
	}
	return
}

// priorityHooks organizes hooks by priority.
type priorityHooks[H any] struct {
	hooks map[Priority][]H
}

func newPriorityHooks[H any]() *priorityHooks[H] {
	return &priorityHooks[H]{hooks: make(map[Priority][]H)}
}

func (h *priorityHooks[H]) Add(priority Priority, hook H) {
	h.hooks[priority] = append(h.hooks[priority], hook)
}

// Enumerate hooks in priority order (within a priority, in insertion order).
func (h *priorityHooks[H]) Enumerate(fn func(hook H)) {
	keys := make([]Priority, 0, len(h.hooks))
	for key := range h.hooks {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, key := range keys {
		for _, hook := range h.hooks[key] {
			fn(hook)
		}
	}
}

// hookWithName stores a hook name and function.
type hookWithName[F any] struct {
	name string
	fn   F
}

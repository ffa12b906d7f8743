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

// archsearch demos an architecture-search campaign over a small MLP search
// space, with a synthetic evaluator so it runs without any training stack.
//
// Example:
//
//	archsearch -trials 50 -searcher epsgreedy -plot /tmp/scores.svg
package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/gomlx/deeparchitect/graph"
	"github.com/gomlx/deeparchitect/search"
	"github.com/gomlx/deeparchitect/search/commandline"
	"github.com/gomlx/deeparchitect/search/layers"
	"github.com/gomlx/deeparchitect/search/searchers"
	"github.com/gomlx/deeparchitect/search/space"
	"github.com/gomlx/deeparchitect/types/shapes"
	"github.com/gomlx/deeparchitect/ui/plots"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"
)

var (
	flagTrials   = flag.Int("trials", 30, "Number of candidate architectures to sample and score.")
	flagSeed     = flag.Int64("seed", 42, "Seed for the searcher policy, for reproducible trajectories.")
	flagSearcher = flag.String("searcher", "random", "Searcher policy: \"random\" or \"epsgreedy\".")
	flagEpsilon  = flag.Float64("epsilon", 0.3, "Exploration probability for -searcher=epsgreedy.")
	flagPlot     = flag.String("plot", "", "If set, write an SVG with the score history to this file.")
)

const (
	batchSize   = 32
	numFeatures = 16
	numClasses  = 10
)

// makeSpace builds the demo search space: a feature projection, a tied stack
// of residual affine cells, optional dropout, the class projection, and the
// evaluator-side learning rate searched jointly.
func makeSpace() space.Module {
	cell := func() space.Module {
		return space.NewResidual(space.NewConcat(
			layers.Affine([]any{numFeatures}, []any{layers.InitXavier, layers.InitHeNormal}),
			layers.Activation([]any{"relu", "tanh"}),
		))
	}
	return space.NewConcat(
		layers.Affine([]any{numFeatures}, []any{layers.InitXavier}),
		space.NewRepeatTied(cell, []any{1, 2, 4}),
		space.NewOptional(layers.Dropout([]any{0.1, 0.3, 0.5})),
		layers.Affine([]any{numClasses}, []any{layers.InitXavier}),
		space.NewHyperparams(space.NamedValues{
			Name:   "learning_rate",
			Values: []any{1e-2, 1e-3, 1e-4},
		}),
	)
}

// scoreArchitecture is a synthetic stand-in for a real trainer: it scores a
// compiled architecture by a closed-form preference (moderate depth, relu
// cells, a middling learning rate) so the search has a signal to climb.
func scoreArchitecture(model *search.CompiledModel) (float64, error) {
	var denses, relus float64
	for _, node := range model.Graph.Nodes() {
		switch node.Type() {
		case graph.DenseOp:
			denses++
		case graph.ActivationOp:
			if kind, _ := node.Attr("kind"); kind == "relu" {
				relus++
			}
		}
	}
	score := relus - math.Abs(denses-4)

	// Evaluator-side hyperparameters come from the scope convention.
	if names, found := model.Scope.Lookup("hyperparams-0", space.HyperpNamesKey); found {
		values, _ := model.Scope.Lookup("hyperparams-0", space.HyperpValsKey)
		for ii, name := range names.([]string) {
			if name == "learning_rate" && values.([]any)[ii].(float64) == 1e-3 {
				score += 1
			}
		}
	}
	return score, nil
}

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	var searcher searchers.Searcher
	switch *flagSearcher {
	case "random":
		searcher = searchers.NewRandom(*flagSeed)
	case "epsgreedy":
		searcher = searchers.NewEpsilonGreedy(*flagEpsilon, *flagSeed)
	default:
		klog.Errorf("Unknown -searcher %q, pick \"random\" or \"epsgreedy\".", *flagSearcher)
		os.Exit(1)
	}

	inputShape := shapes.Make(dtypes.Float32, batchSize, numFeatures)
	loop := search.NewLoop(makeSpace, inputShape, searcher, search.EvaluatorFunc(scoreArchitecture))
	commandline.AttachProgressBar(loop)

	var scorePlots *plots.Plots
	if *flagPlot != "" {
		scorePlots = plots.New(1024, 400)
		scorePlots.Attach(loop)
	}

	must.M1(loop.Run(*flagTrials))
	if best := loop.BestTrial(); best != nil {
		fmt.Printf("Best architecture (trial #%d, score %.5g):\n%s\n", best.Index, best.Score, best.Program)
	} else {
		fmt.Println("All trials failed.")
	}

	if scorePlots != nil {
		svg := must.M1(scorePlots.PlotToSVG())
		must.M(os.WriteFile(*flagPlot, []byte(svg), 0644))
		fmt.Printf("Score history written to %s\n", *flagPlot)
	}
}

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

// Package plots renders the score history of a search run as an SVG line
// chart, using the Margaid library (https://github.com/erkkah/margaid/).
//
// It plots two series: the per-trial score and the best score so far. Attach
// it to a search.Loop and write the chart when the run ends:
//
//	scorePlots := plots.New(1024, 400)
//	scorePlots.Attach(loop)
//	...
//	svg := must.M1(scorePlots.PlotToSVG())
//
// Points can optionally be persisted to a JSON file (WithFile), so that a
// restarted campaign keeps its history.
package plots

import (
	"bytes"
	"encoding/json"
	"os"

	mg "github.com/erkkah/margaid"
	"github.com/gomlx/deeparchitect/search"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// PlotsName is the hook name used on the loop.
const PlotsName = "deeparchitect.ui.plots"

// Point is one plotted value, as saved/loaded in the JSON points file.
type Point struct {
	Series string
	Trial  int
	Score  float64
}

// Plots accumulates per-trial scores of a search run and renders them to SVG.
type Plots struct {
	// Image dimensions.
	Width, Height int

	series map[string]*mg.Series
	points []Point

	// filePath to save points to; only used if not empty.
	filePath string
}

// Series names used by Attach.
const (
	SeriesScore = "score"
	SeriesBest  = "best"
)

// New creates an empty Plots structure. Points are added automatically with
// Attach or manually with AddPoint.
func New(width, height int) *Plots {
	return &Plots{
		Width:  width,
		Height: height,
		series: make(map[string]*mg.Series),
	}
}

// WithFile configures a JSON file to persist the points. If the file already
// exists its points are loaded first. Returns p to allow chaining.
func (p *Plots) WithFile(filePath string) (*Plots, error) {
	p.filePath = filePath
	contents, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return p, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading plot points from %q", filePath)
	}
	decoder := json.NewDecoder(bytes.NewReader(contents))
	for decoder.More() {
		var point Point
		if err = decoder.Decode(&point); err != nil {
			return nil, errors.Wrapf(err, "parsing plot points from %q", filePath)
		}
		p.AddPoint(point)
	}
	klog.V(1).Infof("loaded %d plot points from %q", len(p.points), filePath)
	return p, nil
}

// AddPoint adds one point to its series.
func (p *Plots) AddPoint(point Point) {
	series, found := p.series[point.Series]
	if !found {
		series = mg.NewSeries(mg.Titled(point.Series))
		p.series[point.Series] = series
	}
	series.Add(mg.MakeValue(float64(point.Trial), point.Score))
	p.points = append(p.points, point)
}

// Attach registers the Plots on the loop: every successful trial adds a
// SeriesScore point and a SeriesBest point.
func (p *Plots) Attach(loop *search.Loop) {
	loop.OnTrialEnd(PlotsName, 0, func(loop *search.Loop, trial *search.Trial) error {
		if trial.Failed() {
			return nil
		}
		p.AddPoint(Point{Series: SeriesScore, Trial: trial.Index, Score: trial.Score})
		if best := loop.BestTrial(); best != nil {
			p.AddPoint(Point{Series: SeriesBest, Trial: trial.Index, Score: best.Score})
		}
		return nil
	})
}

// Save writes all points to the configured JSON file. A no-op without
// WithFile.
func (p *Plots) Save() error {
	if p.filePath == "" {
		return nil
	}
	buf := bytes.NewBuffer(nil)
	encoder := json.NewEncoder(buf)
	for _, point := range p.points {
		if err := encoder.Encode(point); err != nil {
			return errors.Wrapf(err, "encoding plot point %+v", point)
		}
	}
	if err := os.WriteFile(p.filePath, buf.Bytes(), 0644); err != nil {
		return errors.Wrapf(err, "saving plot points to %q", p.filePath)
	}
	return nil
}

// PlotToSVG renders all series to an SVG document.
func (p *Plots) PlotToSVG() (string, error) {
	if len(p.points) == 0 {
		return "", errors.New("no points to plot")
	}
	allSeries := make([]*mg.Series, 0, len(p.series))
	for _, name := range []string{SeriesScore, SeriesBest} {
		if series, found := p.series[name]; found {
			allSeries = append(allSeries, series)
		}
	}
	for name, series := range p.series {
		if name != SeriesScore && name != SeriesBest {
			allSeries = append(allSeries, series)
		}
	}
	diagram := mg.New(p.Width, p.Height,
		mg.WithAutorange(mg.XAxis, allSeries...),
		mg.WithAutorange(mg.YAxis, allSeries...),
		mg.WithInset(70),
		mg.WithPadding(2),
		mg.WithColorScheme(90),
		mg.WithBackgroundColor("#f8f8f8"),
	)
	for _, series := range allSeries {
		diagram.Line(series, mg.UsingAxes(mg.XAxis, mg.YAxis), mg.UsingMarker("square"), mg.UsingStrokeWidth(2))
	}
	diagram.Axis(allSeries[0], mg.XAxis, diagram.ValueTicker('f', 0, 10), false, "Trial")
	diagram.Axis(allSeries[0], mg.YAxis, diagram.ValueTicker('f', 3, 10), true, "Score")
	diagram.Frame()
	diagram.Title("Search scores")
	diagram.Legend(mg.BottomLeft)
	buf := bytes.NewBuffer(nil)
	if err := diagram.Render(buf); err != nil {
		return "", errors.Wrap(err, "rendering search scores plot")
	}
	return buf.String(), nil
}

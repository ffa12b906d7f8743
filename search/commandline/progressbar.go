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

// Package commandline attaches terminal UI to a search.Loop: a progress bar
// over trials and an end-of-run summary table with the best candidates.
package commandline

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/deeparchitect/search"
	"github.com/muesli/termenv"
	"github.com/schollz/progressbar/v3"
)

// ProgressBarName is the hook name used on the loop.
const ProgressBarName = "deeparchitect.search.commandline.progressBar"

// progressBar holds a progress bar being displayed for a search run.
type progressBar struct {
	bar      *progressbar.ProgressBar
	termenv  *termenv.Output
	numBest  int
	finished bool
}

// AttachProgressBar creates a command-line progress bar and attaches it to the
// Loop: one tick per trial, the description tracking the best score so far,
// and a summary table of the top candidates once the run finishes.
func AttachProgressBar(loop *search.Loop) {
	pBar := &progressBar{
		termenv: termenv.NewOutput(os.Stdout),
		numBest: 5,
	}
	loop.OnTrialStart(ProgressBarName, 100, pBar.onTrialStart)
	loop.OnTrialEnd(ProgressBarName, 100, pBar.onTrialEnd)
}

func (pBar *progressBar) onTrialStart(loop *search.Loop, trialIdx int) error {
	if pBar.bar != nil {
		return nil
	}
	pBar.termenv.HideCursor()
	pBar.bar = progressbar.NewOptions(loop.EndTrial,
		progressbar.OptionSetDescription(fmt.Sprintf("Searching (%d candidates): ", loop.EndTrial)),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("candidates"),
		progressbar.OptionSetTheme(progressbar.ThemeUnicode),
	)
	return nil
}

func (pBar *progressBar) onTrialEnd(loop *search.Loop, trial *search.Trial) error {
	if best := loop.BestTrial(); best != nil {
		pBar.bar.Describe(fmt.Sprintf("Searching (best=%.4g @ #%d): ", best.Score, best.Index))
	}
	if err := pBar.bar.Add(1); err != nil {
		return err
	}
	if trial.Index+1 >= loop.EndTrial && !pBar.finished {
		pBar.finished = true
		pBar.termenv.ShowCursor()
		fmt.Println()
		fmt.Println(summary(loop, pBar.numBest))
	}
	return nil
}

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)
	oddRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFF")).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#999")).
			PaddingLeft(1).PaddingRight(1)
)

// summary renders the top candidates and run statistics as a table.
func summary(loop *search.Loop, numBest int) string {
	table := lgtable.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			switch {
			case row == 0:
				return headerRowStyle
			case row%2 == 0:
				return evenRowStyle
			default:
				return oddRowStyle
			}
		}).
		Headers("Trial", "Score", "Choices")
	for _, trial := range bestTrials(loop, numBest) {
		choices := make([]string, 0, len(trial.Choices))
		for _, choice := range trial.Choices {
			choices = append(choices, choice.String())
		}
		table.Row(
			fmt.Sprintf("#%d", trial.Index),
			fmt.Sprintf("%.5g", trial.Score),
			strings.Join(choices, ", "))
	}
	stats := fmt.Sprintf("%s trials (%d failed), median %s per trial",
		humanize.Comma(int64(len(loop.Trials))), loop.NumFailed(),
		loop.MedianTrialDuration().Round(time.Microsecond))
	return table.Render() + "\n" + stats
}

// bestTrials returns up to numBest successful trials, best score first.
func bestTrials(loop *search.Loop, numBest int) []*search.Trial {
	trials := make([]*search.Trial, 0, len(loop.Trials))
	for _, trial := range loop.Trials {
		if !trial.Failed() {
			trials = append(trials, trial)
		}
	}
	sort.SliceStable(trials, func(i, j int) bool { return trials[i].Score > trials[j].Score })
	if len(trials) > numBest {
		trials = trials[:numBest]
	}
	return trials
}

// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package report

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/walteh/patchrc/pkg/patch"
	"gitlab.com/tozd/go/errors"
)

// 🎨 Display configuration
const (
	stepIndent  = 4  // spaces to indent step entries
	indexWidth  = 5  // width for the step index
	nameWidth   = 35 // width for the step name
	statusWidth = 10 // width for the status text
)

// 🚦 State is what happened to a step, as shown to the user
type State int

const (
	StateApplied State = iota
	StateSkipped
	StateFailed
)

// String returns a string representation of State
func (s State) String() string {
	switch s {
	case StateApplied:
		return "applied"
	case StateSkipped:
		return "skipped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// 🎯 StepLine is one step as reported to the user
type StepLine struct {
	Index  int    // Position in the set
	Name   string // Step name, may be empty
	State  State  // Applied, skipped or failed
	Detail string // Extra text, e.g. the needle preview of a failed step
}

// 📊 Counts summarizes a run
type Counts struct {
	Applied int
	Skipped int
	Failed  int
}

// 🎯 Logger handles structured logging with console output
type Logger struct {
	zlog    zerolog.Logger
	console io.Writer
	mu      sync.Mutex
}

// 🏭 New creates a new logger
func New(console io.Writer, zlog zerolog.Logger) *Logger {
	return &Logger{
		zlog:    zlog,
		console: console,
	}
}

// 🔑 contextKey is the type for context values
type contextKey struct{}

// 🎯 FromContext gets the logger from context
func FromContext(ctx context.Context) *Logger {
	logger, ok := Lookup(ctx)
	if !ok {
		panic("report logger not found in context")
	}
	return logger
}

// Lookup is FromContext for callers that can do without a logger.
func Lookup(ctx context.Context) (*Logger, bool) {
	if ctx == nil {
		return nil, false
	}
	logger, ok := ctx.Value(contextKey{}).(*Logger)
	return logger, ok
}

// 🎯 NewContext adds the logger to context
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// 📝 formatStep formats a step line for display
func formatStep(line StepLine) string {
	var symbol rune
	var symbolColor color.Attribute
	switch line.State {
	case StateApplied:
		symbol = '✓'
		symbolColor = color.FgGreen
	case StateSkipped:
		symbol = '-'
		symbolColor = color.FgYellow
	default:
		symbol = '✗'
		symbolColor = color.FgRed
	}

	name := line.Name
	if name == "" {
		name = "(unnamed)"
	}

	out := fmt.Sprintf("%s%s %s %s %s",
		fmt.Sprintf("%*s", stepIndent, ""),
		color.New(symbolColor).Sprint(string(symbol)),
		fmt.Sprintf("%-*s", indexWidth, fmt.Sprintf("#%d", line.Index)),
		fmt.Sprintf("%-*s", nameWidth, name),
		color.New(symbolColor).Sprint(fmt.Sprintf("%-*s", statusWidth, line.State)))

	if line.Detail != "" {
		out += " " + color.New(color.Faint).Sprint(line.Detail)
	}
	return out
}

// 📝 LogStep logs a single step
func (l *Logger) LogStep(ctx context.Context, line StepLine) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintln(l.console, formatStep(line))

	ev := l.zlog.Info()
	if line.State == StateFailed {
		ev = l.zlog.Error()
	}
	ev.Int("index", line.Index).
		Str("name", line.Name).
		Stringer("state", line.State).
		Str("detail", line.Detail).
		Msg("patch step")
}

// 📝 LogResult logs every outcome of res, then the failing step if err names one.
// It returns the counts it reported.
func (l *Logger) LogResult(ctx context.Context, res *patch.Result, err error) Counts {
	var counts Counts
	if res != nil {
		for _, o := range res.Outcomes {
			line := StepLine{Index: o.Index, Name: o.Name, State: StateApplied}
			if o.Status == patch.StatusSkipped {
				line.State = StateSkipped
				line.Detail = target(o.Missing) + " not found"
				counts.Skipped++
			} else {
				counts.Applied++
			}
			l.LogStep(ctx, line)
		}
	}

	var nf *patch.NotFoundError
	if errors.As(err, &nf) {
		l.LogStep(ctx, StepLine{
			Index:  nf.Index,
			Name:   nf.Name,
			State:  StateFailed,
			Detail: failedDetail(nf),
		})
		counts.Failed++
	}

	return counts
}

func target(missing string) string {
	if missing == "" {
		return patch.TargetNeedle
	}
	return missing
}

// failedDetail quotes the missing needle, naming the marker for block steps.
func failedDetail(nf *patch.NotFoundError) string {
	if t := target(nf.Target); t != patch.TargetNeedle {
		return t + " " + strconv.Quote(nf.Preview)
	}
	return strconv.Quote(nf.Preview)
}

// 📊 Summary prints a table of counts
func (l *Logger) Summary(counts Counts) {
	table, err := SummaryTable(counts)

	l.mu.Lock()
	defer l.mu.Unlock()

	if err != nil {
		l.zlog.Warn().Err(err).Msg("rendering summary table")
	} else {
		fmt.Fprintln(l.console)
		fmt.Fprintln(l.console, table)
	}

	l.zlog.Info().
		Int("applied", counts.Applied).
		Int("skipped", counts.Skipped).
		Int("failed", counts.Failed).
		Msg("patch summary")
}

// SummaryTable renders counts as a table.
func SummaryTable(counts Counts) (string, error) {
	return pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData{
		{"applied", "skipped", "failed"},
		{strconv.Itoa(counts.Applied), strconv.Itoa(counts.Skipped), strconv.Itoa(counts.Failed)},
	}).Srender()
}

// 📝 LogNewline logs a newline
func (l *Logger) LogNewline() {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.console)
}

// 📝 Header logs a header
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	name := color.New(color.Bold, color.FgCyan).Sprint("patchrc")
	fmt.Fprintf(l.console, "\n%s %s\n\n", name, color.New(color.Faint).Sprint("• "+msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Success logs a success message
func (l *Logger) Success(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "✅ %s\n", color.New(color.FgGreen).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Warning logs a warning message
func (l *Logger) Warning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	l.zlog.Warn().Msg(msg)
}

// 📝 Error logs an error message
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	l.zlog.Error().Msg(msg)
}

// 📝 Info logs an info message
func (l *Logger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "ℹ️  %s\n", color.New(color.FgCyan).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Raw writes text to the console unchanged
func (l *Logger) Raw(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprint(l.console, text)
}

// 📝 Warningf logs a formatted warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	l.Warning(fmt.Sprintf(format, args...))
}

// 📝 Successf logs a formatted success message
func (l *Logger) Successf(format string, args ...interface{}) {
	l.Success(fmt.Sprintf(format, args...))
}

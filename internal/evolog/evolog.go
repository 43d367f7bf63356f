// Package evolog implements the console logging contract of spec §6:
// one line per generation naming the best tree's form, its (possibly
// parsimony-weighted) score, its raw RMS, and its complexity, plus a
// "Final" line on completion. It colours output when stdout is a
// terminal (github.com/mattn/go-isatty), renders large counts with
// github.com/dustin/go-humanize, and can dump a full parameter set with
// github.com/kr/pretty under Debug — the ambient logging stack this
// module carries even though spec.md scopes structured logging out of
// the core (§1 Non-goals list "logging ... " as an external collaborator).
package evolog

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/kr/pretty"
	"github.com/mattn/go-isatty"

	"symreg/internal/tree"
)

const (
	colorReset  = "\x1b[0m"
	colorGreen  = "\x1b[32m"
	colorYellow = "\x1b[33m"
	colorCyan   = "\x1b[36m"
)

// Logger writes generation and completion lines to an output stream. It
// satisfies evo.Logger by structural typing (same method shapes), kept
// dependency-free of internal/evo so logging never needs the engine.
type Logger struct {
	Out   io.Writer
	Debug bool
	color bool
}

// New creates a Logger writing to out, auto-detecting ANSI colour
// support the way terminal-aware CLIs in the ecosystem do: only when
// out is a *os.File connected to a TTY.
func New(out io.Writer, debug bool) *Logger {
	color := false
	if f, ok := out.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Logger{Out: out, Debug: debug, color: color}
}

// Generation logs one per-generation line (§6 "a log line with the best
// tree's stringified form, its parsimony-weighted score, its raw RMS
// score, and its complexity").
func (l *Logger) Generation(gen int, best *tree.Root, rawRMS float64) {
	fmt.Fprintf(l.Out, "%s gen=%s score=%.6g rms=%.6g complexity=%.6g form=%s\n",
		l.tag("gen", colorCyan),
		humanize.Comma(int64(gen)),
		best.Score, rawRMS, best.Complexity, best.String())
}

// Final logs the completion line §6 calls out as tagged "Final".
func (l *Logger) Final(best *tree.Root, rawRMS float64, generations int) {
	fmt.Fprintf(l.Out, "%s generations=%s score=%.6g rms=%.6g complexity=%.6g form=%s\n",
		l.tag("Final", colorGreen),
		humanize.Comma(int64(generations)),
		best.Score, rawRMS, best.Complexity, best.String())
}

// Warn logs a non-fatal condition, e.g. a config.Load warning (§7.1's
// "warn and leave at default").
func (l *Logger) Warn(err error) {
	fmt.Fprintf(l.Out, "%s %v\n", l.tag("warn", colorYellow), err)
}

// DumpParameters pretty-prints v (typically a *config.Parameters) when
// Debug is set, using kr/pretty's struct formatter instead of
// fmt's default %+v, matching the ecosystem's go-to verbose-dump
// library.
func (l *Logger) DumpParameters(label string, v interface{}) {
	if !l.Debug {
		return
	}
	fmt.Fprintf(l.Out, "%s %s:\n", l.tag("debug", colorYellow), label)
	pretty.Fprintf(l.Out, "%# v\n", v)
}

func (l *Logger) tag(name, color string) string {
	if !l.color {
		return "[" + name + "]"
	}
	return color + "[" + name + "]" + colorReset
}

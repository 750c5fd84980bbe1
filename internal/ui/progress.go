package ui

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// StreamingIndicator renders the status line shown while waiting on a reply.
type StreamingIndicator struct {
	Spinner    string // spinner.View() output
	Phase      string // "Thinking", "Responding"
	Elapsed    time.Duration
	Chars      int  // 0 = don't show
	ShowCancel bool // show "(ctrl+c to cancel)"
}

// Render returns the formatted indicator.
func (s StreamingIndicator) Render(styles *Styles) string {
	var b strings.Builder

	b.WriteString(s.Spinner)
	b.WriteString(" ")
	b.WriteString(s.Phase)
	b.WriteString("...")

	if s.Chars > 0 {
		fmt.Fprintf(&b, " %d chars |", s.Chars)
	}
	fmt.Fprintf(&b, " %.1fs", s.Elapsed.Seconds())

	if s.ShowCancel {
		b.WriteString(" ")
		b.WriteString(styles.Muted.Render("(ctrl+c to cancel)"))
	}
	return b.String()
}

// ProgressPrinter turns cumulative progress text into incremental writes.
// Its Update method is an llm.ProgressFunc.
type ProgressPrinter struct {
	w    io.Writer
	last string
}

// NewProgressPrinter creates a printer writing to w.
func NewProgressPrinter(w io.Writer) *ProgressPrinter {
	return &ProgressPrinter{w: w}
}

// Update writes the part of text not yet printed. If text does not extend
// what was printed, it starts over on a new line.
func (p *ProgressPrinter) Update(text string) {
	if strings.HasPrefix(text, p.last) {
		io.WriteString(p.w, text[len(p.last):])
	} else {
		io.WriteString(p.w, "\n"+text)
	}
	p.last = text
}

// Text returns everything printed so far.
func (p *ProgressPrinter) Text() string {
	return p.last
}

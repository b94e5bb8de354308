package actor

import (
	"strings"
)

// ActionHistory is the running record of an actor's raw outputs, one line
// per Act call. It is never truncated; Window limits what a prompt shows.
type ActionHistory struct {
	lines []string
}

// Append adds one line. Embedded newlines are folded so each call adds
// exactly one line.
func (h *ActionHistory) Append(line string) {
	line = strings.Join(strings.Fields(line), " ")
	h.lines = append(h.lines, line)
}

// Len returns the number of recorded lines.
func (h *ActionHistory) Len() int {
	return len(h.lines)
}

// Lines returns a copy of the recorded lines in call order.
func (h *ActionHistory) Lines() []string {
	return append([]string(nil), h.lines...)
}

// String renders every line, each terminated by a newline.
func (h *ActionHistory) String() string {
	return render(h.lines)
}

// Window renders the last n lines. n <= 0 renders all of them.
func (h *ActionHistory) Window(n int) string {
	if n <= 0 || n >= len(h.lines) {
		return render(h.lines)
	}
	return render(h.lines[len(h.lines)-n:])
}

// Reset discards all lines. Called when a new task starts.
func (h *ActionHistory) Reset() {
	h.lines = nil
}

func render(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

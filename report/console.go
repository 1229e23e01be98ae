package report

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	okStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#98BB6C"))
	failStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5D62"))
	opStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#7E9CD8"))
	commandStyle = lipgloss.NewStyle().Bold(true)
	stderrStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA066"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#727169"))
)

// ConsoleReporter renders events as terminal text. A header line is printed
// whenever output switches to a new command so every line can be attributed.
type ConsoleReporter struct {
	mu  sync.Mutex
	out io.Writer

	// Quiet suppresses output lines and only prints summaries.
	Quiet bool

	lastOp    Operation
	lastIndex int
	lastCmd   string
}

// NewConsoleReporter creates a ConsoleReporter writing to out.
func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: out, lastIndex: -1}
}

// Report prints e.
func (c *ConsoleReporter) Report(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev := e.(type) {
	case LineEvent:
		if c.Quiet {
			return
		}
		if ev.Operation != c.lastOp || ev.Index != c.lastIndex || ev.Command != c.lastCmd {
			fmt.Fprintf(c.out, "%s %s\n", opStyle.Render("["+string(ev.Operation)+"]"), commandStyle.Render("$ "+ev.Command))
			c.lastOp, c.lastIndex, c.lastCmd = ev.Operation, ev.Index, ev.Command
		}
		text := ev.Text
		if ev.Stream == Stderr {
			text = stderrStyle.Render(text)
		}
		fmt.Fprintf(c.out, "  %s %s\n", mutedStyle.Render("│"), text)
	case SummaryEvent:
		c.lastOp, c.lastIndex, c.lastCmd = "", -1, ""
		mark := okStyle.Render("✓")
		if !ev.Succeeded {
			mark = failStyle.Render("✗")
		}
		fmt.Fprintf(c.out, "%s %s %s\n", mark, opStyle.Render("["+string(ev.Operation)+"]"), ev.Message)
		if !ev.Succeeded && ev.Err != nil {
			fmt.Fprintf(c.out, "  %s\n", mutedStyle.Render(ev.Err.Error()))
		}
	}
}

package ui

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/develotters/wiretap/internal/capture"
	"github.com/develotters/wiretap/internal/discovery"
)

// Printer writes styled output for one-shot commands.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a Printer writing to w, or os.Stdout if w is nil.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
	}
}

// SetWidth overrides the detected terminal width.
func (p *Printer) SetWidth(width int) *Printer {
	p.width = width
	return p
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// PrintHeader prints a bordered command header with sorted parameters.
func (p *Printer) PrintHeader(title, command string, params map[string]string) {
	lines := []string{
		TitleStyle.Render(strings.ToUpper(title)),
		SubtitleStyle.Render(command),
	}
	if len(params) > 0 {
		lines = append(lines, Divider(p.width-6))
		for _, k := range sortedKeys(params) {
			lines = append(lines, SubtitleStyle.Render(k+":")+" "+ValueStyle.Render(params[k]))
		}
	}
	p.Println(HeaderBorderStyle(p.width).Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
}

// PrintSuccess prints a success box
func (p *Printer) PrintSuccess(title string, details map[string]string) {
	lines := []string{SuccessTitleStyle.Render(SuccessMarker + "  " + title)}
	for _, k := range sortedKeys(details) {
		lines = append(lines, KeyStyle.Render(k+":")+" "+ValueStyle.Render(details[k]))
	}
	p.Println(SuccessBoxStyle(p.width).Render(strings.Join(lines, "\n")))
}

// PrintError prints an error box with optional hints.
func (p *Printer) PrintError(title string, err error, hints []string) {
	lines := []string{ErrorTitleStyle.Render(FailureMarker + "  " + title)}
	if err != nil {
		lines = append(lines, "", ErrorMessageStyle.Render(err.Error()))
	}
	if len(hints) > 0 {
		lines = append(lines, "")
		for _, h := range hints {
			lines = append(lines, SubtitleStyle.Render("• "+h))
		}
	}
	p.Println(ErrorBoxStyle(p.width).Render(strings.Join(lines, "\n")))
}

// PrintServices prints discovered listeners as a table.
func (p *Printer) PrintServices(services []*discovery.Service) {
	if len(services) == 0 {
		p.Println(NoticeStyle.Render("No wiretap listeners found."))
		return
	}

	rows := [][]string{{"INSTANCE", "MODE", "ADDRESS", "VERSION"}}
	for _, svc := range services {
		addr := svc.Address()
		if ws := svc.WebSocketURL(); ws != "" {
			addr = ws
		}
		rows = append(rows, []string{svc.Instance, svc.Mode, addr, svc.Version})
	}

	p.printTable(rows)
}

// printTable left-aligns rows into columns; the first row is the header.
func (p *Printer) printTable(rows [][]string) {
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	for i, row := range rows {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = cell + strings.Repeat(" ", widths[j]-lipgloss.Width(cell))
		}
		line := strings.TrimRight(strings.Join(cells, "  "), " ")
		if i == 0 {
			line = TableHeaderStyle.Render(line)
		}
		p.Println(line)
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PrintCaptureSummary prints one row per captured connection.
func (p *Printer) PrintCaptureSummary(summaries []capture.ConnSummary) {
	if len(summaries) == 0 {
		p.Println(NoticeStyle.Render("No captured payloads."))
		return
	}

	rows := [][]string{{"CONNECTION", "REMOTE", "MODE", "RECORDS", "BYTES", "DURATION"}}
	for _, s := range summaries {
		rows = append(rows, []string{
			s.ConnID,
			s.RemoteAddr,
			s.Mode,
			strconv.Itoa(s.Records),
			strconv.Itoa(s.Bytes),
			s.Last.Sub(s.First).Round(time.Millisecond).String(),
		})
	}
	p.printTable(rows)
}

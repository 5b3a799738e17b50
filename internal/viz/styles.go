package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/san-kum/pushctl/internal/task"
)

type styles struct {
	theme   Theme
	canvas  lipgloss.Style
	panel   lipgloss.Style
	header  lipgloss.Style
	label   lipgloss.Style
	value   lipgloss.Style
	graph   lipgloss.Style
	help    lipgloss.Style
	muted   lipgloss.Style
	cursor  lipgloss.Style
	running lipgloss.Style
	paused  lipgloss.Style
	success lipgloss.Style
	timeout lipgloss.Style
	failure lipgloss.Style
}

func newStyles(th Theme) styles {
	bold := func(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Bold(true).Foreground(c) }
	return styles{
		theme:  th,
		canvas: lipgloss.NewStyle().Padding(1, 2).Foreground(th.Scene),
		panel: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(th.Muted).
			Padding(1, 2).
			Width(46),
		header:  bold(th.Primary).MarginBottom(1),
		label:   lipgloss.NewStyle().Foreground(th.Muted).Width(12),
		value:   lipgloss.NewStyle().Foreground(th.Text),
		graph:   lipgloss.NewStyle().Foreground(th.Primary).Padding(1, 0),
		help:    lipgloss.NewStyle().Foreground(th.Muted).Italic(true).MarginTop(1),
		muted:   lipgloss.NewStyle().Foreground(th.Muted),
		cursor:  bold(th.Accent),
		running: bold(th.Success),
		paused:  bold(th.Warning),
		success: bold(th.Success),
		timeout: bold(th.Warning),
		failure: bold(th.Error),
	}
}

func (s styles) status(st task.Status) lipgloss.Style {
	switch st {
	case task.StatusSuccess:
		return s.success
	case task.StatusFailure:
		return s.failure
	}
	return s.timeout
}

// gradient renders text blended from one colour to another.
func gradient(text string, from, to lipgloss.Color) string {
	runes := []rune(text)
	if len(runes) == 0 {
		return ""
	}
	a, errA := colorful.Hex(string(from))
	b, errB := colorful.Hex(string(to))
	if errA != nil || errB != nil {
		return lipgloss.NewStyle().Foreground(from).Render(text)
	}

	var out strings.Builder
	for i, r := range runes {
		t := 0.0
		if len(runes) > 1 {
			t = float64(i) / float64(len(runes)-1)
		}
		c := lipgloss.Color(a.BlendLab(b, t).Clamped().Hex())
		out.WriteString(lipgloss.NewStyle().Foreground(c).Render(string(r)))
	}
	return out.String()
}

// progressBar fills width cells by fraction, colouring by how much is left.
func (s styles) progressBar(fraction float64, width int) string {
	filled := int(fraction * float64(width))
	filled = min(max(filled, 0), width)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	switch {
	case fraction > 0.8:
		return s.failure.Render(bar)
	case fraction > 0.5:
		return s.paused.Render(bar)
	}
	return s.running.Render(bar)
}

// sparkline draws the last width values scaled to their own range.
func sparkline(values []float64, width int) string {
	if len(values) == 0 {
		return strings.Repeat("─", width)
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo, hi = min(lo, v), max(hi, v)
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	var b strings.Builder
	for _, v := range values {
		idx := int((v - lo) / rng * float64(len(chars)-1))
		b.WriteRune(chars[min(max(idx, 0), len(chars)-1)])
	}
	return b.String()
}

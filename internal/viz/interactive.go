package viz

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/pushctl/internal/config"
	"github.com/san-kum/pushctl/internal/experiment"
	"github.com/san-kum/pushctl/internal/trial"
)

var variantInfo = map[string]string{
	config.VariantPID: "approach, lower, proportional push",
	config.VariantMPC: "contact seek, predictive tracking",
}

// tunable lists the config paths offered on the setup screen.
var tunable = []string{"trial", "task.timeout", "task.goal_offset_x", "task.goal_offset_y", "scene.jitter"}

const (
	stateMenu = iota
	stateConfig
	stateLive
)

type entry struct{ variant, preset string }

type picker struct {
	ctx    context.Context
	exp    *experiment.Experiment
	styles styles

	state       int
	entries     []entry
	cursor      int
	selected    entry
	params      map[string]float64
	paramCursor int
	editing     bool
	editBuf     string
	err         error
	live        Model
}

// NewInteractiveApp lists every variant and preset, lets the user tweak a
// few settings, then runs the chosen trial live.
func NewInteractiveApp(ctx context.Context, exp *experiment.Experiment) tea.Model {
	var entries []entry
	for _, v := range exp.Registry().ListVariants() {
		for _, p := range config.ListPresets(v) {
			entries = append(entries, entry{v, p})
		}
	}
	return picker{ctx: ctx, exp: exp, styles: newStyles(Themes[0]), entries: entries}
}

func (m picker) Init() tea.Cmd { return nil }

func (m picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch m.state {
		case stateMenu:
			return m.menuKey(k)
		case stateConfig:
			return m.configKey(k)
		}
	}
	if m.state == stateLive {
		next, cmd := m.live.Update(msg)
		m.live = next.(Model)
		return m, cmd
	}
	return m, nil
}

func (m picker) menuKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}
	case "enter", " ":
		if len(m.entries) == 0 {
			return m, nil
		}
		m.selected = m.entries[m.cursor]
		m.state, m.paramCursor, m.err = stateConfig, 0, nil
		m.params = m.defaults()
	}
	return m, nil
}

func (m picker) defaults() map[string]float64 {
	cfg := config.GetPreset(m.selected.variant, m.selected.preset)
	return map[string]float64{
		"trial":              float64(cfg.Trial),
		"task.timeout":       cfg.Task.Timeout,
		"task.goal_offset_x": cfg.Task.GoalOffsetX,
		"task.goal_offset_y": cfg.Task.GoalOffsetY,
		"scene.jitter":       cfg.Scene.Jitter,
	}
}

func (m picker) configKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	name := tunable[m.paramCursor]
	if m.editing {
		switch msg.String() {
		case "enter":
			var val float64
			if _, err := fmt.Sscanf(m.editBuf, "%g", &val); err == nil {
				m.params[name] = val
			}
			m.editing, m.editBuf = false, ""
		case "esc":
			m.editing, m.editBuf = false, ""
		case "backspace":
			if len(m.editBuf) > 0 {
				m.editBuf = m.editBuf[:len(m.editBuf)-1]
			}
		default:
			if s := msg.String(); len(s) == 1 && strings.ContainsAny(s, "0123456789.-") {
				m.editBuf += s
			}
		}
		return m, nil
	}
	switch msg.String() {
	case "q", "esc":
		m.state = stateMenu
	case "up", "k":
		if m.paramCursor > 0 {
			m.paramCursor--
		}
	case "down", "j":
		if m.paramCursor < len(tunable)-1 {
			m.paramCursor++
		}
	case "enter", " ":
		m.editing, m.editBuf = true, fmt.Sprintf("%g", m.params[name])
	case "s":
		return m.start()
	}
	return m, nil
}

// config applies the edited values to the selected preset.
func (m picker) config() (*config.Config, error) {
	base := config.GetPreset(m.selected.variant, m.selected.preset)
	values := make(map[string]any, len(m.params))
	for k, v := range m.params {
		values[k] = v
	}
	values["trial"] = int(m.params["trial"])
	cfg, err := base.Override(values)
	if err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (m picker) start() (tea.Model, tea.Cmd) {
	cfg, err := m.config()
	if err != nil {
		m.err = err
		return m, nil
	}
	title := fmt.Sprintf("%s/%s trial %d", m.selected.variant, m.selected.preset, cfg.Trial)
	live, err := NewModel(m.ctx, title, cfg.Rate, func() (*trial.Trial, error) { return m.exp.Build(cfg) })
	if err != nil {
		m.err = err
		return m, nil
	}
	m.live, m.state = live, stateLive
	return m, live.Init()
}

func (m picker) View() string {
	switch m.state {
	case stateConfig:
		return m.viewConfig()
	case stateLive:
		return m.live.View()
	}
	return m.viewMenu()
}

func (m picker) keys(pairs ...string) string {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		b.WriteString(m.styles.cursor.Render(pairs[i]) + m.styles.muted.Render(" "+pairs[i+1]+"  "))
	}
	return b.String()
}

func (m picker) viewMenu() string {
	st := m.styles
	var b strings.Builder
	b.WriteString("\n\n    " + gradient("PUSHCTL", st.theme.Primary, st.theme.Accent) + "\n    " +
		st.muted.Render("closed-loop push controller") + "\n    " + st.muted.Render("─────────────────────────") + "\n\n")
	for i, e := range m.entries {
		name := fmt.Sprintf("%-4s %-10s", e.variant, e.preset)
		if i == m.cursor {
			b.WriteString("    " + st.cursor.Render("▸ "+name) + "  " + st.value.Render(variantInfo[e.variant]) + "\n")
		} else {
			b.WriteString("    " + st.muted.Render("  "+name) + "\n")
		}
	}
	b.WriteString("\n    " + m.keys("j/k", "navigate", "enter", "select", "q", "quit") + "\n")
	return b.String()
}

func (m picker) viewConfig() string {
	st := m.styles
	var b strings.Builder
	b.WriteString("\n\n    " + st.header.Render(strings.ToUpper(m.selected.variant+" / "+m.selected.preset)) + "\n    " +
		st.muted.Render(variantInfo[m.selected.variant]) + "\n\n")
	for i, name := range tunable {
		val := fmt.Sprintf("%10.4g", m.params[name])
		if m.editing && i == m.paramCursor {
			val = fmt.Sprintf("%10s", m.editBuf+"_")
		}
		if i == m.paramCursor {
			b.WriteString(fmt.Sprintf("    %s %s\n", st.cursor.Render(fmt.Sprintf("▸ %-20s", name)), st.cursor.Render(val)))
		} else {
			b.WriteString(fmt.Sprintf("    %s %s\n", st.muted.Render(fmt.Sprintf("  %-20s", name)), st.value.Render(val)))
		}
	}
	if m.err != nil {
		b.WriteString("\n    " + st.failure.Render(m.err.Error()) + "\n")
	}
	b.WriteString("\n    " + m.keys("j/k", "select", "enter", "edit", "s", "start", "esc", "back") + "\n")
	return b.String()
}

// RunInteractive opens the preset picker.
func RunInteractive(ctx context.Context, exp *experiment.Experiment) error {
	_, err := tea.NewProgram(NewInteractiveApp(ctx, exp), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
